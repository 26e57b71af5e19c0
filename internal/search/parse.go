package search

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// DefaultPlan is substituted when the planner's output cannot be parsed.
// It carries the parallel mode so the single step actually executes.
func DefaultPlan() []Step {
	return []Step{{Description: "Search for information about the query", Mode: ModeParallel}}
}

// ParsePlan turns raw LLM output into a validated plan. Markdown fences
// are stripped, then the first balanced JSON array is extracted and
// decoded. Steps with unknown or missing modes are normalized to
// parallel. Output that yields no usable steps produces the default plan
// and ok=false.
func ParsePlan(raw string) (plan []Step, ok bool) {
	text := raw
	if m := fencedBlockPattern.FindStringSubmatch(raw); m != nil {
		text = m[1]
	}

	var steps []Step
	if err := json.Unmarshal([]byte(text), &steps); err != nil {
		arr := extractJSONArray(text)
		if arr == "" {
			return DefaultPlan(), false
		}
		if err := json.Unmarshal([]byte(arr), &steps); err != nil {
			return DefaultPlan(), false
		}
	}

	plan = make([]Step, 0, len(steps))
	for _, step := range steps {
		step.Description = strings.TrimSpace(step.Description)
		if step.Description == "" {
			continue
		}
		if step.Mode != ModeSequential {
			step.Mode = ModeParallel
		}
		plan = append(plan, step)
	}
	if len(plan) == 0 {
		return DefaultPlan(), false
	}
	return plan, true
}

// extractJSONArray returns the first balanced top-level JSON array in
// text, using bracket depth scanning.
func extractJSONArray(text string) string {
	start := -1
	depth := 0
	for i, r := range text {
		switch r {
		case '[':
			if depth == 0 {
				start = i
			}
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
