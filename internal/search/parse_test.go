package search

import "testing"

func TestParsePlanFencedJSON(t *testing.T) {
	raw := "Here is the plan:\n```json\n[{\"step\": \"Step 1: Search for A\", \"stepType\": \"parallel\"}, {\"step\": \"Step 2: Combine results\", \"stepType\": \"sequential\"}]\n```\nDone."
	plan, ok := ParsePlan(raw)
	if !ok {
		t.Fatal("expected fenced JSON to parse")
	}
	if len(plan) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan))
	}
	if plan[0].Mode != ModeParallel || plan[1].Mode != ModeSequential {
		t.Fatalf("modes not preserved: %+v", plan)
	}
}

func TestParsePlanBareJSON(t *testing.T) {
	raw := `[{"step": "Step 1: Search for X", "stepType": "parallel"}]`
	plan, ok := ParsePlan(raw)
	if !ok || len(plan) != 1 || plan[0].Description != "Step 1: Search for X" {
		t.Fatalf("bare JSON parse failed: ok=%v plan=%+v", ok, plan)
	}
}

func TestParsePlanEmbeddedArray(t *testing.T) {
	raw := `Sure! The plan is [{"step": "Step 1: Search for X", "stepType": "parallel"}] as requested.`
	plan, ok := ParsePlan(raw)
	if !ok || len(plan) != 1 {
		t.Fatalf("embedded array parse failed: ok=%v plan=%+v", ok, plan)
	}
}

func TestParsePlanNormalizesUnknownMode(t *testing.T) {
	raw := `[{"step": "Step 1: Search for X", "stepType": "concurrent"}, {"step": "Step 2: Search for Y"}]`
	plan, ok := ParsePlan(raw)
	if !ok {
		t.Fatal("expected plan to parse")
	}
	for _, s := range plan {
		if s.Mode != ModeParallel {
			t.Fatalf("unknown mode not normalized to parallel: %+v", s)
		}
	}
}

func TestParsePlanMalformedFallsBack(t *testing.T) {
	for _, raw := range []string{"not json at all", "[]", `{"step": "object not array"}`, ""} {
		plan, ok := ParsePlan(raw)
		if ok {
			t.Fatalf("expected fallback for %q", raw)
		}
		if len(plan) != 1 || plan[0].Description != "Search for information about the query" || plan[0].Mode != ModeParallel {
			t.Fatalf("unexpected default plan for %q: %+v", raw, plan)
		}
	}
}
