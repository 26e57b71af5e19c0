package search

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Wolverine971/bubble-search/config"
	"github.com/Wolverine971/bubble-search/internal/entity"
	"github.com/Wolverine971/bubble-search/internal/telemetry"
	web_search "github.com/Wolverine971/bubble-search/tools/web_search"
	"github.com/Wolverine971/bubble-search/tools/web_search/models"
)

// Engine executes a search plan: groups of parallel steps fan out against
// the search provider, sequential steps synthesize everything gathered so
// far, and the whole run degrades to a single plain search if anything
// inside the plan fails.
type Engine struct {
	searcher             web_search.Searcher
	analyzer             Analyzer
	synthesizer          Synthesizer
	maxResults           int
	shortAnswerThreshold int
	logger               *log.Logger
	telemetry            *telemetry.Telemetry
}

// NewEngine builds an Engine from configuration and collaborators.
func NewEngine(cfg config.EngineConfig, searcher web_search.Searcher, analyzer Analyzer, synthesizer Synthesizer, tele *telemetry.Telemetry) *Engine {
	return &Engine{
		searcher:             searcher,
		analyzer:             analyzer,
		synthesizer:          synthesizer,
		maxResults:           cfg.MaxResults,
		shortAnswerThreshold: cfg.ShortAnswerThreshold,
		logger:               log.New(log.Writer(), "[ENGINE] ", log.LstdFlags),
		telemetry:            tele,
	}
}

// emitter serializes progress callbacks; parallel steps emit concurrently.
type emitter struct {
	mu sync.Mutex
	fn Progress
}

func (em *emitter) emit(stage string, data map[string]interface{}) {
	if em.fn == nil {
		return
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	em.fn(stage, data)
}

// Execute runs the plan against the search provider. Any failure inside
// the plan (search, synthesis or otherwise) degrades the whole run to a
// single plain search for the original query; an error is returned only
// when that fallback search fails as well.
func (e *Engine) Execute(ctx context.Context, originalQuery string, plan []Step, intent string, progress Progress) (Outcome, error) {
	em := &emitter{fn: progress}
	out, err := e.run(ctx, originalQuery, plan, intent, em)
	if err == nil {
		return out, nil
	}
	e.logger.Printf("plan execution failed, falling back to plain search: %v", err)

	start := time.Now()
	resp, serr := e.searcher.Search(ctx, originalQuery)
	e.telemetry.RecordSearch(serr, time.Since(start))
	if serr != nil {
		return Outcome{}, fmt.Errorf("plan execution failed (%v); fallback search failed: %w", err, serr)
	}
	return Outcome{Results: resp.Results, Answer: resp.Answer}, nil
}

func (e *Engine) run(ctx context.Context, originalQuery string, plan []Step, intent string, em *emitter) (Outcome, error) {
	var stepResults []StepResult
	var combined []models.Result
	finalAnswer := ""
	entities := entity.NewSet()

	groups := GroupSteps(plan)
	totalSteps := len(plan)

	for gi, group := range groups {
		stepTexts := make([]string, 0, len(group.Steps))
		for _, s := range group.Steps {
			stepTexts = append(stepTexts, s.Description)
		}
		em.emit("executing_group", map[string]interface{}{
			"groupIndex":  gi,
			"totalGroups": len(groups),
			"groupType":   group.Mode,
			"steps":       stepTexts,
		})

		if group.Mode == ModeSequential {
			for _, st := range group.Steps {
				em.emit("executing_sequential_step", map[string]interface{}{
					"currentStep":        st.Index + 1,
					"totalSteps":         totalSteps,
					"stepDescription":    st.Step,
					"previousStepsCount": len(stepResults),
				})

				if len(stepResults) > 0 {
					em.emit("synthesizing_step", map[string]interface{}{
						"currentStep":        st.Index + 1,
						"totalSteps":         totalSteps,
						"stepDescription":    st.Step,
						"previousStepsCount": len(stepResults),
					})

					start := time.Now()
					answer, err := e.synthesizer.Synthesize(ctx, originalQuery, intent, formatStepResults(stepResults))
					e.telemetry.RecordLLMRequest("synthesis", time.Since(start))
					if err != nil {
						return Outcome{}, fmt.Errorf("synthesis for step %d failed: %w", st.Index+1, err)
					}
					e.telemetry.RecordSynthesis()

					sr := StepResult{
						Step:      st.Step,
						StepIndex: st.Index,
						Query:     "Synthesizing results for: " + originalQuery,
						Results:   []models.Result{},
						Answer:    answer,
						Entities:  e.analyzer.Analyze(ctx, answer),
					}
					stepResults = append(stepResults, sr)
					finalAnswer = answer
					entities.AddAll(sr.Entities)
					e.telemetry.RecordPlanStep(ModeSequential)

					em.emit("synthesis_step_completed", map[string]interface{}{
						"currentStep": st.Index + 1,
						"totalSteps":  totalSteps,
						"stepResult":  sr,
					})
					continue
				}

				// No prior results to synthesize over: a leading
				// sequential step is just a search step.
				sr, err := e.runSearchStep(ctx, originalQuery, st, totalSteps, em)
				if err != nil {
					return Outcome{}, err
				}
				stepResults = append(stepResults, sr)
				combined = append(combined, sr.Results...)
				entities.AddAll(sr.Entities)
				finalAnswer = sr.Answer
				e.telemetry.RecordPlanStep(ModeSequential)

				em.emit("step_completed", map[string]interface{}{
					"currentStep": st.Index + 1,
					"totalSteps":  totalSteps,
					"stepResult":  sr,
				})
			}
			continue
		}

		// Parallel (and any unrecognized mode, which the planner
		// normalizes to parallel anyway).
		results, err := e.runParallelGroup(ctx, originalQuery, group, totalSteps, em)
		if err != nil {
			return Outcome{}, err
		}
		for _, sr := range results {
			stepResults = append(stepResults, sr)
			combined = append(combined, sr.Results...)
			entities.AddAll(sr.Entities)

			em.emit("step_completed", map[string]interface{}{
				"currentStep": sr.StepIndex + 1,
				"totalSteps":  totalSteps,
				"stepResult":  sr,
			})
		}
	}

	// A short answer after multiple steps means no synthesis step ran
	// (or it produced next to nothing); force a final pass.
	if len(finalAnswer) < e.shortAnswerThreshold && len(stepResults) > 1 {
		em.emit("final_synthesis", map[string]interface{}{
			"stepsCount": len(stepResults),
		})
		start := time.Now()
		answer, err := e.synthesizer.Synthesize(ctx, originalQuery, intent, formatStepResults(stepResults))
		e.telemetry.RecordLLMRequest("synthesis", time.Since(start))
		if err != nil {
			return Outcome{}, fmt.Errorf("final synthesis failed: %w", err)
		}
		e.telemetry.RecordSynthesis()
		finalAnswer = answer
	}

	if len(combined) > e.maxResults {
		combined = combined[:e.maxResults]
	}
	return Outcome{
		Results:     combined,
		Answer:      finalAnswer,
		StepResults: stepResults,
		Entities:    entities.Entities(),
	}, nil
}

// runParallelGroup fans a group's steps out into goroutines and joins
// before merging, so shared state is only touched after every step is
// done. Results are merged in completion order.
func (e *Engine) runParallelGroup(ctx context.Context, originalQuery string, group ExecutionGroup, totalSteps int, em *emitter) ([]StepResult, error) {
	type stepOutcome struct {
		result StepResult
		err    error
	}
	ch := make(chan stepOutcome, len(group.Steps))
	var wg sync.WaitGroup
	for _, st := range group.Steps {
		wg.Add(1)
		go func(st IndexedStep) {
			defer wg.Done()
			em.emit("executing_plan_step", map[string]interface{}{
				"currentStep":     st.Index + 1,
				"totalSteps":      totalSteps,
				"stepDescription": st.Step,
			})
			res, err := e.runSearchStep(ctx, originalQuery, st, totalSteps, em)
			ch <- stepOutcome{result: res, err: err}
		}(st)
	}
	wg.Wait()
	close(ch)

	results := make([]StepResult, 0, len(group.Steps))
	for out := range ch {
		if out.err != nil {
			return nil, out.err
		}
		e.telemetry.RecordPlanStep(ModeParallel)
		results = append(results, out.result)
	}
	return results, nil
}

func (e *Engine) runSearchStep(ctx context.Context, originalQuery string, st IndexedStep, totalSteps int, em *emitter) (StepResult, error) {
	stepQuery := deriveStepQuery(originalQuery, st.Step)
	em.emit("step_query_generated", map[string]interface{}{
		"currentStep":     st.Index + 1,
		"totalSteps":      totalSteps,
		"stepDescription": st.Step,
		"stepQuery":       stepQuery,
	})

	start := time.Now()
	resp, err := e.searcher.Search(ctx, stepQuery)
	e.telemetry.RecordSearch(err, time.Since(start))
	if err != nil {
		return StepResult{}, fmt.Errorf("search for step %d failed: %w", st.Index+1, err)
	}

	return StepResult{
		Step:      st.Step,
		StepIndex: st.Index,
		Query:     stepQuery,
		Results:   resp.Results,
		Answer:    resp.Answer,
		Entities:  e.analyzeStepResults(ctx, resp),
	}, nil
}

// analyzeStepResults extracts entities from a step's answer and from the
// content of every hit, deduplicated across the step.
func (e *Engine) analyzeStepResults(ctx context.Context, resp models.Response) []entity.Entity {
	set := entity.NewSet()
	if resp.Answer != "" {
		set.AddAll(e.analyzer.Analyze(ctx, resp.Answer))
	}
	for _, hit := range resp.Results {
		content := hit.RawContent
		if content == "" {
			content = hit.Content
		}
		if content == "" {
			continue
		}
		set.AddAll(e.analyzer.Analyze(ctx, cleanContent(content, hit.URL)))
	}
	return set.Entities()
}

// formatStepResults renders prior step results as the digest the
// synthesizer consumes.
func formatStepResults(stepResults []StepResult) string {
	parts := make([]string, 0, len(stepResults))
	for _, r := range stepResults {
		pairs := make([]string, 0, len(r.Entities))
		for _, ent := range r.Entities {
			pairs = append(pairs, fmt.Sprintf("%s (%s)", ent.Text, ent.Label))
		}
		parts = append(parts, fmt.Sprintf("%s\nQuery: %s\nAnswer: %s\nKey Entities: %s\n",
			r.Step.Description, r.Query, r.Answer, strings.Join(pairs, ", ")))
	}
	return strings.Join(parts, "\n\n")
}
