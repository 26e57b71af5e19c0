package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Wolverine971/bubble-search/config"
	"github.com/Wolverine971/bubble-search/internal/entity"
	"github.com/Wolverine971/bubble-search/tools/web_search/models"
)

type stubSearcher struct {
	mu        sync.Mutex
	responses map[string]models.Response
	errors    map[string]error
	calls     []string
}

func (s *stubSearcher) Search(ctx context.Context, q string) (models.Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, q)
	s.mu.Unlock()
	if err, ok := s.errors[q]; ok {
		return models.Response{}, err
	}
	if resp, ok := s.responses[q]; ok {
		return resp, nil
	}
	return models.Response{Answer: "generic answer for " + q}, nil
}

type stubAnalyzer struct {
	entities []entity.Entity
}

func (a *stubAnalyzer) Analyze(ctx context.Context, text string) []entity.Entity {
	return a.entities
}

type stubSynthesizer struct {
	mu      sync.Mutex
	answer  string
	err     error
	digests []string
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, originalQuery, intent, stepDigest string) (string, error) {
	s.mu.Lock()
	s.digests = append(s.digests, stepDigest)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

type recordedEvent struct {
	stage string
	data  map[string]interface{}
}

type progressRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *progressRecorder) record(stage string, data map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{stage: stage, data: data})
}

func (p *progressRecorder) count(stage string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.stage == stage {
			n++
		}
	}
	return n
}

func (p *progressRecorder) stages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.stage)
	}
	return out
}

func engineConfig() config.EngineConfig {
	return config.EngineConfig{MaxResults: 5, ShortAnswerThreshold: 100, ApprovalThreshold: 2}
}

const longAnswer = "This synthesized answer is deliberately longer than one hundred characters so the engine does not trigger an extra final synthesis pass."

func TestExecuteParallelThenSequential(t *testing.T) {
	searcher := &stubSearcher{responses: map[string]models.Response{
		"cats cats vs dogs": {
			Results: []models.Result{{Title: "Cats", URL: "https://cats.example", Content: "About cats."}},
			Answer:  "Cats are independent.",
		},
		"dogs cats vs dogs": {
			Results: []models.Result{{Title: "Dogs", URL: "https://dogs.example", Content: "About dogs."}},
			Answer:  "Dogs are loyal.",
		},
	}}
	analyzer := &stubAnalyzer{entities: []entity.Entity{{Text: "Pets", Label: "MISC", Sentences: []string{"About pets."}}}}
	synth := &stubSynthesizer{answer: longAnswer}
	rec := &progressRecorder{}

	eng := NewEngine(engineConfig(), searcher, analyzer, synth, nil)
	plan := []Step{
		{Description: "Step 1: Search for cats", Mode: ModeParallel},
		{Description: "Step 2: Search for dogs", Mode: ModeParallel},
		{Description: "Step 3: Combine what was learned about both", Mode: ModeSequential},
	}

	out, err := eng.Execute(context.Background(), "cats vs dogs", plan, "Comparative Intent", rec.record)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if len(out.StepResults) != 3 {
		t.Fatalf("expected 3 step results, got %d", len(out.StepResults))
	}
	if out.Answer != longAnswer {
		t.Fatalf("expected synthesized answer, got %q", out.Answer)
	}
	if len(out.Results) != 2 {
		t.Fatalf("expected 2 combined hits, got %d", len(out.Results))
	}

	if got := rec.count("executing_group"); got != 2 {
		t.Fatalf("expected 2 executing_group events, got %d", got)
	}
	if got := rec.count("step_completed"); got != 2 {
		t.Fatalf("expected 2 step_completed events, got %d", got)
	}
	if got := rec.count("synthesis_step_completed"); got != 1 {
		t.Fatalf("expected 1 synthesis_step_completed event, got %d", got)
	}
	if got := rec.count("final_synthesis"); got != 0 {
		t.Fatalf("expected no final_synthesis, got %d (answer length %d)", got, len(out.Answer))
	}
	if got := rec.count("executing_plan_step"); got != 2 {
		t.Fatalf("expected 2 executing_plan_step events, got %d", got)
	}
	if got := rec.count("executing_sequential_step"); got != 1 {
		t.Fatalf("expected 1 executing_sequential_step event, got %d", got)
	}
	if got := rec.count("synthesizing_step"); got != 1 {
		t.Fatalf("expected 1 synthesizing_step event, got %d", got)
	}

	// The synthesis step holds the placeholder query and no hits.
	last := out.StepResults[2]
	if last.Query != "Synthesizing results for: cats vs dogs" {
		t.Fatalf("unexpected synthesis step query: %q", last.Query)
	}
	if len(last.Results) != 0 {
		t.Fatalf("synthesis step should carry no hits, got %d", len(last.Results))
	}
	if last.StepIndex != 2 {
		t.Fatalf("synthesis step index = %d, want 2", last.StepIndex)
	}

	// Digest handed to the synthesizer covers both search steps.
	if len(synth.digests) != 1 {
		t.Fatalf("expected a single synthesis call, got %d", len(synth.digests))
	}
	digest := synth.digests[0]
	for _, want := range []string{
		"Step 1: Search for cats",
		"Query: cats cats vs dogs",
		"Answer: Cats are independent.",
		"Key Entities: Pets (MISC)",
		"Step 2: Search for dogs",
	} {
		if !strings.Contains(digest, want) {
			t.Fatalf("digest missing %q:\n%s", want, digest)
		}
	}

	// Entities across steps are deduplicated.
	if len(out.Entities) != 1 {
		t.Fatalf("expected deduplicated entities, got %v", out.Entities)
	}
}

func TestExecuteTruncatesCombinedResults(t *testing.T) {
	hit := func(title string) models.Result { return models.Result{Title: title, URL: "https://" + title + ".example"} }
	searcher := &stubSearcher{responses: map[string]models.Response{
		"alpha topic": {Results: []models.Result{hit("a1"), hit("a2"), hit("a3")}, Answer: "a"},
		"beta topic":  {Results: []models.Result{hit("b1"), hit("b2"), hit("b3")}, Answer: "b"},
	}}
	synth := &stubSynthesizer{answer: longAnswer}
	eng := NewEngine(engineConfig(), searcher, &stubAnalyzer{}, synth, nil)

	plan := []Step{
		{Description: "Step 1: Search for alpha ", Mode: ModeParallel},
		{Description: "Step 2: Search for beta ", Mode: ModeParallel},
	}
	out, err := eng.Execute(context.Background(), "topic", plan, "Informational Intent", nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(out.Results) != 5 {
		t.Fatalf("expected truncation to 5 results, got %d", len(out.Results))
	}
}

func TestExecuteForcesFinalSynthesisOnShortAnswer(t *testing.T) {
	searcher := &stubSearcher{responses: map[string]models.Response{}}
	synth := &stubSynthesizer{answer: longAnswer}
	rec := &progressRecorder{}
	eng := NewEngine(engineConfig(), searcher, &stubAnalyzer{}, synth, nil)

	// Two parallel steps, short provider answers, no sequential step.
	plan := []Step{
		{Description: "Step 1: Search for one aspect", Mode: ModeParallel},
		{Description: "Step 2: Search for another aspect", Mode: ModeParallel},
	}
	out, err := eng.Execute(context.Background(), "some topic", plan, "Informational Intent", rec.record)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if got := rec.count("final_synthesis"); got != 1 {
		t.Fatalf("expected forced final synthesis, got %d events", got)
	}
	if out.Answer != longAnswer {
		t.Fatalf("expected synthesized final answer, got %q", out.Answer)
	}
}

func TestExecuteSingleStepSkipsFinalSynthesis(t *testing.T) {
	searcher := &stubSearcher{responses: map[string]models.Response{
		"just one thing": {Answer: "short"},
	}}
	synth := &stubSynthesizer{answer: longAnswer}
	rec := &progressRecorder{}
	eng := NewEngine(engineConfig(), searcher, &stubAnalyzer{}, synth, nil)

	plan := []Step{{Description: "Find the answer", Mode: ModeParallel}}
	out, err := eng.Execute(context.Background(), "just one thing", plan, "Specific Question Intent", rec.record)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if got := rec.count("final_synthesis"); got != 0 {
		t.Fatalf("single-step plan must not trigger final synthesis, got %d", got)
	}
	if len(synth.digests) != 0 {
		t.Fatalf("synthesizer should not be called, got %d calls", len(synth.digests))
	}
	// Parallel steps never promote their answer to the final one; the
	// provider answer stays on the step result.
	if out.Answer != "" {
		t.Fatalf("expected empty final answer, got %q", out.Answer)
	}
	if len(out.StepResults) != 1 || out.StepResults[0].Answer != "short" {
		t.Fatalf("unexpected step results: %+v", out.StepResults)
	}
}

func TestExecuteLeadingSequentialStepSearches(t *testing.T) {
	searcher := &stubSearcher{responses: map[string]models.Response{
		"deep question": {Answer: "a direct answer long enough that no extra synthesis is needed for this sequential-only plan, well past the limit."},
	}}
	synth := &stubSynthesizer{answer: longAnswer}
	rec := &progressRecorder{}
	eng := NewEngine(engineConfig(), searcher, &stubAnalyzer{}, synth, nil)

	plan := []Step{{Description: "Investigate the question in depth", Mode: ModeSequential}}
	out, err := eng.Execute(context.Background(), "deep question", plan, "Informational Intent", rec.record)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if got := rec.count("executing_sequential_step"); got != 1 {
		t.Fatalf("expected executing_sequential_step, got %d", got)
	}
	if got := rec.count("synthesizing_step"); got != 0 {
		t.Fatalf("leading sequential step must not synthesize, got %d", got)
	}
	if got := rec.count("step_completed"); got != 1 {
		t.Fatalf("expected step_completed for leading sequential step, got %d", got)
	}
	if len(out.StepResults) != 1 || out.StepResults[0].Answer == "" {
		t.Fatalf("unexpected step results: %+v", out.StepResults)
	}
}

func TestExecuteFallsBackToPlainSearch(t *testing.T) {
	searcher := &stubSearcher{
		responses: map[string]models.Response{
			"broken topic": {Results: []models.Result{{Title: "fallback hit"}}, Answer: "fallback answer"},
		},
		errors: map[string]error{
			"first part broken topic":  errors.New("provider exploded"),
			"second part broken topic": errors.New("provider exploded"),
		},
	}
	synth := &stubSynthesizer{answer: longAnswer}
	eng := NewEngine(engineConfig(), searcher, &stubAnalyzer{}, synth, nil)

	plan := []Step{
		{Description: "Step 1: Search for first part ", Mode: ModeParallel},
		{Description: "Step 2: Search for second part ", Mode: ModeParallel},
	}
	out, err := eng.Execute(context.Background(), "broken topic", plan, "Informational Intent", nil)
	if err != nil {
		t.Fatalf("expected degraded outcome, got error: %v", err)
	}
	if out.Answer != "fallback answer" || len(out.Results) != 1 {
		t.Fatalf("expected plain-search fallback outcome, got %+v", out)
	}
	if len(out.StepResults) != 0 {
		t.Fatalf("fallback outcome should carry no step results, got %d", len(out.StepResults))
	}
}

func TestExecuteFallbackFailureReturnsError(t *testing.T) {
	// Every query fails, including the fallback.
	eng := NewEngine(engineConfig(), failingSearcher{}, &stubAnalyzer{}, &stubSynthesizer{answer: "x"}, nil)

	plan := []Step{{Description: "Step 1: Search for something ", Mode: ModeParallel}}
	if _, err := eng.Execute(context.Background(), "doomed", plan, "Informational Intent", nil); err == nil {
		t.Fatal("expected error when fallback search also fails")
	}
}

type failingSearcher struct{}

func (failingSearcher) Search(ctx context.Context, q string) (models.Response, error) {
	return models.Response{}, errors.New("provider down")
}

func TestExecuteSynthesisErrorTriggersFallback(t *testing.T) {
	searcher := &stubSearcher{responses: map[string]models.Response{
		"topic": {Results: []models.Result{{Title: "plain"}}, Answer: "plain answer"},
	}}
	synth := &stubSynthesizer{err: errors.New("llm down")}
	eng := NewEngine(engineConfig(), searcher, &stubAnalyzer{}, synth, nil)

	plan := []Step{
		{Description: "Step 1: Search for part one ", Mode: ModeParallel},
		{Description: "Step 2: Search for part two ", Mode: ModeParallel},
		{Description: "Step 3: Combine the findings", Mode: ModeSequential},
	}
	out, err := eng.Execute(context.Background(), "topic", plan, "Informational Intent", nil)
	if err != nil {
		t.Fatalf("expected degraded outcome, got error: %v", err)
	}
	if out.Answer != "plain answer" {
		t.Fatalf("expected fallback answer, got %q", out.Answer)
	}
}
