package search

import (
	"context"

	"github.com/Wolverine971/bubble-search/internal/entity"
	"github.com/Wolverine971/bubble-search/tools/web_search/models"
)

// Step execution modes. A parallel step can run concurrently with its
// neighbours; a sequential step sees everything executed before it.
const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
)

// Step is one entry of a search plan.
type Step struct {
	Description string `json:"step"`
	Mode        string `json:"stepType"`
}

// IndexedStep is a plan step together with its position in the plan.
// The index survives grouping so progress events can report it.
type IndexedStep struct {
	Step
	Index int
}

// ExecutionGroup is a maximal run of adjacent steps sharing one mode.
type ExecutionGroup struct {
	Mode  string
	Steps []IndexedStep
}

// StepResult captures the outcome of one executed plan step.
type StepResult struct {
	Step      Step            `json:"step"`
	StepIndex int             `json:"stepIndex"`
	Query     string          `json:"query"`
	Results   []models.Result `json:"results"`
	Answer    string          `json:"answer"`
	Entities  []entity.Entity `json:"entities"`
}

// Outcome is the aggregate result of executing a whole plan.
type Outcome struct {
	Results     []models.Result `json:"results"`
	Answer      string          `json:"answer"`
	StepResults []StepResult    `json:"stepResults"`
	Entities    []entity.Entity `json:"answerEntities"`
}

// Progress receives streamed execution events. Implementations must
// tolerate concurrent calls; the engine serializes them.
type Progress func(stage string, data map[string]interface{})

// Analyzer extracts entities from free text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) []entity.Entity
}

// Synthesizer combines prior step results into a single answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, originalQuery, intent, stepDigest string) (string, error)
}
