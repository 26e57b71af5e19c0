package search

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Wolverine971/bubble-search/config"
	"github.com/Wolverine971/bubble-search/internal/telemetry"
	"github.com/Wolverine971/bubble-search/provider"
)

const classificationPrompt = `
Given the following search query, classify it into exactly one of these intent categories:

- Informational Intent: When users want to learn or find information about a topic
- Navigational Intent: When users are looking for a specific website or page
- Commercial Intent: When users are researching products or services before making a purchase decision
- Transactional Intent: When users are ready to complete a specific action like making a purchase
- Local Intent: Searches for nearby businesses, services, or locations
- Comparative Intent: When users want to weigh options between similar products or services
- Pre-Informational Intent: Users just beginning to explore a broad topic without specific questions
- Visual Intent: When users want to see images or visual representations
- Video Intent: When users specifically want video content
- Local Service Intent: Specifically seeking service providers in a geographic area
- News Intent: When users want current information about recent events
- Entertainment Intent: Searches focused on amusement or leisure content
- Specific Question Intent: Users seeking direct answers to specific questions

Respond with ONLY the intent category name, nothing else.

Search query: %s
`

const querySummaryPrompt = `
Given the following search query and its classified intent, create a brief, friendly summary that shows you understand what the user is looking for.
Do not restate the query verbatim but reformulate it to show understanding of their intent.
Keep it concise and conversational.

Search query: %s
Classified intent: %s

Summary:
`

const searchPlanPrompt = `
Analyze the following search query and determine the steps needed to fully answer it.
If the query is simple and can be answered in a single search, return an array with just one step.
If the query requires multiple searches or has multiple parts, break it down into logical steps.

Some steps need to be done sequentially, while others can be done in parallel. So add a label to each step indicating if it is a sequential or parallel step.
The steps that are sequential will look at the previous step's results to determine it's output.

Search query: %s
Intent: %s

For each step, provide:
1. A description of what information needs to be searched for
2. The type of step (sequential or parallel)

Format your response as a valid JSON array, where each element is a step in the search plan.
Example format: [{"step": "Step 1: Lookup information about A", "stepType": "parallel"}, {"step": "Step 2: Lookup information about B", "stepType": "parallel"}, {"step": "Step 3: Take the information learned about A and B and come up with an answer", "stepType": "sequential"}]

Search Plan:
`

const synthesisPrompt = `
You are tasked with synthesizing search results from multiple steps to provide a comprehensive answer.

Original Query: %s
Search Intent: %s

Previous Step Results:
%s

Your task is to create a well-structured, comprehensive answer that addresses the original query
by synthesizing information from all the previous steps. The answer should be:
1. Comprehensive but concise
2. Well-organized with appropriate headings
3. Formatted in Markdown for readability
4. Focused on answering the original query

Synthesized Answer:
`

// Pipeline drives the planning side of a search: intent classification,
// query summarization, plan generation and answer synthesis, each one an
// LLM call.
type Pipeline struct {
	llm               provider.Provider
	approvalThreshold int
	logger            *log.Logger
	telemetry         *telemetry.Telemetry
}

// NewPipeline builds a Pipeline over the given LLM provider.
func NewPipeline(cfg config.EngineConfig, llm provider.Provider, tele *telemetry.Telemetry) *Pipeline {
	return &Pipeline{
		llm:               llm,
		approvalThreshold: cfg.ApprovalThreshold,
		logger:            log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags),
		telemetry:         tele,
	}
}

// ClassifyIntent labels the query with one of the intent categories.
func (p *Pipeline) ClassifyIntent(ctx context.Context, query string) (string, error) {
	start := time.Now()
	out, err := p.llm.Complete(ctx, "", fmt.Sprintf(classificationPrompt, query))
	p.telemetry.RecordLLMRequest("classify_intent", time.Since(start))
	if err != nil {
		return "", fmt.Errorf("intent classification failed: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// SummarizeQuery produces a one-line restatement of what the user wants.
func (p *Pipeline) SummarizeQuery(ctx context.Context, query, intent string) (string, error) {
	start := time.Now()
	out, err := p.llm.Complete(ctx, "", fmt.Sprintf(querySummaryPrompt, query, intent))
	p.telemetry.RecordLLMRequest("summarize_query", time.Since(start))
	if err != nil {
		return "", fmt.Errorf("query summarization failed: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// GeneratePlan asks the model for a step-by-step search plan. Unparseable
// output degrades to the single-step default plan rather than failing.
func (p *Pipeline) GeneratePlan(ctx context.Context, query, intent string) ([]Step, error) {
	start := time.Now()
	out, err := p.llm.Complete(ctx, "", fmt.Sprintf(searchPlanPrompt, query, intent))
	p.telemetry.RecordLLMRequest("generate_plan", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("plan generation failed: %w", err)
	}
	plan, ok := ParsePlan(out)
	if !ok {
		p.logger.Printf("could not parse search plan, using default plan; raw output: %.200s", out)
	}
	return plan, nil
}

// NeedsApproval reports whether a plan is large enough to require the
// user's sign-off before execution.
func (p *Pipeline) NeedsApproval(plan []Step) bool {
	return len(plan) > p.approvalThreshold
}

// Synthesize combines the digest of prior step results into one answer.
func (p *Pipeline) Synthesize(ctx context.Context, originalQuery, intent, stepDigest string) (string, error) {
	out, err := p.llm.Complete(ctx, "", fmt.Sprintf(synthesisPrompt, originalQuery, intent, stepDigest))
	if err != nil {
		return "", fmt.Errorf("synthesis failed: %w", err)
	}
	return strings.TrimSpace(out), nil
}
