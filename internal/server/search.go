package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Wolverine971/bubble-search/internal/search"
	web_search "github.com/Wolverine971/bubble-search/tools/web_search"
)

// Planner is the planning side of a search, satisfied by *search.Pipeline.
type Planner interface {
	ClassifyIntent(ctx context.Context, query string) (string, error)
	SummarizeQuery(ctx context.Context, query, intent string) (string, error)
	GeneratePlan(ctx context.Context, query, intent string) ([]search.Step, error)
	NeedsApproval(plan []search.Step) bool
}

// PlanExecutor executes an approved plan, satisfied by *search.Engine.
type PlanExecutor interface {
	Execute(ctx context.Context, originalQuery string, plan []search.Step, intent string, progress search.Progress) (search.Outcome, error)
}

// SearchHandler serves the streamed search endpoints.
type SearchHandler struct {
	Planner  Planner
	Executor PlanExecutor
	Searcher web_search.Searcher
	Analyzer search.Analyzer
	logger   *log.Logger
}

func NewSearchHandler(planner Planner, executor PlanExecutor, searcher web_search.Searcher, analyzer search.Analyzer) *SearchHandler {
	return &SearchHandler{
		Planner:  planner,
		Executor: executor,
		Searcher: searcher,
		Analyzer: analyzer,
		logger:   log.New(log.Writer(), "[SEARCH] ", log.LstdFlags),
	}
}

func (h *SearchHandler) Register(g *echo.Group) {
	g.POST("", h.search)
	g.POST("/continue", h.continueSearch)
}

// sseStream serializes server-sent event frames; engine progress callbacks
// can fire from concurrent step goroutines.
type sseStream struct {
	mu      sync.Mutex
	resp    *echo.Response
	flusher http.Flusher
}

func newSSEStream(c echo.Context) (*sseStream, error) {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}
	return &sseStream{resp: resp, flusher: flusher}, nil
}

func (s *sseStream) send(stage string, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame, err := json.Marshal(map[string]interface{}{"stage": stage, "data": data})
	if err != nil {
		return
	}
	if _, err := s.resp.Write([]byte("data: " + string(frame) + "\n\n")); err != nil {
		return
	}
	s.flusher.Flush()
}

func (s *sseStream) sendError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame, err := json.Marshal(map[string]interface{}{"stage": "error", "error": msg})
	if err != nil {
		return
	}
	if _, err := s.resp.Write([]byte("data: " + string(frame) + "\n\n")); err != nil {
		return
	}
	s.flusher.Flush()
}

// Search
//
//	@Summary		Streamed search
//	@Description	Classifies the query, generates a plan and streams progress as server-sent events
//	@Tags			search
//	@Accept			json
//	@Produce		text/event-stream
//	@Param			payload	body		SearchRequest	true	"Search payload"
//	@Success		200		{string}	string
//	@Failure		400		{object}	HTTPError
//	@Router			/api/search [post]
func (h *SearchHandler) search(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "search query is required")
	}

	stream, err := newSSEStream(c)
	if err != nil {
		return err
	}

	searchID := uuid.NewString()
	h.logger.Printf("[%s] search started: %q", searchID, query)

	if req.Test {
		h.runTestSearch(stream, query)
		return nil
	}

	ctx := c.Request().Context()

	stream.send("classifying", map[string]interface{}{"query": query})
	intent, err := h.Planner.ClassifyIntent(ctx, query)
	if err != nil {
		h.logger.Printf("[%s] classification failed: %v", searchID, err)
		stream.sendError("an error occurred while processing your search")
		return nil
	}
	stream.send("classifying", map[string]interface{}{"query": query, "intent": intent})

	stream.send("summarizing", map[string]interface{}{"query": query, "intent": intent})
	querySummary, err := h.Planner.SummarizeQuery(ctx, query, intent)
	if err != nil {
		h.logger.Printf("[%s] summarization failed: %v", searchID, err)
		stream.sendError("an error occurred while processing your search")
		return nil
	}
	stream.send("summarizing", map[string]interface{}{
		"query": query, "intent": intent, "querySummary": querySummary,
	})

	stream.send("planning", map[string]interface{}{
		"query": query, "intent": intent, "querySummary": querySummary,
	})
	plan, err := h.Planner.GeneratePlan(ctx, query, intent)
	if err != nil {
		h.logger.Printf("[%s] planning failed: %v", searchID, err)
		stream.sendError("an error occurred while processing your search")
		return nil
	}
	needsApproval := h.Planner.NeedsApproval(plan)
	stream.send("planning", map[string]interface{}{
		"query": query, "intent": intent, "querySummary": querySummary,
		"searchPlan": plan, "needsApproval": needsApproval,
	})

	// Large plans stop here; the client resumes through /continue.
	if needsApproval {
		return nil
	}

	stream.send("searching", map[string]interface{}{
		"query": query, "intent": intent, "querySummary": querySummary,
		"searchPlan": plan, "needsApproval": false,
	})
	resp, err := h.Searcher.Search(ctx, query)
	if err != nil {
		h.logger.Printf("[%s] search failed: %v", searchID, err)
		stream.sendError("an error occurred while processing your search")
		return nil
	}
	result := map[string]interface{}{
		"query": query, "intent": intent, "querySummary": querySummary,
		"searchPlan": plan, "needsApproval": false,
		"results": resp.Results, "answer": resp.Answer,
	}
	stream.send("searching", result)
	stream.send("answer_analyzed", map[string]interface{}{
		"query":          query,
		"answerEntities": h.Analyzer.Analyze(ctx, resp.Answer),
	})
	stream.send("complete", result)
	return nil
}

// ContinueSearch
//
//	@Summary		Resume a search after plan approval
//	@Tags			search
//	@Accept			json
//	@Produce		text/event-stream
//	@Param			payload	body		ContinueSearchRequest	true	"Continue payload"
//	@Success		200		{string}	string
//	@Failure		400		{object}	HTTPError
//	@Router			/api/search/continue [post]
func (h *SearchHandler) continueSearch(c echo.Context) error {
	var req ContinueSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "search query is required")
	}

	stream, err := newSSEStream(c)
	if err != nil {
		return err
	}

	if !req.Approved {
		// Rejected plans go back to planning with the user's edits applied.
		plan := req.Plan
		if len(req.Edits) > 0 {
			plan = make([]search.Step, 0, len(req.Edits))
			for _, desc := range req.Edits {
				desc = strings.TrimSpace(desc)
				if desc == "" {
					continue
				}
				plan = append(plan, search.Step{Description: desc, Mode: search.ModeParallel})
			}
		}
		stream.send("planning", map[string]interface{}{
			"query": query, "searchPlan": plan, "needsApproval": true,
		})
		return nil
	}

	if req.Test {
		h.runTestContinue(stream, query, req.Plan)
		return nil
	}

	ctx := c.Request().Context()

	searchID := uuid.NewString()
	h.logger.Printf("[%s] continuing approved plan: %q", searchID, query)

	stream.send("plan_approved", map[string]interface{}{
		"query": query, "searchPlan": req.Plan, "needsApproval": false,
	})

	intent := strings.TrimSpace(req.Intent)
	if intent == "" {
		intent, err = h.Planner.ClassifyIntent(ctx, query)
		if err != nil {
			h.logger.Printf("[%s] classification failed: %v", searchID, err)
			stream.sendError("an error occurred while processing your search")
			return nil
		}
	}

	outcome, err := h.Executor.Execute(ctx, query, req.Plan, intent, func(stage string, data map[string]interface{}) {
		stream.send(stage, data)
	})
	if err != nil {
		h.logger.Printf("[%s] plan execution failed: %v", searchID, err)
		stream.sendError("an error occurred while processing your search")
		return nil
	}

	stream.send("analysis_complete", map[string]interface{}{
		"query":           query,
		"intent":          intent,
		"searchPlan":      req.Plan,
		"results":         outcome.Results,
		"answer":          outcome.Answer,
		"stepResults":     outcome.StepResults,
		"answerEntities":  outcome.Entities,
		"websiteAnalyses": buildWebsiteAnalyses(outcome.StepResults),
	})
	return nil
}
