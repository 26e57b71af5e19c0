package server

import (
	"strings"

	"github.com/Wolverine971/bubble-search/internal/entity"
	"github.com/Wolverine971/bubble-search/internal/search"
	"github.com/Wolverine971/bubble-search/tools/web_search/models"
)

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// APIKeyUpsertRequest stores a per-user credential for an external service.
type APIKeyUpsertRequest struct {
	ServiceName string `json:"service_name"`
	APIKey      string `json:"api_key"`
}

// SearchRequest starts a streamed search. Test mode streams canned stages
// without touching the LLM or the search provider.
type SearchRequest struct {
	Query string `json:"query"`
	Test  bool   `json:"test"`
}

// ContinueSearchRequest resumes a search whose plan required approval. The
// plan is the one streamed at the planning stage; edits carry replacement
// step descriptions when the user rejects the plan.
type ContinueSearchRequest struct {
	Query    string        `json:"query"`
	Plan     []search.Step `json:"plan"`
	Approved bool          `json:"approved"`
	Intent   string        `json:"intent"`
	Edits    []string      `json:"edits"`
	Test     bool          `json:"test"`
}

// WebsiteAnalysis ties one search hit to the entities found in its content.
type WebsiteAnalysis struct {
	URL         string          `json:"url"`
	Title       string          `json:"title"`
	SearchQuery string          `json:"searchQuery"`
	Content     string          `json:"content"`
	Entities    []entity.Entity `json:"entities"`
	IsExpanded  bool            `json:"isExpanded"`
	StepIndex   int             `json:"stepIndex"`
}

func buildWebsiteAnalyses(stepResults []search.StepResult) []WebsiteAnalysis {
	analyses := []WebsiteAnalysis{}
	for _, step := range stepResults {
		for _, hit := range step.Results {
			analyses = append(analyses, WebsiteAnalysis{
				URL:         hit.URL,
				Title:       hit.Title,
				SearchQuery: step.Query,
				Content:     hit.Content,
				Entities:    entitiesInContent(step.Entities, hit.Content),
				IsExpanded:  false,
				StepIndex:   step.StepIndex,
			})
		}
	}
	return analyses
}

func entitiesInContent(entities []entity.Entity, content string) []entity.Entity {
	out := []entity.Entity{}
	lower := strings.ToLower(content)
	for _, ent := range entities {
		if strings.Contains(lower, strings.ToLower(ent.Text)) {
			out = append(out, ent)
		}
	}
	return out
}

func combineResults(stepResults []search.StepResult, max int) []models.Result {
	var combined []models.Result
	for _, step := range stepResults {
		combined = append(combined, step.Results...)
	}
	if len(combined) > max {
		combined = combined[:max]
	}
	return combined
}
