package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Wolverine971/bubble-search/tools/web_search/models"
)

const defaultBaseURL = "https://api.tavily.com"

// Search queries the Tavily search API.
// https://docs.tavily.com/ docs
type Search struct {
	ApiKey     string
	BaseURL    string
	MaxResults int
	Client     *http.Client
}

type request struct {
	Query           string `json:"query"`
	SearchDepth     string `json:"search_depth"`
	ChunksPerSource int    `json:"chunks_per_source"`
	MaxResults      int    `json:"max_results"`
	IncludeAnswer   bool   `json:"include_answer"`
	IncludeRaw      bool   `json:"include_raw_content"`
	IncludeImages   bool   `json:"include_images"`
}

func (s Search) Search(ctx context.Context, q string) (models.Response, error) {
	base := s.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	maxResults := s.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}

	payload := request{
		Query:           q,
		SearchDepth:     "basic",
		ChunksPerSource: 3,
		MaxResults:      maxResults,
		IncludeAnswer:   true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return models.Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/search", bytes.NewReader(body))
	if err != nil {
		return models.Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return models.Response{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.Response{}, fmt.Errorf("tavily returned status %d", resp.StatusCode)
	}

	var out models.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Response{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return out, nil
}
