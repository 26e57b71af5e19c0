package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Wolverine971/bubble-search/tools/web_search/models"
)

const defaultBaseURL = "https://api.search.brave.com"

// Search queries the Brave web search API.
// https://api.search.brave.com/app/documentation/web-search
type Search struct {
	ApiKey     string
	BaseURL    string
	MaxResults int
	Client     *http.Client
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

	endpoint := fmt.Sprintf("%s/res/v1/web/search?q=%s&count=%d", base, url.QueryEscape(q), maxResults)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.ApiKey)

	resp, err := client.Do(req)
	if err != nil {
		return models.Response{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.Response{}, fmt.Errorf("brave returned status %d", resp.StatusCode)
	}

	var raw struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return models.Response{}, fmt.Errorf("failed to parse response: %w", err)
	}

	var out models.Response
	for i, r := range raw.Web.Results {
		if i >= maxResults {
			break
		}
		out.Results = append(out.Results, models.Result{Title: r.Title, URL: r.URL, Content: r.Description})
	}
	return out, nil
}
