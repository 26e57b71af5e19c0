package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Wolverine971/bubble-search/tools/web_search/models"
)

const defaultBaseURL = "https://google.serper.dev"

// Search queries the Serper search API.
// https://serper.dev/ docs
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

	body, err := json.Marshal(map[string]interface{}{"q": q, "num": maxResults})
	if err != nil {
		return models.Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/search", bytes.NewReader(body))
	if err != nil {
		return models.Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return models.Response{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.Response{}, fmt.Errorf("serper returned status %d", resp.StatusCode)
	}

	var raw struct {
		AnswerBox struct {
			Answer  string `json:"answer"`
			Snippet string `json:"snippet"`
		} `json:"answerBox"`
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return models.Response{}, fmt.Errorf("failed to parse response: %w", err)
	}

	out := models.Response{Answer: raw.AnswerBox.Answer}
	if out.Answer == "" {
		out.Answer = raw.AnswerBox.Snippet
	}
	for i, r := range raw.Organic {
		if i >= maxResults {
			break
		}
		out.Results = append(out.Results, models.Result{Title: r.Title, URL: r.Link, Content: r.Snippet})
	}
	return out, nil
}
