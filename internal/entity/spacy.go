package entity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// SpacyClient talks to the Python NER server over HTTP. The server answers
// GET / with 200 when healthy and POST / with an analysis of the posted text.
type SpacyClient struct {
	BaseURL       string
	ProbeClient   *http.Client
	AnalyzeClient *http.Client
}

// Analysis is the NER server's response shape.
type Analysis struct {
	Entities  []SpacyEntity `json:"entities"`
	Sentences []string      `json:"sentences"`
}

// SpacyEntity is a raw entity span as reported by the NER server.
type SpacyEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Probe checks whether the NER server is reachable and healthy.
func (c *SpacyClient) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.ProbeClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ner server returned status %d", resp.StatusCode)
	}
	return nil
}

// Analyze posts text to the NER server and decodes its analysis.
func (c *SpacyClient) Analyze(ctx context.Context, text string) (Analysis, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.AnalyzeClient.Do(req)
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Analysis{}, fmt.Errorf("ner server returned status %d", resp.StatusCode)
	}

	var analysis Analysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return Analysis{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return analysis, nil
}
