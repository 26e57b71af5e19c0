package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchSendsExpectedRequest(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"results":[{"title":"A","url":"https://a.example","content":"alpha","score":0.9}],"answer":"short answer"}`))
	}))
	defer srv.Close()

	s := Search{ApiKey: "test-key", BaseURL: srv.URL, MaxResults: 5}
	resp, err := s.Search(context.Background(), "what is alpha")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if got["query"] != "what is alpha" {
		t.Fatalf("query not forwarded: %v", got)
	}
	if got["search_depth"] != "basic" || got["include_answer"] != true {
		t.Fatalf("unexpected search options: %v", got)
	}
	if got["max_results"] != float64(5) || got["chunks_per_source"] != float64(3) {
		t.Fatalf("unexpected result limits: %v", got)
	}
	if resp.Answer != "short answer" || len(resp.Results) != 1 || resp.Results[0].Title != "A" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSearchRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := Search{ApiKey: "bad", BaseURL: srv.URL}
	if _, err := s.Search(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
