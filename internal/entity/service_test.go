package entity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Wolverine971/bubble-search/config"
)

func testConfig(url string) config.EntityConfig {
	return config.EntityConfig{
		SpacyURL:             url,
		ProbeTimeout:         2 * time.Second,
		AnalyzeTimeout:       5 * time.Second,
		FailureCacheInterval: 10 * time.Minute,
		MinTextLength:        20,
	}
}

func TestSetMergeDeduplicates(t *testing.T) {
	set := NewSet()
	set.Add(Entity{Text: "Apple Inc.", Label: "ORG", Sentences: []string{"Apple Inc. was founded."}})
	set.Add(Entity{Text: "apple inc.", Label: "ORG", Sentences: []string{"Apple Inc. was founded.", "Later, apple inc. grew."}})
	set.Add(Entity{Text: "Apple Inc.", Label: "PERSON", Sentences: []string{"Not really a person."}})

	entities := set.Entities()
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities after merge, got %d", len(entities))
	}
	first := entities[0]
	if first.Text != "Apple Inc." || first.Label != "ORG" {
		t.Fatalf("unexpected first entity: %+v", first)
	}
	if len(first.Sentences) != 2 {
		t.Fatalf("expected sentence union of 2, got %v", first.Sentences)
	}
	if first.Sentences[0] != "Apple Inc. was founded." {
		t.Fatalf("sentence order not preserved: %v", first.Sentences)
	}
}

func TestSetMergeIdempotent(t *testing.T) {
	e := Entity{Text: "Cupertino", Label: "LOC", Sentences: []string{"Based in Cupertino."}}
	set := NewSet()
	set.Add(e)
	before := set.Entities()
	set.Add(e)
	after := set.Entities()
	if len(after) != len(before) || len(after[0].Sentences) != len(before[0].Sentences) {
		t.Fatalf("merging an entity twice changed the set: %+v vs %+v", before, after)
	}
}

func TestExtractSentences(t *testing.T) {
	got := ExtractSentences("First sentence. Second one! Third? trailing bit")
	want := []string{"First sentence.", "Second one!", "Third?", "trailing bit"}
	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sentence %d: want %q, got %q", i, want[i], got[i])
		}
	}
}

func TestExtractFallbackRecognizesCommonShapes(t *testing.T) {
	text := "Apple Inc. was founded by Steve Jobs in Cupertino. The company raised $5 million in 1976. Contact press@apple.com for details."
	entities := ExtractFallback(text)
	if len(entities) == 0 {
		t.Fatal("expected entities from fallback extraction")
	}
	labels := map[string]bool{}
	texts := map[string]bool{}
	for _, e := range entities {
		labels[e.Label] = true
		texts[e.Text] = true
		if len(e.Sentences) == 0 {
			t.Fatalf("entity %q has no sentences", e.Text)
		}
	}
	for _, want := range []string{"ORG", "PERSON", "MONEY", "DATE", "EMAIL"} {
		if !labels[want] {
			t.Fatalf("expected a %s entity, got %v", want, entities)
		}
	}
	if !texts["Steve Jobs"] {
		t.Fatalf("expected Steve Jobs to be recognized, got %v", texts)
	}
	if !texts["$5 million"] {
		t.Fatalf("expected $5 million to be recognized, got %v", texts)
	}
}

func TestExtractFallbackDeterministic(t *testing.T) {
	text := "Microsoft Corp. announced a partnership with Harvard University on March 3, 2024."
	a := ExtractFallback(text)
	b := ExtractFallback(text)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic extraction: %d vs %d entities", len(a), len(b))
	}
	for i := range a {
		if a[i].Text != b[i].Text || a[i].Label != b[i].Label {
			t.Fatalf("non-deterministic ordering at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestAnalyzeSkipsShortText(t *testing.T) {
	svc := NewService(testConfig("http://127.0.0.1:1"), nil)
	if got := svc.Analyze(context.Background(), "too short"); len(got) != 0 {
		t.Fatalf("expected no entities for short text, got %v", got)
	}
}

func TestAnalyzeUsesServerWhenAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		_ = json.NewEncoder(w).Encode(Analysis{
			Entities: []SpacyEntity{
				{Text: "Tim Cook", Label: "PERSON", Start: 0, End: 8},
				{Text: "Tim Cook", Label: "PERSON", Start: 40, End: 48},
			},
			Sentences: []string{"Tim Cook runs the company.", "Analysts praised Tim Cook this quarter."},
		})
	}))
	defer srv.Close()

	svc := NewService(testConfig(srv.URL), nil)
	entities := svc.Analyze(context.Background(), "Tim Cook runs the company. Analysts praised Tim Cook this quarter.")
	if len(entities) != 1 {
		t.Fatalf("expected deduplicated server entities, got %v", entities)
	}
	if len(entities[0].Sentences) != 2 {
		t.Fatalf("expected both sentences mapped, got %v", entities[0].Sentences)
	}
}

func TestAnalyzeFallsBackWhenServerDown(t *testing.T) {
	var probes int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&probes, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewService(testConfig(srv.URL), nil)
	now := time.Now()
	svc.now = func() time.Time { return now }

	text := "Apple Inc. was founded by Steve Jobs in Cupertino."
	entities := svc.Analyze(context.Background(), text)
	if len(entities) == 0 {
		t.Fatal("expected fallback entities when server is down")
	}
	if got := atomic.LoadInt32(&probes); got != 1 {
		t.Fatalf("expected a single probe, got %d", got)
	}

	// Within the failure cache window the server must not be probed again.
	_ = svc.Analyze(context.Background(), text)
	if got := atomic.LoadInt32(&probes); got != 1 {
		t.Fatalf("expected cached failure to skip probe, got %d probes", got)
	}

	// Once the interval has elapsed the probe is retried.
	now = now.Add(11 * time.Minute)
	_ = svc.Analyze(context.Background(), text)
	if got := atomic.LoadInt32(&probes); got != 2 {
		t.Fatalf("expected probe retry after interval, got %d probes", got)
	}
}

func TestAnalyzeFallsBackOnMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	svc := NewService(testConfig(srv.URL), nil)
	entities := svc.Analyze(context.Background(), "Apple Inc. was founded by Steve Jobs in Cupertino.")
	if len(entities) == 0 {
		t.Fatal("expected fallback entities on malformed server response")
	}
}

func TestFakeEntities(t *testing.T) {
	entities := FakeEntities("Some context sentence. Another one.")
	if len(entities) != 5 {
		t.Fatalf("expected 5 fake entities, got %d", len(entities))
	}
	for _, e := range entities {
		if len(e.Sentences) != 1 || e.Sentences[0] != "Some context sentence." {
			t.Fatalf("fake entity not anchored to first sentence: %+v", e)
		}
	}
}
