package entity

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Wolverine971/bubble-search/config"
	"github.com/Wolverine971/bubble-search/internal/telemetry"
)

// Service extracts entities from text. It prefers the spaCy HTTP backend
// and degrades to regex extraction when the server is down, unreachable or
// returns garbage. Analyze never returns an error: extraction failures are
// absorbed by the fallback chain.
type Service struct {
	client        *SpacyClient
	minTextLength int
	checkInterval time.Duration
	logger        *log.Logger
	telemetry     *telemetry.Telemetry
	now           func() time.Time

	mu          sync.Mutex
	checkFailed bool
	lastChecked time.Time
}

// NewService builds a Service from configuration.
func NewService(cfg config.EntityConfig, tele *telemetry.Telemetry) *Service {
	return &Service{
		client: &SpacyClient{
			BaseURL:       cfg.SpacyURL,
			ProbeClient:   &http.Client{Timeout: cfg.ProbeTimeout},
			AnalyzeClient: &http.Client{Timeout: cfg.AnalyzeTimeout},
		},
		minTextLength: cfg.MinTextLength,
		checkInterval: cfg.FailureCacheInterval,
		logger:        log.New(log.Writer(), "[ENTITY] ", log.LstdFlags),
		telemetry:     tele,
		now:           time.Now,
	}
}

// Analyze extracts entities from text. Text shorter than the configured
// minimum yields no entities.
func (s *Service) Analyze(ctx context.Context, text string) []Entity {
	if len(text) < s.minTextLength {
		return []Entity{}
	}

	if s.serverAvailable(ctx) {
		entities, err := s.analyzeWithServer(ctx, text)
		if err == nil {
			s.telemetry.RecordExtraction("spacy")
			return entities
		}
		s.logger.Printf("ner server analyze failed, falling back: %v", err)
	}

	s.telemetry.RecordExtraction("fallback")
	return ExtractFallback(text)
}

// serverAvailable probes the NER server, caching a failed probe for the
// configured interval so a dead server is not hammered on every call.
func (s *Service) serverAvailable(ctx context.Context) bool {
	s.mu.Lock()
	if s.checkFailed && s.now().Sub(s.lastChecked) < s.checkInterval {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	err := s.client.Probe(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastChecked = s.now()
	if err != nil {
		s.logger.Printf("ner server check failed: %v", err)
		s.checkFailed = true
		return false
	}
	s.checkFailed = false
	return true
}

// analyzeWithServer maps the raw server analysis onto deduplicated
// entities, attaching every sentence that mentions each entity.
func (s *Service) analyzeWithServer(ctx context.Context, text string) ([]Entity, error) {
	analysis, err := s.client.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}
	set := NewSet()
	for _, raw := range analysis.Entities {
		set.Add(Entity{
			Text:      raw.Text,
			Label:     raw.Label,
			Sentences: sentencesContaining(analysis.Sentences, raw.Text),
		})
	}
	entities := set.Entities()
	s.logger.Printf("extracted %d entities using ner server", len(entities))
	return entities, nil
}

// FakeEntities produces canned entities anchored to the first sentence of
// text. Used by the HTTP layer's test mode.
func FakeEntities(text string) []Entity {
	sentences := ExtractSentences(text)
	if len(sentences) == 0 {
		sentences = []string{"No context available."}
	}
	first := sentences[:1]
	return []Entity{
		{Text: "John Smith", Label: "PERSON", Sentences: first},
		{Text: "Apple Inc.", Label: "ORG", Sentences: first},
		{Text: "New York", Label: "LOC", Sentences: first},
		{Text: "January 15, 2023", Label: "DATE", Sentences: first},
		{Text: "$5 million", Label: "MONEY", Sentences: first},
	}
}
