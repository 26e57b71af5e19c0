package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Wolverine971/bubble-search/config"
)

// Telemetry records counters and latencies for the search pipeline.
// A nil *Telemetry is valid and records nothing, so callers never need
// to guard their instrumentation sites.
type Telemetry struct {
	cfg    config.TelemetryConfig
	logger *log.Logger

	searchesTotal      *prometheus.CounterVec
	planStepsTotal     *prometheus.CounterVec
	synthesisTotal     prometheus.Counter
	fallbackTotal      *prometheus.CounterVec
	searchDuration     prometheus.Histogram
	llmRequestDuration *prometheus.HistogramVec
}

var registerOnce sync.Once

// New constructs a Telemetry instance and registers its collectors.
// Returns nil when telemetry is disabled.
func New(cfg config.TelemetryConfig) *Telemetry {
	if !cfg.Enabled {
		return nil
	}
	t := &Telemetry{
		cfg:    cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		searchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bubble_searches_total",
			Help: "Web searches executed, by outcome.",
		}, []string{"outcome"}),
		planStepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bubble_plan_steps_total",
			Help: "Plan steps executed, by step mode.",
		}, []string{"mode"}),
		synthesisTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bubble_synthesis_total",
			Help: "Synthesis passes performed.",
		}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bubble_entity_extraction_total",
			Help: "Entity extractions, by backend used.",
		}, []string{"backend"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bubble_search_request_duration_seconds",
			Help:    "Latency of web search provider requests.",
			Buckets: prometheus.DefBuckets,
		}),
		llmRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bubble_llm_request_duration_seconds",
			Help:    "Latency of LLM requests, by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	registerOnce.Do(func() {
		prometheus.MustRegister(
			t.searchesTotal,
			t.planStepsTotal,
			t.synthesisTotal,
			t.fallbackTotal,
			t.searchDuration,
			t.llmRequestDuration,
		)
	})
	return t
}

// RecordSearch notes one provider search and its outcome.
func (t *Telemetry) RecordSearch(err error, elapsed time.Duration) {
	if t == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	t.searchesTotal.WithLabelValues(outcome).Inc()
	t.searchDuration.Observe(elapsed.Seconds())
}

// RecordPlanStep notes one executed plan step.
func (t *Telemetry) RecordPlanStep(mode string) {
	if t == nil {
		return
	}
	t.planStepsTotal.WithLabelValues(mode).Inc()
}

// RecordSynthesis notes one synthesis pass.
func (t *Telemetry) RecordSynthesis() {
	if t == nil {
		return
	}
	t.synthesisTotal.Inc()
}

// RecordExtraction notes one entity extraction and which backend served it.
func (t *Telemetry) RecordExtraction(backend string) {
	if t == nil {
		return
	}
	t.fallbackTotal.WithLabelValues(backend).Inc()
}

// RecordLLMRequest notes one LLM call.
func (t *Telemetry) RecordLLMRequest(operation string, elapsed time.Duration) {
	if t == nil {
		return
	}
	t.llmRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
