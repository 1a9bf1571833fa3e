// Package metrics defines the Prometheus metric collectors used by the
// analyzer and serves them for scraping on a dedicated port.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal       *prometheus.CounterVec
	HTTPRequestDuration     *prometheus.HistogramVec
	HTTPRequestsInFlight    prometheus.Gauge
	AnalysesTotal           *prometheus.CounterVec
	AnalysisLatency         *prometheus.HistogramVec
	AnalysisTokens          prometheus.Histogram
	TranslationsTotal       *prometheus.CounterVec
	CacheHitsTotal          prometheus.Counter
	CacheMissesTotal        prometheus.Counter
	EventsDroppedTotal      prometheus.Counter
	HistoryWritesTotal      *prometheus.CounterVec
	TranslationBreakerState prometheus.Gauge
}

// New creates all metrics and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "text_analyses_total",
				Help: "Total completed analyses by tone.",
			},
			[]string{"tone"},
		),
		AnalysisLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "text_analysis_latency_seconds",
				Help:    "Analysis latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"cache_status"},
		),
		AnalysisTokens: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "text_analysis_tokens",
				Help:    "Significant tokens counted per analysis.",
				Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
			},
		),
		TranslationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "text_translations_total",
				Help: "Translation outcomes (translated, skipped, fallback).",
			},
			[]string{"outcome"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analysis_cache_hits_total",
				Help: "Total number of analysis cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analysis_cache_misses_total",
				Help: "Total number of analysis cache misses.",
			},
		),
		EventsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analysis_events_dropped_total",
				Help: "Analysis events dropped because the collector buffer was full.",
			},
		),
		HistoryWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analysis_history_writes_total",
				Help: "History writes by status.",
			},
			[]string{"status"},
		),
		TranslationBreakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "translation_circuit_breaker_state",
				Help: "Translation circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AnalysesTotal,
		m.AnalysisLatency,
		m.AnalysisTokens,
		m.TranslationsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.EventsDroppedTotal,
		m.HistoryWritesTotal,
		m.TranslationBreakerState,
	)

	return m
}
