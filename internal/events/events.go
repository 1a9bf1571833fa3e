// Package events carries per-analysis telemetry. The Collector buffers
// events and publishes them to Kafka in batches; the Aggregator folds events
// (from Kafka or recorded in-process) into running statistics.
package events

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/wordfreq"
)

type EventType string

const (
	EventAnalysis EventType = "analysis"
	EventWords    EventType = "words"
)

// AnalysisEvent describes one completed request.
type AnalysisEvent struct {
	Type          EventType            `json:"type"`
	RequestID     string               `json:"request_id,omitempty"`
	Tone          string               `json:"tone,omitempty"`
	Polarity      float64              `json:"polarity"`
	TokenCount    int                  `json:"token_count"`
	DistinctWords int                  `json:"distinct_words"`
	TopWords      wordfreq.Frequencies `json:"top_words"`
	Translated    bool                 `json:"translated"`
	CacheHit      bool                 `json:"cache_hit"`
	LatencyMs     int64                `json:"latency_ms"`
	Timestamp     time.Time            `json:"timestamp"`
}

// Tracker accepts events without blocking the caller.
type Tracker interface {
	Track(event AnalysisEvent)
}

// Multi fans an event out to every non-nil tracker.
type Multi []Tracker

func (m Multi) Track(event AnalysisEvent) {
	for _, t := range m {
		if t != nil {
			t.Track(event)
		}
	}
}
