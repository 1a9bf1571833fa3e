package events

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/wordfreq"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/kafka"
)

const (
	maxLatencySamples = 10000
	// maxTrackedWords bounds the distinct words kept for the top-words
	// ranking. When full, the lower-ranked half is dropped.
	maxTrackedWords = 20000
)

type wordTally struct {
	count int64
	first uint64
}

// Stats is a point-in-time view of the aggregated events.
type Stats struct {
	TotalAnalyses     int64                `json:"total_analyses"`
	TotalWordRequests int64                `json:"total_word_requests"`
	CacheHits         int64                `json:"cache_hits"`
	CacheMisses       int64                `json:"cache_misses"`
	Translated        int64                `json:"translated"`
	ToneCounts        map[string]int64     `json:"tone_counts"`
	AvgPolarity       float64              `json:"avg_polarity"`
	AvgLatencyMs      float64              `json:"avg_latency_ms"`
	P50LatencyMs      int64                `json:"p50_latency_ms"`
	P95LatencyMs      int64                `json:"p95_latency_ms"`
	P99LatencyMs      int64                `json:"p99_latency_ms"`
	TopWords          wordfreq.Frequencies `json:"top_words"`
	AnalysesPerMinute float64              `json:"analyses_per_minute"`
}

// Aggregator keeps running statistics over analysis events. It is safe for
// concurrent use.
type Aggregator struct {
	totalAnalyses atomic.Int64
	totalWords    atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
	translated    atomic.Int64

	mu          sync.RWMutex
	toneCounts  map[string]int64
	polaritySum float64
	latencies   []int64
	next        int
	words       map[string]*wordTally
	wordSeq     uint64
	topN        int
	startTime   time.Time
}

// NewAggregator creates an Aggregator that reports the topN most frequent
// words across all events.
func NewAggregator(topN int) *Aggregator {
	if topN <= 0 {
		topN = 10
	}
	return &Aggregator{
		toneCounts: make(map[string]int64),
		latencies:  make([]int64, 0, 1024),
		words:      make(map[string]*wordTally),
		topN:       topN,
		startTime:  time.Now(),
	}
}

// Track records an event in-process.
func (a *Aggregator) Track(event AnalysisEvent) {
	a.record(event)
}

// HandleMessage returns a kafka.MessageHandler feeding the aggregator.
// Undecodable messages return a Permanent error so the consumer skips them.
func (a *Aggregator) HandleMessage() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[AnalysisEvent](value)
		if err != nil {
			return err
		}
		a.record(event)
		return nil
	}
}

func (a *Aggregator) record(event AnalysisEvent) {
	if event.Type == EventWords {
		a.totalWords.Add(1)
	} else {
		a.totalAnalyses.Add(1)
		if event.CacheHit {
			a.cacheHits.Add(1)
		} else {
			a.cacheMisses.Add(1)
		}
		if event.Translated {
			a.translated.Add(1)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if event.Type != EventWords {
		a.toneCounts[event.Tone]++
		a.polaritySum += event.Polarity
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
	for _, wc := range event.TopWords {
		a.addWord(wc.Word, int64(wc.Count))
	}
}

func (a *Aggregator) addWord(word string, n int64) {
	if t, ok := a.words[word]; ok {
		t.count += n
		return
	}
	if len(a.words) >= maxTrackedWords {
		a.pruneWords(maxTrackedWords / 2)
	}
	a.wordSeq++
	a.words[word] = &wordTally{count: n, first: a.wordSeq}
}

// pruneWords keeps the keep highest-ranked words.
func (a *Aggregator) pruneWords(keep int) {
	ranked := a.rankWords()
	for _, wc := range ranked[keep:] {
		delete(a.words, wc.word)
	}
}

type rankedWord struct {
	word string
	wordTally
}

// rankWords orders tracked words by count, then by first appearance.
func (a *Aggregator) rankWords() []rankedWord {
	ranked := make([]rankedWord, 0, len(a.words))
	for w, t := range a.words {
		ranked = append(ranked, rankedWord{word: w, wordTally: *t})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})
	return ranked
}

func (a *Aggregator) topWords() wordfreq.Frequencies {
	ranked := a.rankWords()
	top := make(wordfreq.Frequencies, 0, min(a.topN, len(ranked)))
	for _, r := range ranked[:min(a.topN, len(ranked))] {
		top = append(top, wordfreq.WordCount{Word: r.word, Count: int(r.count)})
	}
	return top
}

// Stats returns a snapshot of the current aggregate.
func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{
		TotalAnalyses:     a.totalAnalyses.Load(),
		TotalWordRequests: a.totalWords.Load(),
		CacheHits:         a.cacheHits.Load(),
		CacheMisses:       a.cacheMisses.Load(),
		Translated:        a.translated.Load(),
		ToneCounts:        make(map[string]int64, len(a.toneCounts)),
		TopWords:          a.topWords(),
	}
	for t, n := range a.toneCounts {
		stats.ToneCounts[t] = n
	}
	if stats.TotalAnalyses > 0 {
		stats.AvgPolarity = a.polaritySum / float64(stats.TotalAnalyses)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.AnalysesPerMinute = float64(stats.TotalAnalyses) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
