package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/wordfreq"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (f *fakePublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := make([]kafka.Event, len(events))
	copy(cp, events)
	f.batches = append(f.batches, cp)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func analysisEvent(tone string, polarity float64, latency int64, words ...wordfreq.WordCount) AnalysisEvent {
	return AnalysisEvent{
		Type:      EventAnalysis,
		Tone:      tone,
		Polarity:  polarity,
		TopWords:  words,
		LatencyMs: latency,
		Timestamp: time.Now(),
	}
}

func TestCollectorPublishesOnClose(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 10, 100, time.Hour, nil)
	c.Start(context.Background())

	for i := 0; i < 5; i++ {
		c.Track(analysisEvent("neutral", 0, 1))
	}
	c.Close()

	assert.Equal(t, 5, pub.count())
}

func TestCollectorFlushesFullBatches(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, 2, time.Hour, nil)
	c.Start(context.Background())

	for i := 0; i < 4; i++ {
		c.Track(analysisEvent("positive", 0.5, 1))
	}
	assert.Eventually(t, func() bool { return pub.count() == 4 }, time.Second, 5*time.Millisecond)
	c.Close()
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &fakePublisher{}
	drops := 0
	c := NewCollector(pub, 1, 100, time.Hour, func() { drops++ })

	c.Track(analysisEvent("neutral", 0, 1))
	c.Track(analysisEvent("neutral", 0, 1))

	assert.Equal(t, int64(1), c.Dropped())
	assert.Equal(t, 1, drops)

	c.Start(context.Background())
	c.Close()
	assert.Equal(t, 1, pub.count())
}

func TestCollectorPublishErrorIsLogged(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := NewCollector(pub, 10, 1, time.Hour, nil)
	c.Start(context.Background())
	c.Track(analysisEvent("neutral", 0, 1))
	c.Close()
	assert.Equal(t, 0, pub.count())
}

func TestCollectorStopsOnContextCancel(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 10, 100, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	c.Track(analysisEvent("neutral", 0, 1))
	c.Start(ctx)
	cancel()
	<-c.done
	assert.Equal(t, 1, pub.count())
}

func TestAggregatorStats(t *testing.T) {
	a := NewAggregator(2)
	a.Track(analysisEvent("positive", 0.6, 10,
		wordfreq.WordCount{Word: "gato", Count: 2},
		wordfreq.WordCount{Word: "perro", Count: 1},
	))
	a.Track(analysisEvent("negative", -0.4, 30,
		wordfreq.WordCount{Word: "perro", Count: 3},
		wordfreq.WordCount{Word: "casa", Count: 1},
	))
	hit := analysisEvent("positive", 0.4, 20)
	hit.CacheHit = true
	hit.Translated = true
	a.Track(hit)
	a.Track(AnalysisEvent{Type: EventWords, LatencyMs: 5})

	stats := a.Stats()
	assert.Equal(t, int64(3), stats.TotalAnalyses)
	assert.Equal(t, int64(1), stats.TotalWordRequests)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(2), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.Translated)
	assert.Equal(t, map[string]int64{"positive": 2, "negative": 1}, stats.ToneCounts)
	assert.InDelta(t, 0.2, stats.AvgPolarity, 1e-9)
	assert.InDelta(t, 16.25, stats.AvgLatencyMs, 1e-9)
	assert.Equal(t, int64(30), stats.P99LatencyMs)
	assert.Equal(t, wordfreq.Frequencies{{Word: "perro", Count: 4}, {Word: "gato", Count: 2}}, stats.TopWords)
}

func TestAggregatorLatencyWindowIsBounded(t *testing.T) {
	a := NewAggregator(10)
	for i := 0; i < maxLatencySamples+10; i++ {
		a.Track(analysisEvent("neutral", 0, int64(i)))
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	assert.Len(t, a.latencies, maxLatencySamples)
}

func TestAggregatorTopWordsTieBreakFirstSeen(t *testing.T) {
	a := NewAggregator(3)
	a.Track(analysisEvent("neutral", 0, 1,
		wordfreq.WordCount{Word: "sol", Count: 1},
		wordfreq.WordCount{Word: "luna", Count: 1},
	))
	a.Track(analysisEvent("neutral", 0, 1,
		wordfreq.WordCount{Word: "mar", Count: 2},
		wordfreq.WordCount{Word: "luna", Count: 1},
	))

	assert.Equal(t, wordfreq.Frequencies{
		{Word: "luna", Count: 2},
		{Word: "mar", Count: 2},
		{Word: "sol", Count: 1},
	}, a.Stats().TopWords)
}

func TestAggregatorWordSetIsBounded(t *testing.T) {
	a := NewAggregator(1)
	a.Track(analysisEvent("neutral", 0, 1, wordfreq.WordCount{Word: "frecuente", Count: 1000}))

	start := time.Now()
	for i := 0; i < 3*maxTrackedWords/10; i++ {
		words := make([]wordfreq.WordCount, 10)
		for j := range words {
			words[j] = wordfreq.WordCount{Word: fmt.Sprintf("w%d_%d", i, j), Count: 1}
		}
		a.Track(analysisEvent("neutral", 0, 1, words...))
	}
	assert.Less(t, time.Since(start), 10*time.Second)

	a.mu.RLock()
	tracked := len(a.words)
	a.mu.RUnlock()
	assert.LessOrEqual(t, tracked, maxTrackedWords)
	assert.Equal(t, wordfreq.Frequencies{{Word: "frecuente", Count: 1000}}, a.Stats().TopWords)
}

func TestAggregatorHandleMessage(t *testing.T) {
	a := NewAggregator(10)
	handle := a.HandleMessage()

	payload, err := json.Marshal(analysisEvent("neutral", 0.1, 3, wordfreq.WordCount{Word: "hola", Count: 1}))
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), []byte("req-1"), payload))
	err = handle(context.Background(), []byte("bad"), []byte("{not json"))
	assert.True(t, resilience.IsPermanent(err), "undecodable events are skipped, not retried")

	stats := a.Stats()
	assert.Equal(t, int64(1), stats.TotalAnalyses)
	assert.Equal(t, "hola", stats.TopWords[0].Word)
}

func TestMultiSkipsNil(t *testing.T) {
	a := NewAggregator(10)
	Multi{nil, a}.Track(analysisEvent("neutral", 0, 1))
	assert.Equal(t, int64(1), a.Stats().TotalAnalyses)
}

func TestHandlerStats(t *testing.T) {
	a := NewAggregator(10)
	a.Track(analysisEvent("positive", 0.9, 4))

	rec := httptest.NewRecorder()
	NewHandler(a).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var stats Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.TotalAnalyses)
	assert.Equal(t, int64(1), stats.ToneCounts["positive"])
}
