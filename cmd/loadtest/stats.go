package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Stats accumulates results from all workers.
type Stats struct {
	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64

	mu        sync.Mutex
	latencies map[string][]time.Duration
	statuses  map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies: make(map[string][]time.Duration),
		statuses:  make(map[int]int64),
	}
}

// Record stores one request outcome. status is 0 when the request never got
// a response.
func (s *Stats) Record(endpoint string, d time.Duration, status int, cacheHit bool) {
	s.total.Add(1)
	if status >= 200 && status < 300 {
		s.succeeded.Add(1)
	} else {
		s.failed.Add(1)
	}
	if cacheHit {
		s.cacheHits.Add(1)
	}
	if status == 0 {
		return
	}

	s.mu.Lock()
	s.latencies[endpoint] = append(s.latencies[endpoint], d)
	s.statuses[status]++
	s.mu.Unlock()
}

// Summary is the latency profile of one endpoint.
type Summary struct {
	Count  int
	Min    time.Duration
	Avg    time.Duration
	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Max    time.Duration
	StdDev time.Duration
}

func summarize(latencies []time.Duration) Summary {
	if len(latencies) == 0 {
		return Summary{}
	}
	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	avg := sum / time.Duration(len(sorted))

	var sq float64
	for _, l := range sorted {
		diff := float64(l - avg)
		sq += diff * diff
	}
	return Summary{
		Count:  len(sorted),
		Min:    sorted[0],
		Avg:    avg,
		P50:    percentile(sorted, 50),
		P95:    percentile(sorted, 95),
		P99:    percentile(sorted, 99),
		Max:    sorted[len(sorted)-1],
		StdDev: time.Duration(math.Sqrt(sq / float64(len(sorted)))),
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

// Report writes the results table to w.
func (s *Stats) Report(w io.Writer, elapsed time.Duration) {
	total := s.total.Load()
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Requests:      %d\n", total)
	fmt.Fprintf(w, "Succeeded:     %d\n", s.succeeded.Load())
	fmt.Fprintf(w, "Failed:        %d\n", s.failed.Load())
	if total > 0 {
		fmt.Fprintf(w, "Error rate:    %.2f%%\n", float64(s.failed.Load())/float64(total)*100)
		fmt.Fprintf(w, "Cache hits:    %.2f%%\n", float64(s.cacheHits.Load())/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:  %.2f\n", float64(total)/elapsed.Seconds())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	endpoints := make([]string, 0, len(s.latencies))
	for e := range s.latencies {
		endpoints = append(endpoints, e)
	}
	sort.Strings(endpoints)
	for _, e := range endpoints {
		sum := summarize(s.latencies[e])
		fmt.Fprintf(w, "\n=== %s (%d) ===\n", e, sum.Count)
		fmt.Fprintf(w, "min %s  avg %s  p50 %s  p95 %s  p99 %s  max %s  stddev %s\n",
			sum.Min, sum.Avg, sum.P50, sum.P95, sum.P99, sum.Max, sum.StdDev)
	}

	codes := make([]int, 0, len(s.statuses))
	for code := range s.statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	fmt.Fprintln(w, "\n=== Status codes ===")
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, s.statuses[code])
	}
}
