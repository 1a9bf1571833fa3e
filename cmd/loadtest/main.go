// Command loadtest drives the analyzer's HTTP API with a fixed pool of
// workers and prints latency percentiles per endpoint.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

var samples = []string{
	"Hoy fue un día maravilloso, el sol brillaba y todos sonreían.",
	"El servicio fue terrible y la comida llegó fría.",
	"La reunión empieza a las diez en la sala principal.",
	"Estoy muy contento con los resultados del proyecto.",
	"No me gusta nada esta situación, es muy frustrante.",
	"El tren sale de la estación norte cada media hora.",
	"¡Qué alegría verte de nuevo después de tanto tiempo!",
	"El informe trimestral muestra cifras estables.",
	"Me siento cansado y un poco triste esta semana.",
	"La biblioteca abre los sábados por la mañana.",
}

type options struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	wordsRatio  float64
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8080", "base URL of the analyzer")
	flag.IntVar(&opts.concurrency, "concurrency", 10, "number of concurrent workers")
	flag.DurationVar(&opts.duration, "duration", 30*time.Second, "test duration")
	flag.Float64Var(&opts.wordsRatio, "words-ratio", 0.2, "share of requests sent to /api/v1/words")
	flag.Parse()

	fmt.Println("=== Text Analyzer Load Test ===")
	fmt.Printf("Target:      %s\n", opts.baseURL)
	fmt.Printf("Concurrency: %d\n", opts.concurrency)
	fmt.Printf("Duration:    %s\n\n", opts.duration)

	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()

	start := time.Now()
	stats := NewStats()
	if err := run(ctx, opts, stats); err != nil {
		fmt.Fprintf(os.Stderr, "load test aborted: %v\n", err)
		os.Exit(1)
	}
	stats.Report(os.Stdout, time.Since(start))

	if stats.total.Load() == 0 {
		fmt.Println("\nWARNING: no requests completed. Is the analyzer running?")
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stats *Stats) error {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        opts.concurrency * 2,
			MaxIdleConnsPerHost: opts.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.concurrency; w++ {
		g.Go(func() error {
			next := w
			for ctx.Err() == nil {
				text := samples[next%len(samples)]
				next++
				endpoint := "/api/v1/analyze"
				if rand.Float64() < opts.wordsRatio {
					endpoint = "/api/v1/words"
				}
				fire(ctx, client, opts.baseURL, endpoint, text, stats)
			}
			return nil
		})
	}
	return g.Wait()
}

// fire sends one request and records its outcome. Requests cut short by the
// end of the run are not counted.
func fire(ctx context.Context, client *http.Client, baseURL, endpoint, text string, stats *Stats) {
	body, _ := json.Marshal(map[string]string{"text": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		stats.Record(endpoint, 0, 0, false)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			stats.Record(endpoint, elapsed, 0, false)
		}
		return
	}
	defer resp.Body.Close()

	var out struct {
		CacheHit bool `json:"cache_hit"`
	}
	data, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(data, &out)
	stats.Record(endpoint, elapsed, resp.StatusCode, out.CacheHit)
}
