// Command analyzer serves the text analysis HTTP API.
//
// It wires the analysis pipeline (translation, sentiment scoring, word
// frequencies, tone messages) to its optional collaborators: a Redis report
// cache, Kafka analysis events, a PostgreSQL or SQLite history store and
// Prometheus metrics. Graceful shutdown is triggered by SIGINT/SIGTERM.
//
// Usage:
//
//	go run ./cmd/analyzer [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/analysis/cache"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/api"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/app"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/events"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analyzer service", "port", cfg.Server.Port, "history", cfg.History.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsServer, err := metrics.Listen(cfg.Metrics.Port, prometheus.DefaultGatherer)
		if err != nil {
			slog.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
		defer metricsServer.Shutdown(context.Background())
	}

	checker := health.NewChecker()
	checker.SetCheckTimeout(cfg.Server.HealthTimeout)

	scorer, scorerCheck := app.NewScorer(cfg.Sentiment)
	checker.Register("sentiment", scorerCheck)

	translator, translatorCheck, err := app.NewTranslator(cfg.Translation, m)
	if err != nil {
		slog.Error("failed to configure translation", "error", err)
		os.Exit(1)
	}
	checker.Register("translation", translatorCheck)

	store, err := app.OpenHistory(ctx, cfg)
	if err != nil {
		slog.Error("failed to open history store", "driver", cfg.History.Driver, "error", err)
		os.Exit(1)
	}
	var historyStore analysis.HistoryStore
	var historyReader api.HistoryReader
	if store != nil {
		defer store.Close()
		historyStore, historyReader = store, store
		checker.Register("history", health.PingCheck(store.Ping, health.StatusDown))
	}

	var apiCache api.ReportCache
	var analysisCache analysis.Cache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, report caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			reportCache := cache.New(redisClient, cfg.Redis.CacheTTL, cfg.Translation.TargetLanguage)
			apiCache, analysisCache = reportCache, reportCache
			checker.Register("redis", health.PingCheck(redisClient.Ping, health.StatusDegraded))
			slog.Info("report cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := events.NewAggregator(cfg.Analysis.TopWords)
	var tracker events.Tracker = aggregator
	var collector *events.Collector
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.AnalysisEvents
		producer = kafka.NewProducer(cfg.Kafka, topic)
		defer producer.Close()

		var onDrop func()
		if m != nil {
			onDrop = m.EventsDroppedTotal.Inc
		}
		collector = events.NewCollector(producer, cfg.Kafka.BufferSize, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval, onDrop)
		collector.Start(context.Background())
		tracker = collector

		consumer := kafka.NewConsumer(cfg.Kafka, topic, aggregator.HandleMessage())
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analysis events consumer error", "error", err)
			}
		}()
		defer consumer.Close()
		slog.Info("analysis events enabled", "topic", topic, "brokers", cfg.Kafka.Brokers)
	}
	if store != nil && cfg.History.SnapshotInterval > 0 {
		store.StartPeriodicSave(ctx, aggregator, cfg.History.SnapshotInterval)
	}

	var textTranslator analysis.TextTranslator
	if translator != nil {
		textTranslator = translator
	}
	svc := analysis.New(cfg.Analysis, analysis.Deps{
		Translator: textTranslator,
		Scorer:     scorer,
		Cache:      analysisCache,
		Events:     tracker,
		History:    historyStore,
		Metrics:    m,
	})

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)
		defer limiter.Stop()
	}

	h := api.NewHandler(svc, api.Options{
		History:      historyReader,
		Cache:        apiCache,
		Stats:        aggregator,
		MaxTextBytes: cfg.Analysis.MaxTextBytes,
	})
	var adminKeys middleware.KeyValidator
	if keys := apikey.NewSet(cfg.Admin.APIKeyHashes); keys.Len() > 0 {
		adminKeys = keys
	} else {
		slog.Warn("no admin api keys configured, cache invalidation is open")
	}
	router := api.NewRouter(h, checker, api.RouterConfig{
		Limiter:   limiter,
		Metrics:   m,
		CORS:      middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...),
		Timeout:   cfg.Server.HandlerTimeout,
		AdminKeys: adminKeys,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analyzer service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone

	if collector != nil {
		collector.Close()
		slog.Info("analysis events flushed", "dropped", collector.Dropped(), "producer", producer.Stats())
	}
	slog.Info("analyzer service stopped")
}
