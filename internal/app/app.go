// Package app builds the analysis collaborators from configuration. Both the
// HTTP service and the CLI use it so they score and translate identically.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/history"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/translate"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/resilience"
)

// NewScorer loads the VADER lexicons, the bundled ones unless paths are
// configured. When they cannot be loaded the neutral scorer is returned and
// the health check reports degraded.
func NewScorer(cfg config.SentimentConfig) (sentiment.Scorer, health.Check) {
	v, err := sentiment.NewVader(cfg.LexiconPath, cfg.EmojiLexiconPath)
	if err != nil {
		slog.Warn("sentiment lexicon unavailable, scoring every text as neutral", "error", err)
		return sentiment.Neutral{}, health.Static(health.StatusDegraded, "neutral scorer: "+err.Error())
	}
	source := cfg.LexiconPath
	if source == "" {
		source = "bundled"
	}
	slog.Info("sentiment lexicon loaded", "lexicon", source)
	return v, health.Static(health.StatusUp, "vader")
}

// NewTranslator returns nil when translation is disabled. m may be nil.
func NewTranslator(cfg config.TranslationConfig, m *metrics.Metrics) (*translate.Service, health.Check, error) {
	if !cfg.Enabled {
		return nil, health.Static(health.StatusUp, "disabled"), nil
	}
	var detector translate.Detector
	if len(cfg.DetectLanguages) > 0 {
		d, err := translate.NewLinguaDetector(cfg.DetectLanguages)
		if err != nil {
			return nil, nil, fmt.Errorf("building language detector: %w", err)
		}
		detector = d
	}

	client := translate.NewHTTPTranslator(cfg)
	breaker := client.Breaker()
	if m != nil {
		breaker.OnStateChange(func(s resilience.State) {
			m.TranslationBreakerState.Set(float64(s))
		})
	}
	check := func(ctx context.Context) health.ComponentHealth {
		if c := breaker.Counts(); c.State != resilience.StateClosed {
			return health.ComponentHealth{
				Status:  health.StatusDegraded,
				Message: fmt.Sprintf("circuit %s after %d failures, %d calls rejected", c.State, c.ConsecutiveFailures, c.Rejected),
			}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	}

	slog.Info("translation enabled",
		"endpoint", cfg.Endpoint,
		"target", cfg.TargetLanguage,
		"detect", cfg.DetectLanguages,
	)
	return translate.NewService(client, detector, cfg.TargetLanguage), check, nil
}

// OpenHistory opens and migrates the configured history store. It returns
// nil for the "none" driver.
func OpenHistory(ctx context.Context, cfg *config.Config) (*history.Store, error) {
	var (
		store *history.Store
		err   error
	)
	switch cfg.History.Driver {
	case "none":
		return nil, nil
	case "postgres":
		client, perr := postgres.New(cfg.Postgres)
		if perr != nil {
			return nil, perr
		}
		store = history.NewPostgres(client, cfg.History.MaxList)
	case "sqlite":
		store, err = history.OpenSQLite(cfg.History.SQLitePath, cfg.History.MaxList)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.History.Driver)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
