// Package analysis runs the full text pipeline: translate (falling back to
// the original text), score sentiment, count words on the scored text, keep
// the top entries and pick a tone message. Cache, event tracking, history
// and metrics are optional collaborators.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/events"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/history"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/tone"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/translate"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/wordfreq"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/tracing"
)

var (
	ErrEmptyText            = fmt.Errorf("%w: empty text", apperrors.ErrInvalidInput)
	ErrSentimentUnavailable = fmt.Errorf("%w: sentiment scoring", apperrors.ErrUnavailable)
)

// EmptyTextMessage is shown when there is nothing to analyze.
const EmptyTextMessage = "Por favor, escribe algo para analizar."

// TextTranslator brings text into the scorer's language.
type TextTranslator interface {
	Translate(ctx context.Context, text string) translate.Result
}

// Cache memoizes reports by input text.
type Cache interface {
	GetOrCompute(ctx context.Context, text string, compute func() (*Report, error)) (*Report, bool, error)
}

// HistoryStore persists report summaries.
type HistoryStore interface {
	Save(ctx context.Context, rec *history.Record) error
}

// Deps are the collaborators of a Service. Only Scorer is required.
type Deps struct {
	Translator TextTranslator
	Scorer     sentiment.Scorer
	Picker     *tone.Picker
	Cache      Cache
	Events     events.Tracker
	History    HistoryStore
	Metrics    *metrics.Metrics
}

type Service struct {
	cfg  config.AnalysisConfig
	deps Deps
}

func New(cfg config.AnalysisConfig, deps Deps) *Service {
	if deps.Scorer == nil {
		deps.Scorer = sentiment.Neutral{}
	}
	if deps.Picker == nil {
		deps.Picker = tone.NewPicker(nil)
	}
	if cfg.TopWords <= 0 {
		cfg.TopWords = 10
	}
	return &Service{cfg: cfg, deps: deps}
}

// Analyze runs the pipeline on text. The tone message is picked on every
// call, including cache hits.
func (s *Service) Analyze(ctx context.Context, text string) (*Report, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "analyze")
	defer span.End(ctx)
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.New(ErrEmptyText, 400, EmptyTextMessage)
	}
	if s.cfg.MaxTextBytes > 0 && len(text) > s.cfg.MaxTextBytes {
		return nil, tooLarge(len(text), s.cfg.MaxTextBytes)
	}

	var (
		cached *Report
		hit    bool
		err    error
	)
	if s.deps.Cache != nil {
		cached, hit, err = s.deps.Cache.GetOrCompute(ctx, text, func() (*Report, error) {
			return s.compute(ctx, text)
		})
	} else {
		cached, err = s.compute(ctx, text)
	}
	if err != nil {
		return nil, err
	}

	// cached may be shared between singleflight callers
	report := *cached
	report.CacheHit = hit
	report.Tone, report.Message = s.deps.Picker.Pick(report.Polarity)
	span.Set("cache_hit", hit)
	span.Set("tone", string(report.Tone))

	s.observe(ctx, &report, time.Since(start))
	return &report, nil
}

func (s *Service) compute(ctx context.Context, text string) (*Report, error) {
	log := logger.FromContext(ctx)

	tr := translate.Result{Text: text}
	if s.deps.Translator != nil {
		tctx, span := tracing.Start(ctx, "translate")
		tr = s.deps.Translator.Translate(tctx, text)
		span.Set("translated", tr.Translated)
		span.End(tctx)
	}
	s.countTranslation(tr)

	sctx, span := tracing.Start(ctx, "sentiment")
	sent, err := resilience.Call(sctx, s.cfg.ScoreTimeout, "sentiment scoring", func(ctx context.Context) (sentiment.Sentiment, error) {
		return s.deps.Scorer.Score(ctx, tr.Text)
	})
	span.End(sctx)
	if err != nil {
		log.Error("sentiment scoring failed", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.New(apperrors.ErrTimeout, 504, "el análisis tardó demasiado")
		}
		return nil, apperrors.New(ErrSentimentUnavailable, 503, "no se pudo analizar el sentimiento en este momento")
	}

	_, span = tracing.Start(ctx, "wordfreq")
	counts := wordfreq.Analyze(tr.Text)
	span.Set("tokens", counts.Total())
	span.End(ctx)
	_, banner := tone.Banner(sent.Polarity)

	return &Report{
		OriginalText:       text,
		TranslatedText:     tr.Text,
		Translated:         tr.Translated,
		TranslationWarning: tr.Warning,
		SourceLanguage:     tr.SourceLanguage,
		Polarity:           sent.Polarity,
		Subjectivity:       sent.Subjectivity,
		Tone:               tone.Classify(sent.Polarity),
		Banner:             banner,
		TokenCount:         counts.Total(),
		WordCounts:         counts,
		TopWords:           counts.Top(s.cfg.TopWords),
	}, nil
}

// Words runs only the word-frequency analyzer and returns at most limit
// entries (the configured top count when limit is not positive).
func (s *Service) Words(ctx context.Context, text string, limit int) (wordfreq.Frequencies, error) {
	start := time.Now()
	if s.cfg.MaxTextBytes > 0 && len(text) > s.cfg.MaxTextBytes {
		return nil, tooLarge(len(text), s.cfg.MaxTextBytes)
	}
	if limit <= 0 {
		limit = s.cfg.TopWords
	}
	counts := wordfreq.Analyze(text)
	top := counts.Top(limit)

	if s.deps.Events != nil {
		s.deps.Events.Track(events.AnalysisEvent{
			Type:          events.EventWords,
			RequestID:     logger.RequestID(ctx),
			TokenCount:    counts.Total(),
			DistinctWords: len(counts),
			TopWords:      top,
			LatencyMs:     time.Since(start).Milliseconds(),
			Timestamp:     time.Now().UTC(),
		})
	}
	return top, nil
}

func (s *Service) countTranslation(tr translate.Result) {
	m := s.deps.Metrics
	if m == nil {
		return
	}
	switch {
	case tr.Warning != "":
		m.TranslationsTotal.WithLabelValues("fallback").Inc()
	case tr.Translated:
		m.TranslationsTotal.WithLabelValues("translated").Inc()
	default:
		m.TranslationsTotal.WithLabelValues("skipped").Inc()
	}
}

func (s *Service) observe(ctx context.Context, r *Report, elapsed time.Duration) {
	log := logger.FromContext(ctx)

	if m := s.deps.Metrics; m != nil {
		status := "miss"
		if r.CacheHit {
			status = "hit"
			m.CacheHitsTotal.Inc()
		} else {
			m.CacheMissesTotal.Inc()
		}
		m.AnalysesTotal.WithLabelValues(string(r.Tone)).Inc()
		m.AnalysisLatency.WithLabelValues(status).Observe(elapsed.Seconds())
		m.AnalysisTokens.Observe(float64(r.TokenCount))
	}

	if s.deps.Events != nil {
		s.deps.Events.Track(events.AnalysisEvent{
			Type:          events.EventAnalysis,
			RequestID:     logger.RequestID(ctx),
			Tone:          string(r.Tone),
			Polarity:      r.Polarity,
			TokenCount:    r.TokenCount,
			DistinctWords: len(r.WordCounts),
			TopWords:      r.TopWords,
			Translated:    r.Translated,
			CacheHit:      r.CacheHit,
			LatencyMs:     elapsed.Milliseconds(),
			Timestamp:     time.Now().UTC(),
		})
	}

	if s.deps.History != nil {
		rec := &history.Record{
			Preview:        Preview(r.OriginalText, s.cfg.PreviewRunes),
			Tone:           string(r.Tone),
			Polarity:       r.Polarity,
			Subjectivity:   r.Subjectivity,
			SourceLanguage: r.SourceLanguage,
			Translated:     r.Translated,
			TokenCount:     r.TokenCount,
			TopWords:       r.TopWords,
		}
		status := "ok"
		if err := s.deps.History.Save(ctx, rec); err != nil {
			status = "error"
			log.Error("failed to save analysis history", "error", err)
		}
		if m := s.deps.Metrics; m != nil {
			m.HistoryWritesTotal.WithLabelValues(status).Inc()
		}
	}

	log.Info("analysis completed",
		"tone", r.Tone,
		"polarity", r.Polarity,
		"tokens", r.TokenCount,
		"translated", r.Translated,
		"cache_hit", r.CacheHit,
		"latency_ms", elapsed.Milliseconds(),
	)
}
