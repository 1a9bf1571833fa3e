// Package translate wraps the external translation service used to bring
// input text into the language the sentiment lexicon understands. A failed
// translation never fails an analysis: the original text is used instead and
// a warning is reported alongside the result.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/logger"
)

// Translator translates text into the target language (ISO 639-1 code).
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Detector guesses the ISO 639-1 code of a text.
type Detector interface {
	Detect(text string) (code string, ok bool)
}

// Result is the outcome of Service.Translate.
type Result struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language,omitempty"`
	Translated     bool   `json:"translated"`
	Warning        string `json:"warning,omitempty"`
}

// Service decides whether a text needs translating and falls back to the
// original text on failure.
type Service struct {
	translator Translator
	detector   Detector
	target     string
	logger     *slog.Logger
}

// NewService builds a Service. translator and detector may be nil: without a
// translator texts pass through unchanged, without a detector every text is
// sent to the translator.
func NewService(translator Translator, detector Detector, target string) *Service {
	return &Service{
		translator: translator,
		detector:   detector,
		target:     strings.ToLower(target),
		logger:     logger.WithComponent("translate"),
	}
}

// Translate returns text in the target language when possible.
func (s *Service) Translate(ctx context.Context, text string) Result {
	res := Result{Text: text}
	if s.detector != nil {
		if code, ok := s.detector.Detect(text); ok {
			res.SourceLanguage = code
			if code == s.target {
				return res
			}
		}
	}
	if s.translator == nil {
		return res
	}
	translated, warning := TranslateOrOriginal(ctx, s.translator, text, s.target)
	res.Text = translated
	res.Warning = warning
	res.Translated = warning == ""
	if warning != "" {
		s.logger.Warn("translation failed, using original text", "error", warning, "source_language", res.SourceLanguage)
	}
	return res
}

// TranslateOrOriginal translates text, returning the original text and a
// user-facing warning when the translator fails.
func TranslateOrOriginal(ctx context.Context, tr Translator, text, target string) (string, string) {
	translated, err := tr.Translate(ctx, text, target)
	if err != nil {
		return text, fmt.Sprintf("No se pudo traducir automáticamente: %v", err)
	}
	return translated, ""
}
