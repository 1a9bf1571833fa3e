package translate

import (
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// LinguaDetector detects the language of a text among a fixed set of
// candidates.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector for the given ISO 639-1 codes. At least
// two known languages are required.
func NewLinguaDetector(codes []string) (*LinguaDetector, error) {
	langs := make([]lingua.Language, 0, len(codes))
	for _, code := range codes {
		lang, ok := languageFromCode(code)
		if !ok {
			return nil, fmt.Errorf("unknown language code %q", code)
		}
		langs = append(langs, lang)
	}
	if len(langs) < 2 {
		return nil, fmt.Errorf("language detection needs at least two languages, got %d", len(langs))
	}
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(langs...).Build(),
	}, nil
}

// Detect returns the lower-case ISO 639-1 code of the most likely language.
func (d *LinguaDetector) Detect(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

func languageFromCode(code string) (lingua.Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, lang := range lingua.AllLanguages() {
		if strings.ToLower(lang.IsoCode639_1().String()) == code {
			return lang, true
		}
	}
	return lingua.Unknown, false
}
