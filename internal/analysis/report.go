package analysis

import (
	"bytes"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/tone"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/wordfreq"
	apperrors "github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/errors"
)

// Report is everything the pipeline produces for one text.
type Report struct {
	OriginalText       string               `json:"original_text" yaml:"original_text"`
	TranslatedText     string               `json:"translated_text" yaml:"translated_text"`
	Translated         bool                 `json:"translated" yaml:"translated"`
	TranslationWarning string               `json:"translation_warning,omitempty" yaml:"translation_warning,omitempty"`
	SourceLanguage     string               `json:"source_language,omitempty" yaml:"source_language,omitempty"`
	Polarity           float64              `json:"polarity" yaml:"polarity"`
	Subjectivity       float64              `json:"subjectivity" yaml:"subjectivity"`
	Tone               tone.Tone            `json:"tone" yaml:"tone"`
	Banner             string               `json:"banner" yaml:"banner"`
	Message            string               `json:"message" yaml:"message"`
	TokenCount         int                  `json:"token_count" yaml:"token_count"`
	WordCounts         wordfreq.Frequencies `json:"word_counts" yaml:"word_counts"`
	TopWords           wordfreq.Frequencies `json:"top_words" yaml:"top_words"`
	CacheHit           bool                 `json:"cache_hit" yaml:"-"`
}

// Preview returns the first n runes of text followed by "..." when text is
// longer than n runes.
func Preview(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos] + "..."
		}
		i++
	}
	return text
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText turns uploaded file contents into text. Input must be UTF-8; a
// leading byte-order mark is dropped.
func DecodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", apperrors.New(apperrors.ErrInvalidInput, 400, "el archivo no está codificado en UTF-8")
	}
	return string(data), nil
}

func tooLarge(size, limit int) error {
	return apperrors.Newf(apperrors.ErrTextTooLarge, 413, "text is %d bytes, the limit is %d", size, limit)
}
