// Package sentiment adapts an external sentiment library to the polarity and
// subjectivity pair the analysis pipeline reports.
package sentiment

import (
	"bufio"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/drankou/go-vader/vader"
)

// ErrNotReady is returned by a scorer whose lexicon failed to load.
var ErrNotReady = errors.New("sentiment lexicon not loaded")

// Sentiment is the score of a text. Polarity is in [-1, 1], Subjectivity in
// [0, 1].
type Sentiment struct {
	Polarity     float64 `json:"polarity" yaml:"polarity"`
	Subjectivity float64 `json:"subjectivity" yaml:"subjectivity"`
}

// Scorer scores a text.
type Scorer interface {
	Score(ctx context.Context, text string) (Sentiment, error)
}

// Vader scores text with the VADER lexicon. The compound score is used as
// polarity and the share of positive plus negative tokens as subjectivity.
type Vader struct {
	sia *vader.SentimentIntensityAnalyzer
}

//go:embed lexicon/*.txt
var bundled embed.FS

const (
	bundledLexicon      = "lexicon/vader_lexicon.txt"
	bundledEmojiLexicon = "lexicon/emoji_lexicon.txt"
)

// NewVader loads the word and emoji lexicons. An empty path selects the
// lexicon compiled into the binary.
func NewVader(lexiconPath, emojiLexiconPath string) (*Vader, error) {
	words, err := loadLexicon(lexiconPath, bundledLexicon, parseLexicon)
	if err != nil {
		return nil, err
	}
	emoji, err := loadLexicon(emojiLexiconPath, bundledEmojiLexicon, parseEmojiLexicon)
	if err != nil {
		return nil, err
	}
	return &Vader{sia: &vader.SentimentIntensityAnalyzer{
		LexiconMap:        words,
		EmojiLexiconMap:   emoji,
		SpecialCaseIdioms: vader.SpecialCaseIdioms,
	}}, nil
}

func loadLexicon[T any](path, fallback string, parse func(io.Reader) (map[string]T, error)) (map[string]T, error) {
	var (
		f   io.ReadCloser
		err error
	)
	if path == "" {
		path = fallback
		f, err = bundled.Open(fallback)
	} else {
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening lexicon %s: %w", path, err)
	}
	defer f.Close()
	m, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("loading lexicon %s: %w", path, err)
	}
	return m, nil
}

// parseLexicon reads "token<TAB>valence" lines in the layout of the VADER
// distribution. Columns past the second and lines starting with # are ignored.
func parseLexicon(r io.Reader) (map[string]float64, error) {
	m := make(map[string]float64)
	err := eachEntry(r, func(line int, token, value string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("line %d: valence %q: %w", line, value, err)
		}
		m[strings.ToLower(token)] = v
		return nil
	})
	return m, err
}

// parseEmojiLexicon reads "emoji<TAB>description" lines.
func parseEmojiLexicon(r io.Reader) (map[string]string, error) {
	m := make(map[string]string)
	err := eachEntry(r, func(_ int, token, value string) error {
		m[token] = strings.TrimSpace(value)
		return nil
	})
	return m, err
}

func eachEntry(r io.Reader, fn func(line int, token, value string) error) error {
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) < 2 || cols[0] == "" {
			return fmt.Errorf("line %d: want token and value separated by a tab", n)
		}
		if err := fn(n, cols[0], cols[1]); err != nil {
			return err
		}
	}
	return sc.Err()
}

func (v *Vader) Score(ctx context.Context, text string) (Sentiment, error) {
	if v == nil || v.sia == nil {
		return Sentiment{}, ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return Sentiment{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Sentiment{}, nil
	}
	return fromPolarityScores(v.sia.PolarityScores(text)), nil
}

func fromPolarityScores(scores map[string]float64) Sentiment {
	return Sentiment{
		Polarity:     clamp(scores["compound"], -1, 1),
		Subjectivity: clamp(scores["pos"]+scores["neg"], 0, 1),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Neutral scores every text as 0/0. It stands in when no lexicon is
// available so the rest of the pipeline keeps working.
type Neutral struct{}

func (Neutral) Score(ctx context.Context, text string) (Sentiment, error) {
	return Sentiment{}, ctx.Err()
}
