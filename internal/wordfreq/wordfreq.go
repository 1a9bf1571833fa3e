// Package wordfreq computes ranked word-frequency tables from free text.
// It lower-cases input, splits on runs of word characters (letters, numbers
// of any Unicode kind and underscore), drops stop-words and tokens of two runes or fewer, and
// orders the counts from most to least frequent.
package wordfreq

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTokenRunes is the shortest token that is counted.
const minTokenRunes = 3

// WordCount is a single entry of a frequency table.
type WordCount struct {
	Word  string `json:"word" yaml:"word"`
	Count int    `json:"count" yaml:"count"`
}

// Frequencies is a frequency table ordered by descending count. Entries with
// equal counts keep the order in which their word was first seen.
type Frequencies []WordCount

// Analyze returns the frequency table of the significant words in text.
// It never fails: empty input, or input made only of stop-words and short
// tokens, yields an empty table.
func Analyze(text string) Frequencies {
	return count(Tokenize(text))
}

// Tokenize returns the significant tokens of text in reading order.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), isSeparator)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if utf8.RuneCountInString(word) < minTokenRunes {
			continue
		}
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// isSeparator reports whether r ends a word. Combining marks are separators,
// so text in decomposed form splits at each accent.
func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_'
}

func count(tokens []string) Frequencies {
	index := make(map[string]int, len(tokens))
	freqs := make(Frequencies, 0, len(tokens)/2)
	for _, tok := range tokens {
		if i, ok := index[tok]; ok {
			freqs[i].Count++
			continue
		}
		index[tok] = len(freqs)
		freqs = append(freqs, WordCount{Word: tok, Count: 1})
	}
	freqs.sort()
	return freqs
}

func (f Frequencies) sort() {
	sort.SliceStable(f, func(i, j int) bool {
		return f[i].Count > f[j].Count
	})
}

// Top returns at most n leading entries. A non-positive n returns an empty
// table.
func (f Frequencies) Top(n int) Frequencies {
	if n <= 0 {
		return Frequencies{}
	}
	if n > len(f) {
		n = len(f)
	}
	out := make(Frequencies, n)
	copy(out, f[:n])
	return out
}

// Map returns the table as a plain map.
func (f Frequencies) Map() map[string]int {
	m := make(map[string]int, len(f))
	for _, wc := range f {
		m[wc.Word] = wc.Count
	}
	return m
}

// Total is the number of counted tokens.
func (f Frequencies) Total() int {
	total := 0
	for _, wc := range f {
		total += wc.Count
	}
	return total
}

// Words returns the words in rank order.
func (f Frequencies) Words() []string {
	words := make([]string, len(f))
	for i, wc := range f {
		words[i] = wc.Word
	}
	return words
}
