package wordfreq

import (
	"sort"
	"strings"
)

// stopWords holds the Spanish function words excluded from counting.
var stopWords = map[string]struct{}{
	"a": {}, "al": {}, "como": {}, "con": {}, "de": {}, "del": {},
	"el": {}, "ella": {}, "ellas": {}, "ellos": {}, "en": {}, "es": {},
	"la": {}, "las": {}, "los": {}, "lo": {}, "me": {}, "mi": {},
	"mis": {}, "muy": {}, "no": {}, "nos": {}, "o": {}, "para": {},
	"pero": {}, "por": {}, "que": {}, "se": {}, "si": {}, "sin": {},
	"su": {}, "sus": {}, "te": {}, "tu": {}, "tus": {}, "un": {},
	"una": {}, "uno": {}, "y": {}, "ya": {}, "yo": {},
}

// IsStopword reports whether word is in the stopword set, ignoring case.
func IsStopword(word string) bool {
	_, ok := stopWords[strings.ToLower(word)]
	return ok
}

// Stopwords returns the stopword set as a sorted slice.
func Stopwords() []string {
	words := make([]string, 0, len(stopWords))
	for w := range stopWords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
