// Package tokenizer turns fact and query text into unigram tokens. Text is
// NFD-normalised, lower-cased and split on non-alphanumeric boundaries;
// stop-words and single-character tokens are dropped and an optional
// suffix stemmer can be applied.
package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenizer must be deterministic and pure: the same text always yields the
// same tokens, on every worker.
type Tokenizer interface {
	Normalize(text string) string
	Tokenize(text string) []string
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Simple is the default Tokenizer.
type Simple struct {
	Stem bool
}

// New returns a Simple tokenizer, stemming when stem is set.
func New(stem bool) *Simple {
	return &Simple{Stem: stem}
}

// Normalize applies canonical decomposition (NFD).
func (s *Simple) Normalize(text string) string {
	return norm.NFD.String(text)
}

// Tokenize splits already-normalised text into unigrams. Combining marks
// left by NFD are dropped so "café" and "cafe" produce the same token.
func (s *Simple) Tokenize(text string) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r)
	})
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		word = stripMarks(word)
		if len([]rune(word)) < 2 {
			continue
		}
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		if s.Stem {
			word = stem(word)
			if word == "" {
				continue
			}
		}
		tokens = append(tokens, word)
	}
	return tokens
}

func stripMarks(word string) string {
	if !strings.ContainsFunc(word, func(r rune) bool { return unicode.Is(unicode.Mn, r) }) {
		return word
	}
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, word)
}

var suffixes = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"ed", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

func stem(word string) string {
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
