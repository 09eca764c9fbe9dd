// Package analysis provides the tokenizer/analyzer collaborator for the
// document mapper: ordered token streams with position increments and
// offsets, plus single-byte norm encoding for field-length scoring.
//
// The standard analyzer lower-cases input, splits on non-alphanumeric
// boundaries, removes stop-words, and applies a simple suffix-based stemmer.
// A removed stop-word leaves a position hole: the following token carries an
// increased position increment rather than a renumbered position.
package analysis

import (
	"strings"
	"unicode"
)

// Token is one term occurrence emitted by a token stream.
type Token struct {
	Term string
	// PositionIncrement is the distance from the previous token's
	// position; 1 for adjacent tokens, larger when tokens were dropped
	// in between.
	PositionIncrement int
	StartOffset       int
	EndOffset         int
}

// TokenStream is an ordered, finite stream of tokens. Streams are single-use;
// obtain a fresh one per field invocation.
type TokenStream interface {
	Next() (Token, bool)
}

// Analyzer turns field text into token streams.
type Analyzer interface {
	Tokens(field, text string) TokenStream
	// PositionIncrementGap is the position gap inserted before the first
	// token of a repeated field with the same name.
	PositionIncrementGap(field string) int
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

// Standard is the default analyzer.
type Standard struct {
	gap int
}

// NewStandard creates a Standard analyzer with the given repeated-field
// position gap.
func NewStandard(gap int) *Standard {
	return &Standard{gap: gap}
}

func (s *Standard) PositionIncrementGap(string) int {
	return s.gap
}

func (s *Standard) Tokens(_, text string) TokenStream {
	return newStandardStream(text)
}

type standardStream struct {
	tokens []Token
	pos    int
}

func newStandardStream(text string) *standardStream {
	runes := []rune(text)
	var tokens []Token
	pendingIncrement := 1

	i := 0
	for i < len(runes) {
		if !isTokenRune(runes[i]) {
			i++
			continue
		}
		start := i
		for i < len(runes) && isTokenRune(runes[i]) {
			i++
		}
		word := strings.ToLower(string(runes[start:i]))
		if len(word) < 2 {
			pendingIncrement++
			continue
		}
		if _, isStop := stopWords[word]; isStop {
			pendingIncrement++
			continue
		}
		stemmed := stem(word)
		if stemmed == "" {
			pendingIncrement++
			continue
		}
		tokens = append(tokens, Token{
			Term:              stemmed,
			PositionIncrement: pendingIncrement,
			StartOffset:       start,
			EndOffset:         i,
		})
		pendingIncrement = 1
	}
	return &standardStream{tokens: tokens}
}

func (s *standardStream) Next() (Token, bool) {
	if s.pos >= len(s.tokens) {
		return Token{}, false
	}
	t := s.tokens[s.pos]
	s.pos++
	return t, true
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// stem applies a simple suffix-stripping stemmer to the given word.
func stem(word string) string {
	suffixes := []struct {
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
		{"eness", "ene", 2},
		{"tion", "t", 3},
		{"sion", "s", 3},
		{"ying", "y", 2},
		{"ling", "l", 3},
		{"ies", "y", 2},
		{"ing", "", 3},
		{"ers", "er", 2},
		{"est", "", 3},
		{"ful", "", 3},
		{"ous", "", 3},
		{"ess", "", 3},
		{"ble", "", 3},
		{"ed", "", 3},
		{"er", "", 3},
		{"ly", "", 3},
		{"es", "", 3},
		{"ss", "ss", 2},
		{"s", "", 3},
	}
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

// Keyword is an analyzer that emits the whole input as one token. Useful in
// tests and for identifier-like fields.
type Keyword struct{}

func (Keyword) PositionIncrementGap(string) int { return 0 }

func (Keyword) Tokens(_, text string) TokenStream {
	return &standardStream{tokens: []Token{{
		Term:              text,
		PositionIncrement: 1,
		StartOffset:       0,
		EndOffset:         len([]rune(text)),
	}}}
}
