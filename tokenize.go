package sentimiento

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Token is a word found by a WordTokenizer.
type Token struct {
	Text  string
	Start int // byte offset of the first rune
	End   int // byte offset past the last rune
}

// LetterTester reports whether r may appear inside a word.
type LetterTester func(r rune) bool

// Tokenizer splits normalized text into words.
type Tokenizer interface {
	Tokenize(string) []Token
}

// WordTokenizer splits text into maximal runs of word letters. Every other
// rune, digits and punctuation included, is a separator.
type WordTokenizer struct {
	isLetter LetterTester
}

type TokenizerOptFunc func(*WordTokenizer)

// UsingLetters replaces the letter test, for tables in other alphabets.
func UsingLetters(x LetterTester) TokenizerOptFunc {
	return func(tokenizer *WordTokenizer) {
		tokenizer.isLetter = x
	}
}

// NewWordTokenizer returns a tokenizer for lower-cased Spanish text.
func NewWordTokenizer(opts ...TokenizerOptFunc) *WordTokenizer {
	tok := &WordTokenizer{isLetter: IsSpanishLetter}
	for _, applyOpt := range opts {
		applyOpt(tok)
	}
	return tok
}

// IsSpanishLetter accepts a-z plus the accented vowels, ñ and ü.
func IsSpanishLetter(r rune) bool {
	if r >= 'a' && r <= 'z' {
		return true
	}
	switch r {
	case 'á', 'é', 'í', 'ó', 'ú', 'ñ', 'ü':
		return true
	}
	return false
}

// Tokenize returns the words of text in order.
func (t *WordTokenizer) Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i, r := range text {
		if r == utf8.RuneError {
			r = ' '
		}
		if t.isLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, Token{Text: text[start:i], Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Text: text[start:], Start: start, End: len(text)})
	}
	return tokens
}

// Words returns only the token texts of text.
func (t *WordTokenizer) Words(text string) []string {
	tokens := t.Tokenize(text)
	words := make([]string, len(tokens))
	for i, tok := range tokens {
		words[i] = tok.Text
	}
	return words
}

// Normalize composes text to NFC and lower-cases it with Spanish casing
// rules, so "FELIZ" and a decomposed "feliz" compare equal to the lexicon
// key.
func Normalize(text string) string {
	// A Caser keeps state; build one per call.
	lower := cases.Lower(language.Spanish)
	return lower.String(norm.NFC.String(strings.ToValidUTF8(text, " ")))
}
