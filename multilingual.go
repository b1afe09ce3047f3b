package sentimiento

import (
	"strings"

	"github.com/bbalet/stopwords"
)

// candidateLanguages are the ISO 639-1 codes DetectLanguage chooses from.
var candidateLanguages = []string{"es", "en", "pt", "fr", "it", "de"}

// IsStopWord reports whether word is a function word in the language with
// the given ISO 639-1 code.
func IsStopWord(word, langCode string) bool {
	// The stopwords package only exposes filtering; a word that filters to
	// nothing is a stop word.
	return strings.TrimSpace(stopwords.CleanString(word, langCode, false)) == ""
}

// DetectLanguage guesses the language of text from the share of its words
// that are stop words in each candidate language. It returns the best code
// and that share. Text with no words reports "es" with share 0.
func DetectLanguage(text string) (string, float64) {
	words := NewWordTokenizer(UsingLetters(isLatinLetter)).Words(Normalize(text))
	if len(words) == 0 {
		return "es", 0
	}

	best, bestShare := "es", 0.0
	for _, lang := range candidateLanguages {
		hits := 0
		for _, w := range words {
			if IsStopWord(w, lang) {
				hits++
			}
		}
		share := float64(hits) / float64(len(words))
		if share > bestShare {
			best, bestShare = lang, share
		}
	}
	return best, bestShare
}

func isLatinLetter(r rune) bool {
	return IsSpanishLetter(r) || (r >= 'à' && r <= 'ÿ' && r != '÷') || r == 'œ'
}

// Gaps returns the content words of text the engine has no entry for:
// words that are not in the lexicon, not modifiers or negations, and not
// stop words in the engine's language. Each word is reported once, in
// order of first appearance. Gaps is meant for curating the lexicon.
func (e *Engine) Gaps(text string) []string {
	gaps := []string{}
	seen := make(map[string]struct{})
	for _, tok := range e.tokenizer.Tokenize(Normalize(text)) {
		w := tok.Text
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}

		if e.known(w) || IsStopWord(w, e.language) {
			continue
		}
		gaps = append(gaps, w)
	}
	return gaps
}

func (e *Engine) known(word string) bool {
	if _, ok := e.tables.Lexicon.Lookup(word); ok {
		return true
	}
	if _, ok := e.tables.Modifiers.Factor(word); ok {
		return true
	}
	return e.tables.Negations.Contains(word)
}
