package sentimiento

import "strings"

const (
	// patternWeight scales every pattern contribution relative to a single
	// lexicon word.
	patternWeight = 2.0
	// patternEmotionWeight is the tally credit of one pattern hit.
	patternEmotionWeight = 3
)

// patternSignals is what the pattern matcher extracts from a text.
type patternSignals struct {
	matches []MatchedPattern
	tally   map[string]int
	alert   bool
}

// matchPatterns scans normalized text with every pattern, in declaration
// order, collecting all non-overlapping matches of each.
func matchPatterns(text string, tables *Tables) patternSignals {
	sig := patternSignals{tally: make(map[string]int)}
	for _, p := range tables.Patterns {
		if p.Kind().Templated() {
			matchTemplated(text, p, tables, &sig)
			continue
		}

		def := p.Definition()
		for _, phrase := range p.re.FindAllString(text, -1) {
			sig.matches = append(sig.matches, MatchedPattern{
				Phrase:  phrase,
				Emotion: def.Emotion,
				Score:   def.Score * patternWeight,
				Alert:   def.Alert,
			})
			if def.Emotion != "" {
				sig.tally[def.Emotion] += patternEmotionWeight
			}
			if def.Alert {
				sig.alert = true
			}
		}
	}
	return sig
}

// matchTemplated scores "me siento (muy) triste" style matches from the
// lexicon entry of the captured emotion word. Matches whose emotion word is
// not in the lexicon contribute nothing.
func matchTemplated(text string, p *Pattern, tables *Tables, sig *patternSignals) {
	def := p.Definition()
	for _, m := range p.re.FindAllStringSubmatch(text, -1) {
		word := m[2]
		entry, ok := tables.Lexicon.Lookup(word)
		if !ok {
			continue
		}

		factor := 1.0
		if intensity := strings.Join(strings.Fields(m[1]), " "); intensity != "" {
			if f, ok := tables.Modifiers.Factor(intensity); ok {
				factor = f
			}
		}

		emotion := entry.Primary()
		sig.matches = append(sig.matches, MatchedPattern{
			Phrase:  m[0],
			Emotion: emotion,
			Score:   entry.Score * factor * patternWeight,
			Alert:   def.Alert,
		})
		sig.tally[emotion] += patternEmotionWeight
		if def.Alert {
			sig.alert = true
		}
	}
}
