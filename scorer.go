package sentimiento

// scoreTokens scores each lexicon word in tokens against a two-token
// lookback window. The previous token may negate (x-1) or scale the word; a
// negation two back followed by a modifier one back also negates, which
// covers "no muy bueno" and "no soy feliz".
//
// Emotion tags are only tallied when the final multiplier is positive, so a
// negated word shifts the score without asserting its emotion.
func scoreTokens(tokens []Token, tables *Tables) ([]ScoredToken, map[string]int) {
	var scored []ScoredToken
	tally := make(map[string]int)

	for i, tok := range tokens {
		entry, ok := tables.Lexicon.Lookup(tok.Text)
		if !ok {
			continue
		}

		multiplier := 1.0
		if i > 0 {
			prev := tokens[i-1].Text
			if tables.Negations.Contains(prev) {
				multiplier *= -1
			}
			if f, ok := tables.Modifiers.Factor(prev); ok {
				multiplier *= f
			}
		}
		if i > 1 {
			if tables.Negations.Contains(tokens[i-2].Text) && isModifier(tables, tokens[i-1].Text) {
				multiplier *= -1
			}
		}

		scored = append(scored, ScoredToken{
			Word:     tok.Text,
			Position: i,
			Score:    entry.Score * multiplier,
		})
		if multiplier > 0 {
			for _, emotion := range entry.Emotions {
				tally[emotion]++
			}
		}
	}
	return scored, tally
}

func isModifier(tables *Tables, word string) bool {
	_, ok := tables.Modifiers.Factor(word)
	return ok
}
