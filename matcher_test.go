package sentimiento

import (
	"reflect"
	"testing"
)

func newMatcherTables(t *testing.T, patterns ...PatternDefinition) *Tables {
	t.Helper()
	tables, err := NewTables(
		LexiconFile{Words: map[string]LexiconEntry{
			"triste":  {Score: -2, Emotions: []string{"tristeza", "soledad"}},
			"feliz":   {Score: 2, Emotions: []string{"alegría"}},
			"nervios": {Score: -1, Emotions: []string{"ansiedad"}},
		}},
		PatternFile{
			Patterns:  patterns,
			Modifiers: map[string]float64{"muy": 1.5, "un poco": 0.7},
			Negations: []string{"no"},
		},
	)
	if err != nil {
		t.Fatalf("Failed to build tables: %v", err)
	}
	return tables
}

const testTemplate = `me\s+siento\s+(?:(muy|un\s+poco)\s+)?([a-záéíóúñü]+)`

func TestMatchPhrasePatterns(t *testing.T) {
	tables := newMatcherTables(t,
		PatternDefinition{Pattern: `\bhasta\s+las\s+narices`, Type: PhrasePattern, Emotion: "ira", Score: -3},
		PatternDefinition{Pattern: `\bno\s+quiero\s+vivir`, Type: PhrasePattern, Emotion: "desesperanza", Score: -5, Alert: true},
	)

	sig := matchPatterns("estoy hasta las narices, hasta  las narices de verdad", tables)
	if len(sig.matches) != 2 {
		t.Fatalf("Expected both occurrences to match, got %+v", sig.matches)
	}
	for _, m := range sig.matches {
		if m.Score != -6 || m.Emotion != "ira" || m.Alert {
			t.Errorf("Unexpected match %+v", m)
		}
	}
	if sig.tally["ira"] != 6 {
		t.Errorf("Expected ira tally 6, got %d", sig.tally["ira"])
	}
	if sig.alert {
		t.Error("Unexpected alert")
	}

	sig = matchPatterns("no quiero vivir", tables)
	if !sig.alert || len(sig.matches) != 1 || !sig.matches[0].Alert {
		t.Errorf("Expected alert match, got %+v", sig)
	}
}

func TestMatchTemplatedPatterns(t *testing.T) {
	tables := newMatcherTables(t,
		PatternDefinition{Pattern: testTemplate, Type: DirectEmotion},
	)

	tests := []struct {
		text  string
		want  []MatchedPattern
		tally map[string]int
	}{
		{
			"me siento muy triste",
			[]MatchedPattern{{Phrase: "me siento muy triste", Emotion: "tristeza", Score: -6}},
			map[string]int{"tristeza": 3},
		},
		{
			"me siento un   poco triste",
			[]MatchedPattern{{Phrase: "me siento un   poco triste", Emotion: "tristeza", Score: -2.8}},
			map[string]int{"tristeza": 3},
		},
		{
			"me siento feliz",
			[]MatchedPattern{{Phrase: "me siento feliz", Emotion: "alegría", Score: 4}},
			map[string]int{"alegría": 3},
		},
		{
			"me siento raro",
			nil,
			map[string]int{},
		},
	}

	for _, tt := range tests {
		sig := matchPatterns(tt.text, tables)
		if len(sig.matches) != len(tt.want) {
			t.Errorf("%q: expected %d matches, got %+v", tt.text, len(tt.want), sig.matches)
			continue
		}
		for i := range tt.want {
			got, want := sig.matches[i], tt.want[i]
			if got.Phrase != want.Phrase || got.Emotion != want.Emotion || !almostEqual(got.Score, want.Score) {
				t.Errorf("%q: expected %+v, got %+v", tt.text, want, got)
			}
		}
		if !reflect.DeepEqual(sig.tally, tt.tally) {
			t.Errorf("%q: expected tally %v, got %v", tt.text, tt.tally, sig.tally)
		}
	}
}

func TestMatchOrder(t *testing.T) {
	tables := newMatcherTables(t,
		PatternDefinition{Pattern: `\bqué\s+bien`, Type: PhrasePattern, Emotion: "alegría", Score: 2},
		PatternDefinition{Pattern: testTemplate, Type: DirectEmotion},
	)

	sig := matchPatterns("me siento feliz, qué bien", tables)
	if len(sig.matches) != 2 {
		t.Fatalf("Expected 2 matches, got %+v", sig.matches)
	}
	// Patterns are scanned in declaration order, not text order.
	if sig.matches[0].Phrase != "qué bien" || sig.matches[1].Phrase != "me siento feliz" {
		t.Errorf("Unexpected match order: %+v", sig.matches)
	}
}

func TestCompilePattern(t *testing.T) {
	p, err := CompilePattern(PatternDefinition{Pattern: `QUÉ\s+ASCO`, Type: PhrasePattern, Emotion: "asco", Score: -3})
	if err != nil {
		t.Fatal(err)
	}
	if !p.re.MatchString("qué asco") {
		t.Error("Patterns should match case-insensitively")
	}
	if p.Kind() != PhrasePattern || p.String() != `QUÉ\s+ASCO` {
		t.Errorf("Unexpected pattern accessors: %s %s", p.Kind(), p)
	}
	if !DirectState.Templated() || PhrasePattern.Templated() {
		t.Error("Unexpected Templated result")
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
