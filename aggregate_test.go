package sentimiento

import (
	"reflect"
	"testing"
)

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		raw  float64
		want int
	}{
		{0, 0},
		{1, 5},
		{-1, -5},
		{1.5, 8},
		{-1.5, -8},
		{0.1, 1},
		{0.09, 0},
		{20, 100},
		{25, 100},
		{-1000, -100},
	}
	for _, tt := range tests {
		if got := NormalizeScore(tt.raw); got != tt.want {
			t.Errorf("NormalizeScore(%v) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := map[int]Classification{
		-100: Negative,
		-6:   Negative,
		-5:   Neutral,
		0:    Neutral,
		5:    Neutral,
		6:    Positive,
		100:  Positive,
	}
	for score, want := range tests {
		if got := Classify(score); got != want {
			t.Errorf("Classify(%d) = %s, want %s", score, got, want)
		}
	}
}

func TestIntensityOf(t *testing.T) {
	tests := map[int]Intensity{
		0:    Low,
		30:   Low,
		-30:  Low,
		31:   Medium,
		-70:  Medium,
		71:   High,
		-100: High,
	}
	for score, want := range tests {
		if got := IntensityOf(score); got != want {
			t.Errorf("IntensityOf(%d) = %s, want %s", score, got, want)
		}
	}
}

func TestEmotionPercentages(t *testing.T) {
	tests := []struct {
		tally map[string]int
		want  map[string]int
	}{
		{nil, map[string]int{}},
		{map[string]int{}, map[string]int{}},
		{map[string]int{"ira": 3}, map[string]int{"ira": 100}},
		{map[string]int{"ira": 3, "miedo": 1}, map[string]int{"ira": 75, "miedo": 25}},
		// Independent rounding: 33 + 33 + 33 = 99.
		{map[string]int{"a": 1, "b": 1, "c": 1}, map[string]int{"a": 33, "b": 33, "c": 33}},
		// 2/3 rounds up, 1/3 rounds down.
		{map[string]int{"a": 2, "b": 1}, map[string]int{"a": 67, "b": 33}},
	}
	for _, tt := range tests {
		if got := emotionPercentages(tt.tally); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("emotionPercentages(%v) = %v, want %v", tt.tally, got, tt.want)
		}
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		score    int
		patterns bool
		want     float64
	}{
		{0, false, 0.5},
		{0, true, 0.7},
		{50, false, 0.65},
		{-50, true, 0.85},
		{100, true, 1},
	}
	for _, tt := range tests {
		if got := confidence(tt.score, tt.patterns); !almostEqual(got, tt.want) {
			t.Errorf("confidence(%d, %v) = %.3f, want %.3f", tt.score, tt.patterns, got, tt.want)
		}
	}
}

func TestAggregate(t *testing.T) {
	b := Breakdown{
		Patterns: []MatchedPattern{{Phrase: "sin esperanza", Emotion: "desesperanza", Score: -6, Alert: true}},
		Tokens:   []ScoredToken{{Word: "bien", Position: 4, Score: 1}, {Word: "bien", Position: 6, Score: 1}},
		Tally:    map[string]int{"desesperanza": 3, "calma": 2},
		Alert:    true,
	}
	b.RawScore = rawScore(b.Patterns, b.Tokens)

	res := aggregate(b)
	if b.RawScore != -4 || res.Score != -20 || res.Classification != Negative {
		t.Errorf("Unexpected score: raw=%v result=%v", b.RawScore, res)
	}
	if want := []string{"sin esperanza", "bien", "bien"}; !reflect.DeepEqual(res.Keywords, want) {
		t.Errorf("Expected keywords %q without dedup, got %q", want, res.Keywords)
	}
	if want := map[string]int{"desesperanza": 60, "calma": 40}; !reflect.DeepEqual(res.Emotions, want) {
		t.Errorf("Expected emotions %v, got %v", want, res.Emotions)
	}
	want := "Análisis avanzado: se detectaron 1 patrones y 2 palabras clave. ⚠️ SE DETECTARON SEÑALES DE ALERTA."
	if res.Explanation != want {
		t.Errorf("Expected explanation %q, got %q", want, res.Explanation)
	}
	if !res.IsAlert || res.Source != SourceRules {
		t.Errorf("Unexpected alert/source: %v %q", res.IsAlert, res.Source)
	}
}
