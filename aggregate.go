package sentimiento

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	scoreScale      = 5.0
	maxScore        = 100.0
	neutralBand     = 5
	highIntensity   = 70
	mediumIntensity = 30

	baseConfidence         = 0.5
	patternConfidenceBonus = 0.2
	scoreConfidenceWeight  = 0.3

	explanationFormat = "Análisis avanzado: se detectaron %d patrones y %d palabras clave."
	alertSuffix       = " ⚠️ SE DETECTARON SEÑALES DE ALERTA."
)

// rawScore sums pattern contributions, then token contributions.
func rawScore(patterns []MatchedPattern, tokens []ScoredToken) float64 {
	contributions := make([]float64, 0, len(patterns)+len(tokens))
	for _, p := range patterns {
		contributions = append(contributions, p.Score)
	}
	for _, t := range tokens {
		contributions = append(contributions, t.Score)
	}
	return floats.Sum(contributions)
}

// NormalizeScore scales a raw score into [-100, 100] and rounds it half away
// from zero.
func NormalizeScore(raw float64) int {
	scaled := math.Max(-maxScore, math.Min(maxScore, raw*scoreScale))
	return int(math.Round(scaled))
}

// Classify maps a normalized score to its polarity. Scores within ±5 are
// Neutral.
func Classify(score int) Classification {
	switch {
	case score > neutralBand:
		return Positive
	case score < -neutralBand:
		return Negative
	}
	return Neutral
}

// IntensityOf maps a normalized score to its magnitude tier.
func IntensityOf(score int) Intensity {
	mag := score
	if mag < 0 {
		mag = -mag
	}
	switch {
	case mag > highIntensity:
		return High
	case mag > mediumIntensity:
		return Medium
	}
	return Low
}

// emotionPercentages converts a tally into independently rounded shares of
// 100. The shares may not sum to exactly 100.
func emotionPercentages(tally map[string]int) map[string]int {
	total := 0
	for _, n := range tally {
		total += n
	}
	pct := make(map[string]int, len(tally))
	if total == 0 {
		return pct
	}
	for emotion, n := range tally {
		if n == 0 {
			continue
		}
		pct[emotion] = int(math.Round(100 * float64(n) / float64(total)))
	}
	return pct
}

func confidence(score int, matchedPatterns bool) float64 {
	c := baseConfidence
	if matchedPatterns {
		c += patternConfidenceBonus
	}
	c += math.Abs(float64(score)) / maxScore * scoreConfidenceWeight
	return math.Max(0, math.Min(1, c))
}

// aggregate folds a breakdown into the final result.
func aggregate(b Breakdown) AnalysisResult {
	score := NormalizeScore(b.RawScore)

	keywords := make([]string, 0, len(b.Patterns)+len(b.Tokens))
	for _, p := range b.Patterns {
		keywords = append(keywords, p.Phrase)
	}
	for _, t := range b.Tokens {
		keywords = append(keywords, t.Word)
	}

	explanation := fmt.Sprintf(explanationFormat, len(b.Patterns), len(b.Tokens))
	if b.Alert {
		explanation += alertSuffix
	}

	return AnalysisResult{
		Classification: Classify(score),
		Score:          score,
		Emotions:       emotionPercentages(b.Tally),
		Intensity:      IntensityOf(score),
		Keywords:       keywords,
		Explanation:    explanation,
		IsAlert:        b.Alert,
		Confidence:     confidence(score, len(b.Patterns) > 0),
		Source:         SourceRules,
	}
}
