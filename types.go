// Package sentimiento performs rule-based sentiment and emotion analysis of
// short Spanish text.
//
// An Engine matches text against a weighted emotion lexicon and a table of
// idiomatic phrase patterns, applies negation and intensity modifiers from a
// two-token lookback window, and normalizes the merged signal into a bounded
// score, an emotion breakdown, a classification and a confidence estimate.
//
//	res := sentimiento.Analyze("Me siento muy feliz hoy")
//	fmt.Println(res.Classification, res.Score, res.DominantEmotion())
//
// Analysis is deterministic and safe for concurrent use; the tables an Engine
// reads are immutable after load.
package sentimiento

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Classification is the polarity label of an analysis.
type Classification string

const (
	Positive Classification = "Positive"
	Negative Classification = "Negative"
	Neutral  Classification = "Neutral"
)

// String returns the name of the classification.
func (c Classification) String() string {
	return string(c)
}

// UnmarshalJSON decodes a classification name, rejecting unknown labels.
func (c *Classification) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch Classification(s) {
	case Positive, Negative, Neutral:
		*c = Classification(s)
		return nil
	}
	return fmt.Errorf("sentimiento: unknown classification: %q", s)
}

// Intensity is the magnitude tier of a normalized score.
type Intensity string

const (
	Low    Intensity = "Low"
	Medium Intensity = "Medium"
	High   Intensity = "High"
)

// String returns the name of the intensity tier.
func (i Intensity) String() string {
	return string(i)
}

// Result sources.
const (
	SourceRules     = "rules"
	SourceSecondary = "secondary"
)

// AnalysisResult is the outcome of one analysis call. It is built fresh for
// every call and never mutated afterwards.
type AnalysisResult struct {
	Classification Classification `json:"classification"`
	Score          int            `json:"score"`    // -100 to 100
	Emotions       map[string]int `json:"emotions"` // tag -> percentage, 0 to 100
	Intensity      Intensity      `json:"intensity"`
	Keywords       []string       `json:"keywords"` // pattern phrases, then lexicon tokens
	Explanation    string         `json:"explanation"`
	IsAlert        bool           `json:"isAlert"`
	Confidence     float64        `json:"confidence"` // 0 to 1
	Source         string         `json:"source"`
}

// DominantEmotion returns the emotion tag with the highest percentage. Ties
// are broken alphabetically. It returns "" when no emotion was observed.
func (r AnalysisResult) DominantEmotion() string {
	tags := make([]string, 0, len(r.Emotions))
	for tag := range r.Emotions {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	best, bestPct := "", -1
	for _, tag := range tags {
		if r.Emotions[tag] > bestPct {
			best, bestPct = tag, r.Emotions[tag]
		}
	}
	return best
}

// String returns a debug representation of the result.
func (r AnalysisResult) String() string {
	return fmt.Sprintf("%s(score=%d, intensity=%s, confidence=%.2f, alert=%v)",
		r.Classification, r.Score, r.Intensity, r.Confidence, r.IsAlert)
}

// A ScoredToken is a lexicon hit found by the token scorer.
type ScoredToken struct {
	Word     string  `json:"word"`
	Position int     `json:"position"` // index in the token sequence
	Score    float64 `json:"score"`    // signed contribution after modifiers
}

// A MatchedPattern is a pattern hit found by the pattern matcher.
type MatchedPattern struct {
	Phrase  string  `json:"phrase"`
	Emotion string  `json:"emotion"`
	Score   float64 `json:"score"` // contribution to the raw score
	Alert   bool    `json:"alert"`
}

// Breakdown exposes the intermediate signals behind an AnalysisResult.
type Breakdown struct {
	Patterns []MatchedPattern `json:"patterns"`
	Tokens   []ScoredToken    `json:"tokens"`
	Tally    map[string]int   `json:"tally"` // weighted emotion counts
	RawScore float64          `json:"raw_score"`
	Alert    bool             `json:"alert"`
}

// SentenceScore is the analysis of a single segmented sentence.
type SentenceScore struct {
	Text   string         `json:"text"`
	Start  int            `json:"start"` // byte offset in the analyzed text
	End    int            `json:"end"`
	Result AnalysisResult `json:"result"`
}

// Document is a sentence-level breakdown of a longer text.
type Document struct {
	Sentences   []SentenceScore `json:"sentences"`
	MeanScore   float64         `json:"mean_score"`
	ScoreStdDev float64         `json:"score_stddev"`
	Alerts      int             `json:"alerts"` // sentences with IsAlert set
	Overall     AnalysisResult  `json:"overall"`
}
