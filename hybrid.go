package sentimiento

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// DefaultConfidenceThreshold is the confidence below which a Hybrid
// analyzer consults its secondary analyzer.
const DefaultConfidenceThreshold = 0.6

// SecondaryAnalyzer is a slower, independent analyzer consulted when the
// rule engine is unsure. local is the rule engine's result for text.
type SecondaryAnalyzer interface {
	Analyze(ctx context.Context, text string, local AnalysisResult) (AnalysisResult, error)
}

// SecondaryFunc adapts a function to SecondaryAnalyzer.
type SecondaryFunc func(ctx context.Context, text string, local AnalysisResult) (AnalysisResult, error)

// Analyze calls f.
func (f SecondaryFunc) Analyze(ctx context.Context, text string, local AnalysisResult) (AnalysisResult, error) {
	return f(ctx, text, local)
}

// Hybrid runs the rule engine first and escalates low-confidence results to
// a secondary analyzer. The rule engine never escalates on its own.
type Hybrid struct {
	Engine    *Engine
	Secondary SecondaryAnalyzer // may be nil
	Threshold float64
	Logger    logrus.FieldLogger
}

// HybridResult is a final result plus whether the secondary analyzer was
// consulted.
type HybridResult struct {
	AnalysisResult
	Escalated bool `json:"escalated"`
}

// NewHybrid returns a Hybrid using DefaultConfidenceThreshold.
func NewHybrid(engine *Engine, secondary SecondaryAnalyzer) *Hybrid {
	return &Hybrid{
		Engine:    engine,
		Secondary: secondary,
		Threshold: DefaultConfidenceThreshold,
	}
}

// Analyze scores text with the rule engine. When the local confidence is
// below the threshold and a secondary analyzer is set, the secondary result
// replaces the local one if it is more confident. A secondary failure is
// logged and the local result returned. An alert raised by the rule engine
// is never dropped.
func (h *Hybrid) Analyze(ctx context.Context, text string) HybridResult {
	local := h.Engine.Analyze(text)
	if h.Secondary == nil || local.Confidence >= h.Threshold {
		return HybridResult{AnalysisResult: local}
	}

	logger := h.Logger
	if logger == nil {
		logger = h.Engine.logger
	}

	remote, err := h.Secondary.Analyze(ctx, text, local)
	if err != nil {
		logger.WithError(err).WithField("confidence", local.Confidence).
			Warn("secondary analyzer failed, keeping rule-based result")
		return HybridResult{AnalysisResult: local, Escalated: true}
	}

	if remote.Confidence <= local.Confidence {
		logger.WithFields(logrus.Fields{
			"local":     local.Confidence,
			"secondary": remote.Confidence,
		}).Debug("secondary analyzer was not more confident")
		return HybridResult{AnalysisResult: local, Escalated: true}
	}

	remote.Source = SourceSecondary
	remote.IsAlert = remote.IsAlert || local.IsAlert
	remote.Explanation = fmt.Sprintf("%s (Confianza local: %.0f%%)", remote.Explanation, local.Confidence*100)
	if remote.Emotions == nil {
		remote.Emotions = map[string]int{}
	}
	if remote.Keywords == nil {
		remote.Keywords = local.Keywords
	}
	return HybridResult{AnalysisResult: remote, Escalated: true}
}
