package sentimiento

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Engine analyzes Spanish text against a set of Tables. An Engine is safe
// for concurrent use.
type Engine struct {
	tables    *Tables
	tokenizer *WordTokenizer
	language  string
	logger    logrus.FieldLogger

	segmenterOnce sync.Once
	segmenter     *segmenter
}

// EngineOpt configures an Engine.
type EngineOpt func(*Engine)

// WithTables analyzes against t instead of the built-in tables.
func WithTables(t *Tables) EngineOpt {
	return func(e *Engine) {
		e.tables = t
	}
}

// WithLogger sets the logger used for diagnostics. The default discards
// everything.
func WithLogger(l logrus.FieldLogger) EngineOpt {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithLanguage sets the ISO 639-1 code used for stop words. The default is
// "es".
func WithLanguage(code string) EngineOpt {
	return func(e *Engine) {
		e.language = code
	}
}

// NewEngine returns an Engine. Without WithTables it uses DefaultTables.
func NewEngine(opts ...EngineOpt) (*Engine, error) {
	e := &Engine{
		tokenizer: NewWordTokenizer(),
		language:  "es",
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = discardLogger()
	}
	if e.tables == nil {
		t, err := DefaultTables()
		if err != nil {
			return nil, fmt.Errorf("error loading default tables: %w", err)
		}
		e.tables = t
	}

	e.logger.WithFields(logrus.Fields{
		"words":    e.tables.Lexicon.Len(),
		"patterns": len(e.tables.Patterns),
		"language": e.language,
	}).Debug("sentiment engine ready")

	return e, nil
}

// Tables returns the tables the engine analyzes against.
func (e *Engine) Tables() *Tables {
	return e.tables
}

// Analyze scores text. It never fails: empty or unrecognized input yields a
// Neutral result with score 0, no emotions and confidence 0.5.
func (e *Engine) Analyze(text string) AnalysisResult {
	return aggregate(e.Breakdown(text))
}

// Breakdown returns the pattern and token signals Analyze aggregates.
func (e *Engine) Breakdown(text string) Breakdown {
	normalized := Normalize(text)

	sig := matchPatterns(normalized, e.tables)
	tokens, tokenTally := scoreTokens(e.tokenizer.Tokenize(normalized), e.tables)

	tally := sig.tally
	for emotion, n := range tokenTally {
		tally[emotion] += n
	}

	return Breakdown{
		Patterns: sig.matches,
		Tokens:   tokens,
		Tally:    tally,
		RawScore: rawScore(sig.matches, tokens),
		Alert:    sig.alert,
	}
}

var (
	defaultEngineOnce sync.Once
	defaultEngine     *Engine
)

// Analyze scores text with an Engine over the built-in tables.
func Analyze(text string) AnalysisResult {
	defaultEngineOnce.Do(func() {
		e, err := NewEngine()
		if err != nil {
			panic(fmt.Sprintf("sentimiento: built-in tables are invalid: %v", err))
		}
		defaultEngine = e
	})
	return defaultEngine.Analyze(text)
}
