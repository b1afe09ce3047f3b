package sentimiento

import (
	"fmt"
	"regexp"
)

// PatternKind selects how a pattern's matches are scored.
type PatternKind string

const (
	// PhrasePattern carries its own score and emotion.
	PhrasePattern PatternKind = "phrase"
	// DirectEmotion captures an optional intensity word and an emotion word,
	// as in "me siento muy triste".
	DirectEmotion PatternKind = "direct_emotion"
	// DirectState is scored like DirectEmotion but describes a transient
	// state, as in "me puse nervioso".
	DirectState PatternKind = "direct_state"
)

// Templated reports whether the kind takes its score from the lexicon entry
// of a captured word.
func (k PatternKind) Templated() bool {
	return k == DirectEmotion || k == DirectState
}

// PatternDefinition is the serialized form of a pattern.
type PatternDefinition struct {
	Pattern string      `json:"pattern" yaml:"pattern" validate:"required"`
	Type    PatternKind `json:"type" yaml:"type" validate:"required,oneof=phrase direct_emotion direct_state"`
	Emotion string      `json:"emotion,omitempty" yaml:"emotion,omitempty" validate:"required_if=Type phrase"`
	Score   float64     `json:"score,omitempty" yaml:"score,omitempty"`
	Alert   bool        `json:"alert,omitempty" yaml:"alert,omitempty"`
}

// Pattern is a compiled, case-insensitive PatternDefinition.
type Pattern struct {
	def PatternDefinition
	re  *regexp.Regexp
}

// CompilePattern compiles def. Templated kinds need at least two capture
// groups: the intensity word and the emotion word.
func CompilePattern(def PatternDefinition) (*Pattern, error) {
	if err := tableValidator.Struct(def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	re, err := regexp.Compile("(?i)" + def.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	if def.Type.Templated() && re.NumSubexp() < 2 {
		return nil, fmt.Errorf("%w: %s pattern needs 2 capture groups, has %d",
			ErrInvalidPattern, def.Type, re.NumSubexp())
	}
	return &Pattern{def: def, re: re}, nil
}

// Kind returns the pattern's kind.
func (p *Pattern) Kind() PatternKind { return p.def.Type }

// Definition returns the definition the pattern was compiled from.
func (p *Pattern) Definition() PatternDefinition { return p.def }

func (p *Pattern) String() string { return p.def.Pattern }
