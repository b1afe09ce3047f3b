package sentimiento

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed data/lexicon.json
var defaultLexiconJSON []byte

//go:embed data/patterns.json
var defaultPatternsJSON []byte

var (
	// ErrInvalidTable reports a table entry that fails validation.
	ErrInvalidTable = errors.New("invalid table")
	// ErrInvalidPattern reports a pattern that does not compile or lacks
	// the capture groups its kind requires.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrUnknownFormat reports a table file whose extension is not
	// .json, .yaml or .yml.
	ErrUnknownFormat = errors.New("unknown table format")
)

// TableError describes a configuration table that failed to load.
type TableError struct {
	Source string // file path, or "embedded"
	Key    string // offending word, pattern or field; may be empty
	Err    error
}

func (e *TableError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s: %q: %v", e.Source, e.Key, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}

// Format is the serialization of a table file.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFromPath picks the table format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// LexiconEntry holds a word's signed intensity and its emotion tags. The
// first tag is the primary emotion.
type LexiconEntry struct {
	Score    float64  `json:"score" yaml:"score"`
	Emotions []string `json:"emotions" yaml:"emotions" validate:"required,min=1,dive,required"`
}

// Primary returns the first-listed emotion tag.
func (e LexiconEntry) Primary() string {
	if len(e.Emotions) == 0 {
		return ""
	}
	return e.Emotions[0]
}

// LexiconFile is the serialized form of a lexicon table.
type LexiconFile struct {
	Words map[string]LexiconEntry `json:"words" yaml:"words" validate:"required,dive"`
}

// PatternFile is the serialized form of the pattern table. It also carries
// the modifier and negation word lists.
type PatternFile struct {
	Patterns  []PatternDefinition `json:"patterns" yaml:"patterns" validate:"dive"`
	Modifiers map[string]float64  `json:"modifiers" yaml:"modifiers" validate:"dive,gt=0"`
	Negations []string            `json:"negations" yaml:"negations" validate:"dive,required"`
}

// Lexicon maps normalized word forms to their entries. It is read-only once
// built.
type Lexicon struct {
	words map[string]LexiconEntry
}

// Lookup returns the entry for an already-normalized word.
func (l *Lexicon) Lookup(word string) (LexiconEntry, bool) {
	entry, ok := l.words[word]
	return entry, ok
}

// Len returns the number of words in the lexicon.
func (l *Lexicon) Len() int {
	return len(l.words)
}

// Words returns the lexicon's words in sorted order.
func (l *Lexicon) Words() []string {
	words := make([]string, 0, len(l.words))
	for w := range l.words {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// ModifierTable maps intensity modifiers to positive multipliers: above 1
// amplifies, below 1 attenuates.
type ModifierTable struct {
	factors map[string]float64
}

// Factor returns the multiplier for word and whether word is a modifier.
func (m *ModifierTable) Factor(word string) (float64, bool) {
	f, ok := m.factors[word]
	return f, ok
}

// Len returns the number of modifiers.
func (m *ModifierTable) Len() int {
	return len(m.factors)
}

// NegationSet is the set of words that invert the sign of the next scored
// word.
type NegationSet struct {
	words map[string]struct{}
}

// Contains reports whether word is a negation.
func (n *NegationSet) Contains(word string) bool {
	_, ok := n.words[word]
	return ok
}

// Len returns the number of negation words.
func (n *NegationSet) Len() int {
	return len(n.words)
}

// Tables bundles the immutable configuration an Engine reads.
type Tables struct {
	Lexicon   *Lexicon
	Modifiers *ModifierTable
	Negations *NegationSet
	Patterns  []*Pattern // in declaration order
}

var tableValidator = validator.New(validator.WithRequiredStructEnabled())

// NewTables validates and compiles decoded table files. Any invalid entry
// fails the whole load.
func NewTables(lex LexiconFile, pat PatternFile) (*Tables, error) {
	return buildTables(lex, pat, "memory", "memory")
}

func buildTables(lex LexiconFile, pat PatternFile, lexSource, patSource string) (*Tables, error) {
	if err := tableValidator.Struct(lex); err != nil {
		return nil, validationError(lexSource, err)
	}
	if err := tableValidator.Struct(pat); err != nil {
		return nil, validationError(patSource, err)
	}

	lexicon := &Lexicon{words: make(map[string]LexiconEntry, len(lex.Words))}
	for word, entry := range lex.Words {
		key, err := normalizeKey(word)
		if err != nil {
			return nil, &TableError{Source: lexSource, Key: word, Err: err}
		}
		if !isFinite(entry.Score) {
			return nil, &TableError{Source: lexSource, Key: word,
				Err: fmt.Errorf("%w: score must be finite", ErrInvalidTable)}
		}
		if _, dup := lexicon.words[key]; dup {
			return nil, &TableError{Source: lexSource, Key: word,
				Err: fmt.Errorf("%w: duplicate word after normalization", ErrInvalidTable)}
		}
		lexicon.words[key] = LexiconEntry{Score: entry.Score, Emotions: append([]string(nil), entry.Emotions...)}
	}

	modifiers := &ModifierTable{factors: make(map[string]float64, len(pat.Modifiers))}
	for word, factor := range pat.Modifiers {
		key, err := normalizeKey(word)
		if err != nil {
			return nil, &TableError{Source: patSource, Key: word, Err: err}
		}
		if !isFinite(factor) {
			return nil, &TableError{Source: patSource, Key: word,
				Err: fmt.Errorf("%w: factor must be finite", ErrInvalidTable)}
		}
		modifiers.factors[key] = factor
	}

	negations := &NegationSet{words: make(map[string]struct{}, len(pat.Negations))}
	for _, word := range pat.Negations {
		key, err := normalizeKey(word)
		if err != nil {
			return nil, &TableError{Source: patSource, Key: word, Err: err}
		}
		negations.words[key] = struct{}{}
	}

	patterns := make([]*Pattern, 0, len(pat.Patterns))
	for _, def := range pat.Patterns {
		if !isFinite(def.Score) {
			return nil, &TableError{Source: patSource, Key: def.Pattern,
				Err: fmt.Errorf("%w: score must be finite", ErrInvalidTable)}
		}
		p, err := CompilePattern(def)
		if err != nil {
			return nil, &TableError{Source: patSource, Key: def.Pattern, Err: err}
		}
		patterns = append(patterns, p)
	}

	return &Tables{
		Lexicon:   lexicon,
		Modifiers: modifiers,
		Negations: negations,
		Patterns:  patterns,
	}, nil
}

// normalizeKey folds a table key the same way analyzed text is folded, with
// internal whitespace collapsed so multi-word modifiers match captures.
func normalizeKey(word string) (string, error) {
	key := strings.Join(strings.Fields(Normalize(word)), " ")
	if key == "" {
		return "", fmt.Errorf("%w: empty word", ErrInvalidTable)
	}
	return key, nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func validationError(source string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return &TableError{
			Source: source,
			Key:    first.Namespace(),
			Err:    fmt.Errorf("%w: failed %q rule", ErrInvalidTable, first.Tag()),
		}
	}
	return &TableError{Source: source, Err: fmt.Errorf("%w: %v", ErrInvalidTable, err)}
}

// DecodeLexicon parses a serialized lexicon table.
func DecodeLexicon(r io.Reader, format Format) (LexiconFile, error) {
	var lex LexiconFile
	if err := decode(r, format, &lex); err != nil {
		return LexiconFile{}, fmt.Errorf("error parsing lexicon: %w", err)
	}
	return lex, nil
}

// DecodePatterns parses a serialized pattern table.
func DecodePatterns(r io.Reader, format Format) (PatternFile, error) {
	var pat PatternFile
	if err := decode(r, format, &pat); err != nil {
		return PatternFile{}, fmt.Errorf("error parsing patterns: %w", err)
	}
	return pat, nil
}

func decode(r io.Reader, format Format, out any) error {
	switch format {
	case JSON:
		return json.NewDecoder(r).Decode(out)
	case YAML:
		return yaml.NewDecoder(r).Decode(out)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

var (
	defaultTablesOnce sync.Once
	defaultTables     *Tables
	defaultTablesErr  error
)

// DefaultTables returns the built-in Spanish tables. They are decoded and
// validated once per process.
func DefaultTables() (*Tables, error) {
	defaultTablesOnce.Do(func() {
		var lex LexiconFile
		var pat PatternFile
		lex, defaultTablesErr = embeddedLexicon()
		if defaultTablesErr != nil {
			return
		}
		pat, defaultTablesErr = embeddedPatterns()
		if defaultTablesErr != nil {
			return
		}
		defaultTables, defaultTablesErr = buildTables(lex, pat, "embedded", "embedded")
	})
	return defaultTables, defaultTablesErr
}

func embeddedLexicon() (LexiconFile, error) {
	return DecodeLexicon(strings.NewReader(string(defaultLexiconJSON)), JSON)
}

func embeddedPatterns() (PatternFile, error) {
	return DecodePatterns(strings.NewReader(string(defaultPatternsJSON)), JSON)
}

// LoadTables reads lexicon and pattern tables from disk. An empty path
// selects the embedded table of that kind. The format follows each file's
// extension.
func LoadTables(lexiconPath, patternsPath string, logger logrus.FieldLogger) (*Tables, error) {
	if logger == nil {
		logger = discardLogger()
	}

	lexSource, patSource := "embedded", "embedded"
	var (
		lex LexiconFile
		pat PatternFile
		err error
	)

	if lexiconPath == "" {
		lex, err = embeddedLexicon()
	} else {
		lexSource = lexiconPath
		err = readTableFile(lexiconPath, func(r io.Reader, f Format) error {
			lex, err = DecodeLexicon(r, f)
			return err
		})
	}
	if err != nil {
		return nil, &TableError{Source: lexSource, Err: err}
	}

	if patternsPath == "" {
		pat, err = embeddedPatterns()
	} else {
		patSource = patternsPath
		err = readTableFile(patternsPath, func(r io.Reader, f Format) error {
			pat, err = DecodePatterns(r, f)
			return err
		})
	}
	if err != nil {
		return nil, &TableError{Source: patSource, Err: err}
	}

	tables, err := buildTables(lex, pat, lexSource, patSource)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"lexicon":   lexSource,
		"patterns":  patSource,
		"words":     tables.Lexicon.Len(),
		"rules":     len(tables.Patterns),
		"modifiers": tables.Modifiers.Len(),
		"negations": tables.Negations.Len(),
	}).Info("loaded sentiment tables")

	return tables, nil
}

func readTableFile(path string, parse func(io.Reader, Format) error) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error reading table file: %w", err)
	}
	defer f.Close()
	return parse(f, format)
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
