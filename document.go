package sentimiento

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/neurosnap/sentences.v1"
	"gopkg.in/neurosnap/sentences.v1/english"
)

// segmenter splits text into sentences with a punkt model. The sentences
// package only bundles English training data, so every language uses it.
type segmenter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

func newSegmenter() (*segmenter, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("error loading punkt data: %w", err)
	}
	return &segmenter{tokenizer: tokenizer}, nil
}

type span struct {
	text       string
	start, end int
}

// segment returns the non-blank sentences of text with their byte offsets.
func (s *segmenter) segment(text string) []span {
	var spans []span
	cursor := 0
	for _, sent := range s.tokenizer.Tokenize(text) {
		trimmed := strings.TrimSpace(sent.Text)
		if trimmed == "" {
			continue
		}
		start := cursor
		if idx := strings.Index(text[cursor:], trimmed); idx >= 0 {
			start = cursor + idx
		}
		end := start + len(trimmed)
		if end > len(text) {
			end = len(text)
		}
		spans = append(spans, span{text: trimmed, start: start, end: end})
		cursor = end
	}
	return spans
}

// fallbackSegment treats the whole text as one sentence.
func fallbackSegment(text string) []span {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	start := strings.Index(text, trimmed)
	return []span{{text: trimmed, start: start, end: start + len(trimmed)}}
}

func (e *Engine) sentenceSpans(text string) []span {
	e.segmenterOnce.Do(func() {
		seg, err := newSegmenter()
		if err != nil {
			e.logger.WithError(err).
				Warn("sentence segmentation unavailable, analyzing text as one sentence")
			return
		}
		e.segmenter = seg
	})
	if e.segmenter == nil {
		return fallbackSegment(text)
	}
	return e.segmenter.segment(text)
}

// AnalyzeSentences scores every sentence of text on its own and reports
// the spread of the sentence scores. Overall is the analysis of the whole
// text.
func (e *Engine) AnalyzeSentences(text string) Document {
	doc := Document{
		Sentences: []SentenceScore{},
		Overall:   e.Analyze(text),
	}

	spans := e.sentenceSpans(text)
	if len(spans) == 0 {
		return doc
	}

	scores := make([]float64, 0, len(spans))
	for _, sp := range spans {
		res := e.Analyze(sp.text)
		doc.Sentences = append(doc.Sentences, SentenceScore{
			Text:   sp.text,
			Start:  sp.start,
			End:    sp.end,
			Result: res,
		})
		scores = append(scores, float64(res.Score))
		if res.IsAlert {
			doc.Alerts++
		}
	}

	doc.MeanScore = stat.Mean(scores, nil)
	if len(scores) > 1 {
		doc.ScoreStdDev = stat.StdDev(scores, nil)
	}
	return doc
}
