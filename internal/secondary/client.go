// Package secondary is an HTTP client for a machine-learning emotion
// classifier, usable as the secondary analyzer of a sentimiento.Hybrid.
package secondary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsawler/sentimiento"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 1500 * time.Millisecond

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// maxKeywordRunes is how much of the input text is echoed as the keyword.
const maxKeywordRunes = 50

// ErrNotConfigured is returned by Analyze when the client has no base URL.
var ErrNotConfigured = errors.New("secondary analyzer is not configured")

// names the model emits without accents
var emotionNames = map[string]string{
	"alegria":  "alegría",
	"tristeza": "tristeza",
	"ira":      "ira",
	"miedo":    "miedo",
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  logrus.FieldLogger
}

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	Emotion       string             `json:"emotion"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// NewClient returns a client for the service at baseURL. A zero timeout
// uses DefaultTimeout; a nil logger discards output.
func NewClient(baseURL string, timeout time.Duration, logger logrus.FieldLogger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.WithField("component", "secondary"),
	}
}

// Enabled reports whether a base URL is set.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Analyze classifies text with the remote model. The local result is not
// sent; it only satisfies sentimiento.SecondaryAnalyzer.
func (c *Client) Analyze(ctx context.Context, text string, _ sentimiento.AnalysisResult) (sentimiento.AnalysisResult, error) {
	if !c.Enabled() {
		return sentimiento.AnalysisResult{}, ErrNotConfigured
	}

	body, err := json.Marshal(predictRequest{Text: text})
	if err != nil {
		return sentimiento.AnalysisResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return sentimiento.AnalysisResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return sentimiento.AnalysisResult{}, fmt.Errorf("secondary request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp.Body)
	if err != nil {
		return sentimiento.AnalysisResult{}, err
	}
	if resp.StatusCode >= 300 {
		return sentimiento.AnalysisResult{}, fmt.Errorf("secondary status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out predictResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return sentimiento.AnalysisResult{}, fmt.Errorf("secondary response: %w", err)
	}
	if out.Emotion == "" {
		return sentimiento.AnalysisResult{}, errors.New("secondary response: missing emotion")
	}

	c.logger.WithFields(logrus.Fields{
		"emotion":    out.Emotion,
		"confidence": out.Confidence,
		"took":       time.Since(start),
	}).Debug("secondary prediction")

	return toResult(text, out), nil
}

// Healthy reports whether the service is up with its model loaded.
func (c *Client) Healthy(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithError(err).Debug("secondary health check failed")
		return false
	}
	defer resp.Body.Close()

	body, err := readBody(resp.Body)
	if err != nil {
		return false
	}
	var out healthResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false
	}
	return out.Status == "ok" && out.ModelLoaded
}

func readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("secondary read body: %w", err)
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("secondary response body exceeds %d bytes", maxResponseBytes)
	}
	return data, nil
}

func emotionName(label string) string {
	if name, ok := emotionNames[label]; ok {
		return name
	}
	return label
}

func toResult(text string, out predictResponse) sentimiento.AnalysisResult {
	emotions := make(map[string]int, len(out.Probabilities))
	for label, p := range out.Probabilities {
		emotions[emotionName(label)] = int(math.Round(p * 100))
	}

	main := emotionName(out.Emotion)
	pct := int(math.Round(out.Confidence * 100))

	class := sentimiento.Neutral
	switch main {
	case "alegría":
		class = sentimiento.Positive
	case "tristeza", "miedo", "ira":
		class = sentimiento.Negative
	}

	score := -pct
	if main == "alegría" {
		score = pct
	}

	intensity := sentimiento.Low
	switch {
	case out.Confidence > 0.9:
		intensity = sentimiento.High
	case out.Confidence > 0.7:
		intensity = sentimiento.Medium
	}

	keyword := []rune(text)
	if len(keyword) > maxKeywordRunes {
		keyword = keyword[:maxKeywordRunes]
	}

	return sentimiento.AnalysisResult{
		Classification: class,
		Score:          score,
		Emotions:       emotions,
		Intensity:      intensity,
		Keywords:       []string{string(keyword)},
		Explanation:    fmt.Sprintf("Análisis ML: %s detectado con %d%% de confianza.", main, pct),
		Confidence:     out.Confidence,
		Source:         sentimiento.SourceSecondary,
	}
}
