package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tsawler/sentimiento"
)

func newTestServer(t *testing.T, secondary sentimiento.SecondaryAnalyzer) *Server {
	t.Helper()
	e, err := sentimiento.NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return New(sentimiento.NewHybrid(e, secondary), 256, nil)
}

func post(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		OK          bool   `json:"ok"`
		Engine      string `json:"engine"`
		LexiconSize int    `json:"lexicon_size"`
		Patterns    int    `json:"patterns"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.OK || body.Engine != "rules" || body.LexiconSize == 0 || body.Patterns == 0 {
		t.Errorf("unexpected health body: %+v", body)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	rec := post(t, s, "/v1/sentiment/analyze", `{"text":"Me siento muy feliz hoy"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var body struct {
		Classification string         `json:"classification"`
		Score          int            `json:"score"`
		Emotions       map[string]int `json:"emotions"`
		Source         string         `json:"source"`
		Escalated      bool           `json:"escalated"`
		RequestID      string         `json:"request_id"`
		LatencyMS      float64        `json:"latency_ms"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Classification != "Positive" || body.Score != 45 {
		t.Errorf("unexpected result: %+v", body)
	}
	if body.Emotions["alegría"] != 100 {
		t.Errorf("expected alegría 100, got %v", body.Emotions)
	}
	if body.Source != "rules" || body.Escalated {
		t.Errorf("expected a local result, got source=%q escalated=%v", body.Source, body.Escalated)
	}
	if len(body.RequestID) != 36 {
		t.Errorf("expected a UUID request id, got %q", body.RequestID)
	}
	if body.LatencyMS < 0 {
		t.Errorf("negative latency: %v", body.LatencyMS)
	}
}

func TestAnalyzeEmptyText(t *testing.T) {
	s := newTestServer(t, nil)
	rec := post(t, s, "/v1/sentiment/analyze", `{"text":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty text should not be an error, got %d", rec.Code)
	}
	var res sentimiento.AnalysisResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Classification != sentimiento.Neutral || res.Score != 0 {
		t.Errorf("expected a neutral result, got %s", res)
	}
}

func TestAnalyzeBadRequests(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"text":`, "invalid json"},
		{"unknown field", `{"text":"hola","lang":"es"}`, "unknown field"},
		{"multiple values", `{"text":"a"}{"text":"b"}`, "multiple JSON values"},
		{"too large", `{"text":"` + strings.Repeat("a", 300) + `"}`, "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s, "/v1/sentiment/analyze", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("expected error containing %q, got %s", tt.want, rec.Body)
			}
		})
	}
}

func TestAnalyzeEscalation(t *testing.T) {
	secondary := sentimiento.SecondaryFunc(func(context.Context, string, sentimiento.AnalysisResult) (sentimiento.AnalysisResult, error) {
		return sentimiento.AnalysisResult{
			Classification: sentimiento.Negative,
			Score:          -95,
			Emotions:       map[string]int{"tristeza": 95},
			Intensity:      sentimiento.High,
			Explanation:    "Análisis ML: tristeza detectado con 95% de confianza.",
			Confidence:     0.95,
		}, nil
	})
	s := newTestServer(t, secondary)

	rec := post(t, s, "/v1/sentiment/analyze", `{"text":"mal"}`)
	var body struct {
		Source    string `json:"source"`
		Escalated bool   `json:"escalated"`
		Score     int    `json:"score"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Source != "secondary" || !body.Escalated || body.Score != -95 {
		t.Errorf("expected the secondary result, got %+v", body)
	}
}

func TestSentencesEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	rec := post(t, s, "/v1/sentiment/sentences", `{"text":"Me siento muy feliz hoy. Estoy hasta las narices."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var doc sentimiento.Document
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(doc.Sentences))
	}
	if doc.Sentences[0].Result.Score != 45 || doc.Sentences[1].Result.Score != -30 {
		t.Errorf("unexpected sentence scores: %d, %d", doc.Sentences[0].Result.Score, doc.Sentences[1].Result.Score)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	post(t, s, "/v1/sentiment/analyze", `{"text":"sin esperanza"}`)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, name := range []string{"sentimiento_requests_total", "sentimiento_alerts_total", "sentimiento_latency_seconds"} {
		if !strings.Contains(rec.Body.String(), name) {
			t.Errorf("expected metric %s in output", name)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sentiment/analyze", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestRunShutdown(t *testing.T) {
	s := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
