// Package server exposes sentiment analysis over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tsawler/sentimiento"
	"github.com/tsawler/sentimiento/internal/metrics"
)

const (
	defaultMaxBodyBytes = 65536
	shutdownTimeout     = 10 * time.Second
)

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	sentimiento.HybridResult
	RequestID string  `json:"request_id"`
	LatencyMS float64 `json:"latency_ms"`
}

type sentencesResponse struct {
	sentimiento.Document
	RequestID string  `json:"request_id"`
	LatencyMS float64 `json:"latency_ms"`
}

// Server is the HTTP front end for a Hybrid analyzer.
type Server struct {
	hybrid       *sentimiento.Hybrid
	maxBodyBytes int64
	logger       logrus.FieldLogger
	router       chi.Router
}

// New creates a Server. A maxBodyBytes of zero uses 64 KiB.
func New(h *sentimiento.Hybrid, maxBodyBytes int64, logger logrus.FieldLogger) *Server {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	s := &Server{
		hybrid:       h,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.WithField("component", "server"),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/sentiment/analyze", s.handleAnalyze)
	r.Post("/v1/sentiment/sentences", s.handleSentences)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	tables := s.hybrid.Engine.Tables()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"engine":       sentimiento.SourceRules,
		"lexicon_size": tables.Lexicon.Len(),
		"patterns":     len(tables.Patterns),
		"secondary":    s.hybrid.Secondary != nil,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, req *http.Request) {
	metrics.RecordRequest("analyze")
	requestID := uuid.NewString()

	var in analyzeRequest
	if err := decodeJSONBody(req, s.maxBodyBytes, &in); err != nil {
		s.logger.WithError(err).WithField("request_id", requestID).Debug("rejected analyze request")
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "request_id": requestID})
		return
	}

	start := time.Now()
	res := s.hybrid.Analyze(req.Context(), in.Text)
	took := time.Since(start)
	metrics.RecordResult(res, took)

	s.logger.WithFields(logrus.Fields{
		"request_id":     requestID,
		"classification": res.Classification,
		"score":          res.Score,
		"source":         res.Source,
		"escalated":      res.Escalated,
		"alert":          res.IsAlert,
	}).Info("analyzed text")

	writeJSON(w, http.StatusOK, analyzeResponse{
		HybridResult: res,
		RequestID:    requestID,
		LatencyMS:    roundMillis(took),
	})
}

func (s *Server) handleSentences(w http.ResponseWriter, req *http.Request) {
	metrics.RecordRequest("sentences")
	requestID := uuid.NewString()

	var in analyzeRequest
	if err := decodeJSONBody(req, s.maxBodyBytes, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "request_id": requestID})
		return
	}

	start := time.Now()
	doc := s.hybrid.Engine.AnalyzeSentences(in.Text)
	writeJSON(w, http.StatusOK, sentencesResponse{
		Document:  doc,
		RequestID: requestID,
		LatencyMS: roundMillis(time.Since(start)),
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("sentiment server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func decodeJSONBody(req *http.Request, maxBytes int64, out any) error {
	defer req.Body.Close()
	data, err := io.ReadAll(io.LimitReader(req.Body, maxBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return fmt.Errorf("request body too large")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("invalid json: multiple JSON values")
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func roundMillis(d time.Duration) float64 {
	ms := float64(d.Microseconds()) / 1000.0
	return math.Round(ms*1000) / 1000
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
