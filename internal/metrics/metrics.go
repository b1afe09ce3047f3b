package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tsawler/sentimiento"
)

// Prometheus collectors for the sentiment service
var (
	// sentimiento_requests_total{endpoint=analyze|sentences}
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentimiento_requests_total",
		Help: "Total number of analysis requests received",
	}, []string{"endpoint"})

	// sentimiento_classification_total{classification=Positive|Negative|Neutral, source=rules|secondary}
	ClassificationCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentimiento_classification_total",
		Help: "Number of results by classification and producing analyzer",
	}, []string{"classification", "source"})

	// sentimiento_alerts_total
	AlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentimiento_alerts_total",
		Help: "Number of analyses that raised a risk alert",
	})

	// sentimiento_escalations_total{outcome=adopted|kept_local}
	Escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentimiento_escalations_total",
		Help: "Low-confidence results sent to the secondary analyzer",
	}, []string{"outcome"})

	// sentimiento_latency_seconds (histogram): analysis duration
	LatencyHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentimiento_latency_seconds",
		Help:    "Analysis latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// sentimiento_confidence (histogram): confidence of returned results
	ConfidenceHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentimiento_confidence",
		Help:    "Confidence of returned results",
		Buckets: prometheus.LinearBuckets(0.5, 0.05, 11),
	})
)

// RecordRequest increments the request counter for endpoint.
func RecordRequest(endpoint string) {
	RequestsTotal.WithLabelValues(endpoint).Inc()
}

// RecordResult records the outcome of one hybrid analysis.
func RecordResult(res sentimiento.HybridResult, took time.Duration) {
	ClassificationCount.WithLabelValues(res.Classification.String(), res.Source).Inc()
	ConfidenceHistogram.Observe(res.Confidence)
	LatencyHistogram.Observe(took.Seconds())
	if res.IsAlert {
		AlertsTotal.Inc()
	}
	if res.Escalated {
		outcome := "kept_local"
		if res.Source == sentimiento.SourceSecondary {
			outcome = "adopted"
		}
		Escalations.WithLabelValues(outcome).Inc()
	}
}
