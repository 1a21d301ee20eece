// Package observability holds the Prometheus metrics and OpenTelemetry
// tracer setup shared by the pipeline, retriever and HTTP server.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nurpath"

// Metrics groups the service collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	askTotal           *prometheus.CounterVec
	retrievalDegraded  prometheus.Counter
	retrievalExpansion prometheus.Counter
	retrievalTopScore  prometheus.Histogram
	stageDuration      *prometheus.HistogramVec
	gateResults        *prometheus.CounterVec
	ikhtilafTotal      *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// Labels: decision (passed or a failure reason code)
		askTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ask_total",
			Help:      "Answered questions by validation decision",
		}, []string{"decision"}),
		retrievalDegraded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "degraded_total",
			Help:      "Retrieval attempts that fell back to lexical-only scoring",
		}),
		retrievalExpansion: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "expansions_total",
			Help:      "Query-expansion retries after weak retrieval",
		}),
		retrievalTopScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "top_score",
			Help:      "Distribution of the best fused retrieval score per question",
			Buckets:   []float64{0.05, 0.1, 0.15, 0.2, 0.28, 0.35, 0.5, 0.65, 0.8, 0.9, 1.0},
		}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each answer pipeline stage",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"stage"}),
		// Labels: gate (citation, grounding, faithfulness, safety), result (pass, fail)
		gateResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_results_total",
			Help:      "Validation gate outcomes",
		}, []string{"gate", "result"}),
		ikhtilafTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ikhtilaf_total",
			Help:      "Ikhtilaf classifications by status",
		}, []string{"status"}),
	}
}

// ObserveAsk counts one finished question
func (m *Metrics) ObserveAsk(decision string) {
	if m == nil {
		return
	}
	m.askTotal.WithLabelValues(decision).Inc()
}

// RetrievalDegraded counts one lexical-only retrieval attempt
func (m *Metrics) RetrievalDegraded() {
	if m == nil {
		return
	}
	m.retrievalDegraded.Inc()
}

// RetrievalExpanded counts one expansion retry
func (m *Metrics) RetrievalExpanded() {
	if m == nil {
		return
	}
	m.retrievalExpansion.Inc()
}

// ObserveTopScore records the best fused score of a retrieval
func (m *Metrics) ObserveTopScore(score float64) {
	if m == nil {
		return
	}
	m.retrievalTopScore.Observe(score)
}

// ObserveStage records the duration of a pipeline stage
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// GateResult counts one gate outcome
func (m *Metrics) GateResult(gate string, passed bool) {
	if m == nil {
		return
	}
	result := "fail"
	if passed {
		result = "pass"
	}
	m.gateResults.WithLabelValues(gate, result).Inc()
}

// ObserveIkhtilaf counts one ikhtilaf classification
func (m *Metrics) ObserveIkhtilaf(status string) {
	if m == nil {
		return
	}
	m.ikhtilafTotal.WithLabelValues(status).Inc()
}
