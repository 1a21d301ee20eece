package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nurpath/nurpath/internal/model"
)

func TestMetricsRecordOnPrivateRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveAsk("passed")
	m.ObserveAsk("passed")
	m.ObserveAsk("abstained_by_safety_policy")
	m.RetrievalDegraded()
	m.RetrievalExpanded()
	m.ObserveTopScore(0.42)
	m.ObserveStage("retrieved", 20*time.Millisecond)
	m.GateResult("grounding", true)
	m.GateResult("grounding", false)
	m.ObserveIkhtilaf("disagreement")

	if got := testutil.ToFloat64(m.askTotal.WithLabelValues("passed")); got != 2 {
		t.Errorf("ask_total{passed} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.retrievalDegraded); got != 1 {
		t.Errorf("degraded_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.gateResults.WithLabelValues("grounding", "fail")); got != 1 {
		t.Errorf("gate_results_total{grounding,fail} = %v, want 1", got)
	}

	expected := `
# HELP nurpath_ikhtilaf_total Ikhtilaf classifications by status
# TYPE nurpath_ikhtilaf_total counter
nurpath_ikhtilaf_total{status="disagreement"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "nurpath_ikhtilaf_total"); err != nil {
		t.Errorf("unexpected ikhtilaf metric: %v", err)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAsk("passed")
	m.RetrievalDegraded()
	m.RetrievalExpanded()
	m.ObserveTopScore(1)
	m.ObserveStage("drafted", time.Second)
	m.GateResult("citation", true)
	m.ObserveIkhtilaf("consensus")
}

func TestSetupTracing(t *testing.T) {
	shutdown, err := SetupTracing(model.TelemetryConfig{TraceExporter: "none"}, "test")
	if err != nil {
		t.Fatalf("none exporter: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown: %v", err)
	}

	_, err = SetupTracing(model.TelemetryConfig{TraceExporter: "jaeger"}, "test")
	if !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("expected ErrUnknownExporter, got %v", err)
	}
}
