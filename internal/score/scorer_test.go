package score

import (
	"math"
	"testing"

	"github.com/nurpath/nurpath/internal/model"
)

func cards(relevance ...float64) []model.EvidenceCard {
	out := make([]model.EvidenceCard, len(relevance))
	for i, r := range relevance {
		out[i] = model.EvidenceCard{
			PassageID:      string(rune('a' + i)),
			SourceID:       string(rune('a' + i)),
			SourceType:     model.SourceHadith,
			RelevanceScore: r,
		}
	}
	return out
}

func passed(grounding, faithfulness float64) model.ValidationResult {
	return model.ValidationResult{
		Grounding:    model.GateScore{Score: grounding, Passed: true},
		Faithfulness: model.GateScore{Score: faithfulness, Passed: true},
		Passed:       true,
		Reason:       model.ReasonPassed,
	}
}

func TestRetrievalConfidence(t *testing.T) {
	tests := []struct {
		cards []model.EvidenceCard
		want  float64
	}{
		{nil, 0},
		{cards(0.5), 0.55},        // 0.2 + 0.15 + 0.2
		{cards(0.5, 0.5), 0.7},    // 0.2 + 0.3 + 0.2
		{cards(1, 1, 1, 1), 0.95}, // capped
		{cards(0, 0, 0), 0.65},    // 0.2 + 0.45
	}
	for _, tt := range tests {
		if got := RetrievalConfidence(tt.cards); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RetrievalConfidence(%d cards) = %v, want %v", len(tt.cards), got, tt.want)
		}
	}
}

func TestComposite(t *testing.T) {
	got := Composite(0.7, passed(0.8, 0.6))
	// 0.28 + 0.24 + 0.18
	if math.Abs(got-0.7) > 1e-9 {
		t.Errorf("Composite = %v, want 0.7", got)
	}
	if got := Composite(1, passed(1, 1)); got != 0.95 {
		t.Errorf("Composite is not capped: %v", got)
	}
}

func TestScorer_Levels(t *testing.T) {
	s := NewScorer(model.DefaultThresholds())

	high := s.Calculate(Input{Cards: cards(0.8, 0.7, 0.6), Validation: passed(0.9, 0.9)})
	if high.Level != "high" {
		t.Errorf("level = %s (confidence %v), want high", high.Level, high.Confidence)
	}

	failed := passed(0.9, 0.9)
	failed.Passed = false
	failed.Reason = model.ReasonCitationIntegrity
	low := s.Calculate(Input{Cards: cards(0.8, 0.7, 0.6), Validation: failed})
	if low.Level != "low" {
		t.Errorf("failed validation level = %s, want low", low.Level)
	}

	medium := s.Calculate(Input{Cards: cards(0.2), Validation: passed(0.5, 0.4)})
	if medium.Level != "medium" {
		t.Errorf("level = %s (confidence %v), want medium", medium.Level, medium.Confidence)
	}
}

func TestScorer_Signals(t *testing.T) {
	s := NewScorer(model.DefaultThresholds())
	result := s.Calculate(Input{
		Cards: cards(0.5, 0.4),
		Diagnostics: model.RetrievalDiagnostics{
			Degraded:           true,
			DegradedReason:     "embedding provider unavailable",
			ExpansionAttempted: true,
			TopScore:           0.12,
		},
		Ikhtilaf: model.IkhtilafAnalysis{
			Status:        model.IkhtilafDisagreement,
			Topic:         "wudu",
			ConflictPairs: []model.ConflictPair{{Topic: "wudu"}},
		},
		Validation: passed(0.6, 0.6),
		Fallback:   true,
		Drafter:    "openai",
	})

	seen := make(map[model.SignalType]model.Signal)
	for _, sig := range result.Signals {
		seen[sig.Type] = sig
	}
	for _, want := range []model.SignalType{
		model.SignalEvidenceCoverage,
		model.SignalSourceDiversity,
		model.SignalDegradedRetrieval,
		model.SignalWeakRetrieval,
		model.SignalIkhtilaf,
		model.SignalDraftFallback,
		model.SignalValidation,
	} {
		if _, ok := seen[want]; !ok {
			t.Errorf("missing signal %s", want)
		}
	}
	if seen[model.SignalValidation].Severity != model.SeverityInfo {
		t.Errorf("passed validation severity = %s", seen[model.SignalValidation].Severity)
	}
}

func TestScorer_NoEvidence(t *testing.T) {
	s := NewScorer(model.DefaultThresholds())
	result := s.Calculate(Input{Validation: model.ValidationResult{Reason: model.ReasonCitationIntegrity}})

	if result.Confidence != 0 || result.Retrieval != 0 {
		t.Errorf("confidence = %v retrieval = %v, want 0", result.Confidence, result.Retrieval)
	}
	if result.Signals[0].Severity != model.SeverityCritical {
		t.Errorf("coverage severity = %s, want critical", result.Signals[0].Severity)
	}
	for _, sig := range result.Signals {
		if sig.Type == model.SignalDegradedRetrieval || sig.Type == model.SignalIkhtilaf {
			t.Errorf("unexpected signal %s", sig.Type)
		}
	}
}
