// Package score turns retrieval and validation outcomes into a single
// confidence value with the signals that explain it.
package score

import (
	"fmt"
	"math"

	"github.com/nurpath/nurpath/internal/model"
)

const (
	confidenceCap = 0.95

	retrievalBase      = 0.2
	retrievalPerCard   = 0.15
	retrievalRelevance = 0.4

	compositeRetrieval    = 0.4
	compositeGrounding    = 0.3
	compositeFaithfulness = 0.3

	mediumFloor = 0.4
)

// Input is everything the scorer looks at for one answer
type Input struct {
	Cards       []model.EvidenceCard
	Diagnostics model.RetrievalDiagnostics
	Ikhtilaf    model.IkhtilafAnalysis
	Validation  model.ValidationResult
	Fallback    bool   // The configured drafter failed and the template drafter answered
	Drafter     string // Name of the drafter that produced the answer
}

// Scorer calculates confidence and generates signals
type Scorer struct {
	thresholds model.Thresholds
}

// NewScorer creates a scorer. thresholds.Confidence is the floor for the
// "high" level.
func NewScorer(thresholds model.Thresholds) *Scorer {
	return &Scorer{thresholds: thresholds}
}

// RetrievalConfidence is min(0.95, 0.2 + 0.15·cards + 0.4·mean relevance),
// or zero without cards
func RetrievalConfidence(cards []model.EvidenceCard) float64 {
	if len(cards) == 0 {
		return 0
	}
	return round3(math.Min(confidenceCap, retrievalBase+retrievalPerCard*float64(len(cards))+retrievalRelevance*meanRelevance(cards)))
}

// Composite is min(0.95, 0.4·retrieval + 0.3·grounding + 0.3·faithfulness)
func Composite(retrieval float64, v model.ValidationResult) float64 {
	c := compositeRetrieval*retrieval + compositeGrounding*v.Grounding.Score + compositeFaithfulness*v.Faithfulness.Score
	return round3(math.Min(confidenceCap, c))
}

// Calculate computes the confidence breakdown for one answer
func (s *Scorer) Calculate(in Input) model.Score {
	retrieval := RetrievalConfidence(in.Cards)
	confidence := Composite(retrieval, in.Validation)

	signals := []model.Signal{
		s.coverageSignal(in.Cards),
		s.diversitySignal(in.Cards),
	}
	if in.Diagnostics.Degraded {
		signals = append(signals, model.Signal{
			Type:        model.SignalDegradedRetrieval,
			Severity:    model.SeverityWarning,
			Description: "Embedding lookup unavailable; ranked by lexical overlap only",
			Data: map[string]interface{}{
				"reason": in.Diagnostics.DegradedReason,
				"lambda": in.Diagnostics.Lambda,
			},
		})
	}
	if in.Diagnostics.ExpansionAttempted {
		signals = append(signals, model.Signal{
			Type:        model.SignalWeakRetrieval,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("Top retrieval score %.3f was below the weak-retrieval threshold", in.Diagnostics.TopScore),
			Data: map[string]interface{}{
				"top_score":      in.Diagnostics.TopScore,
				"threshold":      s.thresholds.WeakRetrieval,
				"expanded_query": in.Diagnostics.ExpandedQuery,
			},
		})
	}
	if in.Ikhtilaf.Status == model.IkhtilafDisagreement {
		signals = append(signals, model.Signal{
			Type:        model.SignalIkhtilaf,
			Severity:    model.SeverityInfo,
			Description: fmt.Sprintf("Schools disagree on %s (%d conflicting pairs)", in.Ikhtilaf.Topic, len(in.Ikhtilaf.ConflictPairs)),
			Data: map[string]interface{}{
				"topic":   in.Ikhtilaf.Topic,
				"schools": in.Ikhtilaf.Schools,
			},
		})
	}
	if in.Fallback {
		signals = append(signals, model.Signal{
			Type:        model.SignalDraftFallback,
			Severity:    model.SeverityWarning,
			Description: "Configured drafter failed; extractive template answer used",
			Data:        map[string]interface{}{"drafter": in.Drafter},
		})
	}
	signals = append(signals, s.validationSignal(in.Validation))

	return model.Score{
		Confidence: confidence,
		Retrieval:  retrieval,
		Level:      s.level(confidence, in.Validation),
		Signals:    signals,
	}
}

func (s *Scorer) coverageSignal(cards []model.EvidenceCard) model.Signal {
	n := len(cards)
	severity := model.SeverityInfo
	switch {
	case n == 0:
		severity = model.SeverityCritical
	case n < 2:
		severity = model.SeverityWarning
	}
	return model.Signal{
		Type:        model.SignalEvidenceCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("%d evidence cards, mean relevance %.3f", n, meanRelevance(cards)),
		Data: map[string]interface{}{
			"cards":          n,
			"mean_relevance": meanRelevance(cards),
			"retrieval":      RetrievalConfidence(cards),
			"formula":        "min(0.95, 0.2 + 0.15*cards + 0.4*mean_relevance)",
		},
	}
}

func (s *Scorer) diversitySignal(cards []model.EvidenceCard) model.Signal {
	types := make(map[model.SourceType]int)
	sources := make(map[string]bool)
	for _, c := range cards {
		types[c.SourceType]++
		sources[c.SourceID] = true
	}
	severity := model.SeverityInfo
	if len(cards) > 1 && len(sources) < 2 {
		severity = model.SeverityWarning
	}
	return model.Signal{
		Type:        model.SignalSourceDiversity,
		Severity:    severity,
		Description: fmt.Sprintf("%d sources across %d source types", len(sources), len(types)),
		Data: map[string]interface{}{
			"quran":   types[model.SourceQuran],
			"hadith":  types[model.SourceHadith],
			"fiqh":    types[model.SourceFiqh],
			"sources": len(sources),
		},
	}
}

func (s *Scorer) validationSignal(v model.ValidationResult) model.Signal {
	severity := model.SeverityInfo
	if !v.Passed {
		severity = model.SeverityCritical
	}
	return model.Signal{
		Type:        model.SignalValidation,
		Severity:    severity,
		Description: fmt.Sprintf("Validation %s", v.Reason),
		Data: map[string]interface{}{
			"coverage":     v.Citation.Coverage,
			"grounding":    v.Grounding.Score,
			"faithfulness": v.Faithfulness.Score,
			"formula":      "min(0.95, 0.4*retrieval + 0.3*grounding + 0.3*faithfulness)",
		},
	}
}

// level maps confidence to low/medium/high. An answer that failed
// validation is never above low.
func (s *Scorer) level(confidence float64, v model.ValidationResult) string {
	if !v.Passed {
		return "low"
	}
	if confidence >= s.thresholds.Confidence {
		return "high"
	}
	if confidence >= mediumFloor {
		return "medium"
	}
	return "low"
}

func meanRelevance(cards []model.EvidenceCard) float64 {
	if len(cards) == 0 {
		return 0
	}
	var sum float64
	for _, c := range cards {
		sum += c.RelevanceScore
	}
	return sum / float64(len(cards))
}

func round3(v float64) float64 {
	return math.Round(v*1e3) / 1e3
}
