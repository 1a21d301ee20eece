package model

// ClaimSpan is a sentence-level assertion extracted from a draft answer
type ClaimSpan struct {
	Text    string `json:"text"`
	Start   int    `json:"start"` // Byte offset in the draft
	End     int    `json:"end"`
	Factual bool   `json:"factual"` // False for questions and content-free connectives
}

// DecisionReason explains why an answer passed or abstained
type DecisionReason string

const (
	ReasonPassed            DecisionReason = "passed"
	ReasonCitationIntegrity DecisionReason = "citation_integrity_failed"
	ReasonGroundingBelow    DecisionReason = "grounding_below_threshold"
	ReasonFaithfulnessBelow DecisionReason = "faithfulness_below_threshold"
	ReasonAbstainedBySafety DecisionReason = "abstained_by_safety_policy"
)

// CitationCheck is the span-level citation integrity outcome
type CitationCheck struct {
	Passed       bool     `json:"passed"`
	Coverage     float64  `json:"coverage"`
	MinCoverage  float64  `json:"min_coverage"`
	TotalClaims  int      `json:"total_claims"`
	MappedClaims int      `json:"mapped_claims"`
	Unmapped     []string `json:"unmapped,omitempty"`
}

// GateScore is a thresholded score
type GateScore struct {
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	Passed    bool    `json:"passed"`
}

// ValidationResult is the full gate verdict. Every sub-result is populated
// even when an earlier check already decided the outcome.
type ValidationResult struct {
	Citation        CitationCheck  `json:"citation"`
	Grounding       GateScore      `json:"grounding"`
	Faithfulness    GateScore      `json:"faithfulness"`
	SafetyTriggered bool           `json:"safety_triggered"`
	Passed          bool           `json:"passed"`
	Reason          DecisionReason `json:"decision_reason"`
}
