package model

// StanceCategory is the categorical position a school takes on an issue
type StanceCategory string

const (
	StanceAffirmative StanceCategory = "affirmative" // e.g. "invalidates", "is obligatory"
	StanceNegative    StanceCategory = "negative"    // e.g. "does not invalidate", "is not required"
	StanceUnclear     StanceCategory = "unclear"
)

// OpinionStance is one school's attributed position on an issue
type OpinionStance struct {
	School      string         `json:"school"`       // Canonical key, e.g. "hanafi"
	SchoolLabel string         `json:"school_label"` // Display label in the response language
	Topic       string         `json:"topic"`
	Category    StanceCategory `json:"category"`
	Summary     string         `json:"summary"`
	EvidenceIDs []string       `json:"evidence_ids"`
	Preferred   bool           `json:"preferred,omitempty"` // Matches the asker's madhhab preference
}

// ConflictPair records two stances on the same topic with differing categories
type ConflictPair struct {
	Topic         string         `json:"topic"`
	Left          string         `json:"left"`
	LeftCategory  StanceCategory `json:"left_category"`
	Right         string         `json:"right"`
	RightCategory StanceCategory `json:"right_category"`
	EvidenceIDs   []string       `json:"evidence_ids"`
}

// IkhtilafStatus is the outcome of comparing attributed stances
type IkhtilafStatus string

const (
	IkhtilafConsensus    IkhtilafStatus = "consensus"
	IkhtilafDisagreement IkhtilafStatus = "disagreement"
	IkhtilafInsufficient IkhtilafStatus = "insufficient"
)

// IkhtilafAnalysis is the classifier verdict over a set of stances
type IkhtilafAnalysis struct {
	Status        IkhtilafStatus `json:"status"`
	Topic         string         `json:"topic"`
	Summary       string         `json:"summary"`
	Schools       []string       `json:"schools"`
	ConflictPairs []ConflictPair `json:"conflict_pairs"`
}
