package model

import "time"

// IntentTopic is the coarse topic a question belongs to
type IntentTopic string

const (
	IntentAqidah   IntentTopic = "aqidah"
	IntentFiqh     IntentTopic = "fiqh"
	IntentAkhlaq   IntentTopic = "akhlaq"
	IntentHistory  IntentTopic = "history"
	IntentLanguage IntentTopic = "language_learning"
)

// Intent is the classification of an incoming question
type Intent struct {
	Topic          IntentTopic `json:"topic"`
	TopicTag       string      `json:"topic_tag,omitempty"`      // Specific issue tag, e.g. "wudu"
	PersonalRuling bool        `json:"personal_ruling"`          // Asks for a case-specific binding ruling
	MatchedSafety  string      `json:"matched_safety,omitempty"` // Phrase that triggered the safety policy
}

// AskRequest is a single question submitted to the orchestrator
type AskRequest struct {
	Question  string `json:"question" validate:"required,min=2,max=2000"`
	Language  string `json:"preferred_language,omitempty" validate:"omitempty,oneof=en ar"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,max=128"`
	Madhhab   string `json:"madhhab_preference,omitempty" validate:"omitempty,oneof=hanafi shafii maliki hanbali jafari zahiri"`
	TopK      int    `json:"top_k,omitempty" validate:"omitempty,min=1,max=20"`
}

// AskResponse is the finalized answer, or an abstention with its evidence
type AskResponse struct {
	RequestID         string               `json:"request_id"`
	SessionID         string               `json:"session_id,omitempty"`
	Language          Language             `json:"language"`
	Intent            Intent               `json:"intent"`
	DirectAnswer      string               `json:"direct_answer"`
	EvidenceCards     []EvidenceCard       `json:"evidence_cards"`
	OpinionComparison []OpinionStance      `json:"opinion_comparison"` // Empty whenever validation fails
	Ikhtilaf          IkhtilafAnalysis     `json:"ikhtilaf_analysis"`
	Confidence        float64              `json:"confidence"`
	Score             Score                `json:"score"`
	Abstained         bool                 `json:"abstained"`
	SafetyNotice      string               `json:"safety_notice,omitempty"`
	Validation        ValidationResult     `json:"validation"`
	Retrieval         RetrievalDiagnostics `json:"retrieval"`
	Stages            []string             `json:"stages"`
	CreatedAt         time.Time            `json:"created_at"`
}

// Score is the transparent confidence breakdown of an answer
type Score struct {
	Confidence float64  `json:"confidence"` // Composite, capped at 0.95
	Retrieval  float64  `json:"retrieval"`
	Level      string   `json:"level"` // "low", "medium", "high"
	Signals    []Signal `json:"signals"`
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Formulas and inputs
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalEvidenceCoverage  SignalType = "evidence_coverage"
	SignalSourceDiversity   SignalType = "source_diversity"
	SignalDegradedRetrieval SignalType = "degraded_retrieval"
	SignalWeakRetrieval     SignalType = "weak_retrieval"
	SignalIkhtilaf          SignalType = "ikhtilaf"
	SignalValidation        SignalType = "validation"
	SignalDraftFallback     SignalType = "draft_fallback"
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// RetrievalHealth is the operational snapshot reported by the health probe
type RetrievalHealth struct {
	OK                   bool     `json:"ok"`
	IndexConnected       bool     `json:"index_connected"`
	StoreConnected       bool     `json:"store_connected"`
	IndexBackend         string   `json:"index_backend"`
	IndexedPassages      int      `json:"indexed_passages"`
	CatalogPassages      int      `json:"catalog_passages"`
	ExcludedPassages     int      `json:"excluded_passages"`
	RecentAvgTopScore    float64  `json:"recent_avg_top_score"`
	RecentSamples        int      `json:"recent_samples"`
	EmbeddingProvider    string   `json:"embedding_provider"`
	EmbeddingModel       string   `json:"embedding_model"`
	EmbeddingDimension   int      `json:"embedding_dimension"`
	CollectionVectorSize int      `json:"collection_vector_size"`
	ReindexRequired      bool     `json:"reindex_required"`
	ValidationPassCount  int64    `json:"validation_pass_count"`
	AbstainCount         int64    `json:"abstain_count"`
	Notes                []string `json:"notes,omitempty"`
}
