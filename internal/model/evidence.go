package model

// RetrievalCandidate is a scored passage produced by the hybrid retriever
type RetrievalCandidate struct {
	Passage      Passage `json:"passage"`
	VectorScore  float64 `json:"vector_score"`  // Cosine similarity clamped to [0,1]
	LexicalScore float64 `json:"lexical_score"` // Lexical strategy score in [0,1]
	FusedScore   float64 `json:"fused_score"`   // λ·vector + (1-λ)·lexical at tie resolution
}

// EvidenceCard is the user-facing rendering of a retrieved passage
type EvidenceCard struct {
	PassageID      string            `json:"passage_id"`
	SourceID       string            `json:"source_id"`
	SourceTitle    string            `json:"source_title"`
	SourceType     SourceType        `json:"source_type"`
	Authenticity   AuthenticityLevel `json:"authenticity_level"`
	Reference      Reference         `json:"reference"`
	Citation       string            `json:"citation"` // Display reference, e.g. "Qur'an 5:6"
	ArabicQuote    string            `json:"arabic_quote"`
	EnglishQuote   string            `json:"english_quote"`
	CitationSpan   string            `json:"citation_span"` // Exact substring of the quote used as support
	URL            string            `json:"url"`
	TopicTags      []string          `json:"topic_tags,omitempty"`
	RelevanceScore float64           `json:"relevance_score"`
}

// Quote returns the card quote in lang, falling back to the other language
func (c EvidenceCard) Quote(lang Language) string {
	if lang == LangArabic && c.ArabicQuote != "" {
		return c.ArabicQuote
	}
	if c.EnglishQuote != "" {
		return c.EnglishQuote
	}
	return c.ArabicQuote
}

// RetrievalDiagnostics explains how a retrieval result was produced
type RetrievalDiagnostics struct {
	Degraded           bool    `json:"degraded"`
	DegradedReason     string  `json:"degraded_reason,omitempty"`
	Lambda             float64 `json:"lambda"` // Effective vector weight after degradation
	LexicalStrategy    string  `json:"lexical_strategy"`
	VectorHits         int     `json:"vector_hits"`
	Candidates         int     `json:"candidates"`
	LexicalFallback    bool    `json:"lexical_fallback"` // Full-catalog lexical pass was used
	ExpansionAttempted bool    `json:"expansion_attempted"`
	ExpandedQuery      string  `json:"expanded_query,omitempty"`
	TopScore           float64 `json:"top_score"`
}
