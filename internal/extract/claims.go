// Package extract pulls structured statements out of free text: claim spans
// from drafted answers, school stances from evidence, and visible text from
// HTML passages.
package extract

import (
	"regexp"
	"strings"

	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/textutil"
)

// citationMarker matches inline markers such as [q-5-6] or [1]
var citationMarker = regexp.MustCompile(`\[[^\[\]]{1,64}\]`)

// ClaimExtractor splits a draft answer into claim spans
type ClaimExtractor struct {
	connectives []string
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor() *ClaimExtractor {
	return &ClaimExtractor{
		connectives: []string{
			"in summary", "in conclusion", "to summarize", "allah knows best",
			"and allah knows best", "والله اعلم", "الله اعلم", "خلاصة القول",
		},
	}
}

// Extract returns one span per sentence. Questions, connective phrases and
// spans without content words are marked non-factual.
func (e *ClaimExtractor) Extract(draft string) []model.ClaimSpan {
	var claims []model.ClaimSpan
	seen := make(map[string]bool)

	for _, s := range textutil.SplitSentences(draft) {
		text := strings.TrimSpace(citationMarker.ReplaceAllString(s.Text, ""))
		text = strings.Join(strings.Fields(text), " ")
		if text == "" {
			continue
		}
		key := textutil.Normalize(text)
		if seen[key] {
			continue
		}
		seen[key] = true

		claims = append(claims, model.ClaimSpan{
			Text:    text,
			Start:   s.Start,
			End:     s.End,
			Factual: e.isFactual(draft, s, key),
		})
	}
	return claims
}

// FactualClaims filters spans down to the factual ones
func FactualClaims(spans []model.ClaimSpan) []model.ClaimSpan {
	out := make([]model.ClaimSpan, 0, len(spans))
	for _, s := range spans {
		if s.Factual {
			out = append(out, s)
		}
	}
	return out
}

func (e *ClaimExtractor) isFactual(draft string, s textutil.Span, normalized string) bool {
	if rest := strings.TrimLeft(draft[s.End:], " \t"); strings.HasPrefix(rest, "?") || strings.HasPrefix(rest, "؟") {
		return false
	}
	for _, c := range e.connectives {
		if normalized == textutil.Normalize(c) {
			return false
		}
	}
	return len(textutil.ContentTokens(normalized)) > 0
}

// StripMarkers removes inline citation markers from text
func StripMarkers(text string) string {
	return strings.Join(strings.Fields(citationMarker.ReplaceAllString(text, " ")), " ")
}
