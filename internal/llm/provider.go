// Package llm drafts answers from evidence cards. Drafters may only cite
// the passages they were given; a draft that cites anything else is
// rejected before it reaches validation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nurpath/nurpath/internal/model"
)

// ErrCitationLeak is returned when a draft cites a passage outside its evidence
var ErrCitationLeak = errors.New("draft cites passage outside the evidence set")

// maxPromptCards bounds the evidence listed in a prompt
const maxPromptCards = 12

// Drafter produces a draft answer from retrieved evidence
type Drafter interface {
	// Name returns the drafter name
	Name() string

	// Draft writes an answer citing cards by passage id
	Draft(ctx context.Context, req DraftRequest) (*DraftResponse, error)

	// IsAvailable checks if the drafter is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// DraftRequest is the input to a drafter
type DraftRequest struct {
	Question string
	Language model.Language
	Cards    []model.EvidenceCard
	Ikhtilaf model.IkhtilafAnalysis
}

// DraftResponse is a drafted answer
type DraftResponse struct {
	Text       string
	CitedIDs   []string // Passage ids cited inline, in first-seen order
	Model      string
	TokensUsed int
}

var markerPattern = regexp.MustCompile(`\[([^\[\]]{1,64})\]`)

// CitedIDs returns the passage ids cited inline in text
func CitedIDs(text string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, m := range markerPattern.FindAllStringSubmatch(text, -1) {
		for _, id := range strings.Split(m[1], ",") {
			id = strings.TrimSpace(id)
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// CheckCitations verifies every id cited in text belongs to cards
func CheckCitations(text string, cards []model.EvidenceCard) ([]string, error) {
	allowed := make(map[string]bool, len(cards))
	for _, c := range cards {
		allowed[c.PassageID] = true
	}
	ids := CitedIDs(text)
	for _, id := range ids {
		if !allowed[id] {
			return ids, fmt.Errorf("%w: %s", ErrCitationLeak, id)
		}
	}
	return ids, nil
}

// SystemPrompt is the instruction shared by the model-backed drafters
func SystemPrompt(lang model.Language) string {
	answerIn := "English"
	if lang == model.LangArabic {
		answerIn = "Arabic"
	}
	return fmt.Sprintf(`You are an Islamic studies tutor. Answer in %s for study purposes only.

RULES:
1. Use ONLY the evidence passages provided. Do not add outside knowledge.
2. Write short declarative sentences. End every sentence with the id of the passage that supports it, e.g. [quran-5-6].
3. Quote or closely paraphrase the evidence wording; do not generalize beyond it.
4. Never issue a personal or binding ruling (fatwa).
5. If schools differ, attribute each position to its school and cite it.`, answerIn)
}

// BuildPrompt lists the question and evidence for a model-backed drafter
func BuildPrompt(req DraftRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nEvidence:\n", req.Question)

	if len(req.Cards) == 0 {
		b.WriteString("(No evidence passages available)\n")
	}
	for i, c := range req.Cards {
		if i >= maxPromptCards {
			fmt.Fprintf(&b, "... and %d more passages\n", len(req.Cards)-maxPromptCards)
			break
		}
		fmt.Fprintf(&b, "[%s] %s (%s): %s\n", c.PassageID, c.Citation, c.SourceType, c.Quote(req.Language))
	}

	if req.Ikhtilaf.Status == model.IkhtilafDisagreement {
		fmt.Fprintf(&b, "\nThe schools differ on %s:\n", req.Ikhtilaf.Topic)
		for _, p := range req.Ikhtilaf.ConflictPairs {
			fmt.Fprintf(&b, "- %s (%s) vs %s (%s), evidence %s\n",
				p.Left, p.LeftCategory, p.Right, p.RightCategory, strings.Join(p.EvidenceIDs, ", "))
		}
	}

	b.WriteString("\nAnswer in 2-5 sentences, each ending with its passage id.")
	return b.String()
}
