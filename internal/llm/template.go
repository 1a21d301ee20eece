package llm

import (
	"context"
	"strings"
)

// defaultTemplateCards is how many cards the template drafter quotes
const defaultTemplateCards = 4

// TemplateDrafter writes an extractive answer: the citation span of each
// card followed by its passage id. It needs no network and never fails, so
// it also serves as the fallback for model-backed drafters.
type TemplateDrafter struct {
	maxCards int
}

// NewTemplateDrafter creates a template drafter
func NewTemplateDrafter() *TemplateDrafter {
	return &TemplateDrafter{maxCards: defaultTemplateCards}
}

// Name returns the drafter name
func (d *TemplateDrafter) Name() string {
	return "template"
}

// IsAvailable always reports true
func (d *TemplateDrafter) IsAvailable(ctx context.Context) bool {
	return true
}

// Draft joins the cards' citation spans. No cards yields an empty draft.
func (d *TemplateDrafter) Draft(ctx context.Context, req DraftRequest) (*DraftResponse, error) {
	var sentences []string
	var ids []string
	for _, c := range req.Cards {
		if len(sentences) == d.maxCards {
			break
		}
		span := c.CitationSpan
		if span == "" {
			span = c.Quote(req.Language)
		}
		span = strings.TrimRight(strings.TrimSpace(span), ".!?؟؛,، ")
		if span == "" {
			continue
		}
		sentences = append(sentences, span+" ["+c.PassageID+"].")
		ids = append(ids, c.PassageID)
	}
	return &DraftResponse{
		Text:     strings.Join(sentences, " "),
		CitedIDs: ids,
		Model:    "template",
	}, nil
}

var _ Drafter = (*TemplateDrafter)(nil)

