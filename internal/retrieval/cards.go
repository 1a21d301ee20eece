package retrieval

import (
	"github.com/nurpath/nurpath/internal/catalog"
	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/textutil"
)

// BuildCards renders candidates as evidence cards for lang. The relevance
// score is the fused score and the citation span is the passage sentence
// sharing the most terms with the query.
func BuildCards(cat *catalog.Catalog, cands []model.RetrievalCandidate, query string, lang model.Language) []model.EvidenceCard {
	terms := textutil.TokenSet(query)
	cards := make([]model.EvidenceCard, 0, len(cands))
	for _, c := range cands {
		p := c.Passage
		card := model.EvidenceCard{
			PassageID:      p.ID,
			SourceID:       p.SourceID,
			SourceType:     p.SourceType,
			Authenticity:   p.Authenticity,
			Reference:      p.Reference,
			ArabicQuote:    p.ArabicText,
			EnglishQuote:   p.EnglishText,
			CitationSpan:   CitationSpan(p.Text(lang), terms),
			URL:            p.URL,
			TopicTags:      p.TopicTags,
			RelevanceScore: c.FusedScore,
		}
		if p.Reference != nil {
			card.Citation = p.Reference.Cite(lang)
		}
		if src, ok := cat.Source(p.SourceID); ok {
			card.SourceTitle = catalog.Localize(src, lang).Title
		}
		cards = append(cards, card)
	}
	return cards
}

// CitationSpan returns the sentence of text with the most query terms,
// the earliest on ties, or the first sentence when none match
func CitationSpan(text string, terms map[string]struct{}) string {
	sentences := textutil.SplitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	best, bestHits := 0, 0
	for i, s := range sentences {
		hits := 0
		for _, t := range textutil.ContentTokens(s.Text) {
			if _, ok := terms[t]; ok {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}
	return sentences[best].Text
}
