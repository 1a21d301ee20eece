// Package retrieval implements the hybrid retriever: vector similarity fused
// with a pluggable lexical score, deterministic tie-breaking, per-source
// diversity and a single query-expansion retry on weak results.
package retrieval

import (
	"sort"
	"strings"

	"github.com/nurpath/nurpath/internal/catalog"
	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/textutil"
)

// document is the lexical view of one passage
type document struct {
	id     string
	terms  map[string]int // Term frequency over both languages and topic tags
	length int
}

// Corpus is the lexical index of one catalog snapshot. It is built once per
// catalog version and only read afterwards.
type Corpus struct {
	version uint64
	docs    map[string]*document
	order   []string
	df      map[string]int
	avgLen  float64
}

// PassageText is the text indexed for a passage, lexically and as the
// embedding input
func PassageText(p model.Passage) string {
	parts := make([]string, 0, 2+len(p.TopicTags))
	if p.ArabicText != "" {
		parts = append(parts, p.ArabicText)
	}
	if p.EnglishText != "" {
		parts = append(parts, p.EnglishText)
	}
	for _, tag := range p.TopicTags {
		parts = append(parts, strings.ReplaceAll(tag, "_", " "))
	}
	return textutil.Normalize(strings.Join(parts, " "))
}

// NewCorpus indexes every passage of cat
func NewCorpus(cat *catalog.Catalog) *Corpus {
	c := &Corpus{
		version: cat.Version(),
		docs:    make(map[string]*document, cat.Len()),
		df:      make(map[string]int),
	}
	total := 0
	for _, p := range cat.Passages() {
		doc := &document{id: p.ID, terms: make(map[string]int)}
		for _, w := range textutil.Tokens(PassageText(p)) {
			for _, term := range contentTerms(w) {
				doc.terms[term]++
				doc.length++
			}
		}
		for term := range doc.terms {
			c.df[term]++
		}
		total += doc.length
		c.docs[p.ID] = doc
		c.order = append(c.order, p.ID)
	}
	if len(c.docs) > 0 {
		c.avgLen = float64(total) / float64(len(c.docs))
	}
	return c
}

// contentTerms maps one normalized word to at most one content term,
// applying the same filtering as query tokenization
func contentTerms(w string) []string {
	return textutil.ContentTokens(w)
}

// Len returns the number of indexed passages
func (c *Corpus) Len() int { return len(c.docs) }

// Version returns the catalog version the corpus was built from
func (c *Corpus) Version() uint64 { return c.version }

// IDs returns passage ids in catalog order
func (c *Corpus) IDs() []string { return c.order }

// DocumentFrequency returns how many passages contain term
func (c *Corpus) DocumentFrequency(term string) int { return c.df[term] }

// Related returns up to n terms that most often share a passage with term.
// Terms present in every passage carry no signal and are skipped. Ties are
// ordered alphabetically.
func (c *Corpus) Related(term string, n int) []string {
	if n <= 0 || c.df[term] == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, id := range c.order {
		doc := c.docs[id]
		if doc.terms[term] == 0 {
			continue
		}
		for other := range doc.terms {
			if other == term || c.df[other] == len(c.docs) {
				continue
			}
			counts[other]++
		}
	}
	related := make([]string, 0, len(counts))
	for t := range counts {
		related = append(related, t)
	}
	sort.Slice(related, func(i, j int) bool {
		if counts[related[i]] != counts[related[j]] {
			return counts[related[i]] > counts[related[j]]
		}
		return related[i] < related[j]
	})
	if len(related) > n {
		related = related[:n]
	}
	return related
}
