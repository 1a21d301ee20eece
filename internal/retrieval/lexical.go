package retrieval

import (
	"fmt"
	"math"
)

// LexicalScorer scores a tokenized query against one corpus passage. Scores
// are in [0,1] and comparable across passages of the same corpus.
type LexicalScorer interface {
	Name() string
	Score(c *Corpus, query []string, passageID string) float64
}

// NewLexicalScorer returns the named strategy
func NewLexicalScorer(name string) (LexicalScorer, error) {
	switch name {
	case "overlap", "":
		return TokenOverlap{}, nil
	case "bm25":
		return NewBM25(), nil
	default:
		return nil, fmt.Errorf("unknown lexical strategy: %s (supported: overlap, bm25)", name)
	}
}

// TokenOverlap is the share of query terms present in the passage
type TokenOverlap struct{}

func (TokenOverlap) Name() string { return "overlap" }

func (TokenOverlap) Score(c *Corpus, query []string, passageID string) float64 {
	doc, ok := c.docs[passageID]
	if !ok || len(query) == 0 {
		return 0
	}
	matched := 0
	for _, term := range query {
		if doc.terms[term] > 0 {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}

// BM25 is Okapi BM25 divided by the best score the query could reach, so
// that it lands in [0,1) like the overlap strategy
type BM25 struct {
	K1 float64
	B  float64
}

// NewBM25 returns BM25 with the usual parameters
func NewBM25() BM25 {
	return BM25{K1: 1.2, B: 0.75}
}

func (BM25) Name() string { return "bm25" }

func (b BM25) Score(c *Corpus, query []string, passageID string) float64 {
	doc, ok := c.docs[passageID]
	if !ok || len(query) == 0 || c.avgLen == 0 {
		return 0
	}
	n := float64(len(c.docs))
	var score, ceiling float64
	for _, term := range query {
		df := float64(c.df[term])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		// tf -> infinity bound of a single term
		ceiling += idf * (b.K1 + 1)

		tf := float64(doc.terms[term])
		if tf == 0 {
			continue
		}
		norm := b.K1 * (1 - b.B + b.B*float64(doc.length)/c.avgLen)
		score += idf * tf * (b.K1 + 1) / (tf + norm)
	}
	if ceiling == 0 {
		return 0
	}
	return math.Min(1, score/ceiling)
}
