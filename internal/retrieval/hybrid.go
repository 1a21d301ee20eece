package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/nurpath/nurpath/internal/catalog"
	"github.com/nurpath/nurpath/internal/embedding"
	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/observability"
	"github.com/nurpath/nurpath/internal/textutil"
	"github.com/nurpath/nurpath/internal/vectorindex"
)

var errNoEmbedder = errors.New("no embedding provider configured")

// Result is the outcome of one retrieval
type Result struct {
	Candidates  []model.RetrievalCandidate
	Cards       []model.EvidenceCard
	Diagnostics model.RetrievalDiagnostics
}

// TopScore returns the best fused score, 0 when empty
func (r *Result) TopScore() float64 {
	if r == nil || len(r.Candidates) == 0 {
		return 0
	}
	return r.Candidates[0].FusedScore
}

// Options are the optional collaborators of a Retriever
type Options struct {
	Lexical    LexicalScorer  // Defaults to token overlap
	Expansions ExpansionTable // Defaults to DefaultExpansions
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// Retriever is safe for concurrent use. Per-request state lives on the
// stack; the only shared state is the lexical corpus of the current
// catalog version, which is rebuilt when the catalog is swapped.
type Retriever struct {
	store      *catalog.Store
	embedder   embedding.Provider
	index      vectorindex.Index
	cfg        model.RetrievalConfig
	weak       float64
	lexical    LexicalScorer
	expansions ExpansionTable
	ranker     ranker
	corpus     *corpusCache
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewRetriever creates a retriever. embedder and index may be nil, in which
// case every retrieval runs lexical-only and is reported degraded.
func NewRetriever(store *catalog.Store, embedder embedding.Provider, index vectorindex.Index, cfg model.RetrievalConfig, weakThreshold float64, opts Options) *Retriever {
	if opts.Lexical == nil {
		opts.Lexical = TokenOverlap{}
	}
	if opts.Expansions == nil {
		opts.Expansions = DefaultExpansions
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.Oversample <= 0 {
		cfg.Oversample = 1
	}
	return &Retriever{
		store:      store,
		embedder:   embedder,
		index:      index,
		cfg:        cfg,
		weak:       weakThreshold,
		lexical:    opts.Lexical,
		expansions: opts.Expansions,
		ranker:     newRanker(cfg.SourcePriorityOrder()),
		corpus:     &corpusCache{},
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
}

// WithWeakThreshold returns a retriever sharing r's collaborators and
// corpus but using a different weak-retrieval threshold
func (r *Retriever) WithWeakThreshold(threshold float64) *Retriever {
	cp := *r
	cp.weak = threshold
	return &cp
}

// Config returns the retrieval configuration
func (r *Retriever) Config() model.RetrievalConfig { return r.cfg }

// Corpus returns the lexical corpus of the current catalog snapshot
func (r *Retriever) Corpus() *Corpus { return r.corpus.get(r.store.Snapshot()) }

// Retrieve returns at most k candidates in non-increasing fused score
// order together with their evidence cards in lang. A weak first result
// triggers exactly one expansion retry. Upstream failures degrade the
// result; only context cancellation is returned as an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, lang model.Language) (*Result, error) {
	if k <= 0 {
		k = r.cfg.TopK
	}
	ctx, span := observability.Tracer().Start(ctx, "retrieval.retrieve")
	defer span.End()

	cat := r.store.Snapshot()
	corpus := r.corpus.get(cat)

	res, err := r.attempt(ctx, cat, corpus, query, k)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if r.cfg.ExpansionEnabled && corpus.Len() > 0 && res.TopScore() < r.weak {
		res.Diagnostics.ExpansionAttempted = true
		if expanded := Expand(query, r.expansions, corpus); expanded != "" {
			r.metrics.RetrievalExpanded()
			retry, err := r.attempt(ctx, cat, corpus, expanded, k)
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			improved := retry.TopScore() > res.TopScore()
			r.logger.Debug("query expansion retry", "improved", improved, "top_score", retry.TopScore())
			if improved {
				retry.Diagnostics.ExpansionAttempted = true
				res = retry
			}
			res.Diagnostics.ExpandedQuery = expanded
		}
	}

	res.Cards = BuildCards(cat, res.Candidates, query, lang)
	res.Diagnostics.TopScore = res.TopScore()
	r.metrics.ObserveTopScore(res.TopScore())

	span.SetAttributes(
		attribute.Int("retrieval.results", len(res.Candidates)),
		attribute.Float64("retrieval.top_score", res.TopScore()),
		attribute.Bool("retrieval.degraded", res.Diagnostics.Degraded),
		attribute.Bool("retrieval.expanded", res.Diagnostics.ExpansionAttempted),
	)
	return res, nil
}

// attempt runs steps one through six of retrieval for one query string
func (r *Retriever) attempt(ctx context.Context, cat *catalog.Catalog, corpus *Corpus, query string, k int) (*Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "retrieval.attempt")
	defer span.End()

	diag := model.RetrievalDiagnostics{
		Lambda:          r.cfg.Lambda,
		LexicalStrategy: r.lexical.Name(),
	}
	if corpus.Len() == 0 {
		return &Result{Diagnostics: diag}, nil
	}

	normalized := textutil.Normalize(query)
	terms := textutil.ContentTokens(normalized)
	m := k * r.cfg.Oversample
	if m < r.cfg.MinCandidates {
		m = r.cfg.MinCandidates
	}

	// The legs never fail the group: a vector failure is recorded and
	// handled as degradation after the join.
	var (
		hits    []vectorindex.Hit
		vecErr  error
		lexical = make(map[string]float64, corpus.Len())
		g       errgroup.Group
	)
	g.Go(func() error {
		hits, vecErr = r.searchVector(ctx, normalized, m)
		return nil
	})
	g.Go(func() error {
		for _, id := range corpus.IDs() {
			if s := r.lexical.Score(corpus, terms, id); s > 0 {
				lexical[id] = s
			}
		}
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lambda := r.cfg.Lambda
	vector := make(map[string]float64, len(hits))
	if vecErr != nil {
		lambda = 0
		diag.Degraded = true
		diag.DegradedReason = vecErr.Error()
		r.metrics.RetrievalDegraded()
		r.logger.Warn("vector retrieval unavailable, using lexical-only scoring", "error", vecErr)
	} else {
		for _, h := range hits {
			// Hits for passages no longer in the catalog are stale index rows
			if _, ok := cat.Passage(h.ID); ok {
				vector[h.ID] = clamp01(h.Score)
			}
		}
	}
	diag.Lambda = lambda
	diag.VectorHits = len(vector)

	pool := make(map[string]bool, len(vector))
	best := 0.0
	for id, s := range vector {
		pool[id] = true
		if s > best {
			best = s
		}
	}
	if vecErr != nil || len(vector) == 0 || best < r.cfg.LowConfidenceFloor {
		diag.LexicalFallback = true
		for id := range lexical {
			pool[id] = true
		}
	}

	cands := make([]model.RetrievalCandidate, 0, len(pool))
	for id := range pool {
		p, ok := cat.Passage(id)
		if !ok {
			continue
		}
		vs, ls := vector[id], lexical[id]
		cands = append(cands, model.RetrievalCandidate{
			Passage:      p,
			VectorScore:  vs,
			LexicalScore: ls,
			FusedScore:   quantize(fuse(vs, ls, lambda), r.cfg.ScoreEpsilon),
		})
	}
	diag.Candidates = len(cands)

	r.ranker.sort(cands)
	selected := selectDiverse(cands, k, r.cfg.MaxPerSource)

	res := &Result{Candidates: selected, Diagnostics: diag}
	res.Diagnostics.TopScore = res.TopScore()
	span.SetAttributes(
		attribute.Int("retrieval.vector_hits", diag.VectorHits),
		attribute.Int("retrieval.candidates", diag.Candidates),
		attribute.Bool("retrieval.lexical_fallback", diag.LexicalFallback),
	)
	return res, nil
}

// searchVector embeds the normalized query and queries the index, each
// call under its own timeout
func (r *Retriever) searchVector(ctx context.Context, normalized string, m int) ([]vectorindex.Hit, error) {
	if r.embedder == nil || r.index == nil {
		return nil, errNoEmbedder
	}

	embedCtx, cancel := withOptionalTimeout(ctx, r.cfg.EmbedTimeout)
	vec, err := embedding.EmbedOne(embedCtx, r.embedder, normalized, embedding.ModeQuery)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	searchCtx, cancel := withOptionalTimeout(ctx, r.cfg.SearchTimeout)
	defer cancel()
	hits, err := r.index.Search(searchCtx, vec, m)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return hits, nil
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// corpusCache holds the corpus of the latest catalog version seen
type corpusCache struct {
	mu      sync.Mutex
	current atomic.Pointer[Corpus]
}

func (c *corpusCache) get(cat *catalog.Catalog) *Corpus {
	if cur := c.current.Load(); cur != nil && cur.Version() == cat.Version() {
		return cur
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur := c.current.Load(); cur != nil && cur.Version() == cat.Version() {
		return cur
	}
	next := NewCorpus(cat)
	c.current.Store(next)
	return next
}
