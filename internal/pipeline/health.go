package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nurpath/nurpath/internal/catalog"
	"github.com/nurpath/nurpath/internal/embedding"
	"github.com/nurpath/nurpath/internal/model"
)

const (
	healthWindow = 50
	probeTimeout = 3 * time.Second
)

// tracker keeps the top retrieval scores of recent asks in a ring and
// counts validation outcomes
type tracker struct {
	mu      sync.Mutex
	scores  []float64
	next    int
	filled  int
	passed  atomic.Int64
	abstain atomic.Int64
}

func newTracker(size int) *tracker {
	return &tracker{scores: make([]float64, size)}
}

func (t *tracker) record(top float64, passed bool) {
	if passed {
		t.passed.Add(1)
	} else {
		t.abstain.Add(1)
	}
	t.mu.Lock()
	t.scores[t.next] = top
	t.next = (t.next + 1) % len(t.scores)
	if t.filled < len(t.scores) {
		t.filled++
	}
	t.mu.Unlock()
}

// average returns the mean recent top score and the number of samples
func (t *tracker) average() (float64, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.filled == 0 {
		return 0, 0
	}
	var sum float64
	for i := 0; i < t.filled; i++ {
		sum += t.scores[i]
	}
	return round4(sum / float64(t.filled)), t.filled
}

// Health probes the index and the store. It never fails; problems are
// reported in the result.
func (p *Pipeline) Health(ctx context.Context) model.RetrievalHealth {
	h := model.RetrievalHealth{}

	cat := p.store.Snapshot()
	h.CatalogPassages = cat.Len()
	h.ExcludedPassages = len(cat.Excluded())
	if err := p.store.Ping(); err != nil {
		h.Notes = append(h.Notes, fmt.Sprintf("store: %v", err))
	} else {
		h.StoreConnected = true
	}

	if p.embedder != nil {
		h.EmbeddingProvider = p.embedder.Name()
		h.EmbeddingModel = p.embedder.Model()
		h.EmbeddingDimension = p.embedder.Dimension()
	} else {
		h.Notes = append(h.Notes, "no embedding provider configured; retrieval is lexical-only")
	}

	if p.index != nil {
		h.IndexBackend = p.index.Name()
		p.probeIndex(ctx, &h)
	} else {
		h.Notes = append(h.Notes, "no vector index configured; retrieval is lexical-only")
	}

	h.RecentAvgTopScore, h.RecentSamples = p.health.average()
	h.ValidationPassCount = p.health.passed.Load()
	h.AbstainCount = p.health.abstain.Load()
	h.OK = h.StoreConnected && h.IndexConnected && !h.ReindexRequired
	return h
}

func (p *Pipeline) probeIndex(ctx context.Context, h *model.RetrievalHealth) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := p.index.Ping(ctx); err != nil {
		h.Notes = append(h.Notes, fmt.Sprintf("index: %v", err))
		return
	}
	h.IndexConnected = true

	count, err := p.index.Count(ctx)
	if err != nil {
		h.Notes = append(h.Notes, fmt.Sprintf("index count: %v", err))
	}
	h.IndexedPassages = count

	dim, err := p.index.Dimension(ctx)
	if err != nil {
		h.Notes = append(h.Notes, fmt.Sprintf("index dimension: %v", err))
	}
	h.CollectionVectorSize = dim

	switch {
	case dim > 0 && h.EmbeddingDimension > 0 && dim != h.EmbeddingDimension:
		h.ReindexRequired = true
		h.Notes = append(h.Notes, fmt.Sprintf("index vectors have %d dimensions but the embedding provider produces %d; run nurpath index --recreate", dim, h.EmbeddingDimension))
	case count == 0 && h.CatalogPassages > 0:
		h.ReindexRequired = true
		h.Notes = append(h.Notes, "index is empty; run nurpath index")
	}
}

// CheckContract verifies at startup that the index and the embedding
// provider agree on the vector size. An unreachable upstream is not a
// contract violation; retrieval degrades per request instead.
func (p *Pipeline) CheckContract(ctx context.Context) error {
	if p.embedder == nil || p.index == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	want := p.embedder.Dimension()
	dim, err := p.index.Dimension(ctx)
	if err != nil {
		p.logger.Warn("index dimension unavailable", "backend", p.index.Name(), "error", err)
	} else if dim > 0 && dim != want {
		return fmt.Errorf("%w: index %s has %d-dimensional vectors, embedding provider %s produces %d; run nurpath index --recreate",
			ErrContractViolation, p.index.Name(), dim, p.embedder.Name(), want)
	}

	vec, err := embedding.EmbedOne(ctx, p.embedder, "health check", embedding.ModeQuery)
	switch {
	case errors.Is(err, embedding.ErrDimensionMismatch):
		return fmt.Errorf("%w: %v", ErrContractViolation, err)
	case err != nil:
		p.logger.Warn("embedding provider unavailable", "provider", p.embedder.Name(), "error", err)
	case len(vec) != want:
		return fmt.Errorf("%w: embedding provider %s declares %d dimensions but produced %d",
			ErrContractViolation, p.embedder.Name(), want, len(vec))
	}
	return nil
}

// Diagnostics is the operator view of a running pipeline
type Diagnostics struct {
	Health           model.RetrievalHealth `json:"health"`
	CatalogVersion   uint64                `json:"catalog_version"`
	CatalogLoadedAt  time.Time             `json:"catalog_loaded_at"`
	Excluded         []catalog.Exclusion   `json:"excluded"`
	Retrieval        model.RetrievalConfig `json:"retrieval"`
	Thresholds       model.Thresholds      `json:"thresholds"`
	Drafter          string                `json:"drafter"`
	DrafterAvailable bool                  `json:"drafter_available"`
}

// Diagnostics returns the health probe plus the effective configuration
func (p *Pipeline) Diagnostics(ctx context.Context) Diagnostics {
	cat := p.store.Snapshot()
	excluded := cat.Excluded()
	if excluded == nil {
		excluded = []catalog.Exclusion{}
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	return Diagnostics{
		Health:           p.Health(ctx),
		CatalogVersion:   cat.Version(),
		CatalogLoadedAt:  cat.LoadedAt(),
		Excluded:         excluded,
		Retrieval:        p.retriever.Config(),
		Thresholds:       p.thresholds,
		Drafter:          p.drafter.Name(),
		DrafterAvailable: p.drafter.IsAvailable(probeCtx),
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
