package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nurpath/nurpath/internal/catalog"
	"github.com/nurpath/nurpath/internal/embedding"
	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/vectorindex"
	"github.com/nurpath/nurpath/internal/worker"
)

// IndexStats summarizes an indexing run
type IndexStats struct {
	Passages  int           `json:"passages"`
	Batches   int           `json:"batches"`
	Failed    int           `json:"failed_batches"`
	Dimension int           `json:"dimension"`
	Duration  time.Duration `json:"duration"`
}

// Indexer embeds catalog passages and upserts them into the vector index
type Indexer struct {
	embedder  embedding.Provider
	index     vectorindex.Index
	batchSize int
	workers   int
	logger    *slog.Logger
}

// NewIndexer creates an indexer
func NewIndexer(embedder embedding.Provider, index vectorindex.Index, batchSize, workers int, logger *slog.Logger) *Indexer {
	if batchSize <= 0 {
		batchSize = 32
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{embedder: embedder, index: index, batchSize: batchSize, workers: workers, logger: logger}
}

// Index embeds every passage of cat. Unless recreate is set, an index built
// with a different vector size is refused: mixing sizes would corrupt
// every search.
func (x *Indexer) Index(ctx context.Context, cat *catalog.Catalog, recreate bool) (IndexStats, error) {
	start := time.Now()
	stats := IndexStats{Dimension: x.embedder.Dimension()}

	if recreate {
		if err := x.index.Reset(ctx); err != nil {
			return stats, fmt.Errorf("reset index: %w", err)
		}
	} else {
		dim, err := x.index.Dimension(ctx)
		if err != nil {
			return stats, fmt.Errorf("read index dimension: %w", err)
		}
		if dim != 0 && dim != x.embedder.Dimension() {
			return stats, fmt.Errorf("%w: index has %d, provider %s produces %d; re-run with --recreate",
				vectorindex.ErrDimensionMismatch, dim, x.embedder.Name(), x.embedder.Dimension())
		}
	}

	passages := cat.Passages()
	var batches [][]model.Passage
	for i := 0; i < len(passages); i += x.batchSize {
		end := i + x.batchSize
		if end > len(passages) {
			end = len(passages)
		}
		batches = append(batches, passages[i:end])
	}
	stats.Batches = len(batches)

	results := worker.Map(ctx, x.workers, batches, x.indexBatch)
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			stats.Failed++
			errs = append(errs, r.Err)
			continue
		}
		stats.Passages += r.Value
	}
	stats.Duration = time.Since(start)

	x.logger.Info("indexing finished",
		"passages", stats.Passages,
		"batches", stats.Batches,
		"failed", stats.Failed,
		"provider", x.embedder.Name(),
		"index", x.index.Name(),
		"duration", stats.Duration)

	if len(errs) > 0 {
		return stats, fmt.Errorf("%d of %d batches failed: %w", stats.Failed, stats.Batches, errors.Join(errs...))
	}
	return stats, nil
}

func (x *Indexer) indexBatch(ctx context.Context, batch []model.Passage) (int, error) {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = PassageText(p)
	}
	vecs, err := x.embedder.Embed(ctx, texts, embedding.ModePassage)
	if err != nil {
		return 0, fmt.Errorf("embed batch starting at %s: %w", batch[0].ID, err)
	}
	if len(vecs) != len(batch) {
		return 0, fmt.Errorf("provider returned %d vectors for %d passages", len(vecs), len(batch))
	}

	records := make([]vectorindex.Record, len(batch))
	for i, p := range batch {
		records[i] = vectorindex.Record{
			ID:         p.ID,
			SourceID:   p.SourceID,
			SourceType: p.SourceType,
			Vector:     vecs[i],
		}
	}
	if err := x.index.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert batch starting at %s: %w", batch[0].ID, err)
	}
	return len(records), nil
}
