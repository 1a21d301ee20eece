package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nurpath/nurpath/internal/cache"
	"github.com/nurpath/nurpath/internal/catalog"
	"github.com/nurpath/nurpath/internal/embedding"
	"github.com/nurpath/nurpath/internal/llm"
	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/observability"
	"github.com/nurpath/nurpath/internal/pipeline"
	"github.com/nurpath/nurpath/internal/retrieval"
	"github.com/nurpath/nurpath/internal/vectorindex"
	"github.com/nurpath/nurpath/internal/worker"
)

// app holds the wired components shared by the commands
type app struct {
	cfg      model.Config
	logger   *slog.Logger
	store    *catalog.Store
	embedder embedding.Provider
	index    vectorindex.Index
	registry *prometheus.Registry
	metrics  *observability.Metrics
	pipeline *pipeline.Pipeline
}

// newApp loads the catalog and wires the pipeline. An in-memory index
// starts empty in every process, so it is filled here.
func newApp(ctx context.Context, cfg model.Config, logger *slog.Logger) (*app, error) {
	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	for _, ex := range cat.Excluded() {
		logger.Warn("catalog row excluded", "source", ex.SourceID, "passage", ex.PassageID, "reason", ex.Reason)
	}
	logger.Debug("catalog loaded", "path", cfg.Catalog.Path, "passages", cat.Len(), "excluded", len(cat.Excluded()))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	embedder, err := embedding.NewProvider(cfg.Embedding, embedding.Options{
		Cache:   cache.New(cfg.Cache),
		Limiter: worker.NewLimiter(cfg.Embedding.RequestsPerSecond, cfg.Embedding.Burst),
		HTTP:    cfg.HTTP,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	index, err := vectorindex.New(ctx, cfg.Index, logger)
	if err != nil {
		return nil, fmt.Errorf("vector index: %w", err)
	}

	lexical, err := retrieval.NewLexicalScorer(cfg.Retrieval.Lexical)
	if err != nil {
		return nil, err
	}

	drafter, err := llm.NewDrafter(cfg.LLM, cfg.HTTP, logger)
	if err != nil {
		logger.Warn("drafter unavailable, using template drafter", "provider", cfg.LLM.Provider, "error", err)
		drafter = llm.NewTemplateDrafter()
	}

	store := catalog.NewStore(cat)
	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		embedder: embedder,
		index:    index,
		registry: registry,
		metrics:  metrics,
		pipeline: pipeline.New(pipeline.Deps{
			Store:      store,
			Embedder:   embedder,
			Index:      index,
			Drafter:    drafter,
			Lexical:    lexical,
			Expansions: loadExpansions(cfg.Catalog.ExpansionPath, logger),
			Metrics:    metrics,
			Logger:     logger,
		}, cfg.Retrieval, cfg.Thresholds),
	}

	if index.Name() == "memory" {
		if _, err := a.indexCatalog(ctx, false); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// indexCatalog embeds the current catalog snapshot into the index
func (a *app) indexCatalog(ctx context.Context, recreate bool) (retrieval.IndexStats, error) {
	indexer := retrieval.NewIndexer(a.embedder, a.index, a.cfg.Embedding.BatchSize, a.cfg.Concurrency.Workers, a.logger)
	stats, err := indexer.Index(ctx, a.store.Snapshot(), recreate)
	if err != nil {
		return stats, fmt.Errorf("index catalog: %w", err)
	}
	if stats.Failed > 0 {
		a.logger.Warn("some batches failed to index", "failed", stats.Failed, "batches", stats.Batches)
	}
	return stats, nil
}

// loadExpansions reads the expansion table, keeping the built-in table
// when the file is absent
func loadExpansions(path string, logger *slog.Logger) retrieval.ExpansionTable {
	if path == "" {
		return retrieval.DefaultExpansions
	}
	table, err := retrieval.LoadExpansionTable(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("expansion table unusable, using built-in table", "path", path, "error", err)
		}
		return retrieval.DefaultExpansions
	}
	return table
}
