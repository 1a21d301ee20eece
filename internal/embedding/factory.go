package embedding

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nurpath/nurpath/internal/cache"
	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/worker"
)

// Options carries the shared collaborators a provider may use
type Options struct {
	Cache   cache.Cache     // Optional
	Limiter *worker.Limiter // Optional
	HTTP    model.HTTPConfig
	Logger  *slog.Logger
}

// NewProvider creates the configured provider. When a remote provider
// cannot be constructed it logs a warning and falls back to the hash
// provider with the configured dimension.
func NewProvider(cfg model.EmbeddingConfig, opts Options) (Provider, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p, err := newBaseProvider(cfg, opts)
	if err != nil {
		if strings.EqualFold(cfg.Provider, "hash") {
			return nil, err
		}
		logger.Warn("embedding provider unavailable, falling back to hash provider",
			"provider", cfg.Provider, "error", err)
		p = NewHashProvider(cfg.Dimension)
	}

	if opts.Cache != nil && p.Name() != "hash" {
		return NewCachedProvider(p, opts.Cache, 0, logger), nil
	}
	return p, nil
}

func newBaseProvider(cfg model.EmbeddingConfig, opts Options) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "hash", "":
		return NewHashProvider(cfg.Dimension), nil

	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Timeout:   cfg.Timeout,
			BatchSize: cfg.BatchSize,
			Limiter:   opts.Limiter,
		})

	case "ollama":
		return NewOllamaProvider(OllamaConfig{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimension:  cfg.Dimension,
			Timeout:    cfg.Timeout,
			HTTPProxy:  opts.HTTP.HTTPProxy,
			HTTPSProxy: opts.HTTP.HTTPSProxy,
			NoProxy:    opts.HTTP.NoProxy,
			Limiter:    opts.Limiter,
		})

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: hash, openai, ollama)", cfg.Provider)
	}
}
