package embedding

import (
	"context"
	"log/slog"
	"time"

	"github.com/nurpath/nurpath/internal/cache"
)

// CachedProvider serves repeated texts from a cache and forwards only the
// misses to the wrapped provider
type CachedProvider struct {
	inner  Provider
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedProvider wraps p with c
func NewCachedProvider(p Provider, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{inner: p, cache: c, ttl: ttl, logger: logger}
}

func (p *CachedProvider) Name() string   { return p.inner.Name() }
func (p *CachedProvider) Model() string  { return p.inner.Model() }
func (p *CachedProvider) Dimension() int { return p.inner.Dimension() }

// Unwrap returns the wrapped provider
func (p *CachedProvider) Unwrap() Provider { return p.inner }

// Embed returns cached vectors where present and embeds the rest in one call
func (p *CachedProvider) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		keys[i] = cache.EmbeddingKey(p.inner.Name(), p.inner.Model(), p.inner.Dimension(), string(mode), text)
		if raw, ok := p.cache.Get(keys[i]); ok {
			if vec, err := cache.DecodeVector(raw); err == nil && len(vec) == p.inner.Dimension() {
				out[i] = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := p.inner.Embed(ctx, missTexts, mode)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		if err := p.cache.Set(keys[i], cache.EncodeVector(vecs[j]), p.ttl); err != nil {
			p.logger.Warn("embedding cache write failed", "error", err)
		}
	}
	return out, nil
}
