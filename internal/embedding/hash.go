package embedding

import (
	"context"
	"hash/fnv"

	"github.com/nurpath/nurpath/internal/textutil"
)

// HashProvider embeds text by signed feature hashing of normalized tokens.
// It needs no network and is deterministic, which makes it the offline
// default and the fallback when a remote provider cannot be built.
type HashProvider struct {
	dim int
}

// NewHashProvider creates a hash provider producing dim-sized vectors
func NewHashProvider(dim int) *HashProvider {
	if dim <= 0 {
		dim = 384
	}
	return &HashProvider{dim: dim}
}

func (p *HashProvider) Name() string   { return "hash" }
func (p *HashProvider) Model() string  { return "hash-v1" }
func (p *HashProvider) Dimension() int { return p.dim }

// Embed never fails except on cancellation
func (p *HashProvider) Embed(ctx context.Context, texts []string, _ Mode) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.vector(text)
	}
	return out, nil
}

func (p *HashProvider) vector(text string) []float32 {
	v := make([]float32, p.dim)
	tokens := textutil.ContentTokens(text)
	if len(tokens) == 0 {
		tokens = textutil.Tokens(text)
	}
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()

		idx := int(uint32(sum) % uint32(p.dim))
		sign := float32(1)
		if (sum>>32)&1 == 1 {
			sign = -1
		}
		weight := 1 + float32((sum>>40)&0xff)/255
		v[idx] += sign * weight
	}
	Normalize(v)
	return v
}
