// Package embedding turns text into dense vectors. Providers are
// interchangeable; the retriever only relies on Dimension and Embed.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Mode distinguishes query from passage embeddings for asymmetric models
type Mode string

const (
	ModeQuery   Mode = "query"
	ModePassage Mode = "passage"
)

// ErrDimensionMismatch is returned when a provider yields vectors of an
// unexpected size
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Provider defines the interface for embedding providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Model returns the model identifier
	Model() string

	// Dimension returns the size of produced vectors
	Dimension() int

	// Embed returns one vector per input text, in order
	Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error)
}

// EmbedOne embeds a single text
func EmbedOne(ctx context.Context, p Provider, text string, mode Mode) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text}, mode)
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("provider %s returned %d vectors for 1 input", p.Name(), len(vecs))
	}
	return vecs[0], nil
}

// Prefix returns the instruction prefix e5-family models expect
func Prefix(model string, mode Mode) string {
	if !strings.Contains(strings.ToLower(model), "e5") {
		return ""
	}
	if mode == ModeQuery {
		return "query: "
	}
	return "passage: "
}

// checkDimensions verifies every vector has dim entries
func checkDimensions(vecs [][]float32, dim int) error {
	for i, v := range vecs {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}

// Normalize scales v to unit length in place; zero vectors are left alone
func Normalize(v []float32) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
