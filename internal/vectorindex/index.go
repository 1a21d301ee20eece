// Package vectorindex stores passage vectors and answers nearest-neighbour
// queries by cosine similarity.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/nurpath/nurpath/internal/model"
)

// ErrDimensionMismatch is returned when a vector's size differs from the
// size the index was built with
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Record is one passage vector
type Record struct {
	ID         string
	SourceID   string
	SourceType model.SourceType
	Vector     []float32
}

// Hit is a search result. Score is cosine similarity in [-1, 1].
type Hit struct {
	ID    string
	Score float64
}

// Index is a vector store keyed by passage id
type Index interface {
	// Name returns the backend name
	Name() string

	// Upsert inserts or replaces records
	Upsert(ctx context.Context, records []Record) error

	// Search returns up to k hits ordered by descending score
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)

	// Dimension returns the stored vector size, or 0 when the index is empty
	Dimension(ctx context.Context) (int, error)

	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)

	// Ping checks connectivity
	Ping(ctx context.Context) error

	// Reset removes every record
	Reset(ctx context.Context) error
}

// New creates the configured index backend
func New(ctx context.Context, cfg model.IndexConfig, logger *slog.Logger) (Index, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryIndex(), nil
	case "weaviate":
		return NewWeaviateIndex(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown index backend: %s (supported: memory, weaviate)", cfg.Backend)
	}
}

// Cosine returns the cosine similarity of a and b; 0 for mismatched or
// zero vectors
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
