package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// memorySnapshot is never mutated after publication
type memorySnapshot struct {
	dim     int
	records map[string]Record
}

// MemoryIndex is an in-process index. Writers build a new snapshot and
// publish it atomically, so searches never observe a half-applied upsert.
type MemoryIndex struct {
	writeMu sync.Mutex
	current atomic.Pointer[memorySnapshot]
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	idx := &MemoryIndex{}
	idx.current.Store(&memorySnapshot{records: map[string]Record{}})
	return idx
}

func (m *MemoryIndex) Name() string { return "memory" }

// Upsert copies the current snapshot, applies records and publishes it
func (m *MemoryIndex) Upsert(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	old := m.current.Load()
	next := &memorySnapshot{dim: old.dim, records: make(map[string]Record, len(old.records)+len(records))}
	for id, r := range old.records {
		next.records[id] = r
	}
	for _, r := range records {
		if next.dim == 0 {
			next.dim = len(r.Vector)
		}
		if len(r.Vector) != next.dim {
			return fmt.Errorf("%w: record %s has %d dimensions, index has %d", ErrDimensionMismatch, r.ID, len(r.Vector), next.dim)
		}
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		r.Vector = vec
		next.records[r.ID] = r
	}
	m.current.Store(next)
	return nil
}

// Search scans the snapshot; ties are ordered by id
func (m *MemoryIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := m.current.Load()
	if len(snap.records) == 0 || k <= 0 {
		return nil, nil
	}
	if len(vector) != snap.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(vector), snap.dim)
	}

	hits := make([]Hit, 0, len(snap.records))
	for id, r := range snap.records {
		hits = append(hits, Hit{ID: id, Score: Cosine(vector, r.Vector)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MemoryIndex) Dimension(context.Context) (int, error) {
	return m.current.Load().dim, nil
}

func (m *MemoryIndex) Count(context.Context) (int, error) {
	return len(m.current.Load().records), nil
}

func (m *MemoryIndex) Ping(context.Context) error { return nil }

func (m *MemoryIndex) Reset(context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.current.Store(&memorySnapshot{records: map[string]Record{}})
	return nil
}
