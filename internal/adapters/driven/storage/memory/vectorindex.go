package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is a brute-force cosine similarity index.
// Reference libraries hold a few thousand chunks, so an exact scan is fast enough.
type VectorIndex struct {
	mu        sync.RWMutex
	dimension int
	entries   []domain.IndexEntry
	norms     []float64
}

// NewVectorIndex creates an empty index. Use Build to seed one.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{}
}

// Build creates an index from entries, failing on the first invalid one.
func Build(entries []domain.IndexEntry) (*VectorIndex, error) {
	idx := &VectorIndex{}
	if err := idx.Add(context.Background(), entries); err != nil {
		return nil, err
	}
	return idx, nil
}

// Add inserts entries. All entries must share one non-zero dimension;
// on error nothing is inserted.
func (v *VectorIndex) Add(ctx context.Context, entries []domain.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	dim := v.dimension
	norms := make([]float64, len(entries))
	for i := range entries {
		n := len(entries[i].Embedding)
		if n == 0 {
			return fmt.Errorf("%w: entry %d (%s) has no embedding", domain.ErrInvalidInput, i, entries[i].ChunkID)
		}
		if dim == 0 {
			dim = n
		}
		if n != dim {
			return fmt.Errorf("%w: entry %d has dimension %d, index has %d", domain.ErrInvalidInput, i, n, dim)
		}
		norms[i] = norm(entries[i].Embedding)
	}

	v.dimension = dim
	v.entries = append(v.entries, entries...)
	v.norms = append(v.norms, norms...)
	return nil
}

// Search returns the k entries most similar to query, most similar first.
// Ties keep insertion order.
func (v *VectorIndex) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if k <= 0 || len(v.entries) == 0 {
		return []driven.VectorHit{}, nil
	}
	if len(query) != v.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", domain.ErrInvalidInput, len(query), v.dimension)
	}

	qNorm := norm(query)
	hits := make([]driven.VectorHit, len(v.entries))
	for i := range v.entries {
		hits[i] = driven.VectorHit{
			Entry:      v.entries[i],
			Similarity: cosine(query, v.entries[i].Embedding, qNorm, v.norms[i]),
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed entries.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Dimension returns the embedding size, zero while empty.
func (v *VectorIndex) Dimension() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dimension
}

// Entries returns a copy of every entry in insertion order.
func (v *VectorIndex) Entries() []domain.IndexEntry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]domain.IndexEntry, len(v.entries))
	copy(out, v.entries)
	return out
}

// Close releases the entries.
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = nil
	v.norms = nil
	return nil
}

func norm(vec []float32) float64 {
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 for zero vectors.
func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}
