package driven

import (
	"context"

	"github.com/aguiargov/licita/internal/core/domain"
)

// VectorIndex provides semantic similarity search over knowledge base chunks.
// An index is immutable once built except through Add; concurrent Search
// calls are safe.
type VectorIndex interface {
	// Add inserts entries. Entries with an empty embedding are rejected.
	Add(ctx context.Context, entries []domain.IndexEntry) error

	// Search finds the k nearest entries to the query vector, most similar first.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of indexed entries.
	Len() int

	// Entries returns every indexed entry in insertion order.
	Entries() []domain.IndexEntry

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Entry is the matched chunk with its source.
	Entry domain.IndexEntry

	// Similarity is the cosine similarity score (-1 to 1).
	Similarity float64
}
