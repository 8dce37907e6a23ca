package services

import (
	"context"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/logger"
)

// Retrieval depth bounds.
const (
	DefaultRetrievalK = 4
	MinRetrievalK     = 4
	MaxRetrievalK     = 7
)

// Retriever returns the reference passages most relevant to a focus query.
// Query results are not cached.
type Retriever struct {
	kb       *KnowledgeBase
	defaultK int
}

// NewRetriever creates a retriever over a built knowledge base.
// A zero defaultK uses DefaultRetrievalK.
func NewRetriever(kb *KnowledgeBase, defaultK int) *Retriever {
	if defaultK <= 0 {
		defaultK = DefaultRetrievalK
	}
	return &Retriever{kb: kb, defaultK: ClampRetrievalK(defaultK)}
}

// Retrieve returns up to k passages in rank order. k is clamped to [4, 7];
// zero uses the retriever default.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	if k <= 0 {
		k = r.defaultK
	}
	k = ClampRetrievalK(k)

	passages, err := r.kb.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	logger.Debug("Retrieved %d passages for %q", len(passages), query)
	return passages, nil
}

// ClampRetrievalK bounds k to the supported retrieval depth.
func ClampRetrievalK(k int) int {
	return max(MinRetrievalK, min(k, MaxRetrievalK))
}

// Sources returns the distinct source files of passages in rank order.
func Sources(passages []domain.Passage) []string {
	seen := make(map[string]bool, len(passages))
	var sources []string
	for _, p := range passages {
		if p.Source == "" || seen[p.Source] {
			continue
		}
		seen[p.Source] = true
		sources = append(sources, p.Source)
	}
	return sources
}
