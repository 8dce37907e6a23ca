package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguiargov/licita/internal/adapters/driven/storage/memory"
	"github.com/aguiargov/licita/internal/core/domain"
)

func TestClampRetrievalK(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{1, MinRetrievalK},
		{4, 4},
		{6, 6},
		{7, 7},
		{20, MaxRetrievalK},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampRetrievalK(tt.in), "k=%d", tt.in)
	}
}

func TestRetriever_ClampsK(t *testing.T) {
	embedder := &mockEmbedder{}
	entries := make([]domain.IndexEntry, 10)
	for i := range entries {
		entries[i] = domain.IndexEntry{
			ChunkID:   string(rune('a' + i)),
			Source:    "lei.pdf",
			Content:   "capital social",
			Embedding: embedder.vector("capital social"),
		}
	}
	index, err := memory.Build(entries)
	require.NoError(t, err)
	kb := NewKnowledgeBase(index, embedder, domain.IngestReport{})

	tests := []struct {
		name string
		k    int
		want int
	}{
		{"default", 0, DefaultRetrievalK},
		{"below minimum", 2, MinRetrievalK},
		{"in range", 6, 6},
		{"above maximum", 12, MaxRetrievalK},
	}
	retriever := NewRetriever(kb, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passages, err := retriever.Retrieve(context.Background(), "capital", tt.k)
			require.NoError(t, err)
			assert.Len(t, passages, tt.want)
		})
	}
}

func TestRetriever_FewerEntriesThanK(t *testing.T) {
	kb, _, err := newTestBuilder(t, writeReferenceLibrary(t), &mockEmbedder{}, nil).Build(context.Background())
	require.NoError(t, err)

	passages, err := NewRetriever(kb, 7).Retrieve(context.Background(), "vistoria obrigatória", 0)

	require.NoError(t, err)
	assert.Len(t, passages, 2)
	assert.Equal(t, "jurisprudencia/acordao.pdf", passages[0].Source)
}

func TestSources(t *testing.T) {
	passages := []domain.Passage{
		{Source: "b.pdf"},
		{Source: "a.pdf"},
		{Source: "b.pdf"},
		{Source: ""},
		{Source: "c.pdf"},
	}

	assert.Equal(t, []string{"b.pdf", "a.pdf", "c.pdf"}, Sources(passages))
	assert.Nil(t, Sources(nil))
}
