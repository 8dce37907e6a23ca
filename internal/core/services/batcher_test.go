package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguiargov/licita/internal/core/domain"
)

func makeChunks(n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:      fmt.Sprintf("c%d", i),
			Source:  "lei.pdf",
			Content: fmt.Sprintf("trecho %d sobre licitação", i),
		}
	}
	return chunks
}

func TestEmbeddingBatcher_SplitsIntoBatches(t *testing.T) {
	embedder := &mockEmbedder{}
	batcher := NewEmbeddingBatcher(embedder, 64, 0)

	vectors, err := batcher.Embed(context.Background(), makeChunks(150))

	require.NoError(t, err)
	assert.Len(t, vectors, 150)
	assert.Equal(t, []int{64, 64, 22}, embedder.batchSizes)
}

func TestEmbeddingBatcher_PreservesOrder(t *testing.T) {
	embedder := &mockEmbedder{}
	batcher := NewEmbeddingBatcher(embedder, 2, 0)
	chunks := []domain.Chunk{
		{Content: "capital social"},
		{Content: "prazo"},
		{Content: "bdi bdi"},
	}

	vectors, err := batcher.Embed(context.Background(), chunks)

	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, c := range chunks {
		assert.Equal(t, embedder.vector(c.Content), vectors[i])
	}
}

func TestEmbeddingBatcher_ClampsBatchSize(t *testing.T) {
	assert.Equal(t, DefaultBatchSize, NewEmbeddingBatcher(&mockEmbedder{}, 0, 0).BatchSize())
	assert.Equal(t, MaxBatchSize, NewEmbeddingBatcher(&mockEmbedder{}, 500, 0).BatchSize())
	assert.Equal(t, 1, NewEmbeddingBatcher(&mockEmbedder{}, 1, 0).BatchSize())
}

func TestEmbeddingBatcher_NeverSubmitsEmptyText(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", " \n\t "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := &mockEmbedder{}
			batcher := NewEmbeddingBatcher(embedder, 2, 0)
			chunks := makeChunks(5)
			chunks[3].Content = tt.content

			_, err := batcher.Embed(context.Background(), chunks)

			require.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Zero(t, embedder.totalCalls(), "no remote call may be made")
		})
	}
}

func TestEmbeddingBatcher_FailureAbortsWithClassifiedError(t *testing.T) {
	quota := domain.NewRemoteError(domain.KindQuotaExhausted, "openai", 429, "insufficient_quota")
	embedder := &mockEmbedder{failOnBatch: 2, err: quota}
	batcher := NewEmbeddingBatcher(embedder, 10, 0)

	vectors, err := batcher.Embed(context.Background(), makeChunks(35))

	require.ErrorIs(t, err, domain.ErrQuotaExhausted)
	assert.Nil(t, vectors)
	assert.Contains(t, err.Error(), "10-20")
	assert.Equal(t, 2, embedder.batchCalls, "later batches are not attempted")
}

func TestEmbeddingBatcher_VectorCountMismatch(t *testing.T) {
	embedder := &mockEmbedder{short: true}
	batcher := NewEmbeddingBatcher(embedder, 10, 0)

	_, err := batcher.Embed(context.Background(), makeChunks(5))

	assert.ErrorIs(t, err, domain.ErrRemote)
}

func TestEmbeddingBatcher_Progress(t *testing.T) {
	batcher := NewEmbeddingBatcher(&mockEmbedder{}, 4, 0)
	var progress [][2]int
	batcher.OnBatch = func(done, total int) {
		progress = append(progress, [2]int{done, total})
	}

	_, err := batcher.Embed(context.Background(), makeChunks(10))

	require.NoError(t, err)
	assert.Equal(t, [][2]int{{4, 10}, {8, 10}, {10, 10}}, progress)
}

func TestEmbeddingBatcher_Empty(t *testing.T) {
	embedder := &mockEmbedder{}
	vectors, err := NewEmbeddingBatcher(embedder, 4, 0).Embed(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, embedder.totalCalls())
}

func TestEmbeddingBatcher_PausesBetweenBatches(t *testing.T) {
	batcher := NewEmbeddingBatcher(&mockEmbedder{}, 1, 20*time.Millisecond)

	start := time.Now()
	_, err := batcher.Embed(context.Background(), makeChunks(3))

	require.NoError(t, err)
	// The first batch goes out immediately; the next two each wait one pause.
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestEmbeddingBatcher_CancelledDuringPause(t *testing.T) {
	embedder := &mockEmbedder{}
	batcher := NewEmbeddingBatcher(embedder, 1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	batcher.OnBatch = func(int, int) { cancel() }

	_, err := batcher.Embed(ctx, makeChunks(3))

	require.Error(t, err)
	assert.Equal(t, domain.KindCancelled, domain.Classify(err))
	assert.Equal(t, 1, embedder.batchCalls)
}
