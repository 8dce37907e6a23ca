package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/logger"
)

// Embedding batch limits.
const (
	DefaultBatchSize  = 64
	MaxBatchSize      = 100
	DefaultBatchPause = 500 * time.Millisecond
)

// EmbeddingBatcher embeds chunks in bounded, paced requests so large
// reference libraries stay under provider request and rate ceilings.
type EmbeddingBatcher struct {
	embedder  driven.EmbeddingService
	batchSize int
	pause     time.Duration

	// OnBatch is called after each successful batch. May be nil.
	OnBatch func(done, total int)
}

// NewEmbeddingBatcher creates a batcher. The batch size is clamped to [1, MaxBatchSize];
// a zero pause disables pacing.
func NewEmbeddingBatcher(embedder driven.EmbeddingService, batchSize int, pause time.Duration) *EmbeddingBatcher {
	switch {
	case batchSize <= 0:
		batchSize = DefaultBatchSize
	case batchSize > MaxBatchSize:
		batchSize = MaxBatchSize
	}
	if pause < 0 {
		pause = 0
	}
	return &EmbeddingBatcher{
		embedder:  embedder,
		batchSize: batchSize,
		pause:     pause,
	}
}

// BatchSize returns the effective batch size.
func (b *EmbeddingBatcher) BatchSize() int {
	return b.batchSize
}

// Embed returns one vector per chunk, in chunk order.
// Any failed batch aborts the whole operation.
func (b *EmbeddingBatcher) Embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		if strings.TrimSpace(chunks[i].Content) == "" {
			return nil, fmt.Errorf("%w: chunk %d of %s is empty", domain.ErrInvalidInput, i, chunks[i].Source)
		}
		texts[i] = chunks[i].Content
	}

	var limiter *rate.Limiter
	if b.pause > 0 {
		limiter = rate.NewLimiter(rate.Every(b.pause), 1)
	}

	total := len(texts)
	batches := (total + b.batchSize - 1) / b.batchSize
	logger.Debug("Embedding %d chunks in %d batches of up to %d", total, batches, b.batchSize)

	vectors := make([][]float32, 0, total)
	for start := 0; start < total; start += b.batchSize {
		end := min(start+b.batchSize, total)

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := b.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			logger.Warn("Embedding batch %d-%d of %d failed: %v", start, end, total, err)
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: embedding batch %d-%d returned %d vectors for %d texts",
				domain.ErrRemote, start, end, len(batch), end-start)
		}
		for i, v := range batch {
			if len(v) == 0 {
				return nil, fmt.Errorf("%w: embedding batch %d-%d returned an empty vector at %d",
					domain.ErrRemote, start, end, start+i)
			}
		}

		vectors = append(vectors, batch...)
		if b.OnBatch != nil {
			b.OnBatch(len(vectors), total)
		}
	}

	return vectors, nil
}
