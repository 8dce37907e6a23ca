// Package gemini provides an embedding service adapter using the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel = "gemini-embedding-001"

	// MaxBatch is the largest batchEmbedContents request the API accepts.
	MaxBatch = 100

	provider = "gemini"
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model to use (default: gemini-embedding-001).
	Model string

	// Endpoint overrides the API endpoint.
	Endpoint string

	// Dimensions is the vector size; zero resolves it from the model table.
	Dimensions int
}

// EmbeddingService generates embeddings using the Gemini API.
// Reference chunks are embedded as retrieval documents and single texts
// as retrieval queries.
type EmbeddingService struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = domain.EmbeddingDimensions()[cfg.Model]
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &EmbeddingService{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates a query embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	em := s.client.EmbeddingModel(s.model)
	em.TaskType = genai.TaskTypeRetrievalQuery

	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, RemoteError(err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: gemini: no embedding returned", domain.ErrRemote)
	}
	return res.Embedding.Values, nil
}

// EmbedBatch embeds texts as retrieval documents, MaxBatch per request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := s.client.EmbeddingModel(s.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatch {
		end := min(start+MaxBatch, len(texts))

		batch := em.NewBatch()
		for _, text := range texts[start:end] {
			batch.AddContent(genai.Text(text))
		}

		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, RemoteError(err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d inputs",
				domain.ErrRemote, len(res.Embeddings), end-start)
		}
		for _, e := range res.Embeddings {
			if e == nil {
				return nil, fmt.Errorf("%w: gemini returned an empty embedding", domain.ErrRemote)
			}
			embeddings = append(embeddings, e.Values)
		}
	}

	if s.dimensions == 0 && len(embeddings[0]) > 0 {
		s.dimensions = len(embeddings[0])
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key by reading the model metadata.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.client.EmbeddingModel(s.model).Info(ctx); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", RemoteError(err))
	}
	return nil
}

// Close releases the underlying client.
func (s *EmbeddingService) Close() error {
	return s.client.Close()
}

// RemoteError translates Gemini client errors into the domain taxonomy.
// Gemini reports both per-minute and daily limits as 429; only the daily
// ones are exhausted quota.
func RemoteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	statusCode, message := 0, err.Error()
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		statusCode, message = gerr.Code, gerr.Message
		if message == "" {
			message = gerr.Body
		}
	} else if st, ok := status.FromError(err); ok {
		statusCode, message = httpStatus(st.Code()), st.Message()
	}

	kind := domain.ClassifyStatus(statusCode, "", message)
	if statusCode == http.StatusTooManyRequests {
		kind = domain.KindRateLimited
		if strings.Contains(message, "PerDay") || strings.Contains(strings.ToLower(message), "per day") {
			kind = domain.KindQuotaExhausted
		}
	}
	return domain.NewRemoteError(kind, provider, statusCode, message)
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
