package postprocessors

import (
	"fmt"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/postprocessors/chunker"
	"github.com/aguiargov/licita/internal/postprocessors/filter"
	"github.com/aguiargov/licita/internal/postprocessors/sourcetag"
)

// RegisterDefaults registers the chunker, filter and source_tag processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("filter", buildFilter)
	r.Register("source_tag", func(map[string]any) (driven.PostProcessor, error) {
		return sourcetag.New(), nil
	})
}

// DefaultPipeline builds the ingestion pipeline for the given knowledge base settings.
func DefaultPipeline(kb domain.KnowledgeBaseSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.BuildPipeline(domain.PipelineConfigFor(kb))
}

// buildChunker reads chunk_size and overlap. Zero or missing values keep
// the chunker defaults; negative ones are rejected.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	size, err := configInt(cfg, "chunk_size")
	if err != nil {
		return nil, err
	}
	opts := []chunker.Option{chunker.WithChunkSize(size)}

	if _, set := cfg["overlap"]; set {
		overlap, err := configInt(cfg, "overlap")
		if err != nil {
			return nil, err
		}
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	return chunker.New(opts...), nil
}

// buildFilter reads min_length; zero means filter.DefaultMinLength.
func buildFilter(cfg map[string]any) (driven.PostProcessor, error) {
	minLength, err := configInt(cfg, "min_length")
	if err != nil {
		return nil, err
	}
	return filter.New(minLength), nil
}

// configInt returns cfg[key] as a non-negative int. Missing keys read as 0.
// Numbers decoded from TOML (int64) and JSON (float64) are accepted.
func configInt(cfg map[string]any, key string) (int, error) {
	raw, ok := cfg[key]
	if !ok {
		return 0, nil
	}

	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", domain.ErrInvalidInput, key, raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative, got %d", domain.ErrInvalidInput, key, n)
	}
	return n, nil
}
