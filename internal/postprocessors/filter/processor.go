// Package filter drops chunks that carry too little text to be worth embedding.
package filter

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/aguiargov/licita/internal/core/domain"
)

// DefaultMinLength is the shortest trimmed chunk that is kept.
const DefaultMinLength = 20

// MetadataFilteredKey records on the document how many chunks were dropped.
const MetadataFilteredKey = "filtered_chunks"

// Processor removes empty and near-empty chunks.
type Processor struct {
	minLength int
}

// New creates a filter that drops chunks shorter than minLength characters
// after trimming. Non-positive values use DefaultMinLength.
func New(minLength int) *Processor {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Processor{minLength: minLength}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "filter"
}

// Process keeps chunks with enough text, trimming surrounding whitespace.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	kept := chunks[:0]
	for _, c := range chunks {
		c.Content = strings.TrimSpace(c.Content)
		if utf8.RuneCountInString(c.Content) < p.minLength {
			continue
		}
		kept = append(kept, c)
	}

	if dropped := len(chunks) - len(kept); dropped > 0 {
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]any)
		}
		doc.Metadata[MetadataFilteredKey] = dropped
	}

	return kept, nil
}
