// Package sourcetag labels chunks with the reference file they came from,
// so retrieved passages can be cited.
package sourcetag

import (
	"context"
	"path/filepath"

	"github.com/aguiargov/licita/internal/core/domain"
)

// MetadataSourceKey lets a loader override the label (e.g. a path relative to the root).
const MetadataSourceKey = "source"

// Processor copies the document's source label onto each chunk.
type Processor struct{}

// New creates a source tagging processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "source_tag"
}

// Process sets Source on every chunk.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	source := Label(doc)
	for i := range chunks {
		chunks[i].Source = source
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any)
		}
		chunks[i].Metadata[MetadataSourceKey] = source
	}
	return chunks, nil
}

// Label returns the citation label for a document.
func Label(doc *domain.Document) string {
	if doc.Metadata != nil {
		if s, ok := doc.Metadata[MetadataSourceKey].(string); ok && s != "" {
			return s
		}
	}
	if doc.URI != "" {
		return filepath.Base(doc.URI)
	}
	return doc.Title
}
