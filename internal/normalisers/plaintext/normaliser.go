// Package plaintext handles plain text and lightly formatted text files.
package plaintext

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		normalisers.MIMETypeText,
		"text/markdown",
		"text/x-markdown",
		"text/csv",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise converts a raw document to a normalised document.
// The Content field contains the full text content.
// Chunking is handled by the PostProcessor pipeline.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(raw.Content) {
		return nil, fmt.Errorf("%w: %s: not valid UTF-8 text", domain.ErrUnreadableSource, raw.URI)
	}

	content := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: %s: file is empty", domain.ErrUnreadableSource, raw.URI)
	}

	doc := normalisers.NewDocument(raw, normalisers.MetadataTitle(raw), content, "text")

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}
