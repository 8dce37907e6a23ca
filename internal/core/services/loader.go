package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/logger"
	"github.com/aguiargov/licita/internal/normalisers"
)

// DefaultMinTextLength is the shortest extracted text treated as readable.
const DefaultMinTextLength = 50

// Document metadata keys shared with the postprocessor pipeline.
const (
	metadataSource   = "source"
	metadataFiltered = "filtered_chunks"
)

// DocumentLoader turns file bytes into text through the normaliser registry.
// It serves both the knowledge base build and the uploaded document under audit.
type DocumentLoader struct {
	registry      driven.NormaliserRegistry
	minTextLength int
}

// NewDocumentLoader creates a loader. A non-positive minTextLength uses DefaultMinTextLength.
func NewDocumentLoader(registry driven.NormaliserRegistry, minTextLength int) *DocumentLoader {
	if minTextLength <= 0 {
		minTextLength = DefaultMinTextLength
	}
	return &DocumentLoader{
		registry:      registry,
		minTextLength: minTextLength,
	}
}

// MinTextLength returns the readability threshold in characters.
func (l *DocumentLoader) MinTextLength() int {
	return l.minTextLength
}

// ExtractText returns the best-effort text of a document.
// Corrupted, encrypted or image-only input yields "".
func (l *DocumentLoader) ExtractText(ctx context.Context, data []byte) string {
	doc, err := l.normalise(ctx, "", data, nil)
	if err != nil {
		logger.Debug("Text extraction failed: %v", err)
		return ""
	}
	return doc.Content
}

// Load extracts the text of a named document.
// Returns domain.ErrUnreadableSource when the trimmed text is shorter than the threshold.
func (l *DocumentLoader) Load(ctx context.Context, name string, data []byte) (*domain.Document, error) {
	return l.load(ctx, name, data, nil)
}

// LoadReference loads a knowledge base file, labelling its chunks with the
// path relative to the knowledge base root.
func (l *DocumentLoader) LoadReference(ctx context.Context, relPath string, data []byte) (*domain.Document, error) {
	return l.load(ctx, relPath, data, map[string]any{metadataSource: relPath})
}

func (l *DocumentLoader) load(
	ctx context.Context, name string, data []byte, metadata map[string]any,
) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := l.normalise(ctx, name, data, metadata)
	if err != nil {
		if errors.Is(err, domain.ErrUnreadableSource) || errors.Is(err, domain.ErrInvalidInput) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnreadableSource, describeLoadError(err))
		}
		return nil, err
	}

	if n := utf8.RuneCountInString(strings.TrimSpace(doc.Content)); n < l.minTextLength {
		return nil, fmt.Errorf("%w: %s: only %d characters of text (minimum %d)",
			domain.ErrUnreadableSource, name, n, l.minTextLength)
	}
	return doc, nil
}

func (l *DocumentLoader) normalise(
	ctx context.Context, name string, data []byte, metadata map[string]any,
) (*domain.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s: empty file", domain.ErrUnreadableSource, name)
	}

	raw := &domain.RawDocument{
		URI:      name,
		MIMEType: normalisers.SniffMIMEType(name, data),
		Content:  data,
		Metadata: metadata,
	}

	result, err := l.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, err
	}
	doc := result.Document
	return &doc, nil
}

// describeLoadError strips the sentinel prefix so messages do not repeat it.
func describeLoadError(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{domain.ErrUnreadableSource, domain.ErrInvalidInput} {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return msg
}
