// Package pdf extracts text from PDF documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/logger"
	"github.com/aguiargov/licita/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MetadataPages records how many pages yielded text.
const MetadataPages = "pages"

// maxTitleLength bounds a first line used as a title.
const maxTitleLength = 200

// PageExtractor returns the text of each page of a PDF, in page order.
// Pages without a text layer come back as "".
type PageExtractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}

// Normaliser handles PDF documents.
type Normaliser struct {
	extractor PageExtractor
}

// New creates a PDF normaliser backed by the pure Go reader.
func New() *Normaliser {
	return &Normaliser{extractor: readerExtractor{}}
}

// NewWithExtractor creates a PDF normaliser with a custom page extractor.
// This is primarily useful for testing.
func NewWithExtractor(extractor PageExtractor) *Normaliser {
	return &Normaliser{extractor: extractor}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{normalisers.MIMETypePDF}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text of every page.
// Returns domain.ErrUnreadableSource when the file cannot be parsed or has no text layer.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pages, err := n.extractor.ExtractPages(ctx, raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnreadableSource, raw.URI, err)
	}

	var b strings.Builder
	textPages := 0
	for _, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(page)
		textPages++
	}

	content := b.String()
	if content == "" {
		return nil, fmt.Errorf("%w: %s: no text layer", domain.ErrUnreadableSource, raw.URI)
	}

	title := normalisers.MetadataTitle(raw)
	if title == "" {
		title = extractTitle(content, raw.URI)
	}

	doc := normalisers.NewDocument(raw, title, content, "pdf")
	doc.Pages = textPages
	doc.Metadata[MetadataPages] = textPages

	return &driven.NormaliseResult{Document: doc}, nil
}

// extractTitle uses the first short non-empty line, or the file name.
func extractTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Trim(line, "\x00") == "" {
			continue
		}
		if len(line) > maxTitleLength {
			continue
		}
		return line
	}
	return normalisers.TitleFromURI(uri)
}

// readerExtractor reads PDFs with github.com/dslipak/pdf.
type readerExtractor struct{}

func (readerExtractor) ExtractPages(ctx context.Context, data []byte) (pages []string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	numPages := r.NumPage()
	pages = make([]string, 0, numPages)

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Debug("pdf page %d: %v", i, err)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return pages, nil
}
