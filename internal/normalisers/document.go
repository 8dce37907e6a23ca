package normalisers

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aguiargov/licita/internal/core/domain"
)

// Metadata keys set by every normaliser.
const (
	MetadataMIMEType = "mime_type"
	MetadataFormat   = "format"
)

var documentNamespace = uuid.MustParse("0b9d2a5e-51f4-4c8f-8f6e-2d7a0c3e6b19")

// NewDocument builds a normalised document from a raw one.
// The ID is derived from the URI so re-reading a file yields the same ID.
func NewDocument(raw *domain.RawDocument, title, content, format string) domain.Document {
	if title == "" {
		title = TitleFromURI(raw.URI)
	}

	doc := domain.Document{
		ID:       uuid.NewSHA1(documentNamespace, []byte(raw.URI)).String(),
		URI:      raw.URI,
		Title:    title,
		Content:  content,
		Metadata: copyMetadata(raw.Metadata),
		LoadedAt: time.Now(),
	}

	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata[MetadataMIMEType] = raw.MIMEType
	if format != "" {
		doc.Metadata[MetadataFormat] = format
	}

	return doc
}

// TitleFromURI extracts a human-readable title from a URI.
// A "title" entry in raw metadata takes precedence when callers pass it in.
func TitleFromURI(uri string) string {
	filename := filepath.Base(uri)

	// Remove common extensions for cleaner title
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}

	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")

	return filename
}

// MetadataTitle returns raw.Metadata["title"] when set.
func MetadataTitle(raw *domain.RawDocument) string {
	if raw.Metadata != nil {
		if title, ok := raw.Metadata["title"].(string); ok && title != "" {
			return title
		}
	}
	return ""
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
