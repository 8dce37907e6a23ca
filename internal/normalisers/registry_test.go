package normalisers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
)

type stubNormaliser struct {
	name     string
	types    []string
	priority int
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.types }
func (s *stubNormaliser) Priority() int                { return s.priority }
func (s *stubNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	return &driven.NormaliseResult{Document: NewDocument(raw, s.name, string(raw.Content), s.name)}, nil
}

func TestRegistry_PicksHighestPriority(t *testing.T) {
	r := NewRegistry(
		&stubNormaliser{name: "fallback", types: []string{"text/plain"}, priority: 5},
		&stubNormaliser{name: "preferred", types: []string{"text/plain"}, priority: 50},
	)

	result, err := r.Normalise(context.Background(), &domain.RawDocument{URI: "a.txt", MIMEType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "preferred", result.Document.Title)
}

func TestRegistry_DetectsMIMEType(t *testing.T) {
	r := NewRegistry(&stubNormaliser{name: "pdf", types: []string{MIMETypePDF}, priority: 50})

	raw := &domain.RawDocument{URI: "/uploads/EDITAL.PDF", Content: []byte("x")}
	result, err := r.Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, MIMETypePDF, result.Document.Metadata[MetadataMIMEType])
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.Normalise(context.Background(), &domain.RawDocument{URI: "a.xyz"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = r.Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistry_SupportedMIMETypes(t *testing.T) {
	r := NewRegistry(
		&stubNormaliser{types: []string{MIMETypePDF, MIMETypeText}, priority: 1},
		&stubNormaliser{types: []string{MIMETypeText}, priority: 2},
	)
	assert.Equal(t, []string{MIMETypePDF, MIMETypeText}, r.SupportedMIMETypes())
}

func TestDetectMIMEType(t *testing.T) {
	assert.Equal(t, MIMETypePDF, DetectMIMEType("lei.pdf"))
	assert.Equal(t, MIMETypeDOCX, DetectMIMEType("/a/TR.docx"))
	assert.Equal(t, MIMETypeText, DetectMIMEType("notes.TXT"))
	assert.Equal(t, "application/octet-stream", DetectMIMEType("noext"))
}

func TestNewDocument(t *testing.T) {
	raw := &domain.RawDocument{
		URI:      "/data/leis/lei_14133-2021.pdf",
		MIMEType: MIMETypePDF,
		Metadata: map[string]any{"source": "leis/lei_14133-2021.pdf"},
	}

	doc := NewDocument(raw, "", "conteúdo", "pdf")
	again := NewDocument(raw, "", "conteúdo", "pdf")

	assert.Equal(t, doc.ID, again.ID, "ID is derived from the URI")
	assert.Equal(t, "lei 14133 2021", doc.Title)
	assert.Equal(t, "pdf", doc.Metadata[MetadataFormat])
	assert.Equal(t, "leis/lei_14133-2021.pdf", doc.Metadata["source"])

	// Copy, not alias
	doc.Metadata["extra"] = true
	_, leaked := raw.Metadata["extra"]
	assert.False(t, leaked)
}

func TestMetadataTitle(t *testing.T) {
	assert.Equal(t, "Edital 01/2024", MetadataTitle(&domain.RawDocument{Metadata: map[string]any{"title": "Edital 01/2024"}}))
	assert.Empty(t, MetadataTitle(&domain.RawDocument{}))
}

func TestSniffMIMEType(t *testing.T) {
	assert.Equal(t, MIMETypePDF, SniffMIMEType("upload", []byte("%PDF-1.7 ...")))
	assert.Equal(t, MIMETypePDF, SniffMIMEType("a.pdf", []byte("garbage")))
	assert.Equal(t, MIMETypeText, SniffMIMEType("", []byte("texto simples")))
	assert.Equal(t, "application/octet-stream", SniffMIMEType("", []byte{0xff, 0x00, 0xfe}))
	assert.Equal(t, "application/octet-stream", SniffMIMEType("", nil))
}
