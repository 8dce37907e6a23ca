package filter

import (
	"context"
	"testing"

	"github.com/aguiargov/licita/internal/core/domain"
)

func TestNew_Default(t *testing.T) {
	if p := New(0); p.minLength != DefaultMinLength {
		t.Errorf("expected default min length, got %d", p.minLength)
	}
	if p := New(5); p.minLength != 5 {
		t.Errorf("expected min length 5, got %d", p.minLength)
	}
}

func TestProcessor_Name(t *testing.T) {
	if New(0).Name() != "filter" {
		t.Error("expected name 'filter'")
	}
}

func TestProcessor_Process(t *testing.T) {
	doc := &domain.Document{ID: "doc"}
	chunks := []domain.Chunk{
		{ID: "1", Content: "  Art. 62. A habilitação é a fase da licitação.  "},
		{ID: "2", Content: "   "},
		{ID: "3", Content: "Pág. 4"},
		{ID: "4", Content: "Súmula 247 do TCU sobre parcelamento do objeto."},
	}

	kept, err := New(20).Process(context.Background(), doc, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(kept) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(kept))
	}
	if kept[0].ID != "1" || kept[1].ID != "4" {
		t.Errorf("unexpected chunks kept: %s, %s", kept[0].ID, kept[1].ID)
	}
	if kept[0].Content != "Art. 62. A habilitação é a fase da licitação." {
		t.Errorf("expected trimmed content, got %q", kept[0].Content)
	}
	if doc.Metadata[MetadataFilteredKey] != 2 {
		t.Errorf("expected 2 filtered chunks recorded, got %v", doc.Metadata[MetadataFilteredKey])
	}
}

func TestProcessor_Process_NothingDropped(t *testing.T) {
	doc := &domain.Document{ID: "doc"}
	kept, err := New(3).Process(context.Background(), doc, []domain.Chunk{{ID: "1", Content: "abcdef"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kept) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(kept))
	}
	if doc.Metadata != nil {
		t.Errorf("expected no metadata, got %v", doc.Metadata)
	}
}
