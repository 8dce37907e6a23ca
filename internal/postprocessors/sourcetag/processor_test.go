package sourcetag

import (
	"context"
	"testing"

	"github.com/aguiargov/licita/internal/core/domain"
)

func TestProcessor_Process(t *testing.T) {
	doc := &domain.Document{ID: "doc", URI: "/data/jurisprudencia/acordao.pdf"}
	chunks := []domain.Chunk{{ID: "1", Content: "a"}, {ID: "2", Content: "b", Metadata: map[string]any{"x": 1}}}

	out, err := New().Process(context.Background(), doc, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, c := range out {
		if c.Source != "acordao.pdf" {
			t.Errorf("expected source acordao.pdf, got %q", c.Source)
		}
		if c.Metadata[MetadataSourceKey] != "acordao.pdf" {
			t.Errorf("expected source metadata, got %v", c.Metadata)
		}
	}
	if out[1].Metadata["x"] != 1 {
		t.Error("existing metadata should be preserved")
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		doc  domain.Document
		want string
	}{
		{"metadata override", domain.Document{URI: "/a/b.pdf", Metadata: map[string]any{"source": "leis/b.pdf"}}, "leis/b.pdf"},
		{"uri base", domain.Document{URI: "/a/b.pdf"}, "b.pdf"},
		{"title fallback", domain.Document{Title: "edital"}, "edital"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Label(&tc.doc); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "source_tag" {
		t.Error("expected name 'source_tag'")
	}
}
