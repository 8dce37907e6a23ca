package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguiargov/licita/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns passages", func(t *testing.T) {
		kb := &mockKnowledgeBaseService{
			passages: []domain.Passage{
				{Source: "lei_14133.pdf", Content: "Art. 62. A habilitação...", Score: 0.91},
			},
		}
		server, err := NewServer(&Ports{Audit: &mockAuditService{}, KnowledgeBase: kb})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "habilitação", K: 2})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, "lei_14133.pdf", output.Passages[0].Source)
		assert.Equal(t, 0.91, output.Passages[0].Score)
		assert.Equal(t, 2, kb.lastK)
	})

	t.Run("default k", func(t *testing.T) {
		kb := &mockKnowledgeBaseService{}
		server, err := NewServer(&Ports{Audit: &mockAuditService{}, KnowledgeBase: kb})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "prazo"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Equal(t, defaultSearchK, kb.lastK)
	})

	t.Run("empty knowledge base error carries operator message", func(t *testing.T) {
		kb := &mockKnowledgeBaseService{
			err: &domain.UnavailableError{Reason: domain.ReasonNoPDFs, Detail: "data"},
		}
		server, err := NewServer(&Ports{Audit: &mockAuditService{}, KnowledgeBase: kb})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "prazo"})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrEmptyKnowledgeBase)
		assert.Contains(t, err.Error(), "nenhum PDF")
	})
}

func TestServer_handleAudit(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "edital.pdf")
	require.NoError(t, os.WriteFile(path, []byte("conteúdo"), 0o600))

	t.Run("runs the audit and counts classes", func(t *testing.T) {
		audit := &mockAuditService{
			result: &domain.AuditResult{
				RunID:        "run-1",
				DocumentName: "edital.pdf",
				DocumentType: domain.DocumentTypeEdital,
				Entries: []domain.AuditEntry{
					{Topic: "1. Objeto", Verdict: "🚨 ALERTA VERMELHO: direcionamento", Class: domain.VerdictIrregular},
					{Topic: "2. Habilitação", Verdict: "✅ CONFORME", Class: domain.VerdictCompliant},
					{Topic: "3. Qualificação", Verdict: "limite", Failure: domain.KindQuotaExhausted, Attempts: 1},
				},
			},
		}
		server, err := NewServer(&Ports{Audit: audit, KnowledgeBase: &mockKnowledgeBaseService{}})
		require.NoError(t, err)

		_, output, err := server.handleAudit(ctx, nil, AuditInput{Path: path, DocumentType: "EDITAL", K: 3})

		require.NoError(t, err)
		assert.Equal(t, "edital.pdf", audit.last.DocumentName)
		assert.Equal(t, domain.DocumentTypeEdital, audit.last.DocumentType)
		assert.Equal(t, 3, audit.last.K)
		assert.Equal(t, []byte("conteúdo"), audit.last.Data)

		assert.Equal(t, "run-1", output.RunID)
		assert.Equal(t, 1, output.Irregular)
		assert.Equal(t, 1, output.Compliant)
		assert.Equal(t, 1, output.Failures)
		require.Len(t, output.Entries, 3)
		assert.Empty(t, output.Entries[0].Failure)
		assert.Equal(t, domain.KindQuotaExhausted.String(), output.Entries[2].Failure)
	})

	t.Run("unknown document type", func(t *testing.T) {
		server, err := NewServer(validPorts())
		require.NoError(t, err)

		_, _, err = server.handleAudit(ctx, nil, AuditInput{Path: path, DocumentType: "contrato"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing path", func(t *testing.T) {
		server, err := NewServer(validPorts())
		require.NoError(t, err)

		_, _, err = server.handleAudit(ctx, nil, AuditInput{DocumentType: "etp"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unreadable file", func(t *testing.T) {
		server, err := NewServer(validPorts())
		require.NoError(t, err)

		_, _, err = server.handleAudit(ctx, nil, AuditInput{Path: path + ".missing", DocumentType: "etp"})

		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
