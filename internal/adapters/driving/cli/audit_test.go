package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driving"
)

func writeDocument(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("EDITAL DE PREGÃO ELETRÔNICO Nº 12/2026"), 0o600))
	return path
}

func TestAudit_PlainReport(t *testing.T) {
	audit := &MockAuditService{}
	withServices(t, &Dependencies{Audit: audit})
	path := writeDocument(t, "edital.pdf")

	out, errOut, err := executeCommand(t, "", "audit", path, "--type", "edital")

	require.NoError(t, err)
	assert.Equal(t, "edital.pdf", audit.last.DocumentName)
	assert.Equal(t, domain.DocumentTypeEdital, audit.last.DocumentType)
	assert.NotEmpty(t, audit.last.Data)
	assert.Zero(t, audit.last.K)
	assert.False(t, audit.last.SkipSummary)
	assert.NotNil(t, audit.last.OnTopic)
	assert.Contains(t, out, "RELATÓRIO DE AUDITORIA")
	assert.Contains(t, out, "Capital social")
	assert.Empty(t, errOut)
}

func TestAudit_ProgressOnStderr(t *testing.T) {
	audit := &MockAuditService{
		RunAuditFunc: func(_ context.Context, req driving.AuditRequest) (*domain.AuditResult, error) {
			result := sampleResult(req)
			for i, e := range result.Entries {
				req.OnTopic(driving.AuditProgress{Index: i, Total: 2, Topic: e.Topic})
				entry := e
				req.OnTopic(driving.AuditProgress{Index: i, Total: 2, Topic: e.Topic, Entry: &entry})
			}
			return result, nil
		},
	}
	withServices(t, &Dependencies{Audit: audit})

	_, errOut, err := executeCommand(t, "", "audit", writeDocument(t, "etp.pdf"), "-t", "etp")

	require.NoError(t, err)
	assert.Equal(t, "[1/2] 1. Capital social\n[2/2] 2. Prazos\n", errOut)
}

func TestAudit_Flags(t *testing.T) {
	audit := &MockAuditService{}
	withServices(t, &Dependencies{Audit: audit})

	_, _, err := executeCommand(t, "", "audit", writeDocument(t, "tr.docx"),
		"--type", "TR", "-k", "6", "--no-summary")

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTypeTermoDeReferencia, audit.last.DocumentType)
	assert.Equal(t, 6, audit.last.K)
	assert.True(t, audit.last.SkipSummary)
}

func TestAudit_JSON(t *testing.T) {
	audit := &MockAuditService{}
	withServices(t, &Dependencies{Audit: audit})

	out, _, err := executeCommand(t, "", "audit", writeDocument(t, "pb.pdf"), "--type", "pb", "--json")

	require.NoError(t, err)
	assert.Nil(t, audit.last.OnTopic)

	var report auditJSON
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "projeto-basico", report.DocumentType)
	assert.Equal(t, 1, report.Irregular)
	assert.Equal(t, 1, report.Compliant)
	require.Len(t, report.Entries, 2)
	assert.Equal(t, "irregular", report.Entries[0].Class)
	assert.Equal(t, []string{"acordao.pdf"}, report.Entries[0].Sources)
	assert.Empty(t, report.Entries[0].Failure)
}

func TestAudit_TUIFallsBackWithoutTerminal(t *testing.T) {
	audit := &MockAuditService{}
	withServices(t, &Dependencies{Audit: audit})

	out, _, err := executeCommand(t, "", "audit", writeDocument(t, "edital.pdf"), "--type", "edital", "--tui")

	require.NoError(t, err)
	assert.Contains(t, out, "RELATÓRIO DE AUDITORIA")
}

func TestAudit_Errors(t *testing.T) {
	withServices(t, &Dependencies{Audit: &MockAuditService{}})
	path := writeDocument(t, "edital.pdf")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing type", args: []string{"audit", path}, want: `required flag(s) "type" not set`},
		{name: "unknown type", args: []string{"audit", path, "--type", "contrato"}, want: "unknown document type"},
		{name: "missing file", args: []string{"audit", filepath.Join(t.TempDir(), "nada.pdf"), "--type", "etp"}, want: "reading"},
		{name: "no file", args: []string{"audit", "--type", "etp"}, want: "accepts 1 arg(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAudit_ServiceError(t *testing.T) {
	audit := &MockAuditService{
		RunAuditFunc: func(context.Context, driving.AuditRequest) (*domain.AuditResult, error) {
			return nil, &domain.UnavailableError{Reason: domain.ReasonDirectoryMissing, Detail: "data"}
		},
	}
	withServices(t, &Dependencies{Audit: audit})

	_, _, err := executeCommand(t, "", "audit", writeDocument(t, "edital.pdf"), "--type", "edital")

	require.Error(t, err)
	assert.Contains(t, describeError(err), "a pasta de referência não foi encontrada")
}

func TestAudit_WithoutService(t *testing.T) {
	withServices(t, &Dependencies{Warnings: []string{"llm: API key required for openai"}})

	_, _, err := executeCommand(t, "", "audit", writeDocument(t, "edital.pdf"), "--type", "edital")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit service not configured: llm: API key required for openai")
}

func TestToAuditJSON_Diagnostic(t *testing.T) {
	result := &domain.AuditResult{
		DocumentType: domain.DocumentTypeETP,
		Entries: []domain.AuditEntry{
			{Topic: "1. Necessidade", Verdict: "falhou", Failure: domain.KindQuotaExhausted, Attempts: 4},
		},
	}

	out := toAuditJSON(result)

	assert.Equal(t, 1, out.Failures)
	assert.Equal(t, domain.KindQuotaExhausted.String(), out.Entries[0].Failure)
	assert.Equal(t, 4, out.Entries[0].Attempts)
}
