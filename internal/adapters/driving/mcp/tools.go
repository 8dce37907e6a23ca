package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driving"
)

// defaultSearchK is the number of passages returned when the caller sets none.
const defaultSearchK = 4

// AuditInput is the input schema for the audit tool.
type AuditInput struct {
	Path         string `json:"path" jsonschema:"absolute path of the PDF, DOCX or text file to audit"`
	DocumentType string `json:"document_type" jsonschema:"one of edital, etp, tr, projeto-basico"`
	K            int    `json:"k,omitempty" jsonschema:"passages retrieved per topic (default from protocol)"`
	SkipSummary  bool   `json:"skip_summary,omitempty" jsonschema:"omit the final executive summary"`
}

// AuditOutput is the output schema for the audit tool.
type AuditOutput struct {
	RunID        string             `json:"run_id"`
	DocumentName string             `json:"document_name"`
	DocumentType string             `json:"document_type"`
	Degraded     bool               `json:"degraded"`
	Truncated    bool               `json:"truncated"`
	Irregular    int                `json:"irregular"`
	Caveats      int                `json:"caveats"`
	Compliant    int                `json:"compliant"`
	Failures     int                `json:"failures"`
	Entries      []AuditEntryOutput `json:"entries"`
}

// AuditEntryOutput is one topic of the report.
type AuditEntryOutput struct {
	Topic    string   `json:"topic"`
	Class    string   `json:"class"`
	Verdict  string   `json:"verdict"`
	Sources  []string `json:"sources,omitempty"`
	Attempts int      `json:"attempts"`
	Failure  string   `json:"failure,omitempty"`
}

// SearchInput is the input schema for the knowledge base search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"question or clause to look up in the legal references"`
	K     int    `json:"k,omitempty" jsonschema:"maximum number of passages to return (default 4)"`
}

// SearchOutput is the output schema for the knowledge base search tool.
type SearchOutput struct {
	Passages []PassageOutput `json:"passages"`
	Count    int             `json:"count"`
}

// PassageOutput is a single retrieved passage.
type PassageOutput struct {
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "audit_document",
		Description: "Audit a Brazilian procurement document (edital, ETP, TR or projeto básico) " +
			"against Lei 14.133/21 and the reference library",
	}, s.handleAudit)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_knowledge_base",
		Description: "Search the legal reference library for passages related to a question",
	}, s.handleSearch)
}

// handleAudit handles the audit tool invocation.
func (s *Server) handleAudit(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AuditInput,
) (*mcp.CallToolResult, AuditOutput, error) {
	docType, err := domain.ParseDocumentType(input.DocumentType)
	if err != nil {
		return nil, AuditOutput{}, err
	}
	if input.Path == "" {
		return nil, AuditOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	data, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, AuditOutput{}, fmt.Errorf("reading document: %w", err)
	}

	result, err := s.ports.Audit.RunAudit(ctx, driving.AuditRequest{
		DocumentName: filepath.Base(input.Path),
		Data:         data,
		DocumentType: docType,
		K:            input.K,
		SkipSummary:  input.SkipSummary,
	})
	if err != nil {
		return nil, AuditOutput{}, userError(err)
	}

	return nil, auditOutput(result), nil
}

// handleSearch handles the knowledge base search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	k := input.K
	if k <= 0 {
		k = defaultSearchK
	}

	passages, err := s.ports.KnowledgeBase.Search(ctx, input.Query, k)
	if err != nil {
		return nil, SearchOutput{}, userError(err)
	}

	output := SearchOutput{
		Passages: make([]PassageOutput, len(passages)),
		Count:    len(passages),
	}
	for i := range passages {
		output.Passages[i] = PassageOutput{
			Source:  passages[i].Source,
			Score:   passages[i].Score,
			Content: passages[i].Content,
		}
	}

	return nil, output, nil
}

func auditOutput(result *domain.AuditResult) AuditOutput {
	output := AuditOutput{
		RunID:        result.RunID,
		DocumentName: result.DocumentName,
		DocumentType: result.DocumentType.String(),
		Degraded:     result.Degraded,
		Truncated:    result.Truncated,
		Irregular:    result.Count(domain.VerdictIrregular),
		Caveats:      result.Count(domain.VerdictCaveat),
		Compliant:    result.Count(domain.VerdictCompliant),
		Failures:     result.Failures(),
		Entries:      make([]AuditEntryOutput, len(result.Entries)),
	}
	for i, e := range result.Entries {
		entry := AuditEntryOutput{
			Topic:    e.Topic,
			Class:    e.Class.String(),
			Verdict:  e.Verdict,
			Sources:  e.Sources,
			Attempts: e.Attempts,
		}
		if e.IsDiagnostic() {
			entry.Failure = e.Failure.String()
		}
		output.Entries[i] = entry
	}
	return output
}

// userError keeps the cause for errors.Is but leads with the operator message.
func userError(err error) error {
	if errors.Is(err, domain.ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%s: %w", domain.UserMessage(err), err)
}
