package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aguiargov/licita/internal/adapters/driving/tui"
	"github.com/aguiargov/licita/internal/adapters/driving/tui/views/report"
	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driving"
)

var auditCmd = &cobra.Command{
	Use:   "audit FILE",
	Short: "Audit a procurement document",
	Long: `Audit a procurement document (PDF, DOCX or text) against Lei 14.133/21.

Each topic of the protocol for --type retrieves reference passages from the
knowledge base and asks the LLM for a verdict marked 🚨 ALERTA VERMELHO,
⚠️ RESSALVA or ✅ CONFORME.

Document types: edital, etp, tr, projeto-basico

Examples:
  licita audit edital.pdf --type edital
  licita audit etp.docx --type etp --tui
  licita audit tr.pdf --type tr --json > relatorio.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringP("type", "t", "", "document type (edital, etp, tr, projeto-basico)")
	auditCmd.Flags().IntP("k", "k", 0, "passages per topic (0 = protocol default)")
	auditCmd.Flags().Bool("no-summary", false, "skip the final executive summary")
	auditCmd.Flags().Bool("json", false, "print the report as JSON")
	auditCmd.Flags().Bool("tui", false, "show progress and the report in an interactive view")
	_ = auditCmd.MarkFlagRequired("type") //nolint:errcheck // flag is defined above
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	if auditService == nil {
		return unavailable("audit")
	}

	req, err := auditRequestFromFlags(cmd, args[0])
	if err != nil {
		return err
	}

	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("getting json flag: %w", err)
	}
	useTUI, err := cmd.Flags().GetBool("tui")
	if err != nil {
		return fmt.Errorf("getting tui flag: %w", err)
	}

	if useTUI && !asJSON && isTerminal(os.Stdout) {
		return runAuditTUI(cmd, req)
	}

	if !asJSON {
		req.OnTopic = func(p driving.AuditProgress) {
			if p.Done() {
				return
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", p.Index+1, p.Total, p.Topic)
		}
	}

	result, err := auditService.RunAudit(cmd.Context(), req)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(toAuditJSON(result))
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Render(result, nil, terminalWidth()))
	return nil
}

func auditRequestFromFlags(cmd *cobra.Command, path string) (driving.AuditRequest, error) {
	typeName, err := cmd.Flags().GetString("type")
	if err != nil {
		return driving.AuditRequest{}, fmt.Errorf("getting type flag: %w", err)
	}
	docType, err := domain.ParseDocumentType(typeName)
	if err != nil {
		return driving.AuditRequest{}, err
	}
	k, err := cmd.Flags().GetInt("k")
	if err != nil {
		return driving.AuditRequest{}, fmt.Errorf("getting k flag: %w", err)
	}
	skipSummary, err := cmd.Flags().GetBool("no-summary")
	if err != nil {
		return driving.AuditRequest{}, fmt.Errorf("getting no-summary flag: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return driving.AuditRequest{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return driving.AuditRequest{
		DocumentName: filepath.Base(path),
		Data:         data,
		DocumentType: docType,
		K:            k,
		SkipSummary:  skipSummary,
	}, nil
}

func runAuditTUI(cmd *cobra.Command, req driving.AuditRequest) error {
	app, err := tui.NewApp(&tui.Ports{Audit: auditService}, req)
	if err != nil {
		return err
	}
	app.WithContext(cmd.Context())

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	if app.Err() != nil {
		return app.Err()
	}

	// Leave the report on the normal screen once the alternate screen closes.
	if result := app.Result(); result != nil {
		fmt.Fprintln(cmd.OutOrStdout(), report.Render(result, nil, terminalWidth()))
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the stdout width, or 100 when unknown.
func terminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 100
}

type auditJSON struct {
	RunID        string           `json:"run_id"`
	DocumentName string           `json:"document_name"`
	DocumentType string           `json:"document_type"`
	Degraded     bool             `json:"degraded"`
	Truncated    bool             `json:"truncated"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Irregular    int              `json:"irregular"`
	Caveats      int              `json:"caveats"`
	Compliant    int              `json:"compliant"`
	Failures     int              `json:"failures"`
	Entries      []auditEntryJSON `json:"entries"`
}

type auditEntryJSON struct {
	Topic    string   `json:"topic"`
	Class    string   `json:"class"`
	Verdict  string   `json:"verdict"`
	Sources  []string `json:"sources,omitempty"`
	Attempts int      `json:"attempts"`
	Failure  string   `json:"failure,omitempty"`
}

func toAuditJSON(result *domain.AuditResult) auditJSON {
	out := auditJSON{
		RunID:        result.RunID,
		DocumentName: result.DocumentName,
		DocumentType: result.DocumentType.String(),
		Degraded:     result.Degraded,
		Truncated:    result.Truncated,
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
		Irregular:    result.Count(domain.VerdictIrregular),
		Caveats:      result.Count(domain.VerdictCaveat),
		Compliant:    result.Count(domain.VerdictCompliant),
		Failures:     result.Failures(),
		Entries:      make([]auditEntryJSON, len(result.Entries)),
	}
	for i, e := range result.Entries {
		entry := auditEntryJSON{
			Topic:    e.Topic,
			Class:    e.Class.String(),
			Verdict:  e.Verdict,
			Sources:  e.Sources,
			Attempts: e.Attempts,
		}
		if e.IsDiagnostic() {
			entry.Failure = e.Failure.String()
		}
		out.Entries[i] = entry
	}
	return out
}
