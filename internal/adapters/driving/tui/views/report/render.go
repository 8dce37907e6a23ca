// Package report renders audit results and provides the scrollable report view.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aguiargov/licita/internal/adapters/driving/tui/styles"
	"github.com/aguiargov/licita/internal/core/domain"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

// Render formats a report for the terminal. Irregular verdicts are framed
// with a heavy border so they stand out when scrolling.
func Render(result *domain.AuditResult, s *styles.Styles, width int) string {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if width <= 0 {
		width = DefaultWidth
	}

	var b strings.Builder

	b.WriteString(s.Title.Render("RELATÓRIO DE AUDITORIA: " + result.DocumentType.Label()))
	b.WriteString("\n")
	b.WriteString(s.Muted.Render(fmt.Sprintf("%s  ·  execução %s", result.DocumentName, result.RunID)))
	b.WriteString("\n")
	b.WriteString(Summary(result, s))
	b.WriteString("\n")

	if result.Degraded {
		b.WriteString(s.Warning.Render("Auditoria sem base de conhecimento: nenhum trecho legal foi recuperado."))
		b.WriteString("\n")
	}
	if result.Truncated {
		b.WriteString(s.Warning.Render("O documento foi truncado para caber no limite do modelo."))
		b.WriteString("\n")
	}

	for _, entry := range result.Entries {
		b.WriteString("\n")
		b.WriteString(renderEntry(entry, s, width))
		b.WriteString("\n")
	}

	return b.String()
}

// Summary returns the one-line count of verdict classes.
func Summary(result *domain.AuditResult, s *styles.Styles) string {
	if s == nil {
		s = styles.DefaultStyles()
	}
	parts := []string{
		s.Error.Render(fmt.Sprintf("🚨 %d irregular", result.Count(domain.VerdictIrregular))),
		s.Warning.Render(fmt.Sprintf("⚠️ %d ressalva", result.Count(domain.VerdictCaveat))),
		s.Success.Render(fmt.Sprintf("✅ %d conforme", result.Count(domain.VerdictCompliant))),
	}
	if n := result.Failures(); n > 0 {
		parts = append(parts, s.Error.Render(fmt.Sprintf("✖ %d falha", n)))
	}
	return strings.Join(parts, "   ")
}

func renderEntry(entry domain.AuditEntry, s *styles.Styles, width int) string {
	header := s.Subtitle.Render(styles.Icon(entry) + " " + entry.Topic)

	box := s.Card
	body := s.ForClass(entry.Class).Render(strings.TrimSpace(entry.Verdict))
	switch {
	case entry.IsDiagnostic():
		box = s.Alert
		body = s.Error.Render(strings.TrimSpace(entry.Verdict)) + "\n" +
			s.Muted.Render(fmt.Sprintf("%s após %d tentativa(s)", entry.Failure, entry.Attempts))
	case entry.Class == domain.VerdictIrregular:
		box = s.Alert
	}

	inner := max(width-box.GetHorizontalFrameSize(), 20)
	rendered := box.Width(inner).Render(body)

	lines := []string{header, rendered}
	if len(entry.Sources) > 0 {
		lines = append(lines, s.Muted.Render("Fontes: "+strings.Join(entry.Sources, ", ")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
