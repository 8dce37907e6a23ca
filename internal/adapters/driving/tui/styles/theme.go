// Package styles provides colour themes and styling for the TUI and the
// printed audit report.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/aguiargov/licita/internal/core/domain"
)

// Theme is the palette. Each colour adapts to light and dark terminals.
type Theme struct {
	Accent  lipgloss.AdaptiveColor // titles
	Topic   lipgloss.AdaptiveColor // topic headings
	Text    lipgloss.AdaptiveColor
	Faint   lipgloss.AdaptiveColor
	Bar     lipgloss.AdaptiveColor // status bar background
	Frame   lipgloss.AdaptiveColor
	Success lipgloss.AdaptiveColor // CONFORME
	Warning lipgloss.AdaptiveColor // ALERTA
	Error   lipgloss.AdaptiveColor // IRREGULAR and failures
}

// DefaultTheme returns the built-in palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:  lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"},
		Topic:   lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"},
		Text:    lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"},
		Faint:   lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"},
		Bar:     lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#1F2937"},
		Frame:   lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"},
		Success: lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"},
		Warning: lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FACC15"},
		Error:   lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"},
	}
}

// Styles are the lipgloss styles built from a Theme.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Help     lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	// Alert frames irregular verdicts; Card frames the rest.
	Alert lipgloss.Style
	Card  lipgloss.Style

	StatusBar lipgloss.Style
}

// NewStyles builds styles from theme, or from DefaultTheme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}
	framed := func(b lipgloss.Border, c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().BorderStyle(b).BorderForeground(c).Padding(0, 1)
	}

	return &Styles{
		theme:     theme,
		Title:     fg(theme.Accent).Bold(true),
		Subtitle:  fg(theme.Topic).Bold(true),
		Normal:    fg(theme.Text),
		Muted:     fg(theme.Faint),
		Help:      fg(theme.Faint).Italic(true),
		Success:   fg(theme.Success),
		Warning:   fg(theme.Warning),
		Error:     fg(theme.Error),
		Alert:     framed(lipgloss.ThickBorder(), theme.Error),
		Card:      framed(lipgloss.RoundedBorder(), theme.Frame),
		StatusBar: fg(theme.Faint).Background(theme.Bar).Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(nil)
}

// Theme returns the palette behind these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// ForClass returns the text style of a verdict class.
func (s *Styles) ForClass(class domain.VerdictClass) lipgloss.Style {
	switch class {
	case domain.VerdictIrregular:
		return s.Error
	case domain.VerdictCaveat:
		return s.Warning
	case domain.VerdictCompliant:
		return s.Success
	}
	return s.Normal
}

// Icon returns the symbol shown next to a topic in lists.
func Icon(entry domain.AuditEntry) string {
	if entry.IsDiagnostic() {
		return "✖"
	}
	switch entry.Class {
	case domain.VerdictIrregular:
		return "🚨"
	case domain.VerdictCaveat:
		return "⚠️"
	case domain.VerdictCompliant:
		return "✅"
	}
	return "•"
}
