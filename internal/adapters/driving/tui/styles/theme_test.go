package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguiargov/licita/internal/core/domain"
)

func TestDefaultTheme_AdaptsToBackground(t *testing.T) {
	theme := DefaultTheme()

	for name, c := range map[string]lipgloss.AdaptiveColor{
		"accent": theme.Accent, "topic": theme.Topic, "text": theme.Text, "faint": theme.Faint,
		"bar": theme.Bar, "frame": theme.Frame,
		"success": theme.Success, "warning": theme.Warning, "error": theme.Error,
	} {
		assert.NotEmpty(t, c.Light, name)
		assert.NotEmpty(t, c.Dark, name)
		assert.NotEqual(t, c.Light, c.Dark, name)
	}
}

func TestDefaultTheme_ClassColoursAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	seen := make(map[string]bool)
	for _, c := range []lipgloss.AdaptiveColor{theme.Accent, theme.Topic, theme.Success, theme.Warning, theme.Error} {
		assert.False(t, seen[c.Dark], "duplicate colour: %s", c.Dark)
		seen[c.Dark] = true
	}
}

func TestNewStyles_NilTheme(t *testing.T) {
	s := NewStyles(nil)

	require.NotNil(t, s)
	assert.Equal(t, DefaultTheme(), s.Theme())
}

func TestForClass(t *testing.T) {
	s := DefaultStyles()

	assert.Equal(t, s.Error, s.ForClass(domain.VerdictIrregular))
	assert.Equal(t, s.Warning, s.ForClass(domain.VerdictCaveat))
	assert.Equal(t, s.Success, s.ForClass(domain.VerdictCompliant))
	assert.Equal(t, s.Normal, s.ForClass(domain.VerdictUnclassified))
}

func TestIcon(t *testing.T) {
	tests := []struct {
		name  string
		entry domain.AuditEntry
		want  string
	}{
		{name: "irregular", entry: domain.AuditEntry{Class: domain.VerdictIrregular}, want: "🚨"},
		{name: "caveat", entry: domain.AuditEntry{Class: domain.VerdictCaveat}, want: "⚠️"},
		{name: "compliant", entry: domain.AuditEntry{Class: domain.VerdictCompliant}, want: "✅"},
		{name: "unclassified", entry: domain.AuditEntry{Class: domain.VerdictUnclassified}, want: "•"},
		{name: "diagnostic", entry: domain.AuditEntry{Failure: domain.KindRemote}, want: "✖"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Icon(tt.entry))
		})
	}
}
