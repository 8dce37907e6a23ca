package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
)

func TestDefault_EveryPromptExists(t *testing.T) {
	names := []string{driven.PromptVerdict, driven.PromptVerdictDegraded, driven.PromptFinalSummary}
	for _, dt := range domain.AllDocumentTypes() {
		names = append(names, driven.PersonaPrompt(dt))
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			text, ok := Default(name)
			require.True(t, ok)
			assert.NotEmpty(t, text)
		})
	}
}

func TestDefault_Unknown(t *testing.T) {
	_, ok := Default("missing")
	assert.False(t, ok)
}

func TestDefault_VerdictPlaceholders(t *testing.T) {
	text, ok := Default(driven.PromptVerdict)
	require.True(t, ok)
	for _, p := range []string{"{{query}}", "{{context}}", "{{document}}", "{{markers}}"} {
		assert.Contains(t, text, p)
	}

	degraded, ok := Default(driven.PromptVerdictDegraded)
	require.True(t, ok)
	assert.NotContains(t, degraded, "{{context}}")
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Contains(t, names, driven.PromptVerdict)
	assert.Contains(t, names, "persona_edital")
	assert.IsNonDecreasing(t, names)
}

func TestRender(t *testing.T) {
	out := Render("a={{a}} b={{b}} c={{c}}", map[string]string{"a": "1", "b": "{{a}}"})
	assert.Equal(t, "a=1 b={{a}} c={{c}}", out)
}
