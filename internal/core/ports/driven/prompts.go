package driven

import "github.com/aguiargov/licita/internal/core/domain"

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations return the built-in default
	// or an error when no default exists.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptVerdict is the per-topic audit instruction, sent after the persona.
	// Placeholders: {{markers}}, {{query}}, {{context}}, {{document}}.
	PromptVerdict = "verdict"

	// PromptVerdictDegraded replaces PromptVerdict when no legal context exists.
	// Placeholders: {{markers}}, {{query}}, {{document}}.
	PromptVerdictDegraded = "verdict_degraded"

	// PromptFinalSummary asks for the executive conclusion of a whole report.
	// Placeholders: {{markers}}, {{document_type}}, {{findings}}.
	PromptFinalSummary = "final_summary"
)

// PersonaPrompt returns the prompt name holding the auditor persona for a document type.
func PersonaPrompt(t domain.DocumentType) string {
	return "persona_" + string(t)
}
