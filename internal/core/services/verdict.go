package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/logger"
	"github.com/aguiargov/licita/internal/prompts"
)

// Prompt limits.
const (
	DefaultMaxDocumentChars = 10000
	DefaultMaxPromptTokens  = 60000

	// minDocumentChars is the shortest document excerpt worth sending.
	minDocumentChars = 500
)

// VerdictRequest is the input for one topic.
type VerdictRequest struct {
	DocumentType domain.DocumentType
	DocumentText string
	Topic        string
	FocusQuery   string

	// Passages is the retrieved context. Empty means no legal context is available.
	Passages []domain.Passage
}

// Prompt is an assembled, budget-checked prompt.
type Prompt struct {
	System string
	User   string

	// Tokens is the measured size of System and User together.
	Tokens int

	// Truncated is set when the document text was cut.
	Truncated bool

	// Passages is the context that fit the budget, in rank order.
	Passages []domain.Passage
}

// VerdictGenerator turns a topic, its context and the document into a verdict.
// It makes exactly one model call per Send; retries belong to the caller.
type VerdictGenerator struct {
	llm              driven.LLMService
	promptStore      driven.PromptStore
	tokens           driven.TokenCounter
	maxDocumentChars int
	maxPromptTokens  int
}

// NewVerdictGenerator creates a generator. tokens may be nil, in which case
// prompt size is estimated from the character count.
func NewVerdictGenerator(llm driven.LLMService, tokens driven.TokenCounter, settings domain.AuditSettings) *VerdictGenerator {
	g := &VerdictGenerator{
		llm:              llm,
		tokens:           tokens,
		maxDocumentChars: settings.MaxDocumentChars,
		maxPromptTokens:  settings.MaxPromptTokens,
	}
	if g.maxDocumentChars <= 0 {
		g.maxDocumentChars = DefaultMaxDocumentChars
	}
	if g.maxPromptTokens <= 0 {
		g.maxPromptTokens = DefaultMaxPromptTokens
	}
	return g
}

// SetPromptStore sets the store for user-customisable prompts.
func (g *VerdictGenerator) SetPromptStore(store driven.PromptStore) {
	g.promptStore = store
}

// Generate assembles the prompt and makes a single model call.
func (g *VerdictGenerator) Generate(ctx context.Context, req VerdictRequest) (string, error) {
	prompt, err := g.Prepare(req)
	if err != nil {
		return "", err
	}
	return g.Send(ctx, prompt)
}

// Send makes one model call with a prepared prompt, deterministically.
func (g *VerdictGenerator) Send(ctx context.Context, prompt *Prompt) (string, error) {
	if g.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: prompt.System},
		{Role: driven.RoleUser, Content: prompt.User},
	}
	text, err := g.llm.Chat(ctx, messages, driven.ChatOptions{Temperature: 0})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Prepare assembles the prompt for a topic within the token budget.
// Context passages are dropped from the tail first, then the document is cut
// further. Returns domain.ErrOversizedInput when nothing fits.
func (g *VerdictGenerator) Prepare(req VerdictRequest) (*Prompt, error) {
	if !req.DocumentType.IsValid() {
		return nil, fmt.Errorf("%w: document type %q", domain.ErrInvalidInput, req.DocumentType)
	}

	persona := g.loadPrompt(driven.PersonaPrompt(req.DocumentType))
	template := g.loadPrompt(driven.PromptVerdict)
	if len(req.Passages) == 0 {
		template = g.loadPrompt(driven.PromptVerdictDegraded)
	}

	passages := req.Passages
	docLimit := g.maxDocumentChars
	for {
		document, truncated := truncateDocument(req.DocumentText, docLimit)
		user := prompts.Render(template, map[string]string{
			"markers":  strings.Join(domain.VerdictMarkers(), ", "),
			"query":    topicQuery(req.Topic, req.FocusQuery),
			"context":  renderContext(passages),
			"document": document,
		})

		tokens := g.count(persona) + g.count(user)
		if tokens <= g.maxPromptTokens {
			if len(passages) < len(req.Passages) || docLimit < g.maxDocumentChars {
				logger.Debug("Prompt for %q fitted in %d tokens with %d/%d passages and %d document chars",
					req.Topic, tokens, len(passages), len(req.Passages), docLimit)
			}
			return &Prompt{
				System:    persona,
				User:      user,
				Tokens:    tokens,
				Truncated: truncated,
				Passages:  passages,
			}, nil
		}

		switch {
		case len(passages) > 1:
			passages = passages[:len(passages)-1]
		case docLimit > minDocumentChars:
			docLimit = max(minDocumentChars, docLimit*3/4)
		default:
			return nil, fmt.Errorf("%w: prompt for %q needs %d tokens (limit %d)",
				domain.ErrOversizedInput, req.Topic, tokens, g.maxPromptTokens)
		}
	}
}

// PrepareSummary assembles the executive summary prompt from per-topic verdicts.
func (g *VerdictGenerator) PrepareSummary(docType domain.DocumentType, entries []domain.AuditEntry) (*Prompt, error) {
	if !docType.IsValid() {
		return nil, fmt.Errorf("%w: document type %q", domain.ErrInvalidInput, docType)
	}

	persona := g.loadPrompt(driven.PersonaPrompt(docType))
	template := g.loadPrompt(driven.PromptFinalSummary)

	var findings strings.Builder
	for _, e := range entries {
		if e.IsDiagnostic() {
			continue
		}
		fmt.Fprintf(&findings, "\n- %s: %s", e.Topic, e.Verdict)
	}

	all := findings.String()
	limit := utf8.RuneCountInString(all)
	for {
		text, truncated := truncateDocument(all, limit)
		user := prompts.Render(template, map[string]string{
			"markers":       strings.Join(domain.VerdictMarkers(), ", "),
			"document_type": docType.Label(),
			"findings":      text,
		})
		tokens := g.count(persona) + g.count(user)
		if tokens <= g.maxPromptTokens {
			return &Prompt{System: persona, User: user, Tokens: tokens, Truncated: truncated}, nil
		}
		if limit <= minDocumentChars {
			return nil, fmt.Errorf("%w: summary prompt needs %d tokens (limit %d)",
				domain.ErrOversizedInput, tokens, g.maxPromptTokens)
		}
		limit = max(minDocumentChars, limit*3/4)
	}
}

func (g *VerdictGenerator) count(text string) int {
	if g.tokens != nil {
		return g.tokens.Count(text)
	}
	// Roughly four characters per token for Latin-script text.
	return (utf8.RuneCountInString(text) + 3) / 4
}

func (g *VerdictGenerator) loadPrompt(name string) string {
	if g.promptStore != nil {
		prompt, err := g.promptStore.Load(name)
		if err == nil && strings.TrimSpace(prompt) != "" {
			return prompt
		}
		logger.Debug("Prompt %q unavailable, using built-in default: %v", name, err)
	}
	prompt, _ := prompts.Default(name)
	return prompt
}

func topicQuery(topic, query string) string {
	if topic == "" {
		return query
	}
	return topic + " - " + query
}

// renderContext prefixes each passage with its source file.
func renderContext(passages []domain.Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = "[FONTE: " + p.Source + "] " + strings.TrimSpace(p.Content)
	}
	return strings.Join(parts, "\n\n")
}

// truncateDocument cuts text to limit runes and appends a visible notice.
func truncateDocument(text string, limit int) (string, bool) {
	total := utf8.RuneCountInString(text)
	if limit <= 0 || total <= limit {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:limit]) + fmt.Sprintf(
		"\n\n[... DOCUMENTO TRUNCADO: %d de %d caracteres enviados para análise ...]", limit, total), true
}
