package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnreadableSource indicates a PDF yielded no usable text
	// (scanned image, corrupted or encrypted file).
	ErrUnreadableSource = errors.New("unreadable source")

	// ErrEmptyKnowledgeBase indicates no reference PDFs were found or none yielded text.
	ErrEmptyKnowledgeBase = errors.New("knowledge base unavailable")

	// ErrSnapshotUnavailable indicates no usable persisted index exists.
	// Callers treat it as a cache miss and rebuild.
	ErrSnapshotUnavailable = errors.New("snapshot unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Remote service errors.

	// ErrRateLimited indicates the API rate limit was exceeded. Worth retrying.
	ErrRateLimited = errors.New("rate limited")

	// ErrQuotaExhausted indicates the account has no remaining budget. Never retried.
	ErrQuotaExhausted = errors.New("quota exhausted")

	// ErrOversizedInput indicates a prompt or batch exceeded the service input ceiling.
	ErrOversizedInput = errors.New("input too large")

	// ErrRemote is any other remote service failure.
	ErrRemote = errors.New("remote service error")
)

// ErrorKind classifies a failure for retry decisions and user messages.
type ErrorKind int

// Error kinds, ordered roughly by how often operators see them.
const (
	KindNone ErrorKind = iota
	KindUnreadableSource
	KindEmptyKnowledgeBase
	KindRateLimited
	KindQuotaExhausted
	KindOversizedInput
	KindRemote
	KindCancelled
	KindInternal
)

// String returns the string representation.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnreadableSource:
		return "unreadable_source"
	case KindEmptyKnowledgeBase:
		return "empty_knowledge_base"
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExhausted:
		return "quota_exhausted"
	case KindOversizedInput:
		return "oversized_input"
	case KindRemote:
		return "remote"
	case KindCancelled:
		return "cancelled"
	default:
		return "internal"
	}
}

// Retriable reports whether retrying can help.
func (k ErrorKind) Retriable() bool {
	return k == KindRateLimited
}

// Classify maps an error onto its ErrorKind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrQuotaExhausted):
		return KindQuotaExhausted
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrOversizedInput):
		return KindOversizedInput
	case errors.Is(err, ErrUnreadableSource):
		return KindUnreadableSource
	case errors.Is(err, ErrEmptyKnowledgeBase):
		return KindEmptyKnowledgeBase
	case isContextError(err):
		return KindCancelled
	case errors.Is(err, ErrRemote):
		return KindRemote
	default:
		return KindInternal
	}
}

// RemoteError is a provider failure translated into the domain taxonomy.
// Adapters build it from HTTP status codes and provider error codes.
type RemoteError struct {
	// Kind is one of KindRateLimited, KindQuotaExhausted, KindOversizedInput or KindRemote.
	Kind ErrorKind

	// Provider names the service (openai, gemini, ollama, anthropic).
	Provider string

	// StatusCode is the HTTP status, 0 when unknown.
	StatusCode int

	// Message is the provider's error text, kept verbatim for operators.
	Message string
}

// Error implements error.
func (e *RemoteError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// Unwrap exposes the matching sentinel so errors.Is works on the kind.
func (e *RemoteError) Unwrap() error {
	switch e.Kind {
	case KindRateLimited:
		return ErrRateLimited
	case KindQuotaExhausted:
		return ErrQuotaExhausted
	case KindOversizedInput:
		return ErrOversizedInput
	default:
		return ErrRemote
	}
}

// NewRemoteError builds a RemoteError of the given kind.
func NewRemoteError(kind ErrorKind, provider string, status int, message string) *RemoteError {
	return &RemoteError{Kind: kind, Provider: provider, StatusCode: status, Message: message}
}

// UserMessage returns the plain-language message shown to operators.
// Each failure class maps to a different action, so the messages stay distinct.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		return "A base de conhecimento jurídico não está disponível: " + unavailable.Reason.Description() + "."
	}

	switch Classify(err) {
	case KindUnreadableSource:
		return "Seu documento não pôde ser lido. Verifique se o PDF contém texto selecionável " +
			"(arquivos escaneados precisam de OCR) e não está protegido."
	case KindEmptyKnowledgeBase:
		return "A base de conhecimento jurídico não está disponível."
	case KindRateLimited:
		return "O serviço de IA está temporariamente sobrecarregado. Tente novamente em alguns minutos."
	case KindQuotaExhausted:
		return "A cota do serviço de IA está esgotada. Recarregue os créditos da conta antes de tentar novamente."
	case KindOversizedInput:
		return "A entrada excedeu o limite do serviço de IA. Reduza o tamanho do lote " +
			"(knowledge_base.batch_size) ou divida o documento."
	case KindCancelled:
		return "A operação foi cancelada."
	case KindRemote:
		return "Erro do serviço de IA: " + err.Error()
	default:
		return "Erro inesperado: " + err.Error()
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// quotaMarkers identify exhausted-credit responses. Providers send them with
// HTTP 429 too, so they are checked before the status.
var quotaMarkers = []string{"insufficient_quota", "exceeded your current quota", "billing", "credit balance"}

// oversizeMarkers identify requests rejected for length.
var oversizeMarkers = []string{
	"context_length_exceeded", "maximum context length", "prompt is too long", "too many tokens",
	"exceeds the context length",
}

// ClassifyStatus maps a provider HTTP status and error text onto an ErrorKind.
func ClassifyStatus(status int, code, message string) ErrorKind {
	text := strings.ToLower(code + " " + message)
	switch {
	case containsAny(text, quotaMarkers):
		return KindQuotaExhausted
	case status == http.StatusRequestEntityTooLarge || containsAny(text, oversizeMarkers):
		return KindOversizedInput
	case status == http.StatusTooManyRequests || status == statusOverloaded:
		return KindRateLimited
	default:
		return KindRemote
	}
}

// NewRemoteErrorFromStatus classifies and wraps a provider failure.
func NewRemoteErrorFromStatus(provider string, status int, code, message string) *RemoteError {
	return NewRemoteError(ClassifyStatus(status, code, message), provider, status, message)
}

// statusOverloaded is Anthropic's "overloaded" status.
const statusOverloaded = 529

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
