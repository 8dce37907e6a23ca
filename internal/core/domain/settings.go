package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider names a service that serves embeddings, chat completions or both.
type AIProvider string

// Supported providers.
const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderGemini    AIProvider = "gemini"
	AIProviderAnthropic AIProvider = "anthropic"
)

type providerTraits struct {
	label      string
	cloud      bool
	embeddings bool
	embedModel string
	chatModel  string
}

var providers = map[AIProvider]providerTraits{
	AIProviderOllama: {
		label: "Ollama (local)", embeddings: true,
		embedModel: "nomic-embed-text", chatModel: "llama3.2",
	},
	AIProviderOpenAI: {
		label: "OpenAI (cloud)", cloud: true, embeddings: true,
		embedModel: "text-embedding-3-small", chatModel: "gpt-4o-mini",
	},
	AIProviderGemini: {
		label: "Google Gemini (cloud)", cloud: true, embeddings: true,
		embedModel: "gemini-embedding-001", chatModel: "gemini-2.0-flash",
	},
	AIProviderAnthropic: {
		label: "Anthropic (cloud)", cloud: true,
		chatModel: "claude-3-5-sonnet-latest",
	},
}

// IsValid reports whether p is a known provider.
func (p AIProvider) IsValid() bool {
	_, ok := providers[p]
	return ok
}

// RequiresAPIKey reports whether p is a cloud service that authenticates by key.
func (p AIProvider) RequiresAPIKey() bool {
	return providers[p].cloud
}

// SupportsEmbeddings reports whether p offers an embedding API.
func (p AIProvider) SupportsEmbeddings() bool {
	return providers[p].embeddings
}

// IsLocal reports whether p runs on the operator's machine.
func (p AIProvider) IsLocal() bool {
	return p.IsValid() && !providers[p].cloud
}

func (p AIProvider) String() string {
	return string(p)
}

// Description returns the label shown in menus.
func (p AIProvider) Description() string {
	if t, ok := providers[p]; ok {
		return t.label
	}
	return unknownDescription
}

// EmptyKnowledgeBasePolicy decides whether an audit may run without reference context.
type EmptyKnowledgeBasePolicy string

// Available policies.
const (
	// PolicyRefuse fails the audit when the knowledge base is unavailable.
	PolicyRefuse EmptyKnowledgeBasePolicy = "refuse"

	// PolicyDegraded runs the audit with no retrieved context and marks the report degraded.
	PolicyDegraded EmptyKnowledgeBasePolicy = "degraded"
)

// IsValid returns true if the policy is recognised.
func (p EmptyKnowledgeBasePolicy) IsValid() bool {
	return p == PolicyRefuse || p == PolicyDegraded
}

// String returns the string representation.
func (p EmptyKnowledgeBasePolicy) String() string {
	return string(p)
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible gateways).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible gateways).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// KnowledgeBaseSettings controls ingestion of the reference library.
type KnowledgeBaseSettings struct {
	// Root is the directory tree holding reference PDFs.
	Root string

	// SnapshotDir holds the persisted index.
	SnapshotDir string

	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// Overlap is the context shared by consecutive chunks.
	Overlap int

	// MinChunkLength drops chunks shorter than this after trimming.
	MinChunkLength int

	// BatchSize is the number of chunks per embedding request.
	BatchSize int

	// BatchPause is the pause between embedding requests.
	BatchPause time.Duration
}

// AuditSettings controls verdict generation.
type AuditSettings struct {
	// MinTextLength is the shortest extracted text treated as readable.
	MinTextLength int

	// MaxDocumentChars caps the document text sent with each prompt.
	MaxDocumentChars int

	// MaxPromptTokens caps the assembled prompt.
	MaxPromptTokens int

	// RetrievalK is the default number of passages per topic.
	RetrievalK int

	// MaxAttempts bounds generation calls per topic.
	MaxAttempts int

	// BackoffBase is the first retry delay; later delays grow linearly.
	BackoffBase time.Duration

	// BackoffMax caps the retry delay.
	BackoffMax time.Duration

	// EmptyKnowledgeBase decides what happens when no reference context exists.
	EmptyKnowledgeBase EmptyKnowledgeBasePolicy

	// FinalSummary appends the executive summary entry.
	FinalSummary bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// KnowledgeBase holds ingestion settings.
	KnowledgeBase KnowledgeBaseSettings

	// Audit holds verdict generation settings.
	Audit AuditSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Providers default to OpenAI; the API key comes from config or the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultEmbeddingModels()[AIProviderOpenAI],
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultLLMModels()[AIProviderOpenAI],
		},
		KnowledgeBase: KnowledgeBaseSettings{
			Root:           "data",
			ChunkSize:      2000,
			Overlap:        200,
			MinChunkLength: 20,
			BatchSize:      64,
			BatchPause:     500 * time.Millisecond,
		},
		Audit: AuditSettings{
			MinTextLength:      50,
			MaxDocumentChars:   10000,
			MaxPromptTokens:    60000,
			RetrievalK:         4,
			MaxAttempts:        4,
			BackoffBase:        10 * time.Second,
			BackoffMax:         40 * time.Second,
			EmptyKnowledgeBase: PolicyRefuse,
			FinalSummary:       true,
		},
	}
}

// AllEmbeddingProviders lists embedding providers in menu order.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOpenAI, AIProviderGemini, AIProviderOllama}
}

// AllLLMProviders lists chat providers in menu order.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOpenAI, AIProviderGemini, AIProviderAnthropic, AIProviderOllama}
}

// DefaultEmbeddingModels maps each embedding provider to its default model.
func DefaultEmbeddingModels() map[AIProvider]string {
	models := make(map[AIProvider]string)
	for p, t := range providers {
		if t.embeddings {
			models[p] = t.embedModel
		}
	}
	return models
}

// DefaultLLMModels maps each provider to its default chat model.
func DefaultLLMModels() map[AIProvider]string {
	models := make(map[AIProvider]string, len(providers))
	for p, t := range providers {
		models[p] = t.chatModel
	}
	return models
}

// EmbeddingDimensions returns vector sizes of the embedding models licita
// knows. Snapshots built with other models record their own size.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"all-minilm":             384,
		"nomic-embed-text":       768,
		"text-embedding-004":     768,
		"mxbai-embed-large":      1024,
		"text-embedding-3-small": 1536,
		"text-embedding-ada-002": 1536,
		"gemini-embedding-001":   3072,
		"text-embedding-3-large": 3072,
	}
}

// PipelineConfig names the ingestion stages in order, with options per stage.
type PipelineConfig struct {
	Processors       []string
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns the options for one stage, or nil.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor derives the ingestion pipeline from knowledge base settings:
// split, drop short chunks, then tag each chunk with its source file.
func PipelineConfigFor(kb KnowledgeBaseSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "filter", "source_tag"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": kb.ChunkSize,
				"overlap":    kb.Overlap,
			},
			"filter": {
				"min_length": kb.MinChunkLength,
			},
		},
	}
}
