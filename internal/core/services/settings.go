package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyLLMProvider   = "llm.provider"
	keyLLMModel      = "llm.model"
	keyLLMBaseURL    = "llm.base_url"
	keyLLMAPIKey     = "llm.api_key"

	keyKBRoot           = "knowledge_base.root"
	keyKBSnapshotDir    = "knowledge_base.snapshot_dir"
	keyKBChunkSize      = "knowledge_base.chunk_size"
	keyKBOverlap        = "knowledge_base.overlap"
	keyKBMinChunkLength = "knowledge_base.min_chunk_length"
	keyKBBatchSize      = "knowledge_base.batch_size"
	keyKBBatchPauseMS   = "knowledge_base.batch_pause_ms"

	keyAuditMaxDocumentChars = "audit.max_document_chars"
	keyAuditMaxPromptTokens  = "audit.max_prompt_tokens"
	keyAuditRetrievalK       = "audit.retrieval_k"
	keyAuditMaxAttempts      = "audit.max_attempts"
	keyAuditBackoffBaseS     = "audit.backoff_base_s"
	keyAuditBackoffMaxS      = "audit.backoff_max_s"
	keyAuditEmptyKBPolicy    = "audit.empty_kb_policy"
	keyAuditFinalSummary     = "audit.final_summary"
)

// Environment variables that override the config file.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvDataDir         = "LICITA_DATA_DIR"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
	kindProvider
	kindPolicy
)

type settableKey struct {
	key  string
	kind valueKind
}

// settableKeys lists every key accepted by Set, in display order.
var settableKeys = []settableKey{
	{keyEmbedProvider, kindProvider},
	{keyEmbedModel, kindString},
	{keyEmbedBaseURL, kindString},
	{keyEmbedAPIKey, kindString},
	{keyLLMProvider, kindProvider},
	{keyLLMModel, kindString},
	{keyLLMBaseURL, kindString},
	{keyLLMAPIKey, kindString},
	{keyKBRoot, kindString},
	{keyKBSnapshotDir, kindString},
	{keyKBChunkSize, kindInt},
	{keyKBOverlap, kindInt},
	{keyKBMinChunkLength, kindInt},
	{keyKBBatchSize, kindInt},
	{keyKBBatchPauseMS, kindInt},
	{keyAuditMaxDocumentChars, kindInt},
	{keyAuditMaxPromptTokens, kindInt},
	{keyAuditRetrievalK, kindInt},
	{keyAuditMaxAttempts, kindInt},
	{keyAuditBackoffBaseS, kindInt},
	{keyAuditBackoffMaxS, kindInt},
	{keyAuditEmptyKBPolicy, kindPolicy},
	{keyAuditFinalSummary, kindBool},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// SetEnvLookup replaces the environment lookup used for overrides.
func (s *SettingsService) SetEnvLookup(getenv func(string) string) {
	s.getenv = getenv
}

// Get retrieves current application settings: config values over defaults,
// with API keys and the data directory taken from the environment when set.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		KnowledgeBase: domain.KnowledgeBaseSettings{
			Root:           s.getString(keyKBRoot, defaults.KnowledgeBase.Root),
			SnapshotDir:    s.configStore.GetString(keyKBSnapshotDir),
			ChunkSize:      s.getInt(keyKBChunkSize, defaults.KnowledgeBase.ChunkSize),
			Overlap:        s.getInt(keyKBOverlap, defaults.KnowledgeBase.Overlap),
			MinChunkLength: s.getInt(keyKBMinChunkLength, defaults.KnowledgeBase.MinChunkLength),
			BatchSize:      s.getInt(keyKBBatchSize, defaults.KnowledgeBase.BatchSize),
			BatchPause:     s.getMillis(keyKBBatchPauseMS, defaults.KnowledgeBase.BatchPause),
		},
		Audit: domain.AuditSettings{
			MinTextLength:      defaults.Audit.MinTextLength,
			MaxDocumentChars:   s.getInt(keyAuditMaxDocumentChars, defaults.Audit.MaxDocumentChars),
			MaxPromptTokens:    s.getInt(keyAuditMaxPromptTokens, defaults.Audit.MaxPromptTokens),
			RetrievalK:         s.getInt(keyAuditRetrievalK, defaults.Audit.RetrievalK),
			MaxAttempts:        s.getInt(keyAuditMaxAttempts, defaults.Audit.MaxAttempts),
			BackoffBase:        s.getSeconds(keyAuditBackoffBaseS, defaults.Audit.BackoffBase),
			BackoffMax:         s.getSeconds(keyAuditBackoffMaxS, defaults.Audit.BackoffMax),
			EmptyKnowledgeBase: s.getPolicy(defaults.Audit.EmptyKnowledgeBase),
			FinalSummary:       s.getBool(keyAuditFinalSummary, defaults.Audit.FinalSummary),
		},
	}

	// Models default per provider, not globally.
	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envAPIKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envAPIKey(settings.LLM.Provider)
	}
	if dir := s.getenv(EnvDataDir); dir != "" {
		settings.KnowledgeBase.Root = dir
	}

	return settings, nil
}

// Save persists application settings.
// API keys that came from the environment are not written to the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	type setting struct {
		key   string
		value any
	}
	values := []setting{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyKBSnapshotDir, settings.KnowledgeBase.SnapshotDir},
		{keyKBChunkSize, settings.KnowledgeBase.ChunkSize},
		{keyKBOverlap, settings.KnowledgeBase.Overlap},
		{keyKBMinChunkLength, settings.KnowledgeBase.MinChunkLength},
		{keyKBBatchSize, settings.KnowledgeBase.BatchSize},
		{keyKBBatchPauseMS, int(settings.KnowledgeBase.BatchPause / time.Millisecond)},
		{keyAuditMaxDocumentChars, settings.Audit.MaxDocumentChars},
		{keyAuditMaxPromptTokens, settings.Audit.MaxPromptTokens},
		{keyAuditRetrievalK, settings.Audit.RetrievalK},
		{keyAuditMaxAttempts, settings.Audit.MaxAttempts},
		{keyAuditBackoffBaseS, int(settings.Audit.BackoffBase / time.Second)},
		{keyAuditBackoffMaxS, int(settings.Audit.BackoffMax / time.Second)},
		{keyAuditEmptyKBPolicy, settings.Audit.EmptyKnowledgeBase.String()},
		{keyAuditFinalSummary, settings.Audit.FinalSummary},
	}

	// The data directory override stays in the environment.
	if s.getenv(EnvDataDir) == "" {
		values = append(values, setting{keyKBRoot, settings.KnowledgeBase.Root})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if key := settings.Embedding.APIKey; key != "" && key != s.envAPIKey(settings.Embedding.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, key); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if key := settings.LLM.APIKey; key != "" && key != s.envAPIKey(settings.LLM.Provider) {
		if err := s.configStore.Set(keyLLMAPIKey, key); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// Keys returns every settable key, in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settableKeys))
	for i, k := range settableKeys {
		keys[i] = k.key
	}
	return keys
}

// Reset removes a stored setting by its dotted key.
func (s *SettingsService) Reset(key string) error {
	if !slices.ContainsFunc(settableKeys, func(k settableKey) bool { return k.key == key }) {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if err := s.configStore.Unset(key); err != nil {
		return fmt.Errorf("reset %s: %w", key, err)
	}
	return nil
}

// ConfigPath returns the config store location.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// Set validates and stores a single setting by its dotted key.
func (s *SettingsService) Set(key, value string) error {
	idx := slices.IndexFunc(settableKeys, func(k settableKey) bool { return k.key == key })
	if idx < 0 {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	value = strings.TrimSpace(value)
	var stored any = value

	switch settableKeys[idx].kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer, got %q", domain.ErrInvalidInput, key, value)
		}
		stored = n
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false, got %q", domain.ErrInvalidInput, key, value)
		}
		stored = b
	case kindProvider:
		provider := domain.AIProvider(strings.ToLower(value))
		if !provider.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, value)
		}
		if key == keyEmbedProvider && !provider.SupportsEmbeddings() {
			return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
		}
		stored = provider.String()
	case kindPolicy:
		policy := domain.EmptyKnowledgeBasePolicy(strings.ToLower(value))
		if !policy.IsValid() {
			return fmt.Errorf("%w: %s must be %q or %q", domain.ErrInvalidInput, key, domain.PolicyRefuse, domain.PolicyDegraded)
		}
		stored = policy.String()
	case kindString:
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.LLM.Provider = provider

	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that both providers are usable and the numeric settings are in range.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %s is not configured (set %s or %s)",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider, keyEmbedAPIKey,
			envKeyFor(settings.Embedding.Provider))
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %s is not configured (set %s or %s)",
			domain.ErrLLMUnavailable, settings.LLM.Provider, keyLLMAPIKey, envKeyFor(settings.LLM.Provider))
	}

	kb := settings.KnowledgeBase
	if kb.ChunkSize <= 0 || kb.Overlap >= kb.ChunkSize {
		return fmt.Errorf("%w: %s (%d) must exceed %s (%d)",
			domain.ErrInvalidInput, keyKBChunkSize, kb.ChunkSize, keyKBOverlap, kb.Overlap)
	}
	if kb.BatchSize > MaxBatchSize {
		return fmt.Errorf("%w: %s must be at most %d", domain.ErrInvalidInput, keyKBBatchSize, MaxBatchSize)
	}

	audit := settings.Audit
	if audit.MaxAttempts < MinMaxAttempts || audit.MaxAttempts > MaxMaxAttempts {
		return fmt.Errorf("%w: %s must be between %d and %d",
			domain.ErrInvalidInput, keyAuditMaxAttempts, MinMaxAttempts, MaxMaxAttempts)
	}
	if audit.RetrievalK < MinRetrievalK || audit.RetrievalK > MaxRetrievalK {
		return fmt.Errorf("%w: %s must be between %d and %d",
			domain.ErrInvalidInput, keyAuditRetrievalK, MinRetrievalK, MaxRetrievalK)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// PipelineConfig returns the ingestion pipeline for the current knowledge base settings.
func (s *SettingsService) PipelineConfig() (domain.PipelineConfig, error) {
	settings, err := s.Get()
	if err != nil {
		return domain.PipelineConfig{}, err
	}
	return domain.PipelineConfigFor(settings.KnowledgeBase), nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getMillis reads a millisecond count; an explicit 0 disables the pause.
func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * time.Millisecond
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if val := s.configStore.GetInt(key); val > 0 {
		return time.Duration(val) * time.Second
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getPolicy(defaultVal domain.EmptyKnowledgeBasePolicy) domain.EmptyKnowledgeBasePolicy {
	policy := domain.EmptyKnowledgeBasePolicy(s.configStore.GetString(keyAuditEmptyKBPolicy))
	if !policy.IsValid() {
		return defaultVal
	}
	return policy
}

func (s *SettingsService) envAPIKey(provider domain.AIProvider) string {
	name := envKeyFor(provider)
	if name == "" || s.getenv == nil {
		return ""
	}
	return s.getenv(name)
}

func envKeyFor(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return EnvOpenAIAPIKey
	case domain.AIProviderGemini:
		return EnvGeminiAPIKey
	case domain.AIProviderAnthropic:
		return EnvAnthropicAPIKey
	default:
		return ""
	}
}
