package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aguiargov/licita/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, the knowledge base and audit options.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure providers and the reference library.`,
	RunE:  runSettingsWizard,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key.

Examples:
  licita settings set audit.empty_kb_policy degraded
  licita settings set knowledge_base.chunk_size 1500
  licita settings set llm.model gpt-4o`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset KEY",
	Short: "Restore a setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsReset,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	RunE:  runSettingsKeys,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key PROVIDER",
	Short: "Store an API key for a provider",
	Long: `Store an API key for every configured role (embedding, LLM) that uses PROVIDER.

The key is read from the terminal without echo, or from stdin when piped.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsSetKey,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used to index the reference library.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider that writes audit verdicts.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return unavailable("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	if path := settingsService.ConfigPath(); path != "" {
		cmd.Printf("File: %s\n", path)
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Println()

	kb := settings.KnowledgeBase
	cmd.Println("[Knowledge Base]")
	cmd.Printf("  Root: %s\n", kb.Root)
	cmd.Printf("  Snapshot dir: %s\n", kb.SnapshotDir)
	cmd.Printf("  Chunk size: %d (overlap %d, min %d)\n", kb.ChunkSize, kb.Overlap, kb.MinChunkLength)
	cmd.Printf("  Embedding batch: %d every %s\n", kb.BatchSize, kb.BatchPause)
	cmd.Println()

	audit := settings.Audit
	cmd.Println("[Audit]")
	cmd.Printf("  Retrieval k: %d\n", audit.RetrievalK)
	cmd.Printf("  Max document chars: %d\n", audit.MaxDocumentChars)
	cmd.Printf("  Max prompt tokens: %d\n", audit.MaxPromptTokens)
	cmd.Printf("  Attempts: %d (backoff %s..%s)\n", audit.MaxAttempts, audit.BackoffBase, audit.BackoffMax)
	cmd.Printf("  Empty knowledge base: %s\n", audit.EmptyKnowledgeBase)
	cmd.Printf("  Final summary: %t\n", audit.FinalSummary)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'licita settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return unavailable("settings")
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("%s = %s\n", args[0], displayValue(args[0], args[1]))
	return nil
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return unavailable("settings")
	}
	if err := settingsService.Reset(args[0]); err != nil {
		return err
	}
	cmd.Printf("%s restored to default\n", args[0])
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return unavailable("settings")
	}
	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return unavailable("settings")
	}

	provider := domain.AIProvider(strings.ToLower(args[0]))
	if !provider.IsValid() {
		return fmt.Errorf("unknown provider %q", args[0])
	}
	if !provider.RequiresAPIKey() {
		return fmt.Errorf("%s does not use an API key", provider.Description())
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	var keys []string
	if settings.Embedding.Provider == provider {
		keys = append(keys, "embedding.api_key")
	}
	if settings.LLM.Provider == provider {
		keys = append(keys, "llm.api_key")
	}
	if len(keys) == 0 {
		return fmt.Errorf("neither embedding nor llm uses %s; run 'licita settings set llm.provider %s' first",
			provider, provider)
	}

	cmd.Printf("Enter %s API key: ", provider.Description())
	apiKey := readPassword(cmd.InOrStdin())
	cmd.Println()
	if apiKey == "" {
		return errors.New("API key is required")
	}

	for _, key := range keys {
		if err := settingsService.Set(key, apiKey); err != nil {
			return fmt.Errorf("failed to store %s: %w", key, err)
		}
		cmd.Printf("%s = %s\n", key, maskAPIKey(apiKey))
	}
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return unavailable("settings")
	}

	cmd.Println("Licita Settings Wizard")
	cmd.Println("======================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Configure Embedding Provider")
	cmd.Println("------------------------------------")
	cmd.Println("The embedding provider indexes the reference library.")
	cmd.Println()
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 2: Configure LLM Provider")
	cmd.Println("------------------------------")
	cmd.Println("The LLM writes one verdict per audit topic.")
	cmd.Println()
	if err := configureLLMProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 3: Reference Library")
	cmd.Println("-------------------------")
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cmd.Printf("Directory with reference PDFs [%s]: ", settings.KnowledgeBase.Root)
	if root := readLine(reader); root != "" {
		if err := settingsService.Set("knowledge_base.root", root); err != nil {
			return fmt.Errorf("failed to set knowledge base root: %w", err)
		}
	}
	cmd.Println()

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
		cmd.Println("Run 'licita kb build' to index the reference library.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return unavailable("settings")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return unavailable("settings")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

// providerRole describes one AI role the wizard can configure.
type providerRole struct {
	title     string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	apply     func(domain.AIProvider, string, string) error
	validate  func() error
}

func embeddingRole() providerRole {
	return providerRole{
		title:     "Embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		apply:     settingsService.SetEmbeddingProvider,
		validate:  settingsService.ValidateEmbeddingConfig,
	}
}

func llmRole() providerRole {
	return providerRole{
		title:     "LLM",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		apply:     settingsService.SetLLMProvider,
		validate:  settingsService.ValidateLLMConfig,
	}
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	return configureRole(cmd, reader, embeddingRole())
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	return configureRole(cmd, reader, llmRole())
}

func configureRole(cmd *cobra.Command, reader *bufio.Reader, role providerRole) error {
	cmd.Printf("Select %s Provider\n", role.title)
	for i, p := range role.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := role.providers[parseChoice(readLine(reader), len(role.providers), 1)-1]

	model := role.models[provider]
	cmd.Printf("Enter model name [%s]: ", model)
	if answer := readLine(reader); answer != "" {
		model = answer
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readSecret(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := role.apply(provider, model, apiKey); err != nil {
		return fmt.Errorf("configure %s provider: %w", role.title, err)
	}

	cmd.Print("Validating configuration... ")
	if err := role.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration invalid: %w", role.title, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n\n", role.title, provider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readSecret reads without echo when in is a terminal, or a line from reader otherwise.
func readSecret(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func readPassword(in io.Reader) string {
	return readSecret(in, bufio.NewReader(in))
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func displayValue(key, value string) string {
	if strings.HasSuffix(key, "api_key") {
		return maskAPIKey(value)
	}
	return value
}
