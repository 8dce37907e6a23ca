// Package cli provides the cobra command tree for licita.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/core/ports/driving"
	"github.com/aguiargov/licita/internal/core/services"
	"github.com/aguiargov/licita/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Services used by commands. Set by the wiring function or by tests.
var (
	settingsService      driving.SettingsService
	auditService         driving.AuditService
	knowledgeBaseService driving.KnowledgeBaseService
	fileWatcher          driven.FileWatcher

	// startupWarnings explain why a service above is nil.
	startupWarnings []string
)

// Dependencies is everything the commands need.
type Dependencies struct {
	Settings      driving.SettingsService
	Audit         driving.AuditService
	KnowledgeBase driving.KnowledgeBaseService
	Watcher       driven.FileWatcher

	// Warnings describe services that could not be created.
	Warnings []string

	// Close releases provider clients. May be nil.
	Close func()
}

// WiringFunc builds the dependencies once flags have been parsed.
type WiringFunc func(ctx context.Context) (*Dependencies, error)

var (
	wiring       WiringFunc
	closeWiring  func()
	verbose      bool
	logFormat    string
	dataDir      string
	skipDotenv   bool
	wiringLoaded bool
)

var rootCmd = &cobra.Command{
	Use:   "licita",
	Short: "Audit Brazilian procurement documents",
	Long: `licita audits procurement documents (edital, ETP, termo de referência,
projeto básico) against Lei 14.133/21 and a local library of legal references.

Reference PDFs are indexed once into a knowledge base; each audit topic
retrieves the most relevant passages and asks the configured LLM for a verdict.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logger.FormatConsole, "log format (console|json)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "reference library directory (overrides knowledge_base.root)")
	rootCmd.PersistentFlags().BoolVar(&skipDotenv, "no-dotenv", false, "do not load .env from the working directory")
}

// SetWiring registers the function that builds services before a command runs.
func SetWiring(fn WiringFunc) {
	wiring = fn
}

// Configure installs dependencies directly.
func Configure(deps *Dependencies) {
	settingsService = deps.Settings
	auditService = deps.Audit
	knowledgeBaseService = deps.KnowledgeBase
	fileWatcher = deps.Watcher
	startupWarnings = deps.Warnings
	closeWiring = deps.Close
}

// SetVersion sets the version reported by 'licita version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SkipDotenv reports whether --no-dotenv was given.
func SkipDotenv() bool {
	return skipDotenv
}

// Execute runs the root command and prints failures in operator language.
func Execute(ctx context.Context) error {
	defer func() {
		if closeWiring != nil {
			closeWiring()
		}
		_ = logger.Sync() //nolint:errcheck // nothing useful to do on exit
	}()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Erro: "+describeError(err))
		logger.Debug("command failed: %v", err)
	}
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetFormat(logFormat)

	if dataDir != "" {
		if err := os.Setenv(services.EnvDataDir, dataDir); err != nil {
			return fmt.Errorf("set %s: %w", services.EnvDataDir, err)
		}
	}

	if wiring == nil || wiringLoaded {
		return nil
	}
	deps, err := wiring(cmd.Context())
	if err != nil {
		return err
	}
	wiringLoaded = true
	Configure(deps)
	for _, w := range deps.Warnings {
		logger.Debug("startup: %s", w)
	}
	return nil
}

// unavailable explains a missing service, including why wiring skipped it.
func unavailable(name string) error {
	msg := name + " service not configured"
	if len(startupWarnings) > 0 {
		msg += ": " + strings.Join(startupWarnings, "; ")
	}
	return errors.New(msg)
}

// describeError returns the operator message for classified failures and the
// raw error text otherwise.
func describeError(err error) string {
	var unavailableErr *domain.UnavailableError
	if errors.As(err, &unavailableErr) {
		return domain.UserMessage(err)
	}
	if kind := domain.Classify(err); kind != domain.KindInternal && kind != domain.KindNone {
		return domain.UserMessage(err)
	}
	return err.Error()
}
