// Command licita audits Brazilian procurement documents against Lei 14.133/21
// using a local library of legal references.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aguiargov/licita/internal/adapters/driven/ai"
	"github.com/aguiargov/licita/internal/adapters/driven/config/file"
	"github.com/aguiargov/licita/internal/adapters/driven/storage/memory"
	"github.com/aguiargov/licita/internal/adapters/driven/storage/sqlite"
	"github.com/aguiargov/licita/internal/adapters/driven/tokenizer"
	"github.com/aguiargov/licita/internal/adapters/driven/watcher"
	"github.com/aguiargov/licita/internal/adapters/driving/cli"
	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/core/services"
	"github.com/aguiargov/licita/internal/logger"
	"github.com/aguiargov/licita/internal/normalisers"
	"github.com/aguiargov/licita/internal/normalisers/docx"
	"github.com/aguiargov/licita/internal/normalisers/pdf"
	"github.com/aguiargov/licita/internal/normalisers/plaintext"
	"github.com/aguiargov/licita/internal/postprocessors"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	cli.SetWiring(wire)

	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// wire builds every service from the persisted settings. Services that cannot
// be created are left nil and explained through Warnings.
func wire(ctx context.Context) (*cli.Dependencies, error) {
	if !cli.SkipDotenv() {
		loaded, err := file.LoadEnv()
		if err != nil {
			return nil, err
		}
		for _, path := range loaded {
			logger.Debug("loaded environment from %s", path)
		}
	}

	configStore, err := file.NewConfigStore("")
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	deps := &cli.Dependencies{
		Settings: settingsService,
		Watcher:  watcher.New([]string{".pdf"}, watcher.DefaultDebounce),
	}

	aiServices := ai.Initialise(ctx, settings, false)
	deps.Warnings = append(deps.Warnings, aiServices.Warnings...)
	deps.Close = aiServices.Close

	registry := normalisers.NewRegistry(pdf.New(), docx.New(), plaintext.New())
	loader := services.NewDocumentLoader(registry, settings.Audit.MinTextLength)

	var kbProvider services.KnowledgeBaseProvider = unavailableKnowledgeBase{
		err: fmt.Errorf("%w: knowledge base needs an embedding provider", domain.ErrEmbeddingUnavailable),
	}
	if aiServices.EmbeddingService != nil {
		cache, err := buildKnowledgeBase(settings.KnowledgeBase, loader, aiServices.EmbeddingService)
		if err != nil {
			deps.Warnings = append(deps.Warnings, fmt.Sprintf("knowledge base: %v", err))
		} else {
			kbProvider = cache
			deps.KnowledgeBase = services.NewKnowledgeBaseService(cache)
		}
	}

	if aiServices.LLMService != nil {
		generator := services.NewVerdictGenerator(
			aiServices.LLMService,
			tokenizer.New(aiServices.LLMService.ModelName()),
			settings.Audit,
		)
		if prompts, err := file.NewPromptStore(""); err != nil {
			deps.Warnings = append(deps.Warnings, fmt.Sprintf("prompts: %v (using built-in prompts)", err))
		} else {
			if written, err := prompts.Seed(); err != nil {
				logger.Warn("could not seed %s: %v", prompts.Dir(), err)
			} else if len(written) > 0 {
				logger.Debug("wrote %d default prompt file(s) to %s", len(written), prompts.Dir())
			}
			generator.SetPromptStore(prompts)
		}
		deps.Audit = services.NewAuditService(loader, kbProvider, generator, settings.Audit)
	}

	return deps, nil
}

func buildKnowledgeBase(
	kb domain.KnowledgeBaseSettings,
	loader *services.DocumentLoader,
	embedder driven.EmbeddingService,
) (*services.KnowledgeBaseCache, error) {
	pipeline, err := postprocessors.DefaultPipeline(kb)
	if err != nil {
		return nil, err
	}
	snapshots, err := sqlite.NewSnapshotStore(kb.SnapshotDir)
	if err != nil {
		return nil, err
	}

	builder := services.NewKnowledgeBaseBuilder(
		kb,
		loader,
		pipeline,
		embedder,
		func() driven.VectorIndex { return memory.NewVectorIndex() },
		snapshots,
	)
	builder.OnFile = traceFile
	builder.Batcher().OnBatch = func(done, total int) {
		logger.Debug("embedded %d/%d chunks", done, total)
	}

	return services.NewKnowledgeBaseCache(builder), nil
}

// traceFile logs per-file ingest detail in verbose mode. The builder already
// warns about unreadable files.
func traceFile(r services.FileResult) {
	if r.Err != nil {
		logger.Debug("skipped %s: %v", r.Path, r.Err)
		return
	}
	logger.Debug("read %s (%d chars)", r.Path, r.Chars)
}

// unavailableKnowledgeBase lets audits run under the degraded policy when no
// embedding provider is configured.
type unavailableKnowledgeBase struct {
	err error
}

func (u unavailableKnowledgeBase) GetOrBuild(context.Context) (*services.KnowledgeBase, error) {
	return nil, u.err
}
