package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aguiargov/licita/internal/adapters/driven/storage/memory"
	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driving"
	"github.com/aguiargov/licita/internal/core/services"
)

// MockAuditService implements driving.AuditService for tests.
type MockAuditService struct {
	RunAuditFunc func(ctx context.Context, req driving.AuditRequest) (*domain.AuditResult, error)
	last         driving.AuditRequest
}

func (m *MockAuditService) RunAudit(ctx context.Context, req driving.AuditRequest) (*domain.AuditResult, error) {
	m.last = req
	if m.RunAuditFunc != nil {
		return m.RunAuditFunc(ctx, req)
	}
	return sampleResult(req), nil
}

// MockKnowledgeBaseService implements driving.KnowledgeBaseService for tests.
type MockKnowledgeBaseService struct {
	BuildFunc  func(ctx context.Context, force bool) (*domain.IngestReport, error)
	SearchFunc func(ctx context.Context, query string, k int) ([]domain.Passage, error)
	StatusFunc func(ctx context.Context) (*driving.KnowledgeBaseStatus, error)

	builds      []bool
	lastQuery   string
	lastK       int
	invalidated int
}

func (m *MockKnowledgeBaseService) Build(ctx context.Context, force bool) (*domain.IngestReport, error) {
	m.builds = append(m.builds, force)
	if m.BuildFunc != nil {
		return m.BuildFunc(ctx, force)
	}
	return sampleReport(), nil
}

func (m *MockKnowledgeBaseService) Search(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	m.lastQuery = query
	m.lastK = k
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, k)
	}
	return nil, nil
}

func (m *MockKnowledgeBaseService) Status(ctx context.Context) (*driving.KnowledgeBaseStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return &driving.KnowledgeBaseStatus{Root: "data", SnapshotPath: "data/.licita/index.db"}, nil
}

func (m *MockKnowledgeBaseService) Invalidate() {
	m.invalidated++
}

// MockFileWatcher replays change bursts, then returns.
type MockFileWatcher struct {
	Bursts   [][]string
	lastRoot string
}

func (m *MockFileWatcher) Watch(_ context.Context, root string, onChange func([]string)) error {
	m.lastRoot = root
	for _, burst := range m.Bursts {
		onChange(burst)
	}
	return nil
}

func sampleReport() *domain.IngestReport {
	return &domain.IngestReport{
		Root: "data",
		Files: []domain.IngestedFile{
			{Path: "lei_14133.pdf", Chars: 120000, Pages: 80, Chunks: 66},
		},
		Skipped: []domain.SkippedFile{
			{Path: "escaneado.pdf", Reason: "no extractable text"},
		},
		Chunks:         66,
		Filtered:       2,
		EmbeddingModel: "text-embedding-3-small",
		BuiltAt:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Duration:       1500 * time.Millisecond,
	}
}

func sampleResult(req driving.AuditRequest) *domain.AuditResult {
	return &domain.AuditResult{
		RunID:        "run-1",
		DocumentName: req.DocumentName,
		DocumentType: req.DocumentType,
		Entries: []domain.AuditEntry{
			{
				Topic:    "1. Capital social",
				Verdict:  "🚨 ALERTA VERMELHO: exige capital social de 20%.",
				Class:    domain.VerdictIrregular,
				Sources:  []string{"acordao.pdf"},
				Attempts: 1,
			},
			{
				Topic:    "2. Prazos",
				Verdict:  "✅ CONFORME: prazos adequados.",
				Class:    domain.VerdictCompliant,
				Attempts: 1,
			},
		},
	}
}

// withServices installs services for one test and restores the previous ones.
func withServices(t *testing.T, deps *Dependencies) {
	t.Helper()
	prev := &Dependencies{
		Settings:      settingsService,
		Audit:         auditService,
		KnowledgeBase: knowledgeBaseService,
		Watcher:       fileWatcher,
		Warnings:      startupWarnings,
		Close:         closeWiring,
	}
	Configure(deps)
	t.Cleanup(func() { Configure(prev) })
}

// newTestSettings returns a settings service over an in-memory config store
// that ignores the process environment.
func newTestSettings() *services.SettingsService {
	svc := services.NewSettingsService(memory.NewConfigStore(), nil)
	svc.SetEnvLookup(func(string) string { return "" })
	return svc
}

// executeCommand runs the root command with args and returns stdout and stderr.
func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag to its default so runs do not leak into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue) //nolint:errcheck // defaults always parse
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
