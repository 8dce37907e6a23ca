package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aguiargov/licita/internal/adapters/driven/storage/memory"
	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/normalisers"
	"github.com/aguiargov/licita/internal/normalisers/pdf"
	"github.com/aguiargov/licita/internal/normalisers/plaintext"
	"github.com/aguiargov/licita/internal/postprocessors"
)

// --- Mock implementations ---

// vocabulary gives the keyword embedder its dimensions.
var vocabulary = []string{
	"capital", "social", "habilitação", "licitação", "objeto", "prazo",
	"orçamento", "bdi", "sondagem", "parcelamento", "atestado", "vistoria",
}

// mockEmbedder implements driven.EmbeddingService with keyword-count vectors,
// so texts sharing vocabulary are similar.
type mockEmbedder struct {
	mu         sync.Mutex
	calls      int
	batchCalls int
	batchSizes []int
	texts      []string

	// failOnBatch makes the n-th EmbedBatch call (1-based) fail with err.
	failOnBatch int
	err         error

	// queryErrs are returned, in order, by the next Embed calls.
	queryErrs []error

	// short drops the last vector of every batch.
	short bool
	model string
}

func (m *mockEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(vocabulary)+1)
	for i, word := range vocabulary {
		v[i] = float32(strings.Count(lower, word))
	}
	v[len(vocabulary)] = 0.01
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failOnBatch < 0 {
		return nil, m.err
	}
	if len(m.queryErrs) > 0 {
		err := m.queryErrs[0]
		m.queryErrs = m.queryErrs[1:]
		return nil, err
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	m.texts = append(m.texts, texts...)
	if m.failOnBatch > 0 && m.batchCalls == m.failOnBatch {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	if m.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return len(vocabulary) + 1 }

func (m *mockEmbedder) ModelName() string {
	if m.model != "" {
		return m.model
	}
	return "keyword-test"
}

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func (m *mockEmbedder) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls + m.batchCalls
}

// mockLLM implements driven.LLMService with a scripted reply function.
type mockLLM struct {
	mu       sync.Mutex
	calls    int
	requests [][]driven.ChatMessage
	options  []driven.ChatOptions

	// reply returns the answer for the n-th call (1-based).
	reply func(call int, messages []driven.ChatMessage) (string, error)
}

func (m *mockLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	return "", nil
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.requests = append(m.requests, messages)
	m.options = append(m.options, opts)
	m.mu.Unlock()

	if m.reply == nil {
		return "✅ CONFORME: nada a apontar.", nil
	}
	return m.reply(call, messages)
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// textExtractor reads "PDF" fixtures that hold plain text, one page per form feed.
type textExtractor struct{}

func (textExtractor) ExtractPages(_ context.Context, data []byte) ([]string, error) {
	return strings.Split(string(data), "\f"), nil
}

// mockPromptStore serves a fixed set of prompts.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", domain.ErrNotFound
}

func (m *mockPromptStore) Reload() {}

// wordCounter counts whitespace-separated words as tokens.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

// --- Fixtures ---

func newTestLoader() *DocumentLoader {
	registry := normalisers.NewRegistry(pdf.NewWithExtractor(textExtractor{}), plaintext.New())
	return NewDocumentLoader(registry, DefaultMinTextLength)
}

func newTestPipeline(t *testing.T, kb domain.KnowledgeBaseSettings) driven.PostProcessorPipeline {
	t.Helper()
	pipeline, err := postprocessors.DefaultPipeline(kb)
	require.NoError(t, err)
	return pipeline
}

func testKBSettings(root string) domain.KnowledgeBaseSettings {
	kb := domain.DefaultAppSettings().KnowledgeBase
	kb.Root = root
	kb.BatchPause = 0
	return kb
}

func newTestBuilder(
	t *testing.T, root string, embedder *mockEmbedder, snapshots driven.SnapshotStore,
) *KnowledgeBaseBuilder {
	t.Helper()
	kb := testKBSettings(root)
	return NewKnowledgeBaseBuilder(
		kb,
		newTestLoader(),
		newTestPipeline(t, kb),
		embedder,
		func() driven.VectorIndex { return memory.NewVectorIndex() },
		snapshots,
	)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

const (
	leiText = "Lei 14.133/21. Art. 62. A habilitação é a fase da licitação em que se verifica " +
		"o conjunto de informações e documentos necessários para demonstrar a capacidade do licitante. " +
		"Art. 18. O planejamento deve conter o parcelamento do objeto e o orçamento estimado."

	acordaoText = "Acórdão TCU. É ilegal exigir capital social mínimo superior a 10% do valor estimado " +
		"da contratação. A exigência de capital social e de vistoria obrigatória restringe a competitividade " +
		"e o capital social exigido deve ser proporcional."
)

// writeReferenceLibrary creates the two-document knowledge base used across tests.
func writeReferenceLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "lei.pdf", leiText)
	writeFile(t, root, "jurisprudencia/acordao.pdf", acordaoText)
	return root
}
