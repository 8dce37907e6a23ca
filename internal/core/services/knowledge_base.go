package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/logger"
)

// KnowledgeBase is a built, searchable reference library.
// It is immutable once built; concurrent searches are safe.
type KnowledgeBase struct {
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	report   domain.IngestReport
}

// NewKnowledgeBase wraps an index with the embedder that produced it.
func NewKnowledgeBase(index driven.VectorIndex, embedder driven.EmbeddingService, report domain.IngestReport) *KnowledgeBase {
	return &KnowledgeBase{index: index, embedder: embedder, report: report}
}

// Search embeds query with the index's model and returns the k most similar passages.
func (kb *KnowledgeBase) Search(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if k <= 0 || kb.index.Len() == 0 {
		return []domain.Passage{}, nil
	}

	vector, err := kb.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := kb.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	passages := make([]domain.Passage, len(hits))
	for i, hit := range hits {
		passages[i] = domain.Passage{
			Content: hit.Entry.Content,
			Source:  hit.Entry.Source,
			Score:   hit.Similarity,
		}
	}
	return passages, nil
}

// Len returns the number of indexed chunks.
func (kb *KnowledgeBase) Len() int {
	return kb.index.Len()
}

// Report returns the ingest report of the build (or snapshot) behind the index.
func (kb *KnowledgeBase) Report() domain.IngestReport {
	return kb.report
}

// IndexFactory returns an empty vector index.
type IndexFactory func() driven.VectorIndex

// FileResult is the outcome of loading one reference file.
type FileResult struct {
	// Path is relative to the knowledge base root.
	Path string

	// Chars is the number of extracted characters; zero when Err is set.
	Chars int

	// Err explains why the file was skipped.
	Err error
}

// KnowledgeBaseBuilder ingests the reference directory into a vector index.
type KnowledgeBaseBuilder struct {
	settings  domain.KnowledgeBaseSettings
	loader    *DocumentLoader
	pipeline  driven.PostProcessorPipeline
	embedder  driven.EmbeddingService
	batcher   *EmbeddingBatcher
	newIndex  IndexFactory
	snapshots driven.SnapshotStore

	// OnFile is called once per reference file, in walk order. May be nil.
	OnFile func(FileResult)
}

// NewKnowledgeBaseBuilder creates a builder. snapshots may be nil to disable persistence.
func NewKnowledgeBaseBuilder(
	settings domain.KnowledgeBaseSettings,
	loader *DocumentLoader,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	newIndex IndexFactory,
	snapshots driven.SnapshotStore,
) *KnowledgeBaseBuilder {
	return &KnowledgeBaseBuilder{
		settings:  settings,
		loader:    loader,
		pipeline:  pipeline,
		embedder:  embedder,
		batcher:   NewEmbeddingBatcher(embedder, settings.BatchSize, settings.BatchPause),
		newIndex:  newIndex,
		snapshots: snapshots,
	}
}

// Batcher exposes the embedding batcher so callers can attach progress.
func (b *KnowledgeBaseBuilder) Batcher() *EmbeddingBatcher {
	return b.batcher
}

// Root returns the reference directory.
func (b *KnowledgeBaseBuilder) Root() string {
	return b.settings.Root
}

// Snapshots returns the snapshot store, nil when persistence is disabled.
func (b *KnowledgeBaseBuilder) Snapshots() driven.SnapshotStore {
	return b.snapshots
}

// Build loads the persisted snapshot when one matches the embedding model,
// otherwise ingests the reference directory.
func (b *KnowledgeBaseBuilder) Build(ctx context.Context) (*KnowledgeBase, *domain.IngestReport, error) {
	return b.build(ctx, true)
}

// Rebuild ingests the reference directory, ignoring any snapshot.
func (b *KnowledgeBaseBuilder) Rebuild(ctx context.Context) (*KnowledgeBase, *domain.IngestReport, error) {
	return b.build(ctx, false)
}

func (b *KnowledgeBaseBuilder) build(ctx context.Context, useSnapshot bool) (*KnowledgeBase, *domain.IngestReport, error) {
	logger.Section("Knowledge Base")
	start := time.Now()

	if useSnapshot {
		if kb, report, ok := b.fromSnapshot(ctx, start); ok {
			return kb, report, nil
		}
	}

	report := &domain.IngestReport{
		Root:           b.settings.Root,
		EmbeddingModel: b.embedder.ModelName(),
	}

	files, err := b.findPDFs()
	if err != nil {
		return nil, report, err
	}

	var chunks []domain.Chunk
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		fileChunks, ingested, err := b.ingestFile(ctx, rel)
		if err != nil {
			if isContextDone(ctx, err) {
				return nil, report, err
			}
			logger.Warn("❌ Erro ao ler %s: %v", rel, err)
			report.Skipped = append(report.Skipped, domain.SkippedFile{Path: rel, Reason: err.Error()})
			b.notify(FileResult{Path: rel, Err: err})
			continue
		}

		logger.Info("✅ Lido: %s (%d caracteres, %d trechos)", rel, ingested.Chars, ingested.Chunks)
		report.Files = append(report.Files, ingested.IngestedFile)
		report.Filtered += ingested.filtered
		chunks = append(chunks, fileChunks...)
		b.notify(FileResult{Path: rel, Chars: ingested.Chars})
	}

	if len(report.Files) == 0 {
		return nil, report, &domain.UnavailableError{
			Reason: domain.ReasonPDFsUnreadable,
			Detail: fmt.Sprintf("%d files in %s", len(files), b.settings.Root),
		}
	}
	if len(chunks) == 0 {
		return nil, report, &domain.UnavailableError{Reason: domain.ReasonNoUsableChunks, Detail: b.settings.Root}
	}

	vectors, err := b.batcher.Embed(ctx, chunks)
	if err != nil {
		return nil, report, fmt.Errorf("embed knowledge base: %w", err)
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i := range chunks {
		entries[i] = domain.IndexEntry{
			ChunkID:   chunks[i].ID,
			Source:    chunks[i].Source,
			Content:   chunks[i].Content,
			Embedding: vectors[i],
		}
	}

	index := b.newIndex()
	if err := index.Add(ctx, entries); err != nil {
		return nil, report, fmt.Errorf("build index: %w", err)
	}

	report.Chunks = len(entries)
	report.BuiltAt = time.Now()
	report.Duration = time.Since(start)
	logger.Info("Knowledge base built: %d files, %d chunks in %s", len(report.Files), report.Chunks, report.Duration)

	b.saveSnapshot(ctx, entries, report)

	return NewKnowledgeBase(index, b.embedder, *report), report, nil
}

func (b *KnowledgeBaseBuilder) fromSnapshot(
	ctx context.Context, start time.Time,
) (*KnowledgeBase, *domain.IngestReport, bool) {
	if b.snapshots == nil {
		return nil, nil, false
	}

	snap, err := b.snapshots.Load(ctx)
	if err != nil {
		logger.Debug("No usable snapshot at %s: %v", b.snapshots.Path(), err)
		return nil, nil, false
	}
	if !snap.Compatible(b.embedder.ModelName(), b.embedder.Dimensions()) {
		logger.Info("Snapshot built with %s (%d dims) does not match %s, rebuilding",
			snap.EmbeddingModel, snap.Dimensions, b.embedder.ModelName())
		return nil, nil, false
	}

	index := b.newIndex()
	if err := index.Add(ctx, snap.Entries); err != nil {
		logger.Warn("Snapshot at %s is corrupt, rebuilding: %v", b.snapshots.Path(), err)
		return nil, nil, false
	}

	report := snap.Report
	report.FromSnapshot = true
	report.Chunks = len(snap.Entries)
	report.EmbeddingModel = snap.EmbeddingModel
	report.BuiltAt = snap.CreatedAt
	report.Duration = time.Since(start)
	logger.Info("Knowledge base loaded from snapshot: %d chunks", report.Chunks)

	return NewKnowledgeBase(index, b.embedder, report), &report, true
}

func (b *KnowledgeBaseBuilder) saveSnapshot(ctx context.Context, entries []domain.IndexEntry, report *domain.IngestReport) {
	if b.snapshots == nil {
		return
	}

	snap := &domain.Snapshot{
		Version:        domain.SnapshotVersion,
		EmbeddingModel: b.embedder.ModelName(),
		Dimensions:     len(entries[0].Embedding),
		Entries:        entries,
		Report:         *report,
		CreatedAt:      report.BuiltAt,
	}
	if err := b.snapshots.Save(ctx, snap); err != nil {
		logger.Warn("Failed to save knowledge base snapshot: %v", err)
		return
	}
	logger.Debug("Snapshot saved to %s", b.snapshots.Path())
}

// findPDFs walks the root and returns PDF paths relative to it, sorted.
func (b *KnowledgeBaseBuilder) findPDFs() ([]string, error) {
	root := b.settings.Root
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, &domain.UnavailableError{Reason: domain.ReasonDirectoryMissing, Detail: root}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	if len(files) == 0 {
		return nil, &domain.UnavailableError{Reason: domain.ReasonNoPDFs, Detail: root}
	}
	sort.Strings(files)
	logger.Debug("Found %d PDFs under %s", len(files), root)
	return files, nil
}

type ingestedFile struct {
	domain.IngestedFile
	filtered int
}

func (b *KnowledgeBaseBuilder) ingestFile(ctx context.Context, rel string) ([]domain.Chunk, ingestedFile, error) {
	data, err := os.ReadFile(filepath.Join(b.settings.Root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, ingestedFile{}, fmt.Errorf("read file: %w", err)
	}

	doc, err := b.loader.LoadReference(ctx, rel, data)
	if err != nil {
		return nil, ingestedFile{}, err
	}

	chunks, err := b.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, ingestedFile{}, fmt.Errorf("process: %w", err)
	}

	filtered, _ := doc.Metadata[metadataFiltered].(int)
	return chunks, ingestedFile{
		IngestedFile: domain.IngestedFile{
			Path:   rel,
			Chars:  len([]rune(doc.Content)),
			Pages:  doc.Pages,
			Chunks: len(chunks),
		},
		filtered: filtered,
	}, nil
}

func (b *KnowledgeBaseBuilder) notify(r FileResult) {
	if b.OnFile != nil {
		b.OnFile(r)
	}
}

func isContextDone(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// KnowledgeBaseCache holds the process-wide knowledge base.
// Concurrent callers during a build wait for it and share its result;
// failures are not cached.
type KnowledgeBaseCache struct {
	builder *KnowledgeBaseBuilder

	// building serialises builds; mu guards the fields below.
	building chan struct{}
	mu       sync.Mutex
	kb       *KnowledgeBase
	report   *domain.IngestReport
	gen      uint64
}

// NewKnowledgeBaseCache creates an empty cache over a builder.
func NewKnowledgeBaseCache(builder *KnowledgeBaseBuilder) *KnowledgeBaseCache {
	return &KnowledgeBaseCache{
		builder:  builder,
		building: make(chan struct{}, 1),
	}
}

// Builder returns the underlying builder.
func (c *KnowledgeBaseCache) Builder() *KnowledgeBaseBuilder {
	return c.builder
}

// GetOrBuild returns the cached knowledge base, building it on first use.
func (c *KnowledgeBaseCache) GetOrBuild(ctx context.Context) (*KnowledgeBase, error) {
	return c.get(ctx, false)
}

// Rebuild ignores the cached knowledge base and the snapshot and ingests again.
func (c *KnowledgeBaseCache) Rebuild(ctx context.Context) (*KnowledgeBase, error) {
	return c.get(ctx, true)
}

func (c *KnowledgeBaseCache) get(ctx context.Context, force bool) (*KnowledgeBase, error) {
	select {
	case c.building <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.building }()

	c.mu.Lock()
	cached, gen := c.kb, c.gen
	c.mu.Unlock()
	if cached != nil && !force {
		return cached, nil
	}

	build := c.builder.Build
	if force {
		build = c.builder.Rebuild
	}
	kb, report, err := build(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if report != nil {
		c.report = report
	}
	if err != nil {
		return nil, err
	}
	// An Invalidate during the build means the result may already be stale.
	if c.gen == gen {
		c.kb = kb
	}
	return kb, nil
}

// Current returns the cached knowledge base without building, or nil.
func (c *KnowledgeBaseCache) Current() *KnowledgeBase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kb
}

// Invalidate drops the cached knowledge base so the next call reloads it.
func (c *KnowledgeBaseCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kb = nil
	c.gen++
}

// Report returns the last ingest report, including failed builds, or nil.
func (c *KnowledgeBaseCache) Report() *domain.IngestReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}
