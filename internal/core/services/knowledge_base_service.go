package services

import (
	"context"
	"time"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driving"
	"github.com/aguiargov/licita/internal/logger"
)

// Ensure KnowledgeBaseService implements the interface.
var _ driving.KnowledgeBaseService = (*KnowledgeBaseService)(nil)

// KnowledgeBaseService exposes the cached knowledge base to the CLI and MCP server.
type KnowledgeBaseService struct {
	cache *KnowledgeBaseCache
}

// NewKnowledgeBaseService creates a service over a cache.
func NewKnowledgeBaseService(cache *KnowledgeBaseCache) *KnowledgeBaseService {
	return &KnowledgeBaseService{cache: cache}
}

// Build returns the ingest report, building or loading the index when needed.
func (s *KnowledgeBaseService) Build(ctx context.Context, force bool) (*domain.IngestReport, error) {
	var (
		kb  *KnowledgeBase
		err error
	)
	if force {
		kb, err = s.cache.Rebuild(ctx)
	} else {
		kb, err = s.cache.GetOrBuild(ctx)
	}
	if err != nil {
		return s.cache.Report(), err
	}
	report := kb.Report()
	return &report, nil
}

// Search returns the passages most similar to query. A non-positive k uses DefaultRetrievalK.
func (s *KnowledgeBaseService) Search(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	if k <= 0 {
		k = DefaultRetrievalK
	}
	kb, err := s.cache.GetOrBuild(ctx)
	if err != nil {
		return nil, err
	}
	return kb.Search(ctx, query, k)
}

// Status describes the cached index and the persisted snapshot without building.
func (s *KnowledgeBaseService) Status(ctx context.Context) (*driving.KnowledgeBaseStatus, error) {
	builder := s.cache.Builder()
	status := &driving.KnowledgeBaseStatus{
		Root:   builder.Root(),
		Loaded: s.cache.Current() != nil,
		Report: s.cache.Report(),
	}

	store := builder.Snapshots()
	if store == nil {
		return status, nil
	}
	status.SnapshotPath = store.Path()

	snap, err := store.Load(ctx)
	if err != nil {
		logger.Debug("Snapshot status: %v", err)
		return status, nil
	}

	status.Snapshot = &driving.SnapshotInfo{
		EmbeddingModel: snap.EmbeddingModel,
		Dimensions:     snap.Dimensions,
		Entries:        len(snap.Entries),
		Files:          len(snap.Report.Files),
		CreatedAt:      snap.CreatedAt.Format(time.RFC3339),
	}
	if status.Report == nil {
		report := snap.Report
		report.FromSnapshot = true
		status.Report = &report
	}
	return status, nil
}

// Invalidate drops the cached index.
func (s *KnowledgeBaseService) Invalidate() {
	s.cache.Invalidate()
}
