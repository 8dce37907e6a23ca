package driving

import (
	"context"

	"github.com/aguiargov/licita/internal/core/domain"
)

// KnowledgeBaseService owns the reference library index for external actors.
type KnowledgeBaseService interface {
	// Build returns the ingest report of the current index, building it on
	// first use. With force set, the snapshot is ignored and the index is rebuilt.
	Build(ctx context.Context, force bool) (*domain.IngestReport, error)

	// Search returns the passages most similar to query, most similar first.
	Search(ctx context.Context, query string, k int) ([]domain.Passage, error)

	// Status describes the cached index and the snapshot on disk without building.
	Status(ctx context.Context) (*KnowledgeBaseStatus, error)

	// Invalidate drops the cached index so the next call rebuilds or reloads it.
	Invalidate()
}

// KnowledgeBaseStatus is a read-only view of the knowledge base.
type KnowledgeBaseStatus struct {
	// Root is the reference directory.
	Root string

	// Loaded is true when an index is held in memory.
	Loaded bool

	// Report is the last ingest report, nil before the first build.
	Report *domain.IngestReport

	// SnapshotPath is where the persisted index lives.
	SnapshotPath string

	// Snapshot describes the persisted index, nil when none is usable.
	Snapshot *SnapshotInfo
}

// SnapshotInfo summarises a persisted index.
type SnapshotInfo struct {
	EmbeddingModel string
	Dimensions     int
	Entries        int
	Files          int
	CreatedAt      string
}
