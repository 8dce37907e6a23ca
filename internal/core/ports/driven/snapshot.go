package driven

import (
	"context"

	"github.com/aguiargov/licita/internal/core/domain"
)

// SnapshotStore persists built knowledge bases so later runs skip ingestion.
type SnapshotStore interface {
	// Save writes a snapshot. A failed save never damages the previous snapshot.
	Save(ctx context.Context, snapshot *domain.Snapshot) error

	// Load reads the current snapshot.
	// Returns domain.ErrSnapshotUnavailable when none exists or it cannot be read.
	Load(ctx context.Context) (*domain.Snapshot, error)

	// Path returns where the snapshot lives, for status output.
	Path() string
}
