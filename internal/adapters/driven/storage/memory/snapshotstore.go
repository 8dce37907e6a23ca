package memory

import (
	"context"
	"sync"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore keeps one snapshot in memory for testing.
type SnapshotStore struct {
	mu       sync.RWMutex
	snapshot *domain.Snapshot
	saves    int

	// SaveErr, when set, makes Save fail without touching the stored snapshot.
	SaveErr error
}

// NewSnapshotStore creates an empty snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Save stores a deep copy of the snapshot.
func (s *SnapshotStore) Save(_ context.Context, snapshot *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.snapshot = cloneSnapshot(snapshot)
	s.saves++
	return nil
}

// Load returns a copy of the stored snapshot or domain.ErrSnapshotUnavailable.
func (s *SnapshotStore) Load(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, domain.ErrSnapshotUnavailable
	}
	return cloneSnapshot(s.snapshot), nil
}

// Path returns a placeholder location.
func (s *SnapshotStore) Path() string {
	return "memory://snapshot"
}

// Saves returns how many snapshots were written.
func (s *SnapshotStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func cloneSnapshot(in *domain.Snapshot) *domain.Snapshot {
	out := *in
	out.Entries = make([]domain.IndexEntry, len(in.Entries))
	for i, e := range in.Entries {
		e.Embedding = append([]float32(nil), e.Embedding...)
		out.Entries[i] = e
	}
	out.Report.Files = append([]domain.IngestedFile(nil), in.Report.Files...)
	out.Report.Skipped = append([]domain.SkippedFile(nil), in.Report.Skipped...)
	return &out
}
