package domain

import "time"

// SnapshotVersion is bumped whenever the persisted layout changes.
// Snapshots of other versions are treated as unavailable.
const SnapshotVersion = 1

// Snapshot is the persisted form of a knowledge base generation.
type Snapshot struct {
	// Version is the persisted layout version.
	Version int

	// EmbeddingModel is the model used for every entry.
	EmbeddingModel string

	// Dimensions is the embedding size.
	Dimensions int

	// Entries is the full entry set.
	Entries []IndexEntry

	// Report is the ingest report of the build that produced the snapshot.
	Report IngestReport

	// CreatedAt is when the snapshot was written.
	CreatedAt time.Time
}

// Compatible reports whether the snapshot can serve an index for the given model.
func (s *Snapshot) Compatible(model string, dimensions int) bool {
	if s == nil || s.Version != SnapshotVersion {
		return false
	}
	if model != "" && s.EmbeddingModel != model {
		return false
	}
	if dimensions > 0 && s.Dimensions != dimensions {
		return false
	}
	return len(s.Entries) > 0
}
