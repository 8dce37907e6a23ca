package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotFile is the database file name inside the snapshot directory.
const SnapshotFile = "knowledge_base.db"

// SnapshotStore keeps the latest knowledge base generation in one SQLite file.
type SnapshotStore struct {
	mu   sync.Mutex
	path string
}

// NewSnapshotStore creates a store under dir.
// If dir is empty, defaults to ~/.licita/index.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".licita", "index")
	}
	return &SnapshotStore{path: filepath.Join(dir, SnapshotFile)}, nil
}

// Path returns the snapshot file path.
func (s *SnapshotStore) Path() string {
	return s.path
}

// Save writes snapshot to a temporary file and renames it over the current one.
func (s *SnapshotStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	if snapshot == nil || len(snapshot.Entries) == 0 {
		return fmt.Errorf("%w: refusing to save an empty snapshot", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale snapshot: %w", err)
	}

	if err := writeSnapshot(ctx, tmp, snapshot); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

func writeSnapshot(ctx context.Context, path string, snapshot *domain.Snapshot) error {
	store, err := OpenStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := json.Marshal(snapshot.Report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	createdAt := snapshot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, version, embedding_model, dimensions, report, created_at)
		VALUES (1, ?, ?, ?, ?, ?)
	`, snapshot.Version, snapshot.EmbeddingModel, snapshot.Dimensions, string(report), createdAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting snapshot metadata: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (position, chunk_id, source, content, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing entry insert: %w", err)
	}
	defer stmt.Close()

	for i, entry := range snapshot.Entries {
		if len(entry.Embedding) != snapshot.Dimensions {
			return fmt.Errorf("%w: entry %s has %d dimensions, expected %d",
				domain.ErrInvalidInput, entry.ChunkID, len(entry.Embedding), snapshot.Dimensions)
		}
		if _, err := stmt.ExecContext(ctx, i, entry.ChunkID, entry.Source, entry.Content,
			encodeVector(entry.Embedding)); err != nil {
			return fmt.Errorf("inserting entry %s: %w", entry.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// Load reads the current snapshot. Any problem (missing file, other
// version, corrupt rows) reports domain.ErrSnapshotUnavailable so the
// caller rebuilds.
func (s *SnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSnapshotUnavailable, err)
	}

	store, err := OpenStore(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSnapshotUnavailable, err)
	}
	defer store.Close()

	snapshot, err := readSnapshot(ctx, store.db)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSnapshotUnavailable, err)
	}
	return snapshot, nil
}

func readSnapshot(ctx context.Context, db *sql.DB) (*domain.Snapshot, error) {
	var (
		snapshot   domain.Snapshot
		reportJSON string
	)
	row := db.QueryRowContext(ctx, `
		SELECT version, embedding_model, dimensions, report, created_at
		FROM snapshot_meta WHERE id = 1
	`)
	if err := row.Scan(&snapshot.Version, &snapshot.EmbeddingModel, &snapshot.Dimensions,
		&reportJSON, &snapshot.CreatedAt); err != nil {
		return nil, fmt.Errorf("reading snapshot metadata: %w", err)
	}
	if snapshot.Version != domain.SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, expected %d", snapshot.Version, domain.SnapshotVersion)
	}
	if err := json.Unmarshal([]byte(reportJSON), &snapshot.Report); err != nil {
		return nil, fmt.Errorf("unmarshaling report: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT chunk_id, source, content, embedding FROM entries ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entry domain.IndexEntry
			blob  []byte
		)
		if err := rows.Scan(&entry.ChunkID, &entry.Source, &entry.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if len(blob) != snapshot.Dimensions*4 {
			return nil, fmt.Errorf("entry %s has a %d-byte embedding, expected %d",
				entry.ChunkID, len(blob), snapshot.Dimensions*4)
		}
		entry.Embedding = decodeVector(blob)
		snapshot.Entries = append(snapshot.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	if len(snapshot.Entries) == 0 {
		return nil, errors.New("snapshot has no entries")
	}

	return &snapshot, nil
}
