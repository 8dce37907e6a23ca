// Package sqlite persists knowledge base snapshots in SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Atomic Replacement
//
// Each snapshot is a complete database file. Save writes a fresh file beside
// the current one and renames it into place, so a crash or error mid-save
// leaves the previous snapshot intact.
//
// # Data Location
//
// By default, snapshots are stored at ~/.licita/index/knowledge_base.db
package sqlite
