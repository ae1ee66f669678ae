// Package store persists the compound/molecule/atom/tag/edge/position
// hierarchy and answers the full-text and tag-walk queries the searcher
// needs. Two drivers are available behind the driverName build-tag switch:
// a pure-Go modernc.org/sqlite default, and a cgo mattn/go-sqlite3 +
// sqlite-vec build for callers who want the reserved embedding column
// backed by a real ANN index.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rsbalchii/anchoros/internal/logging"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// maxBatchRows bounds every batched write, per the single-round-trip,
// yield-between-batches contract.
const maxBatchRows = 50

// Store wraps the SQLite connection. Writes go through a single connection
// (SQLite's own writer serialization); the core never holds long-lived
// transactions outside of a single batch.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at dbPath and
// applies any pending migrations.
func Open(dbPath string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "open")
	defer timer.Stop()

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		logging.Get(logging.CategoryStore).Warn("set WAL mode: %v", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		logging.Get(logging.CategoryStore).Warn("set busy_timeout: %v", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		logging.Get(logging.CategoryStore).Warn("enable foreign_keys: %v", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Get(logging.CategoryStore).Info("store opened at %s (driver=%s)", dbPath, driverName)
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at INTEGER
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, name := range names {
		var count int
		if err := s.db.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE name = ?`, name).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}
		body, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations(name, applied_at) VALUES (?, strftime('%s','now'))`, name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		logging.Get(logging.CategoryStore).Info("applied migration %s", name)
	}
	return nil
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = maxBatchRows
	}
	var batches [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}
