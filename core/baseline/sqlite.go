package baseline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// =============================================================================
// Schema
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS baseline_entries (
	file    TEXT NOT NULL,
	line    INTEGER NOT NULL,
	pattern TEXT NOT NULL,
	hash    TEXT NOT NULL,
	PRIMARY KEY (file, line, pattern, hash)
);

CREATE TABLE IF NOT EXISTS baseline_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const metaUpdatedAt = "updated_at"

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore persists the baseline in a SQLite database. Classification
// runs against an in-memory copy loaded once at session start; Record
// updates both the database and the copy, so rapid repeated saves of the
// same content never need a reload.
type SQLiteStore struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	db      *sql.DB
	entries map[Entry]struct{}
	loaded  bool
}

// NewSQLiteStore creates a store backed by the database at path. The file
// and its parent directory are created lazily on first Record.
func NewSQLiteStore(path string, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{
		path:    path,
		logger:  logger,
		entries: make(map[Entry]struct{}),
	}
}

// =============================================================================
// Load
// =============================================================================

// Load reads all persisted entries into memory. A missing, unreadable, or
// corrupt database is treated as baseline-absent: the error is logged and
// every subsequent occurrence classifies as new.
func (s *SQLiteStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[Entry]struct{})
	s.loaded = true

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}

	if err := s.openLocked(); err != nil {
		s.logger.Warn("baseline unreadable, treating as absent", "path", s.path, "error", err)
		return nil
	}

	if err := s.loadEntriesLocked(ctx); err != nil {
		s.logger.Warn("baseline corrupt, treating as absent", "path", s.path, "error", err)
		s.entries = make(map[Entry]struct{})
		return nil
	}

	return nil
}

// openLocked opens the database and ensures the schema exists.
// Callers must hold s.mu.
func (s *SQLiteStore) openLocked() error {
	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create baseline directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("open baseline database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("apply baseline schema: %w", err)
	}

	s.db = db
	return nil
}

// loadEntriesLocked populates the in-memory copy from the database.
// Callers must hold s.mu.
func (s *SQLiteStore) loadEntriesLocked(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT file, line, pattern, hash FROM baseline_entries`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.File, &entry.Line, &entry.Pattern, &entry.Hash); err != nil {
			return err
		}
		s.entries[entry] = struct{}{}
	}

	return rows.Err()
}

// =============================================================================
// Classification
// =============================================================================

// IsNew reports whether the entry is absent from the loaded baseline.
// Before Load has run there is no baseline, so everything is new.
func (s *SQLiteStore) IsNew(entry Entry) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return true
	}
	_, known := s.entries[entry]
	return !known
}

// =============================================================================
// Record
// =============================================================================

// Record persists entries and merges them into the in-memory copy.
// Already-present entries are ignored (INSERT OR IGNORE), keeping the
// operation idempotent. The baseline timestamp is refreshed on every call
// that carries entries.
func (s *SQLiteStore) Record(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin baseline transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertEntries(ctx, tx, entries); err != nil {
		return err
	}
	if err := touchTimestamp(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit baseline: %w", err)
	}

	for _, entry := range entries {
		s.entries[entry] = struct{}{}
	}
	return nil
}

// insertEntries writes entries within a transaction, skipping duplicates.
func insertEntries(ctx context.Context, tx *sql.Tx, entries []Entry) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO baseline_entries (file, line, pattern, hash) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare baseline insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx, entry.File, entry.Line, entry.Pattern, entry.Hash); err != nil {
			return fmt.Errorf("insert baseline entry: %w", err)
		}
	}
	return nil
}

// touchTimestamp refreshes the baseline's updated-at marker.
func touchTimestamp(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO baseline_meta (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		metaUpdatedAt, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("update baseline timestamp: %w", err)
	}
	return nil
}

// =============================================================================
// Introspection
// =============================================================================

// Count returns the number of entries in the loaded baseline.
func (s *SQLiteStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// UpdatedAt returns the persisted baseline timestamp, or the zero time when
// no baseline has been recorded.
func (s *SQLiteStore) UpdatedAt(ctx context.Context) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return time.Time{}
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM baseline_meta WHERE key = ?`, metaUpdatedAt).Scan(&value)
	if err != nil {
		return time.Time{}
	}

	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
