// Package baseline records previously-observed pattern occurrences so the
// watcher only alerts on new ones. An occurrence is identified by the tuple
// (file, line, pattern, content hash); the hash covers the trimmed line text,
// so re-indentation does not invalidate an entry but any content edit does.
package baseline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// Entry
// =============================================================================

// Entry is the persisted identity of one observed occurrence.
type Entry struct {
	// File is the path relative to the watch root.
	File string `json:"file"`

	// Line is the 1-based line number.
	Line int `json:"line"`

	// Pattern is the name of the rule that matched.
	Pattern string `json:"pattern"`

	// Hash is the SHA-256 hex digest of the trimmed line text.
	Hash string `json:"hash"`
}

// HashLine computes the content hash for a line of text. Leading and
// trailing whitespace is trimmed first so indentation changes do not
// spuriously create new entries.
func HashLine(line string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(line)))
	return hex.EncodeToString(sum[:])
}

// =============================================================================
// Store
// =============================================================================

// Store classifies occurrences as new or known and persists new ones.
// Implementations must tolerate IsNew being called before Load; with no
// baseline loaded every occurrence is new.
type Store interface {
	// Load reads the persisted baseline into memory. An absent or corrupt
	// baseline is not an error: the store behaves as if empty.
	Load(ctx context.Context) error

	// IsNew reports whether the entry is absent from the baseline.
	IsNew(entry Entry) bool

	// Record appends entries to the baseline and refreshes its timestamp.
	// Recording an already-present entry is a no-op.
	Record(ctx context.Context, entries []Entry) error

	// Count returns the number of recorded entries.
	Count() int

	// Close releases any underlying resources.
	Close() error
}

// =============================================================================
// MemoryStore
// =============================================================================

// MemoryStore keeps the baseline entirely in process memory. It backs
// baseline-disabled sessions and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[Entry]struct{}
	updatedAt time.Time
}

// NewMemoryStore creates an empty in-memory baseline store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Entry]struct{})}
}

// Load is a no-op for the in-memory store.
func (s *MemoryStore) Load(ctx context.Context) error {
	return nil
}

// IsNew reports whether the entry has not been recorded.
func (s *MemoryStore) IsNew(entry Entry) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, known := s.entries[entry]
	return !known
}

// Record adds entries, ignoring ones already present.
func (s *MemoryStore) Record(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		s.entries[entry] = struct{}{}
	}
	s.updatedAt = time.Now()
	return nil
}

// Count returns the number of recorded entries.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// UpdatedAt returns when the baseline was last modified.
func (s *MemoryStore) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.updatedAt
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
