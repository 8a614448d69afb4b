// Package debounce suppresses repeat alerts for the same occurrence within
// a configured time window. State is bounded by an LRU so a long-running
// watch session cannot accumulate keys without limit.
package debounce

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxKeys bounds the number of tracked occurrence keys.
const DefaultMaxKeys = 4096

// =============================================================================
// Key
// =============================================================================

// Key identifies one place a rule matched.
type Key struct {
	File    string
	Line    int
	Pattern string
}

// =============================================================================
// Gate
// =============================================================================

// Gate admits or drops occurrences based on when the same key last passed.
// The first occurrence of a key always passes; repeats pass only once the
// window has elapsed. A zero window disables suppression entirely.
type Gate struct {
	window time.Duration

	mu     sync.Mutex
	recent *lru.Cache[Key, time.Time]
	now    func() time.Time
}

// NewGate creates a gate with the given suppression window. maxKeys bounds
// the tracked key set; values <= 0 fall back to DefaultMaxKeys.
func NewGate(window time.Duration, maxKeys int) *Gate {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	// lru.New only errors on a non-positive size.
	recent, _ := lru.New[Key, time.Time](maxKeys)

	return &Gate{
		window: window,
		recent: recent,
		now:    time.Now,
	}
}

// Allow reports whether an occurrence of key should produce a visible match
// and, when it does, records the pass. Dropped occurrences are discarded,
// never queued.
func (g *Gate) Allow(key Key) bool {
	if g.window <= 0 {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.recent.Get(key); ok && now.Sub(last) < g.window {
		return false
	}

	g.recent.Add(key, now)
	return true
}

// Len returns the number of tracked keys.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.recent.Len()
}

// Reset clears all suppression state. Used when a watch session restarts.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.recent.Purge()
}
