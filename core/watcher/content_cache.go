package watcher

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/dgraph-io/ristretto"
)

// =============================================================================
// contentCache
// =============================================================================

// contentCache remembers the checksum of the last-processed content per
// path so that events that do not change a file (touch, metadata churn,
// editor double-writes that slipped past the settle window) skip the whole
// pipeline. It is consulted only under baseline diffing; otherwise an
// unchanged re-save must still reach the debounce gate. The cache is lossy:
// an evicted or not-yet-admitted entry just means the file is processed
// again, which is harmless.
type contentCache struct {
	cache *ristretto.Cache
}

// newContentCache creates the checksum cache.
func newContentCache() (*contentCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 14, // admission counters, ~16k tracked paths
		MaxCost:     1 << 12, // each entry costs 1; bounds tracked paths
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &contentCache{cache: cache}, nil
}

// Unchanged reports whether the content matches what was last processed for
// the path, and records the new checksum when it does not.
func (c *contentCache) Unchanged(path string, content []byte) bool {
	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])

	if previous, ok := c.cache.Get(path); ok {
		if prev, isString := previous.(string); isString && prev == digest {
			return true
		}
	}

	c.cache.Set(path, digest, 1)
	return false
}

// Close releases the cache's internal goroutines.
func (c *contentCache) Close() {
	c.cache.Close()
}
