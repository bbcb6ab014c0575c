package insights

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// metadataCache is a small TTL cache with sliding-window extension for
// team/iteration/backlog metadata lookups. Dashboard refreshes re-issue
// identical metadata calls every few seconds; the tool servers behind them
// are slow, so repeated hits extend the entry instead of re-fetching.
type metadataCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	value       any
	expiration  time.Time
	accessCount int
	originalTTL time.Duration
}

const maxTTLExtensions = 6

func newMetadataCache() *metadataCache {
	return &metadataCache{entries: make(map[string]*cacheEntry)}
}

func (c *metadataCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if time.Now().After(entry.expiration) {
		delete(c.entries, key)
		return nil, false
	}

	// Sliding window extension, bounded so hot keys still refresh eventually.
	if entry.accessCount < maxTTLExtensions {
		entry.expiration = time.Now().Add(entry.originalTTL)
		entry.accessCount++
	}

	log.Debug().Str("key", key).Msg("Metadata cache hit")
	return entry.value, true
}

func (c *metadataCache) add(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{
		value:       value,
		expiration:  time.Now().Add(ttl),
		originalTTL: ttl,
		accessCount: 1,
	}
}
