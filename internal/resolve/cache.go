package resolve

import (
	"fmt"
	"sync"
	"time"

	"github.com/thermoflow/thermoflow/internal/record"
)

// ttlCache is an in-memory read-through cache for resolved compound
// data, keyed by (formula, range). Entries are populated atomically
// under the write lock, so readers never observe a partial entry.
// Expiry is lazy: expired entries read as misses and are overwritten by
// the next population.
type ttlCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	compound *Compound
	expires  time.Time
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(formula string, rng record.TRange) string {
	return fmt.Sprintf("%s|%.4f|%.4f", formula, rng.Min, rng.Max)
}

func (c *ttlCache) get(key string) (*Compound, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.compound, true
}

func (c *ttlCache) set(key string, compound *Compound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{compound: compound, expires: c.now().Add(c.ttl)}
}
