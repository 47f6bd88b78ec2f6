// Package cache provides an in-memory TTL cache for classification results.
// Identical issue text within the TTL window reuses the prior result instead
// of spending another LLM call.
package cache

import (
	"sync"
	"time"

	"triagebot/internal/domain"
)

type entry struct {
	result    domain.ClassificationResult
	expiresAt time.Time
}

// TTLCache is safe for concurrent use. Expired entries are skipped on read
// and removed by Sweep, which runs on a schedule.
type TTLCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

func New(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *TTLCache) Get(key string) (domain.ClassificationResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return domain.ClassificationResult{}, false
	}
	return e.result, true
}

func (c *TTLCache) Put(key string, result domain.ClassificationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{result: result, expiresAt: c.now().Add(c.ttl)}
}

// Sweep drops expired entries and reports how many were removed.
func (c *TTLCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries including any not yet swept.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
