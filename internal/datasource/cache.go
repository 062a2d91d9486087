package datasource

import (
	"sync"
	"time"

	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

// quoteCache is a small TTL cache for realtime quotes so a burst of agents
// analyzing the same symbol does not hammer the providers.
type quoteCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	maxSize int
	entries map[string]cacheEntry
}

type cacheEntry struct {
	quote     *models.Quote
	expiresAt time.Time
}

func newQuoteCache(ttl time.Duration, maxSize int) *quoteCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &quoteCache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]cacheEntry),
	}
}

func (c *quoteCache) get(symbol string) (*models.Quote, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.quote, true
}

func (c *quoteCache) set(symbol string, quote *models.Quote) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[symbol] = cacheEntry{quote: quote, expiresAt: time.Now().Add(c.ttl)}
}

// evictOldest drops the entry closest to expiry. Called with the lock held.
func (c *quoteCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
