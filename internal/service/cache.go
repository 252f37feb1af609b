package service

import (
	"sync"
	"time"

	"github.com/whoamaiii/sensetrack/internal/models"
)

type cacheEntry struct {
	key       string
	results   models.AnalyticsResults
	expiresAt time.Time
}

// resultsCache is a TTL cache of computed analytics keyed by student.
// Each slot also remembers the insights task cache key it was computed
// under, so a change in the underlying data (which changes the key)
// misses even before the TTL expires.
type resultsCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	maxSize int
	now     func() time.Time
}

func newResultsCache(maxSize int, now func() time.Time) *resultsCache {
	if maxSize < 1 {
		maxSize = 50
	}
	return &resultsCache{
		entries: map[string]cacheEntry{},
		maxSize: maxSize,
		now:     now,
	}
}

func (c *resultsCache) get(studentID, key string) (models.AnalyticsResults, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[studentID]
	if !ok || entry.key != key || c.now().After(entry.expiresAt) {
		return models.AnalyticsResults{}, false
	}
	return entry.results, true
}

func (c *resultsCache) put(studentID, key string, results models.AnalyticsResults, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[studentID]; !exists && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}
	c.entries[studentID] = cacheEntry{
		key:       key,
		results:   results,
		expiresAt: c.now().Add(ttl),
	}
}

func (c *resultsCache) invalidate(studentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, studentID)
}

// evictLocked drops expired slots first, then the slot closest to expiry.
func (c *resultsCache) evictLocked() {
	now := c.now()
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}
	var oldest string
	var oldestAt time.Time
	for id, entry := range c.entries {
		if oldest == "" || entry.expiresAt.Before(oldestAt) {
			oldest = id
			oldestAt = entry.expiresAt
		}
	}
	delete(c.entries, oldest)
}
