package insights

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const defaultChartCacheEntries = 256

// RenderCache memoizes rendered chart HTML between page loads.
type RenderCache interface {
	GetOrRender(key string, render func() (string, error)) (string, error)
}

// ChartCache keeps rendered chart HTML for a fixed TTL. It holds at most
// limit entries; when full, the entry closest to expiry is evicted.
type ChartCache struct {
	mu     sync.Mutex
	ttl    time.Duration
	limit  int
	now    func() time.Time
	charts map[string]chartEntry
}

type chartEntry struct {
	html     string
	deadline time.Time
}

// NewChartCache builds a cache; a ttl <= 0 disables caching.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{
		ttl:    ttl,
		limit:  defaultChartCacheEntries,
		now:    time.Now,
		charts: make(map[string]chartEntry),
	}
}

// GetOrRender serves key from the cache, rendering and storing it on a miss.
// Render errors are never cached.
func (c *ChartCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	if c == nil || c.ttl <= 0 {
		return render()
	}
	if html, ok := c.lookup(key); ok {
		return html, nil
	}
	html, err := render()
	if err != nil {
		return "", err
	}
	c.store(key, html)
	return html, nil
}

// Len reports the number of stored entries, expired ones included until swept.
func (c *ChartCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.charts)
}

func (c *ChartCache) lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.charts[key]
	if !ok {
		return "", false
	}
	if !c.now().Before(entry.deadline) {
		delete(c.charts, key)
		return "", false
	}
	return entry.html, true
}

func (c *ChartCache) store(key, html string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, exists := c.charts[key]; !exists && len(c.charts) >= c.limit {
		c.evictLocked(now)
	}
	c.charts[key] = chartEntry{html: html, deadline: now.Add(c.ttl)}
}

// evictLocked drops expired entries, or the soonest-to-expire one when none are.
func (c *ChartCache) evictLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.charts {
		if !now.Before(entry.deadline) {
			delete(c.charts, key)
			continue
		}
		if oldestKey == "" || entry.deadline.Before(oldest) {
			oldestKey, oldest = key, entry.deadline
		}
	}
	if len(c.charts) >= c.limit && oldestKey != "" {
		delete(c.charts, oldestKey)
	}
}

// seriesHash fingerprints chart input so identical series share a cache slot.
func seriesHash(series any) string {
	b, err := json.Marshal(series)
	if err != nil {
		return "unhashable"
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:12])
}
