package vault

import "time"

// cacheEntry tracks content plus the timestamps driving both eviction
// policies: storedAt for the TTL, lastAccess for capacity pressure.
type cacheEntry struct {
	content    string
	storedAt   time.Time
	lastAccess time.Time
}

// ContentCache is a bounded, time-expiring cache of recently read text
// content keyed by absolute path. Capacity and TTL are enforced
// independently: an entry can be evicted early by pressure or age out
// under light load. Not safe for concurrent use on its own: the owning
// FileStore's mutex guards all access.
type ContentCache struct {
	entries  map[string]*cacheEntry
	gens     map[string]uint64 // per-path invalidation counter, monotonic
	capacity int
	ttl      time.Duration
	hits     int64
	misses   int64
	now      func() time.Time // injectable for tests
}

// NewContentCache creates a cache holding up to capacity entries, each
// valid for ttl after insertion.
func NewContentCache(capacity int, ttl time.Duration) *ContentCache {
	return &ContentCache{
		entries:  make(map[string]*cacheEntry),
		gens:     make(map[string]uint64),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the cached content for path if present and younger than the
// TTL. Expired entries are evicted on access. A hit refreshes the entry's
// last-access time.
func (c *ContentCache) Get(path string) (string, bool) {
	e, ok := c.entries[path]
	if !ok {
		c.misses++
		return "", false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, path)
		c.misses++
		return "", false
	}
	e.lastAccess = c.now()
	c.hits++
	return e.content, true
}

// Put inserts content for path, evicting the single entry with the oldest
// last-access time if the cache is full.
func (c *ContentCache) Put(path, content string) {
	if c.capacity <= 0 {
		return
	}
	if _, ok := c.entries[path]; !ok && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	now := c.now()
	c.entries[path] = &cacheEntry{content: content, storedAt: now, lastAccess: now}
}

// Invalidate removes path from the cache and advances its generation.
// Every mutation of a path must call this so the cache never serves
// stale content.
func (c *ContentCache) Invalidate(path string) {
	delete(c.entries, path)
	c.gens[path]++
}

// Generation returns the invalidation counter for path. A reader that
// releases the lock to do disk I/O records the generation first and
// declines to Put if it moved, so content read before a write can never
// re-enter the cache after it.
func (c *ContentCache) Generation(path string) uint64 {
	return c.gens[path]
}

// Contains reports whether path has a live, unexpired entry. Unlike Get
// it does not refresh the entry or count toward the hit rate.
func (c *ContentCache) Contains(path string) bool {
	e, ok := c.entries[path]
	return ok && c.now().Sub(e.storedAt) < c.ttl
}

// Len returns the current number of entries.
func (c *ContentCache) Len() int {
	return len(c.entries)
}

// Capacity returns the configured maximum entry count.
func (c *ContentCache) Capacity() int {
	return c.capacity
}

// HitRate estimates the fraction of lookups served from the cache.
func (c *ContentCache) HitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

func (c *ContentCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.lastAccess.Before(oldest) {
			oldestKey = k
			oldest = e.lastAccess
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
