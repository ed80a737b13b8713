package session

import (
	"sync"
	"time"

	"playlistpulse/pkg/contracts/domain"
)

// Entry is the dataset built for one session.
type Entry struct {
	Fingerprint string               `json:"fingerprint"`
	Dataset     *domain.Dataset      `json:"-"`
	Report      *domain.IngestReport `json:"report"`
	CachedAt    time.Time            `json:"cached_at"`
	AccessedAt  time.Time            `json:"accessed_at"`
	ExpiresAt   time.Time            `json:"expires_at"`
	HitCount    int                  `json:"hit_count"`
}

// DatasetCache maps session ids to their single Entry.
type DatasetCache struct {
	entries   map[string]Entry
	mutex     sync.RWMutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	now       func() time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewDatasetCache creates a cache and starts its cleanup goroutine, which
// runs every cleanupInterval until Stop is called.
func NewDatasetCache(ttl time.Duration, maxSize int, cleanupInterval time.Duration) *DatasetCache {
	cache := &DatasetCache{
		entries:  make(map[string]Entry),
		ttl:      ttl,
		maxSize:  maxSize,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	go cache.cleanup(cleanupInterval)

	return cache
}

// Lookup returns the session's entry when it was built from fingerprint.
// A different fingerprint or an expired entry is a miss.
func (c *DatasetCache) Lookup(sessionID, fingerprint string) (*Entry, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.live(sessionID)
	if !ok || entry.Fingerprint != fingerprint {
		c.missCount++
		return nil, false
	}

	c.hitCount++
	return c.touch(sessionID, entry), true
}

// Get returns the session's current entry, whatever it was built from.
func (c *DatasetCache) Get(sessionID string) (*Entry, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.live(sessionID)
	if !ok {
		c.missCount++
		return nil, false
	}

	c.hitCount++
	return c.touch(sessionID, entry), true
}

// Put replaces the session's entry.
func (c *DatasetCache) Put(sessionID string, ds *domain.Dataset, report *domain.IngestReport) *Entry {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	entry := Entry{
		Dataset:    ds,
		Report:     report,
		CachedAt:   now,
		AccessedAt: now,
		ExpiresAt:  now.Add(c.ttl),
	}
	if ds != nil {
		entry.Fingerprint = ds.Fingerprint
	}

	// Don't store anything if max size is 0
	if c.maxSize <= 0 {
		return &entry
	}

	if _, exists := c.entries[sessionID]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[sessionID] = entry
	return &entry
}

// Invalidate removes the session's entry.
func (c *DatasetCache) Invalidate(sessionID string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, sessionID)
}

// Len returns the number of cached sessions, expired ones included.
func (c *DatasetCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// GetStats returns cache statistics
func (c *DatasetCache) GetStats() map[string]interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	totalRequests := c.hitCount + c.missCount
	hitRatio := float64(0)
	if totalRequests > 0 {
		hitRatio = float64(c.hitCount) / float64(totalRequests)
	}

	return map[string]interface{}{
		"entries":     len(c.entries),
		"max_size":    c.maxSize,
		"hit_count":   c.hitCount,
		"miss_count":  c.missCount,
		"hit_ratio":   hitRatio,
		"ttl_seconds": c.ttl.Seconds(),
	}
}

// Stop gracefully stops the cache cleanup goroutine
func (c *DatasetCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

// live returns an unexpired entry, dropping it when expired. Callers hold
// the write lock.
func (c *DatasetCache) live(sessionID string) (Entry, bool) {
	entry, exists := c.entries[sessionID]
	if !exists {
		return Entry{}, false
	}
	if c.now().After(entry.ExpiresAt) {
		delete(c.entries, sessionID)
		return Entry{}, false
	}
	return entry, true
}

func (c *DatasetCache) touch(sessionID string, entry Entry) *Entry {
	now := c.now()
	entry.HitCount++
	entry.AccessedAt = now
	entry.ExpiresAt = now.Add(c.ttl)
	c.entries[sessionID] = entry
	return &entry
}

func (c *DatasetCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.AccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.AccessedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *DatasetCache) removeExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *DatasetCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopChan:
			return
		}
	}
}
