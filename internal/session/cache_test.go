package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playlistpulse/pkg/contracts/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, ttl time.Duration, maxSize int) (*DatasetCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewDatasetCache(ttl, maxSize, time.Hour)
	cache.now = clock.Now
	t.Cleanup(cache.Stop)
	return cache, clock
}

func dataset(fingerprint string) *domain.Dataset {
	return &domain.Dataset{Fingerprint: fingerprint, Records: []domain.Record{{Title: fingerprint}}}
}

func TestDatasetCache_Lifecycle(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour, 10)

	_, found := cache.Lookup("s1", "fp-a")
	assert.False(t, found)

	report := &domain.IngestReport{TotalRows: 3}
	cache.Put("s1", dataset("fp-a"), report)

	entry, found := cache.Lookup("s1", "fp-a")
	require.True(t, found)
	assert.Equal(t, "fp-a", entry.Fingerprint)
	assert.Same(t, report, entry.Report)
	assert.Equal(t, 1, entry.HitCount)

	_, found = cache.Lookup("s1", "fp-b")
	assert.False(t, found, "different upload set is a miss")

	_, found = cache.Lookup("s2", "fp-a")
	assert.False(t, found, "entries are per session")

	stats := cache.GetStats()
	assert.Equal(t, 1, stats["entries"])
	assert.Equal(t, int64(1), stats["hit_count"])
	assert.Equal(t, int64(3), stats["miss_count"])
	assert.Equal(t, 0.25, stats["hit_ratio"])
}

func TestDatasetCache_OneEntryPerSession(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour, 10)

	cache.Put("s1", dataset("fp-a"), nil)
	cache.Put("s1", dataset("fp-b"), nil)

	assert.Equal(t, 1, cache.Len())
	_, found := cache.Lookup("s1", "fp-a")
	assert.False(t, found)

	entry, found := cache.Get("s1")
	require.True(t, found)
	assert.Equal(t, "fp-b", entry.Fingerprint)
}

func TestDatasetCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour, 10)

	cache.Put("s1", dataset("fp-a"), nil)
	cache.Invalidate("s1")

	_, found := cache.Get("s1")
	assert.False(t, found)
	cache.Invalidate("missing")
}

func TestDatasetCache_Expiry(t *testing.T) {
	cache, clock := newTestCache(t, 10*time.Minute, 10)

	cache.Put("s1", dataset("fp-a"), nil)
	clock.Advance(9 * time.Minute)
	_, found := cache.Get("s1")
	require.True(t, found)

	clock.Advance(9 * time.Minute)
	_, found = cache.Get("s1")
	assert.True(t, found, "access extends the idle timeout")

	clock.Advance(11 * time.Minute)
	_, found = cache.Get("s1")
	assert.False(t, found)
	assert.Equal(t, 0, cache.Len())
}

func TestDatasetCache_RemoveExpired(t *testing.T) {
	cache, clock := newTestCache(t, time.Minute, 10)

	cache.Put("s1", dataset("a"), nil)
	clock.Advance(30 * time.Second)
	cache.Put("s2", dataset("b"), nil)
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, cache.removeExpired())
	_, found := cache.Get("s2")
	assert.True(t, found)
}

func TestDatasetCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache, clock := newTestCache(t, time.Hour, 2)

	cache.Put("s1", dataset("a"), nil)
	clock.Advance(time.Second)
	cache.Put("s2", dataset("b"), nil)
	clock.Advance(time.Second)
	_, _ = cache.Get("s1")
	clock.Advance(time.Second)

	cache.Put("s3", dataset("c"), nil)

	assert.Equal(t, 2, cache.Len())
	_, found := cache.Get("s2")
	assert.False(t, found)
	_, found = cache.Get("s1")
	assert.True(t, found)

	cache.Put("s1", dataset("d"), nil)
	assert.Equal(t, 2, cache.Len(), "replacing an entry never evicts")
}

func TestDatasetCache_ZeroSize(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour, 0)

	entry := cache.Put("s1", dataset("a"), nil)
	require.NotNil(t, entry)
	assert.Equal(t, 0, cache.Len())
}

func TestDatasetCache_Concurrent(t *testing.T) {
	cache := NewDatasetCache(time.Hour, 50, time.Hour)
	defer cache.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i%5)
			fp := fmt.Sprintf("fp%d", i)
			cache.Put(id, dataset(fp), nil)
			cache.Lookup(id, fp)
			cache.Get(id)
			cache.GetStats()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, cache.Len())
}

func TestDatasetCache_StopIsIdempotent(t *testing.T) {
	cache := NewDatasetCache(time.Hour, 1, time.Millisecond)
	cache.Stop()
	cache.Stop()
}
