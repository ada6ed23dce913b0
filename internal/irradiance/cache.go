package irradiance

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/solar-engine/internal/model"
)

// DefaultTTL is how long a live profile stays fresh.
const DefaultTTL = 24 * time.Hour

// Cache stores live profiles by coordinate key. Implementations evict
// expired entries lazily on lookup and tolerate concurrent writers; the last
// write for a key wins.
type Cache interface {
	Get(ctx context.Context, key string) (model.IrradianceProfile, bool)
	Set(ctx context.Context, key string, p model.IrradianceProfile)
}

// Key rounds a coordinate to two decimals, roughly a 1 km cell.
func Key(lat, lng float64) string {
	return fmt.Sprintf("%.2f,%.2f", lat, lng)
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"maxEntries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hitRate"`
}

type memoryEntry struct {
	profile  model.IrradianceProfile
	storedAt time.Time
}

// MemoryCache is a process-local LRU cache with TTL expiry.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	order      []string // front=least recently used
	maxEntries int
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64

	now func() time.Time
}

// NewMemoryCache creates a cache holding at most maxEntries profiles for ttl.
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (model.IrradianceProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return model.IrradianceProfile{}, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses.Add(1)
		return model.IrradianceProfile{}, false
	}

	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return entry.profile, true
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, p model.IrradianceProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.removeFromOrder(key)
	} else {
		for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	c.entries[key] = memoryEntry{profile: p, storedAt: c.now()}
	c.order = append(c.order, key)
}

// Stats returns hit and occupancy counters.
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return CacheStats{
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    rate,
	}
}

func (c *MemoryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
