package geocode

import (
	"container/list"
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxEntries bounds the memo when no size is configured.
const DefaultMaxEntries = 10000

// cacheKey returns the SHA-256 hex of the normalized query.
func cacheKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

type cachedResult struct {
	key      string
	result   Result
	cachedAt time.Time
}

// CachedClient memoizes successful lookups in process memory, holding at
// most maxEntries results and evicting the least recently used. Failures are
// never cached so a transient outage does not pin an address to a miss.
type CachedClient struct {
	next       Client
	ttl        time.Duration
	maxEntries int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front=most recently used
	now     func() time.Time
}

// NewCachedClient wraps next with a bounded TTL cache.
func NewCachedClient(next Client, ttl time.Duration, maxEntries int) *CachedClient {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &CachedClient{
		next:       next,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

// Geocode implements Client.
func (c *CachedClient) Geocode(ctx context.Context, query string) (*Result, error) {
	key := cacheKey(query)
	if r, ok := c.lookup(key); ok {
		zap.L().Debug("geocode cache hit", zap.String("key", key[:12]))
		return &r, nil
	}

	result, err := c.next.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}
	c.store(key, *result)
	return result, nil
}

// lookup returns a fresh entry, dropping it when expired.
func (c *CachedClient) lookup(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	entry := el.Value.(*cachedResult)
	if c.now().Sub(entry.cachedAt) >= c.ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		return Result{}, false
	}
	c.order.MoveToFront(el)
	return entry.result, true
}

func (c *CachedClient) store(key string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value = &cachedResult{key: key, result: r, cachedAt: c.now()}
		c.order.MoveToFront(el)
		return
	}
	for len(c.entries) >= c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cachedResult).key)
	}
	c.entries[key] = c.order.PushFront(&cachedResult{key: key, result: r, cachedAt: c.now()})
}

// Len returns the number of cached entries.
func (c *CachedClient) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
