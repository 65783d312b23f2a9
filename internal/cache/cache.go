// Package cache holds rendered-data lookups for a bounded time so the site
// does not query upstream services on every request.
//
// Entries are kept in a fixed-size LRU and considered fresh for the TTL.
// Concurrent misses on the same key share a single load. When a reload fails
// and a stale value exists, the stale value is served instead of the error.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/golang/groupcache/singleflight"
)

// LoadTimeout bounds a shared load. Loads outlive the cancellation of the
// request that started them because other requests may be waiting on them.
const LoadTimeout = 30 * time.Second

// Loader produces the value for a key on a miss.
type Loader func(ctx context.Context) (any, error)

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
	Stale   int64
	Errors  int64
}

type entry struct {
	value    any
	storedAt time.Time
}

// Cache is a TTL cache safe for concurrent use.
type Cache struct {
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time
	group       singleflight.Group

	mu    sync.Mutex
	items *lru.Cache
	keys  map[string]struct{}
	stats Stats
}

// New returns a cache holding at most maxEntries values for ttl each. A
// non-positive ttl disables caching but still collapses concurrent loads.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	c := &Cache{
		ttl:         ttl,
		loadTimeout: LoadTimeout,
		now:         time.Now,
		items:       lru.New(maxEntries),
		keys:        make(map[string]struct{}),
	}
	c.items.OnEvicted = func(key lru.Key, _ any) {
		delete(c.keys, key.(string))
	}
	return c
}

// Get returns the cached value for key, calling load when it is missing or
// older than the TTL.
func (c *Cache) Get(ctx context.Context, key string, load Loader) (any, error) {
	c.mu.Lock()
	cached, found := c.lookup(key)
	if found && c.fresh(cached) {
		c.stats.Hits++
		c.mu.Unlock()
		return cached.value, nil
	}
	c.stats.Misses++
	c.mu.Unlock()

	value, err := c.group.Do(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		loaded, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.items.Add(key, &entry{value: loaded, storedAt: c.now()})
		c.keys[key] = struct{}{}
		c.mu.Unlock()
		return loaded, nil
	})
	if err == nil {
		return value, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Errors++
	if found {
		c.stats.Stale++
		return cached.value, nil
	}
	return nil, err
}

// Purge drops every key starting with prefix and returns how many were removed.
func (c *Cache) Purge(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []string
	for key := range c.keys {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	for _, key := range matched {
		c.items.Remove(key)
	}
	return len(matched)
}

// PurgeAll empties the cache.
func (c *Cache) PurgeAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.items.Len()
	c.items.Clear()
	c.keys = make(map[string]struct{})
	return n
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.Entries = c.items.Len()
	return stats
}

func (c *Cache) lookup(key string) (*entry, bool) {
	raw, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	return raw.(*entry), true
}

func (c *Cache) fresh(e *entry) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) < c.ttl
}

// Fetch is a typed wrapper around Cache.Get.
func Fetch[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return load(ctx)
	}
	value, err := c.Get(ctx, key, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("cache: key %q holds %T", key, value)
	}
	return typed, nil
}
