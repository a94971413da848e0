package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/amirasaad/sandbank/pkg/cache"
)

type cacheEntry struct {
	value     []byte
	counter   int64
	expiresAt time.Time
}

// MemoryCache implements cache.Store in process memory.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]cacheEntry
	now   func() time.Time
}

// NewMemoryCache creates an empty in-memory cache. Expired entries are
// dropped lazily on access and on Set.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]cacheEntry),
		now:   time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, cache.ErrMiss
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, cache.ErrMiss
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
		}
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.items[key] = cacheEntry{value: stored, expiresAt: now.Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *MemoryCache) Take(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	delete(c.items, key)
	if !c.now().Before(entry.expiresAt) {
		return nil, cache.ErrMiss
	}
	return entry.value, nil
}

func (c *MemoryCache) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	entry, ok := c.items[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = cacheEntry{expiresAt: now.Add(ttl)}
	}
	entry.counter++
	entry.value = []byte(strconv.FormatInt(entry.counter, 10))
	c.items[key] = entry
	return entry.counter, nil
}

var _ cache.Store = (*MemoryCache)(nil)
