package fetch

import (
	gocache "github.com/patrickmn/go-cache"
)

// Cache stores fetched content keyed by URL for the lifetime of a run.
// There is no eviction and no invalidation; callers that care about
// staleness create a fresh fetcher (and cache) per run.
type Cache interface {
	Get(url string) (string, bool)
	Put(url string, content string)
	Clear()
}

// memoryCache is the production Cache, backed by go-cache with no expiration.
// Safe for concurrent use; last writer wins on a given URL.
type memoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache creates a run-lifetime in-memory content cache.
func NewMemoryCache() Cache {
	return &memoryCache{
		c: gocache.New(gocache.NoExpiration, 0),
	}
}

func (m *memoryCache) Get(url string) (string, bool) {
	v, ok := m.c.Get(url)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (m *memoryCache) Put(url string, content string) {
	m.c.Set(url, content, gocache.NoExpiration)
}

func (m *memoryCache) Clear() {
	m.c.Flush()
}
