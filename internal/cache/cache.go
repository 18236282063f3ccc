package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is an optional get/put/delete accelerator with per-entry TTL.
// Callers must behave identically when every Get misses; it is never a
// source of truth.
type Cache interface {
	Get(key string) (string, bool)
	Set(key string, value string, ttl time.Duration)
	Delete(key string)
}

// memoryCache backs Cache with an in-process TTL store
type memoryCache struct {
	store *gocache.Cache
}

// New creates an in-memory cache that evicts expired entries in the
// background.
func New(defaultTTL time.Duration) Cache {
	return &memoryCache{
		store: gocache.New(defaultTTL, 2*defaultTTL),
	}
}

func (c *memoryCache) Get(key string) (string, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (c *memoryCache) Set(key string, value string, ttl time.Duration) {
	c.store.Set(key, value, ttl)
}

func (c *memoryCache) Delete(key string) {
	c.store.Delete(key)
}

// Nop returns a cache that never stores anything. Useful in tests and
// when running without the accelerator.
func Nop() Cache {
	return nopCache{}
}

type nopCache struct{}

func (nopCache) Get(string) (string, bool)         { return "", false }
func (nopCache) Set(string, string, time.Duration) {}
func (nopCache) Delete(string)                     {}
