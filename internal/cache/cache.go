// Package cache provides generic in-memory caches keyed by string.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
)

// Cache is a generic cache implementation. Keys are hashed before use so callers can pass keys of arbitrary length.
type Cache[V any] struct {
	Cache map[string]V
	Mutex *sync.Mutex
	Name  string
}

// NewCache creates a new, empty cache with the given name.
func NewCache[V any](name string) *Cache[V] {
	return &Cache[V]{
		Cache: make(map[string]V),
		Mutex: &sync.Mutex{},
		Name:  name,
	}
}

// Get a value from the cache. The sha256 hash of the key is used to have fixed length keys and avoid collisions
// between raw keys containing delimiter characters.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()

	keyHash := sha256.Sum256([]byte(key))
	cacheKey := fmt.Sprintf("%x", keyHash)

	value, found := c.Cache[cacheKey]

	return value, found
}

// Put a value into the cache.
func (c *Cache[V]) Put(ctx context.Context, key string, value V) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()

	keyHash := sha256.Sum256([]byte(key))
	cacheKey := fmt.Sprintf("%x", keyHash)

	c.Cache[cacheKey] = value
}
