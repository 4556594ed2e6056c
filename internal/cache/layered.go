package cache

import (
	"errors"
	"io"
	"time"
)

// LayeredCache fronts a persistent cache with a memory cache
type LayeredCache struct {
	memory  Cache
	backing Cache
}

// NewLayeredCache creates a new layered cache
func NewLayeredCache(memory, backing Cache) *LayeredCache {
	return &LayeredCache{memory: memory, backing: backing}
}

// Get checks memory first, then the backing cache
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	if val, found := c.backing.Get(key); found {
		// Promote to memory with its default TTL
		_ = c.memory.Set(key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, 0); err != nil {
		return err
	}
	return c.backing.Set(key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.memory.Delete(key), c.backing.Delete(key))
}

// Clear removes all values from both layers
func (c *LayeredCache) Clear() error {
	return errors.Join(c.memory.Clear(), c.backing.Clear())
}

// Flush persists the backing layer
func (c *LayeredCache) Flush() error {
	return c.backing.Flush()
}

// Close closes the backing layer if it holds a connection
func (c *LayeredCache) Close() error {
	if closer, ok := c.backing.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
