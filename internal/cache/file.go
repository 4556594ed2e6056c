package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileCache keeps entries in memory and persists them to a single JSON file.
// The file is loaded once at construction; writes reach disk on Flush.
type FileCache struct {
	path string
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
	dirty   bool
}

type cacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

func (e cacheEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// NewFileCache loads path (a missing file is an empty cache)
func NewFileCache(path string, ttl time.Duration) (*FileCache, error) {
	c := &FileCache{
		path:    path,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *FileCache) load() error {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries map[string]cacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file %s: %w", c.path, err)
	}

	now := c.now()
	for k, e := range entries {
		if !e.expired(now) {
			c.entries[k] = e
		}
	}
	return nil
}

// Get retrieves an unexpired value
func (c *FileCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.expired(c.now()) {
		return nil, false
	}
	return entry.Data, true
}

// Set stores a value; a zero ttl uses the cache default
func (c *FileCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	entry := cacheEntry{Data: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.ExpiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.dirty = true
	c.mu.Unlock()
	return nil
}

// Delete removes a value
func (c *FileCache) Delete(key string) error {
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.dirty = true
	}
	c.mu.Unlock()
	return nil
}

// Clear removes all values
func (c *FileCache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.dirty = true
	c.mu.Unlock()
	return nil
}

// Flush writes unexpired entries to disk atomically if anything changed
func (c *FileCache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	now := c.now()
	live := make(map[string]cacheEntry, len(c.entries))
	for k, e := range c.entries {
		if !e.expired(now) {
			live[k] = e
		}
	}

	data, err := json.Marshal(live)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}

	c.entries = live
	c.dirty = false
	return nil
}

// Len returns the number of stored entries
func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
