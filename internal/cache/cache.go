package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/tenscan/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error

	// Flush persists pending writes; a no-op for backends that write through
	Flush() error
}

// KeyPrefix namespaces classification entries
const KeyPrefix = "classify:v1:"

// Key derives a cache key from the article title and content
func Key(title, content string) string {
	hash := sha256.Sum256([]byte(title + "\x00" + content))
	return KeyPrefix + hex.EncodeToString(hash[:])
}

// New builds the configured cache. The memory layer always fronts the
// persistent backends so repeated lookups within a run stay local.
func New(cfg model.CacheConfig) (Cache, error) {
	memTTL := cfg.MemoryTTL
	if memTTL <= 0 {
		memTTL = time.Hour
	}

	switch strings.ToLower(cfg.Backend) {
	case "memory", "":
		return NewMemoryCache(cfg.TTL, 10*time.Minute), nil

	case "file", "disk":
		path, err := ExpandHome(cfg.Path)
		if err != nil {
			return nil, err
		}
		file, err := NewFileCache(path, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return NewLayeredCache(NewMemoryCache(memTTL, 10*time.Minute), file), nil

	case "redis":
		redisCache, err := NewRedisCache(cfg.RedisAddr, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return NewLayeredCache(NewMemoryCache(memTTL, 10*time.Minute), redisCache), nil

	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: memory, file, redis)", cfg.Backend)
	}
}

// ExpandHome resolves a leading ~ to the user's home directory
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
