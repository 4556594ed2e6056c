package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/ppiankov/tenscan/internal/model"
)

func TestKey_Stable(t *testing.T) {
	a := Key("Заголовок", "Текст статьи")
	b := Key("Заголовок", "Текст статьи")
	if a != b {
		t.Errorf("Expected stable key, got %s and %s", a, b)
	}
	if !strings.HasPrefix(a, KeyPrefix) {
		t.Errorf("Expected prefix %s, got %s", KeyPrefix, a)
	}
	// The separator keeps field boundaries distinct
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Expected different keys for different title/content splits")
	}
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("Expected miss for unknown key")
	}

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, found := c.Get("k")
	if !found || string(val) != "v" {
		t.Errorf("Expected v, got %q (found=%v)", val, found)
	}

	_ = c.Delete("k")
	if _, found := c.Get("k"); found {
		t.Error("Expected miss after delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)
	_ = c.Set("short", []byte("v"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, found := c.Get("short"); found {
		t.Error("Expected entry to expire")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(0, time.Minute)
	_ = c.Set("a", []byte("1"), 0)
	_ = c.Set("b", []byte("2"), 0)
	_ = c.Clear()

	if c.Len() != 0 {
		t.Errorf("Expected empty cache after clear, got %d entries", c.Len())
	}
}

func TestFileCache_MissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")

	c, err := NewFileCache(path, time.Hour)
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", c.Len())
	}
}

func TestFileCache_FlushAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")

	c, err := NewFileCache(path, time.Hour)
	if err != nil {
		t.Fatalf("NewFileCache failed: %v", err)
	}
	_ = c.Set("a", []byte(`{"category":"other"}`), 0)
	_ = c.Set("b", []byte("2"), 0)
	_ = c.Delete("b")

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	reloaded, err := NewFileCache(path, time.Hour)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	val, found := reloaded.Get("a")
	if !found || string(val) != `{"category":"other"}` {
		t.Errorf("Expected persisted entry, got %q (found=%v)", val, found)
	}
	if _, found := reloaded.Get("b"); found {
		t.Error("Expected deleted entry to stay deleted")
	}
}

func TestFileCache_ExpiredEntriesDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c, _ := NewFileCache(path, time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }
	_ = c.Set("old", []byte("1"), time.Minute)
	_ = c.Set("fresh", []byte("2"), 0)

	now = now.Add(2 * time.Minute)
	if _, found := c.Get("old"); found {
		t.Error("Expected expired entry to miss")
	}

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Expected expired entry to be dropped on flush, got %d entries", c.Len())
	}
}

func TestFileCache_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileCache(path, time.Hour); err == nil {
		t.Error("Expected error for corrupt cache file")
	}
}

func TestFileCache_FlushWithoutChangesSkipsWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c, _ := NewFileCache(path, time.Hour)

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected no file to be written for a clean cache")
	}
}

func TestLayeredCache_PromotesBackingHits(t *testing.T) {
	memory := NewMemoryCache(time.Hour, time.Minute)
	backing, _ := NewFileCache(filepath.Join(t.TempDir(), "cache.json"), time.Hour)
	_ = backing.Set("k", []byte("v"), 0)

	layered := NewLayeredCache(memory, backing)
	val, found := layered.Get("k")
	if !found || string(val) != "v" {
		t.Fatalf("Expected backing hit, got %q (found=%v)", val, found)
	}
	if _, found := memory.Get("k"); !found {
		t.Error("Expected backing hit to be promoted to memory")
	}
}

func TestLayeredCache_WritesBothLayers(t *testing.T) {
	memory := NewMemoryCache(time.Hour, time.Minute)
	path := filepath.Join(t.TempDir(), "cache.json")
	backing, _ := NewFileCache(path, time.Hour)
	layered := NewLayeredCache(memory, backing)

	_ = layered.Set("k", []byte("v"), 0)
	if _, found := memory.Get("k"); !found {
		t.Error("Expected memory layer to hold value")
	}
	if _, found := backing.Get("k"); !found {
		t.Error("Expected backing layer to hold value")
	}

	if err := layered.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected flush to reach the backing file: %v", err)
	}

	_ = layered.Delete("k")
	if _, found := layered.Get("k"); found {
		t.Error("Expected delete to remove both layers")
	}
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(mr.Addr(), 0, time.Hour)
	if err != nil {
		t.Fatalf("NewRedisCache failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	key := Key("title", "content")
	if _, found := c.Get(key); found {
		t.Error("Expected miss before set")
	}

	if err := c.Set(key, []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, found := c.Get(key)
	if !found || string(val) != "v" {
		t.Errorf("Expected v, got %q (found=%v)", val, found)
	}

	mr.FastForward(2 * time.Hour)
	if _, found := c.Get(key); found {
		t.Error("Expected entry to expire with the default TTL")
	}
}

func TestRedisCache_ClearOnlyTouchesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	if err := mr.Set("unrelated", "keep"); err != nil {
		t.Fatal(err)
	}

	c, err := NewRedisCache("redis://"+mr.Addr()+"/0", 0, time.Hour)
	if err != nil {
		t.Fatalf("NewRedisCache with URL failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	_ = c.Set(Key("a", "1"), []byte("1"), 0)
	_ = c.Set(Key("b", "2"), []byte("2"), 0)

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, found := c.Get(Key("a", "1")); found {
		t.Error("Expected classification entries to be cleared")
	}
	if !mr.Exists("unrelated") {
		t.Error("Expected unrelated key to survive clear")
	}
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisCache(addr, 0, time.Hour); err == nil {
		t.Error("Expected error connecting to a closed server")
	}
}

func TestNew_Backends(t *testing.T) {
	dir := t.TempDir()

	c, err := New(model.CacheConfig{Backend: "memory", TTL: time.Hour})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("Expected *MemoryCache, got %T", c)
	}

	c, err = New(model.CacheConfig{Backend: "file", Path: filepath.Join(dir, "c.json"), TTL: time.Hour})
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	if _, ok := c.(*LayeredCache); !ok {
		t.Errorf("Expected *LayeredCache, got %T", c)
	}

	if _, err := New(model.CacheConfig{Backend: "memcached"}); err == nil {
		t.Error("Expected error for unknown backend")
	}
	if _, err := New(model.CacheConfig{Backend: "redis"}); err == nil {
		t.Error("Expected error for redis without address")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, _ := ExpandHome("~/.tenscan/cache.json")
	want := filepath.Join(home, ".tenscan/cache.json")
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	got, _ = ExpandHome("/tmp/cache.json")
	if got != "/tmp/cache.json" {
		t.Errorf("Expected absolute path unchanged, got %s", got)
	}
}
