package marketdata

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Cache is a file-based TTL cache for price-source responses. Candle history
// is immutable once the session closes, so a generous TTL is safe and keeps
// repeat coach runs off the upstream APIs.
type Cache struct {
	dir string
	ttl time.Duration
	mu  sync.RWMutex
}

type cacheEntry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func NewCache(dir string, ttl time.Duration) *Cache {
	if dir == "" {
		dir = "cache/marketdata"
	}
	os.MkdirAll(dir, 0755)
	return &Cache{dir: dir, ttl: ttl}
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path := c.filePath(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > c.ttl {
		os.Remove(path)
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	return entry.Data, true
}

func (c *Cache) Set(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := cacheEntry{Key: key, Data: data, Timestamp: time.Now()}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(c.filePath(key), b, 0644)
}

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
	return nil
}

func (c *Cache) filePath(key string) string {
	hash := fmt.Sprintf("%x", md5.Sum([]byte(key)))
	return filepath.Join(c.dir, hash+".json")
}
