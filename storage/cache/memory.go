package cache

import (
	"strings"
	"sync"
)

type memoryCache struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Cache = (*memoryCache)(nil)

// NewMemoryCache is the in-memory Cache used in tests and local dev.
func NewMemoryCache() Cache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, nil
}

func (c *memoryCache) Set(key string, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(val))
	copy(cp, val)
	c.data[key] = cp
	return nil
}

func (c *memoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) Keys(prefix string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var keys []string
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (c *memoryCache) Close() error { return nil }
