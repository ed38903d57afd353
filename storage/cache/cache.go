// Package cache provides the local key-value tier that backs the two-tier
// record store: a Badger database on disk, or an in-memory map for tests.
package cache

import (
	"github.com/pkg/errors"
)

// ErrCacheMiss means the key has never been cached (or has been evicted).
var ErrCacheMiss = errors.New("cache miss")

// Cache is a small byte-oriented KV store.
type Cache interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
	Close() error
}
