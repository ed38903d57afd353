package cache

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/ocuweb/classpoints/core"
)

type badgerCache struct {
	db *badger.DB
}

var _ Cache = (*badgerCache)(nil)

// NewBadgerCache opens (or creates) the on-disk cache under dir.
func NewBadgerCache(dir string, logger core.Logger) (Cache, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil) // badger's own logger is too chatty for our purposes
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening badger cache at %s", dir)
	}
	logger.Info("local cache ready at " + dir)
	return &badgerCache{db: db}, nil
}

func (c *badgerCache) Get(key string) ([]byte, error) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cache get %q", key)
	}
	return val, nil
}

func (c *badgerCache) Set(key string, val []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
	return errors.Wrapf(err, "cache set %q", key)
}

func (c *badgerCache) Delete(key string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return errors.Wrapf(err, "cache delete %q", key)
}

func (c *badgerCache) Keys(prefix string) ([]string, error) {
	var keys []string
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, errors.Wrapf(err, "cache keys %q", prefix)
}

func (c *badgerCache) Close() error {
	return c.db.Close()
}
