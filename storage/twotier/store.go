// Package twotier wraps a remote student.Gateway with the local cache so the
// class keeps working through remote hiccups. Reads prefer the remote copy
// and fall back to the cache; writes land in the cache immediately and are
// pushed out on a debounce timer.
package twotier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ocuweb/classpoints/core"
	"github.com/ocuweb/classpoints/core/student"
	"github.com/ocuweb/classpoints/storage/cache"
)

const (
	configKey    = "config"
	recordPrefix = "record:"
)

type Store struct {
	remote student.Gateway
	cache  cache.Cache
	logger core.Logger
	saver  *saver
}

var _ student.Gateway = (*Store)(nil)

func NewStore(remote student.Gateway, c cache.Cache, logger core.Logger, conf *core.Config) *Store {
	st := &Store{
		remote: remote,
		cache:  c,
		logger: logger,
	}
	st.saver = newSaver(st, conf.SyncDebounce, conf.SaveTimeout)
	return st
}

func (st *Store) LoadConfig(ctx context.Context) (student.ClassConfig, error) {
	cfg, err := st.remote.LoadConfig(ctx)
	if err == nil {
		if raw, merr := json.Marshal(cfg); merr == nil {
			if cerr := st.cache.Set(configKey, raw); cerr != nil {
				st.logger.Warn(fmt.Sprintf("caching class config: %v", cerr), cerr)
			}
		}
		return cfg, nil
	}

	st.logger.Warn(fmt.Sprintf("remote class config unavailable, trying cache: %v", err), err)
	raw, cerr := st.cache.Get(configKey)
	if cerr != nil {
		return student.ClassConfig{}, err // surface the remote failure
	}
	var cached student.ClassConfig
	if uerr := json.Unmarshal(raw, &cached); uerr != nil {
		return student.ClassConfig{}, errors.Wrap(uerr, "decoding cached class config")
	}
	return cached, nil
}

func (st *Store) LoadRecord(ctx context.Context, handle string) (*student.Progress, error) {
	// a pending local write is newer than anything remote
	if p, ok := st.saver.pending(handle); ok {
		return p, nil
	}

	p, err := st.remote.LoadRecord(ctx, handle)
	switch errors.Cause(err) {
	case nil:
		st.cacheRecord(handle, p)
		return p, nil
	case student.ErrNotFound:
		st.dropCached(handle)
		return nil, err
	}

	st.logger.Warn(fmt.Sprintf("remote record %q unavailable, trying cache: %v", handle, err), err)
	raw, cerr := st.cache.Get(recordPrefix + handle)
	if cerr != nil {
		return nil, err
	}
	var cached student.Progress
	if uerr := json.Unmarshal(raw, &cached); uerr != nil {
		return nil, errors.Wrapf(uerr, "decoding cached record %q", handle)
	}
	return &cached, nil
}

func (st *Store) CreateRecord(ctx context.Context, studentID string, p *student.Progress) (string, error) {
	handle, err := st.remote.CreateRecord(ctx, studentID, p)
	if err != nil {
		return "", err
	}
	st.cacheRecord(handle, p)
	return handle, nil
}

// SaveRecord always succeeds locally; the remote write happens on the
// debounce timer (or at Flush).
func (st *Store) SaveRecord(ctx context.Context, handle string, p *student.Progress) error {
	st.cacheRecord(handle, p)
	st.saver.schedule(handle, p)
	return nil
}

func (st *Store) DeleteRecord(ctx context.Context, studentID string) error {
	if err := st.remote.DeleteRecord(ctx, studentID); err != nil {
		return err
	}
	// the handle is gone remotely; drop any cached copies under it
	keys, err := st.cache.Keys(recordPrefix)
	if err == nil {
		for _, k := range keys {
			if p := st.cachedRecord(k); p != nil && p.StudentID == studentID {
				_ = st.cache.Delete(k)
				st.saver.discard(k[len(recordPrefix):])
			}
		}
	}
	return nil
}

func (st *Store) ListAllRecords(ctx context.Context) (map[string]*student.Progress, error) {
	all, err := st.remote.ListAllRecords(ctx)
	if err == nil {
		return all, nil
	}

	st.logger.Warn(fmt.Sprintf("remote listing unavailable, trying cache: %v", err), err)
	cfg, cerr := st.cache.Get(configKey)
	if cerr != nil {
		return nil, err
	}
	var cached student.ClassConfig
	if uerr := json.Unmarshal(cfg, &cached); uerr != nil {
		return nil, err
	}
	out := make(map[string]*student.Progress, len(cached.Students))
	for id, handle := range cached.Students {
		if p, ok := st.saver.pending(handle); ok {
			out[id] = p
			continue
		}
		if p := st.cachedRecord(recordPrefix + handle); p != nil {
			out[id] = p
		}
	}
	return out, nil
}

// Flush pushes all pending writes to the remote store now.
func (st *Store) Flush(ctx context.Context) error {
	return st.saver.flush(ctx)
}

// Close flushes pending writes then closes the cache.
func (st *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), st.saver.saveTimeout)
	defer cancel()
	if err := st.saver.flush(ctx); err != nil {
		st.logger.Error(fmt.Sprintf("flushing pending saves on close: %v", err), err)
	}
	st.saver.stop()
	return st.cache.Close()
}

func (st *Store) cacheRecord(handle string, p *student.Progress) {
	raw, err := json.Marshal(p)
	if err != nil {
		st.logger.Warn(fmt.Sprintf("encoding record %q for cache: %v", handle, err), err)
		return
	}
	if err := st.cache.Set(recordPrefix+handle, raw); err != nil {
		st.logger.Warn(fmt.Sprintf("caching record %q: %v", handle, err), err)
	}
}

func (st *Store) cachedRecord(key string) *student.Progress {
	raw, err := st.cache.Get(key)
	if err != nil {
		return nil
	}
	var p student.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	return &p
}

func (st *Store) dropCached(handle string) {
	_ = st.cache.Delete(recordPrefix + handle)
}
