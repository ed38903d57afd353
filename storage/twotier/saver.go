package twotier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ocuweb/classpoints/core/student"
)

// saver collects dirty records and writes them to the remote store once
// activity settles (or when flushed explicitly). Rapid-fire saves from a
// student clicking through lectures collapse into a single remote write.
type saver struct {
	st          *Store
	debounce    time.Duration
	saveTimeout time.Duration

	mu    sync.Mutex
	dirty map[string][]byte // handle -> JSON snapshot at schedule time
	timer *time.Timer
}

func newSaver(st *Store, debounce, saveTimeout time.Duration) *saver {
	return &saver{
		st:          st,
		debounce:    debounce,
		saveTimeout: saveTimeout,
		dirty:       make(map[string][]byte),
	}
}

// schedule snapshots the record and (re)arms the debounce timer.
func (s *saver) schedule(handle string, p *student.Progress) {
	raw, err := json.Marshal(p)
	if err != nil {
		s.st.logger.Warn(fmt.Sprintf("encoding record %q for deferred save: %v", handle, err), err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[handle] = raw
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.fire)
}

func (s *saver) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()
	if err := s.flush(ctx); err != nil {
		s.st.logger.Warn(fmt.Sprintf("deferred save: %v", err), err)
	}
}

// pending returns the latest unwritten snapshot for the handle, if any.
func (s *saver) pending(handle string) (*student.Progress, bool) {
	s.mu.Lock()
	raw, ok := s.dirty[handle]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	var p student.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (s *saver) discard(handle string) {
	s.mu.Lock()
	delete(s.dirty, handle)
	s.mu.Unlock()
}

// flush writes every dirty record to the remote store. Records that fail
// stay dirty for the next attempt.
func (s *saver) flush(ctx context.Context) error {
	s.mu.Lock()
	batch := make(map[string][]byte, len(s.dirty))
	for handle, raw := range s.dirty {
		batch[handle] = raw
	}
	s.mu.Unlock()

	var firstErr error
	for handle, raw := range batch {
		var p student.Progress
		if err := json.Unmarshal(raw, &p); err != nil {
			s.discard(handle) // unrecoverable snapshot; drop it
			continue
		}
		if err := s.st.remote.SaveRecord(ctx, handle, &p); err != nil {
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "saving record %q", handle)
			}
			continue
		}
		// clear only if no newer snapshot landed meanwhile
		s.mu.Lock()
		if current, ok := s.dirty[handle]; ok && string(current) == string(raw) {
			delete(s.dirty, handle)
		}
		s.mu.Unlock()
	}
	return firstErr
}

func (s *saver) stop() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
}
