// Package memory provides in-memory storage implementations for tests and
// local development without a remote store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ocuweb/classpoints/core/student"
)

// StudentGateway is the in-memory student.Gateway.
type StudentGateway struct {
	mu      sync.RWMutex
	pin     string
	index   map[string]string // studentID -> handle
	records map[string][]byte // handle -> JSON record
	nextID  int
}

var _ student.Gateway = (*StudentGateway)(nil)

func NewStudentGateway(pin string) *StudentGateway {
	return &StudentGateway{
		pin:     pin,
		index:   make(map[string]string),
		records: make(map[string][]byte),
	}
}

func (gw *StudentGateway) SetPin(pin string) {
	gw.mu.Lock()
	gw.pin = pin
	gw.mu.Unlock()
}

func (gw *StudentGateway) LoadConfig(ctx context.Context) (student.ClassConfig, error) {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	cfg := student.ClassConfig{ClassPin: gw.pin, Students: make(map[string]string, len(gw.index))}
	for id, handle := range gw.index {
		cfg.Students[id] = handle
	}
	return cfg, nil
}

func (gw *StudentGateway) LoadRecord(ctx context.Context, handle string) (*student.Progress, error) {
	gw.mu.RLock()
	raw, ok := gw.records[handle]
	gw.mu.RUnlock()
	if !ok {
		return nil, student.ErrNotFound
	}
	var p student.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, student.ErrNotFound
	}
	return &p, nil
}

func (gw *StudentGateway) CreateRecord(ctx context.Context, studentID string, p *student.Progress) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if handle, ok := gw.index[studentID]; ok {
		gw.records[handle] = raw
		return handle, nil
	}
	gw.nextID++
	handle := fmt.Sprintf("mem-%d", gw.nextID)
	gw.index[studentID] = handle
	gw.records[handle] = raw
	return handle, nil
}

func (gw *StudentGateway) SaveRecord(ctx context.Context, handle string, p *student.Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if _, ok := gw.records[handle]; !ok {
		return student.ErrNotFound
	}
	gw.records[handle] = raw
	return nil
}

func (gw *StudentGateway) DeleteRecord(ctx context.Context, studentID string) error {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	handle, ok := gw.index[studentID]
	if !ok {
		return student.ErrNotFound
	}
	delete(gw.index, studentID)
	delete(gw.records, handle)
	return nil
}

func (gw *StudentGateway) ListAllRecords(ctx context.Context) (map[string]*student.Progress, error) {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	all := make(map[string]*student.Progress, len(gw.index))
	for id, handle := range gw.index {
		raw, ok := gw.records[handle]
		if !ok {
			continue
		}
		var p student.Progress
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		all[id] = &p
	}
	return all, nil
}
