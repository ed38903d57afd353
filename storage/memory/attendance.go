package memory

import (
	"context"
	"sync"

	"github.com/ocuweb/classpoints/core/attendance"
)

// AttendanceRepository is the in-memory attendance.Repository.
type AttendanceRepository struct {
	mu   sync.RWMutex
	recs map[string]attendance.Record // studentID + "|" + date
}

var _ attendance.Repository = (*AttendanceRepository)(nil)

func NewAttendanceRepository() *AttendanceRepository {
	return &AttendanceRepository{recs: make(map[string]attendance.Record)}
}

func key(studentID, date string) string { return studentID + "|" + date }

func (repo *AttendanceRepository) Mark(ctx context.Context, rec attendance.Record) error {
	repo.mu.Lock()
	repo.recs[key(rec.StudentID, rec.Date)] = rec
	repo.mu.Unlock()
	return nil
}

func (repo *AttendanceRepository) Unmark(ctx context.Context, studentID, date string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	k := key(studentID, date)
	if _, ok := repo.recs[k]; !ok {
		return attendance.ErrNotFound
	}
	delete(repo.recs, k)
	return nil
}

func (repo *AttendanceRepository) History(ctx context.Context, studentID string) ([]attendance.Record, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	var out []attendance.Record
	for _, rec := range repo.recs {
		if rec.StudentID == studentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (repo *AttendanceRepository) All(ctx context.Context) ([]attendance.Record, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	out := make([]attendance.Record, 0, len(repo.recs))
	for _, rec := range repo.recs {
		out = append(out, rec)
	}
	return out, nil
}
