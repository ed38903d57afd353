package attendance

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/ocuweb/classpoints/core"
)

var (
	// ErrNotFound means no mark exists for the student and date.
	ErrNotFound = errors.New("attendance record not found")
	// ErrNotClassDate rejects marks for dates the class does not meet.
	ErrNotClassDate = errors.New("not a scheduled class date")
)

type (
	// Repository is the persistence boundary for attendance marks.
	Repository interface {
		Mark(ctx context.Context, rec Record) error // upsert per (student, date)
		Unmark(ctx context.Context, studentID, date string) error
		History(ctx context.Context, studentID string) ([]Record, error)
		All(ctx context.Context) ([]Record, error)
	}

	Service struct {
		repo     Repository
		schedule Schedule
		logger   core.Logger

		nowFunc func() time.Time // mockable
	}
)

func NewService(repo Repository, schedule Schedule, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		schedule: schedule,
		logger:   logger,
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
}

func (svc *Service) Schedule() Schedule {
	return svc.schedule
}

// Mark records a student present (or late) for a class date. Marking the
// same date twice updates the mark in place.
func (svc *Service) Mark(ctx context.Context, studentID, date string, late bool) error {
	studentID = core.CleanString(studentID, true /* lower */)
	if !svc.schedule.IsClassDate(date) {
		return ErrNotClassDate
	}
	rec := Record{
		StudentID: studentID,
		Date:      date,
		IsLate:    late,
		Timestamp: svc.nowFunc(),
	}
	return errors.Wrap(svc.repo.Mark(ctx, rec), "marking attendance")
}

// Unmark removes a mark, typically to correct an instructor mistake.
func (svc *Service) Unmark(ctx context.Context, studentID, date string) error {
	return svc.repo.Unmark(ctx, core.CleanString(studentID, true /* lower */), date)
}

// History returns a student's marks sorted by date ascending.
func (svc *Service) History(ctx context.Context, studentID string) ([]Record, error) {
	recs, err := svc.repo.History(ctx, core.CleanString(studentID, true /* lower */))
	if err != nil {
		return nil, errors.Wrap(err, "loading attendance history")
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date < recs[j].Date })
	return recs, nil
}

// Overview computes per-student present/late/absent counts against the
// classes held so far, for the given roster. Students with no marks still
// appear with zero counts.
func (svc *Service) Overview(ctx context.Context, roster []string) (Overview, error) {
	now := svc.nowFunc()
	held := svc.schedule.HeldBefore(now)

	recs, err := svc.repo.All(ctx)
	if err != nil {
		return Overview{}, errors.Wrap(err, "loading attendance records")
	}

	heldSet := make(map[string]bool, len(held))
	for _, d := range held {
		heldSet[d] = true
	}

	byStudent := make(map[string]*StudentOverview, len(roster))
	for _, id := range roster {
		byStudent[id] = &StudentOverview{StudentID: id}
	}
	for _, rec := range recs {
		so, ok := byStudent[rec.StudentID]
		if !ok {
			continue // not on the roster anymore
		}
		if !heldSet[rec.Date] {
			continue // future or off-schedule mark
		}
		so.Present++
		if rec.IsLate {
			so.Late++
		}
	}

	ov := Overview{
		ClassesHeld: len(held),
		NextClass:   svc.schedule.NextClass(now),
		Students:    make([]StudentOverview, 0, len(byStudent)),
	}
	for _, so := range byStudent {
		so.Absent = ov.ClassesHeld - so.Present
		if ov.ClassesHeld > 0 {
			so.Rate = float64(so.Present) / float64(ov.ClassesHeld)
		}
		ov.Students = append(ov.Students, *so)
	}
	sort.Slice(ov.Students, func(i, j int) bool {
		return ov.Students[i].StudentID < ov.Students[j].StudentID
	})
	return ov, nil
}
