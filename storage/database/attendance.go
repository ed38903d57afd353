package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ocuweb/classpoints/core/attendance"
)

// AttendanceRepository is the relational attendance.Repository.
type AttendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*AttendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

type attendanceRow struct {
	StudentID string    `db:"student_id"`
	Date      time.Time `db:"date"`
	IsLate    bool      `db:"is_late"`
	MarkedAt  time.Time `db:"marked_at"`
}

func (row attendanceRow) record() attendance.Record {
	return attendance.Record{
		StudentID: row.StudentID,
		Date:      row.Date.Format(attendance.DateFormat),
		IsLate:    row.IsLate,
		Timestamp: row.MarkedAt,
	}
}

func (repo *AttendanceRepository) Mark(ctx context.Context, rec attendance.Record) error {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO attendance (student_id, date, is_late, marked_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (student_id, date) DO UPDATE SET is_late = EXCLUDED.is_late, marked_at = EXCLUDED.marked_at`,
		rec.StudentID, rec.Date, rec.IsLate, rec.Timestamp)
	return errors.Wrap(err, "marking attendance")
}

func (repo *AttendanceRepository) Unmark(ctx context.Context, studentID, date string) error {
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM attendance WHERE student_id = $1 AND date = $2`, studentID, date)
	if err != nil {
		return errors.Wrap(err, "unmarking attendance")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

func (repo *AttendanceRepository) History(ctx context.Context, studentID string) ([]attendance.Record, error) {
	var rows []attendanceRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT student_id, date, is_late, marked_at FROM attendance WHERE student_id = $1 ORDER BY date`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "loading attendance history")
	}
	return toRecords(rows), nil
}

func (repo *AttendanceRepository) All(ctx context.Context) ([]attendance.Record, error) {
	var rows []attendanceRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT student_id, date, is_late, marked_at FROM attendance ORDER BY date, student_id`)
	if err != nil {
		return nil, errors.Wrap(err, "loading attendance records")
	}
	return toRecords(rows), nil
}

func toRecords(rows []attendanceRow) []attendance.Record {
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.record())
	}
	return recs
}
