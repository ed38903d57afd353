package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ocuweb/classpoints/core"
	"github.com/ocuweb/classpoints/core/student"
)

// StudentGateway is the relational student.Gateway: records are stored as
// jsonb rows keyed by a generated UUID handle.
type StudentGateway struct {
	db     *sqlx.DB
	logger core.Logger
}

var _ student.Gateway = (*StudentGateway)(nil)

func NewStudentGateway(db *sqlx.DB, logger core.Logger) *StudentGateway {
	return &StudentGateway{db: db, logger: logger}
}

func (gw *StudentGateway) LoadConfig(ctx context.Context) (student.ClassConfig, error) {
	var row struct {
		ClassPin  string    `db:"class_pin"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	if err := gw.db.GetContext(ctx, &row, `SELECT class_pin, updated_at FROM class_config WHERE id = 1`); err != nil {
		return student.ClassConfig{}, errors.Wrap(err, "loading class config")
	}

	cfg := student.ClassConfig{
		ClassPin:    row.ClassPin,
		Students:    make(map[string]string),
		LastUpdated: row.UpdatedAt,
	}
	rows, err := gw.db.QueryxContext(ctx, `SELECT student_id, handle FROM student_record`)
	if err != nil {
		return student.ClassConfig{}, errors.Wrap(err, "loading student index")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id, handle string
		if err := rows.Scan(&id, &handle); err != nil {
			return student.ClassConfig{}, errors.Wrap(err, "scanning student index")
		}
		cfg.Students[id] = handle
	}
	return cfg, errors.Wrap(rows.Err(), "loading student index")
}

func (gw *StudentGateway) LoadRecord(ctx context.Context, handle string) (*student.Progress, error) {
	var raw []byte
	err := gw.db.GetContext(ctx, &raw, `SELECT record FROM student_record WHERE handle = $1`, handle)
	if err == sql.ErrNoRows {
		return nil, student.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading record %q", handle)
	}
	var p student.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		gw.logger.Warn(fmt.Sprintf("corrupted record row %q: %v", handle, err), err)
		return nil, student.ErrNotFound
	}
	return &p, nil
}

func (gw *StudentGateway) CreateRecord(ctx context.Context, studentID string, p *student.Progress) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "encoding record")
	}
	handle := uuid.New().String()
	_, err = gw.db.ExecContext(ctx,
		`INSERT INTO student_record (handle, student_id, record) VALUES ($1, $2, $3)
		 ON CONFLICT (student_id) DO UPDATE SET record = EXCLUDED.record, updated_at = now()`,
		handle, studentID, raw)
	if err != nil {
		return "", errors.Wrapf(err, "creating record for %q", studentID)
	}
	// an ON CONFLICT upsert keeps the original handle; read it back
	var stored string
	if err := gw.db.GetContext(ctx, &stored, `SELECT handle FROM student_record WHERE student_id = $1`, studentID); err != nil {
		return "", errors.Wrapf(err, "reading back handle for %q", studentID)
	}
	return stored, nil
}

func (gw *StudentGateway) SaveRecord(ctx context.Context, handle string, p *student.Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	res, err := gw.db.ExecContext(ctx,
		`UPDATE student_record SET record = $2, updated_at = now() WHERE handle = $1`, handle, raw)
	if err != nil {
		return errors.Wrapf(err, "saving record %q", handle)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (gw *StudentGateway) DeleteRecord(ctx context.Context, studentID string) error {
	res, err := gw.db.ExecContext(ctx, `DELETE FROM student_record WHERE student_id = $1`, studentID)
	if err != nil {
		return errors.Wrapf(err, "deleting record for %q", studentID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (gw *StudentGateway) ListAllRecords(ctx context.Context) (map[string]*student.Progress, error) {
	rows, err := gw.db.QueryxContext(ctx, `SELECT student_id, record FROM student_record`)
	if err != nil {
		return nil, errors.Wrap(err, "listing records")
	}
	defer func() { _ = rows.Close() }()

	all := make(map[string]*student.Progress)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, errors.Wrap(err, "scanning record")
		}
		var p student.Progress
		if err := json.Unmarshal(raw, &p); err != nil {
			gw.logger.Warn(fmt.Sprintf("skipping corrupted record row for %q: %v", id, err), err)
			continue
		}
		all[id] = &p
	}
	return all, errors.Wrap(rows.Err(), "listing records")
}

// SetClassPin updates the shared PIN; admin-only.
func (gw *StudentGateway) SetClassPin(ctx context.Context, pin string) error {
	_, err := gw.db.ExecContext(ctx,
		`UPDATE class_config SET class_pin = $1, updated_at = now() WHERE id = 1`, pin)
	return errors.Wrap(err, "updating class pin")
}
