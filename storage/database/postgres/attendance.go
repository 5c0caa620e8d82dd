package pgrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/attendance"
)

type attendanceRow struct {
	Date       string    `db:"date"`
	Attendance []byte    `db:"attendance"` // JSONB: regNo -> present
	UpdatedAt  time.Time `db:"updated_at"`
}

const attendanceColumns = "date, attendance, updated_at"

func (r attendanceRow) attendance() (attendance.Attendance, error) {
	entries := map[string]bool{}
	if err := json.Unmarshal(r.Attendance, &entries); err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "decoding attendance")
	}
	return attendance.Attendance{Date: r.Date, Attendance: entries, UpdatedAt: r.UpdatedAt.UTC()}, nil
}

type attendanceRepository struct {
	db      *sqlx.DB
	timeout timeout
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB, conf *core.Config) *attendanceRepository {
	return &attendanceRepository{db: db, timeout: timeout(conf.Database.Timeout)}
}

func (repo *attendanceRepository) GetAttendance(ctx context.Context, date string) (attendance.Attendance, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var row attendanceRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+attendanceColumns+" FROM attendance WHERE date = $1", date); err != nil {
		return attendance.Attendance{}, trapNoRows(err, attendance.ErrNotFound, "selecting attendance")
	}
	return row.attendance()
}

// MergeAttendance concatenates the entries onto the stored JSONB object in a single statement.
func (repo *attendanceRepository) MergeAttendance(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	data, err := json.Marshal(a.Attendance)
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "encoding attendance")
	}
	q := `INSERT INTO attendance (date, attendance, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (date) DO UPDATE
		SET attendance = attendance.attendance || EXCLUDED.attendance, updated_at = EXCLUDED.updated_at
		RETURNING ` + attendanceColumns
	var row attendanceRow
	if err := repo.db.GetContext(ctx, &row, q, a.Date, data, a.UpdatedAt); err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "merging attendance")
	}
	return row.attendance()
}

func (repo *attendanceRepository) QueryAttendance(ctx context.Context) ([]attendance.Attendance, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT "+attendanceColumns+" FROM attendance ORDER BY date"); err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	all := make([]attendance.Attendance, 0, len(rows))
	for _, row := range rows {
		a, err := row.attendance()
		if err != nil {
			return nil, err
		}
		all = append(all, a)
	}
	return all, nil
}

func (repo *attendanceRepository) DeleteAllAttendance(ctx context.Context) (int64, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.db.ExecContext(ctx, "DELETE FROM attendance")
	if err != nil {
		return 0, errors.Wrap(err, "deleting attendance")
	}
	return res.RowsAffected()
}
