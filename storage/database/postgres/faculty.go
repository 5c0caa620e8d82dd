package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/faculty"
)

type facultyRow struct {
	ID           string    `db:"faculty_id"`
	Role         string    `db:"role"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const facultyColumns = "faculty_id, role, password_hash, created_at, updated_at"

func (r facultyRow) faculty() faculty.Faculty {
	return faculty.Faculty{
		ID:           r.ID,
		Role:         r.Role,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type facultyRepository struct {
	db      *sqlx.DB
	timeout timeout
}

var _ faculty.Repository = (*facultyRepository)(nil) // interface compliance check

func NewFacultyRepository(db *sqlx.DB, conf *core.Config) *facultyRepository {
	return &facultyRepository{db: db, timeout: timeout(conf.Database.Timeout)}
}

func (repo *facultyRepository) CreateFaculty(ctx context.Context, f faculty.Faculty) (faculty.Faculty, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	row := facultyRow{ID: f.ID, Role: f.Role, PasswordHash: f.PasswordHash, CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt}
	q := `INSERT INTO faculties (` + facultyColumns + `)
		VALUES (:faculty_id, :role, :password_hash, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return faculty.Faculty{}, faculty.NewExistsError(f.ID)
		}
		return faculty.Faculty{}, errors.Wrap(err, "inserting faculty")
	}
	return row.faculty(), nil
}

func (repo *facultyRepository) GetFaculty(ctx context.Context, id string) (faculty.Faculty, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var row facultyRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+facultyColumns+" FROM faculties WHERE faculty_id = $1", id); err != nil {
		return faculty.Faculty{}, trapNoRows(err, faculty.ErrNotFound, "selecting faculty")
	}
	return row.faculty(), nil
}

func (repo *facultyRepository) QueryFaculties(ctx context.Context) ([]faculty.Faculty, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var rows []facultyRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT "+facultyColumns+" FROM faculties ORDER BY faculty_id"); err != nil {
		return nil, errors.Wrap(err, "selecting faculties")
	}
	faculties := make([]faculty.Faculty, 0, len(rows))
	for _, r := range rows {
		faculties = append(faculties, r.faculty())
	}
	return faculties, nil
}

// UpdateFaculty only saves the set fields.
func (repo *facultyRepository) UpdateFaculty(ctx context.Context, f faculty.Faculty) (faculty.Faculty, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var role, hash interface{}
	if f.Role != "" {
		role = f.Role
	}
	if f.PasswordHash != nil {
		hash = f.PasswordHash
	}
	q := `UPDATE faculties
		SET role = COALESCE($2, role), password_hash = COALESCE($3, password_hash), updated_at = $4
		WHERE faculty_id = $1 RETURNING ` + facultyColumns
	var row facultyRow
	if err := repo.db.GetContext(ctx, &row, q, f.ID, role, hash, f.UpdatedAt); err != nil {
		return faculty.Faculty{}, trapNoRows(err, faculty.ErrNotFound, "updating faculty")
	}
	return row.faculty(), nil
}

func (repo *facultyRepository) DeleteFaculty(ctx context.Context, id string) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.db.ExecContext(ctx, "DELETE FROM faculties WHERE faculty_id = $1", id)
	return affectedOrNotFound(res, err, faculty.ErrNotFound, "deleting faculty")
}
