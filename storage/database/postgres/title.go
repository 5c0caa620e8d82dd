package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/title"
)

type titleRow struct {
	BatchNumber string    `db:"batch_number"`
	Name        string    `db:"name"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type titleRepository struct {
	db      *sqlx.DB
	timeout timeout
}

var _ title.Repository = (*titleRepository)(nil) // interface compliance check

func NewTitleRepository(db *sqlx.DB, conf *core.Config) *titleRepository {
	return &titleRepository{db: db, timeout: timeout(conf.Database.Timeout)}
}

func (repo *titleRepository) CreateTitle(ctx context.Context, t title.Title) (title.Title, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	q := "INSERT INTO titles (batch_number, name, updated_at) VALUES ($1, $2, $3)"
	if _, err := repo.db.ExecContext(ctx, q, t.BatchNumber, t.Name, t.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return title.Title{}, title.NewExistsError(t.BatchNumber)
		}
		return title.Title{}, errors.Wrap(err, "inserting title")
	}
	return t, nil
}

func (repo *titleRepository) GetTitle(ctx context.Context, batchNumber string) (title.Title, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var row titleRow
	q := "SELECT batch_number, name, updated_at FROM titles WHERE batch_number = $1"
	if err := repo.db.GetContext(ctx, &row, q, batchNumber); err != nil {
		return title.Title{}, trapNoRows(err, title.ErrNotFound, "selecting title")
	}
	return title.Title{BatchNumber: row.BatchNumber, Name: row.Name, UpdatedAt: row.UpdatedAt.UTC()}, nil
}

// UpsertTitle relies on xmax being zero only for freshly inserted rows.
func (repo *titleRepository) UpsertTitle(ctx context.Context, t title.Title) (bool, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	q := `INSERT INTO titles (batch_number, name, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (batch_number) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`
	var created bool
	if err := repo.db.GetContext(ctx, &created, q, t.BatchNumber, t.Name, t.UpdatedAt); err != nil {
		return false, errors.Wrap(err, "upserting title")
	}
	return created, nil
}
