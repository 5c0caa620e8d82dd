package pgrepos

import (
	"context"
	"database/sql"
	"embed"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core/allocation"
	"github.com/projhub/portal/core/batch"
)

// Migrations holds the goose migrations of the PostgreSQL store.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations.
const MigrationsDir = "migrations"

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// trapNoRows maps sql.ErrNoRows to `notFound`.
func trapNoRows(err, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// timeout bounds a single database call.
type timeout time.Duration

func (t timeout) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if t <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(t))
}

// NewDB wraps an open database handle for the repositories.
func NewDB(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, "postgres")
}

// affectedOrNotFound reports `notFound` when a statement matched no row.
func affectedOrNotFound(res sql.Result, err, notFound error, msg string) error {
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func sortBatches(batches []batch.Batch) {
	sort.Slice(batches, func(i, j int) bool { return allocation.LessBatch(batches[i].Number, batches[j].Number) })
}
