package pgrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/review"
)

type reviewRow struct {
	BatchNumber string    `db:"batch_number"`
	Reviews     []byte    `db:"reviews"` // JSONB: regNo -> field -> score
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r reviewRow) review() (review.Review, error) {
	var raw map[string]map[string]int
	if err := json.Unmarshal(r.Reviews, &raw); err != nil {
		return review.Review{}, errors.Wrap(err, "decoding reviews")
	}
	return review.FromRaw(r.BatchNumber, raw, r.UpdatedAt.UTC())
}

type reviewRepository struct {
	db      *sqlx.DB
	timeout timeout
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *sqlx.DB, conf *core.Config) *reviewRepository {
	return &reviewRepository{db: db, timeout: timeout(conf.Database.Timeout)}
}

func (repo *reviewRepository) GetReview(ctx context.Context, batchNumber string) (review.Review, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var row reviewRow
	q := "SELECT batch_number, reviews, updated_at FROM reviews WHERE batch_number = $1"
	if err := repo.db.GetContext(ctx, &row, q, batchNumber); err != nil {
		return review.Review{}, trapNoRows(err, review.ErrNotFound, "selecting review")
	}
	return row.review()
}

func (repo *reviewRepository) ReplaceReview(ctx context.Context, r review.Review) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	data, err := json.Marshal(r.Raw())
	if err != nil {
		return errors.Wrap(err, "encoding reviews")
	}
	q := `INSERT INTO reviews (batch_number, reviews, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (batch_number) DO UPDATE SET reviews = EXCLUDED.reviews, updated_at = EXCLUDED.updated_at`
	if _, err := repo.db.ExecContext(ctx, q, r.BatchNumber, data, r.UpdatedAt); err != nil {
		return errors.Wrap(err, "replacing review")
	}
	return nil
}

func (repo *reviewRepository) QueryReviews(ctx context.Context) ([]review.Review, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var rows []reviewRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT batch_number, reviews, updated_at FROM reviews ORDER BY batch_number"); err != nil {
		return nil, errors.Wrap(err, "selecting reviews")
	}
	reviews := make([]review.Review, 0, len(rows))
	for _, row := range rows {
		r, err := row.review()
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}
