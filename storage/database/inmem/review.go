package inmemdb

import (
	"context"
	"sort"

	"github.com/projhub/portal/core/review"
	"github.com/projhub/portal/core/scoring"
)

type reviewRepository struct {
	db *reviewTable
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *DB) *reviewRepository {
	return &reviewRepository{db: db.review}
}

func copyReview(r *review.Review) review.Review {
	c := review.Review{BatchNumber: r.BatchNumber, UpdatedAt: r.UpdatedAt, Reviews: make(map[string]scoring.Sheet, len(r.Reviews))}
	for regNo, sheet := range r.Reviews {
		s := make(scoring.Sheet, len(sheet))
		for k, v := range sheet {
			s[k] = v
		}
		c.Reviews[regNo] = s
	}
	return c
}

func (repo *reviewRepository) GetReview(_ context.Context, batchNumber string) (review.Review, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.table[batchNumber]; ok {
		return copyReview(r), nil
	}
	return review.Review{}, review.ErrNotFound
}

func (repo *reviewRepository) ReplaceReview(_ context.Context, r review.Review) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	c := copyReview(&r)
	repo.db.table[r.BatchNumber] = &c
	return nil
}

func (repo *reviewRepository) QueryReviews(_ context.Context) ([]review.Review, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reviews := make([]review.Review, 0, len(repo.db.table))
	for _, r := range repo.db.table {
		reviews = append(reviews, copyReview(r))
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].BatchNumber < reviews[j].BatchNumber })
	return reviews, nil
}
