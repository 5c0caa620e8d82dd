package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/review"
)

type reviewDoc struct {
	BatchNumber string                    `bson:"batchNumber"`
	Reviews     map[string]map[string]int `bson:"reviews"`
	UpdatedAt   time.Time                 `bson:"updatedAt"`
}

func (d reviewDoc) review() (review.Review, error) {
	r, err := review.FromRaw(d.BatchNumber, d.Reviews, d.UpdatedAt.UTC())
	return r, errors.Wrapf(err, "decoding review of %s", d.BatchNumber)
}

type reviewRepository struct {
	col     *mongo.Collection
	timeout timeout
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *mongo.Database, conf *core.Config) *reviewRepository {
	return &reviewRepository{col: db.Collection(colReviews), timeout: timeout(conf.Database.Timeout)}
}

func (repo *reviewRepository) GetReview(ctx context.Context, batchNumber string) (review.Review, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var doc reviewDoc
	if err := repo.col.FindOne(ctx, bson.M{"batchNumber": batchNumber}).Decode(&doc); err != nil {
		return review.Review{}, trapNoDocuments(err, review.ErrNotFound, "finding review")
	}
	return doc.review()
}

// ReplaceReview swaps the whole document, creating it when needed.
func (repo *reviewRepository) ReplaceReview(ctx context.Context, r review.Review) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	doc := reviewDoc{BatchNumber: r.BatchNumber, Reviews: r.Raw(), UpdatedAt: r.UpdatedAt}
	_, err := repo.col.ReplaceOne(ctx, bson.M{"batchNumber": r.BatchNumber}, doc, options.Replace().SetUpsert(true))
	return errors.Wrap(err, "replacing review")
}

func (repo *reviewRepository) QueryReviews(ctx context.Context) ([]review.Review, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var docs []reviewDoc
	opts := options.Find().SetSort(bson.D{{Key: "batchNumber", Value: 1}})
	if err := findAll(ctx, repo.col, bson.M{}, &docs, opts); err != nil {
		return nil, errors.Wrap(err, "querying reviews")
	}
	reviews := make([]review.Review, 0, len(docs))
	for _, d := range docs {
		r, err := d.review()
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}
