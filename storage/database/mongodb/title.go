package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/title"
)

type titleDoc struct {
	BatchNumber string    `bson:"batchNumber"`
	Name        string    `bson:"title"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

type titleRepository struct {
	col     *mongo.Collection
	timeout timeout
}

var _ title.Repository = (*titleRepository)(nil) // interface compliance check

func NewTitleRepository(db *mongo.Database, conf *core.Config) *titleRepository {
	return &titleRepository{col: db.Collection(colTitles), timeout: timeout(conf.Database.Timeout)}
}

func (repo *titleRepository) CreateTitle(ctx context.Context, t title.Title) (title.Title, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	if _, err := repo.col.InsertOne(ctx, titleDoc(t)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return title.Title{}, title.NewExistsError(t.BatchNumber)
		}
		return title.Title{}, errors.Wrap(err, "inserting title")
	}
	return t, nil
}

func (repo *titleRepository) GetTitle(ctx context.Context, batchNumber string) (title.Title, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var doc titleDoc
	if err := repo.col.FindOne(ctx, bson.M{"batchNumber": batchNumber}).Decode(&doc); err != nil {
		return title.Title{}, trapNoDocuments(err, title.ErrNotFound, "finding title")
	}
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return title.Title(doc), nil
}

func (repo *titleRepository) UpsertTitle(ctx context.Context, t title.Title) (bool, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.col.UpdateOne(
		ctx,
		bson.M{"batchNumber": t.BatchNumber},
		bson.M{"$set": bson.M{"title": t.Name, "updatedAt": t.UpdatedAt}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, errors.Wrap(err, "upserting title")
	}
	return res.UpsertedCount > 0, nil
}
