package mongorepos

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/projhub/portal/core/allocation"
	"github.com/projhub/portal/core/batch"
)

// trapNoDocuments maps mongo.ErrNoDocuments to `notFound`.
func trapNoDocuments(err, notFound error, msg string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// findAll decodes every document matching `filter` into `results`.
func findAll(ctx context.Context, col *mongo.Collection, filter interface{}, results interface{}, opts ...*options.FindOptions) error {
	cur, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	return cur.All(ctx, results)
}

func sortBatches(batches []batch.Batch) {
	sort.Slice(batches, func(i, j int) bool { return allocation.LessBatch(batches[i].Number, batches[j].Number) })
}
