package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/projhub/portal/core"
)

// collections
const (
	colBatches     = "batches"
	colStudents    = "students"
	colFaculties   = "faculties"
	colReviews     = "reviews"
	colAttendances = "attendances"
	colTitles      = "titles"
	colCounters    = "counters"
)

// Open connects to the configured MongoDB deployment and pings it.
func Open(ctx context.Context, conf *core.Config) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(conf.Database.URI).
		SetAppName(conf.AppName).
		SetServerSelectionTimeout(conf.Database.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, errors.Wrap(err, "pinging mongodb")
	}
	return client, client.Database(conf.Database.Name), nil
}

// EnsureIndexes creates the unique indexes every repository relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := map[string]string{
		colBatches:     "batchNumber",
		colStudents:    "registrationNumber",
		colFaculties:   "facultyId",
		colReviews:     "batchNumber",
		colAttendances: "date",
		colTitles:      "batchNumber",
	}
	for col, field := range unique {
		_, err := db.Collection(col).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return errors.Wrapf(err, "indexing %s.%s", col, field)
		}
	}
	_, err := db.Collection(colStudents).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "batchNumber", Value: 1}},
	})
	return errors.Wrap(err, "indexing students.batchNumber")
}

// timeout bounds a single database call.
type timeout time.Duration

func (t timeout) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if t <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(t))
}
