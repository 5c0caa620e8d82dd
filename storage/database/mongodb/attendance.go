package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/attendance"
)

type attendanceDoc struct {
	Date       string          `bson:"date"`
	Attendance map[string]bool `bson:"attendance"`
	UpdatedAt  time.Time       `bson:"updatedAt"`
}

func (d attendanceDoc) attendance() attendance.Attendance {
	entries := d.Attendance
	if entries == nil {
		entries = map[string]bool{}
	}
	return attendance.Attendance{Date: d.Date, Attendance: entries, UpdatedAt: d.UpdatedAt.UTC()}
}

type attendanceRepository struct {
	col     *mongo.Collection
	timeout timeout
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *mongo.Database, conf *core.Config) *attendanceRepository {
	return &attendanceRepository{col: db.Collection(colAttendances), timeout: timeout(conf.Database.Timeout)}
}

func (repo *attendanceRepository) GetAttendance(ctx context.Context, date string) (attendance.Attendance, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var doc attendanceDoc
	if err := repo.col.FindOne(ctx, bson.M{"date": date}).Decode(&doc); err != nil {
		return attendance.Attendance{}, trapNoDocuments(err, attendance.ErrNotFound, "finding attendance")
	}
	return doc.attendance(), nil
}

// MergeAttendance sets one field per student so concurrent marks on a date never drop entries.
func (repo *attendanceRepository) MergeAttendance(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	set := bson.M{"updatedAt": a.UpdatedAt}
	for regNo, present := range a.Attendance {
		set["attendance."+regNo] = present
	}
	var doc attendanceDoc
	err := repo.col.FindOneAndUpdate(
		ctx,
		bson.M{"date": a.Date},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "merging attendance")
	}
	return doc.attendance(), nil
}

func (repo *attendanceRepository) QueryAttendance(ctx context.Context) ([]attendance.Attendance, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var docs []attendanceDoc
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	if err := findAll(ctx, repo.col, bson.M{}, &docs, opts); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	all := make([]attendance.Attendance, 0, len(docs))
	for _, d := range docs {
		all = append(all, d.attendance())
	}
	return all, nil
}

func (repo *attendanceRepository) DeleteAllAttendance(ctx context.Context) (int64, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.col.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(err, "deleting attendance")
	}
	return res.DeletedCount, nil
}
