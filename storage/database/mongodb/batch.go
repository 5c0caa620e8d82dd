package mongorepos

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/allocation"
	"github.com/projhub/portal/core/batch"
)

const batchSeqID = "batchNumber"

type (
	batchDoc struct {
		Number       string    `bson:"batchNumber"`
		Title        string    `bson:"title"`
		Students     []string  `bson:"students"`
		ProjectTitle string    `bson:"projectTitle,omitempty"`
		PasswordHash []byte    `bson:"password,omitempty"`
		CreatedAt    time.Time `bson:"createdAt"`
		UpdatedAt    time.Time `bson:"updatedAt"`
	}

	studentDoc struct {
		RegNo        string    `bson:"registrationNumber"`
		Section      string    `bson:"section"`
		BatchNumber  string    `bson:"batchNumber"`
		BatchTitle   string    `bson:"batchTitle"`
		ProjectTitle string    `bson:"projectTitle,omitempty"`
		PasswordHash []byte    `bson:"password"`
		CreatedAt    time.Time `bson:"createdAt"`
		UpdatedAt    time.Time `bson:"updatedAt"`
	}

	counterDoc struct {
		ID  string `bson:"_id"`
		Seq int    `bson:"seq"`
	}
)

func (d batchDoc) batch() batch.Batch {
	students := d.Students
	if students == nil {
		students = []string{}
	}
	return batch.Batch{
		Number:       d.Number,
		Title:        d.Title,
		Students:     students,
		ProjectTitle: d.ProjectTitle,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func (d studentDoc) student() batch.Student {
	return batch.Student{
		RegNo:        d.RegNo,
		Section:      d.Section,
		BatchNumber:  d.BatchNumber,
		BatchTitle:   d.BatchTitle,
		ProjectTitle: d.ProjectTitle,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

type batchRepository struct {
	batches  *mongo.Collection
	students *mongo.Collection
	counters *mongo.Collection
	timeout  timeout
}

var _ batch.Repository = (*batchRepository)(nil) // interface compliance check

func NewBatchRepository(db *mongo.Database, conf *core.Config) *batchRepository {
	return &batchRepository{
		batches:  db.Collection(colBatches),
		students: db.Collection(colStudents),
		counters: db.Collection(colCounters),
		timeout:  timeout(conf.Database.Timeout),
	}
}

// NextBatchNumber increments the batch counter, skipping numbers already in use.
func (repo *batchRepository) NextBatchNumber(ctx context.Context) (string, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	for {
		var c counterDoc
		err := repo.counters.FindOneAndUpdate(ctx, bson.M{"_id": batchSeqID}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&c)
		if err != nil {
			return "", errors.Wrap(err, "incrementing batch counter")
		}
		number := allocation.BatchID(c.Seq)
		n, err := repo.batches.CountDocuments(ctx, bson.M{"batchNumber": number})
		if err != nil {
			return "", errors.Wrap(err, "checking batch number")
		}
		if n == 0 {
			return number, nil
		}
	}
}

func (repo *batchRepository) CreateBatch(ctx context.Context, b batch.Batch) (batch.Batch, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	doc := batchDoc{
		Number:       b.Number,
		Title:        b.Title,
		Students:     b.Students,
		ProjectTitle: b.ProjectTitle,
		PasswordHash: b.PasswordHash,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
	if _, err := repo.batches.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return batch.Batch{}, batch.NewBatchExistsError(b.Number)
		}
		return batch.Batch{}, errors.Wrap(err, "inserting batch")
	}
	return doc.batch(), nil
}

func (repo *batchRepository) GetBatch(ctx context.Context, number string) (batch.Batch, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var doc batchDoc
	if err := repo.batches.FindOne(ctx, bson.M{"batchNumber": number}).Decode(&doc); err != nil {
		return batch.Batch{}, trapNoDocuments(err, batch.ErrNotFound, "finding batch")
	}
	return doc.batch(), nil
}

func (repo *batchRepository) QueryBatches(ctx context.Context) ([]batch.Batch, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var docs []batchDoc
	if err := findAll(ctx, repo.batches, bson.M{}, &docs); err != nil {
		return nil, errors.Wrap(err, "querying batches")
	}
	batches := make([]batch.Batch, 0, len(docs))
	for _, d := range docs {
		batches = append(batches, d.batch())
	}
	sortBatches(batches)
	return batches, nil
}

func (repo *batchRepository) UpdateBatch(ctx context.Context, b batch.Batch) (batch.Batch, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	set := bson.M{"title": b.Title, "updatedAt": b.UpdatedAt}
	if b.Students != nil {
		set["students"] = b.Students
	}
	var doc batchDoc
	err := repo.batches.FindOneAndUpdate(
		ctx,
		bson.M{"batchNumber": b.Number},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return batch.Batch{}, trapNoDocuments(err, batch.ErrNotFound, "updating batch")
	}
	return doc.batch(), nil
}

func (repo *batchRepository) SetBatchProjectTitle(ctx context.Context, number, projectTitle string) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.batches.UpdateOne(ctx, bson.M{"batchNumber": number}, bson.M{"$set": bson.M{"projectTitle": projectTitle}})
	if err != nil {
		return errors.Wrap(err, "setting batch project title")
	}
	if res.MatchedCount == 0 {
		return batch.ErrNotFound
	}
	return nil
}

func (repo *batchRepository) DeleteBatch(ctx context.Context, number string) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.batches.DeleteOne(ctx, bson.M{"batchNumber": number})
	if err != nil {
		return errors.Wrap(err, "deleting batch")
	}
	if res.DeletedCount == 0 {
		return batch.ErrNotFound
	}
	return nil
}

func (repo *batchRepository) RemoveFromRoster(ctx context.Context, number, regNo string) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.batches.UpdateOne(ctx, bson.M{"batchNumber": number}, bson.M{"$pull": bson.M{"students": regNo}})
	if err != nil {
		return errors.Wrap(err, "removing student from roster")
	}
	if res.MatchedCount == 0 {
		return batch.ErrNotFound
	}
	return nil
}

func (repo *batchRepository) FindRostered(ctx context.Context, regNos []string) ([]string, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var docs []batchDoc
	if err := findAll(ctx, repo.batches, bson.M{"students": bson.M{"$in": regNos}}, &docs); err != nil {
		return nil, errors.Wrap(err, "finding rostered students")
	}
	wanted := make(map[string]bool, len(regNos))
	for _, regNo := range regNos {
		wanted[regNo] = true
	}
	var found []string
	for _, d := range docs {
		for _, s := range d.Students {
			if wanted[s] {
				found = append(found, s)
				delete(wanted, s)
			}
		}
	}
	sort.Strings(found)
	return found, nil
}

func (repo *batchRepository) CreateStudents(ctx context.Context, students []batch.Student) error {
	if len(students) == 0 {
		return nil
	}
	regNos := make([]string, 0, len(students))
	for _, s := range students {
		regNos = append(regNos, s.RegNo)
	}
	if err := repo.conflicts(ctx, regNos); err != nil {
		return err
	}

	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	docs := make([]interface{}, 0, len(students))
	for _, s := range students {
		docs = append(docs, studentDoc{
			RegNo:        s.RegNo,
			Section:      s.Section,
			BatchNumber:  s.BatchNumber,
			BatchTitle:   s.BatchTitle,
			ProjectTitle: s.ProjectTitle,
			PasswordHash: s.PasswordHash,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
		})
	}
	if _, err := repo.students.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// lost a race with a concurrent signup
			if cErr := repo.conflicts(ctx, regNos); cErr != nil {
				return cErr
			}
		}
		return errors.Wrap(err, "inserting students")
	}
	return nil
}

// conflicts fails with the registration numbers among `regNos` already stored.
func (repo *batchRepository) conflicts(ctx context.Context, regNos []string) error {
	existing, err := repo.FindStudents(ctx, regNos)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		taken := make([]string, 0, len(existing))
		for _, s := range existing {
			taken = append(taken, s.RegNo)
		}
		return batch.NewRegNosExistError(taken...)
	}
	return nil
}

func (repo *batchRepository) FindStudents(ctx context.Context, regNos []string) ([]batch.Student, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var docs []studentDoc
	if err := findAll(ctx, repo.students, bson.M{"registrationNumber": bson.M{"$in": regNos}}, &docs); err != nil {
		return nil, errors.Wrap(err, "finding students")
	}
	return unmarshalStudents(docs), nil
}

func (repo *batchRepository) GetStudent(ctx context.Context, regNo string) (batch.Student, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var doc studentDoc
	if err := repo.students.FindOne(ctx, bson.M{"registrationNumber": regNo}).Decode(&doc); err != nil {
		return batch.Student{}, trapNoDocuments(err, batch.ErrStudentNotFound, "finding student")
	}
	return doc.student(), nil
}

func (repo *batchRepository) QueryStudents(ctx context.Context, batchNumber string) ([]batch.Student, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	filter := bson.M{}
	if batchNumber != "" {
		filter["batchNumber"] = batchNumber
	}
	var docs []studentDoc
	opts := options.Find().SetSort(bson.D{{Key: "registrationNumber", Value: 1}})
	if err := findAll(ctx, repo.students, filter, &docs, opts); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return unmarshalStudents(docs), nil
}

func (repo *batchRepository) UpdateStudent(ctx context.Context, s batch.Student) (batch.Student, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var doc studentDoc
	err := repo.students.FindOneAndUpdate(
		ctx,
		bson.M{"registrationNumber": s.RegNo},
		bson.M{"$set": bson.M{"section": s.Section, "updatedAt": s.UpdatedAt}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return batch.Student{}, trapNoDocuments(err, batch.ErrStudentNotFound, "updating student")
	}
	return doc.student(), nil
}

func (repo *batchRepository) SetStudentsProjectTitle(ctx context.Context, batchNumber, projectTitle string) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	_, err := repo.students.UpdateMany(ctx, bson.M{"batchNumber": batchNumber}, bson.M{"$set": bson.M{"projectTitle": projectTitle}})
	return errors.Wrap(err, "setting students project title")
}

func (repo *batchRepository) DeleteStudent(ctx context.Context, regNo string) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.students.DeleteOne(ctx, bson.M{"registrationNumber": regNo})
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if res.DeletedCount == 0 {
		return batch.ErrStudentNotFound
	}
	return nil
}

func (repo *batchRepository) DeleteStudents(ctx context.Context, batchNumber string) (int64, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.students.DeleteMany(ctx, bson.M{"batchNumber": batchNumber})
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	return res.DeletedCount, nil
}

func unmarshalStudents(docs []studentDoc) []batch.Student {
	students := make([]batch.Student, 0, len(docs))
	for _, d := range docs {
		students = append(students, d.student())
	}
	return students
}
