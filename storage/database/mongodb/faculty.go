package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/faculty"
)

type facultyDoc struct {
	ID           string    `bson:"facultyId"`
	Role         string    `bson:"role"`
	PasswordHash []byte    `bson:"password"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d facultyDoc) faculty() faculty.Faculty {
	return faculty.Faculty{
		ID:           d.ID,
		Role:         d.Role,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

type facultyRepository struct {
	col     *mongo.Collection
	timeout timeout
}

var _ faculty.Repository = (*facultyRepository)(nil) // interface compliance check

func NewFacultyRepository(db *mongo.Database, conf *core.Config) *facultyRepository {
	return &facultyRepository{col: db.Collection(colFaculties), timeout: timeout(conf.Database.Timeout)}
}

func (repo *facultyRepository) CreateFaculty(ctx context.Context, f faculty.Faculty) (faculty.Faculty, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	doc := facultyDoc{ID: f.ID, Role: f.Role, PasswordHash: f.PasswordHash, CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt}
	if _, err := repo.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return faculty.Faculty{}, faculty.NewExistsError(f.ID)
		}
		return faculty.Faculty{}, errors.Wrap(err, "inserting faculty")
	}
	return doc.faculty(), nil
}

func (repo *facultyRepository) GetFaculty(ctx context.Context, id string) (faculty.Faculty, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var doc facultyDoc
	if err := repo.col.FindOne(ctx, bson.M{"facultyId": id}).Decode(&doc); err != nil {
		return faculty.Faculty{}, trapNoDocuments(err, faculty.ErrNotFound, "finding faculty")
	}
	return doc.faculty(), nil
}

func (repo *facultyRepository) QueryFaculties(ctx context.Context) ([]faculty.Faculty, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var docs []facultyDoc
	opts := options.Find().SetSort(bson.D{{Key: "facultyId", Value: 1}})
	if err := findAll(ctx, repo.col, bson.M{}, &docs, opts); err != nil {
		return nil, errors.Wrap(err, "querying faculties")
	}
	faculties := make([]faculty.Faculty, 0, len(docs))
	for _, d := range docs {
		faculties = append(faculties, d.faculty())
	}
	return faculties, nil
}

func (repo *facultyRepository) UpdateFaculty(ctx context.Context, f faculty.Faculty) (faculty.Faculty, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	// only save set fields
	set := bson.M{"updatedAt": f.UpdatedAt}
	if f.Role != "" {
		set["role"] = f.Role
	}
	if f.PasswordHash != nil {
		set["password"] = f.PasswordHash
	}
	var doc facultyDoc
	err := repo.col.FindOneAndUpdate(
		ctx,
		bson.M{"facultyId": f.ID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return faculty.Faculty{}, trapNoDocuments(err, faculty.ErrNotFound, "updating faculty")
	}
	return doc.faculty(), nil
}

func (repo *facultyRepository) DeleteFaculty(ctx context.Context, id string) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.col.DeleteOne(ctx, bson.M{"facultyId": id})
	if err != nil {
		return errors.Wrap(err, "deleting faculty")
	}
	if res.DeletedCount == 0 {
		return faculty.ErrNotFound
	}
	return nil
}
