package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/attendance"
	"github.com/projhub/portal/core/batch"
	"github.com/projhub/portal/core/faculty"
	"github.com/projhub/portal/core/review"
	"github.com/projhub/portal/core/title"
	"github.com/projhub/portal/storage/database/inmem"
)

// Repos bundles the in-memory repositories of one fresh store.
type Repos struct {
	DB         *inmemdb.DB
	Batch      batch.Repository
	Faculty    faculty.Repository
	Review     review.Repository
	Attendance attendance.Repository
	Title      title.Repository
}

func NewRepos() Repos {
	db := inmemdb.Open()
	return Repos{
		DB:         db,
		Batch:      inmemdb.NewBatchRepository(db),
		Faculty:    inmemdb.NewFacultyRepository(db),
		Review:     inmemdb.NewReviewRepository(db),
		Attendance: inmemdb.NewAttendanceRepository(db),
		Title:      inmemdb.NewTitleRepository(db),
	}
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator with every custom tag and translation registered.
func NewValidator(t *testing.T) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := NewTranslator()
	if err := core.InitValidators(validate, translator, ""); err != nil {
		t.Fatalf("InitValidators() failed: %v", err)
	}
	faculty.InitValidators(validate, translator)
	return validate, translator
}

func CreateFaculty(t *testing.T, repo faculty.Repository, id, pwd, role string) faculty.Faculty {
	now := time.Now().UTC()
	f := faculty.Faculty{ID: id, Role: role, CreatedAt: now, UpdatedAt: now}
	if pwd != "" {
		if err := f.SetPassword(pwd); err != nil {
			t.Fatalf("CreateFaculty() failed: %v", err)
		}
	}
	f, err := repo.CreateFaculty(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateFaculty() failed: %v", err)
	}
	return f
}

// CreateBatch stores a batch and its students, all in `section`, sharing `pwd`.
func CreateBatch(t *testing.T, repo batch.Repository, number, title, section, pwd string, regNos ...string) (batch.Batch, []batch.Student) {
	ctx := context.Background()
	now := time.Now().UTC()
	b := batch.Batch{Number: number, Title: title, Students: regNos, CreatedAt: now, UpdatedAt: now}
	if pwd != "" {
		if err := b.SetPassword(pwd); err != nil {
			t.Fatalf("CreateBatch() failed: %v", err)
		}
	}
	b, err := repo.CreateBatch(ctx, b)
	if err != nil {
		t.Fatalf("CreateBatch() failed: %v", err)
	}

	students := make([]batch.Student, 0, len(regNos))
	for _, regNo := range regNos {
		students = append(students, batch.Student{
			RegNo:        regNo,
			Section:      section,
			BatchNumber:  number,
			BatchTitle:   title,
			PasswordHash: b.PasswordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	if err := repo.CreateStudents(ctx, students); err != nil {
		t.Fatalf("CreateBatch() failed: %v", err)
	}
	return b, students
}
