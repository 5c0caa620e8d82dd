// Package title keeps the canonical project title of each batch.
package title

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/projhub/portal/core"
)

var ErrNotFound = core.NewNotFoundError("title not found")

const errExistsMsg = "a title already exists for this batch number"

// NewExistsError reports a duplicate title for `batchNumber`.
func NewExistsError(batchNumber string) error {
	return core.NewConflictError(errExistsMsg, batchNumber)
}

type (
	Title struct {
		BatchNumber string    `json:"batchNumber"`
		Name        string    `json:"name"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	NewTitle struct {
		BatchNumber string `json:"batchNumber" validate:"notblank"`
		Name        string `json:"name" validate:"notblank"`
	}

	Repository interface {
		// CreateTitle fails with a conflict when the batch already has a title.
		CreateTitle(ctx context.Context, t Title) (Title, error)
		GetTitle(ctx context.Context, batchNumber string) (Title, error)
		// UpsertTitle reports whether the title was created rather than replaced.
		UpsertTitle(ctx context.Context, t Title) (created bool, err error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nt NewTitle) (Title, error)
		Get(ctx context.Context, batchNumber string) (Title, error)
		Set(ctx context.Context, batchNumber, name string) (Title, bool, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ ServiceInterface = (*Service)(nil)

var nowFunc = time.Now

func (nt *NewTitle) Validate(validate *validator.Validate) error {
	nt.BatchNumber = core.CleanString(nt.BatchNumber)
	nt.Name = core.CleanString(nt.Name)
	return validate.Struct(nt)
}

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, nt NewTitle) (Title, error) {
	if err := nt.Validate(svc.validate); err != nil {
		return Title{}, err
	}
	return svc.repo.CreateTitle(ctx, Title{
		BatchNumber: nt.BatchNumber,
		Name:        nt.Name,
		UpdatedAt:   nowFunc().UTC(),
	})
}

func (svc *Service) Get(ctx context.Context, batchNumber string) (Title, error) {
	return svc.repo.GetTitle(ctx, core.CleanString(batchNumber))
}

// Set creates or replaces the title of a batch.
func (svc *Service) Set(ctx context.Context, batchNumber, name string) (Title, bool, error) {
	nt := NewTitle{BatchNumber: batchNumber, Name: name}
	if err := nt.Validate(svc.validate); err != nil {
		return Title{}, false, err
	}
	t := Title{BatchNumber: nt.BatchNumber, Name: nt.Name, UpdatedAt: nowFunc().UTC()}
	created, err := svc.repo.UpsertTitle(ctx, t)
	if err != nil {
		return Title{}, false, err
	}
	return t, created, nil
}
