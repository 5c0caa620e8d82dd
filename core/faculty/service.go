// Package faculty manages staff accounts and their roles.
package faculty

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("faculty not found")
	ErrInvalidLogin = core.NewValidationError(errors.New("invalid credentials"))
)

const errExistsMsg = "Faculty ID must be unique"

// NewExistsError reports a duplicate faculty id.
func NewExistsError(id string) error {
	return core.NewConflictError(errExistsMsg, id)
}

type (
	Repository interface {
		// CreateFaculty fails with a conflict when the id is taken.
		CreateFaculty(ctx context.Context, f Faculty) (Faculty, error)
		GetFaculty(ctx context.Context, id string) (Faculty, error)
		QueryFaculties(ctx context.Context) ([]Faculty, error)
		UpdateFaculty(ctx context.Context, f Faculty) (Faculty, error)
		DeleteFaculty(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, nf NewFaculty) (Faculty, error)
		Authenticate(ctx context.Context, id, pwd string) (Faculty, error)
		Role(ctx context.Context, id string) (string, error)
		List(ctx context.Context) ([]Faculty, error)
		Get(ctx context.Context, id string) (Faculty, error)
		Update(ctx context.Context, id string, uf UpdateFaculty) (Faculty, error)
		Delete(ctx context.Context, id string) error
		ResetPassword(ctx context.Context, rp ResetPassword) error
		AddOrUpdate(ctx context.Context, nf NewFaculty) (Faculty, bool, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ ServiceInterface = (*Service)(nil)

var nowFunc = time.Now

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, nf NewFaculty) (Faculty, error) {
	if err := nf.Validate(svc.validate); err != nil {
		return Faculty{}, err
	}
	now := nowFunc().UTC()
	f := Faculty{
		ID:        nf.ID,
		Role:      nf.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.SetPassword(nf.Password); err != nil {
		return Faculty{}, err
	}
	return svc.repo.CreateFaculty(ctx, f)
}

// Authenticate checks a faculty member's credentials.
func (svc *Service) Authenticate(ctx context.Context, id, pwd string) (Faculty, error) {
	f, err := svc.repo.GetFaculty(ctx, core.CleanString(id))
	if err != nil {
		if core.IsNotFound(err) {
			return Faculty{}, ErrInvalidLogin
		}
		return Faculty{}, err
	}
	if err := f.CheckPassword(pwd); err != nil {
		return Faculty{}, ErrInvalidLogin
	}
	return f, nil
}

func (svc *Service) Role(ctx context.Context, id string) (string, error) {
	f, err := svc.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return f.Role, nil
}

func (svc *Service) List(ctx context.Context) ([]Faculty, error) {
	return svc.repo.QueryFaculties(ctx)
}

func (svc *Service) Get(ctx context.Context, id string) (Faculty, error) {
	return svc.repo.GetFaculty(ctx, core.CleanString(id))
}

func (svc *Service) Update(ctx context.Context, id string, uf UpdateFaculty) (Faculty, error) {
	f, err := svc.Get(ctx, id)
	if err != nil {
		return Faculty{}, err
	}
	uf.ID = f.ID
	if err := uf.Validate(svc.validate); err != nil {
		return Faculty{}, err
	}
	if uf.Role != "" {
		f.Role = uf.Role
	}
	if uf.Password != "" {
		if err := f.SetPassword(uf.Password); err != nil {
			return Faculty{}, err
		}
	}
	f.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateFaculty(ctx, f)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteFaculty(ctx, core.CleanString(id))
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	if err := rp.Validate(svc.validate); err != nil {
		return err
	}
	_, err := svc.Update(ctx, rp.ID, UpdateFaculty{Password: rp.Password})
	return err
}

// AddOrUpdate creates the faculty member or, when the id is taken, replaces their role and password.
// It reports whether the account was created.
func (svc *Service) AddOrUpdate(ctx context.Context, nf NewFaculty) (Faculty, bool, error) {
	f, err := svc.Create(ctx, nf)
	if err == nil {
		return f, true, nil
	}
	if !core.IsConflict(err) {
		return Faculty{}, false, err
	}
	f, err = svc.Update(ctx, nf.ID, UpdateFaculty{Role: nf.Role, Password: nf.Password})
	return f, false, err
}
