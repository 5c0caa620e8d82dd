package faculty

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/projhub/portal/core"
)

var Roles = core.FacultyRoles

type Faculty struct {
	ID           string    `json:"facultyId"`
	Role         string    `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
}

func (f *Faculty) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	f.PasswordHash = hash
	return nil
}

func (f *Faculty) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(f.PasswordHash, []byte(pwd))
}

// NewFaculty contains information needed to register a faculty member.
type NewFaculty struct {
	ID       string `json:"facultyId" validate:"notblank,max=50"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,facultyrole"`
}

func (nf *NewFaculty) Validate(validate *validator.Validate) error {
	nf.ID = core.CleanString(nf.ID)
	nf.Role = core.CleanString(nf.Role)
	return validate.Struct(nf)
}

// UpdateFaculty defines what may be changed on an existing Faculty.
type UpdateFaculty struct {
	Role     string `json:"role" validate:"omitempty,facultyrole"`
	Password string `json:"password"`
	ID       string `json:"-"` // used by the password policy
}

func (uf *UpdateFaculty) Validate(validate *validator.Validate) error {
	uf.Role = core.CleanString(uf.Role)
	return validate.Struct(uf)
}

// ResetPassword sets a new password for a faculty member.
type ResetPassword struct {
	ID       string `json:"facultyId" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error {
	rp.ID = core.CleanString(rp.ID)
	return validate.Struct(rp)
}
