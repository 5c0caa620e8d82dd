package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/projhub/portal/core"
)

type Batch struct {
	Number       string    `json:"batchNumber"`
	Title        string    `json:"title"` // domain
	Students     []string  `json:"students"`
	ProjectTitle string    `json:"projectTitle,omitempty"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
}

func (b *Batch) SetPassword(pwd string) error {
	hash, err := hashPassword(pwd)
	if err != nil {
		return err
	}
	b.PasswordHash = hash
	return nil
}

type Student struct {
	RegNo        string    `json:"registrationNumber"`
	Section      string    `json:"section"`
	BatchNumber  string    `json:"batchNumber"`
	BatchTitle   string    `json:"batchTitle"`
	ProjectTitle string    `json:"projectTitle,omitempty"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
}

func (s *Student) SetPassword(pwd string) error {
	hash, err := hashPassword(pwd)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *Student) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

func hashPassword(pwd string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
}

// NormalizeRegNo trims and upper-cases a registration number.
func NormalizeRegNo(regNo string) string {
	return strings.ToUpper(strings.TrimSpace(regNo))
}

// NewStudent is one member of a batch signup.
type NewStudent struct {
	RegNo   string `json:"regNo" validate:"required,regno"`
	Section string `json:"section" validate:"notblank"`
}

// Signup registers a batch and its students with a shared password.
type Signup struct {
	BatchNumber     string       `json:"batchNumber"`
	BatchTitle      string       `json:"batchTitle" validate:"notblank"`
	Students        []NewStudent `json:"students" validate:"required,min=1,dive"`
	Password        string       `json:"password" validate:"required"`
	PasswordConfirm string       `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// Validate cleans the signup, dropping blank student rows, then validates it.
func (su *Signup) Validate(validate *validator.Validate, minPwdLen int) error {
	su.BatchNumber = core.CleanString(su.BatchNumber)
	su.BatchTitle = core.CleanString(su.BatchTitle)

	students := make([]NewStudent, 0, len(su.Students))
	for _, ns := range su.Students {
		ns.RegNo = NormalizeRegNo(ns.RegNo)
		ns.Section = core.CleanString(ns.Section)
		if ns.RegNo == "" {
			continue
		}
		students = append(students, ns)
	}
	su.Students = students

	if err := validate.Struct(su); err != nil {
		return err
	}

	var flds []core.FieldError
	if len(su.Password) < minPwdLen {
		flds = append(flds, core.FieldError{
			Field: "password",
			Error: fmt.Sprintf("password must contain at least %d characters", minPwdLen),
		})
	}
	seen := make(map[string]struct{}, len(su.Students))
	for i, ns := range su.Students {
		if _, ok := seen[ns.RegNo]; ok {
			flds = append(flds, core.FieldError{
				Field: fmt.Sprintf("students[%d].regNo", i),
				Error: "registration number is repeated",
			})
		}
		seen[ns.RegNo] = struct{}{}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// RegNos returns the registration numbers of the signup, in order.
func (su *Signup) RegNos() []string {
	regNos := make([]string, 0, len(su.Students))
	for _, ns := range su.Students {
		regNos = append(regNos, ns.RegNo)
	}
	return regNos
}

// CheckRegNos asks whether any of RegNos is already registered.
type CheckRegNos struct {
	RegNos []string `json:"regNos" validate:"required,min=1,dive,notblank"`
}

func (c *CheckRegNos) Validate(validate *validator.Validate) error {
	for i, r := range c.RegNos {
		c.RegNos[i] = NormalizeRegNo(r)
	}
	return validate.Struct(c)
}

// UpdateBatch defines what may be changed on an existing Batch.
type UpdateBatch struct {
	Title string `json:"title" validate:"max=200"`
}

func (ub *UpdateBatch) Validate(validate *validator.Validate) error {
	ub.Title = core.CleanString(ub.Title)
	return validate.Struct(ub)
}

// UpdateStudent defines what may be changed on an existing Student.
type UpdateStudent struct {
	Section string `json:"section" validate:"max=20"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Section = core.CleanString(us.Section)
	return validate.Struct(us)
}

// ProjectTitleRequest sets a batch's project title.
type ProjectTitleRequest struct {
	ProjectTitle string `json:"projectTitle" validate:"notblank"`
}

func (r *ProjectTitleRequest) Validate(validate *validator.Validate) error {
	r.ProjectTitle = core.CleanString(r.ProjectTitle)
	return validate.Struct(r)
}

// Details is a student with their batch.
type Details struct {
	Student Student `json:"student"`
	Batch   *Batch  `json:"batch"`
}
