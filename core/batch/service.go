// Package batch manages project batches and their student rosters.
package batch

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/title"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("batch not found")
	ErrStudentNotFound = core.NewNotFoundError("student not found")
	ErrInvalidLogin    = core.NewValidationError(errors.New("invalid credentials"))
)

const errRegNosExistMsg = "some registration numbers already exist"

// NewRegNosExistError lists the registration numbers that are already registered.
func NewRegNosExistError(regNos ...string) error {
	return core.NewConflictError(errRegNosExistMsg, regNos...)
}

// NewBatchExistsError reports a duplicate batch number.
func NewBatchExistsError(number string) error {
	return core.NewConflictError("batch number already exists", number)
}

type (
	Repository interface {
		// NextBatchNumber draws the next identifier from a store-side sequence.
		NextBatchNumber(ctx context.Context) (string, error)
		CreateBatch(ctx context.Context, b Batch) (Batch, error)
		GetBatch(ctx context.Context, number string) (Batch, error)
		QueryBatches(ctx context.Context) ([]Batch, error)
		UpdateBatch(ctx context.Context, b Batch) (Batch, error)
		SetBatchProjectTitle(ctx context.Context, number, projectTitle string) error
		DeleteBatch(ctx context.Context, number string) error
		// RemoveFromRoster drops `regNo` from the batch's student list.
		RemoveFromRoster(ctx context.Context, number, regNo string) error
		// FindRostered returns the numbers among `regNos` listed in any batch roster.
		FindRostered(ctx context.Context, regNos []string) ([]string, error)

		// CreateStudents fails with a conflict listing every registration number already taken.
		CreateStudents(ctx context.Context, students []Student) error
		// FindStudents returns the students among `regNos` that exist.
		FindStudents(ctx context.Context, regNos []string) ([]Student, error)
		GetStudent(ctx context.Context, regNo string) (Student, error)
		// QueryStudents returns every student, or those of a batch when `batchNumber` is set.
		QueryStudents(ctx context.Context, batchNumber string) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		SetStudentsProjectTitle(ctx context.Context, batchNumber, projectTitle string) error
		DeleteStudent(ctx context.Context, regNo string) error
		DeleteStudents(ctx context.Context, batchNumber string) (int64, error)
	}

	ServiceInterface interface {
		Signup(ctx context.Context, su Signup) (Batch, []Student, error)
		CheckRegistrationNumbers(ctx context.Context, regNos []string) error
		Get(ctx context.Context, number string) (Batch, error)
		List(ctx context.Context) ([]Batch, error)
		Update(ctx context.Context, number string, ub UpdateBatch) (Batch, error)
		Delete(ctx context.Context, number string) error
		SetProjectTitle(ctx context.Context, number, projectTitle string) (created bool, err error)
		ProjectTitle(ctx context.Context, number string) (string, error)
		Student(ctx context.Context, regNo string) (Student, error)
		Students(ctx context.Context, batchNumber string) ([]Student, error)
		StudentDetails(ctx context.Context, regNo string) (Details, error)
		UpdateStudent(ctx context.Context, regNo string, us UpdateStudent) (Student, error)
		DeleteStudent(ctx context.Context, regNo string) error
		Authenticate(ctx context.Context, regNo, pwd string) (Student, error)
	}

	Service struct {
		repo      Repository
		titles    title.ServiceInterface
		validate  *validator.Validate
		minPwdLen int
	}
)

var _ ServiceInterface = (*Service)(nil)

var nowFunc = time.Now

func NewService(repo Repository, titles title.ServiceInterface, validate *validator.Validate, conf core.SignupConfig) *Service {
	return &Service{
		repo:      repo,
		titles:    titles,
		validate:  validate,
		minPwdLen: conf.MinPasswordLength,
	}
}

// Signup validates the request, rejects it when any registration number is taken,
// then creates the batch followed by its students. The two writes are independent.
func (svc *Service) Signup(ctx context.Context, su Signup) (Batch, []Student, error) {
	if err := su.Validate(svc.validate, svc.minPwdLen); err != nil {
		return Batch{}, nil, err
	}
	regNos := su.RegNos()
	if err := svc.CheckRegistrationNumbers(ctx, regNos); err != nil {
		return Batch{}, nil, err
	}

	number := su.BatchNumber
	if number == "" {
		var err error
		if number, err = svc.repo.NextBatchNumber(ctx); err != nil {
			return Batch{}, nil, errors.Wrap(err, "drawing batch number")
		}
	}

	now := nowFunc().UTC()
	b := Batch{
		Number:    number,
		Title:     su.BatchTitle,
		Students:  regNos,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.SetPassword(su.Password); err != nil {
		return Batch{}, nil, err
	}
	students := make([]Student, 0, len(su.Students))
	for _, ns := range su.Students {
		students = append(students, Student{
			RegNo:        ns.RegNo,
			Section:      ns.Section,
			BatchNumber:  number,
			BatchTitle:   su.BatchTitle,
			PasswordHash: b.PasswordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	b, err := svc.repo.CreateBatch(ctx, b)
	if err != nil {
		return Batch{}, nil, errors.Wrap(err, "creating batch")
	}
	if err := svc.repo.CreateStudents(ctx, students); err != nil {
		return b, nil, errors.Wrap(err, "creating students")
	}
	return b, students, nil
}

// CheckRegistrationNumbers fails with a conflict listing exactly the numbers already registered,
// either as a student or on a batch roster.
func (svc *Service) CheckRegistrationNumbers(ctx context.Context, regNos []string) error {
	existing, err := svc.repo.FindStudents(ctx, regNos)
	if err != nil {
		return errors.Wrap(err, "finding students")
	}
	rostered, err := svc.repo.FindRostered(ctx, regNos)
	if err != nil {
		return errors.Wrap(err, "finding rostered students")
	}

	seen := make(map[string]bool, len(existing)+len(rostered))
	var taken []string
	for _, s := range existing {
		rostered = append(rostered, s.RegNo)
	}
	for _, regNo := range rostered {
		if !seen[regNo] {
			seen[regNo] = true
			taken = append(taken, regNo)
		}
	}
	if len(taken) > 0 {
		sort.Strings(taken)
		return NewRegNosExistError(taken...)
	}
	return nil
}

// Get returns a batch with its project title resolved from the title registry.
func (svc *Service) Get(ctx context.Context, number string) (Batch, error) {
	b, err := svc.repo.GetBatch(ctx, core.CleanString(number))
	if err != nil {
		return Batch{}, err
	}
	if t, err := svc.titles.Get(ctx, b.Number); err == nil {
		b.ProjectTitle = t.Name
	} else if !core.IsNotFound(err) {
		return Batch{}, errors.Wrap(err, "getting title")
	}
	return b, nil
}

func (svc *Service) List(ctx context.Context) ([]Batch, error) {
	return svc.repo.QueryBatches(ctx)
}

func (svc *Service) Update(ctx context.Context, number string, ub UpdateBatch) (Batch, error) {
	if err := ub.Validate(svc.validate); err != nil {
		return Batch{}, err
	}
	b, err := svc.repo.GetBatch(ctx, core.CleanString(number))
	if err != nil {
		return Batch{}, err
	}
	if ub.Title != "" {
		b.Title = ub.Title
	}
	b.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateBatch(ctx, b)
}

// Delete removes the batch and the students registered in it.
func (svc *Service) Delete(ctx context.Context, number string) error {
	number = core.CleanString(number)
	if err := svc.repo.DeleteBatch(ctx, number); err != nil {
		return err
	}
	if _, err := svc.repo.DeleteStudents(ctx, number); err != nil {
		return errors.Wrap(err, "deleting batch students")
	}
	return nil
}

// SetProjectTitle records the title in the title registry, then stamps the copies held by
// the batch and its students. A batch number unknown to the roster only gets the registry entry.
// A failure after the first write is returned as is; earlier writes are kept.
func (svc *Service) SetProjectTitle(ctx context.Context, number, projectTitle string) (bool, error) {
	t, created, err := svc.titles.Set(ctx, number, projectTitle)
	if err != nil {
		return false, err
	}

	if err := svc.repo.SetBatchProjectTitle(ctx, t.BatchNumber, t.Name); err != nil {
		if core.IsNotFound(err) {
			return created, nil
		}
		return created, errors.Wrap(err, "setting batch project title")
	}
	if err := svc.repo.SetStudentsProjectTitle(ctx, t.BatchNumber, t.Name); err != nil {
		return created, errors.Wrap(err, "setting students project title")
	}
	return created, nil
}

// ProjectTitle resolves a batch's project title: the registry first, then the batch's own copy.
func (svc *Service) ProjectTitle(ctx context.Context, number string) (string, error) {
	number = core.CleanString(number)
	t, err := svc.titles.Get(ctx, number)
	if err == nil {
		return t.Name, nil
	}
	if !core.IsNotFound(err) {
		return "", errors.Wrap(err, "getting title")
	}

	b, err := svc.repo.GetBatch(ctx, number)
	if err != nil {
		if core.IsNotFound(err) {
			return "", title.ErrNotFound
		}
		return "", err
	}
	if b.ProjectTitle == "" {
		return "", title.ErrNotFound
	}
	return b.ProjectTitle, nil
}

func (svc *Service) Student(ctx context.Context, regNo string) (Student, error) {
	return svc.repo.GetStudent(ctx, NormalizeRegNo(regNo))
}

func (svc *Service) Students(ctx context.Context, batchNumber string) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, core.CleanString(batchNumber))
}

// StudentDetails returns a student with their batch. Registration numbers match case-insensitively.
func (svc *Service) StudentDetails(ctx context.Context, regNo string) (Details, error) {
	s, err := svc.Student(ctx, regNo)
	if err != nil {
		return Details{}, err
	}
	d := Details{Student: s}
	b, err := svc.Get(ctx, s.BatchNumber)
	switch {
	case err == nil:
		d.Batch = &b
	case !core.IsNotFound(err):
		return Details{}, errors.Wrap(err, "getting batch")
	}
	return d, nil
}

func (svc *Service) UpdateStudent(ctx context.Context, regNo string, us UpdateStudent) (Student, error) {
	if err := us.Validate(svc.validate); err != nil {
		return Student{}, err
	}
	s, err := svc.Student(ctx, regNo)
	if err != nil {
		return Student{}, err
	}
	if us.Section != "" {
		s.Section = us.Section
	}
	s.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}

// DeleteStudent removes the student and takes them off their batch roster.
func (svc *Service) DeleteStudent(ctx context.Context, regNo string) error {
	s, err := svc.Student(ctx, regNo)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteStudent(ctx, s.RegNo); err != nil {
		return err
	}
	if err := svc.repo.RemoveFromRoster(ctx, s.BatchNumber, s.RegNo); err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "removing student from roster")
	}
	return nil
}

// Authenticate checks a student's credentials.
func (svc *Service) Authenticate(ctx context.Context, regNo, pwd string) (Student, error) {
	s, err := svc.Student(ctx, regNo)
	if err != nil {
		if core.IsNotFound(err) {
			return Student{}, ErrInvalidLogin
		}
		return Student{}, err
	}
	if err := s.CheckPassword(pwd); err != nil {
		return Student{}, ErrInvalidLogin
	}
	return s, nil
}
