// Package attendance keeps the daily attendance registers.
package attendance

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/batch"
)

// NeverPresent is reported for a student with no recorded presence.
const NeverPresent = "-"

const submissionsSheetName = "Submissions"

var (
	// errors
	ErrNotFound = core.NewNotFoundError("attendance not found")

	SubmissionHeaders = []string{"RegdnO", "Date"}
)

type (
	Repository interface {
		GetAttendance(ctx context.Context, date string) (Attendance, error)
		// MergeAttendance sets the given entries on the date's register, creating it when needed,
		// and returns the merged register. The merge is atomic per date.
		MergeAttendance(ctx context.Context, a Attendance) (Attendance, error)
		// QueryAttendance returns every register ordered by date.
		QueryAttendance(ctx context.Context) ([]Attendance, error)
		DeleteAllAttendance(ctx context.Context) (int64, error)
	}

	ServiceInterface interface {
		Mark(ctx context.Context, m Mark) (Attendance, error)
		Get(ctx context.Context, date string) (Attendance, error)
		Roster(ctx context.Context) (Roster, error)
		FirstPresence(ctx context.Context, regNo string) (string, error)
		Submissions(ctx context.Context) ([]Submission, error)
		ExportSubmissions(ctx context.Context, w io.Writer) error
		DeleteAll(ctx context.Context) (int64, error)
	}

	Service struct {
		repo     Repository
		sheets   core.Spreadsheet
		validate *validator.Validate
	}
)

var _ ServiceInterface = (*Service)(nil)

var nowFunc = time.Now

func NewService(repo Repository, sheets core.Spreadsheet, validate *validator.Validate) *Service {
	return &Service{repo: repo, sheets: sheets, validate: validate}
}

// Mark merges the entries into the date's register: entries for other students are kept.
func (svc *Service) Mark(ctx context.Context, m Mark) (Attendance, error) {
	if err := m.Validate(svc.validate); err != nil {
		return Attendance{}, err
	}
	a, err := svc.repo.MergeAttendance(ctx, Attendance{
		Date:       m.Date,
		Attendance: m.Attendance,
		UpdatedAt:  nowFunc().UTC(),
	})
	if err != nil {
		return Attendance{}, errors.Wrap(err, "merging attendance")
	}
	return a, nil
}

// Get returns the register of a date; an unrecorded date yields an empty one.
func (svc *Service) Get(ctx context.Context, date string) (Attendance, error) {
	date = core.CleanString(date)
	a, err := svc.repo.GetAttendance(ctx, date)
	if err != nil {
		if core.IsNotFound(err) {
			return Attendance{Date: date, Attendance: map[string]bool{}}, nil
		}
		return Attendance{}, err
	}
	if a.Attendance == nil {
		a.Attendance = map[string]bool{}
	}
	return a, nil
}

func (svc *Service) Roster(ctx context.Context) (Roster, error) {
	all, err := svc.repo.QueryAttendance(ctx)
	if err != nil {
		return Roster{}, errors.Wrap(err, "querying attendance")
	}
	students := make(map[string]bool)
	roster := Roster{Students: []string{}, Dates: make([]string, 0, len(all))}
	for _, a := range all {
		roster.Dates = append(roster.Dates, a.Date)
		for regNo := range a.Attendance {
			if !students[regNo] {
				students[regNo] = true
				roster.Students = append(roster.Students, regNo)
			}
		}
	}
	sort.Strings(roster.Students)
	sort.Strings(roster.Dates)
	return roster, nil
}

// FirstPresence returns the earliest date the student was marked present, or NeverPresent.
func (svc *Service) FirstPresence(ctx context.Context, regNo string) (string, error) {
	regNo = batch.NormalizeRegNo(regNo)
	all, err := svc.repo.QueryAttendance(ctx)
	if err != nil {
		return "", errors.Wrap(err, "querying attendance")
	}
	for _, a := range all {
		if a.Attendance[regNo] {
			return a.Date, nil
		}
	}
	return NeverPresent, nil
}

// Submissions lists, per student, the latest date attendance was recorded for them.
func (svc *Service) Submissions(ctx context.Context) ([]Submission, error) {
	all, err := svc.repo.QueryAttendance(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	latest := make(map[string]string)
	for _, a := range all {
		for regNo := range a.Attendance {
			if a.Date > latest[regNo] {
				latest[regNo] = a.Date
			}
		}
	}
	subs := make([]Submission, 0, len(latest))
	for regNo, date := range latest {
		subs = append(subs, Submission{RegNo: regNo, Date: date})
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].RegNo < subs[j].RegNo })
	return subs, nil
}

// ExportSubmissions writes the submissions as a workbook.
func (svc *Service) ExportSubmissions(ctx context.Context, w io.Writer) error {
	subs, err := svc.Submissions(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		rows = append(rows, []string{s.RegNo, s.Date})
	}
	return svc.sheets.Write(w, submissionsSheetName, SubmissionHeaders, rows)
}

func (svc *Service) DeleteAll(ctx context.Context) (int64, error) {
	return svc.repo.DeleteAllAttendance(ctx)
}
