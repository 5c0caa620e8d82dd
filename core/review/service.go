// Package review stores the per-batch review score sheets and derives the
// aggregates shown to students and coordinators.
package review

import (
	"context"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/allocation"
	"github.com/projhub/portal/core/batch"
	"github.com/projhub/portal/core/scoring"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("review not found")
)

const reportSheetName = "Review Report"

// ReportHeaders are the columns of the exported review report.
var ReportHeaders = []string{
	"Section", "Batch Number", "Registration Number",
	"Review 1", "Review 2", "Review 3", "Review 4",
	"Average Item Score", "Total Score", "Achievement",
}

type (
	Repository interface {
		GetReview(ctx context.Context, batchNumber string) (Review, error)
		// ReplaceReview overwrites the whole document of the batch.
		ReplaceReview(ctx context.Context, r Review) error
		QueryReviews(ctx context.Context) ([]Review, error)
	}

	// Roster lists registered students; batch.Service satisfies it.
	Roster interface {
		Students(ctx context.Context, batchNumber string) ([]batch.Student, error)
	}

	ServiceInterface interface {
		Save(ctx context.Context, sub Submission) (Review, error)
		Get(ctx context.Context, batchNumber string) (Review, error)
		ReviewTotal(ctx context.Context, batchNumber, regNo string, round int) (int, error)
		TotalScore(ctx context.Context, batchNumber, regNo string) (int, error)
		SummativeReview(ctx context.Context, batchNumber, regNo string) (int, error)
		Scorecard(ctx context.Context, batchNumber, regNo string) (Scorecard, error)
		Report(ctx context.Context) ([]ReportRow, error)
		ExportReport(ctx context.Context, w io.Writer) error
	}

	Service struct {
		repo       Repository
		roster     Roster
		sheets     core.Spreadsheet
		validate   *validator.Validate
		tiers      scoring.Tiers
		unassigned string
	}
)

var _ ServiceInterface = (*Service)(nil)

var nowFunc = time.Now

func NewService(
	repo Repository,
	roster Roster,
	sheets core.Spreadsheet,
	validate *validator.Validate,
	tiers scoring.Tiers,
	conf core.AllocationConfig,
) *Service {
	return &Service{
		repo:       repo,
		roster:     roster,
		sheets:     sheets,
		validate:   validate,
		tiers:      tiers,
		unassigned: conf.UnassignedLabel,
	}
}

// Save decodes every sheet of the submission and replaces the batch's review.
// Nothing is written when any score is rejected.
func (svc *Service) Save(ctx context.Context, sub Submission) (Review, error) {
	if err := sub.Validate(svc.validate); err != nil {
		return Review{}, err
	}

	r := Review{
		BatchNumber: sub.BatchNumber,
		Reviews:     make(map[string]scoring.Sheet, len(sub.Reviews)),
		UpdatedAt:   nowFunc().UTC(),
	}
	var fieldErrs []core.FieldError
	keys := make(map[string]int, len(sub.Reviews))
	for rawRegNo := range sub.Reviews {
		keys[batch.NormalizeRegNo(rawRegNo)]++
	}
	for regNo, n := range keys {
		if n > 1 {
			fieldErrs = append(fieldErrs, core.FieldError{
				Field: "reviews." + regNo,
				Error: "registration number is repeated",
			})
		}
	}
	for rawRegNo, rawSheet := range sub.Reviews {
		regNo := batch.NormalizeRegNo(rawRegNo)
		if err := svc.validate.Var(regNo, "regno"); err != nil {
			fieldErrs = append(fieldErrs, core.FieldError{
				Field: "reviews." + rawRegNo,
				Error: "not a valid registration number",
			})
			continue
		}
		if keys[regNo] > 1 {
			continue
		}
		sheet, errs := scoring.DecodeSheet(rawSheet)
		for _, fe := range errs {
			fe.Field = "reviews." + regNo + "." + fe.Field
			fieldErrs = append(fieldErrs, fe)
		}
		if len(errs) == 0 {
			r.Reviews[regNo] = sheet
		}
	}
	if len(fieldErrs) > 0 {
		sort.Slice(fieldErrs, func(i, j int) bool { return fieldErrs[i].Field < fieldErrs[j].Field })
		return Review{}, core.NewValidationError(nil, fieldErrs...)
	}

	if err := svc.repo.ReplaceReview(ctx, r); err != nil {
		return Review{}, errors.Wrap(err, "replacing review")
	}
	return r, nil
}

// Get returns the batch's review; a batch never reviewed yields an empty one.
func (svc *Service) Get(ctx context.Context, batchNumber string) (Review, error) {
	batchNumber = core.CleanString(batchNumber)
	r, err := svc.repo.GetReview(ctx, batchNumber)
	if err != nil {
		if core.IsNotFound(err) {
			return Review{BatchNumber: batchNumber, Reviews: map[string]scoring.Sheet{}}, nil
		}
		return Review{}, err
	}
	if r.Reviews == nil {
		r.Reviews = map[string]scoring.Sheet{}
	}
	return r, nil
}

func (svc *Service) sheet(ctx context.Context, batchNumber, regNo string) (scoring.Sheet, error) {
	r, err := svc.Get(ctx, batchNumber)
	if err != nil {
		return nil, err
	}
	return r.Sheet(batch.NormalizeRegNo(regNo)), nil
}

func (svc *Service) ReviewTotal(ctx context.Context, batchNumber, regNo string, round int) (int, error) {
	if round < 1 || round > scoring.ReviewRounds {
		return 0, core.NewValidationError(nil, core.FieldError{
			Field: "round",
			Error: "must be between 1 and " + strconv.Itoa(scoring.ReviewRounds),
		})
	}
	sheet, err := svc.sheet(ctx, batchNumber, regNo)
	if err != nil {
		return 0, err
	}
	return sheet.ReviewTotal(round), nil
}

func (svc *Service) TotalScore(ctx context.Context, batchNumber, regNo string) (int, error) {
	sheet, err := svc.sheet(ctx, batchNumber, regNo)
	if err != nil {
		return 0, err
	}
	return sheet.Total(), nil
}

// SummativeReview returns the average item score of a student.
func (svc *Service) SummativeReview(ctx context.Context, batchNumber, regNo string) (int, error) {
	sheet, err := svc.sheet(ctx, batchNumber, regNo)
	if err != nil {
		return 0, err
	}
	return sheet.Summative(), nil
}

func (svc *Service) Scorecard(ctx context.Context, batchNumber, regNo string) (Scorecard, error) {
	sheet, err := svc.sheet(ctx, batchNumber, regNo)
	if err != nil {
		return Scorecard{}, err
	}
	return NewScorecard(core.CleanString(batchNumber), batch.NormalizeRegNo(regNo), sheet, svc.tiers), nil
}

// Report lists a scorecard for every registered student, plus any reviewed student
// missing from the roster. Rows are ordered by section, batch then registration number;
// the unassigned section comes last.
func (svc *Service) Report(ctx context.Context) ([]ReportRow, error) {
	students, err := svc.roster.Students(ctx, "")
	if err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	reviews, err := svc.repo.QueryReviews(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying reviews")
	}
	byBatch := make(map[string]Review, len(reviews))
	for _, r := range reviews {
		byBatch[r.BatchNumber] = r
	}

	type seenKey struct{ batch, regNo string }
	seen := make(map[seenKey]bool, len(students))
	rows := make([]ReportRow, 0, len(students))
	for _, s := range students {
		seen[seenKey{s.BatchNumber, s.RegNo}] = true
		rows = append(rows, ReportRow{
			Section:   svc.sectionOf(s.Section),
			Scorecard: NewScorecard(s.BatchNumber, s.RegNo, byBatch[s.BatchNumber].Sheet(s.RegNo), svc.tiers),
		})
	}
	for _, r := range reviews {
		for regNo, sheet := range r.Reviews {
			if seen[seenKey{r.BatchNumber, regNo}] {
				continue
			}
			rows = append(rows, ReportRow{
				Section:   svc.unassigned,
				Scorecard: NewScorecard(r.BatchNumber, regNo, sheet, svc.tiers),
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Section != b.Section {
			if a.Section == svc.unassigned || b.Section == svc.unassigned {
				return b.Section == svc.unassigned
			}
			return a.Section < b.Section
		}
		if a.BatchNumber != b.BatchNumber {
			return allocation.LessBatch(a.BatchNumber, b.BatchNumber)
		}
		return a.RegNo < b.RegNo
	})
	return rows, nil
}

// ExportReport writes the report as a workbook.
func (svc *Service) ExportReport(ctx context.Context, w io.Writer) error {
	rows, err := svc.Report(ctx)
	if err != nil {
		return err
	}
	grid := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := []string{r.Section, r.BatchNumber, r.RegNo}
		for _, t := range r.ReviewTotals {
			line = append(line, strconv.Itoa(t))
		}
		line = append(line, strconv.Itoa(r.AverageItemScore), strconv.Itoa(r.TotalScore), r.TierLabel)
		grid = append(grid, line)
	}
	return svc.sheets.Write(w, reportSheetName, ReportHeaders, grid)
}

func (svc *Service) sectionOf(section string) string {
	if section = core.CleanString(section); section == "" {
		return svc.unassigned
	}
	return section
}
