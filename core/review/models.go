package review

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/scoring"
)

// Review holds the score sheets of a batch, keyed by registration number.
// A submission replaces the whole document.
type Review struct {
	BatchNumber string                   `json:"batchNumber"`
	Reviews     map[string]scoring.Sheet `json:"reviews"`
	UpdatedAt   time.Time                `json:"updatedAt,omitempty"` // UTC
}

// Sheet returns the sheet of a student; nil when they were never scored.
func (r Review) Sheet(regNo string) scoring.Sheet {
	return r.Reviews[regNo]
}

// Raw returns the storage form of the score sheets.
func (r Review) Raw() map[string]map[string]int {
	raw := make(map[string]map[string]int, len(r.Reviews))
	for regNo, sheet := range r.Reviews {
		raw[regNo] = sheet.Raw()
	}
	return raw
}

// FromRaw rebuilds a Review from its storage form.
func FromRaw(batchNumber string, raw map[string]map[string]int, updatedAt time.Time) (Review, error) {
	r := Review{BatchNumber: batchNumber, Reviews: make(map[string]scoring.Sheet, len(raw)), UpdatedAt: updatedAt}
	for regNo, rs := range raw {
		sheet, err := scoring.ParseSheet(rs)
		if err != nil {
			return Review{}, err
		}
		r.Reviews[regNo] = sheet
	}
	return r, nil
}

// Submission is the inbound form of a Review: loosely typed sheets, decoded strictly.
type Submission struct {
	BatchNumber string                            `json:"batchNumber" validate:"notblank"`
	Reviews     map[string]map[string]interface{} `json:"reviews" validate:"required"`
}

func (s *Submission) Validate(validate *validator.Validate) error {
	s.BatchNumber = core.CleanString(s.BatchNumber)
	return validate.Struct(s)
}

// Scorecard is the aggregate view of one student's sheet.
type Scorecard struct {
	BatchNumber      string       `json:"batchNumber"`
	RegNo            string       `json:"registrationNumber"`
	ReviewTotals     []int        `json:"reviewTotals"` // rounds 1..4
	MaxReviewTotal   int          `json:"maxReviewTotal"`
	AverageItemScore int          `json:"averageItemScore"`
	TotalScore       int          `json:"totalScore"`
	MaxTotalScore    int          `json:"maxTotalScore"`
	Tier             scoring.Tier `json:"tier"`
	TierLabel        string       `json:"tierLabel"`
}

// NewScorecard computes the aggregates of `sheet`.
func NewScorecard(batchNumber, regNo string, sheet scoring.Sheet, tiers scoring.Tiers) Scorecard {
	totals := make([]int, 0, scoring.ReviewRounds)
	for round := 1; round <= scoring.ReviewRounds; round++ {
		totals = append(totals, sheet.ReviewTotal(round))
	}
	total := sheet.Total()
	tier := tiers.Classify(total)
	return Scorecard{
		BatchNumber:      batchNumber,
		RegNo:            regNo,
		ReviewTotals:     totals,
		MaxReviewTotal:   scoring.MaxReviewTotal,
		AverageItemScore: sheet.Summative(),
		TotalScore:       total,
		MaxTotalScore:    scoring.MaxTotalScore,
		Tier:             tier,
		TierLabel:        tier.Label(),
	}
}

// ReportRow is one student in the review report.
type ReportRow struct {
	Section string `json:"section"`
	Scorecard
}
