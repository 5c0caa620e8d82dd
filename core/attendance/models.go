package attendance

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/batch"
)

// Attendance is the register of one calendar day, keyed by registration number.
type Attendance struct {
	Date       string          `json:"date"`
	Attendance map[string]bool `json:"attendance"`
	UpdatedAt  time.Time       `json:"updatedAt,omitempty"` // UTC
}

// Mark records presence for some students on a date. Entries are merged into the day's register.
type Mark struct {
	Date       string          `json:"date" validate:"isodate"`
	Attendance map[string]bool `json:"attendance" validate:"required,min=1,dive,keys,regno,endkeys"`
}

// Validate upper-cases the registration numbers, then validates the mark.
// Keys that only differ by case are rejected.
func (m *Mark) Validate(validate *validator.Validate) error {
	m.Date = core.CleanString(m.Date)
	var repeated []string
	if len(m.Attendance) > 0 {
		normalized := make(map[string]bool, len(m.Attendance))
		for raw, present := range m.Attendance {
			regNo := batch.NormalizeRegNo(raw)
			if _, ok := normalized[regNo]; ok {
				repeated = append(repeated, regNo)
			}
			normalized[regNo] = present
		}
		m.Attendance = normalized
	}
	if err := validate.Struct(m); err != nil {
		return err
	}

	if len(repeated) > 0 {
		sort.Strings(repeated)
		flds := make([]core.FieldError, 0, len(repeated))
		for i, regNo := range repeated {
			if i > 0 && repeated[i-1] == regNo {
				continue
			}
			flds = append(flds, core.FieldError{
				Field: "attendance." + regNo,
				Error: "registration number is repeated",
			})
		}
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Roster lists every student and every date present in the attendance registers.
type Roster struct {
	Students []string `json:"students"`
	Dates    []string `json:"dates"`
}

// Submission is the latest date on which attendance was recorded for a student.
type Submission struct {
	RegNo string `json:"RegdnO"`
	Date  string `json:"Date"`
}
