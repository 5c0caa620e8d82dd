package scoring

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/projhub/portal/core"
)

const (
	errNotInteger = "score must be a whole number"
	errNotNumber  = "score must be a number"
)

// DecodeSheet validates an inbound sheet keyed by storage-form keys.
// Numbers and numeric strings are accepted; nil and empty strings mean "not scored" and are dropped.
// Every offending key is reported; the sheet is only returned when there are none.
func DecodeSheet(raw map[string]interface{}) (Sheet, []core.FieldError) {
	var (
		sheet = make(Sheet, len(raw))
		errs  []core.FieldError
	)
	for rk, rv := range raw {
		k, err := ParseKey(rk)
		if err != nil {
			errs = append(errs, core.FieldError{Field: rk, Error: err.Error()})
			continue
		}
		v, ok, msg := scoreValue(rv)
		if msg != "" {
			errs = append(errs, core.FieldError{Field: rk, Error: msg})
			continue
		}
		if !ok {
			continue
		}
		if err := ValidateScore(v); err != nil {
			errs = append(errs, core.FieldError{Field: rk, Error: err.Error()})
			continue
		}
		sheet[k] = v
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
		return nil, errs
	}
	return sheet, nil
}

// scoreValue extracts an integer score. ok is false for an unscored entry;
// msg is set when the value is not acceptable.
func scoreValue(rv interface{}) (v int, ok bool, msg string) {
	var f float64
	switch n := rv.(type) {
	case nil:
		return 0, false, ""
	case int:
		return n, true, ""
	case int64:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false, errNotNumber
		}
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false, ""
		}
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false, errNotNumber
		}
	default:
		return 0, false, errNotNumber
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false, errNotInteger
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false, "score is out of range"
	}
	return int(f), true, ""
}
