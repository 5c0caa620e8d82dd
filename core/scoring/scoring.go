// Package scoring turns per-student review sheets into review totals, the total score,
// the average item score and an achievement tier.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Rubric dimensions.
const (
	EvaluationParameterCount = 15
	ProjectParameterCount    = 5
	ReviewRounds             = 4
	MinScore                 = 0
	MaxScore                 = 4

	MaxReviewTotal = (EvaluationParameterCount + ProjectParameterCount) * MaxScore
	MaxTotalScore  = ReviewRounds * MaxReviewTotal
)

// Kind is the parameter set a score belongs to.
type Kind int

const (
	Evaluation Kind = iota + 1
	ProjectSpecific
)

// prefix is the key prefix used on the wire and in storage.
func (k Kind) prefix() string {
	switch k {
	case Evaluation:
		return "param"
	case ProjectSpecific:
		return "specific"
	}
	return ""
}

// Count returns the number of parameters of kind k.
func (k Kind) Count() int {
	switch k {
	case Evaluation:
		return EvaluationParameterCount
	case ProjectSpecific:
		return ProjectParameterCount
	}
	return 0
}

type Parameter struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

var (
	EvaluationParameters = []Parameter{
		{1, "Identify engineering problem"},
		{2, "Formulate complex engineering problem"},
		{3, "Solve complex engineering problem"},
		{4, "Apply engineering design to produce solutions (safety)"},
		{5, "Apply engineering design to produce solutions (auxiliary)"},
		{6, "Apply engineering design to produce solutions (Global)"},
		{7, "Apply engineering design to produce solutions (economic)"},
		{8, "Communicate effectively"},
		{9, "Recognize ethical and professional responsibilities"},
		{10, "Function effectively on a team (goals)"},
		{11, "Function effectively on a team (plan tasks)"},
		{12, "Function effectively on a team (meet objectives)"},
		{13, "Develop and conduct appropriate experimentation (data interpretation)"},
		{14, "Conduct appropriate experimentation (conclusions)"},
		{15, "Acquire and apply new knowledge"},
	}

	ProjectParameters = []Parameter{
		{1, "Identification of tools/equipment/training needs etc"},
		{2, "Understanding by individual students on the overall aspect of the project"},
		{3, "Completion of literature survey"},
		{4, "Design of project set up and Implementation"},
		{5, "Presentation Skills"},
	}
)

// Key addresses one score: a parameter of a kind, in a review round.
type Key struct {
	Kind  Kind
	ID    int
	Round int
}

// String returns the storage form, e.g. `param_3_review_2`.
func (k Key) String() string {
	return fmt.Sprintf("%s_%d_review_%d", k.Kind.prefix(), k.ID, k.Round)
}

// Valid reports whether the key falls inside the rubric.
func (k Key) Valid() bool {
	n := k.Kind.Count()
	return n > 0 && k.ID >= 1 && k.ID <= n && k.Round >= 1 && k.Round <= ReviewRounds
}

// ParseKey parses `param_<id>_review_<n>` and `specific_<id>_review_<n>`.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 4 || parts[2] != "review" {
		return Key{}, fmt.Errorf("malformed score key %q", s)
	}

	var k Key
	switch parts[0] {
	case Evaluation.prefix():
		k.Kind = Evaluation
	case ProjectSpecific.prefix():
		k.Kind = ProjectSpecific
	default:
		return Key{}, fmt.Errorf("unknown parameter kind in %q", s)
	}

	var err error
	if k.ID, err = strconv.Atoi(parts[1]); err != nil {
		return Key{}, fmt.Errorf("malformed parameter id in %q", s)
	}
	if k.Round, err = strconv.Atoi(parts[3]); err != nil {
		return Key{}, fmt.Errorf("malformed review round in %q", s)
	}
	if !k.Valid() {
		return Key{}, fmt.Errorf("score key %q is outside the rubric", s)
	}
	return k, nil
}

// RoundKeys returns every key of a review round, evaluation parameters first.
func RoundKeys(round int) []Key {
	keys := make([]Key, 0, EvaluationParameterCount+ProjectParameterCount)
	for _, kind := range []Kind{Evaluation, ProjectSpecific} {
		for id := 1; id <= kind.Count(); id++ {
			keys = append(keys, Key{Kind: kind, ID: id, Round: round})
		}
	}
	return keys
}

// ValidateScore checks that v is a whole score in [MinScore, MaxScore].
func ValidateScore(v int) error {
	if v < MinScore || v > MaxScore {
		return fmt.Errorf("score must be between %d and %d", MinScore, MaxScore)
	}
	return nil
}

// Sheet holds one student's recorded scores. Absent keys are not yet scored.
type Sheet map[Key]int

// ReviewTotal sums every parameter of a review round. Unscored entries count as 0.
func (s Sheet) ReviewTotal(round int) int {
	var total int
	for _, k := range RoundKeys(round) {
		total += s[k]
	}
	return total
}

// Total sums the review totals of every round.
func (s Sheet) Total() int {
	var total int
	for round := 1; round <= ReviewRounds; round++ {
		total += s.ReviewTotal(round)
	}
	return total
}

// Summative is the mean recorded score per item across all rounds, rounded half up.
// It is 0 when nothing was scored.
func (s Sheet) Summative() int {
	var sum, count int
	for k, v := range s {
		if !k.Valid() {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0
	}
	return int(math.Floor(float64(sum)/float64(count) + 0.5))
}

// Raw returns the storage form of the sheet.
func (s Sheet) Raw() map[string]int {
	raw := make(map[string]int, len(s))
	for k, v := range s {
		raw[k.String()] = v
	}
	return raw
}

// Keys returns the sheet keys in rubric order: by round, then kind, then id.
func (s Sheet) Keys() []Key {
	keys := make([]Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ID < b.ID
	})
	return keys
}

// ParseSheet converts a stored sheet. Stored data was validated on the way in,
// so an unknown key or an out-of-range value is reported as an error.
func ParseSheet(raw map[string]int) (Sheet, error) {
	s := make(Sheet, len(raw))
	for rk, v := range raw {
		k, err := ParseKey(rk)
		if err != nil {
			return nil, err
		}
		if err := ValidateScore(v); err != nil {
			return nil, fmt.Errorf("%s: %v", rk, err)
		}
		s[k] = v
	}
	return s, nil
}

func (k Key) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
