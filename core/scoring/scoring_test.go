package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullSheet(score int) Sheet {
	s := make(Sheet)
	for round := 1; round <= ReviewRounds; round++ {
		for _, k := range RoundKeys(round) {
			s[k] = score
		}
	}
	return s
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    Key
		wantErr bool
	}{
		{name: "evaluation", key: "param_3_review_2", want: Key{Kind: Evaluation, ID: 3, Round: 2}},
		{name: "project specific", key: "specific_5_review_4", want: Key{Kind: ProjectSpecific, ID: 5, Round: 4}},
		{name: "last evaluation id", key: "param_15_review_1", want: Key{Kind: Evaluation, ID: 15, Round: 1}},
		{name: "unknown kind", key: "bonus_1_review_1", wantErr: true},
		{name: "evaluation id out of range", key: "param_16_review_1", wantErr: true},
		{name: "specific id out of range", key: "specific_6_review_1", wantErr: true},
		{name: "round zero", key: "param_1_review_0", wantErr: true},
		{name: "round five", key: "param_1_review_5", wantErr: true},
		{name: "malformed", key: "param_1_round_1", wantErr: true},
		{name: "non numeric id", key: "param_x_review_1", wantErr: true},
		{name: "empty", key: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.key, got.String())
		})
	}
}

func TestSheet_fullMarks(t *testing.T) {
	s := fullSheet(MaxScore)
	for round := 1; round <= ReviewRounds; round++ {
		assert.Equal(t, 80, s.ReviewTotal(round), "round %d", round)
	}
	assert.Equal(t, 320, s.Total())
	assert.Equal(t, MaxTotalScore, s.Total())
	assert.Equal(t, 4, s.Summative())
}

func TestSheet_partial(t *testing.T) {
	s := Sheet{{Kind: Evaluation, ID: 1, Round: 1}: 4}
	assert.Equal(t, 4, s.ReviewTotal(1))
	assert.Equal(t, 0, s.ReviewTotal(2))
	assert.Equal(t, 4, s.Total())
	assert.Equal(t, 4, s.Summative())
}

func TestSheet_Summative(t *testing.T) {
	tests := []struct {
		name  string
		sheet Sheet
		want  int
	}{
		{name: "nil sheet", sheet: nil, want: 0},
		{name: "empty sheet", sheet: Sheet{}, want: 0},
		{name: "zeros are counted", sheet: Sheet{
			{Kind: Evaluation, ID: 1, Round: 1}: 4,
			{Kind: Evaluation, ID: 2, Round: 1}: 0,
		}, want: 2},
		{name: "rounds half up", sheet: Sheet{
			{Kind: Evaluation, ID: 1, Round: 1}: 3,
			{Kind: ProjectSpecific, ID: 1, Round: 2}: 4,
		}, want: 4},
		{name: "rounds down", sheet: Sheet{
			{Kind: Evaluation, ID: 1, Round: 1}: 1,
			{Kind: Evaluation, ID: 2, Round: 1}: 1,
			{Kind: Evaluation, ID: 3, Round: 1}: 2,
		}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sheet.Summative())
		})
	}
}

func TestDecodeSheet(t *testing.T) {
	t.Run("accepts numbers and numeric strings", func(t *testing.T) {
		got, errs := DecodeSheet(map[string]interface{}{
			"param_1_review_1":    float64(4),
			"specific_2_review_3": "3",
			"param_2_review_1":    json.Number("0"),
			"param_3_review_1":    nil,
			"param_4_review_1":    "",
		})
		require.Empty(t, errs)
		assert.Equal(t, Sheet{
			{Kind: Evaluation, ID: 1, Round: 1}:      4,
			{Kind: ProjectSpecific, ID: 2, Round: 3}: 3,
			{Kind: Evaluation, ID: 2, Round: 1}:      0,
		}, got)
	})

	t.Run("reports every offending key", func(t *testing.T) {
		got, errs := DecodeSheet(map[string]interface{}{
			"param_1_review_1":  float64(5),
			"param_2_review_1":  float64(-1),
			"param_3_review_1":  2.5,
			"param_4_review_1":  "four",
			"param_5_review_1":  true,
			"param_99_review_1": float64(1),
			"param_6_review_1":  float64(4),
		})
		assert.Nil(t, got)
		fields := make([]string, 0, len(errs))
		for _, fe := range errs {
			fields = append(fields, fe.Field)
		}
		assert.Equal(t, []string{
			"param_1_review_1",
			"param_2_review_1",
			"param_3_review_1",
			"param_4_review_1",
			"param_5_review_1",
			"param_99_review_1",
		}, fields)
	})
}

func TestParseSheet(t *testing.T) {
	s, err := ParseSheet(map[string]int{"param_1_review_1": 4, "specific_1_review_2": 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"param_1_review_1": 4, "specific_1_review_2": 2}, s.Raw())

	_, err = ParseSheet(map[string]int{"param_1_review_1": 7})
	assert.Error(t, err)
	_, err = ParseSheet(map[string]int{"nope": 1})
	assert.Error(t, err)
}

func TestSheet_JSON(t *testing.T) {
	s := Sheet{{Kind: Evaluation, ID: 2, Round: 1}: 3}
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"param_2_review_1": 3}`, string(b))

	var back Sheet
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, s, back)
}

func TestSheet_Keys(t *testing.T) {
	s := Sheet{
		{Kind: ProjectSpecific, ID: 1, Round: 1}: 1,
		{Kind: Evaluation, ID: 2, Round: 2}:      1,
		{Kind: Evaluation, ID: 10, Round: 1}:     1,
		{Kind: Evaluation, ID: 2, Round: 1}:      1,
	}
	assert.Equal(t, []Key{
		{Kind: Evaluation, ID: 2, Round: 1},
		{Kind: Evaluation, ID: 10, Round: 1},
		{Kind: ProjectSpecific, ID: 1, Round: 1},
		{Kind: Evaluation, ID: 2, Round: 2},
	}, s.Keys())
}

func TestTiers_Classify(t *testing.T) {
	tests := []struct {
		total int
		want  Tier
		label string
	}{
		{total: 0, want: TierNone, label: ""},
		{total: 300, want: TierNone, label: ""},
		{total: 301, want: TierMerit, label: "High Performance"},
		{total: 320, want: TierMerit, label: "High Performance"},
		{total: 321, want: TierExcellent, label: "Excellent Performance!"},
		{total: 340, want: TierExcellent, label: "Excellent Performance!"},
		{total: 341, want: TierOutstanding, label: "Outstanding Achievement!"},
	}
	for _, tt := range tests {
		got := DefaultTiers.Classify(tt.total)
		assert.Equal(t, tt.want, got, "total %d", tt.total)
		assert.Equal(t, tt.label, got.Label())
	}
}

func TestValidateScore(t *testing.T) {
	for v := MinScore; v <= MaxScore; v++ {
		assert.NoError(t, ValidateScore(v))
	}
	assert.Error(t, ValidateScore(-1))
	assert.Error(t, ValidateScore(5))
}
