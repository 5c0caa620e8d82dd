package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projhub/portal/core"
)

func batchIDs(from, to int) []string {
	ids := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		ids = append(ids, BatchID(i))
	}
	return ids
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name     string
		batches  []string
		sections []string
		want     []SectionBatches
	}{
		{
			name:     "ten batches over three sections",
			batches:  batchIDs(1, 10),
			sections: []string{"S1", "S2", "S3"},
			want: []SectionBatches{
				{Section: "S1", Batches: batchIDs(1, 4)},
				{Section: "S2", Batches: batchIDs(5, 8)},
				{Section: "S3", Batches: batchIDs(9, 10)},
			},
		},
		{
			name:     "even split",
			batches:  batchIDs(1, 4),
			sections: []string{"A", "B"},
			want: []SectionBatches{
				{Section: "A", Batches: batchIDs(1, 2)},
				{Section: "B", Batches: batchIDs(3, 4)},
			},
		},
		{
			name:     "more sections than batches",
			batches:  batchIDs(1, 2),
			sections: []string{"A", "B", "C", "D"},
			want: []SectionBatches{
				{Section: "A", Batches: batchIDs(1, 1)},
				{Section: "B", Batches: batchIDs(2, 2)},
				{Section: "C", Batches: []string{}},
				{Section: "D", Batches: []string{}},
			},
		},
		{
			name:     "marker, blanks and duplicates are dropped",
			batches:  []string{"Batch_1", "-", "", "Batch_2", "Batch_1", " Batch_3 "},
			sections: []string{"A", "B"},
			want: []SectionBatches{
				{Section: "A", Batches: batchIDs(1, 2)},
				{Section: "B", Batches: batchIDs(3, 3)},
			},
		},
		{
			name:     "no batches",
			sections: []string{"A"},
			want:     []SectionBatches{{Section: "A", Batches: []string{}}},
		},
		{
			name:    "no sections",
			batches: batchIDs(1, 3),
			want:    []SectionBatches{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Partition(tt.batches, tt.sections))
		})
	}
}

func TestExpandRange(t *testing.T) {
	tests := []struct {
		expr    string
		want    []string
		wantErr bool
	}{
		{expr: "Batch_1-Batch_4", want: batchIDs(1, 4)},
		{expr: " Batch_7 - Batch_8 ", want: batchIDs(7, 8)},
		{expr: "batch_2-batch_2", want: batchIDs(2, 2)},
		{expr: "Batch_5", want: batchIDs(5, 5)},
		{expr: "3-5", want: batchIDs(3, 5)},
		{expr: "Batch_4-Batch_1", wantErr: true},
		{expr: "Batch_x-Batch_2", wantErr: true},
		{expr: "Batch_1-Batch_2-Batch_3", wantErr: true},
		{expr: "", wantErr: true},
		{expr: "Batch_1-Batch_10000", want: batchIDs(1, MaxRangeSpan)},
		{expr: "Batch_1-Batch_10001", wantErr: true},
		{expr: "Batch_1-Batch_2000000000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ExpandRange(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSectionMapping(t *testing.T) {
	grid := [][]string{
		{" section ", "BATCHES"},
		{"A", "Batch_1-Batch_3"},
		{"B", "Batch_4-Batch_5"},
		{"", "Batch_9-Batch_9"},
		{"A", "Batch_6-Batch_6"},
	}
	got, err := SectionMapping(grid)
	require.NoError(t, err)
	assert.Equal(t, []SectionBatches{
		{Section: "A", Batches: batchIDs(6, 6)},
		{Section: "B", Batches: batchIDs(4, 5)},
	}, got)

	_, err = SectionMapping([][]string{{"Section", "Range"}})
	assert.Equal(t, ErrColumnsNotFound, err)

	_, err = SectionMapping(nil)
	assert.Equal(t, ErrEmptyFile, err)

	_, err = SectionMapping([][]string{{"Section", "Batches"}, {"A", "Batch_1-Batch_2000000000"}})
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "want a validation error, got %v", err)
	assert.Equal(t, "Batches", vErr.Fields[0].Field)
}

func TestAssign(t *testing.T) {
	imported := []SectionBatches{{Section: "D", Batches: []string{"Batch_2", "Batch_9"}}}
	got := Assign(batchIDs(1, 5), []string{"A", "B"}, imported, "Unassigned")
	assert.Equal(t, []Assignment{
		{Batch: "Batch_1", Section: "A", Source: SourceComputed},
		{Batch: "Batch_2", Section: "D", Source: SourceImported},
		{Batch: "Batch_3", Section: "A", Source: SourceComputed},
		{Batch: "Batch_4", Section: "B", Source: SourceComputed},
		{Batch: "Batch_5", Section: "B", Source: SourceComputed},
	}, got)

	t.Run("no sections", func(t *testing.T) {
		got := Assign([]string{"Batch_1", "Batch_2"}, nil, imported, "Unassigned")
		assert.Equal(t, []Assignment{
			{Batch: "Batch_1", Section: "Unassigned", Source: SourceUnassigned},
			{Batch: "Batch_2", Section: "D", Source: SourceImported},
		}, got)
	})
}

func TestBatchNumber(t *testing.T) {
	n, err := BatchNumber("Batch_12")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = BatchNumber("Team_1")
	assert.Error(t, err)
}
