package spreadsheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcel_roundTrip(t *testing.T) {
	x := NewExcel()
	var buf bytes.Buffer
	err := x.Write(&buf, "Student Info",
		[]string{"Regdno", "Section", "Batch Number"},
		[][]string{
			{"221FA04001", "A", "Batch_1"},
			{"221FA04002", "", "Batch_1"},
		},
	)
	require.NoError(t, err)

	grid, err := x.ReadGrid(&buf)
	require.NoError(t, err)
	require.Len(t, grid, 3)
	assert.Equal(t, []string{"Regdno", "Section", "Batch Number"}, grid[0])
	assert.Equal(t, []string{"221FA04001", "A", "Batch_1"}, grid[1])
	assert.Equal(t, "221FA04002", grid[2][0])
	assert.Equal(t, "Batch_1", grid[2][2])
}

func TestExcel_notAWorkbook(t *testing.T) {
	_, err := NewExcel().ReadGrid(strings.NewReader("plain text"))
	assert.Error(t, err)
}
