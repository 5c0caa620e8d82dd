package documents

import (
	"bytes"
	"io/ioutil"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/services/spreadsheet"
	"github.com/projhub/portal/storage/filestore"
)

func setup(t *testing.T) *Service {
	slots, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)
	uploads, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)
	return NewService(slots, uploads, spreadsheet.NewExcel())
}

func workbook(t *testing.T, grid [][]string) *bytes.Buffer {
	var buf bytes.Buffer
	require.NoError(t, spreadsheet.NewExcel().Write(&buf, "", grid[0], grid[1:]))
	return &buf
}

func TestService_ReplaceSlot(t *testing.T) {
	svc := setup(t)

	_, err := svc.ReplaceSlot(GuideInfo, "guides.csv", strings.NewReader("x"))
	assert.Equal(t, ErrNotWorkbook, err)

	_, err = svc.ReplaceSlot(GuideInfo, "guides.xlsx", strings.NewReader("first"))
	require.NoError(t, err)
	fi, err := svc.ReplaceSlot(GuideInfo, "other-name.XLSX", strings.NewReader("second"))
	require.NoError(t, err)
	assert.Equal(t, string(GuideInfo), fi.Name)

	files, err := svc.SlotFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)

	rc, err := svc.OpenSlotFile(string(GuideInfo))
	require.NoError(t, err)
	b, _ := ioutil.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "second", string(b))

	require.NoError(t, svc.DeleteSlotFile(string(GuideInfo)))
	assert.Equal(t, core.ErrFileNotFound, errors.Cause(svc.DeleteSlotFile(string(GuideInfo))))
}

func TestService_uploads(t *testing.T) {
	svc := setup(t)

	_, err := svc.LatestUpload()
	assert.Equal(t, ErrNoUploads, err)

	_, err = svc.Upload("notes.txt", strings.NewReader("x"))
	assert.Equal(t, ErrNotWorkbook, err)

	nowFunc = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	defer func() { nowFunc = time.Now }()

	old, err := svc.Upload("marks.xlsx", workbook(t, [][]string{{"Regdno"}, {"OLD"}}))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(old.Name, "marks-1735689600000-"), old.Name)
	assert.True(t, strings.HasSuffix(old.Name, ".xlsx"), old.Name)

	// uploads with the same original name never collide
	again, err := svc.Upload("marks.xlsx", workbook(t, [][]string{{"Regdno"}, {"OLD"}}))
	require.NoError(t, err)
	assert.NotEqual(t, old.Name, again.Name)

	time.Sleep(20 * time.Millisecond)
	latest, err := svc.Upload("marks.xlsx", workbook(t, [][]string{{"Regdno", "Total"}, {"NEW", "320"}}))
	require.NoError(t, err)

	files, err := svc.Uploads()
	require.NoError(t, err)
	assert.Len(t, files, 3)

	rows, err := svc.LatestUpload()
	require.NoError(t, err)
	assert.Equal(t, []core.Record{{"Regdno": "NEW", "Total": "320"}}, rows)

	require.NoError(t, svc.DeleteUpload(latest.Name))
	_, err = svc.OpenUpload(latest.Name)
	assert.True(t, core.IsNotFound(err))
}

func TestIsWorkbook(t *testing.T) {
	assert.True(t, IsWorkbook("a.xlsx"))
	assert.True(t, IsWorkbook("A.XLSX"))
	assert.False(t, IsWorkbook("a.xls"))
	assert.False(t, IsWorkbook("xlsx"))
}
