package allocation

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/documents"
	"github.com/projhub/portal/services/spreadsheet"
	"github.com/projhub/portal/storage/filestore"
)

type fixture struct {
	svc    *Service
	files  core.FileStore
	sheets core.Spreadsheet
}

func setup(t *testing.T) fixture {
	files, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)
	sheets := spreadsheet.NewExcel()
	svc := NewService(files, sheets, core.AllocationConfig{
		Sections:        []string{"A", "B", "C", "D"},
		UnassignedLabel: "Unassigned",
	})
	return fixture{svc: svc, files: files, sheets: sheets}
}

func (f fixture) upload(t *testing.T, slot documents.Slot, grid [][]string) {
	var buf bytes.Buffer
	require.NoError(t, f.sheets.Write(&buf, "", grid[0], grid[1:]))
	require.NoError(t, f.files.Save(string(slot), &buf))
}

func TestService_missingFiles(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Batches()
	assert.Equal(t, core.ErrFileNotFound, errors.Cause(err))
	_, err = f.svc.GuidesForDomain("ML")
	assert.Equal(t, core.ErrFileNotFound, errors.Cause(err))
	_, err = f.svc.GuideForBatch("Batch_1")
	assert.Equal(t, core.ErrFileNotFound, errors.Cause(err))
	_, err = f.svc.SectionBatches("")
	assert.Equal(t, core.ErrFileNotFound, errors.Cause(err))

	sections, err := f.svc.Sections()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, sections)
}

func TestService_Batches(t *testing.T) {
	f := setup(t)
	f.upload(t, documents.StudentInfo, [][]string{
		{"Regdno", "Section", "Batch Title", "Batch Number", "Status"},
		{"221FA04001", "A", "ML", "Batch_1", "Active"},
		{"221FA04002", "A", "ML", "Batch_1", "Active"},
		{"221FA04003", "B", "IoT", "Batch_2", "Active"},
		{"221FA04004", "B", "", "", "Active"},
	})

	batches, err := f.svc.Batches()
	require.NoError(t, err)
	assert.Equal(t, map[string]BatchInfo{
		"Batch_1": {Title: "ML", Students: []string{"221FA04001", "221FA04002"}},
		"Batch_2": {Title: "IoT", Students: []string{"221FA04003"}},
	}, batches)

	records, err := f.svc.Records(documents.StudentInfo)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestService_AddStudentRow(t *testing.T) {
	f := setup(t)
	row := StudentRow{RegNo: "221FA04010", Section: "C", Domain: "Cloud", BatchNumber: "Batch_7", Status: "Active"}

	// creates the workbook when it does not exist
	require.NoError(t, f.svc.AddStudentRow(row))
	row.RegNo = "221FA04011"
	require.NoError(t, f.svc.AddStudentRow(row))

	batches, err := f.svc.Batches()
	require.NoError(t, err)
	assert.Equal(t, map[string]BatchInfo{
		"Batch_7": {Title: "Cloud", Students: []string{"221FA04010", "221FA04011"}},
	}, batches)

	var buf bytes.Buffer
	require.NoError(t, f.svc.FormattedStudentInfo(&buf))
	grid, err := f.sheets.ReadGrid(&buf)
	require.NoError(t, err)
	assert.Equal(t, StudentInfoHeaders, grid[0])
	assert.Equal(t, []string{"221FA04010", "C", "Cloud", "Batch_7", "Active"}, grid[1])
}

func TestService_legacyStudentInfoColumns(t *testing.T) {
	f := setup(t)
	f.upload(t, documents.StudentInfo, [][]string{
		{"Regdno", "Section", "Domain", "BatchNumber", "Status"},
		{"221FA04001", "A", "ML", "Batch_1", "Active"},
	})

	var buf bytes.Buffer
	require.NoError(t, f.svc.FormattedStudentInfo(&buf))
	grid, err := f.sheets.ReadGrid(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"221FA04001", "A", "ML", "Batch_1", "Active"}, grid[1])
}

func TestService_guides(t *testing.T) {
	f := setup(t)
	f.upload(t, documents.FacultyData, [][]string{
		{"Machine Learning", " IoT ", "Cloud"},
		{"Dr. A", "Dr. C", ""},
		{"", "Dr. D", ""},
		{"Dr. B", "", ""},
	})

	domains, err := f.svc.Domains()
	require.NoError(t, err)
	assert.Equal(t, []string{"Machine Learning", "IoT", "Cloud"}, domains)

	tests := []struct {
		domain  string
		want    []string
		wantErr error
	}{
		{domain: "Machine Learning", want: []string{"Dr. A", "Dr. B"}},
		{domain: "machine learning ", want: []string{"Dr. A", "Dr. B"}},
		{domain: "IoT", want: []string{"Dr. C", "Dr. D"}},
		{domain: "Cloud", want: []string{}},
		{domain: "Blockchain", wantErr: ErrDomainNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			got, err := f.svc.GuidesForDomain(tt.domain)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				assert.NotEqual(t, core.ErrFileNotFound, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_GuideForBatch(t *testing.T) {
	f := setup(t)
	f.upload(t, documents.GuideInfo, [][]string{
		{"batch number ", "Domain", "Allocated Guide"},
		{"Batch_1", "ML", "Dr. A"},
		{"Batch_2", "IoT", "Dr. C"},
	})

	got, err := f.svc.GuideForBatch(" Batch_2")
	require.NoError(t, err)
	assert.Equal(t, GuideAllocation{Batch: "Batch_2", Domain: "IoT", AllocatedGuide: "Dr. C"}, got)

	_, err = f.svc.GuideForBatch("Batch_3")
	assert.Equal(t, ErrGuideNotFound, errors.Cause(err))

	f.upload(t, documents.GuideInfo, [][]string{{"Batch", "Guide"}, {"Batch_1", "Dr. A"}})
	_, err = f.svc.GuideForBatch("Batch_1")
	assert.Equal(t, ErrColumnsNotFound, errors.Cause(err))
}

func TestService_sections(t *testing.T) {
	f := setup(t)
	f.upload(t, documents.SectionAlloc, [][]string{
		{"Section", "Batches"},
		{"B", "Batch_1-Batch_2"},
		{"A", "Batch_3-Batch_4"},
		{"B", "Batch_1-Batch_2"},
	})

	sections, err := f.svc.Sections()
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, sections)

	all, err := f.svc.SectionBatches("")
	require.NoError(t, err)
	assert.Equal(t, []SectionBatches{
		{Section: "B", Batches: []string{"Batch_1", "Batch_2"}},
		{Section: "A", Batches: []string{"Batch_3", "Batch_4"}},
	}, all)

	one, err := f.svc.SectionBatches("a")
	require.NoError(t, err)
	assert.Equal(t, []SectionBatches{{Section: "A", Batches: []string{"Batch_3", "Batch_4"}}}, one)

	_, err = f.svc.SectionBatches("Z")
	assert.Equal(t, ErrSectionNotFound, errors.Cause(err))

	assignments, err := f.svc.Assignments([]string{"Batch_1", "Batch_5", "Batch_6", "Batch_3"})
	require.NoError(t, err)
	assert.Equal(t, []Assignment{
		{Batch: "Batch_1", Section: "B", Source: SourceImported},
		{Batch: "Batch_5", Section: "B", Source: SourceComputed},
		{Batch: "Batch_6", Section: "A", Source: SourceComputed},
		{Batch: "Batch_3", Section: "A", Source: SourceImported},
	}, assignments)
}

func TestService_Assignments_withoutWorkbook(t *testing.T) {
	f := setup(t)
	got, err := f.svc.Assignments([]string{"Batch_1", "Batch_2", "-"})
	require.NoError(t, err)
	assert.Equal(t, []Assignment{
		{Batch: "Batch_1", Section: "A", Source: SourceComputed},
		{Batch: "Batch_2", Section: "B", Source: SourceComputed},
	}, got)
}
