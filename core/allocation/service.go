package allocation

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/documents"
)

var (
	ErrDomainNotFound  = core.NewNotFoundError("domain not found")
	ErrColumnsNotFound = core.NewNotFoundError("required columns not found")
	ErrGuideNotFound   = core.NewNotFoundError("no guide found for this batch")
	ErrSectionNotFound = core.NewNotFoundError("section not found")
	ErrEmptyFile       = core.NewNotFoundError("file is empty")
)

// Student info columns.
const (
	ColRegNo       = "Regdno"
	ColSection     = "Section"
	ColBatchTitle  = "Batch Title"
	ColBatchNumber = "Batch Number"
	ColStatus      = "Status"

	colDomain          = "Domain"
	colBatchNumberAlt  = "BatchNumber"
	colAllocatedGuide  = "Allocated Guide"
	formattedSheetName = "Formatted Student Info"
	studentSheetName   = "Student Info"
)

var StudentInfoHeaders = []string{ColRegNo, ColSection, ColBatchTitle, ColBatchNumber, ColStatus}

type (
	// BatchInfo is a batch as listed in the student info workbook.
	BatchInfo struct {
		Title    string   `json:"title"`
		Students []string `json:"students"`
	}

	// StudentRow is one row of the student info workbook.
	StudentRow struct {
		RegNo       string `json:"Regdno" validate:"notblank"`
		Section     string `json:"Section" validate:"notblank"`
		Domain      string `json:"Domain" validate:"notblank"`
		BatchNumber string `json:"BatchNumber" validate:"notblank"`
		Status      string `json:"Status" validate:"notblank"`
	}

	// GuideAllocation is the guide allocated to a batch.
	GuideAllocation struct {
		Batch          string `json:"batch"`
		Domain         string `json:"domain"`
		AllocatedGuide string `json:"allocatedGuide"`
	}

	Service struct {
		files      core.FileStore
		sheets     core.Spreadsheet
		sections   []string
		unassigned string
	}

	// ServiceInterface is the allocation API exposed to the REST layer.
	ServiceInterface interface {
		Batches() (map[string]BatchInfo, error)
		Records(slot documents.Slot) ([]core.Record, error)
		AddStudentRow(row StudentRow) error
		FormattedStudentInfo(w io.Writer) error
		Domains() ([]string, error)
		GuidesForDomain(domain string) ([]string, error)
		GuideForBatch(batch string) (GuideAllocation, error)
		Sections() ([]string, error)
		SectionBatches(section string) ([]SectionBatches, error)
		Assignments(batches []string) ([]Assignment, error)
	}
)

var _ ServiceInterface = (*Service)(nil)

// NewService reads the allocation workbooks from `files`. Nothing is cached.
func NewService(files core.FileStore, sheets core.Spreadsheet, conf core.AllocationConfig) *Service {
	return &Service{
		files:      files,
		sheets:     sheets,
		sections:   conf.Sections,
		unassigned: conf.UnassignedLabel,
	}
}

func (svc *Service) grid(slot documents.Slot) ([][]string, error) {
	rc, err := svc.files.Open(string(slot))
	if err != nil {
		return nil, err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer rc.Close()

	grid, err := svc.sheets.ReadGrid(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", slot)
	}
	return grid, nil
}

// Records returns the rows of a workbook keyed by its header row.
func (svc *Service) Records(slot documents.Slot) ([]core.Record, error) {
	grid, err := svc.grid(slot)
	if err != nil {
		return nil, err
	}
	return core.Records(grid), nil
}

// Batches groups the student info rows by batch number. Rows without one are skipped.
func (svc *Service) Batches() (map[string]BatchInfo, error) {
	records, err := svc.Records(documents.StudentInfo)
	if err != nil {
		return nil, err
	}
	batches := make(map[string]BatchInfo)
	for _, rec := range records {
		number := rec.Get(ColBatchNumber)
		if number == "" {
			continue
		}
		info, ok := batches[number]
		if !ok {
			info = BatchInfo{Title: rec.Get(ColBatchTitle), Students: []string{}}
		}
		if regNo := rec.Get(ColRegNo); regNo != "" {
			info.Students = append(info.Students, regNo)
		}
		batches[number] = info
	}
	return batches, nil
}

// AddStudentRow appends a row to the student info workbook, creating it when absent.
func (svc *Service) AddStudentRow(row StudentRow) error {
	grid, err := svc.grid(documents.StudentInfo)
	switch {
	case core.IsNotFound(err):
		grid = [][]string{append([]string(nil), StudentInfoHeaders...)}
	case err != nil:
		return err
	case len(grid) == 0:
		grid = [][]string{append([]string(nil), StudentInfoHeaders...)}
	}

	headers := grid[0]
	column := func(names ...string) int {
		for _, name := range names {
			if i := core.ColumnIndex(headers, name); i != -1 {
				return i
			}
		}
		headers = append(headers, names[0])
		return len(headers) - 1
	}
	values := map[int]string{
		column(ColRegNo):                          core.CleanString(row.RegNo),
		column(ColSection):                        core.CleanString(row.Section),
		column(ColBatchTitle, colDomain):          core.CleanString(row.Domain),
		column(ColBatchNumber, colBatchNumberAlt): core.CleanString(row.BatchNumber),
		column(ColStatus):                         core.CleanString(row.Status),
	}
	newRow := make([]string, len(headers))
	for i, v := range values {
		newRow[i] = v
	}

	rows := append(grid[1:], newRow)
	var buf bytes.Buffer
	if err := svc.sheets.Write(&buf, studentSheetName, headers, rows); err != nil {
		return errors.Wrap(err, "writing student info")
	}
	return svc.files.Save(string(documents.StudentInfo), &buf)
}

// FormattedStudentInfo writes the student info rows under the canonical headers.
func (svc *Service) FormattedStudentInfo(w io.Writer) error {
	records, err := svc.Records(documents.StudentInfo)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		title := rec.Get(ColBatchTitle)
		if title == "" {
			title = rec.Get(colDomain)
		}
		number := rec.Get(ColBatchNumber)
		if number == "" {
			number = rec.Get(colBatchNumberAlt)
		}
		rows = append(rows, []string{rec.Get(ColRegNo), rec.Get(ColSection), title, number, rec.Get(ColStatus)})
	}
	return svc.sheets.Write(w, formattedSheetName, StudentInfoHeaders, rows)
}

// Domains returns the header row of the faculty workbook.
func (svc *Service) Domains() ([]string, error) {
	grid, err := svc.grid(documents.FacultyData)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, ErrEmptyFile
	}
	return core.UniqueStrings(grid[0]), nil
}

// GuidesForDomain returns the non-empty faculty names listed under `domain`, in row order.
// A missing workbook yields core.ErrFileNotFound, a missing column ErrDomainNotFound.
func (svc *Service) GuidesForDomain(domain string) ([]string, error) {
	grid, err := svc.grid(documents.FacultyData)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, ErrDomainNotFound
	}
	idx := core.ColumnIndex(grid[0], domain)
	if idx == -1 {
		return nil, ErrDomainNotFound
	}
	names := make([]string, 0, len(grid)-1)
	for _, row := range grid[1:] {
		if name := core.Cell(row, idx); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// GuideForBatch looks up the guide allocated to `batch` in the guide workbook.
func (svc *Service) GuideForBatch(batch string) (GuideAllocation, error) {
	grid, err := svc.grid(documents.GuideInfo)
	if err != nil {
		return GuideAllocation{}, err
	}
	if len(grid) == 0 {
		return GuideAllocation{}, ErrEmptyFile
	}
	batchIdx := core.ColumnIndex(grid[0], ColBatchNumber)
	domainIdx := core.ColumnIndex(grid[0], colDomain)
	guideIdx := core.ColumnIndex(grid[0], colAllocatedGuide)
	if batchIdx == -1 || domainIdx == -1 || guideIdx == -1 {
		return GuideAllocation{}, ErrColumnsNotFound
	}

	batch = core.CleanString(batch)
	for _, row := range grid[1:] {
		if core.SameName(core.Cell(row, batchIdx), batch) {
			return GuideAllocation{
				Batch:          batch,
				Domain:         core.Cell(row, domainIdx),
				AllocatedGuide: core.Cell(row, guideIdx),
			}, nil
		}
	}
	return GuideAllocation{}, ErrGuideNotFound
}

// Sections lists the distinct sections of the section workbook,
// or the configured sections when no workbook was uploaded.
func (svc *Service) Sections() ([]string, error) {
	grid, err := svc.grid(documents.SectionAlloc)
	if core.IsNotFound(err) {
		return append([]string(nil), svc.sections...), nil
	}
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, ErrEmptyFile
	}
	idx := core.ColumnIndex(grid[0], ColSection)
	if idx == -1 {
		return nil, ErrColumnsNotFound
	}
	sections := make([]string, 0, len(grid)-1)
	for _, row := range grid[1:] {
		sections = append(sections, core.Cell(row, idx))
	}
	return core.UniqueStrings(sections), nil
}

// SectionBatches expands the imported section ranges, optionally for a single section.
func (svc *Service) SectionBatches(section string) ([]SectionBatches, error) {
	grid, err := svc.grid(documents.SectionAlloc)
	if err != nil {
		return nil, err
	}
	mapping, err := SectionMapping(grid)
	if err != nil {
		return nil, err
	}
	if section == "" {
		return mapping, nil
	}
	for _, sb := range mapping {
		if core.SameName(sb.Section, section) {
			return []SectionBatches{sb}, nil
		}
	}
	return nil, ErrSectionNotFound
}

// Assignments places `batches` in sections; see Assign.
func (svc *Service) Assignments(batches []string) ([]Assignment, error) {
	sections, err := svc.Sections()
	if err != nil {
		return nil, err
	}
	var imported []SectionBatches
	if grid, err := svc.grid(documents.SectionAlloc); err == nil {
		if imported, err = SectionMapping(grid); err != nil {
			return nil, err
		}
	} else if !core.IsNotFound(err) {
		return nil, err
	}
	return Assign(batches, sections, imported, svc.unassigned), nil
}
