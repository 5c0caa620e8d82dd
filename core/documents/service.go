// Package documents keeps the spreadsheets coordinators upload: the well-known
// allocation workbooks and free-form uploads.
package documents

import (
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
)

// Slot is a well-known workbook; uploading to a slot replaces its previous file.
type Slot string

const (
	StudentInfo  Slot = "student_info.xlsx"
	FacultyData  Slot = "faculty_data.xlsx"
	GuideInfo    Slot = "guide_info.xlsx"
	SectionAlloc Slot = "secAlloc.xlsx"

	workbookExt = ".xlsx"
)

var (
	Slots = []Slot{StudentInfo, FacultyData, GuideInfo, SectionAlloc}

	ErrNotWorkbook = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "only .xlsx files are allowed"})
	ErrNoUploads   = core.NewNotFoundError("no Excel file found")
)

type (
	Service struct {
		slots   core.FileStore
		uploads core.FileStore
		sheets  core.Spreadsheet
	}

	// ServiceInterface is the documents API exposed to the REST layer.
	ServiceInterface interface {
		ReplaceSlot(slot Slot, filename string, r io.Reader) (core.FileInfo, error)
		SlotFiles() ([]core.FileInfo, error)
		OpenSlotFile(name string) (io.ReadCloser, error)
		DeleteSlotFile(name string) error
		Upload(filename string, r io.Reader) (core.FileInfo, error)
		Uploads() ([]core.FileInfo, error)
		OpenUpload(name string) (io.ReadCloser, error)
		DeleteUpload(name string) error
		LatestUpload() ([]core.Record, error)
	}
)

var _ ServiceInterface = (*Service)(nil)

var nowFunc = time.Now

func NewService(slots, uploads core.FileStore, sheets core.Spreadsheet) *Service {
	return &Service{slots: slots, uploads: uploads, sheets: sheets}
}

// IsWorkbook reports whether `filename` has the .xlsx extension.
func IsWorkbook(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), workbookExt)
}

// ReplaceSlot stores `r` as the slot's workbook, replacing any previous one.
func (svc *Service) ReplaceSlot(slot Slot, filename string, r io.Reader) (core.FileInfo, error) {
	if filename != "" && !IsWorkbook(filename) {
		return core.FileInfo{}, ErrNotWorkbook
	}
	name := string(slot)
	if err := svc.slots.Save(name, r); err != nil {
		return core.FileInfo{}, errors.Wrapf(err, "saving %s", name)
	}
	return svc.slots.Stat(name)
}

func (svc *Service) SlotFiles() ([]core.FileInfo, error) {
	return svc.slots.List()
}

func (svc *Service) OpenSlotFile(name string) (io.ReadCloser, error) {
	return svc.slots.Open(name)
}

func (svc *Service) DeleteSlotFile(name string) error {
	return svc.slots.Delete(name)
}

// uploadName suffixes the original base name so that uploads never overwrite each other.
func uploadName(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	if base == "" || base == "." {
		base = "upload"
	}
	stamp := strconv.FormatInt(nowFunc().UnixNano()/int64(time.Millisecond), 10)
	return base + "-" + stamp + "-" + uuid.New().String()[:8] + strings.ToLower(ext)
}

// Upload stores a free-form workbook under a unique name.
func (svc *Service) Upload(filename string, r io.Reader) (core.FileInfo, error) {
	if !IsWorkbook(filename) {
		return core.FileInfo{}, ErrNotWorkbook
	}
	name := uploadName(filename)
	if err := svc.uploads.Save(name, r); err != nil {
		return core.FileInfo{}, errors.Wrapf(err, "saving %s", name)
	}
	return svc.uploads.Stat(name)
}

func (svc *Service) Uploads() ([]core.FileInfo, error) {
	return svc.uploads.List()
}

func (svc *Service) OpenUpload(name string) (io.ReadCloser, error) {
	return svc.uploads.Open(name)
}

func (svc *Service) DeleteUpload(name string) error {
	return svc.uploads.Delete(name)
}

// LatestUpload returns the rows of the most recently modified workbook upload.
func (svc *Service) LatestUpload() ([]core.Record, error) {
	files, err := svc.uploads.List()
	if err != nil {
		return nil, errors.Wrap(err, "listing uploads")
	}
	workbooks := files[:0]
	for _, f := range files {
		if IsWorkbook(f.Name) {
			workbooks = append(workbooks, f)
		}
	}
	if len(workbooks) == 0 {
		return nil, ErrNoUploads
	}
	sort.SliceStable(workbooks, func(i, j int) bool {
		if !workbooks[i].ModTime.Equal(workbooks[j].ModTime) {
			return workbooks[i].ModTime.After(workbooks[j].ModTime)
		}
		return workbooks[i].Name > workbooks[j].Name
	})

	rc, err := svc.uploads.Open(workbooks[0].Name)
	if err != nil {
		return nil, err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer rc.Close()

	grid, err := svc.sheets.ReadGrid(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", workbooks[0].Name)
	}
	return core.Records(grid), nil
}
