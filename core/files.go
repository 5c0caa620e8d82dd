package core

import (
	"io"
	"strings"
	"time"
)

var ErrFileNotFound = NewNotFoundError("file not found")

type (
	// FileInfo describes a stored file.
	FileInfo struct {
		Name    string    `json:"name"`
		Size    int64     `json:"size"`
		ModTime time.Time `json:"mod_time"`
	}

	// FileStore keeps uploaded documents. Missing files are reported as ErrFileNotFound.
	FileStore interface {
		Save(name string, r io.Reader) error
		Open(name string) (io.ReadCloser, error)
		Stat(name string) (FileInfo, error)
		List() ([]FileInfo, error)
		Delete(name string) error
	}

	// Spreadsheet reads and writes tabular workbooks. Only the first sheet is read.
	Spreadsheet interface {
		ReadGrid(r io.Reader) ([][]string, error)
		Write(w io.Writer, sheet string, headers []string, rows [][]string) error
	}

	// Record is a spreadsheet row keyed by its header-row column names.
	Record map[string]string
)

// Get looks up a column by name, trimming and case-folding both sides.
func (rec Record) Get(column string) string {
	if v, ok := rec[column]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range rec {
		if SameName(k, column) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Records converts a grid into header-keyed records. The first row holds the headers.
// Rows whose cells are all blank are skipped.
func Records(grid [][]string) []Record {
	if len(grid) == 0 {
		return []Record{}
	}
	headers := grid[0]
	records := make([]Record, 0, len(grid)-1)
	for _, row := range grid[1:] {
		rec := make(Record, len(headers))
		var filled bool
		for i, h := range headers {
			h = strings.TrimSpace(h)
			if h == "" || i >= len(row) {
				continue
			}
			if strings.TrimSpace(row[i]) != "" {
				filled = true
				rec[h] = row[i]
			}
		}
		if filled {
			records = append(records, rec)
		}
	}
	return records
}

// ColumnIndex returns the index of `name` in `headers` (trimmed, case-folded), or -1.
func ColumnIndex(headers []string, name string) int {
	for i, h := range headers {
		if SameName(h, name) {
			return i
		}
	}
	return -1
}

// Cell returns row[i] trimmed, or "" when out of range.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
