// Package spreadsheet reads and writes .xlsx workbooks.
package spreadsheet

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/projhub/portal/core"
)

const defaultSheet = "Sheet1"

// Excel implements core.Spreadsheet.
type Excel struct{}

var _ core.Spreadsheet = Excel{}

func NewExcel() Excel { return Excel{} }

// ReadGrid returns the cell values of the first sheet, row by row.
func (Excel) ReadGrid(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return [][]string{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %q", sheets[0])
	}
	return rows, nil
}

// Write serializes `headers` and `rows` as a single-sheet workbook.
func (Excel) Write(w io.Writer, sheet string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	if sheet == "" {
		sheet = defaultSheet
	}
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return errors.Wrapf(err, "naming sheet %q", sheet)
		}
	}

	if err := setRow(f, sheet, 1, headers); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return errors.Wrap(f.Write(w), "writing workbook")
}

func setRow(f *excelize.File, sheet string, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	vals := make([]interface{}, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return errors.Wrapf(f.SetSheetRow(sheet, cell, &vals), "writing row %d", n)
}
