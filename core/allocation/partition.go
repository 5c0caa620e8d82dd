// Package allocation distributes batches across sections and resolves guides
// from the imported allocation workbooks.
package allocation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/projhub/portal/core"
)

// UnassignedMarker is the placeholder batch value of students without a batch.
const UnassignedMarker = "-"

// Where a batch's section came from.
const (
	SourceImported   = "imported"
	SourceComputed   = "computed"
	SourceUnassigned = "unassigned"
)

type (
	// SectionBatches lists the batches of one section.
	SectionBatches struct {
		Section string   `json:"section"`
		Batches []string `json:"batches"`
	}

	// Assignment places a batch in a section.
	Assignment struct {
		Batch   string `json:"batch"`
		Section string `json:"section"`
		Source  string `json:"source"`
	}
)

// cleanBatches drops blanks, the unassigned marker and duplicates, preserving order.
func cleanBatches(batches []string) []string {
	out := make([]string, 0, len(batches))
	for _, b := range core.UniqueStrings(batches) {
		if b != UnassignedMarker {
			out = append(out, b)
		}
	}
	return out
}

// Partition splits `batches` into contiguous slices of ceil(n / len(sections)),
// handed out to `sections` in order. Sections past the last batch get none.
func Partition(batches, sections []string) []SectionBatches {
	batches = cleanBatches(batches)
	result := make([]SectionBatches, 0, len(sections))
	if len(sections) == 0 {
		return result
	}

	per := (len(batches) + len(sections) - 1) / len(sections)
	for i, section := range sections {
		start, end := i*per, (i+1)*per
		if start > len(batches) {
			start = len(batches)
		}
		if end > len(batches) {
			end = len(batches)
		}
		slice := make([]string, end-start)
		copy(slice, batches[start:end])
		result = append(result, SectionBatches{Section: section, Batches: slice})
	}
	return result
}

const batchPrefix = "Batch_"

// BatchNumber returns the numeric part of a `Batch_<n>` identifier.
func BatchNumber(batch string) (int, error) {
	s := strings.TrimSpace(batch)
	if len(s) >= len(batchPrefix) && strings.EqualFold(s[:len(batchPrefix)], batchPrefix) {
		s = s[len(batchPrefix):]
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid batch identifier %q", batch)
	}
	return n, nil
}

// BatchID formats a batch identifier.
func BatchID(n int) string {
	return batchPrefix + strconv.Itoa(n)
}

// LessBatch orders "Batch_2" before "Batch_10"; other identifiers sort after, as strings.
func LessBatch(a, b string) bool {
	na, errA := BatchNumber(a)
	nb, errB := BatchNumber(b)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

// MaxRangeSpan bounds the number of identifiers a single range may expand to.
const MaxRangeSpan = 10000

// ExpandRange expands "Batch_<a>-Batch_<b>" into every identifier from a to b.
// A single identifier expands to itself.
func ExpandRange(expr string) ([]string, error) {
	parts := strings.Split(strings.TrimSpace(expr), "-")
	switch len(parts) {
	case 1:
		n, err := BatchNumber(parts[0])
		if err != nil {
			return nil, err
		}
		return []string{BatchID(n)}, nil
	case 2:
		start, err := BatchNumber(parts[0])
		if err != nil {
			return nil, err
		}
		end, err := BatchNumber(parts[1])
		if err != nil {
			return nil, err
		}
		if end < start {
			return nil, fmt.Errorf("batch range %q ends before it starts", expr)
		}
		if end-start >= MaxRangeSpan {
			return nil, fmt.Errorf("batch range %q spans more than %d batches", expr, MaxRangeSpan)
		}
		ids := make([]string, 0, end-start+1)
		for i := start; i <= end; i++ {
			ids = append(ids, BatchID(i))
		}
		return ids, nil
	}
	return nil, fmt.Errorf("malformed batch range %q", expr)
}

// SectionMapping reads the Section and Batches columns of a section workbook grid.
// Rows are kept in order; a later row for the same section replaces the earlier range.
func SectionMapping(grid [][]string) ([]SectionBatches, error) {
	if len(grid) == 0 {
		return nil, ErrEmptyFile
	}
	sectionIdx := core.ColumnIndex(grid[0], "Section")
	batchesIdx := core.ColumnIndex(grid[0], "Batches")
	if sectionIdx == -1 || batchesIdx == -1 {
		return nil, ErrColumnsNotFound
	}

	var (
		mapping  []SectionBatches
		position = make(map[string]int)
	)
	for _, row := range grid[1:] {
		section, expr := core.Cell(row, sectionIdx), core.Cell(row, batchesIdx)
		if section == "" || expr == "" {
			continue
		}
		batches, err := ExpandRange(expr)
		if err != nil {
			return nil, core.NewValidationError(err, core.FieldError{Field: "Batches", Error: err.Error()})
		}
		if i, ok := position[section]; ok {
			mapping[i].Batches = batches
			continue
		}
		position[section] = len(mapping)
		mapping = append(mapping, SectionBatches{Section: section, Batches: batches})
	}
	return mapping, nil
}

// Assign places every batch in a section. The imported mapping is authoritative for the
// batches it names; the remaining batches are partitioned across `sections`; a batch still
// without a section is labelled `unassigned`.
func Assign(batches, sections []string, imported []SectionBatches, unassigned string) []Assignment {
	batches = cleanBatches(batches)
	declared := make(map[string]string)
	for _, sb := range imported {
		for _, b := range sb.Batches {
			if _, ok := declared[b]; !ok {
				declared[b] = sb.Section
			}
		}
	}

	rest := make([]string, 0, len(batches))
	for _, b := range batches {
		if _, ok := declared[b]; !ok {
			rest = append(rest, b)
		}
	}
	computed := make(map[string]string, len(rest))
	for _, sb := range Partition(rest, sections) {
		for _, b := range sb.Batches {
			computed[b] = sb.Section
		}
	}

	out := make([]Assignment, 0, len(batches))
	for _, b := range batches {
		a := Assignment{Batch: b, Section: unassigned, Source: SourceUnassigned}
		if s, ok := declared[b]; ok {
			a.Section, a.Source = s, SourceImported
		} else if s, ok := computed[b]; ok {
			a.Section, a.Source = s, SourceComputed
		}
		out = append(out, a)
	}
	return out
}
