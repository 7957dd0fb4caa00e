package helpers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/opsboard/dataset"
)

// ============================================================================
// WORKBOOK LOADER — XLSX / CSV → dataset.Table per sheet
// ============================================================================
// The first row of every sheet is the header row. Cells are read raw (no
// number formats applied). A column whose numeric cells all carry a date
// number format is converted to timestamps here, whatever its name; other
// date serials are converted by the classifier when the column name says so.
//
// A load either succeeds for every sheet or fails as a whole: callers never
// see a partial workbook.
// ============================================================================

// ErrInvalidWorkbook is returned when a file cannot be read as a workbook.
var ErrInvalidWorkbook = errors.New("invalid workbook")

// Workbook is a loaded file: one table per sheet, in workbook order.
type Workbook struct {
	Name   string           `json:"name"`
	Sheets []*dataset.Table `json:"-"`
}

// SheetNames returns the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name()
	}
	return names
}

// Sheet returns the named sheet.
func (w *Workbook) Sheet(name string) (*dataset.Table, bool) {
	for _, s := range w.Sheets {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// First returns the first sheet.
func (w *Workbook) First() *dataset.Table { return w.Sheets[0] }

// LoadWorkbook reads every sheet of an XLSX workbook.
func LoadWorkbook(r io.Reader, name string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidWorkbook, name, err)
	}
	defer f.Close()

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	wb := &Workbook{Name: name}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %w", ErrInvalidWorkbook, sheet, err)
		}
		table, err := tableFromRows(sheet, rows)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %w", ErrInvalidWorkbook, sheet, err)
		}
		if table, err = convertDateColumns(f, sheet, table, date1904); err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %w", ErrInvalidWorkbook, sheet, err)
		}
		wb.Sheets = append(wb.Sheets, table)
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("%w: %s has no sheets", ErrInvalidWorkbook, name)
	}

	log.Printf("📂 Opsboard: loaded %s (%d sheets: %s)", name, len(wb.Sheets), strings.Join(wb.SheetNames(), ", "))
	return wb, nil
}

// LoadBytes loads an uploaded file, choosing the parser by extension
// (.csv, otherwise XLSX).
func LoadBytes(data []byte, filename string) (*Workbook, error) {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		table, err := ParseCSV(data, strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
		if err != nil {
			return nil, err
		}
		return &Workbook{Name: filename, Sheets: []*dataset.Table{table}}, nil
	}
	return LoadWorkbook(bytes.NewReader(data), filename)
}

// LoadFile loads a workbook or CSV file from disk.
func LoadFile(path string) (*Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWorkbook, err)
	}
	return LoadBytes(data, filepath.Base(path))
}

// ============================================================================
// DATE-FORMATTED COLUMNS
// ============================================================================

// convertDateColumns replaces columns whose numeric cells are all styled
// with a date number format by timestamps. Columns with no numeric cells,
// or with any string cell, are left alone.
func convertDateColumns(f *excelize.File, sheet string, table *dataset.Table, date1904 bool) (*dataset.Table, error) {
	styles := map[int]bool{}
	for c, name := range table.Columns() {
		col, _ := table.Column(name)
		numbers, dated := 0, 0
		for r, v := range col.Values {
			if v.Kind == dataset.KindString {
				numbers = -1
				break
			}
			if v.Kind != dataset.KindNumber {
				continue
			}
			numbers++
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			idx, err := f.GetCellStyle(sheet, cell)
			if err != nil {
				return nil, err
			}
			isDate, seen := styles[idx]
			if !seen {
				isDate = isDateStyle(f, idx)
				styles[idx] = isDate
			}
			if !isDate {
				break
			}
			dated++
		}
		if numbers <= 0 || dated != numbers {
			continue
		}

		values := make([]dataset.Value, len(col.Values))
		for i, v := range col.Values {
			if v.Kind != dataset.KindNumber {
				values[i] = v
				continue
			}
			t, err := excelize.ExcelDateToTime(v.Num, date1904)
			if err != nil {
				values = nil
				break
			}
			values[i] = dataset.Timestamp(t)
		}
		if values == nil {
			continue
		}
		replaced, err := table.ReplaceColumn(name, values)
		if err != nil {
			return nil, err
		}
		table = replaced
		log.Printf("📅 Opsboard: %s: column %q is date-formatted", sheet, name)
	}
	return table, nil
}

// isDateStyle reports whether the cell style uses a date or date-time
// number format: built-in ids 14–22 or a custom code with day/year tokens.
func isDateStyle(f *excelize.File, idx int) bool {
	style, err := f.GetStyle(idx)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	return style.NumFmt >= 14 && style.NumFmt <= 22
}

// isDateFormatCode ignores quoted literals, escaped characters and
// bracketed sections ([Red], [$-416]) before looking for d or y.
func isDateFormatCode(code string) bool {
	var quoted, bracket, escaped bool
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case quoted:
			quoted = r != '"'
		case bracket:
			bracket = r != ']'
		case r == '"':
			quoted = true
		case r == '[':
			bracket = true
		case r == '\\':
			escaped = true
		case r == 'd' || r == 'y':
			return true
		}
	}
	return false
}

// tableFromRows treats the first row as headers. Sheets with no rows load
// as empty tables.
func tableFromRows(name string, rows [][]string) (*dataset.Table, error) {
	if len(rows) == 0 {
		return dataset.NewTable(name, nil)
	}
	return dataset.FromRows(name, rows[0], rows[1:])
}
