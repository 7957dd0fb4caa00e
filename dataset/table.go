package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// TABLE — Ordered named columns loaded from one spreadsheet sheet
// ============================================================================
// A Table is immutable once built. Augmentation (derived columns, temporal
// conversion) returns a new Table that shares the untouched column slices.
// ============================================================================

var (
	ErrColumnExists   = errors.New("column already exists")
	ErrColumnNotFound = errors.New("column not found")
	ErrRaggedColumns  = errors.New("columns have different lengths")
)

// Column is a named sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// Table is the in-memory form of one sheet.
type Table struct {
	name    string
	columns []Column
	index   map[string]int
	rows    int
}

// NewTable builds a Table from columns of equal length with unique names.
func NewTable(name string, columns []Column) (*Table, error) {
	t := &Table{
		name:    name,
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if _, dup := t.index[col.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrColumnExists, col.Name)
		}
		if i == 0 {
			t.rows = len(col.Values)
		} else if len(col.Values) != t.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrRaggedColumns, col.Name, len(col.Values), t.rows)
		}
		t.index[col.Name] = i
		t.columns = append(t.columns, col)
	}
	return t, nil
}

// FromRows builds a Table from a header row and string cells. Short rows
// are padded with missing cells; cells beyond the header are dropped.
func FromRows(name string, headers []string, rows [][]string) (*Table, error) {
	headers = UniqueHeaders(headers)
	columns := make([]Column, len(headers))
	for i, h := range headers {
		columns[i] = Column{Name: h, Values: make([]Value, len(rows))}
	}
	for r, row := range rows {
		for c := range headers {
			if c < len(row) {
				columns[c].Values[r] = ParseCell(row[c])
			}
		}
	}
	return NewTable(name, columns)
}

// Name returns the sheet name the table was loaded from.
func (t *Table) Name() string { return t.name }

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Value returns the cell at row/column; unknown columns and out-of-range
// rows read as missing.
func (t *Table) Value(row int, column string) Value {
	idx, ok := t.index[column]
	if !ok || row < 0 || row >= t.rows {
		return Missing()
	}
	return t.columns[idx].Values[row]
}

// Columns returns column names in sheet order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the table has a column with this name.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	idx, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[idx], true
}

// WithColumn returns a new Table with col appended. The receiver is left
// unchanged.
func (t *Table) WithColumn(col Column) (*Table, error) {
	if _, dup := t.index[col.Name]; dup {
		return nil, fmt.Errorf("%w: %q", ErrColumnExists, col.Name)
	}
	if len(t.columns) > 0 && len(col.Values) != t.rows {
		return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrRaggedColumns, col.Name, len(col.Values), t.rows)
	}
	cols := make([]Column, len(t.columns), len(t.columns)+1)
	copy(cols, t.columns)
	return NewTable(t.name, append(cols, col))
}

// ReplaceColumn returns a new Table where the named column holds values.
func (t *Table) ReplaceColumn(name string, values []Value) (*Table, error) {
	idx, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	cols := make([]Column, len(t.columns))
	copy(cols, t.columns)
	cols[idx] = Column{Name: name, Values: values}
	return NewTable(t.name, cols)
}

// UniqueHeaders trims header names, names blank headers "Unnamed: N" and
// suffixes repeats with ".1", ".2", ... so every column is addressable.
func UniqueHeaders(headers []string) []string {
	out := make([]string, len(headers))
	used := make(map[string]bool, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}
