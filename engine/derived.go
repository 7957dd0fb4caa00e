package engine

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spektr-org/opsboard/dataset"
	"github.com/spektr-org/opsboard/expr"
	"github.com/spektr-org/opsboard/schema"
)

// ============================================================================
// DERIVED COLUMNS — Formula-computed numeric columns
// ============================================================================
// Formulas are parsed by the expr interpreter: literals, column references,
// arithmetic and a few math functions. Nothing in the formula is ever run
// as code.
//
// Every failure (syntax, unknown or non-numeric column, name collision)
// returns ErrDerivedColumn and leaves the table unchanged. A row whose
// operands are missing, or that divides by zero, gets a missing cell.
// ============================================================================

var (
	// ErrDerivedColumn wraps every derived-column failure.
	ErrDerivedColumn = errors.New("derived column")
	// ErrNonNumericColumn is returned when a formula references text or dates.
	ErrNonNumericColumn = errors.New("column is not numeric")
)

// AddDerivedColumn returns a new table with column name computed from
// expression for every row. The input table is never modified.
func AddDerivedColumn(table *dataset.Table, name, expression string) (*dataset.Table, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty column name", ErrDerivedColumn)
	}
	if table.Has(name) {
		return nil, fmt.Errorf("%w: %w: %q", ErrDerivedColumn, dataset.ErrColumnExists, name)
	}

	prog, err := expr.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivedColumn, err)
	}
	if err := prog.Resolve(table.Has); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivedColumn, err)
	}
	for _, col := range prog.Columns() {
		if !isNumericColumn(table, col) {
			return nil, fmt.Errorf("%w: %w: %q", ErrDerivedColumn, ErrNonNumericColumn, col)
		}
	}

	values := make([]dataset.Value, table.Len())
	computed := 0
	for i := range values {
		row := i
		v, ok := prog.Eval(func(column string) (float64, bool) {
			return table.Value(row, column).Float()
		})
		if ok {
			values[i] = dataset.Number(v)
			computed++
		}
	}

	out, err := table.WithColumn(dataset.Column{Name: name, Values: values})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivedColumn, err)
	}

	log.Printf("🧮 Opsboard: derived column %q = %s (%d/%d rows computed)", name, prog, computed, table.Len())
	return out, nil
}

// DeriveColumn adds a derived column and records it as numeric in a copy of
// the classification.
func DeriveColumn(table *dataset.Table, cls *schema.Classification, name, expression string) (*dataset.Table, *schema.Classification, error) {
	out, err := AddDerivedColumn(table, name, expression)
	if err != nil {
		return nil, nil, err
	}
	col, _ := out.Column(strings.TrimSpace(name))
	meta := schema.Describe(col)
	meta.Role = schema.RoleNumeric
	return out, cls.WithNumeric(col.Name, meta), nil
}

// isNumericColumn reports whether every non-missing cell is a number and
// there is at least one.
func isNumericColumn(table *dataset.Table, column string) bool {
	col, ok := table.Column(column)
	if !ok {
		return false
	}
	numbers := 0
	for _, v := range col.Values {
		switch v.Kind {
		case dataset.KindMissing:
		case dataset.KindNumber:
			numbers++
		default:
			return false
		}
	}
	return numbers > 0
}
