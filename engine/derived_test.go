package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/opsboard/dataset"
	"github.com/spektr-org/opsboard/expr"
)

func TestAddDerivedColumnFailureThenSuccess(t *testing.T) {
	table, _ := fleet(t)

	_, err := AddDerivedColumn(table, "bad", "nonexistent_col * 2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDerivedColumn))
	assert.True(t, errors.Is(err, expr.ErrUnknownColumn))
	assert.False(t, table.Has("bad"), "failed derivation leaves the table unchanged")

	out, err := AddDerivedColumn(table, "Horas x2", "[Horímetro] * 2")
	require.NoError(t, err)
	assert.Equal(t, "1000", out.Value(0, "Horas x2").Text())
	assert.Equal(t, "4000", out.Value(3, "Horas x2").Text())
	assert.False(t, table.Has("Horas x2"), "input table is never modified")
}

func TestAddDerivedColumnErrors(t *testing.T) {
	table, _ := fleet(t)

	tests := []struct {
		name    string
		formula string
		err     error
	}{
		{"x", "[Horímetro] +", expr.ErrSyntax},
		{"x", "[Operador] * 2", ErrNonNumericColumn},
		{"x", "[Data Operação] + 1", ErrNonNumericColumn},
		{"Horímetro", "1", dataset.ErrColumnExists},
		{"x", "system(1)", expr.ErrUnknownFunction},
		{"", "1", ErrDerivedColumn},
	}

	for _, tt := range tests {
		_, err := AddDerivedColumn(table, tt.name, tt.formula)
		if !errors.Is(err, tt.err) || !errors.Is(err, ErrDerivedColumn) {
			t.Errorf("AddDerivedColumn(%q, %q) error = %v, want %v", tt.name, tt.formula, err, tt.err)
		}
	}
}

func TestDerivedMissingCells(t *testing.T) {
	table, _ := fleet(t)

	out, err := AddDerivedColumn(table, "ha por hora", "[Área Operacional (ha)] / ([Horímetro] - 1000)")
	require.NoError(t, err)

	assert.Equal(t, "-0.024", out.Value(0, "ha por hora").Text())
	assert.True(t, out.Value(1, "ha por hora").IsMissing(), "division by zero")
	assert.True(t, out.Value(3, "ha por hora").IsMissing(), "missing operand")
}

func TestDeriveColumnUpdatesClassification(t *testing.T) {
	table, cls := fleet(t)

	out, next, err := DeriveColumn(table, cls, "Consumo", "round([Horímetro] / 3, 1)")
	require.NoError(t, err)
	assert.True(t, next.IsNumeric("Consumo"))
	assert.False(t, cls.IsNumeric("Consumo"), "original classification untouched")

	kpi := ComputeKPI(out, "Consumo")
	assert.Equal(t, 4, kpi.Count)

	filtered := ApplyFilters(out, FilterSpec{"Consumo": Interval(0, 400)})
	assert.Equal(t, 2, filtered.Len())
}
