package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(values map[string]float64) Lookup {
	return func(column string) (float64, bool) {
		v, ok := values[column]
		return v, ok
	}
}

func TestEval(t *testing.T) {
	values := map[string]float64{
		"area":             10,
		"horas":            4,
		"Área Operacional": 12.5,
		"zero":             0,
	}

	tests := []struct {
		src  string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"-area + 1", -9},
		{"--2", 2},
		{"area / horas", 2.5},
		{"[Área Operacional] * 2", 25},
		{"round(area / 3, 2)", 3.33},
		{"round(2.5)", 3},
		{"abs(-area)", 10},
		{"sqrt(horas)", 2},
		{"max(area, horas, 11)", 11},
		{"min(area, horas)", 4},
		{"1e3 / 4", 250},
		{"MAX(1, 2)", 2},
	}

	for _, tt := range tests {
		prog, err := Parse(tt.src)
		require.NoError(t, err, tt.src)

		got, ok := prog.Eval(row(values))
		require.True(t, ok, tt.src)
		assert.InDelta(t, tt.want, got, 1e-9, tt.src)
	}
}

func TestEvalMissingResults(t *testing.T) {
	values := map[string]float64{"a": 4, "zero": 0, "neg": -1}

	for _, src := range []string{
		"a / zero",
		"a + absent",
		"sqrt(neg)",
		"max(a, absent)",
		"a / (zero * 3)",
	} {
		prog, err := Parse(src)
		require.NoError(t, err, src)

		_, ok := prog.Eval(row(values))
		assert.False(t, ok, "%s should evaluate to missing", src)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src string
		err error
	}{
		{"", ErrSyntax},
		{"1 +", ErrSyntax},
		{"(1 + 2", ErrSyntax},
		{"a b", ErrSyntax},
		{"[unterminated", ErrSyntax},
		{"[]", ErrSyntax},
		{"a == b", ErrSyntax},
		{"'text'", ErrSyntax},
		{"__import__(1)", ErrUnknownFunction},
		{"__import__('os')", ErrSyntax},
		{"exec(1)", ErrUnknownFunction},
		{"abs(1, 2)", ErrArity},
		{"min()", ErrArity},
	}

	for _, tt := range tests {
		_, err := Parse(tt.src)
		if !errors.Is(err, tt.err) {
			t.Errorf("Parse(%q) error = %v, want %v", tt.src, err, tt.err)
		}
	}
}

func TestParseDepthLimit(t *testing.T) {
	src := ""
	for i := 0; i < maxDepth+5; i++ {
		src += "("
	}
	src += "1"
	for i := 0; i < maxDepth+5; i++ {
		src += ")"
	}

	_, err := Parse(src)
	assert.True(t, errors.Is(err, ErrSyntax))
}

func TestColumnsAndResolve(t *testing.T) {
	prog, err := Parse("area / [Horas Motor] + area * rate")
	require.NoError(t, err)

	assert.Equal(t, []string{"area", "Horas Motor", "rate"}, prog.Columns())

	known := map[string]bool{"area": true, "Horas Motor": true}
	err = prog.Resolve(func(c string) bool { return known[c] })
	assert.True(t, errors.Is(err, ErrUnknownColumn))
	assert.Contains(t, err.Error(), "rate")

	known["rate"] = true
	assert.NoError(t, prog.Resolve(func(c string) bool { return known[c] }))
}

func TestEvalRejectsNonFinite(t *testing.T) {
	prog, err := Parse("big * big")
	require.NoError(t, err)

	_, ok := prog.Eval(row(map[string]float64{"big": math.MaxFloat64}))
	assert.False(t, ok)
}

func TestString(t *testing.T) {
	prog, err := Parse("-a + round(b / 2, 1)")
	require.NoError(t, err)
	assert.Equal(t, "((-[a]) + round(([b] / 2), 1))", prog.String())
}
