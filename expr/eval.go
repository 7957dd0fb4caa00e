package expr

import (
	"fmt"
	"math"
	"strings"
)

// ============================================================================
// EVALUATION — Tree-walking interpreter
// ============================================================================
// A row is evaluated through a Lookup callback. A missing operand makes the
// whole result missing, and so do division by zero, sqrt of a negative and
// any non-finite intermediate.
// ============================================================================

// Lookup returns the numeric value of a column in the current row, and
// false when the cell is missing or not a number.
type Lookup func(column string) (float64, bool)

// Eval evaluates the program for one row.
func (p *Program) Eval(lookup Lookup) (float64, bool) {
	v, ok := p.root.eval(lookup)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

type nodeKind int

const (
	nodeNumber nodeKind = iota
	nodeColumn
	nodeNegate
	nodeBinary
	nodeCall
)

type node struct {
	kind  nodeKind
	num   float64
	name  string
	op    tokenKind
	left  *node
	right *node
	fn    *builtin
	args  []*node
}

func (n *node) walk(visit func(*node)) {
	if n == nil {
		return
	}
	visit(n)
	n.left.walk(visit)
	n.right.walk(visit)
	for _, a := range n.args {
		a.walk(visit)
	}
}

func (n *node) eval(lookup Lookup) (float64, bool) {
	switch n.kind {
	case nodeNumber:
		return n.num, true

	case nodeColumn:
		return lookup(n.name)

	case nodeNegate:
		v, ok := n.left.eval(lookup)
		return -v, ok

	case nodeBinary:
		l, ok := n.left.eval(lookup)
		if !ok {
			return 0, false
		}
		r, ok := n.right.eval(lookup)
		if !ok {
			return 0, false
		}
		switch n.op {
		case tokPlus:
			return l + r, true
		case tokMinus:
			return l - r, true
		case tokStar:
			return l * r, true
		case tokSlash:
			if r == 0 {
				return 0, false
			}
			return l / r, true
		}

	case nodeCall:
		args := make([]float64, len(n.args))
		for i, a := range n.args {
			v, ok := a.eval(lookup)
			if !ok {
				return 0, false
			}
			args[i] = v
		}
		return n.fn.call(args)
	}
	return 0, false
}

func (n *node) String() string {
	switch n.kind {
	case nodeNumber:
		return fmt.Sprintf("%g", n.num)
	case nodeColumn:
		return "[" + n.name + "]"
	case nodeNegate:
		return "(-" + n.left.String() + ")"
	case nodeBinary:
		return "(" + n.left.String() + " " + n.op.symbol() + " " + n.right.String() + ")"
	case nodeCall:
		parts := make([]string, len(n.args))
		for i, a := range n.args {
			parts[i] = a.String()
		}
		return n.name + "(" + strings.Join(parts, ", ") + ")"
	}
	return "?"
}

func (k tokenKind) symbol() string {
	return strings.Trim(k.String(), "'")
}

// ============================================================================
// BUILTINS
// ============================================================================

type builtin struct {
	name    string
	minArgs int
	maxArgs int // -1: variadic
	call    func(args []float64) (float64, bool)
}

func (b *builtin) arity() string {
	switch {
	case b.maxArgs < 0:
		return fmt.Sprintf("at least %d argument(s)", b.minArgs)
	case b.minArgs == b.maxArgs:
		return fmt.Sprintf("%d argument(s)", b.minArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", b.minArgs, b.maxArgs)
	}
}

var builtins = map[string]*builtin{
	"abs": {name: "abs", minArgs: 1, maxArgs: 1, call: func(a []float64) (float64, bool) {
		return math.Abs(a[0]), true
	}},
	"sqrt": {name: "sqrt", minArgs: 1, maxArgs: 1, call: func(a []float64) (float64, bool) {
		if a[0] < 0 {
			return 0, false
		}
		return math.Sqrt(a[0]), true
	}},
	// round(x) or round(x, digits); halves round away from zero.
	"round": {name: "round", minArgs: 1, maxArgs: 2, call: func(a []float64) (float64, bool) {
		if len(a) == 1 {
			return math.Round(a[0]), true
		}
		scale := math.Pow(10, math.Trunc(a[1]))
		return math.Round(a[0]*scale) / scale, true
	}},
	"min": {name: "min", minArgs: 1, maxArgs: -1, call: func(a []float64) (float64, bool) {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m, true
	}},
	"max": {name: "max", minArgs: 1, maxArgs: -1, call: func(a []float64) (float64, bool) {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m, true
	}},
}
