package engine

import (
	"log"
	"sort"

	"github.com/spektr-org/opsboard/dataset"
)

// ============================================================================
// FILTERS — Predicate-Based Filtering via RecordView
// ============================================================================
// Single-pass filter: checks ALL column predicates per row in one loop.
// Returns a SubView (index list into parent), zero data copy.
//
// Pure and deterministic: the same view and spec always yield the same
// rows in the same order, and re-applying a spec to its own output is a
// no-op.
// ============================================================================

// compiled is a predicate prepared for the row loop.
type compiled struct {
	column string
	pred   Predicate
	set    map[string]bool // membership lookup
}

func (c compiled) match(v dataset.Value) bool {
	if c.set == nil {
		return c.pred.Match(v)
	}
	return !v.IsMissing() && c.set[v.Text()]
}

// ApplyFilters returns a view of the rows matching every predicate in spec.
// Columns are AND-combined; values within a membership predicate are
// OR-combined. An empty spec returns the original view. A predicate on a
// column the view does not have matches no rows.
func ApplyFilters(view dataset.RecordView, spec FilterSpec) dataset.RecordView {
	if spec.IsEmpty() {
		return view
	}

	preds := make([]compiled, 0, len(spec))
	for _, col := range sortedKeys(spec) {
		p := spec[col]
		if !p.IsSet() {
			continue
		}
		if !dataset.HasColumn(view, col) {
			log.Printf("⚠️ Opsboard: filter on unknown column %q matches no rows", col)
			return dataset.NewSubView(view, []int{})
		}
		c := compiled{column: col, pred: p}
		if p.Kind == PredicateMembership {
			c.set = make(map[string]bool, len(p.Values))
			for _, v := range p.Values {
				c.set[v] = true
			}
		}
		preds = append(preds, c)
	}

	// Single pass: a row passes if it matches ALL predicates
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for _, c := range preds {
			if !c.match(view.Value(i, c.column)) {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return dataset.NewSubView(view, indices)
}

// sortedKeys returns the columns of a spec in a stable order.
func sortedKeys(spec FilterSpec) []string {
	keys := make([]string, 0, len(spec))
	for k := range spec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
