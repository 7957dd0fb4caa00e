package dataset

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// Pipeline stages never copy the loaded sheet. They read through this
// interface.
//
// Implementations:
//   Table:   the loaded sheet itself
//   SubView: filtered subset (indices into parent, zero-copy)
//
// A SubView is never mutated after construction, so a filtered view stays
// valid for as long as its parent does.
// ============================================================================

// RecordView provides indexed, read-only access to tabular data.
// Value is called in tight loops: keep implementations fast.
type RecordView interface {
	Len() int
	Value(row int, column string) Value
	Columns() []string
}

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent; no data is copied.
type SubView struct {
	parent  RecordView
	indices []int
}

// NewSubView wraps the rows of parent listed in indices (in that order).
func NewSubView(parent RecordView, indices []int) *SubView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Value(i int, column string) Value {
	if i < 0 || i >= len(v.indices) {
		return Missing()
	}
	return v.parent.Value(v.indices[i], column)
}

func (v *SubView) Columns() []string { return v.parent.Columns() }

// Indices returns a copy of the parent row indices held by the view.
func (v *SubView) Indices() []int {
	out := make([]int, len(v.indices))
	copy(out, v.indices)
	return out
}

// HasColumn reports whether a view exposes the named column.
func HasColumn(view RecordView, column string) bool {
	if t, ok := view.(*Table); ok {
		return t.Has(column)
	}
	for _, c := range view.Columns() {
		if c == column {
			return true
		}
	}
	return false
}
