package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spektr-org/opsboard/dataset"
	"github.com/spektr-org/opsboard/schema"
)

// ============================================================================
// FILTER BUILDER — User selections → FilterSpec
// ============================================================================
// Candidates are derived once from the UNFILTERED table: distinct values
// for categorical columns, observed [min, max] for numeric and temporal
// columns. The builder validates every selection against them.
//
//   categorical → Select(col, values...)    subset of the candidate values
//   numeric     → Range(col, lo, hi)        clamped into observed bounds
//   temporal    → Between(col, from, to)    text bounds, date-only end
//                 DateRange(col, from, to)  covers the whole end day
//                 TimeRange(col, from, to)  exact instants
// ============================================================================

var (
	// ErrInvalidSelection is returned for values outside a column's candidates.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrInvalidRange is returned for inverted or unparseable bounds.
	ErrInvalidRange = errors.New("invalid range")
	// ErrColumnNotFound is returned for columns without candidates of the
	// requested kind.
	ErrColumnNotFound = errors.New("column not found")
)

// NumericBounds is the observed range of a numeric column.
type NumericBounds struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Available bool    `json:"available"` // false when the column has no numbers
}

// TimeBounds is the observed range of a temporal column.
type TimeBounds struct {
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Available bool      `json:"available"`
}

// CandidateSet holds what each selection widget may offer.
type CandidateSet struct {
	Categorical map[string][]string      `json:"categorical"`
	Numeric     map[string]NumericBounds `json:"numeric"`
	Temporal    map[string]TimeBounds    `json:"temporal"`
}

// Candidates derives selection candidates for every classified column.
func Candidates(view dataset.RecordView, cls *schema.Classification) *CandidateSet {
	c := &CandidateSet{
		Categorical: make(map[string][]string, len(cls.Categorical)),
		Numeric:     make(map[string]NumericBounds, len(cls.Numeric)),
		Temporal:    make(map[string]TimeBounds, len(cls.Temporal)),
	}

	for _, col := range cls.Categorical {
		c.Categorical[col] = DistinctValues(view, col)
	}

	for _, col := range cls.Numeric {
		b := NumericBounds{Min: math.Inf(1), Max: math.Inf(-1)}
		for i := 0; i < view.Len(); i++ {
			if f, ok := view.Value(i, col).Float(); ok {
				b.Min = math.Min(b.Min, f)
				b.Max = math.Max(b.Max, f)
				b.Available = true
			}
		}
		if !b.Available {
			b.Min, b.Max = 0, 0
		}
		c.Numeric[col] = b
	}

	for _, col := range cls.Temporal {
		var b TimeBounds
		for i := 0; i < view.Len(); i++ {
			v := view.Value(i, col)
			if v.Kind != dataset.KindTime {
				continue
			}
			if !b.Available || v.Time.Before(b.From) {
				b.From = v.Time
			}
			if !b.Available || v.Time.After(b.To) {
				b.To = v.Time
			}
			b.Available = true
		}
		c.Temporal[col] = b
	}

	return c
}

// DistinctValues returns the sorted distinct non-missing cell texts of a
// column.
func DistinctValues(view dataset.RecordView, column string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for i := 0; i < view.Len(); i++ {
		v := view.Value(i, column)
		if v.IsMissing() {
			continue
		}
		text := v.Text()
		if !seen[text] {
			seen[text] = true
			out = append(out, text)
		}
	}
	sort.Strings(out)
	return out
}

// ============================================================================
// BUILDER
// ============================================================================

// Builder accumulates validated predicates. It is not safe for concurrent
// use; sessions guard their own builder.
type Builder struct {
	candidates *CandidateSet
	spec       FilterSpec
}

// NewBuilder creates a builder over the candidates of view.
func NewBuilder(view dataset.RecordView, cls *schema.Classification) *Builder {
	return NewBuilderFrom(Candidates(view, cls))
}

// NewBuilderFrom creates a builder over precomputed candidates.
func NewBuilderFrom(candidates *CandidateSet) *Builder {
	return &Builder{candidates: candidates, spec: FilterSpec{}}
}

// Candidates returns the candidates the builder validates against.
func (b *Builder) Candidates() *CandidateSet { return b.candidates }

// Select restricts a categorical column to values. An empty selection is
// kept and selects no rows; use Clear to lift the restriction.
func (b *Builder) Select(column string, values ...string) error {
	allowed, ok := b.candidates.Categorical[column]
	if !ok {
		return fmt.Errorf("%w: %q is not a categorical column", ErrColumnNotFound, column)
	}
	set := make(map[string]bool, len(allowed))
	for _, v := range allowed {
		set[v] = true
	}
	for _, v := range values {
		if !set[v] {
			return fmt.Errorf("%w: %q is not a value of %q", ErrInvalidSelection, v, column)
		}
	}
	b.spec[column] = Membership(values...)
	return nil
}

// Range restricts a numeric column to [lo, hi], clamped into the observed
// bounds.
func (b *Builder) Range(column string, lo, hi float64) error {
	bounds, ok := b.candidates.Numeric[column]
	if !ok {
		return fmt.Errorf("%w: %q is not a numeric column", ErrColumnNotFound, column)
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		return fmt.Errorf("%w: [%v, %v] for %q", ErrInvalidRange, lo, hi, column)
	}
	if bounds.Available {
		lo = math.Max(lo, bounds.Min)
		hi = math.Min(hi, bounds.Max)
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return fmt.Errorf("%w: unbounded range for %q without observed values", ErrInvalidRange, column)
	}
	b.spec[column] = Interval(lo, hi)
	return nil
}

// TimeRange restricts a temporal column to the exact instants [from, to].
// A zero bound defaults to the observed bound.
func (b *Builder) TimeRange(column string, from, to time.Time) error {
	bounds, ok := b.candidates.Temporal[column]
	if !ok {
		return fmt.Errorf("%w: %q is not a temporal column", ErrColumnNotFound, column)
	}
	if from.IsZero() {
		from = bounds.From
	}
	if to.IsZero() {
		to = bounds.To
	}
	if to.Before(from) {
		return fmt.Errorf("%w: %s after %s for %q", ErrInvalidRange,
			from.Format(time.RFC3339), to.Format(time.RFC3339), column)
	}
	b.spec[column] = TimeRange(from, to)
	return nil
}

// DateRange restricts a temporal column to whole days: from midnight of
// the first day through the last instant of the end day.
func (b *Builder) DateRange(column string, from, to time.Time) error {
	if !from.IsZero() {
		from = startOfDay(from)
	}
	if !to.IsZero() {
		to = endOfDay(to)
	}
	return b.TimeRange(column, from, to)
}

// Between restricts a temporal column using text bounds ("2024-01-03",
// "03/01/2024", "2024-01-03 08:00", RFC 3339). An empty bound defaults to
// the observed bound. A date-only end bound covers that entire day.
func (b *Builder) Between(column string, from, to string) error {
	var start, end time.Time
	if strings.TrimSpace(from) != "" {
		t, _, err := ParseBound(from)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRange, err)
		}
		start = t
	}
	if strings.TrimSpace(to) != "" {
		t, dateOnly, err := ParseBound(to)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRange, err)
		}
		if dateOnly {
			t = endOfDay(t)
		}
		end = t
	}
	return b.TimeRange(column, start, end)
}

// Apply validates and adds every predicate of spec, e.g. a saved favorite.
func (b *Builder) Apply(spec FilterSpec) error {
	for _, col := range sortedKeys(spec) {
		p := spec[col]
		var err error
		switch p.Kind {
		case PredicateNone:
			b.Clear(col)
		case PredicateMembership:
			err = b.Select(col, p.Values...)
		case PredicateInterval:
			err = b.Range(col, p.Min, p.Max)
		case PredicateTimeRange:
			err = b.TimeRange(col, p.From, p.To)
		default:
			err = fmt.Errorf("%w: unknown predicate kind %q for %q", ErrInvalidSelection, p.Kind, col)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clear removes the predicate on a column.
func (b *Builder) Clear(column string) { delete(b.spec, column) }

// Reset removes every predicate.
func (b *Builder) Reset() { b.spec = FilterSpec{} }

// Build returns a copy of the accumulated spec.
func (b *Builder) Build() FilterSpec { return b.spec.Clone() }

// ============================================================================
// DATE HELPERS
// ============================================================================

var dateOnlyLayouts = []string{"2006-01-02", "02/01/2006", "2006/01/02"}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// ParseBound parses a date or date-time bound and reports whether it held
// a date only.
func ParseBound(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateOnlyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized date %q", s)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
