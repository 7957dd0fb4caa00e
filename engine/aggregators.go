package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spektr-org/opsboard/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ============================================================================
// AGGREGATORS — KPIs, grouping and distributions via RecordView
// ============================================================================
// All functions operate on RecordView, zero-copy access to any data source.
// Grouping produces SubViews (index lists into parent view).
//
// Missing and non-numeric cells are skipped by every statistic. Sum over
// nothing is 0; mean, median and standard deviation over nothing are
// unavailable.
// ============================================================================

// NumericValues collects the finite numeric cells of a column in row
// order.
func NumericValues(view dataset.RecordView, column string) []float64 {
	out := make([]float64, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		if f, ok := view.Value(i, column).Float(); ok && !math.IsInf(f, 0) && !math.IsNaN(f) {
			out = append(out, f)
		}
	}
	return out
}

// ComputeKPI summarizes a numeric column. Sum is available whenever the
// column exists; the other statistics need at least one value (two for the
// sample standard deviation).
func ComputeKPI(view dataset.RecordView, column string) KPI {
	kpi := KPI{Column: column}
	if !dataset.HasColumn(view, column) {
		return kpi
	}

	values := NumericValues(view, column)
	kpi.Count = len(values)
	kpi.Sum = Available(floats.Sum(values))
	kpi.Mean = Mean(values)
	kpi.Median = Median(values)
	kpi.Std = StdDev(values)
	if len(values) > 0 {
		kpi.Min = Available(floats.Min(values))
		kpi.Max = Available(floats.Max(values))
	}
	return kpi
}

// Mean is the arithmetic mean.
func Mean(values []float64) Metric {
	if len(values) == 0 {
		return Unavailable
	}
	return Available(stat.Mean(values, nil))
}

// Median is the middle value, or the mean of the two middle values.
func Median(values []float64) Metric {
	n := len(values)
	if n == 0 {
		return Unavailable
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return Available(sorted[n/2])
	}
	return Available((sorted[n/2-1] + sorted[n/2]) / 2)
}

// StdDev is the sample standard deviation (n−1 denominator).
func StdDev(values []float64) Metric {
	if len(values) < 2 {
		return Unavailable
	}
	return Available(stat.StdDev(values, nil))
}

// ============================================================================
// GROUPING
// ============================================================================

// MissingGroupLabel is the key of the group holding rows whose group cell
// is missing.
const MissingGroupLabel = "(vazio)"

// GroupSummary partitions view by groupColumn and summarizes targetColumn
// inside each group. Groups appear in first-appearance order; rows with a
// missing group cell form one group flagged Missing, so group counts always
// add up to the view's row count. No group is ever empty.
func GroupSummary(view dataset.RecordView, groupColumn, targetColumn string) ([]GroupStat, error) {
	if !dataset.HasColumn(view, groupColumn) {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, groupColumn)
	}
	if !dataset.HasColumn(view, targetColumn) {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, targetColumn)
	}

	groups := groupByColumn(view, groupColumn)
	for i := range groups {
		values := NumericValues(groups[i].View, targetColumn)
		groups[i].Sum = floats.Sum(values)
		groups[i].Mean = Mean(values)
		groups[i].Median = Median(values)
		groups[i].Std = StdDev(values)
	}
	return groups, nil
}

func groupByColumn(view dataset.RecordView, column string) []GroupStat {
	grouped := make(map[string][]int)
	order := make([]string, 0)
	var missing []int

	for i := 0; i < view.Len(); i++ {
		v := view.Value(i, column)
		if v.IsMissing() {
			missing = append(missing, i)
			continue
		}
		key := v.Text()
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], i)
	}

	groups := make([]GroupStat, 0, len(order)+1)
	for _, key := range order {
		groups = append(groups, GroupStat{
			Key:   key,
			Count: len(grouped[key]),
			View:  dataset.NewSubView(view, grouped[key]),
		})
	}
	if len(missing) > 0 {
		groups = append(groups, GroupStat{
			Key:     MissingGroupLabel,
			Missing: true,
			Count:   len(missing),
			View:    dataset.NewSubView(view, missing),
		})
	}
	return groups
}

// ValueCounts counts the non-missing values of a column, most frequent
// first; ties keep first-appearance order.
func ValueCounts(view dataset.RecordView, column string) []ValueCount {
	index := make(map[string]int)
	var counts []ValueCount
	for i := 0; i < view.Len(); i++ {
		v := view.Value(i, column)
		if v.IsMissing() {
			continue
		}
		key := v.Text()
		if j, ok := index[key]; ok {
			counts[j].Count++
			continue
		}
		index[key] = len(counts)
		counts = append(counts, ValueCount{Value: key, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts
}

// Histogram buckets the numeric cells of a column into equal-width bins
// spanning the observed range.
func Histogram(view dataset.RecordView, column string, bins int) []Bin {
	values := NumericValues(view, column)
	if len(values) == 0 || bins <= 0 {
		return nil
	}
	sort.Float64s(values)
	lo, hi := values[0], values[len(values)-1]

	if lo == hi {
		return []Bin{{Lower: lo, Upper: hi, Count: len(values)}}
	}

	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// stat.Histogram needs every value strictly below the last divider
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, values, nil)
	out := make([]Bin, bins)
	for i := range out {
		upper := dividers[i+1]
		if i == bins-1 {
			upper = hi
		}
		out[i] = Bin{Lower: dividers[i], Upper: upper, Count: int(counts[i])}
	}
	return out
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatDecimal formats a value with two decimals and thousands separators
// in the Brazilian style, e.g. 1234.5 → "1.234,50".
func FormatDecimal(v float64) string {
	negative := v < 0
	if negative {
		v = -v
	}
	cents := int64(math.Round(v * 100))
	intPart, decPart := cents/100, cents%100

	intStr := fmt.Sprintf("%d", intPart)
	if len(intStr) > 3 {
		var parts []string
		for len(intStr) > 3 {
			parts = append([]string{intStr[len(intStr)-3:]}, parts...)
			intStr = intStr[:len(intStr)-3]
		}
		parts = append([]string{intStr}, parts...)
		intStr = strings.Join(parts, ".")
	}

	result := fmt.Sprintf("%s,%02d", intStr, decPart)
	if negative && cents != 0 {
		result = "-" + result
	}
	return result
}

// FormatMetric formats an available metric, or "—" when unavailable.
func FormatMetric(m Metric) string {
	if !m.Available {
		return "—"
	}
	return FormatDecimal(m.Value)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
