package engine

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/spektr-org/opsboard/dataset"
)

// ============================================================================
// OPSBOARD ENGINE TYPES — Filter specs and render-ready results
// ============================================================================
// FilterSpec is the contract between the filter builder (driven by user
// selections) and the executor. Snapshot is the executor's render-ready
// output: KPI cards, chart series, alerts and map points for one filtered
// view.
// ============================================================================

// ============================================================================
// FILTER SPEC — Declarative per-column predicates
// ============================================================================

// PredicateKind selects how a Predicate is evaluated.
type PredicateKind string

const (
	PredicateNone       PredicateKind = ""
	PredicateMembership PredicateKind = "in"
	PredicateInterval   PredicateKind = "between"
	PredicateTimeRange  PredicateKind = "time_between"
)

// Predicate restricts one column.
//
// Membership with an empty Values list selects nothing; that is distinct
// from the zero Predicate, which selects everything.
type Predicate struct {
	Kind   PredicateKind `json:"kind"`
	Values []string      `json:"values,omitempty"` // membership, exact match on the cell text
	Min    float64       `json:"min,omitempty"`    // interval, inclusive
	Max    float64       `json:"max,omitempty"`    // interval, inclusive
	From   time.Time     `json:"from,omitempty"`   // time range, inclusive
	To     time.Time     `json:"to,omitempty"`     // time range, inclusive
}

// Membership builds a set-membership predicate.
func Membership(values ...string) Predicate {
	return Predicate{Kind: PredicateMembership, Values: append([]string{}, values...)}
}

// Interval builds a closed numeric interval predicate.
func Interval(lo, hi float64) Predicate {
	return Predicate{Kind: PredicateInterval, Min: lo, Max: hi}
}

// TimeRange builds a closed timestamp interval predicate.
func TimeRange(from, to time.Time) Predicate {
	return Predicate{Kind: PredicateTimeRange, From: from, To: to}
}

// IsSet reports whether the predicate restricts anything.
func (p Predicate) IsSet() bool { return p.Kind != PredicateNone }

// Match reports whether a cell satisfies the predicate. Missing cells
// never match a set predicate.
func (p Predicate) Match(v dataset.Value) bool {
	if !p.IsSet() {
		return true
	}
	if v.IsMissing() {
		return false
	}

	switch p.Kind {
	case PredicateMembership:
		text := v.Text()
		for _, want := range p.Values {
			if text == want {
				return true
			}
		}
		return false

	case PredicateInterval:
		f, ok := v.Float()
		return ok && f >= p.Min && f <= p.Max

	case PredicateTimeRange:
		if v.Kind != dataset.KindTime {
			return false
		}
		return !v.Time.Before(p.From) && !v.Time.After(p.To)
	}
	return false
}

// FilterSpec maps column names to predicates. AND across columns; an
// absent column or a zero predicate places no restriction.
type FilterSpec map[string]Predicate

// HasFilter returns true if a specific column is restricted.
func (f FilterSpec) HasFilter(column string) bool {
	p, ok := f[column]
	return ok && p.IsSet()
}

// IsEmpty returns true if no predicate restricts anything.
func (f FilterSpec) IsEmpty() bool {
	for _, p := range f {
		if p.IsSet() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (f FilterSpec) Clone() FilterSpec {
	out := make(FilterSpec, len(f))
	for col, p := range f {
		if p.Values != nil {
			p.Values = append([]string{}, p.Values...)
		}
		out[col] = p
	}
	return out
}

// Label renders a short human-readable description, e.g.
// "Operador: Ana, Bruno — Horímetro: 500–1500".
func (f FilterSpec) Label() string {
	if f.IsEmpty() {
		return "All records"
	}
	cols := sortedKeys(f)
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		p := f[col]
		switch p.Kind {
		case PredicateMembership:
			if len(p.Values) == 0 {
				parts = append(parts, col+": (none)")
			} else {
				parts = append(parts, col+": "+strings.Join(p.Values, ", "))
			}
		case PredicateInterval:
			parts = append(parts, col+": "+dataset.FormatNumber(p.Min)+"–"+dataset.FormatNumber(p.Max))
		case PredicateTimeRange:
			parts = append(parts, col+": "+dataset.Timestamp(p.From).Text()+" – "+dataset.Timestamp(p.To).Text())
		}
	}
	return strings.Join(parts, " — ")
}

// ============================================================================
// METRICS
// ============================================================================

// Metric is a statistic that may be unavailable (no data to compute it
// from). An unavailable metric is distinct from zero.
type Metric struct {
	Value     float64
	Available bool
}

// Available wraps a computed value.
func Available(v float64) Metric { return Metric{Value: v, Available: true} }

// Unavailable is the metric for "nothing to compute from".
var Unavailable = Metric{}

// MarshalJSON renders unavailable metrics as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Available || math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts a number or null.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Unavailable
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Available(v)
	return nil
}

// KPI summarizes one numeric column over a view.
type KPI struct {
	Column string `json:"column"`
	Count  int    `json:"count"` // numeric, non-missing cells
	Sum    Metric `json:"sum"`
	Mean   Metric `json:"mean"`
	Median Metric `json:"median"`
	Std    Metric `json:"std"`
	Min    Metric `json:"min"`
	Max    Metric `json:"max"`
}

// GroupStat is one row of a group-by summary.
type GroupStat struct {
	Key     string             `json:"key"`
	Missing bool               `json:"missing,omitempty"` // rows whose group cell is missing
	Count   int                `json:"count"`             // rows in the group
	Sum     float64            `json:"sum"`
	Mean    Metric             `json:"mean"`
	Median  Metric             `json:"median"`
	Std     Metric             `json:"std"`
	View    dataset.RecordView `json:"-"` // zero-copy rows of the group
}

// ValueCount is one entry of a value-frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Bin is one histogram bucket, [Lower, Upper) except the last, which is
// closed.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// ============================================================================
// DASHBOARD TYPES
// ============================================================================

// CardSpec declares one KPI card: the mean of Column, optionally compared
// against a target.
type CardSpec struct {
	Label  string   `json:"label" yaml:"label"`
	Column string   `json:"column" yaml:"column"`
	Target *float64 `json:"target,omitempty" yaml:"target,omitempty"`
}

// KPICard is a computed card. Present only says the column was found;
// Value.Available says whether it has a mean (an empty view or a column
// without numbers leaves it unavailable).
type KPICard struct {
	Label   string   `json:"label"`
	Column  string   `json:"column,omitempty"` // resolved column, empty when absent
	Present bool     `json:"present"`
	Value   Metric   `json:"value"`
	Display string   `json:"display"`
	Target  *float64 `json:"target,omitempty"`
	Delta   Metric   `json:"delta"` // value − target
}

// ChartSpec declares a grouped chart by column keywords.
type ChartSpec struct {
	Title        string `json:"title" yaml:"title"`
	GroupKeyword string `json:"groupKeyword" yaml:"group_keyword"`
	ValueKeyword string `json:"valueKeyword" yaml:"value_keyword"`
	Aggregation  string `json:"aggregation" yaml:"aggregation"` // "sum" or "mean"
	Visualize    string `json:"visualize,omitempty" yaml:"visualize,omitempty"`
}

// AlertOptions parameterizes the maintenance alert.
type AlertOptions struct {
	Threshold float64  `json:"threshold" yaml:"threshold"`
	Statuses  []string `json:"statuses" yaml:"statuses"`
}

// AlertResult is the outcome of the maintenance alert predicate.
type AlertResult struct {
	Applicable      bool               `json:"applicable"`
	Message         string             `json:"message,omitempty"`
	Threshold       float64            `json:"threshold"`
	Statuses        []string           `json:"statuses"`
	HourMeterColumn string             `json:"hourMeterColumn,omitempty"`
	StatusColumn    string             `json:"statusColumn,omitempty"`
	Count           int                `json:"count"`
	Table           *TableData         `json:"table,omitempty"`
	Rows            dataset.RecordView `json:"-"`
}

// GeoPoint is one plotted location.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Row int     `json:"row"` // row index in the filtered view
}

// MapResult holds map-ready coordinates.
type MapResult struct {
	Applicable bool       `json:"applicable"`
	Message    string     `json:"message,omitempty"`
	Points     []GeoPoint `json:"points,omitempty"`
	Center     *GeoPoint  `json:"center,omitempty"`
}

// Snapshot is everything the dashboard shows for one filtered view.
type Snapshot struct {
	Table        string         `json:"table"`
	TotalRows    int            `json:"totalRows"`
	FilteredRows int            `json:"filteredRows"`
	Filters      FilterSpec     `json:"filters"`
	FilterLabel  string         `json:"filterLabel"`
	Cards        []KPICard      `json:"cards"`
	Charts       []*ChartConfig `json:"charts"`
	Alerts       *AlertResult   `json:"alerts"`
	Map          *MapResult     `json:"map"`
	Preview      *TableData     `json:"preview,omitempty"`

	View dataset.RecordView `json:"-"`
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"` // "bar", "pie", "histogram"
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total"` // rows in the source view, before paging
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "time"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals or aggregations for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}
