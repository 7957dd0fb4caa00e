package schema

import (
	"log"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/spektr-org/opsboard/dataset"
	"github.com/xuri/excelize/v2"
)

// ============================================================================
// CLASSIFIER — Heuristic column-role inference
// ============================================================================
// Inspects a loaded table and assigns every column a base role.
// No configuration needed for the default keyword sets.
//
// Classification pipeline per column:
//   1. Count missing/distinct values, collect samples
//   2. Temporal keyword in name → try converting every value to a timestamp
//      (text layouts, Excel serial dates). Any failure → keep original role.
//   3. Every non-missing value a timestamp (declared by the loader, e.g.
//      date-formatted XLSX cells) → temporal; every value numeric →
//      numeric; otherwise categorical
//   4. Pick the single-column roles (lat/lon/status/hour-meter) by name,
//      leftmost column first
//
// Classification never fails: a column that looks temporal but does not
// parse is silently left as it was.
// ============================================================================

// Options controls classification behavior.
type Options struct {
	TemporalKeywords    []string // name keywords that trigger timestamp parsing
	LatitudeKeywords    []string
	LongitudeKeywords   []string
	MaintenanceKeywords []string
	HourMeterKeywords   []string
	SampleSize          int // distinct sample values kept per column
}

// DefaultOptions returns the keyword sets used by the dashboard.
func DefaultOptions() Options {
	return Options{
		TemporalKeywords:    []string{"date", "data", "hora", "time"},
		LatitudeKeywords:    []string{"lat"},
		LongitudeKeywords:   []string{"lon", "long"},
		MaintenanceKeywords: []string{"manut"},
		HourMeterKeywords:   []string{"horimet"},
		SampleSize:          10,
	}
}

// Excel serial dates accepted for temporal columns: 1901-01-01 .. 9999-12-31.
// Smaller numbers in a date-named column are far more likely to be counts.
const (
	minExcelSerial = 367
	maxExcelSerial = 2958465
)

// Classify assigns roles to the columns of table. It returns the
// classification and a table in which temporal columns hold timestamps.
// The input table is not modified.
func Classify(table *dataset.Table, opts ...Options) (*Classification, *dataset.Table) {
	opt := DefaultOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.SampleSize <= 0 {
		opt.SampleSize = 10
	}

	cls := &Classification{
		Table:        table.Name(),
		Rows:         table.Len(),
		ClassifiedAt: time.Now().Format(time.RFC3339),
	}

	out := table
	for _, name := range table.Columns() {
		col, _ := table.Column(name)
		meta := analyzeColumn(col, opt.SampleSize)

		if ContainsKeyword(name, opt.TemporalKeywords...) {
			if converted, layout, ok := parseTemporal(col.Values); ok {
				if replaced, err := out.ReplaceColumn(name, converted); err == nil {
					out = replaced
					meta.Role = RoleTemporal
					meta.TemporalLayout = layout
				}
			} else {
				log.Printf("🔍 Opsboard: column %q looks temporal but does not parse, keeping %s", name, meta.Role)
			}
		}

		switch meta.Role {
		case RoleTemporal:
			cls.Temporal = append(cls.Temporal, name)
		case RoleNumeric:
			cls.Numeric = append(cls.Numeric, name)
		default:
			cls.Categorical = append(cls.Categorical, name)
		}
		cls.Columns = append(cls.Columns, meta)
	}

	names := table.Columns()
	cls.Latitude = FirstMatch(names, opt.LatitudeKeywords...)
	cls.Longitude = FirstMatch(names, opt.LongitudeKeywords...)
	cls.MaintenanceStatus = FirstMatch(names, opt.MaintenanceKeywords...)
	cls.HourMeter = FirstMatch(names, opt.HourMeterKeywords...)

	log.Printf("🔍 Opsboard: classified %q (%d rows): %d categorical, %d numeric, %d temporal, alerts=%v, geo=%v",
		cls.Table, cls.Rows, len(cls.Categorical), len(cls.Numeric), len(cls.Temporal), cls.HasAlerts(), cls.HasGeo())

	return cls, out
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

// Describe computes the metadata of a single column, e.g. one added after
// classification.
func Describe(col dataset.Column) ColumnMeta {
	return analyzeColumn(col, DefaultOptions().SampleSize)
}

// analyzeColumn inspects all values in a column and picks temporal,
// numeric or categorical.
func analyzeColumn(col dataset.Column, sampleSize int) ColumnMeta {
	meta := ColumnMeta{
		Name:        col.Name,
		Key:         toSnakeCase(col.Name),
		DisplayName: toDisplayName(col.Name),
		Role:        RoleCategorical,
	}

	uniqueSet := make(map[string]bool)
	numeric, times, present := 0, 0, 0
	for _, v := range col.Values {
		if v.IsMissing() {
			meta.MissingCount++
			continue
		}
		present++
		switch v.Kind {
		case dataset.KindNumber:
			numeric++
		case dataset.KindTime:
			times++
		}
		uniqueSet[v.Text()] = true
	}

	meta.DistinctCount = len(uniqueSet)
	meta.SampleValues = collectSamples(uniqueSet, sampleSize)

	switch {
	case present == 0:
	case numeric == present:
		meta.Role = RoleNumeric
	case times == present:
		meta.Role = RoleTemporal
		meta.TemporalLayout = "timestamp"
	}

	switch {
	case meta.DistinctCount <= 10:
		meta.CardinalityHint = "low"
	case meta.DistinctCount <= 100:
		meta.CardinalityHint = "medium"
	default:
		meta.CardinalityHint = "high"
	}

	return meta
}

// ============================================================================
// TEMPORAL DETECTION
// ============================================================================

// Day-first layouts come before month-first ones: the keyword sets target
// Portuguese operational sheets.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02/01/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"02-01-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"15:04:05",
	"15:04",
}

// parseTemporal converts every non-missing value to a timestamp. String
// columns must parse with one shared layout; numeric columns must be Excel
// serial dates. Mixed columns fail.
func parseTemporal(values []dataset.Value) ([]dataset.Value, string, bool) {
	var strs, nums, times int
	for _, v := range values {
		switch v.Kind {
		case dataset.KindString:
			strs++
		case dataset.KindNumber:
			nums++
		case dataset.KindTime:
			times++
		}
	}
	if strs+nums+times == 0 {
		return nil, "", false
	}

	switch {
	case nums == 0 && strs == 0:
		return values, "timestamp", true
	case nums > 0 && strs == 0:
		return parseExcelSerials(values)
	case strs > 0 && nums == 0:
		return parseLayouts(values)
	}
	return nil, "", false
}

func parseExcelSerials(values []dataset.Value) ([]dataset.Value, string, bool) {
	out := make([]dataset.Value, len(values))
	for i, v := range values {
		if v.Kind != dataset.KindNumber {
			out[i] = v
			continue
		}
		if v.Num < minExcelSerial || v.Num > maxExcelSerial {
			return nil, "", false
		}
		t, err := excelize.ExcelDateToTime(v.Num, false)
		if err != nil {
			return nil, "", false
		}
		out[i] = dataset.Timestamp(t)
	}
	return out, "excel-serial", true
}

func parseLayouts(values []dataset.Value) ([]dataset.Value, string, bool) {
	for _, layout := range dateLayouts {
		out := make([]dataset.Value, len(values))
		ok := true
		for i, v := range values {
			if v.Kind != dataset.KindString {
				out[i] = v
				continue
			}
			t, err := time.Parse(layout, strings.TrimSpace(v.Str))
			if err != nil {
				ok = false
				break
			}
			out[i] = dataset.Timestamp(t)
		}
		if ok {
			return out, layout, true
		}
	}
	return nil, "", false
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toSnakeCase converts "Column Name" or "columnName" → "column_name".
func toSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}

	s = Fold(result.String())
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Trim(s, "_")
	return s
}

// toDisplayName cleans a header for human display.
// "horas_motor" → "Horas Motor", "Operador" → "Operador"
func toDisplayName(s string) string {
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}

	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			words[i] = strings.ToUpper(string(r[:1])) + strings.ToLower(string(r[1:]))
		}
	}
	return strings.Join(words, " ")
}

// collectSamples picks up to maxSamples representative values.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}

	sort.Strings(samples)

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
