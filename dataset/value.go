package dataset

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// VALUE — Typed cell of a loaded spreadsheet
// ============================================================================
// A cell is a string, a number, a timestamp or missing. Loaders produce
// strings and numbers; the classifier converts temporal columns to
// timestamps. Missing cells never satisfy a filter predicate.
// ============================================================================

// Kind tags the content of a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindString
	KindNumber
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	default:
		return "missing"
	}
}

// Value is a single table cell.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Time time.Time
}

// Missing returns the missing value.
func Missing() Value { return Value{} }

// String builds a string cell. Empty strings are treated as missing.
func Str(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{Kind: KindString, Str: s}
}

// Number builds a numeric cell.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Timestamp builds a time cell.
func Timestamp(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// IsMissing reports whether the cell holds no value.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// Float returns the numeric content and whether the cell is a number.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// Text renders the cell the way it is matched by membership filters and
// written by exporters. Missing cells render as "".
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return FormatNumber(v.Num)
	case KindTime:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 && v.Time.Nanosecond() == 0 {
			return v.Time.Format("2006-01-02")
		}
		return v.Time.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// Interface returns the cell as a plain Go value for JSON and spreadsheet
// writers (nil for missing).
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindTime:
		return v.Time
	default:
		return nil
	}
}

// FormatNumber renders whole numbers without decimals and keeps the
// shortest round-trip form otherwise.
func FormatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseCell converts raw spreadsheet text into a Value: blank and
// null-like markers become missing, parseable finite numbers become
// numbers (plain or pt-BR "1.234,5" notation), anything else stays a
// string. Spellings like "inf" are kept as text.
func ParseCell(raw string) Value {
	s := strings.TrimSpace(raw)
	switch s {
	case "", "null", "NULL", "N/A", "n/a", "NaN", "nan":
		return Missing()
	}
	if f, ok := parseNumber(s); ok {
		return Number(f)
	}
	return Str(s)
}

// Decimal comma with optional dot-grouped thousands: "65,5", "1.234,5",
// "1.234.567".
var (
	groupedNumber = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+(,\d+)?$`)
	commaDecimal  = regexp.MustCompile(`^-?\d+,\d+$`)
)

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if !groupedNumber.MatchString(s) && !commaDecimal.MatchString(s) {
			return 0, false
		}
		normalized := strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
		if f, err = strconv.ParseFloat(normalized, 64); err != nil {
			return 0, false
		}
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
