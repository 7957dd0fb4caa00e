package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips combining accents, so "Horímetro" and
// "horimetro" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// ContainsKeyword reports whether a column name contains any keyword,
// ignoring case and accents.
func ContainsKeyword(name string, keywords ...string) bool {
	folded := Fold(name)
	for _, kw := range keywords {
		if strings.Contains(folded, Fold(kw)) {
			return true
		}
	}
	return false
}

// FirstMatch returns the leftmost column whose name contains a keyword.
func FirstMatch(columns []string, keywords ...string) string {
	for _, c := range columns {
		if ContainsKeyword(c, keywords...) {
			return c
		}
	}
	return ""
}

// LastMatch returns the rightmost column whose name contains a keyword.
func LastMatch(columns []string, keywords ...string) string {
	for i := len(columns) - 1; i >= 0; i-- {
		if ContainsKeyword(columns[i], keywords...) {
			return columns[i]
		}
	}
	return ""
}

// MatchAll returns every column whose name contains a keyword, in order.
func MatchAll(columns []string, keywords ...string) []string {
	var out []string
	for _, c := range columns {
		if ContainsKeyword(c, keywords...) {
			out = append(out, c)
		}
	}
	return out
}
