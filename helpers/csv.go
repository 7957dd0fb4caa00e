package helpers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spektr-org/opsboard/dataset"
)

// ============================================================================
// CSV HELPER — Parses CSV data into a dataset.Table
// ============================================================================
// Consumer reads the CSV from wherever it lives (upload, file, object
// store). The delimiter is sniffed from the header line: ';' exports from
// Portuguese-locale spreadsheets are as common as ','.
// ============================================================================

// ParseCSV parses CSV bytes into a table named name. The first record is
// the header row.
func ParseCSV(data []byte, name string) (*dataset.Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")) // UTF-8 BOM

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// Read header
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV headers: %w", ErrInvalidWorkbook, err)
	}

	// Read rows
	var rows [][]string
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}
	if skipped > 0 {
		log.Printf("⚠️ Opsboard: skipped %d malformed CSV rows in %s", skipped, name)
	}

	table, err := dataset.FromRows(name, headers, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWorkbook, err)
	}
	return table, nil
}

// sniffDelimiter picks ';', tab or ',' by counting them in the first line.
func sniffDelimiter(data []byte) rune {
	line := string(data)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	best, bestCount := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
