package engine

import (
	"fmt"

	"github.com/spektr-org/opsboard/dataset"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from a view
// ============================================================================
// All functions operate on RecordView, zero-copy access to any data source.
// Only the requested page of rows is rendered to strings.
// ============================================================================

// BuildTable renders rows [offset, offset+limit) of view. A limit of 0
// renders every row from offset on; nil columns means all columns.
func BuildTable(title string, view dataset.RecordView, columns []string, offset, limit int) *TableData {
	if columns == nil {
		columns = view.Columns()
	}
	td := &TableData{
		Title:   title,
		Columns: make([]Column, 0, len(columns)),
		Rows:    [][]string{},
		Total:   view.Len(),
	}

	for _, key := range columns {
		td.Columns = append(td.Columns, describeColumn(view, key))
	}

	if offset < 0 {
		offset = 0
	}
	end := view.Len()
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	for i := offset; i < end; i++ {
		row := make([]string, len(columns))
		for j, key := range columns {
			row[j] = view.Value(i, key).Text()
		}
		td.Rows = append(td.Rows, row)
	}

	td.Summary = &Summary{
		Label:  fmt.Sprintf("Total (%d registros)", view.Len()),
		Values: map[string]string{},
	}
	for _, c := range td.Columns {
		if c.Type == "number" {
			td.Summary.Values[c.Key] = FormatMetric(ComputeKPI(view, c.Key).Sum)
		}
	}
	return td
}

// BuildGroupTable renders a group-by summary.
func BuildGroupTable(title, groupColumn, targetColumn string, groups []GroupStat) *TableData {
	td := &TableData{
		Title: title,
		Columns: []Column{
			{Key: "group", Label: groupColumn, Type: "text", Align: "left"},
			{Key: "count", Label: "Registros", Type: "number", Align: "center"},
			{Key: "sum", Label: "Soma " + targetColumn, Type: "number", Align: "right"},
			{Key: "mean", Label: "Média", Type: "number", Align: "right"},
			{Key: "median", Label: "Mediana", Type: "number", Align: "right"},
			{Key: "std", Label: "Desvio Padrão", Type: "number", Align: "right"},
		},
		Rows:  make([][]string, 0, len(groups)),
		Total: len(groups),
	}

	var totalCount int
	var totalSum float64
	for _, g := range groups {
		td.Rows = append(td.Rows, []string{
			g.Key,
			fmt.Sprintf("%d", g.Count),
			FormatDecimal(g.Sum),
			FormatMetric(g.Mean),
			FormatMetric(g.Median),
			FormatMetric(g.Std),
		})
		totalCount += g.Count
		totalSum += g.Sum
	}

	td.Summary = &Summary{
		Label: "Total",
		Values: map[string]string{
			"count": fmt.Sprintf("%d", totalCount),
			"sum":   FormatDecimal(totalSum),
		},
	}
	return td
}

// describeColumn infers a display type from the first non-missing cell.
func describeColumn(view dataset.RecordView, key string) Column {
	col := Column{Key: key, Label: key, Type: "text", Align: "left"}
	for i := 0; i < view.Len(); i++ {
		v := view.Value(i, key)
		if v.IsMissing() {
			continue
		}
		switch v.Kind {
		case dataset.KindNumber:
			col.Type, col.Align = "number", "right"
		case dataset.KindTime:
			col.Type, col.Align = "time", "center"
		}
		return col
	}
	return col
}
