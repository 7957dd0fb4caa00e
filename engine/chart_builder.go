package engine

import (
	"fmt"
	"log"

	"github.com/spektr-org/opsboard/dataset"
	"github.com/spektr-org/opsboard/schema"
)

// ============================================================================
// CHART BUILDER — Produces ChartConfig from views and chart specs
// ============================================================================
// Chart columns are located by keyword: the LAST column whose name contains
// the keyword wins (case- and accent-insensitive). A chart whose columns are
// absent is skipped, not an error.
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// DefaultCharts returns the two grouped charts of the operational
// dashboard.
func DefaultCharts() []ChartSpec {
	return []ChartSpec{
		{
			Title:        "Área Operacional por Operador",
			GroupKeyword: "operador",
			ValueKeyword: "área operacional",
			Aggregation:  "sum",
			Visualize:    "bar",
		},
		{
			Title:        "Eficiência de Motor (%) por Equipamento",
			GroupKeyword: "equipamento",
			ValueKeyword: "eficiência de motor",
			Aggregation:  "mean",
			Visualize:    "bar",
		},
	}
}

// BuildGroupChart aggregates the spec's value column per group. It returns
// nil when either column is absent or no group has a value.
func BuildGroupChart(view dataset.RecordView, spec ChartSpec) *ChartConfig {
	cols := view.Columns()
	groupCol := schema.LastMatch(cols, spec.GroupKeyword)
	valueCol := schema.LastMatch(cols, spec.ValueKeyword)
	if groupCol == "" || valueCol == "" {
		return nil
	}

	groups, err := GroupSummary(view, groupCol, valueCol)
	if err != nil {
		log.Printf("⚠️ Opsboard: chart %q skipped: %v", spec.Title, err)
		return nil
	}

	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		if g.Missing {
			continue
		}
		switch spec.Aggregation {
		case "mean", "avg":
			if !g.Mean.Available {
				continue
			}
			points = append(points, ChartPoint{Label: g.Key, Value: RoundTo2(g.Mean.Value)})
		case "count":
			points = append(points, ChartPoint{Label: g.Key, Value: float64(g.Count)})
		default:
			points = append(points, ChartPoint{Label: g.Key, Value: RoundTo2(g.Sum)})
		}
	}
	if len(points) == 0 {
		return nil
	}

	chartType := spec.Visualize
	if chartType == "" {
		chartType = "bar"
	}
	title := spec.Title
	if title == "" {
		title = fmt.Sprintf("%s por %s", valueCol, groupCol)
	}
	return newChart(chartType, title, groupCol, valueCol, points)
}

// BuildHistogramChart bins a numeric column. Bars are labeled with their
// lower edge.
func BuildHistogramChart(view dataset.RecordView, column string, bins int) *ChartConfig {
	hist := Histogram(view, column, bins)
	if len(hist) == 0 {
		return nil
	}
	points := make([]ChartPoint, len(hist))
	for i, b := range hist {
		points[i] = ChartPoint{
			Label: fmt.Sprintf("%s–%s", dataset.FormatNumber(RoundTo2(b.Lower)), dataset.FormatNumber(RoundTo2(b.Upper))),
			Value: float64(b.Count),
		}
	}
	return newChart("histogram", "Distribuição de "+column, column, "Frequência", points)
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func newChart(chartType, title, xAxis, yAxis string, points []ChartPoint) *ChartConfig {
	config := &ChartConfig{
		ChartType:  chartType,
		Title:      title,
		XAxis:      xAxis,
		YAxis:      yAxis,
		Series:     []ChartSeries{{Name: yAxis, Data: points}},
		ShowLegend: chartType == "pie",
		ShowGrid:   chartType != "pie",
	}
	if chartType == "pie" {
		config.Colors = assignColors(len(points))
	} else {
		config.Colors = assignColors(len(config.Series))
	}
	return config
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
