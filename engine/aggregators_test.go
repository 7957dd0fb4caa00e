package engine

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/opsboard/dataset"
	"github.com/spektr-org/opsboard/schema"
)

func TestComputeKPI(t *testing.T) {
	table, _ := fleet(t)

	kpi := ComputeKPI(table, "Área Operacional (ha)")
	assert.Equal(t, 3, kpi.Count)
	assert.Equal(t, Available(30), kpi.Sum)
	assert.Equal(t, Available(10), kpi.Mean)
	assert.Equal(t, Available(10), kpi.Median)
	assert.InDelta(t, 2.0, kpi.Std.Value, 1e-9, "sample std of 12, 8, 10")
	assert.Equal(t, Available(8), kpi.Min)
	assert.Equal(t, Available(12), kpi.Max)
}

func TestComputeKPIEmptyView(t *testing.T) {
	table, _ := fleet(t)
	empty := ApplyFilters(table, FilterSpec{"Operador": Membership()})

	kpi := ComputeKPI(empty, "Horímetro")
	assert.Equal(t, Available(0), kpi.Sum, "sum over nothing is zero")
	assert.False(t, kpi.Mean.Available)
	assert.False(t, kpi.Median.Available)
	assert.False(t, kpi.Std.Available)

	absent := ComputeKPI(table, "Nope")
	assert.False(t, absent.Sum.Available, "absent column has no sum")
}

func TestStdNeedsTwoValues(t *testing.T) {
	assert.False(t, StdDev([]float64{3}).Available)
	assert.Equal(t, Available(2.5), Median([]float64{4, 1, 3, 2}))
}

func TestMetricJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		A Metric `json:"a"`
		B Metric `json:"b"`
	}{Available(1.5), Unavailable})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1.5, "b": null}`, string(out))

	var m Metric
	require.NoError(t, json.Unmarshal([]byte("null"), &m))
	assert.False(t, m.Available)
}

func TestGroupSummaryCountsAddUp(t *testing.T) {
	table, _ := fleet(t)

	groups, err := GroupSummary(table, "Operador", "Área Operacional (ha)")
	require.NoError(t, err)

	total := 0
	for _, g := range groups {
		assert.Greater(t, g.Count, 0, "no empty groups")
		assert.Equal(t, g.Count, g.View.Len())
		total += g.Count
	}
	assert.Equal(t, table.Len(), total)

	require.Len(t, groups, 3)
	assert.Equal(t, "Ana", groups[0].Key)
	assert.Equal(t, 22.0, groups[0].Sum)
	assert.Equal(t, Available(11), groups[0].Mean)
	assert.True(t, groups[2].Missing)
	assert.False(t, groups[2].Mean.Available, "T3 has no area")
}

func TestGroupSummaryUnknownColumn(t *testing.T) {
	table, _ := fleet(t)

	_, err := GroupSummary(table, "Nope", "Horímetro")
	assert.True(t, errors.Is(err, ErrColumnNotFound))
}

func TestGroupSummaryOnFilteredView(t *testing.T) {
	table, _ := fleet(t)
	view := ApplyFilters(table, FilterSpec{"Equipamento": Membership("T1")})

	groups, err := GroupSummary(view, "Operador", "Horímetro")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, 2000.0, groups[0].Sum)
}

func TestValueCounts(t *testing.T) {
	table, _ := fleet(t)

	counts := ValueCounts(table, "Equipamento")
	assert.Equal(t, []ValueCount{{"T1", 2}, {"T2", 1}, {"T3", 1}}, counts)
}

func TestHistogram(t *testing.T) {
	table, _ := fleet(t)

	bins := Histogram(table, "Horímetro", 30)
	require.Len(t, bins, 30)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, 500.0, bins[0].Lower)
	assert.Equal(t, 2000.0, bins[29].Upper)
	assert.Equal(t, 1, bins[29].Count, "maximum lands in the last bin")

	flat, err := dataset.FromRows("s", []string{"x"}, [][]string{{"5"}, {"5"}})
	require.NoError(t, err)
	single := Histogram(flat, "x", 30)
	assert.Equal(t, []Bin{{Lower: 5, Upper: 5, Count: 2}}, single)

	assert.Nil(t, Histogram(table, "Operador", 30))
}

func TestHistogramSkipsNonFiniteValues(t *testing.T) {
	table, err := dataset.NewTable("s", []dataset.Column{{Name: "x", Values: []dataset.Value{
		dataset.Number(500), dataset.Number(math.Inf(1)), dataset.Number(math.NaN()),
		dataset.Number(math.Inf(-1)), dataset.Number(1000),
	}}})
	require.NoError(t, err)

	var bins []Bin
	require.NotPanics(t, func() { bins = Histogram(table, "x", 5) })
	require.Len(t, bins, 5)
	assert.Equal(t, 500.0, bins[0].Lower)
	assert.Equal(t, 1000.0, bins[4].Upper)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, []float64{500, 1000}, NumericValues(table, "x"))
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0,00"},
		{12.5, "12,50"},
		{1234.567, "1.234,57"},
		{-1500000, "-1.500.000,00"},
		{-0.001, "0,00"},
	}
	for _, tt := range tests {
		if got := FormatDecimal(tt.in); got != tt.want {
			t.Errorf("FormatDecimal(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	assert.Equal(t, "—", FormatMetric(Unavailable))
}

// ============================================================================
// ALERTS
// ============================================================================

func alertTable(t *testing.T) (*dataset.Table, *schema.Classification) {
	t.Helper()
	raw, err := dataset.FromRows("s", []string{"Equipamento", "Horimetro", "Manutencao"}, [][]string{
		{"T1", "500", "sim"},
		{"T2", "1000", "ok"},
		{"T3", "1500", "pendente"},
	})
	require.NoError(t, err)
	cls, table := schema.Classify(raw)
	return table, cls
}

func TestAlertsExample(t *testing.T) {
	table, cls := alertTable(t)

	res, err := Alerts(table, cls, AlertOptions{Threshold: 1000, Statuses: []string{"pendente", "agendar"}})
	require.NoError(t, err)

	require.True(t, res.Applicable)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "1500", res.Rows.Value(0, "Horimetro").Text())
	assert.Equal(t, "pendente", res.Rows.Value(0, "Manutencao").Text())
	assert.Equal(t, []string{"Horimetro", "Manutencao", "Equipamento"}, tableKeys(res.Table))
}

func TestAlertsStatusIsCaseInsensitive(t *testing.T) {
	table, cls := fleet(t)

	res, err := Alerts(table, cls, AlertOptions{Threshold: 1000, Statuses: []string{"AGENDAR"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "T3", res.Rows.Value(0, "Equipamento").Text())
}

func TestAlertsDefaultsAndEmptyStatuses(t *testing.T) {
	table, cls := fleet(t)

	def, err := Alerts(table, cls, AlertOptions{Threshold: 1000})
	require.NoError(t, err)
	assert.Equal(t, []string{"pendente", "agendar"}, def.Statuses)
	assert.Equal(t, 2, def.Count)

	none, err := Alerts(table, cls, AlertOptions{Threshold: 0, Statuses: []string{}})
	require.NoError(t, err)
	assert.Equal(t, 0, none.Count)
}

func TestAlertsUnknownStatus(t *testing.T) {
	table, cls := alertTable(t)

	_, err := Alerts(table, cls, AlertOptions{Threshold: 1000, Statuses: []string{"quebrado"}})
	assert.True(t, errors.Is(err, ErrUnknownStatus))
}

func TestAlertsNotApplicable(t *testing.T) {
	raw, err := dataset.FromRows("s", []string{"Operador"}, [][]string{{"Ana"}})
	require.NoError(t, err)
	cls, table := schema.Classify(raw)

	res, err := Alerts(table, cls, DefaultAlertOptions())
	require.NoError(t, err)
	assert.False(t, res.Applicable)
	assert.NotEmpty(t, res.Message)
}

func TestStatusDistribution(t *testing.T) {
	table, cls := alertTable(t)

	chart := StatusDistribution(table, cls)
	require.NotNil(t, chart)
	assert.Equal(t, "pie", chart.ChartType)
	assert.Len(t, chart.Series[0].Data, 3)
	assert.Len(t, chart.Colors, 3)
}

// ============================================================================
// MAP
// ============================================================================

func TestMapPoints(t *testing.T) {
	table, cls := fleet(t)

	m := MapPoints(table, cls)
	require.True(t, m.Applicable)
	require.Len(t, m.Points, 3, "row with missing latitude is dropped")
	assert.InDelta(t, -21.5, m.Center.Lat, 1e-9)
	assert.InDelta(t, -47.5, m.Center.Lon, 1e-9)

	empty := MapPoints(ApplyFilters(table, FilterSpec{"Operador": Membership()}), cls)
	assert.True(t, empty.Applicable)
	assert.Nil(t, empty.Center)
	assert.NotEmpty(t, empty.Message)
}

func tableKeys(td *TableData) []string {
	keys := make([]string, len(td.Columns))
	for i, c := range td.Columns {
		keys[i] = c.Key
	}
	return keys
}

func TestRoundTo2(t *testing.T) {
	assert.Equal(t, 3.33, RoundTo2(10.0/3))
	assert.True(t, math.IsNaN(RoundTo2(math.NaN())))
}
