package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/opsboard/dataset"
	"github.com/spektr-org/opsboard/schema"
)

func TestExecuteSnapshot(t *testing.T) {
	table, cls := fleet(t)

	snap, err := Execute(table, cls, FilterSpec{"Operador": Membership("Ana", "Bruno")}, WithPreview(2))
	require.NoError(t, err)

	assert.Equal(t, "Frota", snap.Table)
	assert.Equal(t, 4, snap.TotalRows)
	assert.Equal(t, 3, snap.FilteredRows)
	assert.Equal(t, 3, snap.View.Len())

	require.Len(t, snap.Cards, 5)
	eff := snap.Cards[0]
	assert.True(t, eff.Present)
	assert.Equal(t, Available(65), eff.Value, "mean of 70 and 60")
	assert.Equal(t, Available(0), eff.Delta)
	assert.False(t, snap.Cards[2].Present, "no Consumo Médio column")

	titles := make([]string, 0, len(snap.Charts))
	for _, c := range snap.Charts {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{
		"Área Operacional por Operador",
		"Eficiência de Motor (%) por Equipamento",
		"Distribuição de Horímetro",
		"Distribuição Status Manutenção",
	}, titles)

	require.True(t, snap.Alerts.Applicable)
	assert.Equal(t, 1, snap.Alerts.Count)
	assert.Len(t, snap.Map.Points, 2)

	require.NotNil(t, snap.Preview)
	assert.Len(t, snap.Preview.Rows, 2)
	assert.Equal(t, 3, snap.Preview.Total)

	_, err = json.Marshal(snap)
	assert.NoError(t, err)
}

func TestExecuteRejectsUnknownAlertStatus(t *testing.T) {
	table, cls := fleet(t)

	_, err := Execute(table, cls, nil, WithAlert(AlertOptions{Threshold: 1, Statuses: []string{"talvez"}}))
	assert.True(t, errors.Is(err, ErrUnknownStatus))
}

func TestExecuteWithoutOptionalColumns(t *testing.T) {
	raw, err := dataset.FromRows("s", []string{"Operador", "Horas"}, [][]string{{"Ana", "3"}})
	require.NoError(t, err)
	cls, table := schema.Classify(raw)

	snap, err := Execute(table, cls, FilterSpec{})
	require.NoError(t, err)
	assert.False(t, snap.Alerts.Applicable)
	assert.False(t, snap.Map.Applicable)
	for _, card := range snap.Cards {
		assert.False(t, card.Present)
	}
}

func TestExecuteWithInfinityText(t *testing.T) {
	raw, err := dataset.FromRows("Frota", []string{"Horímetro"}, [][]string{{"500"}, {"inf"}, {"1000"}})
	require.NoError(t, err)
	cls, table := schema.Classify(raw)
	assert.Equal(t, []string{"Horímetro"}, cls.Categorical, "\"inf\" is text, not a number")

	require.NotPanics(t, func() {
		_, err = Execute(table, cls, FilterSpec{})
	})
	require.NoError(t, err)
}

func TestGroupChartUsesLastMatchingColumn(t *testing.T) {
	raw, err := dataset.FromRows("s",
		[]string{"Operador", "Operador Reserva", "Área Operacional (ha)"},
		[][]string{
			{"Ana", "Caio", "10"},
			{"Bruno", "Caio", "5"},
		})
	require.NoError(t, err)

	chart := BuildGroupChart(raw, DefaultCharts()[0])
	require.NotNil(t, chart)
	assert.Equal(t, "Operador Reserva", chart.XAxis)
	assert.Equal(t, []ChartPoint{{Label: "Caio", Value: 15}}, chart.Series[0].Data)

	assert.Nil(t, BuildGroupChart(raw, DefaultCharts()[1]), "no equipment column")
}

func TestGroupChartMeanSkipsEmptyGroups(t *testing.T) {
	table, _ := fleet(t)

	chart := BuildGroupChart(table, DefaultCharts()[1])
	require.NotNil(t, chart)
	assert.Equal(t, []ChartPoint{{"T1", 70}, {"T2", 60}, {"T3", 65}}, chart.Series[0].Data)
}

func TestBuildCardResolvesAccentInsensitive(t *testing.T) {
	raw, err := dataset.FromRows("s", []string{"eficiencia de motor (%)"}, [][]string{{"60"}, {"70"}})
	require.NoError(t, err)

	card := BuildCard(raw, DefaultCards()[0])
	assert.Equal(t, "eficiencia de motor (%)", card.Column)
	assert.Equal(t, "65,00", card.Display)
	require.NotNil(t, card.Target)
	assert.Equal(t, 65.0, *card.Target)
}

func TestBuildCardPresentWithoutValue(t *testing.T) {
	table, _ := fleet(t)
	empty := ApplyFilters(table, FilterSpec{"Operador": Membership()})

	card := BuildCard(empty, DefaultCards()[0])
	assert.True(t, card.Present, "column exists")
	assert.False(t, card.Value.Available, "no rows, no mean")
	assert.False(t, card.Delta.Available)
	assert.Equal(t, "—", card.Display)
}

func TestBuildTablePaging(t *testing.T) {
	table, _ := fleet(t)

	td := BuildTable("t", table, []string{"Equipamento", "Horímetro"}, 1, 2)
	assert.Equal(t, [][]string{{"T2", "1000"}, {"T1", "1500"}}, td.Rows)
	assert.Equal(t, 4, td.Total)
	assert.Equal(t, "number", td.Columns[1].Type)
	assert.Equal(t, "5.000,00", td.Summary.Values["Horímetro"])

	past := BuildTable("t", table, nil, 10, 5)
	assert.Empty(t, past.Rows)
}
