package engine

import (
	"github.com/spektr-org/opsboard/dataset"
	"github.com/spektr-org/opsboard/schema"
)

// ============================================================================
// CARD BUILDER — KPI cards (mean of a column, optional target)
// ============================================================================
// A card whose column is not in the view is returned unavailable so the
// presentation layer can keep a stable layout.
// ============================================================================

func target(v float64) *float64 { return &v }

// DefaultCards returns the KPI cards of the operational dashboard.
func DefaultCards() []CardSpec {
	return []CardSpec{
		{Label: "Eficiência de Motor (%)", Column: "Eficiência de Motor (%)", Target: target(65)},
		{Label: "Área Operacional (ha)", Column: "Área Operacional (ha)"},
		{Label: "Consumo Médio (l/ha)", Column: "Consumo Médio (l/ha)"},
		{Label: "Rendimento Operacional (ha/h)", Column: "Rendimento Operacional (ha/h)"},
		{Label: "Velocidade Média Efetiva (km/h)", Column: "Velocidade Média Efetiva (km/h)"},
	}
}

// BuildCards computes one card per spec over view.
func BuildCards(view dataset.RecordView, specs []CardSpec) []KPICard {
	cards := make([]KPICard, 0, len(specs))
	for _, spec := range specs {
		cards = append(cards, BuildCard(view, spec))
	}
	return cards
}

// BuildCard computes a single card. Delta is value − target and is only
// available when both are.
func BuildCard(view dataset.RecordView, spec CardSpec) KPICard {
	card := KPICard{Label: spec.Label, Target: spec.Target, Display: "—"}
	if card.Label == "" {
		card.Label = spec.Column
	}

	col := ResolveColumn(view.Columns(), spec.Column)
	if col == "" {
		return card
	}
	card.Column = col
	card.Present = true
	card.Value = ComputeKPI(view, col).Mean
	card.Display = FormatMetric(card.Value)

	if spec.Target != nil && card.Value.Available {
		card.Delta = Available(card.Value.Value - *spec.Target)
	}
	return card
}

// ResolveColumn finds name among columns: an exact match first, then a
// case- and accent-insensitive one. It returns "" when absent.
func ResolveColumn(columns []string, name string) string {
	for _, c := range columns {
		if c == name {
			return c
		}
	}
	folded := schema.Fold(name)
	for _, c := range columns {
		if schema.Fold(c) == folded {
			return c
		}
	}
	return ""
}
