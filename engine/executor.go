package engine

import (
	"log"

	"github.com/spektr-org/opsboard/dataset"
	"github.com/spektr-org/opsboard/schema"
)

// ============================================================================
// EXECUTOR — Filter + derive everything the dashboard shows
// ============================================================================
// Entry point: Execute(view, classification, spec, opts...)
//
// Pipeline:
//   1. Apply the FilterSpec → SubView (zero-copy)
//   2. KPI cards over the filtered view
//   3. Grouped charts, histogram, maintenance status pie
//   4. Maintenance alerts
//   5. Map points
//   6. Return Snapshot
//
// The snapshot is recomputed from scratch on every call; nothing is
// mutated, so callers may cache it freely.
// ============================================================================

// Execute runs a FilterSpec against a classified view and returns a
// render-ready Snapshot.
//
// Options:
//   - WithCards(cards)          replaces the default KPI cards
//   - WithCharts(charts)        replaces the default grouped charts
//   - WithAlert(opts)           alert threshold and statuses
//   - WithHistogram(col, bins)  distribution chart column
//   - WithPreview(n)            include the first n filtered rows
func Execute(view dataset.RecordView, cls *schema.Classification, spec FilterSpec, opts ...Option) (*Snapshot, error) {
	cfg := applyOptions(opts)

	// 1. Apply filters → SubView (zero-copy)
	filtered := ApplyFilters(view, spec)

	log.Printf("🔧 Opsboard: %d rows after filtering (from %d), %d predicates",
		filtered.Len(), view.Len(), len(spec))

	snap := &Snapshot{
		Table:        cls.Table,
		TotalRows:    view.Len(),
		FilteredRows: filtered.Len(),
		Filters:      spec.Clone(),
		FilterLabel:  spec.Label(),
		View:         filtered,
		Charts:       []*ChartConfig{},
	}

	// 2. KPI cards
	snap.Cards = BuildCards(filtered, cfg.Cards)

	// 3. Charts
	for _, cs := range cfg.Charts {
		if chart := BuildGroupChart(filtered, cs); chart != nil {
			snap.Charts = append(snap.Charts, chart)
		}
	}
	histCol := cfg.HistogramColumn
	if histCol == "" && len(cls.Numeric) > 0 {
		histCol = cls.Numeric[0]
	}
	if histCol != "" {
		if chart := BuildHistogramChart(filtered, histCol, cfg.HistogramBins); chart != nil {
			snap.Charts = append(snap.Charts, chart)
		}
	}
	if chart := StatusDistribution(filtered, cls); chart != nil {
		snap.Charts = append(snap.Charts, chart)
	}

	// 4. Alerts
	alerts, err := Alerts(filtered, cls, cfg.Alert)
	if err != nil {
		return nil, err
	}
	snap.Alerts = alerts

	// 5. Map
	snap.Map = MapPoints(filtered, cls)

	if cfg.PreviewRows > 0 {
		snap.Preview = BuildTable("Dados após filtros", filtered, nil, 0, cfg.PreviewRows)
	}

	return snap, nil
}
