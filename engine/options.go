package engine

// ============================================================================
// ENGINE OPTIONS — Functional options for Execute()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	Cards           []CardSpec
	Charts          []ChartSpec
	Alert           AlertOptions
	HistogramColumn string // empty → first numeric column
	HistogramBins   int
	PreviewRows     int // 0 → no preview table
}

// WithCards replaces the default KPI cards.
func WithCards(cards []CardSpec) Option {
	return func(c *config) {
		c.Cards = cards
	}
}

// WithCharts replaces the default grouped charts.
func WithCharts(charts []ChartSpec) Option {
	return func(c *config) {
		c.Charts = charts
	}
}

// WithAlert sets the maintenance alert threshold and statuses.
func WithAlert(opts AlertOptions) Option {
	return func(c *config) {
		c.Alert = opts
	}
}

// WithHistogram selects the column and bin count of the distribution chart.
func WithHistogram(column string, bins int) Option {
	return func(c *config) {
		c.HistogramColumn = column
		if bins > 0 {
			c.HistogramBins = bins
		}
	}
}

// WithPreview includes the first n filtered rows in the snapshot.
func WithPreview(n int) Option {
	return func(c *config) {
		c.PreviewRows = n
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Cards:         DefaultCards(),
		Charts:        DefaultCharts(),
		Alert:         DefaultAlertOptions(),
		HistogramBins: 30,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
