package engine

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spektr-org/opsboard/dataset"
	"github.com/spektr-org/opsboard/schema"
)

// ============================================================================
// MAINTENANCE ALERTS
// ============================================================================
// A row raises an alert when its hour-meter reading is at least the
// threshold AND its maintenance status (lower-cased, missing → "") is one
// of the selected statuses. Rows with a missing or non-numeric hour-meter
// never alert.
// ============================================================================

// ErrUnknownStatus is returned for alert statuses outside StatusVocabulary.
var ErrUnknownStatus = errors.New("unknown maintenance status")

// StatusVocabulary lists the maintenance statuses an alert can select.
var StatusVocabulary = []string{"sim", "pendente", "agendar"}

// DefaultAlertOptions returns threshold 1000 with statuses pendente and
// agendar.
func DefaultAlertOptions() AlertOptions {
	return AlertOptions{Threshold: 1000, Statuses: []string{"pendente", "agendar"}}
}

// Validate checks the statuses against the vocabulary and normalizes them
// to lower case. A nil status list means the defaults; an empty one
// selects no status.
func (o AlertOptions) Validate() (AlertOptions, error) {
	if o.Statuses == nil {
		o.Statuses = DefaultAlertOptions().Statuses
	}
	if o.Threshold < 0 {
		return o, fmt.Errorf("%w: negative alert threshold %v", ErrInvalidRange, o.Threshold)
	}

	normalized := make([]string, 0, len(o.Statuses))
	for _, s := range o.Statuses {
		s = strings.ToLower(strings.TrimSpace(s))
		known := false
		for _, v := range StatusVocabulary {
			if s == v {
				known = true
				break
			}
		}
		if !known {
			return o, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownStatus, s, strings.Join(StatusVocabulary, ", "))
		}
		normalized = append(normalized, s)
	}
	o.Statuses = normalized
	return o, nil
}

// Alerts evaluates the maintenance alert over a filtered view. When the
// classification has no hour-meter or status column the result is marked
// not applicable; that is not an error.
func Alerts(view dataset.RecordView, cls *schema.Classification, opts AlertOptions) (*AlertResult, error) {
	opts, err := opts.Validate()
	if err != nil {
		return nil, err
	}

	result := &AlertResult{
		Threshold: opts.Threshold,
		Statuses:  opts.Statuses,
	}
	if !cls.HasAlerts() {
		result.Message = "Colunas para alertas de manutenção ou horímetro não encontradas."
		return result, nil
	}

	result.Applicable = true
	result.HourMeterColumn = cls.HourMeter
	result.StatusColumn = cls.MaintenanceStatus

	selected := make(map[string]bool, len(opts.Statuses))
	for _, s := range opts.Statuses {
		selected[s] = true
	}

	indices := make([]int, 0)
	for i := 0; i < view.Len(); i++ {
		hours, ok := view.Value(i, cls.HourMeter).Float()
		if !ok || hours < opts.Threshold {
			continue
		}
		status := strings.ToLower(view.Value(i, cls.MaintenanceStatus).Text())
		if selected[status] {
			indices = append(indices, i)
		}
	}

	rows := dataset.NewSubView(view, indices)
	result.Rows = rows
	result.Count = rows.Len()
	result.Table = BuildTable("Alertas de Manutenção", rows, AlertColumns(cls), 0, 0)

	if result.Count > 0 {
		result.Message = fmt.Sprintf("%d equipamentos com ALERTA de manutenção.", result.Count)
		log.Printf("🛠️ Opsboard: %d maintenance alerts (threshold %v, statuses %v)", result.Count, opts.Threshold, opts.Statuses)
	} else {
		result.Message = "Nenhum alerta de manutenção pendente encontrado."
	}
	return result, nil
}

// AlertColumns lists the columns shown for alert rows: hour-meter, status,
// then the categorical columns.
func AlertColumns(cls *schema.Classification) []string {
	cols := []string{cls.HourMeter, cls.MaintenanceStatus}
	for _, c := range cls.Categorical {
		if c != cls.HourMeter && c != cls.MaintenanceStatus {
			cols = append(cols, c)
		}
	}
	return cols
}

// StatusDistribution counts maintenance statuses over a view, for the
// status pie chart. It returns nil when there is no status column.
func StatusDistribution(view dataset.RecordView, cls *schema.Classification) *ChartConfig {
	if cls.MaintenanceStatus == "" {
		return nil
	}
	counts := ValueCounts(view, cls.MaintenanceStatus)
	if len(counts) == 0 {
		return nil
	}
	points := make([]ChartPoint, len(counts))
	for i, c := range counts {
		points[i] = ChartPoint{Label: c.Value, Value: float64(c.Count)}
	}
	return newChart("pie", "Distribuição Status Manutenção", cls.MaintenanceStatus, "Quantidade", points)
}
