package cli

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/opsboard/engine"
	"github.com/spektr-org/opsboard/helpers"
	"github.com/spektr-org/opsboard/session"
)

type analyzeFlags struct {
	sheet     string
	selects   []string
	ranges    []string
	betweens  []string
	derives   []string
	threshold float64
	statuses  []string
	preview   int
	format    string
	out       string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	f := &analyzeFlags{}

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Filter a sheet and print its dashboard snapshot",
		Long: `Filter a sheet and print its dashboard snapshot.

Filters (repeatable):
  --select  col=v1,v2        keep rows whose column is one of the values
  --range   col=lo:hi        numeric range, either bound may be empty
  --between col=from..to     date range; a date-only end covers the whole day
                             (col=from:to is accepted for date-only bounds)
  --derive  name=expression  add a numeric column, e.g. "Custo/ha=[Custo]/[Área (ha)]"

Formats:
  json      snapshot as JSON (default)
  pretty    indented JSON
  text      human-readable summary`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args[0], f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.sheet, "sheet", "", "sheet name (default: first sheet)")
	fl.StringArrayVar(&f.selects, "select", nil, "categorical filter col=v1,v2")
	fl.StringArrayVar(&f.ranges, "range", nil, "numeric filter col=lo:hi")
	fl.StringArrayVar(&f.betweens, "between", nil, "date filter col=from..to")
	fl.StringArrayVar(&f.derives, "derive", nil, "derived column name=expression")
	fl.Float64Var(&f.threshold, "threshold", 0, "maintenance alert hour-meter threshold (default from profile)")
	fl.StringSliceVar(&f.statuses, "status", nil, "maintenance statuses that raise alerts: sim, pendente, agendar")
	fl.IntVar(&f.preview, "preview", 0, "include the first n filtered rows in the snapshot")
	fl.StringVarP(&f.format, "format", "f", "json", "output format: json, pretty, text")
	fl.StringVarP(&f.out, "out", "o", "", "write output to file instead of stdout")
	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, path string, f *analyzeFlags) error {
	wb, err := helpers.LoadFile(path)
	if err != nil {
		return err
	}
	sess, err := session.New("cli", wb, a.cfg.EngineOptions()...)
	if err != nil {
		return err
	}
	if f.sheet != "" {
		if err := sess.SelectSheet(f.sheet); err != nil {
			return fmt.Errorf("%w (available: %v)", err, wb.SheetNames())
		}
	}

	// ── Derived columns first, so filters may target them ────────────────
	for _, d := range f.derives {
		name, expression, err := splitAssignment(d)
		if err != nil {
			return fmt.Errorf("--derive: %w", err)
		}
		if err := sess.Derive(name, expression); err != nil {
			return err
		}
	}

	req, err := f.filterRequest()
	if err != nil {
		return err
	}
	if !req.IsEmpty() {
		if _, err := sess.UpdateFilters(req); err != nil {
			return err
		}
	}

	alert := a.cfg.Dashboard.Alert
	if cmd.Flags().Changed("threshold") {
		alert.Threshold = f.threshold
	}
	if cmd.Flags().Changed("status") {
		alert.Statuses = f.statuses
	}

	w, closeOut, err := openOutput(cmd, f.out)
	if err != nil {
		return err
	}
	defer closeOut()

	snap, err := sess.Snapshot(engine.WithAlert(alert), engine.WithPreview(f.preview))
	if err != nil {
		return err
	}
	log.Printf("📊 Opsboard: %s — %d of %d rows (%s)", snap.Table, snap.FilteredRows, snap.TotalRows, snap.FilterLabel)

	if f.format == "text" {
		return writeText(w, snap)
	}
	return writeJSON(w, snap, f.format)
}

// filterRequest turns the repeatable filter flags into one request.
func (f *analyzeFlags) filterRequest() (session.FilterRequest, error) {
	req := session.FilterRequest{
		Select:  map[string][]string{},
		Range:   map[string][2]float64{},
		Between: map[string]session.BetweenBounds{},
	}

	for _, s := range f.selects {
		col, values, err := splitAssignment(s)
		if err != nil {
			return req, fmt.Errorf("--select: %w", err)
		}
		var vals []string
		for _, v := range strings.Split(values, ",") {
			if v = strings.TrimSpace(v); v != "" {
				vals = append(vals, v)
			}
		}
		req.Select[col] = append(req.Select[col], vals...)
	}

	for _, r := range f.ranges {
		col, bounds, err := splitAssignment(r)
		if err != nil {
			return req, fmt.Errorf("--range: %w", err)
		}
		lo, hi, ok := strings.Cut(bounds, ":")
		if !ok {
			return req, fmt.Errorf("--range %s: expected col=lo:hi", r)
		}
		loV, err := parseBound(lo, math.Inf(-1))
		if err != nil {
			return req, fmt.Errorf("--range %s: %w", r, err)
		}
		hiV, err := parseBound(hi, math.Inf(1))
		if err != nil {
			return req, fmt.Errorf("--range %s: %w", r, err)
		}
		req.Range[col] = [2]float64{loV, hiV}
	}

	for _, b := range f.betweens {
		col, bounds, err := splitAssignment(b)
		if err != nil {
			return req, fmt.Errorf("--between: %w", err)
		}
		from, to, ok := strings.Cut(bounds, "..")
		if !ok {
			from, to, ok = strings.Cut(bounds, ":")
		}
		if !ok {
			return req, fmt.Errorf("--between %s: expected col=from..to", b)
		}
		req.Between[col] = session.BetweenBounds{From: strings.TrimSpace(from), To: strings.TrimSpace(to)}
	}
	return req, nil
}

// splitAssignment splits "key=value" on the first '='.
func splitAssignment(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", s)
	}
	return key, strings.TrimSpace(value), nil
}

// parseBound reads a numeric bound; empty means unbounded. Decimal commas
// are accepted.
func parseBound(s string, unbounded float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return unbounded, nil
	}
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}
