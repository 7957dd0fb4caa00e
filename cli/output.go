package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/opsboard/engine"
)

// openOutput returns the --out file, or the command's stdout.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func writeJSON(w io.Writer, v interface{}, format string) error {
	enc := json.NewEncoder(w)
	if format == "pretty" {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// writeText prints a short human-readable summary of a snapshot.
func writeText(w io.Writer, snap *engine.Snapshot) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d de %d registros (%s)\n", snap.Table, snap.FilteredRows, snap.TotalRows, snap.FilterLabel)

	for _, card := range snap.Cards {
		line := fmt.Sprintf("  %-36s %s", card.Label, card.Display)
		if card.Target != nil && card.Delta.Available {
			line += fmt.Sprintf("  (meta %s, Δ %s)", engine.FormatDecimal(*card.Target), engine.FormatMetric(card.Delta))
		}
		b.WriteString(line + "\n")
	}

	if snap.Alerts != nil {
		fmt.Fprintf(&b, "Alertas: %s\n", snap.Alerts.Message)
	}
	if snap.Map != nil {
		if len(snap.Map.Points) > 0 {
			fmt.Fprintf(&b, "Mapa: %d pontos\n", len(snap.Map.Points))
		} else if snap.Map.Message != "" {
			fmt.Fprintf(&b, "Mapa: %s\n", snap.Map.Message)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
