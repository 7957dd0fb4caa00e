package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spektr-org/opsboard/config"
)

// ============================================================================
// OPSBOARD CLI — Operational dashboard pipeline from the terminal
// ============================================================================

// Version is the release reported by --version.
var Version = "0.3.0"

// app carries what every subcommand needs after flag parsing.
type app struct {
	v   *viper.Viper
	cfg *config.Config
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "opsboard",
		Short: "Opsboard — operational spreadsheet dashboards",
		Long: `Opsboard loads an XLSX workbook or CSV export of fleet operations,
classifies its columns, applies filters and derived metrics, and reports
KPI cards, grouped charts, maintenance alerts and map points.

Examples:
  opsboard classify frota.xlsx --format pretty
  opsboard analyze frota.xlsx --select Operador=Ana,Bruno --range Horímetro=500:1500
  opsboard analyze frota.csv --between "Data Operação=2024-01-01..2024-01-03" --format text
  opsboard serve --addr :8080 --redis redis://localhost:6379/0`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "profile file (default: ./opsboard.yaml when present)")
	_ = a.v.BindPFlag("config", root.PersistentFlags().Lookup("config"))

	root.AddCommand(newClassifyCmd(a), newAnalyzeCmd(a), newServeCmd(a))
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the profile path (flag, OPSBOARD_CONFIG, or
// ./opsboard.yaml) and loads it over the defaults.
func (a *app) loadConfig() error {
	a.v.SetEnvPrefix("OPSBOARD")
	a.v.AutomaticEnv()

	path := a.v.GetString("config")
	if path == "" {
		if _, err := os.Stat("opsboard.yaml"); err == nil {
			path = "opsboard.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}
