package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/spektr-org/opsboard/dataset"
	"github.com/spektr-org/opsboard/helpers"
	"github.com/spektr-org/opsboard/schema"
)

func newClassifyCmd(a *app) *cobra.Command {
	var sheet, format, out string

	cmd := &cobra.Command{
		Use:   "classify FILE",
		Short: "Print the column classification of a sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, err := helpers.LoadFile(args[0])
			if err != nil {
				return err
			}
			table, err := pickSheet(wb, sheet)
			if err != nil {
				return err
			}
			cls, _ := schema.Classify(table)
			log.Printf("🔍 Opsboard: %s — %d numeric, %d categorical, %d temporal",
				cls.Table, len(cls.Numeric), len(cls.Categorical), len(cls.Temporal))

			w, closeOut, err := openOutput(cmd, out)
			if err != nil {
				return err
			}
			defer closeOut()
			return writeJSON(w, cls, format)
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet name (default: first sheet)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, pretty")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write output to file instead of stdout")
	return cmd
}

// pickSheet returns the named sheet, or the first one when name is empty.
func pickSheet(wb *helpers.Workbook, name string) (*dataset.Table, error) {
	if name == "" {
		return wb.First(), nil
	}
	t, ok := wb.Sheet(name)
	if !ok {
		return nil, fmt.Errorf("sheet %q not found (available: %v)", name, wb.SheetNames())
	}
	return t, nil
}
