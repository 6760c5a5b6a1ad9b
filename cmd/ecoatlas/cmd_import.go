package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vjranagit/ecoatlas/pkg/ingest"
	"go.uber.org/zap"
)

func newImportCmd(c *cli) *cobra.Command {
	var (
		table     string
		sheet     string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a CSV or XLSX export into a table",
		Long: `Loads a dataset export into the configured store. The first row names the
columns. Empty cells and the markers "..", "NA", "N/A" and "-" are stored as NULL.

Example:
  ecoatlas import --table ndvi ndvi.csv
  ecoatlas import --table countries --sheet Countries countries.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			im := ingest.NewImporter(a.store, batchSize, c.logger.Named("ingest"))
			n, err := im.ImportFile(cmd.Context(), args[0], table, sheet)
			if err != nil {
				return err
			}

			// entity names may have changed
			a.resolver.Invalidate()
			c.logger.Debug("Imported file", zap.String("file", args[0]), zap.Int("rows", n))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows into %s\n", n, table)
			return nil
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "", "destination table")
	cmd.Flags().StringVar(&sheet, "sheet", "", "worksheet name for XLSX files (default first sheet)")
	cmd.Flags().IntVar(&batchSize, "batch", ingest.DefaultBatchSize, "rows per insert batch")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}
