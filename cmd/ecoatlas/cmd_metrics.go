package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vjranagit/ecoatlas/pkg/axis"
	"github.com/vjranagit/ecoatlas/pkg/catalog"
)

func newMetricsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the supported metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.Default()
			if c.cfg.Catalog.Path != "" {
				var err error
				if cat, err = cat.LoadOverlayFile(c.cfg.Catalog.Path); err != nil {
					return err
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tAXIS\tSOURCE")
			for _, m := range cat.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Key, axis.Label(m), cat.Citation(m.Key))
			}
			return tw.Flush()
		},
	}
}
