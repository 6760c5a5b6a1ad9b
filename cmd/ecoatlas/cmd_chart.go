package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vjranagit/ecoatlas/pkg/pipeline"
	"github.com/vjranagit/ecoatlas/pkg/render"
	"github.com/vjranagit/ecoatlas/pkg/types"
	"go.uber.org/zap"
)

type chartFlags struct {
	metric    string
	region    string
	from, to  int
	year      int
	direction string
	n         int
	format    string
	out       string
	width     int
	height    int
}

var chartUsage = map[string]struct{ use, short string }{
	pipeline.ViewTrend:    {"trend <entity>", "Chart one entity's metric over time"},
	pipeline.ViewCompiled: {"compiled <entity>...", "Overlay several entities' series for one metric"},
	pipeline.ViewRegion:   {"region", "Chart every entity in a region"},
	pipeline.ViewRanking:  {"ranking", "Rank the top N entities for one year"},
}

func newChartCmd(c *cli, view string) *cobra.Command {
	var f chartFlags
	usage := chartUsage[view]

	cmd := &cobra.Command{
		Use:   usage.use,
		Short: usage.short,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := f.selection(view, args)
			if err != nil {
				return err
			}

			a, err := c.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.dashboard.Run(cmd.Context(), sel)
			if err != nil {
				if msg := pipeline.Message(err); msg != "" {
					c.logger.Warn(msg, zap.Error(err))
				}
				return err
			}

			w := cmd.OutOrStdout()
			if f.out != "" {
				fh, err := os.Create(f.out)
				if err != nil {
					return err
				}
				defer fh.Close()
				w = fh
			}
			return f.write(w, p)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.metric, "metric", "m", "", "metric key (see 'ecoatlas metrics')")
	fl.StringVarP(&f.format, "format", "f", "json", "output format: json, png or html")
	fl.StringVarP(&f.out, "out", "o", "", "output file (default stdout)")
	fl.IntVar(&f.width, "width", render.DefaultSize.Width, "PNG width")
	fl.IntVar(&f.height, "height", render.DefaultSize.Height, "PNG height")
	_ = cmd.MarkFlagRequired("metric")

	switch view {
	case pipeline.ViewRanking:
		fl.IntVar(&f.year, "year", 0, "year to rank")
		fl.StringVar(&f.direction, "direction", string(types.Highest), "highest or lowest")
		fl.IntVarP(&f.n, "top", "n", 0, "number of entries (default from config)")
		_ = cmd.MarkFlagRequired("year")
	case pipeline.ViewRegion:
		fl.StringVarP(&f.region, "region", "r", "", "region name")
		_ = cmd.MarkFlagRequired("region")
		fallthrough
	default:
		fl.IntVar(&f.from, "from", 0, "first year (inclusive)")
		fl.IntVar(&f.to, "to", 0, "last year (inclusive)")
	}

	switch view {
	case pipeline.ViewTrend:
		cmd.Args = cobra.ExactArgs(1)
	case pipeline.ViewCompiled:
		cmd.Args = cobra.MinimumNArgs(1)
	default:
		cmd.Args = cobra.NoArgs
	}
	return cmd
}

func (f chartFlags) selection(view string, args []string) (pipeline.Selection, error) {
	sel := pipeline.Selection{
		View:     view,
		Entities: args,
		Region:   f.region,
		Metric:   f.metric,
		Year:     f.year,
		N:        f.n,
	}

	if (f.from != 0) != (f.to != 0) {
		return sel, fmt.Errorf("%w: --from and --to must be given together", types.ErrInvalidInput)
	}
	if f.from != 0 {
		yr := types.YearRange{From: f.from, To: f.to}
		if err := yr.Validate(); err != nil {
			return sel, err
		}
		sel.Years = &yr
	}

	dir, err := types.ParseDirection(f.direction)
	if err != nil {
		return sel, err
	}
	sel.Direction = dir
	return sel, nil
}

func (f chartFlags) write(w io.Writer, p *types.ChartPayload) error {
	switch f.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case "png":
		return render.PNG(w, p, render.Size{Width: f.width, Height: f.height})
	case "html":
		return render.HTML(w, p)
	}
	return fmt.Errorf("%w: unknown format %q", types.ErrInvalidInput, f.format)
}
