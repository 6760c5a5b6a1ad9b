package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/vjranagit/ecoatlas/pkg/types"
)

// HTML renders p as a standalone interactive page
func HTML(w io.Writer, p *types.ChartPayload) error {
	if p == nil || len(p.Series) == 0 {
		return fmt.Errorf("%w: nothing to render", types.ErrEmptySeries)
	}

	page := components.NewPage()
	page.PageTitle = p.Title
	if p.Kind == types.ChartRanking {
		page.AddCharts(barChart(p))
	} else {
		page.AddCharts(lineChart(p))
	}
	return page.Render(w)
}

func globalOpts(p *types.ChartPayload) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{Width: "960px", Height: "540px"}),
		charts.WithTitleOpts(opts.Title{Title: p.Title, Subtitle: p.Citation}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(len(p.Series) > 1), Bottom: "0"}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: p.Axis.Label,
			Min:  p.Axis.Min,
			Max:  p.Axis.Max,
		}),
	}
}

func lineChart(p *types.ChartPayload) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOpts(p)...)
	line.SetXAxis(p.Labels)

	for _, s := range p.Series {
		data := make([]opts.LineData, len(s.Data))
		for i, v := range s.Data {
			if v == nil {
				data[i] = opts.LineData{Value: nil} // breaks the line
				continue
			}
			data[i] = opts.LineData{Value: *v}
		}
		line.AddSeries(s.Label, data,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: s.Color}),
		)
	}
	return line
}

func barChart(p *types.ChartPayload) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOpts(p)...)
	bar.SetXAxis(p.Labels)

	s := p.Series[0]
	data := make([]opts.BarData, len(s.Data))
	for i, v := range s.Data {
		col := s.Color
		if i < len(s.PointColors) {
			col = s.PointColors[i]
		}
		var value any
		if v != nil {
			value = *v
		}
		data[i] = opts.BarData{Value: value, ItemStyle: &opts.ItemStyle{Color: col}}
	}
	bar.AddSeries(s.Label, data)
	return bar
}
