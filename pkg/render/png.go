// Package render draws chart payloads as PNG images or interactive HTML pages.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vjranagit/ecoatlas/pkg/axis"
	"github.com/vjranagit/ecoatlas/pkg/types"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Size of the rendered image in pixels
type Size struct {
	Width  int
	Height int
}

// DefaultSize fits a dashboard panel
var DefaultSize = Size{Width: 960, Height: 540}

// MaxDimension caps either side of a rendered image
const MaxDimension = 4096

// Validate rejects sizes larger than MaxDimension. Zero or negative sides mean DefaultSize.
func (s Size) Validate() error {
	if s.Width > MaxDimension || s.Height > MaxDimension {
		return fmt.Errorf("%w: image size %dx%d exceeds %d px", types.ErrInvalidInput, s.Width, s.Height, MaxDimension)
	}
	return nil
}

// PNG renders p as a PNG image
func PNG(w io.Writer, p *types.ChartPayload, size Size) error {
	if p == nil || len(p.Series) == 0 {
		return fmt.Errorf("%w: nothing to render", types.ErrEmptySeries)
	}
	if err := size.Validate(); err != nil {
		return err
	}
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultSize
	}

	if p.Kind == types.ChartRanking {
		return renderBars(w, p, size)
	}
	return renderLines(w, p, size)
}

func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func yAxis(a types.AxisConfig) chart.YAxis {
	ticks := make([]chart.Tick, 0, 8)
	for _, v := range axis.Ticks(a) {
		ticks = append(ticks, chart.Tick{Value: v, Label: strconv.FormatFloat(v, 'g', 4, 64)})
	}
	return chart.YAxis{
		Name:  a.Label,
		Range: &chart.ContinuousRange{Min: a.Min, Max: a.Max},
		Ticks: ticks,
	}
}

// segment is a run of consecutive present points
type segment struct {
	xs []float64
	ys []float64
}

// segments splits data at missing points so gaps are drawn as breaks.
// go-chart cannot range a single point, so lone points are widened slightly.
func segments(labels []string, data []*float64) []segment {
	var out []segment
	var cur segment
	flush := func() {
		if len(cur.xs) == 1 {
			cur.xs = append(cur.xs, cur.xs[0]+0.01)
			cur.ys = append(cur.ys, cur.ys[0])
		}
		if len(cur.xs) > 0 {
			out = append(out, cur)
		}
		cur = segment{}
	}
	for i, v := range data {
		if v == nil || i >= len(labels) {
			flush()
			continue
		}
		cur.xs = append(cur.xs, float64(i))
		cur.ys = append(cur.ys, *v)
	}
	flush()
	return out
}

func renderLines(w io.Writer, p *types.ChartPayload, size Size) error {
	var series []chart.Series
	for _, s := range p.Series {
		col := hexColor(s.Color)
		for i, seg := range segments(p.Labels, s.Data) {
			name := s.Label
			if i > 0 {
				name = ""
			}
			series = append(series, chart.ContinuousSeries{
				Name:    name,
				XValues: seg.xs,
				YValues: seg.ys,
				Style: chart.Style{
					StrokeColor: col,
					StrokeWidth: 2,
					DotColor:    col,
					DotWidth:    3,
				},
			})
		}
	}
	if len(series) == 0 {
		return fmt.Errorf("%w: every point is missing", types.ErrEmptySeries)
	}

	ticks := make([]chart.Tick, len(p.Labels))
	for i, l := range p.Labels {
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}

	ch := chart.Chart{
		Title:      p.Title,
		Width:      size.Width,
		Height:     size.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 36}},
		XAxis: chart.XAxis{
			Name:  p.Citation,
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: 0, Max: float64(max(len(p.Labels)-1, 1))},
		},
		YAxis:  yAxis(p.Axis),
		Series: series,
	}
	if len(p.Series) > 1 {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	return ch.Render(chart.PNG, w)
}

func renderBars(w io.Writer, p *types.ChartPayload, size Size) error {
	s := p.Series[0]
	bars := make([]chart.Value, 0, len(s.Data))
	for i, v := range s.Data {
		if v == nil || i >= len(p.Labels) {
			continue
		}
		col := s.Color
		if i < len(s.PointColors) {
			col = s.PointColors[i]
		}
		bars = append(bars, chart.Value{
			Label: p.Labels[i],
			Value: *v,
			Style: chart.Style{FillColor: hexColor(col), StrokeColor: hexColor(col)},
		})
	}
	if len(bars) == 0 {
		return fmt.Errorf("%w: no bars", types.ErrEmptySeries)
	}

	bc := chart.BarChart{
		Title:      p.Title,
		Width:      size.Width,
		Height:     size.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		BarWidth:   max(size.Width/(2*len(bars)+1), 8),
		YAxis:      yAxis(p.Axis),
		Bars:       bars,
	}
	return bc.Render(chart.PNG, w)
}
