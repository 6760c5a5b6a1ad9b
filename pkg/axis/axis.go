// Package axis computes y-axis bounds for charts.
package axis

import (
	"fmt"
	"math"

	"github.com/vjranagit/ecoatlas/pkg/series"
	"github.com/vjranagit/ecoatlas/pkg/types"
)

const (
	// degenerateWiden is added on each side when all values are equal
	degenerateWiden = 0.01
	// marginRatio is the share of the data range padded above and below
	marginRatio = 0.1
	// ticks is the number of intervals on an auto-scaled axis
	ticks = 5
)

// Compute returns the axis for values charted together under desc.
// Locked policies are returned verbatim; auto-scaled axes need at least one value.
func Compute(desc types.MetricDescriptor, values []float64) (types.AxisConfig, error) {
	label := Label(desc)

	if desc.AxisPolicy.IsLocked() {
		p := desc.AxisPolicy
		return types.AxisConfig{Min: p.Min, Max: p.Max, StepSize: p.StepSize, Label: label}, nil
	}

	if len(values) == 0 {
		return types.AxisConfig{}, fmt.Errorf("%w: no values for %s", types.ErrEmptySeries, desc.Key)
	}

	dataMin, dataMax := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		dataMin = math.Min(dataMin, v)
		dataMax = math.Max(dataMax, v)
	}

	if dataMin == dataMax {
		dataMin -= degenerateWiden
		dataMax += degenerateWiden
	}

	margin := (dataMax - dataMin) * marginRatio
	lo := dataMin - margin
	hi := dataMax + margin

	return types.AxisConfig{
		Min:      lo,
		Max:      hi,
		StepSize: (hi - lo) / ticks,
		Label:    label,
	}, nil
}

// ForSeries computes one shared axis across every series charted together
func ForSeries(desc types.MetricDescriptor, all ...types.ObservationSeries) (types.AxisConfig, error) {
	return Compute(desc, series.Values(all...))
}

// Label is the axis caption, e.g. "Tree Cover Loss (ha)"
func Label(desc types.MetricDescriptor) string {
	title := desc.Title
	if title == "" {
		title = desc.Key
	}
	if desc.Unit == "" {
		return title
	}
	return fmt.Sprintf("%s (%s)", title, desc.Unit)
}

// Ticks lists the tick positions from Min to Max inclusive
func Ticks(a types.AxisConfig) []float64 {
	if a.StepSize <= 0 || a.Max < a.Min {
		return []float64{a.Min, a.Max}
	}
	n := int(math.Round((a.Max - a.Min) / a.StepSize))
	out := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, a.Min+float64(i)*a.StepSize)
	}
	return out
}
