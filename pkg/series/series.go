// Package series turns raw observations into ordered, gap-aware time series.
package series

import (
	"sort"

	"github.com/vjranagit/ecoatlas/pkg/types"
)

// Normalize groups raw observations by year (the last observation for a year
// wins) and sorts them ascending. Source order never leaks into the result.
// When expected is a valid range every year of it is present, with absent
// years marked missing; otherwise only the input years appear.
func Normalize(raw []types.Observation, expected *types.YearRange) []types.Observation {
	byYear := make(map[int]types.Observation, len(raw))
	for _, o := range raw {
		byYear[o.Year] = o
	}

	if expected != nil && expected.Validate() == nil {
		for y := expected.From; y <= expected.To; y++ {
			if _, ok := byYear[y]; !ok {
				byYear[y] = types.Observation{Year: y, Missing: true}
			}
		}
	}

	out := make([]types.Observation, 0, len(byYear))
	for _, o := range byYear {
		if o.Missing {
			o.Value = 0
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// New builds a normalized series for one entity and metric
func New(entity types.Entity, metric string, raw []types.Observation, expected *types.YearRange) types.ObservationSeries {
	return types.ObservationSeries{
		Entity:       entity,
		Metric:       metric,
		Observations: Normalize(raw, expected),
	}
}

// Values returns every non-missing value across all series
func Values(all ...types.ObservationSeries) []float64 {
	var vals []float64
	for _, s := range all {
		for _, o := range s.Observations {
			if !o.Missing {
				vals = append(vals, o.Value)
			}
		}
	}
	return vals
}

// Data converts observations to chart data with nil gaps
func Data(s types.ObservationSeries) []*float64 {
	data := make([]*float64, len(s.Observations))
	for i, o := range s.Observations {
		if !o.Missing {
			data[i] = types.Float(o.Value)
		}
	}
	return data
}

// Align lays several series over the ascending union of their years. Each
// returned data slice has one entry per year, nil where that series has no value.
func Align(all []types.ObservationSeries) ([]int, [][]*float64) {
	yearSet := make(map[int]struct{})
	for _, s := range all {
		for _, o := range s.Observations {
			yearSet[o.Year] = struct{}{}
		}
	}

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	index := make(map[int]int, len(years))
	for i, y := range years {
		index[y] = i
	}

	data := make([][]*float64, len(all))
	for i, s := range all {
		data[i] = make([]*float64, len(years))
		for _, o := range s.Observations {
			if !o.Missing {
				data[i][index[o.Year]] = types.Float(o.Value)
			}
		}
	}
	return years, data
}
