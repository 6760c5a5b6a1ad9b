// Package chart assembles render-ready payloads for trend and ranking views.
package chart

import (
	"fmt"
	"strconv"

	"github.com/vjranagit/ecoatlas/pkg/catalog"
	"github.com/vjranagit/ecoatlas/pkg/series"
	"github.com/vjranagit/ecoatlas/pkg/types"
)

// Palette is the fixed series palette
var Palette = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6", "#06B6D4",
}

// Color returns the palette color for position i
func Color(i int) string {
	return Palette[i%len(Palette)]
}

// Citation returns the metric's source URL or catalog.UnknownSource
func Citation(desc types.MetricDescriptor) string {
	if desc.CitationURL == "" {
		return catalog.UnknownSource
	}
	return desc.CitationURL
}

func metricName(desc types.MetricDescriptor) string {
	if desc.Title != "" {
		return desc.Title
	}
	return desc.Key
}

func yearLabels(years []int) []string {
	labels := make([]string, len(years))
	for i, y := range years {
		labels[i] = strconv.Itoa(y)
	}
	return labels
}

// Trend builds a single-entity time series payload
func Trend(entityLabel string, s types.ObservationSeries, axis types.AxisConfig, desc types.MetricDescriptor) *types.ChartPayload {
	return &types.ChartPayload{
		Kind:   types.ChartTrend,
		Title:  fmt.Sprintf("%s in %s", metricName(desc), entityLabel),
		Labels: yearLabels(s.Years()),
		Series: []types.ChartSeries{{
			Label: fmt.Sprintf("%s - %s", entityLabel, metricName(desc)),
			Data:  series.Data(s),
			Color: Color(0),
		}},
		Axis:     axis,
		Citation: Citation(desc),
	}
}

// Compiled overlays several entities' series on the union of their years.
// Series i is labeled by its entity and colored Palette[i%6].
func Compiled(title string, all []types.ObservationSeries, axis types.AxisConfig, desc types.MetricDescriptor) *types.ChartPayload {
	years, data := series.Align(all)

	out := make([]types.ChartSeries, len(all))
	for i, s := range all {
		out[i] = types.ChartSeries{
			Label: s.Entity.DisplayName,
			Data:  data[i],
			Color: Color(i),
		}
	}

	if title == "" {
		title = metricName(desc)
	}
	return &types.ChartPayload{
		Kind:     types.ChartCompiled,
		Title:    title,
		Labels:   yearLabels(years),
		Series:   out,
		Axis:     axis,
		Citation: Citation(desc),
	}
}

// Ranking builds a top-N bar payload. Bars take palette colors by position.
func Ranking(result types.RankingResult, axis types.AxisConfig, desc types.MetricDescriptor) *types.ChartPayload {
	labels := make([]string, len(result.Entries))
	data := make([]*float64, len(result.Entries))
	colors := make([]string, len(result.Entries))
	for i, e := range result.Entries {
		labels[i] = e.Entity.DisplayName
		data[i] = types.Float(e.Value)
		colors[i] = Color(i)
	}

	n := result.N
	if len(result.Entries) < n || n <= 0 {
		n = len(result.Entries)
	}
	label := fmt.Sprintf("Top %d %s %s (%d)", n, result.Direction, metricName(desc), result.Year)

	return &types.ChartPayload{
		Kind:   types.ChartRanking,
		Title:  label,
		Labels: labels,
		Series: []types.ChartSeries{{
			Label:       label,
			Data:        data,
			Color:       Color(0),
			PointColors: colors,
		}},
		Axis:     axis,
		Citation: Citation(desc),
	}
}
