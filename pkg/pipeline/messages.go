package pipeline

import (
	"context"
	"errors"

	"github.com/vjranagit/ecoatlas/pkg/types"
)

// User-facing empty-state and banner texts
const (
	MsgNoCountryData = "No data available for the selected country"
	MsgNoMetricData  = "No data available for the selected metric"
	MsgUnknownMetric = "The selected metric is not supported"
	MsgUnavailable   = "Data is temporarily unavailable, please try again"
	MsgInvalid       = "Invalid selection"
)

// Message maps a pipeline error to the text the UI shows in place of a chart.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, ErrSuperseded):
		return ""
	case errors.Is(err, types.ErrInvalidInput):
		return MsgInvalid
	case errors.Is(err, types.ErrUnknownMetric):
		return MsgUnknownMetric
	case errors.Is(err, types.ErrDataSource):
		return MsgUnavailable
	case errors.Is(err, types.ErrEntityNotFound):
		return MsgNoCountryData
	case errors.Is(err, types.ErrEmptySeries):
		return MsgNoMetricData
	}
	return MsgUnavailable
}

// Recoverable reports whether the UI should render an empty state rather than an error.
func Recoverable(err error) bool {
	return errors.Is(err, types.ErrEntityNotFound) || errors.Is(err, types.ErrEmptySeries)
}
