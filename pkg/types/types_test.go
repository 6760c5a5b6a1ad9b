package types

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearRangeValidate(t *testing.T) {
	tests := []struct {
		name string
		r    YearRange
		ok   bool
	}{
		{"single year", YearRange{From: 2020, To: 2020}, true},
		{"widest allowed", YearRange{From: 1600, To: 1600 + MaxYearSpan - 1}, true},
		{"inverted", YearRange{From: 2020, To: 2010}, false},
		{"one year too wide", YearRange{From: 1600, To: 1600 + MaxYearSpan}, false},
		{"huge", YearRange{From: 0, To: 3000000}, false},
		{"extremes", YearRange{From: math.MinInt32, To: math.MaxInt32}, false},
		{"full int range", YearRange{From: math.MinInt, To: math.MaxInt}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestRowInt(t *testing.T) {
	row := Row{"year": int64(2018), "text": "2019", "float": 2020.0, "frac": 2018.7, "fractext": "2018.5"}

	for col, want := range map[string]int{"year": 2018, "text": 2019, "float": 2020} {
		got, err := row.Int(col)
		require.NoError(t, err, col)
		assert.Equal(t, want, got)
	}

	for _, col := range []string{"frac", "fractext", "absent"} {
		_, err := row.Int(col)
		assert.Error(t, err, col)
	}

	_, err := Row{"year": math.NaN()}.Int("year")
	assert.Error(t, err)
}

func TestRowFloatBlankIsMissing(t *testing.T) {
	_, ok, err := Row{"v": "  "}.Float("v")
	require.NoError(t, err)
	assert.False(t, ok)
}
