package series

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/vjranagit/ecoatlas/pkg/types"
)

func TestNormalizeSortsAscending(t *testing.T) {
	raw := []types.Observation{
		{Year: 2020, Value: 3},
		{Year: 2018, Value: 1},
		{Year: 2019, Value: 2},
	}
	got := Normalize(raw, nil)
	assert.Equal(t, []types.Observation{
		{Year: 2018, Value: 1},
		{Year: 2019, Value: 2},
		{Year: 2020, Value: 3},
	}, got)
}

func TestNormalizeLastWriteWins(t *testing.T) {
	raw := []types.Observation{
		{Year: 2019, Value: 2},
		{Year: 2018, Value: 1},
		{Year: 2019, Value: 9},
	}
	got := Normalize(raw, nil)
	assert.Equal(t, []types.Observation{{Year: 2018, Value: 1}, {Year: 2019, Value: 9}}, got)
}

func TestNormalizeKeepsGapsWithoutRange(t *testing.T) {
	raw := []types.Observation{{Year: 2015, Value: 1}, {Year: 2018, Value: 4}}
	got := Normalize(raw, nil)
	assert.Equal(t, []int{2015, 2018}, types.ObservationSeries{Observations: got}.Years(),
		"years are never reindexed without an expected range")
}

func TestNormalizeFillsExpectedRange(t *testing.T) {
	raw := []types.Observation{{Year: 2016, Value: 1}, {Year: 2018, Missing: true, Value: 42}}
	got := Normalize(raw, &types.YearRange{From: 2015, To: 2018})
	assert.Equal(t, []types.Observation{
		{Year: 2015, Missing: true},
		{Year: 2016, Value: 1},
		{Year: 2017, Missing: true},
		{Year: 2018, Missing: true},
	}, got)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := [][]types.Observation{
		nil,
		{{Year: 2001, Value: 5}},
		{{Year: 2003, Value: 1}, {Year: 2001, Missing: true}, {Year: 2003, Value: 7}, {Year: 1999, Value: -2}},
	}
	ranges := []*types.YearRange{nil, {From: 1998, To: 2004}}

	for _, raw := range inputs {
		for _, r := range ranges {
			once := Normalize(raw, r)
			twice := Normalize(once, r)
			if diff := cmp.Diff(once, twice); diff != "" {
				t.Errorf("normalize not idempotent (-once +twice):\n%s", diff)
			}
		}
	}
}

func TestAlignUnionOfYears(t *testing.T) {
	a := types.ObservationSeries{Observations: []types.Observation{{Year: 2018, Value: 1}, {Year: 2019, Value: 2}}}
	b := types.ObservationSeries{Observations: []types.Observation{{Year: 2019, Value: 5}, {Year: 2020, Missing: true}}}

	years, data := Align([]types.ObservationSeries{a, b})
	assert.Equal(t, []int{2018, 2019, 2020}, years)

	want := [][]*float64{
		{types.Float(1), types.Float(2), nil},
		{nil, types.Float(5), nil},
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("aligned data mismatch (-want +got):\n%s", diff)
	}
}

func TestValuesSkipsMissing(t *testing.T) {
	s := types.ObservationSeries{Observations: []types.Observation{{Year: 1, Value: 3}, {Year: 2, Missing: true}}}
	assert.Equal(t, []float64{3}, Values(s))
	assert.Nil(t, Values())
}

func TestNormalizeIgnoresOversizedRange(t *testing.T) {
	raw := []types.Observation{{Year: 2018, Value: 0.5}}
	got := Normalize(raw, &types.YearRange{From: 0, To: 3000000})
	assert.Equal(t, []types.Observation{{Year: 2018, Value: 0.5}}, got)
}
