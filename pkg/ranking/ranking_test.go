package ranking

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vjranagit/ecoatlas/pkg/catalog"
	"github.com/vjranagit/ecoatlas/pkg/fetcher"
	"github.com/vjranagit/ecoatlas/pkg/types"
)

type fakeEntities []types.Entity

func (f fakeEntities) All(ctx context.Context) ([]types.Entity, error) { return f, nil }

type fakeValues struct {
	values []fetcher.EntityValue
	err    error
}

func (f fakeValues) FetchYear(ctx context.Context, desc types.MetricDescriptor, year int) ([]fetcher.EntityValue, error) {
	return f.values, f.err
}

func names(r types.RankingResult) []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Entity.DisplayName
	}
	return out
}

func sevenEntities() (fakeEntities, fakeValues) {
	var ents fakeEntities
	var vals fakeValues
	scores := []float64{-1.2, 0.9, -2.5, 0.1, -0.4, 1.3, -3.1}
	for i, v := range scores {
		id := fmt.Sprint(i + 1)
		ents = append(ents, types.Entity{ID: id, DisplayName: fmt.Sprintf("Country %c", 'A'+i)})
		vals.values = append(vals.values, fetcher.EntityValue{EntityID: id, Value: v})
	}
	return ents, vals
}

func TestLowestPoliticalStability(t *testing.T) {
	desc, _ := catalog.Default().Describe(catalog.PoliticalStability)
	ents, vals := sevenEntities()

	r, err := New(ents, vals, 0).SelectTopN(context.Background(), desc, 2020, types.Lowest, 5)
	require.NoError(t, err)

	require.Len(t, r.Entries, 5)
	assert.Equal(t, []string{"Country G", "Country C", "Country A", "Country E", "Country D"}, names(r))
	for i := 1; i < len(r.Entries); i++ {
		assert.LessOrEqual(t, r.Entries[i-1].Value, r.Entries[i].Value)
	}
	assert.Equal(t, types.Lowest, r.Direction)
	assert.Equal(t, 2020, r.Year)
}

func TestHighestDescendingNoDuplicates(t *testing.T) {
	desc, _ := catalog.Default().Describe(catalog.PoliticalStability)
	ents, vals := sevenEntities()
	// duplicate row for Country F; the later one wins
	vals.values = append(vals.values, fetcher.EntityValue{EntityID: "6", Value: 0.0})

	r, err := New(ents, vals, 0).SelectTopN(context.Background(), desc, 2020, types.Highest, 5)
	require.NoError(t, err)

	require.Len(t, r.Entries, 5)
	seen := map[string]bool{}
	for i, e := range r.Entries {
		assert.False(t, seen[e.Entity.ID], "duplicate entity %s", e.Entity.ID)
		seen[e.Entity.ID] = true
		if i > 0 {
			assert.GreaterOrEqual(t, r.Entries[i-1].Value, e.Value)
		}
	}
	assert.Equal(t, "Country B", r.Entries[0].Entity.DisplayName)
}

func TestTiesBrokenByName(t *testing.T) {
	ents := fakeEntities{
		{ID: "1", DisplayName: "Chile"},
		{ID: "2", DisplayName: "Angola"},
		{ID: "3", DisplayName: "Benin"},
	}
	vals := fakeValues{values: []fetcher.EntityValue{
		{EntityID: "1", Value: 10}, {EntityID: "2", Value: 10}, {EntityID: "3", Value: 10},
	}}

	for _, dir := range []types.Direction{types.Highest, types.Lowest} {
		r, err := New(ents, vals, 0).SelectTopN(context.Background(), types.MetricDescriptor{Key: "k"}, 2000, dir, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"Angola", "Benin", "Chile"}, names(r), string(dir))
	}
}

func TestMissingAndUnknownExcluded(t *testing.T) {
	ents := fakeEntities{{ID: "1", DisplayName: "Chile"}, {ID: "2", DisplayName: "Peru"}}
	vals := fakeValues{values: []fetcher.EntityValue{
		{EntityID: "1", Missing: true},
		{EntityID: "2", Value: 3},
		{EntityID: "99", Value: 1000},
	}}

	r, err := New(ents, vals, 0).SelectTopN(context.Background(), types.MetricDescriptor{Key: "k"}, 2000, types.Highest, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Peru"}, names(r))
	assert.Equal(t, DefaultN, r.N)
}

func TestSelectPropagatesErrors(t *testing.T) {
	boom := types.NewDataSourceError("fetch year", "governance", errors.New("timeout"))
	_, err := New(fakeEntities{}, fakeValues{err: boom}, 0).SelectTopN(context.Background(), types.MetricDescriptor{}, 2000, types.Highest, 5)
	assert.True(t, errors.Is(err, types.ErrDataSource))

	_, err = New(fakeEntities{}, fakeValues{}, 0).SelectTopN(context.Background(), types.MetricDescriptor{}, 2000, "middle", 5)
	assert.True(t, errors.Is(err, types.ErrInvalidInput))
}
