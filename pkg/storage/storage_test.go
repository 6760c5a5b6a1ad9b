package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vjranagit/ecoatlas/pkg/types"
)

func seedRows() []types.Row {
	return []types.Row{
		{"country_id": 1, "year": 2019, "ndvi_value": 0.6},
		{"country_id": 1, "year": 2018, "ndvi_value": 0.5},
		{"country_id": 2, "year": 2018, "ndvi_value": 0.3},
		{"country_id": 1, "year": 2020, "ndvi_value": 0.7},
	}
}

func engines(t *testing.T) map[string]StoreWriter {
	t.Helper()

	sqlStore, err := NewStorage(&Config{Driver: DriverSQLite, Path: t.TempDir(), MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { sqlStore.Close() })

	badgerStore, err := NewStorage(&Config{Driver: DriverBadger, Path: t.TempDir(), CompressionLevel: 3})
	require.NoError(t, err)
	t.Cleanup(func() { badgerStore.Close() })

	return map[string]StoreWriter{"sqlite": sqlStore, "badger": badgerStore}
}

func TestStoreFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	for name, store := range engines(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Insert(ctx, "ndvi", seedRows()))

			rows, err := store.Query(ctx, &types.Query{
				Table:   "ndvi",
				Columns: []string{"year", "ndvi_value"},
				Filters: []types.Filter{types.Eq("country_id", "1")},
				OrderBy: "year",
			})
			require.NoError(t, err)
			require.Len(t, rows, 3)

			var years []int
			for _, r := range rows {
				y, err := r.Int("year")
				require.NoError(t, err)
				years = append(years, y)
			}
			assert.Equal(t, []int{2018, 2019, 2020}, years)
			_, hasID := rows[0]["country_id"]
			assert.False(t, hasID, "projection should drop unrequested columns")
		})
	}
}

func TestStoreYearRange(t *testing.T) {
	ctx := context.Background()
	for name, store := range engines(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Insert(ctx, "ndvi", seedRows()))

			rows, err := store.Query(ctx, &types.Query{
				Table: "ndvi",
				Filters: []types.Filter{
					types.Eq("country_id", 1),
					{Column: "year", Op: types.OpGte, Value: 2019},
					{Column: "year", Op: types.OpLte, Value: 2020},
				},
			})
			require.NoError(t, err)
			assert.Len(t, rows, 2)
		})
	}
}

func TestStoreEmptyResultIsNotAnError(t *testing.T) {
	ctx := context.Background()
	for name, store := range engines(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Insert(ctx, "countries", []types.Row{
				{"id": 1, "name": "Brazil", "region": "South America"},
			}))

			rows, err := store.Query(ctx, &types.Query{
				Table:   "countries",
				Filters: []types.Filter{types.Eq("name", "brazil")},
			})
			require.NoError(t, err)
			assert.Empty(t, rows, "name matching is case-sensitive")
		})
	}
}

func TestValidateQueryRejectsInjection(t *testing.T) {
	err := validateQuery(&types.Query{Table: "ndvi; DROP TABLE ndvi"})
	assert.Error(t, err)

	err = validateQuery(&types.Query{Table: "ndvi", Filters: []types.Filter{{Column: "year", Op: "like", Value: 1}}})
	assert.Error(t, err)

	err = validateQuery(&types.Query{Table: "ndvi", Columns: []string{"year"}, OrderBy: "year"})
	assert.NoError(t, err)
}

func TestSQLPlaceholders(t *testing.T) {
	s := &sqlStore{driver: DriverPgx}
	stmt, args := s.buildSelect(&types.Query{
		Table:   "ndvi",
		Columns: []string{"year"},
		Filters: []types.Filter{types.Eq("country_id", 3), {Column: "year", Op: types.OpGte, Value: 2000}},
		OrderBy: "year",
	})
	assert.Equal(t, `SELECT "year" FROM "ndvi" WHERE "country_id" = $1 AND "year" >= $2 ORDER BY "year"`, stmt)
	assert.Equal(t, []any{3, 2000}, args)

	s.driver = DriverSQLite
	stmt, _ = s.buildSelect(&types.Query{Table: "ndvi", Filters: []types.Filter{types.Eq("country_id", 3)}})
	assert.Equal(t, `SELECT * FROM "ndvi" WHERE "country_id" = ?`, stmt)
}

func TestUnknownDriver(t *testing.T) {
	_, err := NewStorage(&Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMemoryStoreMatchesEngines(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Insert(ctx, "ndvi", seedRows()))

	rows, err := store.Query(ctx, &types.Query{
		Table:   "ndvi",
		Filters: []types.Filter{types.Eq("country_id", "1"), {Column: "year", Op: types.OpLte, Value: 2019}},
		OrderBy: "year",
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2018, rows[0]["year"])

	rows[0]["year"] = 1900
	again, err := store.Query(ctx, &types.Query{Table: "ndvi", OrderBy: "year"})
	require.NoError(t, err)
	assert.Equal(t, 2018, again[0]["year"], "returned rows must not alias stored rows")
}
