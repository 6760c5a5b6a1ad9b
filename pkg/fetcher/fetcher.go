// Package fetcher reads raw metric observations from the backing store.
package fetcher

import (
	"context"
	"fmt"

	"github.com/vjranagit/ecoatlas/pkg/storage"
	"github.com/vjranagit/ecoatlas/pkg/types"
)

// Schema names the columns shared by every metric table
type Schema struct {
	EntityColumn string
	YearColumn   string
}

// DefaultSchema keys metric tables by country_id and year
func DefaultSchema() Schema {
	return Schema{EntityColumn: "country_id", YearColumn: "year"}
}

// Fetcher issues one filtered query per request. It never retries.
type Fetcher struct {
	store  storage.Store
	schema Schema
}

// New creates a fetcher over store
func New(store storage.Store, schema Schema) *Fetcher {
	if schema.EntityColumn == "" || schema.YearColumn == "" {
		schema = DefaultSchema()
	}
	return &Fetcher{store: store, schema: schema}
}

// Fetch returns the raw (year, value) pairs of one entity in source order,
// optionally restricted to years. NULL values come back as missing observations.
func (f *Fetcher) Fetch(ctx context.Context, entity types.Entity, desc types.MetricDescriptor, years *types.YearRange) ([]types.Observation, error) {
	filters := []types.Filter{types.Eq(f.schema.EntityColumn, entity.ID)}
	if years != nil {
		if err := years.Validate(); err != nil {
			return nil, err
		}
		filters = append(filters,
			types.Filter{Column: f.schema.YearColumn, Op: types.OpGte, Value: years.From},
			types.Filter{Column: f.schema.YearColumn, Op: types.OpLte, Value: years.To},
		)
	}

	rows, err := f.store.Query(ctx, &types.Query{
		Table:   desc.TableName,
		Columns: []string{f.schema.YearColumn, desc.ColumnName},
		Filters: filters,
	})
	if err != nil {
		return nil, types.NewDataSourceError("fetch", desc.TableName, err)
	}

	obs := make([]types.Observation, 0, len(rows))
	for _, row := range rows {
		o, err := f.observation(row, desc.ColumnName)
		if err != nil {
			return nil, types.NewDataSourceError("fetch", desc.TableName, err)
		}
		obs = append(obs, o)
	}
	return obs, nil
}

// EntityValue is one entity's reading in a single-year slice
type EntityValue struct {
	EntityID string
	Value    float64
	Missing  bool
}

// FetchYear returns every entity's value of desc for one year
func (f *Fetcher) FetchYear(ctx context.Context, desc types.MetricDescriptor, year int) ([]EntityValue, error) {
	rows, err := f.store.Query(ctx, &types.Query{
		Table:   desc.TableName,
		Columns: []string{f.schema.EntityColumn, desc.ColumnName},
		Filters: []types.Filter{types.Eq(f.schema.YearColumn, year)},
	})
	if err != nil {
		return nil, types.NewDataSourceError("fetch year", desc.TableName, err)
	}

	values := make([]EntityValue, 0, len(rows))
	for _, row := range rows {
		v, ok, err := row.Float(desc.ColumnName)
		if err != nil {
			return nil, types.NewDataSourceError("fetch year", desc.TableName, err)
		}
		id := row.String(f.schema.EntityColumn)
		if id == "" {
			return nil, types.NewDataSourceError("fetch year", desc.TableName,
				fmt.Errorf("row without %s", f.schema.EntityColumn))
		}
		values = append(values, EntityValue{EntityID: id, Value: v, Missing: !ok})
	}
	return values, nil
}

func (f *Fetcher) observation(row types.Row, column string) (types.Observation, error) {
	year, err := row.Int(f.schema.YearColumn)
	if err != nil {
		return types.Observation{}, err
	}
	v, ok, err := row.Float(column)
	if err != nil {
		return types.Observation{}, err
	}
	return types.Observation{Year: year, Value: v, Missing: !ok}, nil
}
