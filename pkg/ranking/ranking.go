// Package ranking selects the top N entities for a metric in a given year.
package ranking

import (
	"context"
	"fmt"
	"sort"

	"github.com/vjranagit/ecoatlas/pkg/fetcher"
	"github.com/vjranagit/ecoatlas/pkg/types"
)

// DefaultN is used when a caller asks for n <= 0
const DefaultN = 5

// EntityLister lists every known entity
type EntityLister interface {
	All(ctx context.Context) ([]types.Entity, error)
}

// YearFetcher reads one year of a metric across all entities
type YearFetcher interface {
	FetchYear(ctx context.Context, desc types.MetricDescriptor, year int) ([]fetcher.EntityValue, error)
}

// Selector builds rankings
type Selector struct {
	entities EntityLister
	values   YearFetcher
	defaultN int
}

// New creates a selector. defaultN <= 0 falls back to DefaultN.
func New(entities EntityLister, values YearFetcher, defaultN int) *Selector {
	if defaultN <= 0 {
		defaultN = DefaultN
	}
	return &Selector{entities: entities, values: values, defaultN: defaultN}
}

// SelectTopN returns at most n entities ordered by value in direction.
// Missing values are excluded and equal values are ordered by display name ascending.
func (s *Selector) SelectTopN(ctx context.Context, desc types.MetricDescriptor, year int, dir types.Direction, n int) (types.RankingResult, error) {
	if dir != types.Highest && dir != types.Lowest {
		return types.RankingResult{}, fmt.Errorf("%w: unknown direction %q", types.ErrInvalidInput, dir)
	}
	if n <= 0 {
		n = s.defaultN
	}

	values, err := s.values.FetchYear(ctx, desc, year)
	if err != nil {
		return types.RankingResult{}, err
	}
	entities, err := s.entities.All(ctx)
	if err != nil {
		return types.RankingResult{}, err
	}

	byID := make(map[string]types.Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}

	// one entry per entity; a later row for the same entity replaces an earlier one
	latest := make(map[string]types.RankEntry, len(values))
	for _, v := range values {
		e, known := byID[v.EntityID]
		if !known {
			continue
		}
		if v.Missing {
			delete(latest, v.EntityID)
			continue
		}
		latest[v.EntityID] = types.RankEntry{Entity: e, Value: v.Value}
	}

	entries := make([]types.RankEntry, 0, len(latest))
	for _, e := range latest {
		entries = append(entries, e)
	}
	Sort(entries, dir)

	if len(entries) > n {
		entries = entries[:n]
	}

	return types.RankingResult{
		Metric:    desc.Key,
		Year:      year,
		Direction: dir,
		N:         n,
		Entries:   entries,
	}, nil
}

// Sort orders entries by value in direction, breaking ties by display name ascending.
func Sort(entries []types.RankEntry, dir types.Direction) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Value != b.Value {
			if dir == types.Lowest {
				return a.Value < b.Value
			}
			return a.Value > b.Value
		}
		return a.Entity.DisplayName < b.Entity.DisplayName
	})
}
