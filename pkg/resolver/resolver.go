// Package resolver maps human-readable country and region names to entities.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vjranagit/ecoatlas/pkg/storage"
	"github.com/vjranagit/ecoatlas/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LookupTimeout bounds a shared name lookup once it is detached from its callers
const LookupTimeout = 30 * time.Second

// Schema names the entity table and its columns
type Schema struct {
	Table        string
	IDColumn     string
	NameColumn   string
	RegionColumn string
}

// DefaultSchema is the countries(id, name, region) table
func DefaultSchema() Schema {
	return Schema{
		Table:        "countries",
		IDColumn:     "id",
		NameColumn:   "name",
		RegionColumn: "region",
	}
}

// Option configures a Resolver
type Option func(*Resolver)

// WithSchema overrides the entity table layout
func WithSchema(s Schema) Option {
	return func(r *Resolver) { r.schema = s }
}

// WithCache sets the identifier cache
func WithCache(c *EntityCache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// Resolver resolves display names to entities, caching hits for the session.
// Name comparison is exact and case-sensitive.
type Resolver struct {
	store  storage.Store
	schema Schema
	cache  *EntityCache
	group  singleflight.Group
	logger *zap.Logger
}

// New creates a resolver backed by store
func New(store storage.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:  store,
		schema: DefaultSchema(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewEntityCache(1024, 0)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Resolve returns the entity whose canonical name equals displayName.
// A name with no match yields types.ErrEntityNotFound.
func (r *Resolver) Resolve(ctx context.Context, displayName string) (types.Entity, error) {
	if displayName == "" {
		return types.Entity{}, fmt.Errorf("%w: empty entity name", types.ErrInvalidInput)
	}

	if e, ok := r.cache.Get(displayName); ok {
		return e, nil
	}

	// Concurrent misses for the same name share one store query. The query is
	// detached from any single caller so one caller giving up never fails the others.
	ch := r.group.DoChan(displayName, func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LookupTimeout)
		defer cancel()
		return r.lookup(qctx, displayName)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return types.Entity{}, res.Err
		}
		return res.Val.(types.Entity), nil
	case <-ctx.Done():
		return types.Entity{}, ctx.Err()
	}
}

func (r *Resolver) lookup(ctx context.Context, displayName string) (types.Entity, error) {
	start := time.Now()
	rows, err := r.store.Query(ctx, &types.Query{
		Table:   r.schema.Table,
		Columns: []string{r.schema.IDColumn, r.schema.NameColumn, r.schema.RegionColumn},
		Filters: []types.Filter{types.Eq(r.schema.NameColumn, displayName)},
	})
	if err != nil {
		return types.Entity{}, types.NewDataSourceError("resolve", r.schema.Table, err)
	}
	r.logger.Debug("Entity lookup",
		zap.String("name", displayName),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(start)))

	if len(rows) == 0 {
		return types.Entity{}, fmt.Errorf("%w: %q", types.ErrEntityNotFound, displayName)
	}
	e := r.toEntity(rows[0])
	r.cache.Put(displayName, e)
	return e, nil
}

// Region returns every entity in region, sorted by display name.
func (r *Resolver) Region(ctx context.Context, region string) ([]types.Entity, error) {
	if region == "" {
		return nil, fmt.Errorf("%w: empty region name", types.ErrInvalidInput)
	}
	entities, err := r.list(ctx, []types.Filter{types.Eq(r.schema.RegionColumn, region)})
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("%w: region %q", types.ErrEntityNotFound, region)
	}
	return entities, nil
}

// All returns every entity, sorted by display name. Results warm the cache.
func (r *Resolver) All(ctx context.Context) ([]types.Entity, error) {
	return r.list(ctx, nil)
}

func (r *Resolver) list(ctx context.Context, filters []types.Filter) ([]types.Entity, error) {
	rows, err := r.store.Query(ctx, &types.Query{
		Table:   r.schema.Table,
		Columns: []string{r.schema.IDColumn, r.schema.NameColumn, r.schema.RegionColumn},
		Filters: filters,
	})
	if err != nil {
		return nil, types.NewDataSourceError("list", r.schema.Table, err)
	}

	entities := make([]types.Entity, 0, len(rows))
	for _, row := range rows {
		e := r.toEntity(row)
		r.cache.Put(e.DisplayName, e)
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].DisplayName < entities[j].DisplayName
	})
	return entities, nil
}

// Invalidate drops every cached mapping, e.g. after the dataset version changes.
func (r *Resolver) Invalidate() {
	r.cache.Clear()
	r.logger.Info("Entity cache invalidated")
}

// CacheStats exposes the identifier cache counters
func (r *Resolver) CacheStats() CacheStats {
	return r.cache.Stats()
}

func (r *Resolver) toEntity(row types.Row) types.Entity {
	return types.Entity{
		ID:          row.String(r.schema.IDColumn),
		DisplayName: row.String(r.schema.NameColumn),
		Region:      row.String(r.schema.RegionColumn),
	}
}
