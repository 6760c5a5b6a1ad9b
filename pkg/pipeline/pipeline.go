// Package pipeline orchestrates a chart request: resolve the entity, fetch
// and normalize its series, scale the axis and assemble the payload.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vjranagit/ecoatlas/pkg/axis"
	"github.com/vjranagit/ecoatlas/pkg/chart"
	"github.com/vjranagit/ecoatlas/pkg/series"
	"github.com/vjranagit/ecoatlas/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Catalog describes metrics
type Catalog interface {
	Describe(key string) (types.MetricDescriptor, error)
}

// Resolver maps names to entities
type Resolver interface {
	Resolve(ctx context.Context, displayName string) (types.Entity, error)
	Region(ctx context.Context, region string) ([]types.Entity, error)
}

// Fetcher reads raw observations
type Fetcher interface {
	Fetch(ctx context.Context, entity types.Entity, desc types.MetricDescriptor, years *types.YearRange) ([]types.Observation, error)
}

// Ranker selects top-N entities
type Ranker interface {
	SelectTopN(ctx context.Context, desc types.MetricDescriptor, year int, dir types.Direction, n int) (types.RankingResult, error)
}

// Option configures a Dashboard
type Option func(*Dashboard)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(d *Dashboard) { d.logger = l }
}

// DefaultConcurrency bounds parallel per-entity fetches when none is configured
const DefaultConcurrency = 8

// WithConcurrency bounds parallel per-entity fetches in compiled views.
// n <= 0 keeps DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(d *Dashboard) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// Dashboard builds chart payloads. It holds no per-request state.
type Dashboard struct {
	catalog     Catalog
	resolver    Resolver
	fetcher     Fetcher
	ranker      Ranker
	logger      *zap.Logger
	concurrency int
}

// New wires a dashboard from its collaborators
func New(cat Catalog, res Resolver, f Fetcher, rk Ranker, opts ...Option) *Dashboard {
	d := &Dashboard{
		catalog:     cat,
		resolver:    res,
		fetcher:     f,
		ranker:      rk,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// TrendRequest selects one entity's time series
type TrendRequest struct {
	Entity string
	Metric string
	Years  *types.YearRange
}

// Trend builds a single-entity trend payload
func (d *Dashboard) Trend(ctx context.Context, req TrendRequest) (*types.ChartPayload, error) {
	start := time.Now()
	desc, err := d.catalog.Describe(req.Metric)
	if err != nil {
		return nil, err
	}

	entity, err := d.resolver.Resolve(ctx, req.Entity)
	if err != nil {
		return nil, err
	}

	s, err := d.load(ctx, entity, desc, req.Years)
	if err != nil {
		return nil, err
	}

	ax, err := axis.ForSeries(desc, s)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("Trend assembled",
		zap.String("entity", entity.DisplayName),
		zap.String("metric", desc.Key),
		zap.Int("points", len(s.Observations)),
		zap.Duration("elapsed", time.Since(start)))

	return chart.Trend(entity.DisplayName, s, ax, desc), nil
}

// load fetches and normalizes one series; a series with no values is ErrEmptySeries
func (d *Dashboard) load(ctx context.Context, entity types.Entity, desc types.MetricDescriptor, years *types.YearRange) (types.ObservationSeries, error) {
	raw, err := d.fetcher.Fetch(ctx, entity, desc, years)
	if err != nil {
		return types.ObservationSeries{}, err
	}
	s := series.New(entity, desc.Key, raw, years)
	if s.Present() == 0 {
		return types.ObservationSeries{}, fmt.Errorf("%w: %s has no %s values", types.ErrEmptySeries, entity.DisplayName, desc.Key)
	}
	return s, nil
}

// CompiledRequest overlays several entities' series for one metric
type CompiledRequest struct {
	Entities []string
	Metric   string
	Years    *types.YearRange
	Title    string
}

// Compiled fetches every entity concurrently and charts the ones that succeed.
// It fails only when no entity succeeds.
func (d *Dashboard) Compiled(ctx context.Context, req CompiledRequest) (*types.ChartPayload, error) {
	desc, err := d.catalog.Describe(req.Metric)
	if err != nil {
		return nil, err
	}

	names := dedupe(req.Entities)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no entities selected", types.ErrInvalidInput)
	}

	loaded := make([]*types.ObservationSeries, len(names))
	failures := make([]error, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, name := range names {
		g.Go(func() error {
			entity, err := d.resolver.Resolve(gctx, name)
			if err == nil {
				var s types.ObservationSeries
				if s, err = d.load(gctx, entity, desc, req.Years); err == nil {
					loaded[i] = &s
					return nil
				}
			}
			failures[i] = fmt.Errorf("%s: %w", name, err)
			d.logger.Warn("Dropping entity from compiled view",
				zap.String("entity", name),
				zap.String("metric", desc.Key),
				zap.Error(err))
			return nil // one entity failing never aborts the others
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ok []types.ObservationSeries
	var omitted []string
	var errs []error
	for i := range names {
		if loaded[i] != nil {
			ok = append(ok, *loaded[i])
		} else {
			omitted = append(omitted, names[i])
			errs = append(errs, failures[i])
		}
	}
	if len(ok) == 0 {
		return nil, fmt.Errorf("%w: %w", types.ErrNoEntitySucceeded, errors.Join(errs...))
	}

	ax, err := axis.ForSeries(desc, ok...)
	if err != nil {
		return nil, err
	}

	payload := chart.Compiled(req.Title, ok, ax, desc)
	payload.Omitted = omitted
	return payload, nil
}

// RegionRequest charts every entity in a region
type RegionRequest struct {
	Region string
	Metric string
	Years  *types.YearRange
}

// Region builds a compiled view over the entities of a region
func (d *Dashboard) Region(ctx context.Context, req RegionRequest) (*types.ChartPayload, error) {
	desc, err := d.catalog.Describe(req.Metric)
	if err != nil {
		return nil, err
	}
	entities, err := d.resolver.Region(ctx, req.Region)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.DisplayName
	}
	title := desc.Title
	if title == "" {
		title = desc.Key
	}
	return d.Compiled(ctx, CompiledRequest{
		Entities: names,
		Metric:   req.Metric,
		Years:    req.Years,
		Title:    fmt.Sprintf("%s in %s", title, req.Region),
	})
}

// RankingRequest selects the top N entities for one year
type RankingRequest struct {
	Metric    string
	Year      int
	Direction types.Direction
	N         int
}

// Ranking builds a top-N payload
func (d *Dashboard) Ranking(ctx context.Context, req RankingRequest) (*types.ChartPayload, error) {
	desc, err := d.catalog.Describe(req.Metric)
	if err != nil {
		return nil, err
	}
	dir := req.Direction
	if dir == "" {
		dir = types.Highest
	}

	result, err := d.ranker.SelectTopN(ctx, desc, req.Year, dir, req.N)
	if err != nil {
		return nil, err
	}
	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("%w: no %s values in %d", types.ErrEmptySeries, desc.Key, req.Year)
	}

	values := make([]float64, len(result.Entries))
	for i, e := range result.Entries {
		values[i] = e.Value
	}
	ax, err := axis.Compute(desc, values)
	if err != nil {
		return nil, err
	}
	return chart.Ranking(result, ax, desc), nil
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Selection is a discrete user choice from the UI
type Selection struct {
	View      string           `json:"view"` // "trend", "compiled", "region", "ranking"
	Entities  []string         `json:"entities,omitempty"`
	Region    string           `json:"region,omitempty"`
	Metric    string           `json:"metric"`
	Years     *types.YearRange `json:"years,omitempty"`
	Year      int              `json:"year,omitempty"`
	Direction types.Direction  `json:"direction,omitempty"`
	N         int              `json:"n,omitempty"`
}

// Views
const (
	ViewTrend    = "trend"
	ViewCompiled = "compiled"
	ViewRegion   = "region"
	ViewRanking  = "ranking"
)

// Run dispatches a selection to the matching view
func (d *Dashboard) Run(ctx context.Context, sel Selection) (*types.ChartPayload, error) {
	switch sel.View {
	case ViewTrend, "":
		if len(sel.Entities) != 1 {
			return nil, fmt.Errorf("%w: trend needs exactly one entity", types.ErrInvalidInput)
		}
		return d.Trend(ctx, TrendRequest{Entity: sel.Entities[0], Metric: sel.Metric, Years: sel.Years})
	case ViewCompiled:
		return d.Compiled(ctx, CompiledRequest{Entities: sel.Entities, Metric: sel.Metric, Years: sel.Years})
	case ViewRegion:
		return d.Region(ctx, RegionRequest{Region: sel.Region, Metric: sel.Metric, Years: sel.Years})
	case ViewRanking:
		return d.Ranking(ctx, RankingRequest{Metric: sel.Metric, Year: sel.Year, Direction: sel.Direction, N: sel.N})
	}
	return nil, fmt.Errorf("%w: unknown view %q", types.ErrInvalidInput, sel.View)
}

// ErrSuperseded is returned to a selection replaced before it completed
var ErrSuperseded = errors.New("selection superseded")

// Controller runs one selection at a time; a new selection abandons the previous one.
type Controller struct {
	dashboard *Dashboard
	mu        sync.Mutex
	cancel    context.CancelFunc
	seq       uint64
}

// NewController creates a controller over d
func NewController(d *Dashboard) *Controller {
	return &Controller{dashboard: d}
}

// Select handles a "selection changed" event
func (c *Controller) Select(ctx context.Context, sel Selection) (*types.ChartPayload, error) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.seq++
	mine := c.seq
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.seq == mine {
			c.cancel = nil
		}
		c.mu.Unlock()
		cancel()
	}()

	payload, err := c.dashboard.Run(reqCtx, sel)
	if reqCtx.Err() != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: %w", ErrSuperseded, context.Canceled)
	}
	return payload, err
}
