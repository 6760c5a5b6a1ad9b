package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/vjranagit/ecoatlas/pkg/types"
)

// Store is the backing store query interface the pipeline depends on
type Store interface {
	// Query runs a filtered read against a single table
	Query(ctx context.Context, q *types.Query) ([]types.Row, error)

	// Close closes the store
	Close() error
}

// Writer loads rows into a table. Used by dataset import, never by the chart pipeline.
type Writer interface {
	Insert(ctx context.Context, table string, rows []types.Row) error
}

// Storage engines
const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// Config holds storage configuration
type Config struct {
	Driver           string
	DSN              string
	Path             string
	CompressionLevel int
	MaxOpenConns     int
}

// DefaultConfig returns default storage configuration
func DefaultConfig() *Config {
	return &Config{
		Driver:           DriverSQLite,
		Path:             "./data",
		CompressionLevel: 3,
		MaxOpenConns:     4,
	}
}

// StoreWriter is a store that also accepts imports
type StoreWriter interface {
	Store
	Writer
}

// NewStorage opens the engine selected by cfg.Driver
func NewStorage(cfg *Config) (StoreWriter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Driver {
	case DriverSQLite, DriverPgx, "":
		return NewSQLStore(cfg)
	case DriverBadger:
		return NewBadgerStore(cfg)
	case DriverMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateQuery rejects identifiers that cannot be safely placed into a statement
func validateQuery(q *types.Query) error {
	if q == nil {
		return fmt.Errorf("nil query")
	}
	if !identPattern.MatchString(q.Table) {
		return fmt.Errorf("invalid table name %q", q.Table)
	}
	for _, c := range q.Columns {
		if !identPattern.MatchString(c) {
			return fmt.Errorf("invalid column name %q", c)
		}
	}
	for _, f := range q.Filters {
		if !identPattern.MatchString(f.Column) {
			return fmt.Errorf("invalid filter column %q", f.Column)
		}
		switch f.Op {
		case types.OpEq, types.OpGte, types.OpLte:
		default:
			return fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}
	if q.OrderBy != "" && !identPattern.MatchString(q.OrderBy) {
		return fmt.Errorf("invalid order column %q", q.OrderBy)
	}
	return nil
}
