package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/vjranagit/ecoatlas/pkg/types"
	_ "modernc.org/sqlite"
)

// sqlStore implements Store on database/sql
type sqlStore struct {
	db     *sql.DB
	driver string
	mu     sync.Mutex
	tables map[string]bool
}

// NewSQLStore opens a relational store. With the sqlite driver and no DSN the
// database file lives under cfg.Path.
func NewSQLStore(cfg *Config) (StoreWriter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	dsn := cfg.DSN
	if dsn == "" {
		if driver != DriverSQLite {
			return nil, fmt.Errorf("dsn is required for driver %s", driver)
		}
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = filepath.Join(cfg.Path, "ecoatlas.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &sqlStore{
		db:     db,
		driver: driver,
		tables: make(map[string]bool),
	}, nil
}

// Query implements Store.Query
func (s *sqlStore) Query(ctx context.Context, q *types.Query) ([]types.Row, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	stmt, args := s.buildSelect(q)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []types.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Table, err)
		}
		row := make(types.Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = vals[i]
			}
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

func (s *sqlStore) buildSelect(q *types.Query) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		b.WriteString("*")
	} else {
		for i, c := range q.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteIdent(c))
		}
	}
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(q.Table))

	args := make([]any, 0, len(q.Filters))
	for i, f := range q.Filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, f.Value)
		fmt.Fprintf(&b, "%s %s %s", quoteIdent(f.Column), sqlOperator(f.Op), s.placeholder(len(args)))
	}

	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(quoteIdent(q.OrderBy))
	}
	return b.String(), args
}

// Insert implements Writer.Insert. The table is created on first use with
// column types taken from the first non-NULL value of each column.
func (s *sqlStore) Insert(ctx context.Context, table string, rows []types.Row) error {
	if len(rows) == 0 {
		return nil
	}
	if !identPattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	cols := make([]string, 0, len(rows[0]))
	for c := range rows[0] {
		if !identPattern.MatchString(c) {
			return fmt.Errorf("invalid column name %q", c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	if err := s.ensureTable(ctx, table, cols, rows); err != nil {
		return err
	}

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		marks[i] = s.placeholder(i + 1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer prepared.Close()

	for _, row := range rows {
		args := make([]any, len(cols))
		for i, c := range cols {
			args[i] = row[c]
		}
		if _, err := prepared.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	return tx.Commit()
}

func (s *sqlStore) ensureTable(ctx context.Context, table string, cols []string, rows []types.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tables[table] {
		return nil
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		var sample any
		for _, r := range rows {
			if r[c] != nil {
				sample = r[c]
				break
			}
		}
		defs[i] = quoteIdent(c) + " " + s.columnType(sample)
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	s.tables[table] = true
	return nil
}

func (s *sqlStore) columnType(v any) string {
	switch v.(type) {
	case int, int32, int64:
		if s.driver == DriverPgx {
			return "BIGINT"
		}
		return "INTEGER"
	case float32, float64:
		if s.driver == DriverPgx {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	}
	return "TEXT"
}

func (s *sqlStore) placeholder(n int) string {
	if s.driver == DriverPgx {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Close implements Store.Close
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

func sqlOperator(op types.FilterOp) string {
	switch op {
	case types.OpGte:
		return ">="
	case types.OpLte:
		return "<="
	}
	return "="
}
