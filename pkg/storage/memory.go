package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/vjranagit/ecoatlas/pkg/types"
)

// MemoryStore keeps rows in process memory. It backs tests and throwaway demos.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]types.Row
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]types.Row)}
}

// Insert implements Writer.Insert
func (m *MemoryStore) Insert(ctx context.Context, table string, rows []types.Row) error {
	if !identPattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		cp := make(types.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		m.tables[table] = append(m.tables[table], cp)
	}
	return nil
}

// Query implements Store.Query
func (m *MemoryStore) Query(ctx context.Context, q *types.Query) ([]types.Row, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []types.Row
	for _, row := range m.tables[q.Table] {
		if matchFilters(row, q.Filters) {
			result = append(result, project(row, q.Columns))
		}
	}
	sortRows(result, q.OrderBy)
	return result, nil
}

// Close implements Store.Close
func (m *MemoryStore) Close() error {
	return nil
}
