package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/vjranagit/ecoatlas/pkg/types"
)

// badgerStore implements Store using BadgerDB. Each row is a compressed JSON
// value under the key "<table>/<sequence>".
type badgerStore struct {
	cfg        *Config
	db         *badger.DB
	seq        *badger.Sequence
	compressor *Compressor
	mu         sync.RWMutex
}

// NewBadgerStore opens an embedded store under cfg.Path
func NewBadgerStore(cfg *Config) (StoreWriter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := badger.DefaultOptions(filepath.Join(cfg.Path, "badger"))
	opts.Logger = nil // Disable BadgerDB logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	seq, err := db.GetSequence([]byte("!seq"), 256)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to allocate sequence: %w", err)
	}

	compressor, err := NewCompressor(cfg.CompressionLevel)
	if err != nil {
		seq.Release()
		db.Close()
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}

	return &badgerStore{
		cfg:        cfg,
		db:         db,
		seq:        seq,
		compressor: compressor,
	}, nil
}

// Insert implements Writer.Insert
func (s *badgerStore) Insert(ctx context.Context, table string, rows []types.Row) error {
	if !identPattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, err := s.seq.Next()
		if err != nil {
			return fmt.Errorf("failed to allocate row id: %w", err)
		}
		payload, err := s.compressor.EncodeRow(row)
		if err != nil {
			return err
		}
		if err := wb.Set(generateKey(table, id), payload); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return wb.Flush()
}

// Query implements Store.Query by scanning the table prefix
func (s *badgerStore) Query(ctx context.Context, q *types.Query) ([]types.Row, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []types.Row
	prefix := tablePrefix(q.Table)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var row types.Row
			err := it.Item().Value(func(val []byte) error {
				var derr error
				row, derr = s.compressor.DecodeRow(val)
				return derr
			})
			if err != nil {
				return err
			}
			if matchFilters(row, q.Filters) {
				result = append(result, project(row, q.Columns))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortRows(result, q.OrderBy)
	return result, nil
}

// Close implements Store.Close
func (s *badgerStore) Close() error {
	s.compressor.Close()
	if s.seq != nil {
		s.seq.Release()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func tablePrefix(table string) []byte {
	return []byte(table + "/")
}

// generateKey generates a storage key for a row
func generateKey(table string, id uint64) []byte {
	key := tablePrefix(table)
	return binary.BigEndian.AppendUint64(key, id)
}
