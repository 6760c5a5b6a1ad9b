package types

import (
	"errors"
	"fmt"
)

var (
	// ErrEntityNotFound is returned when no entity matches a display name.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrUnknownMetric is returned for a metric key absent from the catalog.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrDataSource marks any failure talking to the backing store.
	ErrDataSource = errors.New("data source error")
	// ErrEmptySeries is returned when there is nothing to chart.
	ErrEmptySeries = errors.New("empty series")
	// ErrNoEntitySucceeded is returned when every entity of a multi-entity view failed.
	ErrNoEntitySucceeded = errors.New("no entity succeeded")
	ErrInvalidInput      = errors.New("invalid input")
)

// DataSourceError wraps a store failure so raw driver errors stay behind the fetch boundary.
type DataSourceError struct {
	Op    string
	Table string
	Err   error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrDataSource) match any DataSourceError.
func (e *DataSourceError) Is(target error) bool {
	return target == ErrDataSource
}

// NewDataSourceError wraps err unless it already is a DataSourceError.
func NewDataSourceError(op, table string, err error) error {
	var dse *DataSourceError
	if errors.As(err, &dse) {
		return err
	}
	return &DataSourceError{Op: op, Table: table, Err: err}
}
