// Package ingest loads dataset exports (CSV or XLSX) into the backing store.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vjranagit/ecoatlas/pkg/storage"
	"github.com/vjranagit/ecoatlas/pkg/types"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of rows sent to the store per Insert call
const DefaultBatchSize = 500

// ErrNoHeader is returned for a file without a header row
var ErrNoHeader = errors.New("missing header row")

// LoadCSV parses a CSV export. The first record names the columns.
func LoadCSV(r io.Reader) ([]types.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return toRows(records)
}

// LoadXLSX parses one sheet of a workbook. An empty sheet name selects the first sheet.
func LoadXLSX(r io.Reader, sheet string) ([]types.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return toRows(records)
}

// LoadFile picks the parser from the file extension
func LoadFile(path, sheet string) ([]types.Row, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(fh)
	case ".xlsx", ".xlsm":
		return LoadXLSX(fh, sheet)
	}
	return nil, fmt.Errorf("%w: unsupported file type %s", types.ErrInvalidInput, filepath.Ext(path))
}

func toRows(records [][]string) ([]types.Row, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrNoHeader
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrNoHeader, i+1)
		}
		header[i] = h
	}

	rows := make([]types.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make(types.Row, len(header))
		for i, col := range header {
			var cell string
			if i < len(rec) {
				cell = rec[i]
			}
			row[col] = parseCell(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseCell types a cell: empty is NULL, then integer, then float, else text.
// Exports commonly mark missing values with "..", "NA" or "-".
func parseCell(s string) any {
	s = strings.TrimSpace(s)
	switch s {
	case "", "..", "NA", "N/A", "-":
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Importer writes parsed rows into a store in batches
type Importer struct {
	writer    storage.Writer
	batchSize int
	logger    *zap.Logger
}

// NewImporter creates an importer. batchSize <= 0 uses DefaultBatchSize.
func NewImporter(w storage.Writer, batchSize int, logger *zap.Logger) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{writer: w, batchSize: batchSize, logger: logger}
}

// Import inserts rows into table and returns how many were written
func (im *Importer) Import(ctx context.Context, table string, rows []types.Row) (int, error) {
	written := 0
	for start := 0; start < len(rows); start += im.batchSize {
		end := min(start+im.batchSize, len(rows))
		if err := im.writer.Insert(ctx, table, rows[start:end]); err != nil {
			return written, fmt.Errorf("failed to import into %s at row %d: %w", table, start, err)
		}
		written = end
	}
	im.logger.Info("Import complete", zap.String("table", table), zap.Int("rows", written))
	return written, nil
}

// ImportFile loads path and imports it into table
func (im *Importer) ImportFile(ctx context.Context, path, table, sheet string) (int, error) {
	rows, err := LoadFile(path, sheet)
	if err != nil {
		return 0, err
	}
	return im.Import(ctx, table, rows)
}
