package ingest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vjranagit/ecoatlas/pkg/storage"
	"github.com/vjranagit/ecoatlas/pkg/types"
	"github.com/xuri/excelize/v2"
)

const ndviCSV = `country_id,year,ndvi_value
1,2000,0.61
1, 2001 ,..

1,2002,0.59
`

func TestLoadCSV(t *testing.T) {
	rows, err := LoadCSV(strings.NewReader(ndviCSV))
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, types.Row{"country_id": int64(1), "year": int64(2000), "ndvi_value": 0.61}, rows[0])
	assert.Nil(t, rows[1]["ndvi_value"])
	assert.Equal(t, int64(2001), rows[1]["year"])
}

func TestLoadCSVNoHeader(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrNoHeader))

	_, err = LoadCSV(strings.NewReader("id,,name\n1,2,3\n"))
	assert.True(t, errors.Is(err, ErrNoHeader))
}

func TestParseCell(t *testing.T) {
	assert.Nil(t, parseCell(" "))
	assert.Nil(t, parseCell("NA"))
	assert.Equal(t, int64(42), parseCell("42"))
	assert.Equal(t, -0.25, parseCell("-0.25"))
	assert.Equal(t, "Brazil", parseCell(" Brazil "))
}

func workbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	data := [][]any{
		{"id", "name", "region"},
		{1, "Brazil", "South America"},
		{2, "Kenya", "Africa"},
	}
	for r, rec := range data {
		for c, v := range rec {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestLoadXLSX(t *testing.T) {
	rows, err := LoadXLSX(workbook(t), "")
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, types.Row{"id": int64(1), "name": "Brazil", "region": "South America"}, rows[0])
}

func TestLoadXLSXMissingSheet(t *testing.T) {
	_, err := LoadXLSX(workbook(t), "Nope")
	assert.Error(t, err)
}

func TestLoadFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := LoadFile(path, "")
	assert.True(t, errors.Is(err, types.ErrInvalidInput))
}

// countingWriter records batch sizes
type countingWriter struct {
	*storage.MemoryStore
	batches []int
	failAt  int
}

func (c *countingWriter) Insert(ctx context.Context, table string, rows []types.Row) error {
	if c.failAt > 0 && len(c.batches)+1 == c.failAt {
		return errors.New("disk full")
	}
	c.batches = append(c.batches, len(rows))
	return c.MemoryStore.Insert(ctx, table, rows)
}

func TestImportBatches(t *testing.T) {
	w := &countingWriter{MemoryStore: storage.NewMemoryStore()}
	rows := make([]types.Row, 7)
	for i := range rows {
		rows[i] = types.Row{"country_id": int64(1), "year": int64(2000 + i), "ndvi_value": 0.5}
	}

	n, err := NewImporter(w, 3, nil).Import(context.Background(), "ndvi", rows)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []int{3, 3, 1}, w.batches)

	got, err := w.Query(context.Background(), &types.Query{Table: "ndvi"})
	require.NoError(t, err)
	assert.Len(t, got, 7)
}

func TestImportPartialFailure(t *testing.T) {
	w := &countingWriter{MemoryStore: storage.NewMemoryStore(), failAt: 2}
	rows := make([]types.Row, 5)
	for i := range rows {
		rows[i] = types.Row{"year": int64(2000 + i)}
	}

	n, err := NewImporter(w, 2, nil).Import(context.Background(), "ndvi", rows)
	require.Error(t, err)
	assert.Equal(t, 2, n)
}

func TestImportFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ndvi.csv")
	require.NoError(t, os.WriteFile(path, []byte(ndviCSV), 0o644))

	mem := storage.NewMemoryStore()
	n, err := NewImporter(mem, 0, nil).ImportFile(context.Background(), path, "ndvi", "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
