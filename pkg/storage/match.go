package storage

import (
	"sort"
	"strings"

	"github.com/vjranagit/ecoatlas/pkg/types"
)

// matchFilters reports whether row satisfies every filter
func matchFilters(row types.Row, filters []types.Filter) bool {
	for _, f := range filters {
		v, ok := row[f.Column]
		if !ok || v == nil {
			return false
		}
		c, comparable := compareValues(v, f.Value)
		if !comparable {
			return false
		}
		switch f.Op {
		case types.OpEq:
			if c != 0 {
				return false
			}
		case types.OpGte:
			if c < 0 {
				return false
			}
		case types.OpLte:
			if c > 0 {
				return false
			}
		}
	}
	return true
}

// compareValues compares numerically when both sides are numbers, as text otherwise.
func compareValues(a, b any) (int, bool) {
	if b == nil {
		return 0, false
	}
	fa, errA := types.ToFloat(a)
	fb, errB := types.ToFloat(b)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	sa := types.Row{"v": a}.String("v")
	sb := types.Row{"v": b}.String("v")
	return strings.Compare(sa, sb), true
}

// project copies the requested columns, or all of them when none are named
func project(row types.Row, columns []string) types.Row {
	if len(columns) == 0 {
		out := make(types.Row, len(row))
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	out := make(types.Row, len(columns))
	for _, c := range columns {
		out[c] = row[c]
	}
	return out
}

// sortRows orders rows by column; NULLs sort first as in SQLite
func sortRows(rows []types.Row, column string) {
	if column == "" {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i][column], rows[j][column]
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		c, _ := compareValues(a, b)
		return c < 0
	})
}
