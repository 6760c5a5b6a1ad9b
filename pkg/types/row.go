package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Float reads a numeric column. ok is false when the column is absent or NULL.
func (r Row) Float(column string) (v float64, ok bool, err error) {
	raw, present := r[column]
	if !present || raw == nil {
		return 0, false, nil
	}
	if s, isText := raw.(string); isText && strings.TrimSpace(s) == "" {
		return 0, false, nil
	}
	v, err = toFloat(raw)
	if err != nil {
		return 0, false, fmt.Errorf("column %s: %w", column, err)
	}
	return v, true, nil
}

// Int reads an integer column such as a year. Fractional values are rejected.
func (r Row) Int(column string) (int, error) {
	raw, present := r[column]
	if !present || raw == nil {
		return 0, fmt.Errorf("column %s is missing", column)
	}
	f, err := toFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", column, err)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("column %s: %v is not an integer", column, raw)
	}
	return int(f), nil
}

// String reads a column as text; numbers are formatted without trailing zeros.
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

// ToFloat converts the value types produced by SQL drivers and JSON decoding.
func ToFloat(raw any) (float64, error) {
	return toFloat(raw)
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case []byte:
		return parseNumber(string(v))
	case string:
		return parseNumber(v)
	}
	return 0, fmt.Errorf("unsupported numeric type %T", raw)
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}
