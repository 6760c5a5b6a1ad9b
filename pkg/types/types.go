package types

import "fmt"

// Entity is a country or region that metrics are reported against.
type Entity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Region      string `json:"region"`
}

// Row is a single record returned by the backing store, keyed by column name.
type Row map[string]any

// FilterOp is a comparison applied by a Filter
type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpGte FilterOp = "gte"
	OpLte FilterOp = "lte"
)

// Filter restricts a query to rows whose column compares to Value
type Filter struct {
	Column string
	Op     FilterOp
	Value  any
}

// Query is a parameterized read against one table. Filters are AND-combined.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	OrderBy string
}

// Eq is shorthand for an equality filter
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// YearRange is an inclusive range of years
type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// MaxYearSpan is the widest range a single request may cover
const MaxYearSpan = 500

// Validate checks the range is ordered and at most MaxYearSpan years wide
func (r YearRange) Validate() error {
	if r.From > r.To {
		return fmt.Errorf("%w: year range %d..%d is inverted", ErrInvalidInput, r.From, r.To)
	}
	// unsigned difference is exact for any ordered pair of ints
	if uint64(r.To)-uint64(r.From) >= MaxYearSpan {
		return fmt.Errorf("%w: year range %d..%d is wider than %d years",
			ErrInvalidInput, r.From, r.To, MaxYearSpan)
	}
	return nil
}

// Contains reports whether year lies inside the range
func (r YearRange) Contains(year int) bool {
	return year >= r.From && year <= r.To
}

// Observation is a single (year, value) reading. Missing marks a year with no value.
type Observation struct {
	Year    int     `json:"year"`
	Value   float64 `json:"value"`
	Missing bool    `json:"missing,omitempty"`
}

// ObservationSeries is an ascending-by-year sequence of observations with unique years.
type ObservationSeries struct {
	Entity       Entity        `json:"entity"`
	Metric       string        `json:"metric"`
	Observations []Observation `json:"observations"`
}

// Years returns the years of the series in order
func (s ObservationSeries) Years() []int {
	years := make([]int, len(s.Observations))
	for i, o := range s.Observations {
		years[i] = o.Year
	}
	return years
}

// Present returns the number of non-missing observations
func (s ObservationSeries) Present() int {
	n := 0
	for _, o := range s.Observations {
		if !o.Missing {
			n++
		}
	}
	return n
}

// AxisPolicyKind selects between a fixed and a data-driven axis
type AxisPolicyKind string

const (
	AxisAutoScale AxisPolicyKind = "auto"
	AxisLocked    AxisPolicyKind = "locked"
)

// AxisPolicy describes how the y-axis of a metric is scaled
type AxisPolicy struct {
	Kind     AxisPolicyKind `json:"kind" yaml:"kind"`
	Min      float64        `json:"min,omitempty" yaml:"min"`
	Max      float64        `json:"max,omitempty" yaml:"max"`
	StepSize float64        `json:"stepSize,omitempty" yaml:"step_size"`
}

// Locked returns a fixed axis policy
func Locked(min, max, step float64) AxisPolicy {
	return AxisPolicy{Kind: AxisLocked, Min: min, Max: max, StepSize: step}
}

// AutoScale returns a data-driven axis policy
func AutoScale() AxisPolicy {
	return AxisPolicy{Kind: AxisAutoScale}
}

// IsLocked reports whether the policy is fixed
func (p AxisPolicy) IsLocked() bool {
	return p.Kind == AxisLocked
}

// MetricDescriptor tells the pipeline where a metric lives and how to present it.
type MetricDescriptor struct {
	Key         string     `json:"key" yaml:"key"`
	Title       string     `json:"title" yaml:"title"`
	TableName   string     `json:"tableName" yaml:"table"`
	ColumnName  string     `json:"columnName" yaml:"column"`
	Unit        string     `json:"unit" yaml:"unit"`
	CitationURL string     `json:"citationUrl" yaml:"citation_url"`
	AxisPolicy  AxisPolicy `json:"axisPolicy" yaml:"axis"`
}

// AxisConfig is the derived y-axis of a chart
type AxisConfig struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	StepSize float64 `json:"stepSize"`
	Label    string  `json:"label"`
}

// ChartSeries is one labeled line or bar set. Nil entries in Data are gaps.
type ChartSeries struct {
	Label       string     `json:"label"`
	Data        []*float64 `json:"data"`
	Color       string     `json:"color"`
	PointColors []string   `json:"pointColors,omitempty"`
}

// ChartKind distinguishes trend payloads from ranking payloads
type ChartKind string

const (
	ChartTrend    ChartKind = "trend"
	ChartCompiled ChartKind = "compiled"
	ChartRanking  ChartKind = "ranking"
)

// ChartPayload is the render-ready output of the pipeline.
type ChartPayload struct {
	Kind     ChartKind     `json:"kind"`
	Title    string        `json:"title"`
	Labels   []string      `json:"labels"`
	Series   []ChartSeries `json:"series"`
	Axis     AxisConfig    `json:"axis"`
	Citation string        `json:"citation"`
	// Omitted lists entities dropped from a multi-entity view after a failure
	Omitted []string `json:"omitted,omitempty"`
}

// Direction orders a ranking
type Direction string

const (
	Highest Direction = "highest"
	Lowest  Direction = "lowest"
)

// ParseDirection parses "highest" or "lowest"; empty means highest.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", Highest:
		return Highest, nil
	case Lowest:
		return Lowest, nil
	}
	return "", fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, s)
}

// RankEntry is one entity's value in a ranking
type RankEntry struct {
	Entity Entity  `json:"entity"`
	Value  float64 `json:"value"`
}

// RankingResult is an ordered, truncated cross-entity comparison for one year.
type RankingResult struct {
	Metric    string      `json:"metric"`
	Year      int         `json:"year"`
	Direction Direction   `json:"direction"`
	N         int         `json:"n"`
	Entries   []RankEntry `json:"entries"`
}

// Float returns a pointer to v, for building chart data
func Float(v float64) *float64 {
	return &v
}
