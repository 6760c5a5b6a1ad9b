// Package catalog is the static registry of supported metrics: where each one
// is stored, its unit, its citation and its y-axis policy.
package catalog

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/vjranagit/ecoatlas/pkg/types"
	"gopkg.in/yaml.v3"
)

// UnknownSource is the citation used when a metric has no registered source.
const UnknownSource = "Source Unknown"

// Metric keys
const (
	NDVI                = "ndvi"
	ForestAreaPercent   = "forest_area_percent"
	ForestAreaKm        = "forest_area_km"
	CarbonEmission      = "carbon_emission"
	GrossCarbonEmission = "gross_carbon_emission"
	TreeCoverLoss       = "tree_cover_loss"
	DisasterCount       = "disaster_count"
	PoliticalStability  = "political_stability"
	PopulationDensity   = "population_density"
	CorruptionIndex     = "corruption_index"
	HDI                 = "hdi"
	FDI                 = "fdi"
)

var defaultCitations = map[string]string{
	NDVI:                "https://lpdaac.usgs.gov/products/mod13a3v061/",
	ForestAreaPercent:   "https://data.worldbank.org/indicator/AG.LND.FRST.ZS",
	ForestAreaKm:        "https://data.worldbank.org/indicator/AG.LND.FRST.K2",
	CarbonEmission:      "https://data.worldbank.org/indicator/EN.GHG.CO2.MT.CE.AR5",
	GrossCarbonEmission: "https://www.globalforestwatch.org/dashboards/global/",
	TreeCoverLoss:       "https://www.globalforestwatch.org/dashboards/global/",
	DisasterCount:       "https://www.emdat.be/",
	PoliticalStability:  "https://www.worldbank.org/en/publication/worldwide-governance-indicators",
	PopulationDensity:   "https://data.worldbank.org/indicator/EN.POP.DNST",
	CorruptionIndex:     "https://www.transparency.org/en/cpi",
	HDI:                 "https://hdr.undp.org/data-center/human-development-index",
	FDI:                 "https://data.worldbank.org/indicator/BX.KLT.DINV.WD.GD.ZS",
}

var defaultMetrics = []types.MetricDescriptor{
	{Key: NDVI, Title: "NDVI", TableName: "ndvi", ColumnName: "ndvi_value", Unit: "index", AxisPolicy: types.AutoScale()},
	{Key: ForestAreaPercent, Title: "Forest Area", TableName: "forest_area", ColumnName: "forest_area_percent", Unit: "% of land area", AxisPolicy: types.AutoScale()},
	{Key: ForestAreaKm, Title: "Forest Area", TableName: "forest_area", ColumnName: "forest_area_km", Unit: "sq. km", AxisPolicy: types.AutoScale()},
	{Key: CarbonEmission, Title: "Carbon Emission", TableName: "carbon_emission", ColumnName: "carbon_emission", Unit: "Mt CO2e", AxisPolicy: types.AutoScale()},
	{Key: GrossCarbonEmission, Title: "Gross Carbon Emission", TableName: "tree_cover", ColumnName: "gross_carbon_emission", Unit: "Mg CO2e", AxisPolicy: types.AutoScale()},
	{Key: TreeCoverLoss, Title: "Tree Cover Loss", TableName: "tree_cover", ColumnName: "tree_cover_loss", Unit: "ha", AxisPolicy: types.Locked(0, 6000000, 1500000)},
	{Key: DisasterCount, Title: "Natural Disasters", TableName: "disasters", ColumnName: "disaster_count", Unit: "events", AxisPolicy: types.AutoScale()},
	{Key: PoliticalStability, Title: "Political Stability", TableName: "governance", ColumnName: "political_stability", Unit: "estimate", AxisPolicy: types.Locked(-4, 2, 1.5)},
	{Key: PopulationDensity, Title: "Population Density", TableName: "population", ColumnName: "population_density", Unit: "people per sq. km", AxisPolicy: types.Locked(0, 1500, 375)},
	{Key: CorruptionIndex, Title: "Corruption Perceptions Index", TableName: "governance", ColumnName: "corruption_index", Unit: "score", AxisPolicy: types.AutoScale()},
	{Key: HDI, Title: "Human Development Index", TableName: "development", ColumnName: "hdi", Unit: "index", AxisPolicy: types.AutoScale()},
	{Key: FDI, Title: "Foreign Direct Investment", TableName: "development", ColumnName: "fdi", Unit: "% of GDP", AxisPolicy: types.AutoScale()},
}

// Catalog maps metric keys to descriptors. It is immutable once built.
type Catalog struct {
	metrics   map[string]types.MetricDescriptor
	citations map[string]string
}

// Default returns the built-in catalog
func Default() *Catalog {
	c := &Catalog{
		metrics:   make(map[string]types.MetricDescriptor, len(defaultMetrics)),
		citations: make(map[string]string, len(defaultCitations)),
	}
	for k, v := range defaultCitations {
		c.citations[k] = v
	}
	for _, m := range defaultMetrics {
		c.metrics[m.Key] = m
	}
	return c
}

// Describe returns the descriptor registered under key
func (c *Catalog) Describe(key string) (types.MetricDescriptor, error) {
	m, ok := c.metrics[key]
	if !ok {
		return types.MetricDescriptor{}, fmt.Errorf("%w: %q", types.ErrUnknownMetric, key)
	}
	m.CitationURL = c.Citation(key)
	return m, nil
}

// Citation returns the source URL for key, or UnknownSource
func (c *Catalog) Citation(key string) string {
	if url, ok := c.citations[key]; ok && url != "" {
		return url
	}
	return UnknownSource
}

// Keys lists registered metric keys in sorted order
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.metrics))
	for k := range c.metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns every descriptor, sorted by key
func (c *Catalog) All() []types.MetricDescriptor {
	out := make([]types.MetricDescriptor, 0, len(c.metrics))
	for _, k := range c.Keys() {
		m, _ := c.Describe(k)
		out = append(out, m)
	}
	return out
}

// overlay is the YAML document accepted by WithOverlay
type overlay struct {
	Metrics   []types.MetricDescriptor `yaml:"metrics"`
	Citations map[string]string        `yaml:"citations"`
}

// LoadOverlayFile reads a YAML overlay from path
func (c *Catalog) LoadOverlayFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog overlay: %w", err)
	}
	defer f.Close()
	return c.WithOverlay(f)
}

// WithOverlay returns a copy of c extended with the metrics and citations in r.
// Overlays add or replace entries; they never remove built-in metrics.
func (c *Catalog) WithOverlay(r io.Reader) (*Catalog, error) {
	var doc overlay
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse catalog overlay: %w", err)
	}

	out := &Catalog{
		metrics:   make(map[string]types.MetricDescriptor, len(c.metrics)+len(doc.Metrics)),
		citations: make(map[string]string, len(c.citations)+len(doc.Citations)),
	}
	for k, v := range c.metrics {
		out.metrics[k] = v
	}
	for k, v := range c.citations {
		out.citations[k] = v
	}

	for _, m := range doc.Metrics {
		if m.Key == "" || m.TableName == "" || m.ColumnName == "" {
			return nil, fmt.Errorf("overlay metric %q needs key, table and column", m.Key)
		}
		if m.AxisPolicy.Kind == "" {
			m.AxisPolicy = types.AutoScale()
		}
		if m.AxisPolicy.IsLocked() && (m.AxisPolicy.Max <= m.AxisPolicy.Min || m.AxisPolicy.StepSize <= 0) {
			return nil, fmt.Errorf("overlay metric %q has an invalid locked axis", m.Key)
		}
		if m.CitationURL != "" {
			out.citations[m.Key] = m.CitationURL
		}
		m.CitationURL = ""
		out.metrics[m.Key] = m
	}
	for k, v := range doc.Citations {
		out.citations[k] = v
	}
	return out, nil
}
