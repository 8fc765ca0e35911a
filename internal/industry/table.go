// Package industry classifies free-text sector descriptions into a fixed
// set of industry tags, each carrying a score multiplier and a confidence
// tier calibrated for Turkish B2B service propensity.
package industry

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Confidence tiers reported alongside a classification.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Industry is one row of the classification table. Keywords are matched
// against Turkish-lowercased text, so entries mix English and Turkish terms.
type Industry struct {
	Tag        string   `yaml:"tag" json:"industry"`
	Multiplier float64  `yaml:"multiplier" json:"multiplier"`
	Confidence string   `yaml:"confidence" json:"confidence"`
	Keywords   []string `yaml:"keywords" json:"keywords"`
	Reasoning  string   `yaml:"reasoning" json:"reasoning"`
}

// DefaultTable returns the built-in classification table, ordered from the
// strongest B2B multiplier to the weakest. Order matters: Classify takes the
// first keyword hit, and Detect breaks score ties in favor of earlier rows.
func DefaultTable() []Industry {
	return []Industry{
		{
			Tag:        "renewables_environment",
			Multiplier: 1.20,
			Confidence: ConfidenceHigh,
			Keywords:   []string{"renewable", "environment", "solar", "wind", "green energy", "sustainability", "çevre", "yenilenebilir"},
			Reasoning:  "60% target rate, growing sector with significant B2B investment",
		},
		{
			Tag:        "logistics_supply_chain",
			Multiplier: 1.17,
			Confidence: ConfidenceHigh,
			Keywords:   []string{"logistics", "supply chain", "transportation", "shipping", "distribution", "freight", "lojistik", "taşımacılık"},
			Reasoning:  "58.8% target rate, complex operational B2B needs",
		},
		{
			Tag:        "utilities",
			Multiplier: 1.15,
			Confidence: ConfidenceHigh,
			Keywords:   []string{"utilities", "electric", "power", "gas", "water", "energy distribution", "elektrik", "enerji"},
			Reasoning:  "54.5% target rate, infrastructure-heavy B2B requirements",
		},
		{
			Tag:        "food_beverages",
			Multiplier: 1.10,
			Confidence: ConfidenceMedium,
			Keywords:   []string{"food", "beverage", "dairy", "agriculture", "nutrition", "farming", "gıda", "içecek", "tarım"},
			Reasoning:  "50% target rate, moderate B2B service requirements",
		},
		{
			Tag:        "chemicals",
			Multiplier: 1.05,
			Confidence: ConfidenceMedium,
			Keywords:   []string{"chemical", "pharmaceutical", "biotech", "laboratory", "manufacturing chemical", "kimya", "ilaç"},
			Reasoning:  "45.8% target rate, specialized technical services needed",
		},
		{
			Tag:        "building_materials",
			Multiplier: 1.02,
			Confidence: ConfidenceMedium,
			Keywords:   []string{"building materials", "construction materials", "cement", "steel", "concrete", "yapı malzemesi", "çimento"},
			Reasoning:  "44.4% target rate, construction-related B2B services",
		},
		{
			Tag:        "mechanical_industrial",
			Multiplier: 1.00,
			Confidence: ConfidenceMedium,
			Keywords:   []string{"mechanical", "industrial engineering", "machinery", "equipment", "manufacturing", "makine", "mühendislik"},
			Reasoning:  "42% target rate, baseline engineering service needs",
		},
		{
			Tag:        "mining_metals",
			Multiplier: 0.98,
			Confidence: ConfidenceMedium,
			Keywords:   []string{"mining", "metals", "metallurgy", "extraction", "ore processing", "maden", "metal"},
			Reasoning:  "41.2% target rate, specialized but limited service scope",
		},
		{
			Tag:        "pharmaceuticals",
			Multiplier: 0.97,
			Confidence: ConfidenceMedium,
			Keywords:   []string{"pharmaceuticals", "pharma", "medicine", "drugs", "healthcare", "ilaç", "sağlık"},
			Reasoning:  "40% target rate, highly regulated sector",
		},
		{
			Tag:        "retail",
			Multiplier: 0.90,
			Confidence: ConfidenceLow,
			Keywords:   []string{"retail", "consumer", "shopping", "store", "commerce", "sales", "perakende", "mağaza"},
			Reasoning:  "37.5% target rate, consumer-focused with limited B2B needs",
		},
		{
			Tag:        "construction",
			Multiplier: 0.88,
			Confidence: ConfidenceLow,
			Keywords:   []string{"construction", "building", "architecture", "contractor", "infrastructure", "inşaat", "yapı"},
			Reasoning:  "35.3% target rate, project-based service requirements",
		},
		{
			Tag:        "automotive",
			Multiplier: 0.85,
			Confidence: ConfidenceLow,
			Keywords:   []string{"automotive", "automobile", "vehicle", "car", "transportation equipment", "otomotiv", "araç"},
			Reasoning:  "34.1% target rate, manufacturing-focused operations",
		},
		{
			Tag:        "computer_software",
			Multiplier: 0.80,
			Confidence: ConfidenceLow,
			Keywords:   []string{"computer software", "technology", "software", "it", "digital", "programming", "yazılım", "teknoloji"},
			Reasoning:  "29.6% target rate, self-service digital solutions preferred",
		},
		{
			Tag:        "hospital_healthcare",
			Multiplier: 0.75,
			Confidence: ConfidenceLow,
			Keywords:   []string{"hospital", "health care", "medical", "healthcare", "clinic", "pharmaceutical", "hastane", "sağlık"},
			Reasoning:  "30% target rate, specialized service requirements outside typical B2B",
		},
		{
			Tag:        "transportation_trucking",
			Multiplier: 0.70,
			Confidence: ConfidenceLow,
			Keywords:   []string{"transportation", "trucking", "freight", "delivery", "shipping", "nakliye", "kargo"},
			Reasoning:  "23.1% target rate, operational focus over service procurement",
		},
	}
}

type tableFile struct {
	Industries []Industry `yaml:"industries"`
}

// LoadTable reads a YAML classification table. An empty industries list
// falls back to the built-in table so a config file can exist without
// overriding anything.
func LoadTable(path string) ([]Industry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "industry: read table")
	}
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrap(err, "industry: parse table")
	}
	if len(f.Industries) == 0 {
		return DefaultTable(), nil
	}
	for _, ind := range f.Industries {
		if ind.Tag == "" || ind.Multiplier <= 0 {
			return nil, eris.Errorf("industry: invalid table entry %q", ind.Tag)
		}
	}
	return f.Industries, nil
}
