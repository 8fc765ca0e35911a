// Package scoring implements the local lead-scoring engine used when the
// remote scoring service is unreachable or disabled. Pure calculation over
// the profile; no network, no LLM.
package scoring

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yolwise/leadscore-cli/internal/geo"
	"github.com/yolwise/leadscore-cli/internal/industry"
	"github.com/yolwise/leadscore-cli/internal/mapper"
	"github.com/yolwise/leadscore-cli/internal/model"
	"github.com/yolwise/leadscore-cli/internal/turkish"
)

// Component weights. Must sum to 1.
const (
	weightCompanySize = 0.35
	weightPropensity  = 0.25
	weightFinancial   = 0.20
	weightGeographic  = 0.10
	weightAdditional  = 0.10
)

// Breakdown keys, kept identical to the hosted service response.
const (
	ComponentCompanySize = "company_size_score"
	ComponentPropensity  = "industry_propensity_score"
	ComponentFinancial   = "financial_capacity_score"
	ComponentGeographic  = "geographic_score"
	ComponentAdditional  = "additional_score"
)

// B2B propensity term lists. Matched against the raw industry field, not
// the detected industry tag, and checked high before medium before low.
var (
	highPropensityTerms = []string{
		"renewable", "logistics", "utilities", "manufacturing", "energy",
		"chemical", "industrial", "engineering", "construction materials",
	}
	mediumPropensityTerms = []string{
		"food", "pharmaceutical", "building", "automotive", "mining",
		"metals", "machinery", "equipment",
	}
	lowPropensityTerms = []string{
		"retail", "consumer", "software", "it", "healthcare", "hospital",
		"transportation", "trucking",
	}
)

// Formal legal-structure markers in Turkish company names.
var formalStructureTerms = []string{"a.ş.", "anonim şirket", "limited şirket", "ltd.", "şti."}

// Engine scores profiles locally.
type Engine struct {
	classifier *industry.Classifier
	refYear    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithReferenceYear fixes the year used for company-age bands. Defaults
// to the current year.
func WithReferenceYear(year int) Option {
	return func(e *Engine) {
		e.refYear = year
	}
}

// New builds an Engine over the given classifier.
func New(c *industry.Classifier, opts ...Option) *Engine {
	e := &Engine{classifier: c, refYear: time.Now().Year()}
	for _, opt := range opts {
		opt(e)
	}
	if e.classifier == nil {
		e.classifier = industry.New()
	}
	return e
}

// Score computes the weighted base score, detects the industry and applies
// its multiplier. Both scores are rounded to one decimal.
func (e *Engine) Score(p *model.Profile) model.BaseScore {
	breakdown := map[string]float64{
		ComponentCompanySize: e.scoreCompanySize(p),
		ComponentPropensity:  e.scorePropensity(p),
		ComponentFinancial:   e.scoreFinancialCapacity(p),
		ComponentGeographic:  e.scoreGeographic(p),
		ComponentAdditional:  e.scoreAdditional(p),
	}

	base := breakdown[ComponentCompanySize]*weightCompanySize +
		breakdown[ComponentPropensity]*weightPropensity +
		breakdown[ComponentFinancial]*weightFinancial +
		breakdown[ComponentGeographic]*weightGeographic +
		breakdown[ComponentAdditional]*weightAdditional
	base = round1(model.Clamp(base, 0, 100))

	match := e.classifier.Detect(
		p.Str(model.FieldCompanyName),
		p.Str(model.FieldIndustry),
		p.Str(model.FieldDescription),
	)
	adjusted := round1(model.Clamp(base*match.Multiplier, 0, 100))

	return model.BaseScore{
		BaseScore:             base,
		IndustryMultiplier:    match.Multiplier,
		IndustryAdjustedScore: adjusted,
		DetectedIndustry:      match.Tag,
		IndustryConfidence:    match.Confidence,
		Breakdown:             breakdown,
		Explanation:           match.Explanation(),
		Source:                model.ScoreSourceLocal,
	}
}

// scoreCompanySize grades headcount and revenue bands on a base of 30.
func (e *Engine) scoreCompanySize(p *model.Profile) float64 {
	score := 30.0

	switch employees := numericField(p, model.FieldEmployeesEstimate); {
	case employees >= 5000:
		score += 30
	case employees >= 1000:
		score += 25
	case employees >= 200:
		score += 15
	case employees >= 50:
		score += 10
	case employees >= 1:
		score += 5
	}

	// Revenue bands are calibrated for Turkish lira.
	switch revenue := numericField(p, model.FieldRevenueEstimate); {
	case revenue >= 1_000_000_000:
		score += 25
	case revenue >= 200_000_000:
		score += 20
	case revenue >= 100_000_000:
		score += 15
	case revenue >= 20_000_000:
		score += 10
	case revenue > 0:
		score += 3
	}

	return math.Min(score, 100)
}

// scorePropensity buckets the raw industry text into high (85), medium
// (60) or low (25) B2B service propensity, defaulting to 40.
func (e *Engine) scorePropensity(p *model.Profile) float64 {
	text := turkish.Fold(p.Str(model.FieldIndustry))
	if text == "" {
		return 40
	}
	if containsAnyTerm(text, highPropensityTerms) {
		return 85
	}
	if containsAnyTerm(text, mediumPropensityTerms) {
		return 60
	}
	if containsAnyTerm(text, lowPropensityTerms) {
		return 25
	}
	return 40
}

// scoreFinancialCapacity grades company age, formal legal structure and
// web presence on a base of 30.
func (e *Engine) scoreFinancialCapacity(p *model.Profile) float64 {
	score := 30.0

	if year := numericField(p, model.FieldYearFounded); year > 0 {
		switch age := float64(e.refYear) - year; {
		case age >= 20:
			score += 25
		case age >= 10:
			score += 20
		case age >= 5:
			score += 15
		default:
			score += 5
		}
	}

	name := turkish.Fold(p.Str(model.FieldCompanyName))
	if containsAnyTerm(name, formalStructureTerms) {
		score += 20
	}

	if p.Has(model.FieldWebsite) {
		score += 15
	}

	return math.Min(score, 100)
}

// scoreGeographic grades the headquarters market tier on a base of 40.
func (e *Engine) scoreGeographic(p *model.Profile) float64 {
	score := 40.0
	switch geo.TierFor(p.Str(model.FieldHeadquarters)) {
	case geo.TierOne:
		score += 30
	case geo.TierTwo:
		score += 25
	case geo.TierThree:
		score += 20
	case geo.TierIndustrial:
		score += 22
	default:
		score += 10
	}
	return math.Min(score, 100)
}

// scoreAdditional grades description depth and contact completeness on a
// base of 30.
func (e *Engine) scoreAdditional(p *model.Profile) float64 {
	score := 30.0

	switch n := utf8.RuneCountInString(p.Str(model.FieldDescription)); {
	case n > 100:
		score += 25
	case n > 50:
		score += 15
	case n > 0:
		score += 10
	}

	if p.Has(model.FieldPhone) {
		score += 15
	}
	if p.Has(model.FieldWebsite) {
		score += 15
	}

	return math.Min(score, 100)
}

// numericField reads a field that may hold a parsed number or raw text
// such as "250 milyon TL".
func numericField(p *model.Profile, field string) float64 {
	if v := p.Float(field); v != 0 {
		return v
	}
	if s := p.Str(field); s != "" {
		return mapper.ExtractNumber(s)
	}
	return 0
}

func containsAnyTerm(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
