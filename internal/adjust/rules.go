// Package adjust evaluates the qualitative rule battery that turns an
// industry-adjusted base score into the final lead score. Rules read the
// analysis-enriched profile; aggregation is bounded to ±25 points.
package adjust

import (
	"strings"

	"github.com/yolwise/leadscore-cli/internal/geo"
	"github.com/yolwise/leadscore-cli/internal/model"
	"github.com/yolwise/leadscore-cli/internal/turkish"
)

// Rule inspects one profile signal and yields at most one adjustment.
// A nil result means the rule did not fire.
type Rule struct {
	Name string
	Eval func(p *model.Profile) *model.Adjustment
}

// Keyword lists folded once; rule text is folded per evaluation.
var (
	growthTerms      = turkish.FoldAll([]string{"expansion", "new facilities", "growing", "büyüme"})
	innovationTerms  = turkish.FoldAll([]string{"innovation", "technology", "digital"})
	leadershipTerms  = turkish.FoldAll([]string{"leader", "leading", "market share", "lider"})
	partnershipTerms = turkish.FoldAll([]string{"partnership", "strategic", "ortaklık"})
	negativeTerms    = turkish.FoldAll([]string{"crisis", "layoffs", "downsizing", "shrinking", "kriz"})
)

// dataQualityFields feed the firmographic completeness bonus.
var dataQualityFields = []string{
	model.FieldWebsite,
	model.FieldDescription,
	model.FieldYearFounded,
	model.FieldLinkedIn,
}

// DefaultRules returns the battery in evaluation order. Each rule fires
// at most once per profile.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "service_potential", Eval: evalServicePotential},
		{Name: "analysis_confidence", Eval: evalConfidence},
		{Name: "growth", Eval: evalGrowth},
		{Name: "innovation", Eval: evalInnovation},
		{Name: "market_leadership", Eval: evalLeadership},
		{Name: "partnership", Eval: evalPartnership},
		{Name: "negative_context", Eval: evalNegativeContext},
		{Name: "tier_one_presence", Eval: evalTierOne},
		{Name: "remote_region", Eval: evalRemoteRegion},
		{Name: "data_quality", Eval: evalDataQuality},
	}
}

func evalServicePotential(p *model.Profile) *model.Adjustment {
	switch turkish.Fold(p.Str(model.FieldB2BServicePotential)) {
	case "high":
		return &model.Adjustment{Delta: 15, Reason: "High B2B service potential"}
	case "medium":
		return &model.Adjustment{Delta: 5, Reason: "Moderate B2B service potential"}
	case "low":
		return &model.Adjustment{Delta: -10, Reason: "Low B2B service potential"}
	}
	return nil
}

func evalConfidence(p *model.Profile) *model.Adjustment {
	switch turkish.Fold(p.Str(model.FieldAnalysisConfidence)) {
	case "high":
		return &model.Adjustment{Delta: 5, Reason: "High analysis confidence"}
	case "low":
		return &model.Adjustment{Delta: -5, Reason: "Low analysis confidence"}
	}
	return nil
}

func evalGrowth(p *model.Profile) *model.Adjustment {
	if matchesAny(p.Str(model.FieldGrowthIndicators), growthTerms) {
		return &model.Adjustment{Delta: 10, Reason: "Expansion and growth signals"}
	}
	return nil
}

func evalInnovation(p *model.Profile) *model.Adjustment {
	text := p.Str(model.FieldGrowthIndicators) + " " + p.Str(model.FieldBusinessContext)
	if matchesAny(text, innovationTerms) {
		return &model.Adjustment{Delta: 5, Reason: "Innovation and technology focus"}
	}
	return nil
}

func evalLeadership(p *model.Profile) *model.Adjustment {
	if matchesAny(p.Str(model.FieldMarketPosition), leadershipTerms) {
		return &model.Adjustment{Delta: 8, Reason: "Market leadership indicators"}
	}
	return nil
}

func evalPartnership(p *model.Profile) *model.Adjustment {
	if matchesAny(p.Str(model.FieldBusinessContext), partnershipTerms) {
		return &model.Adjustment{Delta: 3, Reason: "Strategic partnership activity"}
	}
	return nil
}

func evalNegativeContext(p *model.Profile) *model.Adjustment {
	if matchesAny(p.Str(model.FieldBusinessContext), negativeTerms) {
		return &model.Adjustment{Delta: -8, Reason: "Negative business context"}
	}
	return nil
}

func evalTierOne(p *model.Profile) *model.Adjustment {
	if geo.AnyTierOne(p.Str(model.FieldHeadquarters), p.Str(model.FieldLocations)) {
		return &model.Adjustment{Delta: 4, Reason: "Tier-1 city presence"}
	}
	return nil
}

// evalRemoteRegion fires only when a headquarters value is present but
// matches no tier list at all; an unknown location is not penalized.
func evalRemoteRegion(p *model.Profile) *model.Adjustment {
	hq := p.Str(model.FieldHeadquarters)
	if hq != "" && geo.TierFor(hq) == geo.TierOther {
		return &model.Adjustment{Delta: -6, Reason: "Location outside major markets"}
	}
	return nil
}

func evalDataQuality(p *model.Profile) *model.Adjustment {
	filled := 0
	for _, f := range dataQualityFields {
		if p.Has(f) {
			filled++
		}
	}
	switch {
	case filled >= 3:
		return &model.Adjustment{Delta: 5, Reason: "Rich firmographic data"}
	case filled >= 2:
		return &model.Adjustment{Delta: 3, Reason: "Adequate firmographic data"}
	}
	return nil
}

func matchesAny(text string, folded []string) bool {
	t := turkish.Fold(text)
	if t == "" {
		return false
	}
	for _, kw := range folded {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}
