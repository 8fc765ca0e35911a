package model

import "strings"

// Canonical profile field names. Downstream scoring and the narrative
// analysis contract both key off these exact strings.
const (
	FieldCompanyName       = "company_name"
	FieldIndustry          = "industry"
	FieldRevenueEstimate   = "revenue_estimate"
	FieldEmployeesEstimate = "employees_estimate"
	FieldHeadquarters      = "headquarters"
	FieldBusinessType      = "business_type"
	FieldDescription       = "description"
	FieldWebsite           = "website"
	FieldPhone             = "phone"
	FieldYearFounded       = "year_founded"
	FieldLinkedIn          = "linkedin_page"
	FieldFacebook          = "facebook_page"
	FieldAddress           = "address"
)

// Fields the narrative analysis may add on top of the canonical set.
const (
	FieldLocations           = "locations"
	FieldKeyPeople           = "key_people"
	FieldGrowthIndicators    = "growth_indicators"
	FieldMarketPosition      = "market_position"
	FieldBusinessContext     = "business_context"
	FieldB2BServicePotential = "b2b_service_potential"
	FieldAnalysisConfidence  = "analysis_confidence"
)

// CriticalFields is the subset of canonical fields whose presence feeds
// the completeness percentage. Order matters for report rendering.
var CriticalFields = []string{
	FieldCompanyName,
	FieldIndustry,
	FieldRevenueEstimate,
	FieldEmployeesEstimate,
	FieldHeadquarters,
}

// RawRow is one spreadsheet row paired with the sheet's header row.
// Produced by a row source, consumed once by the field mapper.
type RawRow struct {
	Index   int      `json:"index"`
	Headers []string `json:"headers"`
	Cells   []string `json:"cells"`
}

// Normalized returns a copy with Headers and Cells padded to equal
// length; the shorter side gains empty strings.
func (r RawRow) Normalized() RawRow {
	n := len(r.Headers)
	if len(r.Cells) > n {
		n = len(r.Cells)
	}
	out := RawRow{Index: r.Index, Headers: make([]string, n), Cells: make([]string, n)}
	copy(out.Headers, r.Headers)
	copy(out.Cells, r.Cells)
	return out
}

// Profile is the canonical company profile built per row. Fields holds
// canonical and analysis values; DiscoveredFacts summarizes unmapped
// columns by coarse category.
type Profile struct {
	Fields          map[string]any `json:"fields"`
	DiscoveredFacts []string       `json:"discovered_facts,omitempty"`
	QualityAnalysis string         `json:"quality_analysis,omitempty"`
}

// NewProfile returns an empty profile ready for mapping.
func NewProfile() *Profile {
	return &Profile{Fields: make(map[string]any)}
}

// Get returns the raw value for a field.
func (p *Profile) Get(field string) (any, bool) {
	v, ok := p.Fields[field]
	return v, ok
}

// Str returns the field value rendered as a trimmed string, or "" when
// absent or non-scalar.
func (p *Profile) Str(field string) string {
	v, ok := p.Fields[field]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case []string:
		return strings.TrimSpace(strings.Join(s, ", "))
	default:
		return ""
	}
}

// Float returns the field value as float64, or 0 when absent or not
// numeric.
func (p *Profile) Float(field string) float64 {
	switch n := p.Fields[field].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// Has reports whether the field holds a non-empty value. Numeric zero
// counts as empty: a revenue of 0 carries no signal.
func (p *Profile) Has(field string) bool {
	v, ok := p.Fields[field]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case []string:
		return len(t) > 0
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

// Set stores a value unconditionally.
func (p *Profile) Set(field string, v any) {
	p.Fields[field] = v
}

// SetIfEmpty stores a value only when the field is currently empty and
// reports whether it wrote. Fallback merging relies on this so
// structured results are never overwritten.
func (p *Profile) SetIfEmpty(field string, v any) bool {
	if p.Has(field) {
		return false
	}
	p.Fields[field] = v
	return true
}

// MissingCritical returns the critical fields still empty, in canonical
// order.
func (p *Profile) MissingCritical() []string {
	var missing []string
	for _, f := range CriticalFields {
		if !p.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Valid reports whether the profile can be scored at all. Only a
// missing company name disqualifies a row.
func (p *Profile) Valid() bool {
	return p.Has(FieldCompanyName)
}

// QualityAnalysis summarizes critical-field coverage after mapping and
// fallback. Not persisted; the rendered report string travels on the
// profile instead.
type QualityAnalysis struct {
	CriticalFound  int      `json:"critical_found"`
	CriticalTotal  int      `json:"critical_total"`
	Missing        []string `json:"missing,omitempty"`
	FallbackUsed   bool     `json:"fallback_used"`
	FallbackFilled int      `json:"fallback_filled"`
	Completeness   float64  `json:"completeness"`
}
