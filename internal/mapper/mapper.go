package mapper

import (
	"fmt"
	"strings"

	"github.com/yolwise/leadscore-cli/internal/model"
	"github.com/yolwise/leadscore-cli/internal/turkish"
)

// HeaderValue is one unconsumed header/value pair, handed to the
// fallback resolver and to bucket summarization.
type HeaderValue struct {
	Header string `json:"header"`
	Value  string `json:"value"`
}

// Result is the mapper output for one row.
type Result struct {
	Profile   *model.Profile
	Leftovers []HeaderValue // non-empty values under headers no field consumed
}

// Mapper deterministically fills canonical profile fields from header
// keywords. Pure; safe for reuse across rows.
type Mapper struct {
	fields   []FieldMapping
	cats     []CategoryMapping
	maxFacts int

	// Keywords folded once at construction; headers are folded per row,
	// and both sides must agree on the ı fold.
	fieldKeys [][]string
	catKeys   [][]string
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithTables overrides the built-in field and category tables.
func WithTables(fields []FieldMapping, cats []CategoryMapping) Option {
	return func(m *Mapper) {
		m.fields = fields
		m.cats = cats
	}
}

// WithMaxFacts caps discovered-fact items per category.
func WithMaxFacts(n int) Option {
	return func(m *Mapper) {
		m.maxFacts = n
	}
}

// New creates a Mapper with the built-in tables.
func New(opts ...Option) *Mapper {
	m := &Mapper{
		fields:   DefaultFieldTable(),
		cats:     DefaultCategoryTable(),
		maxFacts: 5,
	}
	for _, o := range opts {
		o(m)
	}
	m.fieldKeys = make([][]string, len(m.fields))
	for i := range m.fields {
		m.fieldKeys[i] = turkish.FoldAll(m.fields[i].Keywords)
	}
	m.catKeys = make([][]string, len(m.cats))
	for i := range m.cats {
		m.catKeys[i] = turkish.FoldAll(m.cats[i].Keywords)
	}
	return m
}

// Map builds a canonical profile from one row. Each header is tested
// against the field table in order and consumed by the first match;
// a field already filled by an earlier header still consumes later
// headers that match it (their values are discarded, not bucketed).
// Unconsumed headers with non-empty cells become leftovers and feed
// the discovered-facts buckets.
func (m *Mapper) Map(row model.RawRow) *Result {
	row = row.Normalized()
	profile := model.NewProfile()
	var leftovers []HeaderValue

	for i, header := range row.Headers {
		value := strings.TrimSpace(row.Cells[i])
		norm := Normalize(header)
		if norm == "" {
			continue
		}

		fm := m.matchField(norm)
		if fm == nil {
			if value != "" {
				leftovers = append(leftovers, HeaderValue{Header: header, Value: value})
			}
			continue
		}
		if value == "" {
			continue
		}
		if fm.Numeric {
			profile.SetIfEmpty(fm.Field, ExtractNumber(value))
		} else {
			profile.SetIfEmpty(fm.Field, Truncate(value, fm.MaxLen))
		}
	}

	profile.DiscoveredFacts = m.summarize(leftovers)
	return &Result{Profile: profile, Leftovers: leftovers}
}

// matchField returns the first field mapping whose keywords hit the
// normalized header, or nil.
func (m *Mapper) matchField(norm string) *FieldMapping {
	for i := range m.fieldKeys {
		for _, kw := range m.fieldKeys[i] {
			if strings.Contains(norm, kw) {
				return &m.fields[i]
			}
		}
	}
	return nil
}

// categorize assigns an unmapped header to its coarse bucket.
func (m *Mapper) categorize(norm string) string {
	for i := range m.catKeys {
		for _, kw := range m.catKeys[i] {
			if strings.Contains(norm, kw) {
				return m.cats[i].Category
			}
		}
	}
	return CategoryOther
}

// summarize renders one discovered-facts line per non-empty bucket, in
// fixed bucket order, each capped at maxFacts items.
func (m *Mapper) summarize(leftovers []HeaderValue) []string {
	if len(leftovers) == 0 {
		return nil
	}

	buckets := make(map[string][]string)
	for _, hv := range leftovers {
		cat := m.categorize(Normalize(hv.Header))
		if len(buckets[cat]) >= m.maxFacts {
			continue
		}
		buckets[cat] = append(buckets[cat], fmt.Sprintf("%s: %s", hv.Header, Truncate(hv.Value, 80)))
	}

	order := []string{CategoryFinancial, CategoryLegal, CategoryOperational, CategoryContact, CategoryOther}
	var facts []string
	for _, cat := range order {
		items := buckets[cat]
		if len(items) == 0 {
			continue
		}
		facts = append(facts, fmt.Sprintf("%s: %s", titleWord(cat), strings.Join(items, "; ")))
	}
	return facts
}

// Truncate limits a string to max runes; non-positive max means no
// limit. Rune-safe for Turkish text.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// titleWord uppercases the first letter of an ASCII bucket name.
func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
