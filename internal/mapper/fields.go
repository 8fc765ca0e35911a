package mapper

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FieldMapping maps header keywords to one canonical profile field.
// Keywords match case-insensitively by containment against the
// normalized header; table order decides ties, so more specific fields
// must precede the generic ones they overlap with.
type FieldMapping struct {
	Field    string   `yaml:"field" json:"field"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	MaxLen   int      `yaml:"max_len" json:"max_len"`
	Numeric  bool     `yaml:"numeric" json:"numeric"`
}

// CategoryMapping assigns unmapped headers to a coarse bucket.
type CategoryMapping struct {
	Category string   `yaml:"category" json:"category"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Coarse bucket names for unmapped columns.
const (
	CategoryFinancial   = "financial"
	CategoryLegal       = "legal"
	CategoryOperational = "operational"
	CategoryContact     = "contact"
	CategoryOther       = "other"
)

// DefaultFieldTable returns the built-in header mapping table. The
// linkedin/website/phone entries come first because their headers
// ("LinkedIn Company Page", "Company Domain Name") contain the
// substrings the generic fields match on.
func DefaultFieldTable() []FieldMapping {
	return []FieldMapping{
		{Field: "linkedin_page", Keywords: []string{"linkedin"}, MaxLen: 200},
		{Field: "facebook_page", Keywords: []string{"facebook"}, MaxLen: 200},
		{Field: "website", Keywords: []string{"domain", "website", "web site", "url"}, MaxLen: 200},
		{Field: "phone", Keywords: []string{"phone", "telefon", "gsm"}, MaxLen: 50},
		{Field: "year_founded", Keywords: []string{"founded", "kuruluş", "establish"}, Numeric: true},
		{Field: "address", Keywords: []string{"address", "street", "adres", "cadde", "sokak"}, MaxLen: 200},
		{Field: "company_name", Keywords: []string{"company name", "company", "firma", "şirket", "ünvan", "name"}, MaxLen: 200},
		{Field: "industry", Keywords: []string{"industry", "sektör", "sector", "branş"}, MaxLen: 100},
		{Field: "revenue_estimate", Keywords: []string{"revenue", "ciro", "gelir", "turnover", "sales"}, Numeric: true},
		{Field: "employees_estimate", Keywords: []string{"employee", "çalışan", "personel", "staff", "headcount"}, Numeric: true},
		{Field: "headquarters", Keywords: []string{"city", "headquarters", "şehir", "merkez", "location"}, MaxLen: 100},
		{Field: "business_type", Keywords: []string{"business type", "company type", "tür"}, MaxLen: 50},
		{Field: "description", Keywords: []string{"description", "açıklama", "about", "tanım", "faaliyet"}, MaxLen: 500},
	}
}

// DefaultCategoryTable returns the built-in bucket table for unmapped
// headers. Order decides ties; "other" is the implicit default and
// carries no keywords.
func DefaultCategoryTable() []CategoryMapping {
	return []CategoryMapping{
		{Category: CategoryFinancial, Keywords: []string{"revenue", "profit", "tax", "vergi", "capital", "sermaye", "budget", "finans", "credit", "banka"}},
		{Category: CategoryLegal, Keywords: []string{"legal", "registration", "license", "licence", "sicil", "tescil", "mersis", "hukuk"}},
		{Category: CategoryOperational, Keywords: []string{"production", "capacity", "facility", "plant", "üretim", "kapasite", "tesis", "fabrika", "operasyon", "export", "ihracat"}},
		{Category: CategoryContact, Keywords: []string{"email", "e-mail", "eposta", "e-posta", "fax", "faks", "contact", "iletişim", "facebook", "twitter", "instagram"}},
	}
}

// fieldTableFile is the YAML override shape: a top-level "fields" key
// so the same file can later grow sibling sections.
type fieldTableFile struct {
	Fields     []FieldMapping    `yaml:"fields"`
	Categories []CategoryMapping `yaml:"categories"`
}

// LoadTables reads a field/category table override from a YAML file.
// Either section may be omitted to keep the built-in default.
func LoadTables(path string) ([]FieldMapping, []CategoryMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "mapper: read table %s", path)
	}
	var f fieldTableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, eris.Wrap(err, "mapper: parse table")
	}
	fields := f.Fields
	if len(fields) == 0 {
		fields = DefaultFieldTable()
	}
	cats := f.Categories
	if len(cats) == 0 {
		cats = DefaultCategoryTable()
	}
	return fields, cats, nil
}
