package analysis

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yolwise/leadscore-cli/pkg/anthropic"
)

// maxFacts caps discovered_facts from a single analysis; the prompt asks
// for five but the model is not trusted to comply.
const maxFacts = 5

// parseResult turns a raw model response into a Result. The pipeline is
// fence stripping, object slicing, unmarshal, truncation repair with one
// retry, then regex scraping as the last resort. ok is false only when
// nothing at all could be recovered.
func parseResult(resp *anthropic.MessageResponse) (*Result, bool) {
	if resp == nil || len(resp.Content) == 0 {
		return nil, false
	}

	text := extractText(resp)
	cleaned := cleanJSON(text)

	var raw rawResult
	if err := json.Unmarshal([]byte(cleaned), &raw); err == nil {
		return raw.toResult(), true
	}

	repaired := repairTruncatedJSON(cleaned)
	if err := json.Unmarshal([]byte(repaired), &raw); err == nil {
		zap.L().Debug("analysis JSON repaired after truncation")
		return raw.toResult(), true
	}

	if scraped := scrapeResult(text); scraped != nil {
		return scraped, true
	}

	return nil, false
}

// rawResult tolerates the model returning numbers where the schema asks
// for strings, and scalars where it asks for lists.
type rawResult struct {
	CompanyName         any `json:"company_name"`
	Industry            any `json:"industry"`
	RevenueEstimate     any `json:"revenue_estimate"`
	EmployeesEstimate   any `json:"employees_estimate"`
	BusinessType        any `json:"business_type"`
	Headquarters        any `json:"headquarters"`
	Locations           any `json:"locations"`
	KeyPeople           any `json:"key_people"`
	DiscoveredFacts     any `json:"discovered_facts"`
	GrowthIndicators    any `json:"growth_indicators"`
	MarketPosition      any `json:"market_position"`
	BusinessContext     any `json:"business_context"`
	B2BServicePotential any `json:"b2b_service_potential"`
	AnalysisConfidence  any `json:"analysis_confidence"`
}

func (r rawResult) toResult() *Result {
	facts := asStrings(r.DiscoveredFacts)
	if len(facts) > maxFacts {
		facts = facts[:maxFacts]
	}
	return &Result{
		CompanyName:         asString(r.CompanyName),
		Industry:            asString(r.Industry),
		RevenueEstimate:     asString(r.RevenueEstimate),
		EmployeesEstimate:   asString(r.EmployeesEstimate),
		BusinessType:        asString(r.BusinessType),
		Headquarters:        asString(r.Headquarters),
		Locations:           asStrings(r.Locations),
		KeyPeople:           asStrings(r.KeyPeople),
		DiscoveredFacts:     facts,
		GrowthIndicators:    asString(r.GrowthIndicators),
		MarketPosition:      asString(r.MarketPosition),
		BusinessContext:     asString(r.BusinessContext),
		B2BServicePotential: asString(r.B2BServicePotential),
		AnalysisConfidence:  asString(r.AnalysisConfidence),
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

func asStrings(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := asString(e); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
		return nil
	default:
		return nil
	}
}

// extractText concatenates all text content blocks.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// cleanJSON strips markdown fences and slices out the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// repairTruncatedJSON closes any unclosed brackets or braces in truncated
// JSON. Responses cut off at the token ceiling usually die mid-array.
func repairTruncatedJSON(text string) string {
	if len(text) == 0 {
		return text
	}

	// Track open delimiters in order.
	var stack []byte
	inString := false
	escape := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if escape {
			escape = false
			continue
		}

		if c == '\\' && inString {
			escape = true
			continue
		}

		if c == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		switch c {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	// An unterminated string has to be closed before any delimiter.
	if inString {
		text = strings.TrimRight(text, "\\")
		text += `"`
	}

	// Close unclosed delimiters in reverse order.
	for i := len(stack) - 1; i >= 0; i-- {
		// Trim trailing comma before closing (common in truncated arrays).
		text = strings.TrimRight(text, " \t\n\r,")
		text += string(stack[i])
	}

	return text
}

// Scrape patterns for the degraded path. Only the fields the scoring
// layers depend on are worth recovering from free text.
var (
	companyNameRe = regexp.MustCompile(`"company_name"\s*:\s*"((?:[^"\\]|\\.)+)"`)
	industryRe    = regexp.MustCompile(`"industry"\s*:\s*"((?:[^"\\]|\\.)+)"`)
	revenueRe     = regexp.MustCompile(`"revenue_estimate"\s*:\s*"?([^",}\n]+)"?`)
)

// scrapeResult recovers company_name, industry and revenue_estimate from
// text that never became valid JSON. Returns nil when nothing matched.
func scrapeResult(text string) *Result {
	res := &Result{Degraded: true}
	found := false

	if m := companyNameRe.FindStringSubmatch(text); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			res.CompanyName = v
			found = true
		}
	}
	if m := industryRe.FindStringSubmatch(text); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			res.Industry = v
			found = true
		}
	}
	if m := revenueRe.FindStringSubmatch(text); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" && v != "null" {
			res.RevenueEstimate = v
			found = true
		}
	}

	if !found {
		return nil
	}
	return res
}
