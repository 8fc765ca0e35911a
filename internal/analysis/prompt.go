package analysis

import (
	"fmt"
	"strings"

	"github.com/yolwise/leadscore-cli/internal/model"
)

// systemPrompt is the shared system instruction for narrative analysis.
// It is identical for every row, which makes it the prompt-cache
// breakpoint for the whole run.
const systemPrompt = `You are a senior B2B market analyst covering Turkish companies for a corporate services provider.

You receive a partially filled company profile extracted from a lead spreadsheet. Produce a concise business analysis and fill in missing profile facts where you are reasonably confident.

Rules:
- Ground every statement in the provided profile data and well-known public facts about the company
- Never invent revenue or headcount figures; leave a field as an empty string when unsure
- discovered_facts must be short concrete statements, at most 5 items
- analysis_confidence is "high", "medium" or "low" depending on how much of the profile was available
- Respond with ONLY a valid JSON object, no prose before or after

Respond in exactly this JSON format:
{
  "company_name": "<official company name>",
  "industry": "<primary industry or sector>",
  "revenue_estimate": "<annual revenue estimate, or empty string>",
  "employees_estimate": "<employee count estimate, or empty string>",
  "business_type": "<legal structure, e.g. A.Ş. or Ltd. Şti.>",
  "headquarters": "<headquarters city>",
  "locations": ["<city>"],
  "key_people": ["<name and role>"],
  "discovered_facts": ["<short factual statement>"],
  "growth_indicators": "<expansion, hiring or investment signals>",
  "market_position": "<market standing, e.g. market leader, regional player>",
  "business_context": "<two or three sentences on what the company does and how it operates>",
  "b2b_service_potential": "<high, medium or low, with a short justification>",
  "analysis_confidence": "<high, medium or low>"
}`

// promptFields is the canonical field order for the user message.
var promptFields = []string{
	model.FieldCompanyName,
	model.FieldIndustry,
	model.FieldRevenueEstimate,
	model.FieldEmployeesEstimate,
	model.FieldBusinessType,
	model.FieldHeadquarters,
	model.FieldDescription,
	model.FieldWebsite,
	model.FieldPhone,
	model.FieldYearFounded,
	model.FieldLinkedIn,
	model.FieldAddress,
}

// buildUserMessage renders the profile into the per-row user message.
func buildUserMessage(p *model.Profile, instructions string) string {
	var sb strings.Builder
	sb.WriteString("Company profile:\n")
	for _, field := range promptFields {
		if v := p.Str(field); v != "" {
			fmt.Fprintf(&sb, "- %s: %s\n", field, v)
		} else if n := p.Float(field); n != 0 {
			fmt.Fprintf(&sb, "- %s: %.0f\n", field, n)
		}
	}

	if len(p.DiscoveredFacts) > 0 {
		sb.WriteString("\nAdditional column data:\n")
		for _, fact := range p.DiscoveredFacts {
			fmt.Fprintf(&sb, "- %s\n", fact)
		}
	}

	if instructions != "" {
		fmt.Fprintf(&sb, "\nRun notes: %s\n", instructions)
	}

	sb.WriteString("\nAnalyze this company's potential as a B2B services customer in the Turkish market.")
	return sb.String()
}
