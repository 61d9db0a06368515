package analysis

import (
	"fmt"
	"strconv"

	"regwatch/internal/domain"
)

const companyContext = `
You are a regulatory compliance expert analyzing Finnish regulations for Kemira Oyj,
a leading global water treatment chemicals and specialized chemicals manufacturer.

Company Profile:
- Name: Kemira Oyj
- Primary Division: Water Treatment Chemicals Division
- Products: Water treatment chemicals, pulp & paper chemicals, oil & gas chemicals
- Manufacturing: Primary operations in Finland, EU-wide distribution network
- Key Markets: Water utilities, industrial water treatment, pulp & paper industry, oil & gas
- Key Concerns: REACH compliance, chemical safety data sheets, environmental regulations, workplace safety, CLP classifications

Kemira's Perspective:
- Regulatory compliance is critical for market access and operational continuity
- Strong emphasis on sustainable and responsible chemistry
- Global manufacturing and distribution means adherence to Finnish, EU, and international regulations
- Procurement of raw materials also impacted by supply chain regulations
`

// relevancePrompt asks for a 0-100 applicability score with reasoning.
func relevancePrompt(reg domain.Regulation) string {
	return fmt.Sprintf(`
%s

Regulation to Analyze:
Title: %s
Source: %s
Published: %s
Description: %s

Task: Analyze how relevant this regulation is to Kemira Oyj's operations on a scale of 0-100.

Scoring Guidelines:
- 90-100: Direct regulation of water treatment chemicals, chemical safety, or core manufacturing processes
- 70-89: Significantly affects manufacturing processes, safety data sheets, compliance obligations, or supply chain
- 50-69: Moderate indirect impact on supply chain, environmental reporting, workplace safety, or permitting
- 30-49: General chemical industry regulation with limited specific impact to Kemira
- 0-29: Not relevant to Kemira's water treatment chemicals or manufacturing operations

Respond ONLY with valid JSON:
{
  "score": <integer 0-100>,
  "reasoning": "<2-3 sentence explanation of the score>"
}
`, companyContext, reg.Title, reg.SourceURL, reg.PublishedDate.Format("2006-01-02"), reg.Description)
}

// impactPrompt asks for the full structured impact analysis, embedding
// the relevance score already established for the regulation.
func impactPrompt(reg domain.Regulation, relevanceScore int) string {
	return fmt.Sprintf(`
%s

Regulation Analysis Request:
Title: %s
Source: %s
Published: %s
Relevance Score: %s
Description: %s

Task: Provide comprehensive impact analysis for Kemira Oyj with actionable compliance items.

Respond ONLY with valid JSON (no markdown, no code blocks):
{
  "impact_level": "high" | "medium" | "low",
  "executive_summary": "<2-3 sentence overview of the regulation and its impact on Kemira>",
  "key_changes": ["<specific change 1>", "<specific change 2>", "<specific change 3>"],
  "affected_areas": ["<business area 1>", "<business area 2>"],
  "compliance_deadline": "<ISO 8601 date (YYYY-MM-DD) or 'To be determined'>",
  "action_items": [
    {
      "department": "R&D" | "Compliance" | "Operations" | "Legal" | "Environmental" | "Quality" | "Supply Chain" | "Executive",
      "action": "<specific action required>",
      "deadline": "<ISO 8601 date or null>",
      "priority": "high" | "medium" | "low"
    }
  ],
  "estimated_effort": "<e.g., '3-6 months, 2-3 FTEs across departments'>",
  "financial_impact": "<qualitative assessment with rough cost range>",
  "risks_if_ignored": "<consequences of non-compliance>",
  "company_specific_considerations": "<1-2 sentences on how this applies to Kemira's water treatment chemicals division>"
}

Important:
- Analyze from Kemira's perspective as a water treatment chemicals manufacturer
- Focus on practical, actionable compliance steps
- Include specific deadlines when mentioned in the regulation
- If no specific deadline is mentioned, estimate based on typical regulatory timelines (6-18 months for major changes)
`, companyContext, reg.Title, reg.SourceURL, reg.PublishedDate.Format("2006-01-02"), strconv.Itoa(relevanceScore), reg.Description)
}
