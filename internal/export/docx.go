package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"

	"regwatch/internal/config"
	"regwatch/internal/domain"
)

// DOCX renders a regulation with its analysis into a Word document with
// the same fixed layout as the PDF export.
func DOCX(reg *domain.RegulationWithItems, company config.CompanyConfig) ([]byte, error) {
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().AddText(company.Name).Size("32").Bold()
	doc.AddParagraph().AddText(company.Division).Size("24").Color("666666")
	doc.AddParagraph()

	doc.AddParagraph().AddText(reg.Title).Size("28").Bold()
	doc.AddParagraph().AddText("Published: " + reg.PublishedDate.Format("2006-01-02"))
	doc.AddParagraph().AddText(fmt.Sprintf("Relevance Score: %s/100", scoreText(reg.RelevanceScore)))
	doc.AddParagraph().AddText("Impact Level: " + strings.ToUpper(string(impactOf(reg))))
	doc.AddParagraph().AddText("Source: " + reg.SourceURL)

	docxSection(doc, "Description", reg.Description)

	if analysis := reg.ParsedAnalysis; analysis != nil {
		docxSection(doc, "Executive Summary", analysis.ExecutiveSummary)
		docxSection(doc, "Key Changes", bulleted(analysis.KeyChanges))
		docxSection(doc, "Affected Areas", strings.Join(analysis.AffectedAreas, ", "))
		docxSection(doc, "Compliance Deadline", analysis.ComplianceDeadline)
		docxSection(doc, "Estimated Effort", analysis.EstimatedEffort)
		docxSection(doc, "Financial Impact", analysis.FinancialImpact)
		docxSection(doc, "Risks If Ignored", analysis.RisksIfIgnored)
		if analysis.CompanyConsiderations != "" {
			docxSection(doc, "Company Considerations", analysis.CompanyConsiderations)
		}
	}

	if len(reg.ActionItems) > 0 {
		doc.AddParagraph()
		doc.AddParagraph().AddText("Action Items").Size("24").Bold().Color("003D7A")
		for _, item := range reg.ActionItems {
			deadline := "no deadline"
			if item.Deadline != nil {
				deadline = item.Deadline.Format("2006-01-02")
			}
			line := fmt.Sprintf("[%s] %s - %s (%s)",
				strings.ToUpper(string(item.Priority)), item.Department, item.Description, deadline)
			doc.AddParagraph().AddText(line)
		}
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render docx: %w", err)
	}
	return buf.Bytes(), nil
}

func docxSection(doc *docx.Docx, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	doc.AddParagraph()
	doc.AddParagraph().AddText(title).Size("24").Bold().Color("003D7A")
	for _, line := range strings.Split(body, "\n") {
		doc.AddParagraph().AddText(line)
	}
}
