package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"regwatch/internal/config"
	"regwatch/internal/domain"
)

// PDF renders a regulation with its analysis into a fixed-layout A4
// report.
func PDF(reg *domain.RegulationWithItems, company config.CompanyConfig) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFillColor(0, 61, 122)
	pdf.Rect(0, 0, 210, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(15, 6)
	pdf.CellFormat(0, 8, tr(company.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetX(15)
	pdf.CellFormat(0, 6, tr(company.Division), "", 1, "L", false, 0, "")

	pdf.SetTextColor(74, 74, 74)
	pdf.SetXY(15, 36)
	pdf.SetFont("Helvetica", "B", 15)
	pdf.MultiCell(0, 7, tr(reg.Title), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, tr("Published: "+reg.PublishedDate.Format("2006-01-02")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Relevance Score: %s/100", scoreText(reg.RelevanceScore))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr("Impact Level: "+strings.ToUpper(string(impactOf(reg)))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr("Source: "+reg.SourceURL), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	section(pdf, tr, "Description", reg.Description)

	if analysis := reg.ParsedAnalysis; analysis != nil {
		section(pdf, tr, "Executive Summary", analysis.ExecutiveSummary)
		section(pdf, tr, "Key Changes", bulleted(analysis.KeyChanges))
		section(pdf, tr, "Affected Areas", strings.Join(analysis.AffectedAreas, ", "))
		section(pdf, tr, "Compliance Deadline", analysis.ComplianceDeadline)
		section(pdf, tr, "Estimated Effort", analysis.EstimatedEffort)
		section(pdf, tr, "Financial Impact", analysis.FinancialImpact)
		section(pdf, tr, "Risks If Ignored", analysis.RisksIfIgnored)
		if analysis.CompanyConsiderations != "" {
			section(pdf, tr, "Company Considerations", analysis.CompanyConsiderations)
		}
	}

	if len(reg.ActionItems) > 0 {
		heading(pdf, tr, "Action Items")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(229, 229, 229)
		pdf.CellFormat(40, 6, "Department", "1", 0, "L", true, 0, "")
		pdf.CellFormat(95, 6, "Action", "1", 0, "L", true, 0, "")
		pdf.CellFormat(25, 6, "Deadline", "1", 0, "L", true, 0, "")
		pdf.CellFormat(20, 6, "Priority", "1", 1, "L", true, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		for _, item := range reg.ActionItems {
			deadline := ""
			if item.Deadline != nil {
				deadline = item.Deadline.Format("2006-01-02")
			}
			pdf.CellFormat(40, 6, tr(item.Department), "1", 0, "L", false, 0, "")
			pdf.CellFormat(95, 6, tr(clip(item.Description, 70)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, deadline, "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 6, string(item.Priority), "1", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func heading(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 61, 122)
	pdf.CellFormat(0, 7, tr(title), "", 1, "L", false, 0, "")
	pdf.SetTextColor(74, 74, 74)
}

func section(pdf *fpdf.Fpdf, tr func(string) string, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	heading(pdf, tr, title)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(body), "", "L", false)
	pdf.Ln(1)
}

func bulleted(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func scoreText(score *int) string {
	if score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *score)
}

func impactOf(reg *domain.RegulationWithItems) domain.ImpactLevel {
	if reg.ImpactLevel == nil {
		return domain.ImpactNone
	}
	return *reg.ImpactLevel
}
