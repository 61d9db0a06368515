package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"regwatch/internal/domain"
	"regwatch/internal/infrastructure/storage"
)

type seedRecord struct {
	candidate domain.Candidate
	score     int
	reasoning string
	analysis  domain.FullAnalysis
}

func str(s string) *string { return &s }

var seedRecords = []seedRecord{
	{
		candidate: domain.Candidate{
			Title:         "Chemical Safety Data Sheets Amendment (2023)",
			Description:   "Updated requirements for Safety Data Sheets (SDS) for chemical substances and mixtures under REACH regulation. New format requirements and digital availability mandates.",
			SourceURL:     "https://finlex.fi/fi/laki/ajantasa/2006/20060696",
			PublishedDate: time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
			ExternalID:    "20060696",
		},
		score:     92,
		reasoning: "Direct impact on product documentation. Water treatment chemicals require comprehensive SDS updates affecting compliance and customer communication.",
		analysis: domain.FullAnalysis{
			ImpactLevel:      domain.ImpactHigh,
			ExecutiveSummary: "Mandatory update of all Safety Data Sheets to comply with new digital accessibility requirements. Affects product labeling, customer documentation, and compliance procedures.",
			KeyChanges: []string{
				"Digital SDS format must be accessible 24/7",
				"New hazard pictogram requirements",
				"Extended substance identification fields",
			},
			AffectedAreas:      []string{"Product Documentation", "Quality Assurance", "Regulatory Compliance"},
			ComplianceDeadline: "2024-03-15",
			ActionItems: []domain.AnalysisActionItem{
				{Department: "Quality", Action: "Audit all existing SDS documents against new requirements", Deadline: str("2024-01-31"), Priority: domain.PriorityHigh},
				{Department: "Operations", Action: "Update SDS templates and reformat all product documentation", Deadline: str("2024-02-28"), Priority: domain.PriorityHigh},
				{Department: "Compliance", Action: "Train customer-facing teams on the new SDS format", Deadline: str("2024-03-01"), Priority: domain.PriorityMedium},
			},
			EstimatedEffort: "Approximately 500 hours of documentation work across teams",
			FinancialImpact: "Moderate: digital system implementation costs estimated at EUR 15K-25K plus internal labor",
			RisksIfIgnored:  "Non-compliance penalties up to EUR 50,000 and inability to market products in the EU",
		},
	},
	{
		candidate: domain.Candidate{
			Title:         "Water Framework Directive Implementation Update",
			Description:   "Revised environmental quality standards for priority substances in surface waters, including stricter limits for phosphate and chloride discharges from industrial facilities.",
			SourceURL:     "https://finlex.fi/fi/laki/ajantasa/2023/20231042",
			PublishedDate: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
			ExternalID:    "20231042",
		},
		score:     78,
		reasoning: "Stricter discharge limits directly affect manufacturing effluent treatment and customer obligations in the water utility segment.",
		analysis: domain.FullAnalysis{
			ImpactLevel:      domain.ImpactMedium,
			ExecutiveSummary: "Tighter discharge limits require effluent treatment upgrades at Finnish manufacturing sites and updated dosing guidance for utility customers.",
			KeyChanges: []string{
				"Phosphate discharge limit reduced by 30 percent",
				"Quarterly reporting obligation for chloride discharges",
			},
			AffectedAreas:      []string{"Manufacturing", "Environmental Reporting"},
			ComplianceDeadline: "2025-01-01",
			ActionItems: []domain.AnalysisActionItem{
				{Department: "Environmental", Action: "Baseline current discharge levels at all Finnish sites", Deadline: str("2024-06-30"), Priority: domain.PriorityHigh},
				{Department: "R&D", Action: "Evaluate low-phosphate formulations for affected product lines", Deadline: nil, Priority: domain.PriorityMedium},
			},
			EstimatedEffort: "6-12 months, 2 FTEs",
			FinancialImpact: "Significant: effluent treatment upgrades estimated at EUR 200K-400K",
			RisksIfIgnored:  "Environmental permit revocation risk and daily fines for exceedances",
		},
	},
	{
		candidate: domain.Candidate{
			Title:         "Road Traffic Speed Limit Adjustment",
			Description:   "Seasonal speed limit adjustments on national highways.",
			SourceURL:     "https://finlex.fi/fi/laki/ajantasa/2023/20230917",
			PublishedDate: time.Date(2023, 10, 12, 0, 0, 0, 0, time.UTC),
			ExternalID:    "20230917",
		},
		score:     5,
		reasoning: "Traffic regulation with no bearing on chemical manufacturing, distribution compliance, or product obligations.",
	},
}

// seed inserts the sample regulations, their analyses and cache rows so
// a fresh database has realistic content to browse and export.
func seed(ctx context.Context, repo *storage.PostgresRepository) (int, error) {
	for _, rec := range seedRecords {
		reg, err := repo.Upsert(ctx, rec.candidate)
		if err != nil {
			return 0, fmt.Errorf("seed %s: %w", rec.candidate.ExternalID, err)
		}

		if err := repo.UpdateRelevance(ctx, reg.ID, rec.score, rec.reasoning); err != nil {
			return 0, fmt.Errorf("seed relevance %s: %w", rec.candidate.ExternalID, err)
		}

		relevancePayload, err := json.Marshal(domain.RelevanceResult{Score: rec.score, Reasoning: rec.reasoning})
		if err != nil {
			return 0, err
		}
		if err := repo.Put(ctx, reg.ExternalID, domain.StageRelevance, relevancePayload); err != nil {
			return 0, fmt.Errorf("seed cache %s: %w", rec.candidate.ExternalID, err)
		}

		if rec.analysis.ImpactLevel == "" {
			continue
		}

		analysisPayload, err := json.Marshal(rec.analysis)
		if err != nil {
			return 0, err
		}
		if err := repo.UpdateImpact(ctx, reg.ID, rec.analysis.ImpactLevel, analysisPayload); err != nil {
			return 0, fmt.Errorf("seed impact %s: %w", rec.candidate.ExternalID, err)
		}
		if err := repo.ReplaceActionItems(ctx, reg.ID, rec.analysis.ActionItems); err != nil {
			return 0, fmt.Errorf("seed action items %s: %w", rec.candidate.ExternalID, err)
		}
		if err := repo.Put(ctx, reg.ExternalID, domain.StageFullAnalysis, analysisPayload); err != nil {
			return 0, fmt.Errorf("seed cache %s: %w", rec.candidate.ExternalID, err)
		}
	}

	return len(seedRecords), nil
}
