package domain

import (
	"encoding/json"
	"time"
)

// Candidate is a normalized feed entry before it is persisted.
type Candidate struct {
	Title         string
	Description   string
	SourceURL     string
	PublishedDate time.Time
	ExternalID    string
}

// ImpactLevel grades how hard a regulation hits the company.
type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "high"
	ImpactMedium ImpactLevel = "medium"
	ImpactLow    ImpactLevel = "low"
	ImpactNone   ImpactLevel = "none"
)

// Valid reports whether the level is one of the known grades.
func (l ImpactLevel) Valid() bool {
	switch l {
	case ImpactHigh, ImpactMedium, ImpactLow, ImpactNone:
		return true
	}
	return false
}

// Priority of a compliance action item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ActionStatus tracks the lifecycle of an action item.
type ActionStatus string

const (
	StatusPending    ActionStatus = "pending"
	StatusInProgress ActionStatus = "in_progress"
	StatusCompleted  ActionStatus = "completed"
)

// Regulation is the persisted record for a single announcement, keyed by
// its external identifier. Analysis columns stay NULL until the relevance
// and impact stages fill them in.
type Regulation struct {
	ID                 int64           `db:"id" json:"id"`
	Title              string          `db:"title" json:"title"`
	Description        string          `db:"description" json:"description"`
	SourceURL          string          `db:"source_url" json:"source_url"`
	PublishedDate      time.Time       `db:"published_date" json:"published_date"`
	ExternalID         string          `db:"external_id" json:"external_id"`
	RelevanceScore     *int            `db:"relevance_score" json:"relevance_score"`
	RelevanceReasoning *string         `db:"relevance_reasoning" json:"relevance_reasoning"`
	ImpactLevel        *ImpactLevel    `db:"impact_level" json:"impact_level"`
	FullAnalysis       json.RawMessage `db:"full_analysis" json:"full_analysis"`
	AnalyzedAt         *time.Time      `db:"analyzed_at" json:"analyzed_at"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// ActionItem is a department-scoped compliance task derived from an
// impact analysis. Items are replaced wholesale on re-analysis.
type ActionItem struct {
	ID           int64        `db:"id" json:"id"`
	RegulationID int64        `db:"regulation_id" json:"regulation_id"`
	Department   string       `db:"department" json:"department"`
	Description  string       `db:"action_description" json:"action_description"`
	Deadline     *time.Time   `db:"deadline" json:"deadline"`
	Priority     Priority     `db:"priority" json:"priority"`
	Status       ActionStatus `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

// RegulationWithItems bundles a regulation with its action items and the
// decoded analysis payload for read endpoints and exports.
type RegulationWithItems struct {
	Regulation
	ActionItems    []ActionItem  `json:"action_items"`
	ParsedAnalysis *FullAnalysis `json:"parsed_analysis"`
}

// RelevanceResult is the validated output of the relevance stage.
type RelevanceResult struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// AnalysisActionItem is an action item as emitted by the impact stage,
// before persistence assigns ids and defaults.
type AnalysisActionItem struct {
	Department string   `json:"department"`
	Action     string   `json:"action"`
	Deadline   *string  `json:"deadline"`
	Priority   Priority `json:"priority"`
}

// FullAnalysis is the structured impact breakdown produced for
// above-threshold regulations.
type FullAnalysis struct {
	ImpactLevel           ImpactLevel          `json:"impact_level"`
	ExecutiveSummary      string               `json:"executive_summary"`
	KeyChanges            []string             `json:"key_changes"`
	AffectedAreas         []string             `json:"affected_areas"`
	ComplianceDeadline    string               `json:"compliance_deadline"`
	ActionItems           []AnalysisActionItem `json:"action_items"`
	EstimatedEffort       string               `json:"estimated_effort"`
	FinancialImpact       string               `json:"financial_impact"`
	RisksIfIgnored        string               `json:"risks_if_ignored"`
	CompanyConsiderations string               `json:"company_specific_considerations,omitempty"`
}

// CacheStage partitions cached model responses per regulation.
type CacheStage string

const (
	StageRelevance    CacheStage = "relevance"
	StageFullAnalysis CacheStage = "full_analysis"
)

// IngestStats aggregates the outcome of one monitoring batch.
type IngestStats struct {
	Processed int `json:"processed"`
	New       int `json:"new"`
	Analyzed  int `json:"analyzed"`
	Relevant  int `json:"relevant"`
}
