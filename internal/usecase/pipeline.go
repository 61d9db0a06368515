package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"regwatch/internal/analysis"
	"regwatch/internal/domain"
	"regwatch/internal/ports"
)

// ErrNotFound is returned by Reanalyze when the regulation id is unknown.
var ErrNotFound = fmt.Errorf("regulation not found")

// PipelineDeps wires all driven adapters into the ingestion orchestrator.
type PipelineDeps struct {
	Source    ports.FeedSource
	Repo      ports.RegulationRepository
	Cache     ports.AnalysisCache
	Analyzer  *analysis.Analyzer
	Notifier  ports.Notifier
	Threshold int
	Logger    *slog.Logger
}

// Pipeline drives the per-candidate flow: dedupe, insert, relevance
// scoring and, above the threshold, full impact analysis with action-item
// replacement. Candidates are processed sequentially; one bad candidate
// never aborts the batch.
type Pipeline struct {
	source    ports.FeedSource
	repo      ports.RegulationRepository
	cache     ports.AnalysisCache
	analyzer  *analysis.Analyzer
	notifier  ports.Notifier
	threshold int
	logger    *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	threshold := deps.Threshold
	if threshold <= 0 {
		threshold = 40
	}
	return &Pipeline{
		source:    deps.Source,
		repo:      deps.Repo,
		cache:     deps.Cache,
		analyzer:  deps.Analyzer,
		notifier:  deps.Notifier,
		threshold: threshold,
		logger:    deps.Logger,
	}
}

// ProcessBatch fetches candidates and runs each through the state machine,
// returning aggregate counts even under partial failure. A feed fetch
// failure fails the whole batch.
func (p *Pipeline) ProcessBatch(ctx context.Context) (domain.IngestStats, error) {
	var stats domain.IngestStats

	candidates, err := p.source.FetchCandidates(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch candidates: %w", err)
	}
	p.info("batch fetched", "candidates", len(candidates))

	var relevant []domain.Regulation
	for _, cand := range candidates {
		reg, outcome, err := p.processCandidate(ctx, cand, &stats)
		if err != nil {
			p.error("candidate failed", "external_id", cand.ExternalID, "title", cand.Title, "error", err)
			continue
		}
		if outcome == outcomeRelevant {
			relevant = append(relevant, reg)
		}
	}

	p.info("batch complete",
		"processed", stats.Processed,
		"new", stats.New,
		"analyzed", stats.Analyzed,
		"relevant", stats.Relevant)

	if p.notifier != nil && len(relevant) > 0 {
		if err := p.notifier.PublishDigest(ctx, buildDigest(relevant)); err != nil {
			p.error("digest delivery failed", "error", err)
		}
	}

	return stats, nil
}

type candidateOutcome int

const (
	outcomeSkipped candidateOutcome = iota
	outcomeDone
	outcomeRelevant
)

func (p *Pipeline) processCandidate(ctx context.Context, cand domain.Candidate, stats *domain.IngestStats) (domain.Regulation, candidateOutcome, error) {
	var reg domain.Regulation

	exists, err := p.repo.ExistsByExternalID(ctx, cand.ExternalID)
	if err != nil {
		return reg, outcomeSkipped, fmt.Errorf("dedupe check: %w", err)
	}
	if exists {
		stats.Processed++
		p.debug("candidate already known", "external_id", cand.ExternalID)
		return reg, outcomeSkipped, nil
	}

	reg, err = p.repo.Upsert(ctx, cand)
	if err != nil {
		return reg, outcomeSkipped, fmt.Errorf("insert regulation: %w", err)
	}
	stats.Processed++
	stats.New++

	relevant, err := p.analyzeRegulation(ctx, &reg)
	if err != nil {
		return reg, outcomeSkipped, err
	}
	stats.Analyzed++

	if relevant {
		stats.Relevant++
		return reg, outcomeRelevant, nil
	}
	return reg, outcomeDone, nil
}

// analyzeRegulation runs relevance scoring and, above the threshold,
// the impact stage with persistence of the derived action items.
func (p *Pipeline) analyzeRegulation(ctx context.Context, reg *domain.Regulation) (bool, error) {
	if p.analyzer == nil {
		return false, fmt.Errorf("llm client is not configured")
	}

	result, err := p.analyzer.Relevance(ctx, *reg)
	if err != nil {
		return false, fmt.Errorf("relevance stage: %w", err)
	}

	if err := p.repo.UpdateRelevance(ctx, reg.ID, result.Score, result.Reasoning); err != nil {
		return false, fmt.Errorf("persist relevance: %w", err)
	}
	reg.RelevanceScore = &result.Score
	reg.RelevanceReasoning = &result.Reasoning

	if result.Score <= p.threshold {
		p.debug("below threshold, skipping impact stage",
			"external_id", reg.ExternalID, "score", result.Score, "threshold", p.threshold)
		return false, nil
	}

	fullAnalysis, payload, err := p.analyzer.Impact(ctx, *reg, result.Score)
	if err != nil {
		return false, fmt.Errorf("impact stage: %w", err)
	}

	if err := p.repo.UpdateImpact(ctx, reg.ID, fullAnalysis.ImpactLevel, payload); err != nil {
		return false, fmt.Errorf("persist impact: %w", err)
	}
	if err := p.repo.ReplaceActionItems(ctx, reg.ID, fullAnalysis.ActionItems); err != nil {
		return false, fmt.Errorf("replace action items: %w", err)
	}

	level := fullAnalysis.ImpactLevel
	reg.ImpactLevel = &level
	p.info("impact analysis stored",
		"external_id", reg.ExternalID,
		"score", result.Score,
		"impact_level", fullAnalysis.ImpactLevel,
		"action_items", len(fullAnalysis.ActionItems))
	return true, nil
}

// Reanalyze re-runs the relevance and impact sequence for one stored
// regulation, bypassing the already-analyzed shortcut. With refresh set,
// both cache entries are cleared first so the model is consulted again;
// otherwise a cache hit still short-circuits the call.
func (p *Pipeline) Reanalyze(ctx context.Context, id int64, refresh bool) (*domain.RegulationWithItems, error) {
	stored, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load regulation %d: %w", id, err)
	}
	if stored == nil {
		return nil, ErrNotFound
	}

	if refresh {
		if err := p.cache.Delete(ctx, stored.ExternalID); err != nil {
			return nil, fmt.Errorf("clear cache for %s: %w", stored.ExternalID, err)
		}
	}

	reg := stored.Regulation
	if _, err := p.analyzeRegulation(ctx, &reg); err != nil {
		return nil, err
	}

	return p.repo.GetByID(ctx, id)
}

func buildDigest(regs []domain.Regulation) string {
	var formatted string
	for _, reg := range regs {
		score := 0
		if reg.RelevanceScore != nil {
			score = *reg.RelevanceScore
		}
		level := domain.ImpactNone
		if reg.ImpactLevel != nil {
			level = *reg.ImpactLevel
		}
		formatted += fmt.Sprintf("- %s\nRelevance: %d/100, impact: %s\n%s\n\n",
			reg.Title, score, level, reg.SourceURL)
	}
	return formatted
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) error(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
