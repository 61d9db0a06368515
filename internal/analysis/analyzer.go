package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"regwatch/internal/domain"
	"regwatch/internal/llm"
	"regwatch/internal/ports"
)

// Analyzer runs the two LLM-backed analysis stages with cache-then-call
// semantics. The cache is the idempotency and cost-control mechanism: a
// hit short-circuits all model and validation work for that stage.
type Analyzer struct {
	cache  ports.AnalysisCache
	llm    ports.Completer
	logger *slog.Logger

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// CacheStats carries process-local hit/miss counters for the health
// endpoint.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// NewAnalyzer wires the cache gateway and the completion client.
func NewAnalyzer(cache ports.AnalysisCache, completer ports.Completer, logger *slog.Logger) *Analyzer {
	return &Analyzer{cache: cache, llm: completer, logger: logger}
}

// Stats snapshots the cache counters.
func (a *Analyzer) Stats() CacheStats {
	return CacheStats{Hits: a.cacheHits.Load(), Misses: a.cacheMisses.Load()}
}

// Relevance scores a regulation 0-100 against the company profile.
// Validation and exhausted-retry errors propagate to the caller.
func (a *Analyzer) Relevance(ctx context.Context, reg domain.Regulation) (domain.RelevanceResult, error) {
	var result domain.RelevanceResult

	cached, ok, err := a.cache.Get(ctx, reg.ExternalID, domain.StageRelevance)
	if err != nil {
		return result, fmt.Errorf("cache lookup: %w", err)
	}
	if ok {
		a.cacheHits.Add(1)
		a.debug("cache hit", "external_id", reg.ExternalID, "stage", domain.StageRelevance)
		if err := json.Unmarshal(cached, &result); err != nil {
			return result, fmt.Errorf("decode cached relevance: %w", err)
		}
		return result, nil
	}
	a.cacheMisses.Add(1)

	raw, err := a.llm.Complete(ctx, relevancePrompt(reg))
	if err != nil {
		return result, fmt.Errorf("relevance completion for %s: %w", reg.ExternalID, err)
	}

	payload, err := llm.ExtractJSON(raw)
	if err != nil {
		return result, fmt.Errorf("relevance extraction for %s: %w", reg.ExternalID, err)
	}

	if err := json.Unmarshal(payload, &result); err != nil {
		return result, &llm.Error{Kind: llm.KindInvalidResponse, Err: fmt.Errorf("decode relevance: %w", err)}
	}
	if result.Score < 0 || result.Score > 100 {
		return result, &llm.Error{Kind: llm.KindInvalidResponse, Err: fmt.Errorf("score %d out of range", result.Score)}
	}
	if strings.TrimSpace(result.Reasoning) == "" {
		return result, &llm.Error{Kind: llm.KindInvalidResponse, Err: fmt.Errorf("empty reasoning")}
	}

	if err := a.cache.Put(ctx, reg.ExternalID, domain.StageRelevance, payload); err != nil {
		return result, fmt.Errorf("cache relevance: %w", err)
	}

	return result, nil
}

// requiredAnalysisFields must all be present in the impact payload; the
// company-specific considerations field stays optional.
var requiredAnalysisFields = []string{
	"impact_level",
	"executive_summary",
	"key_changes",
	"affected_areas",
	"compliance_deadline",
	"action_items",
	"estimated_effort",
	"financial_impact",
	"risks_if_ignored",
}

// Impact produces the full structured impact analysis. Callers invoke it
// only for regulations whose relevance score exceeds the threshold.
func (a *Analyzer) Impact(ctx context.Context, reg domain.Regulation, relevanceScore int) (domain.FullAnalysis, json.RawMessage, error) {
	var analysis domain.FullAnalysis

	cached, ok, err := a.cache.Get(ctx, reg.ExternalID, domain.StageFullAnalysis)
	if err != nil {
		return analysis, nil, fmt.Errorf("cache lookup: %w", err)
	}
	if ok {
		a.cacheHits.Add(1)
		a.debug("cache hit", "external_id", reg.ExternalID, "stage", domain.StageFullAnalysis)
		if err := json.Unmarshal(cached, &analysis); err != nil {
			return analysis, nil, fmt.Errorf("decode cached analysis: %w", err)
		}
		return analysis, cached, nil
	}
	a.cacheMisses.Add(1)

	raw, err := a.llm.Complete(ctx, impactPrompt(reg, relevanceScore))
	if err != nil {
		return analysis, nil, fmt.Errorf("impact completion for %s: %w", reg.ExternalID, err)
	}

	payload, err := llm.ExtractJSON(raw)
	if err != nil {
		return analysis, nil, fmt.Errorf("impact extraction for %s: %w", reg.ExternalID, err)
	}

	if err := validateAnalysisFields(payload); err != nil {
		return analysis, nil, err
	}

	if err := json.Unmarshal(payload, &analysis); err != nil {
		return analysis, nil, &llm.Error{Kind: llm.KindInvalidResponse, Err: fmt.Errorf("decode analysis: %w", err)}
	}
	if !analysis.ImpactLevel.Valid() || analysis.ImpactLevel == domain.ImpactNone {
		return analysis, nil, &llm.Error{Kind: llm.KindInvalidResponse, Err: fmt.Errorf("impact level %q not allowed", analysis.ImpactLevel)}
	}

	if err := a.cache.Put(ctx, reg.ExternalID, domain.StageFullAnalysis, payload); err != nil {
		return analysis, nil, fmt.Errorf("cache analysis: %w", err)
	}

	return analysis, payload, nil
}

func validateAnalysisFields(payload json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return &llm.Error{Kind: llm.KindInvalidResponse, Err: fmt.Errorf("analysis is not an object: %w", err)}
	}
	for _, name := range requiredAnalysisFields {
		if _, ok := fields[name]; !ok {
			return &llm.Error{Kind: llm.KindInvalidResponse, Err: fmt.Errorf("missing required field %s", name)}
		}
	}
	return nil
}

func (a *Analyzer) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
