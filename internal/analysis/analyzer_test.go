package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regwatch/internal/domain"
	"regwatch/internal/llm"
)

type memCache struct {
	entries map[string]json.RawMessage
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]json.RawMessage)}
}

func cacheKey(externalID string, stage domain.CacheStage) string {
	return externalID + "/" + string(stage)
}

func (c *memCache) Get(_ context.Context, externalID string, stage domain.CacheStage) (json.RawMessage, bool, error) {
	payload, ok := c.entries[cacheKey(externalID, stage)]
	return payload, ok, nil
}

func (c *memCache) Put(_ context.Context, externalID string, stage domain.CacheStage, payload json.RawMessage) error {
	c.entries[cacheKey(externalID, stage)] = payload
	return nil
}

func (c *memCache) Delete(_ context.Context, externalID string) error {
	delete(c.entries, cacheKey(externalID, domain.StageRelevance))
	delete(c.entries, cacheKey(externalID, domain.StageFullAnalysis))
	return nil
}

type stubCompleter struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("stub exhausted")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func testRegulation() domain.Regulation {
	return domain.Regulation{
		ID:          1,
		Title:       "Chemical Safety Data Sheet Requirements Amendment",
		Description: "Updates to SDS requirements for industrial chemicals.",
		ExternalID:  "20231042",
	}
}

const validAnalysisJSON = `{
	"impact_level": "high",
	"executive_summary": "New SDS format mandated for all products.",
	"key_changes": ["16-section SDS format"],
	"affected_areas": ["Regulatory Affairs"],
	"compliance_deadline": "2024-06-01",
	"action_items": [
		{"department": "Regulatory Affairs", "action": "Revise SDS templates", "deadline": "2024-05-01", "priority": "high"}
	],
	"estimated_effort": "3 person-months",
	"financial_impact": "Moderate one-time cost",
	"risks_if_ignored": "Sales ban on non-compliant products"
}`

func TestRelevanceCallsModelOnCacheMiss(t *testing.T) {
	cache := newMemCache()
	completer := &stubCompleter{responses: []string{`Assessment: {"score": 77, "reasoning": "Directly regulates water treatment chemicals."}`}}
	analyzer := NewAnalyzer(cache, completer, nil)

	result, err := analyzer.Relevance(context.Background(), testRegulation())
	require.NoError(t, err)
	assert.Equal(t, 77, result.Score)
	assert.Equal(t, "Directly regulates water treatment chemicals.", result.Reasoning)
	assert.Equal(t, 1, completer.calls)

	// The extracted payload landed in the cache.
	cached, ok, err := cache.Get(context.Background(), "20231042", domain.StageRelevance)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"score": 77, "reasoning": "Directly regulates water treatment chemicals."}`, string(cached))

	stats := analyzer.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestRelevanceCacheHitSkipsModel(t *testing.T) {
	cache := newMemCache()
	require.NoError(t, cache.Put(context.Background(), "20231042", domain.StageRelevance,
		json.RawMessage(`{"score": 55, "reasoning": "cached verdict"}`)))

	completer := &stubCompleter{}
	analyzer := NewAnalyzer(cache, completer, nil)

	result, err := analyzer.Relevance(context.Background(), testRegulation())
	require.NoError(t, err)
	assert.Equal(t, 55, result.Score)
	assert.Zero(t, completer.calls)

	stats := analyzer.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func TestRelevanceRejectsOutOfRangeScore(t *testing.T) {
	cache := newMemCache()
	completer := &stubCompleter{responses: []string{`{"score": 140, "reasoning": "overshoot"}`}}
	analyzer := NewAnalyzer(cache, completer, nil)

	_, err := analyzer.Relevance(context.Background(), testRegulation())
	require.Error(t, err)
	assert.Equal(t, llm.KindInvalidResponse, llm.Kind(err))

	// Invalid output must not be cached.
	_, ok, _ := cache.Get(context.Background(), "20231042", domain.StageRelevance)
	assert.False(t, ok)
}

func TestRelevanceRejectsEmptyReasoning(t *testing.T) {
	completer := &stubCompleter{responses: []string{`{"score": 60, "reasoning": "  "}`}}
	analyzer := NewAnalyzer(newMemCache(), completer, nil)

	_, err := analyzer.Relevance(context.Background(), testRegulation())
	require.Error(t, err)
	assert.Equal(t, llm.KindInvalidResponse, llm.Kind(err))
}

func TestRelevancePropagatesCompleterError(t *testing.T) {
	wantErr := &llm.Error{Kind: llm.KindRateLimited, Err: errors.New("quota exceeded")}
	completer := &stubCompleter{err: wantErr}
	analyzer := NewAnalyzer(newMemCache(), completer, nil)

	_, err := analyzer.Relevance(context.Background(), testRegulation())
	require.Error(t, err)
	assert.Equal(t, llm.KindRateLimited, llm.Kind(err))
}

func TestImpactParsesAndCaches(t *testing.T) {
	cache := newMemCache()
	completer := &stubCompleter{responses: []string{"```json\n" + validAnalysisJSON + "\n```"}}
	analyzer := NewAnalyzer(cache, completer, nil)

	analysis, payload, err := analyzer.Impact(context.Background(), testRegulation(), 77)
	require.NoError(t, err)
	assert.Equal(t, domain.ImpactHigh, analysis.ImpactLevel)
	assert.Equal(t, "New SDS format mandated for all products.", analysis.ExecutiveSummary)
	require.Len(t, analysis.ActionItems, 1)
	assert.Equal(t, "Regulatory Affairs", analysis.ActionItems[0].Department)
	assert.JSONEq(t, validAnalysisJSON, string(payload))

	// The relevance score appears in the prompt sent to the model.
	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "77")

	_, ok, _ := cache.Get(context.Background(), "20231042", domain.StageFullAnalysis)
	assert.True(t, ok)
}

func TestImpactCacheHitSkipsModel(t *testing.T) {
	cache := newMemCache()
	require.NoError(t, cache.Put(context.Background(), "20231042", domain.StageFullAnalysis,
		json.RawMessage(validAnalysisJSON)))

	completer := &stubCompleter{}
	analyzer := NewAnalyzer(cache, completer, nil)

	analysis, payload, err := analyzer.Impact(context.Background(), testRegulation(), 77)
	require.NoError(t, err)
	assert.Equal(t, domain.ImpactHigh, analysis.ImpactLevel)
	assert.JSONEq(t, validAnalysisJSON, string(payload))
	assert.Zero(t, completer.calls)
}

func TestImpactRejectsMissingRequiredField(t *testing.T) {
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(validAnalysisJSON), &fields))
	delete(fields, "risks_if_ignored")
	truncated, err := json.Marshal(fields)
	require.NoError(t, err)

	completer := &stubCompleter{responses: []string{string(truncated)}}
	analyzer := NewAnalyzer(newMemCache(), completer, nil)

	_, _, err = analyzer.Impact(context.Background(), testRegulation(), 77)
	require.Error(t, err)
	assert.Equal(t, llm.KindInvalidResponse, llm.Kind(err))
	assert.Contains(t, err.Error(), "risks_if_ignored")
}

func TestImpactRejectsNoneLevel(t *testing.T) {
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(validAnalysisJSON), &fields))
	fields["impact_level"] = json.RawMessage(`"none"`)
	payload, err := json.Marshal(fields)
	require.NoError(t, err)

	completer := &stubCompleter{responses: []string{string(payload)}}
	analyzer := NewAnalyzer(newMemCache(), completer, nil)

	_, _, err = analyzer.Impact(context.Background(), testRegulation(), 77)
	require.Error(t, err)
	assert.Equal(t, llm.KindInvalidResponse, llm.Kind(err))
}

func TestCachePutOverwritesPreviousPayload(t *testing.T) {
	cache := newMemCache()
	ctx := context.Background()

	for i, score := range []int{30, 85} {
		payload := json.RawMessage(fmt.Sprintf(`{"score": %d, "reasoning": "pass %d"}`, score, i))
		require.NoError(t, cache.Put(ctx, "ext-1", domain.StageRelevance, payload))
	}

	cached, ok, err := cache.Get(ctx, "ext-1", domain.StageRelevance)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"score": 85, "reasoning": "pass 1"}`, string(cached))
}
