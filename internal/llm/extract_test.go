package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONFromFencedBlock(t *testing.T) {
	raw := "Here is my assessment:\n```json\n{\"score\": 77, \"reasoning\": \"ok\"}\n```\nLet me know if you need more."

	got, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"score": 77, "reasoning": "ok"}`, string(got))
}

func TestExtractJSONBareObject(t *testing.T) {
	got, err := ExtractJSON(`{"score": 12, "reasoning": "out of scope"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"score": 12, "reasoning": "out of scope"}`, string(got))
}

func TestExtractJSONNestedObjects(t *testing.T) {
	raw := `Analysis follows. {"summary": "x", "details": {"inner": {"deep": 1}}, "tail": "y"} End of message.`

	got, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary": "x", "details": {"inner": {"deep": 1}}, "tail": "y"}`, string(got))
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	raw := `{"reasoning": "uses } and { inside text", "score": 50}`

	got, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(got))
}

func TestExtractJSONEscapedQuotes(t *testing.T) {
	raw := `{"reasoning": "the \"annex\" changed", "score": 60}`

	got, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(got))
}

func TestExtractJSONNoObject(t *testing.T) {
	_, err := ExtractJSON("I could not produce a structured answer.")
	require.Error(t, err)
	assert.Equal(t, KindInvalidResponse, Kind(err))
	assert.False(t, IsRetryable(err))
}

func TestExtractJSONUnbalancedBraces(t *testing.T) {
	_, err := ExtractJSON(`{"score": 10, "reasoning": "cut off`)
	require.Error(t, err)
	assert.Equal(t, KindInvalidResponse, Kind(err))
}

func TestExtractJSONInvalidBody(t *testing.T) {
	_, err := ExtractJSON(`{score: ten}`)
	require.Error(t, err)
	assert.Equal(t, KindInvalidResponse, Kind(err))
}
