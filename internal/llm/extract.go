package llm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ExtractJSON pulls the first top-level balanced-brace JSON object out of
// free-form model output. Fenced code blocks and surrounding prose are
// ignored because scanning starts at the first '{' and tracks brace depth
// with string/escape awareness, so nested objects and trailing text do
// not confuse it the way a greedy regex would.
func ExtractJSON(raw string) (json.RawMessage, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		ch := raw[i]

		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				candidate := raw[start : i+1]
				if !json.Valid([]byte(candidate)) {
					return nil, &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("extracted block is not valid JSON")}
				}
				return json.RawMessage(candidate), nil
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}

	return nil, &Error{Kind: KindInvalidResponse, Err: errors.New("no JSON object found in response")}
}
