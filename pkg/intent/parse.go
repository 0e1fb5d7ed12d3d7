package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"rolplay-assistant-be/pkg/llm"
)

// parseResponse extracts the first JSON object from raw model output and
// turns it into an Intent. Every failure wraps llm.ErrInvalidOutput.
func parseResponse(raw string) (Intent, error) {
	block := extractJSONBlock(stripCodeFences(raw))
	if block == "" {
		return Intent{}, fmt.Errorf("%w: no JSON object found in response", llm.ErrInvalidOutput)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(block), &doc); err != nil {
		return Intent{}, fmt.Errorf("%w: %v", llm.ErrInvalidOutput, err)
	}
	if err := validateResponse(doc); err != nil {
		return Intent{}, fmt.Errorf("%w: %v", llm.ErrInvalidOutput, err)
	}

	in := Intent{}
	in.RequiresData, _ = doc["requires_data"].(bool)
	in.UseContext, _ = doc["use_context"].(bool)
	if qt, ok := doc["query_type"].(string); ok {
		in.QueryType = QueryType(strings.TrimSpace(qt))
	}
	if params, ok := doc["parameters"].(map[string]interface{}); ok {
		in.Parameters = fromMap(params)
	}
	if !in.RequiresData {
		in.QueryType = Conversation
	}
	return in, nil
}

// stripCodeFences removes markdown fence lines, keeping their content.
func stripCodeFences(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// extractJSONBlock finds the first balanced { ... } block in the text.
func extractJSONBlock(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
