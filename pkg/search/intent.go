package search

import (
	"strings"
)

type Strategy string

const (
	StrategyLiteral Strategy = "literal"
	StrategyRanked  Strategy = "ranked"
)

// DetermineStrategy picks a literal substring lookup for quoted, very short
// or code-like queries and BM25 ranking for everything else.
func DetermineStrategy(query string) Strategy {
	query = strings.TrimSpace(query)

	if len(query) >= 2 && strings.HasPrefix(query, `"`) && strings.HasSuffix(query, `"`) {
		return StrategyLiteral
	}

	// Structured separators: "user12", "15/03/24", "id=7".
	if strings.ContainsAny(query, "/:=") {
		return StrategyLiteral
	}

	if len([]rune(query)) <= 3 {
		return StrategyLiteral
	}

	return StrategyRanked
}
