package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// WebSearchMaxTurns is the turn budget for a fallback lookup.
const WebSearchMaxTurns = 3

const webSearchSystemPrompt = "You are an information retrieval specialist. Use the WebSearch tool to find current, accurate information about the given query and summarize the results."

// WebSearchFallback asks the agent to search the web for the main query.
// It satisfies search.Fallback.
type WebSearchFallback struct {
	querier Querier
	logger  *zap.Logger
}

// NewWebSearchFallback creates a WebSearchFallback.
func NewWebSearchFallback(q Querier, logger *zap.Logger) *WebSearchFallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSearchFallback{querier: q, logger: logger.With(zap.String("component", "websearch_fallback"))}
}

// BroadSearch searches for the first query.
func (f *WebSearchFallback) BroadSearch(ctx context.Context, queries []string) (string, error) {
	if len(queries) == 0 {
		return "", errors.New("no queries for fallback search")
	}
	main := queries[0]
	f.logger.Info("running websearch fallback", zap.String("query", main))

	prompt := fmt.Sprintf(`Search the web for up-to-date information about the following query and summarize the results.

Query: %s

Requirements:
- Look for the most recent information
- Gather information from multiple sources
- Prefer reliable sources`, main)

	return f.querier.Query(ctx, prompt, Options{
		SystemPrompt: webSearchSystemPrompt,
		MaxTurns:     WebSearchMaxTurns,
		AllowedTools: []string{"WebSearch"},
	})
}
