package pipeline

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/agent"
)

// QueryCount is the number of queries generated per question.
const QueryCount = 3

var queryLine = regexp.MustCompile(`(?mi)^\s*(?:\*\*)?query\s*\d+(?:\*\*)?\s*[:：]\s*(.+?)\s*$`)

// FallbackQueries returns the rule-based queries for question.
func FallbackQueries(question string) []string {
	return []string{
		question,
		question + " latest",
		question + " implementation",
	}
}

// ParseQueries extracts "Query N: ..." lines from text.
func ParseQueries(text string) []string {
	var out []string
	for _, m := range queryLine.FindAllStringSubmatch(text, -1) {
		q := strings.Trim(strings.TrimSpace(m[1]), "[]\"")
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}

// QueryGenerator asks the agent for diverse queries.
type QueryGenerator struct {
	querier agent.Querier
	logger  *zap.Logger
}

// NewQueryGenerator creates a QueryGenerator. querier may be nil, in which
// case the rule-based queries are always used.
func NewQueryGenerator(q agent.Querier, logger *zap.Logger) *QueryGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryGenerator{querier: q, logger: logger}
}

// Generate returns exactly QueryCount queries.
func (g *QueryGenerator) Generate(ctx context.Context, question string) []string {
	if g.querier == nil {
		return FallbackQueries(question)
	}

	text, err := g.querier.Query(ctx, queryPrompt(question), agent.Options{
		SystemPrompt: querySystemPrompt,
		MaxTurns:     1,
	})
	if err != nil {
		g.logger.Warn("query generation failed, using rule-based queries", zap.Error(err))
		return FallbackQueries(question)
	}

	queries := ParseQueries(text)
	if len(queries) < QueryCount {
		g.logger.Warn("agent returned too few queries, using rule-based queries",
			zap.Int("got", len(queries)))
		return FallbackQueries(question)
	}
	return queries[:QueryCount]
}
