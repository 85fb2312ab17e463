package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/internal/procexec"
)

// Searcher performs one lookup and returns its raw text payload.
type Searcher interface {
	Search(ctx context.Context, query string, filter Filter) (string, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string, filter Filter) (string, error)

// Search calls f.
func (f SearcherFunc) Search(ctx context.Context, query string, filter Filter) (string, error) {
	return f(ctx, query, filter)
}

const maxQueryRunes = 100

// CommandConfig configures the psearch command line tool.
type CommandConfig struct {
	Binary  string `yaml:"binary" json:"binary" env:"BINARY"`
	Results int    `yaml:"results" json:"results" env:"RESULTS"`
	// Stream forwards stdout lines to the logger while the tool runs.
	Stream bool `yaml:"stream" json:"stream" env:"STREAM"`
}

// DefaultCommandConfig returns the settings used for parallel lookups.
func DefaultCommandConfig() CommandConfig {
	return CommandConfig{
		Binary:  "psearch",
		Results: 3,
	}
}

// CommandSearcher runs an external search tool. The tool's stdout is the
// payload; a non-zero exit is a failure.
type CommandSearcher struct {
	config CommandConfig
	runner *procexec.Runner
	logger *zap.Logger
}

// NewCommandSearcher creates a CommandSearcher. runner may be nil, in which
// case a runner without its own timeout is used and deadlines come from ctx.
func NewCommandSearcher(config CommandConfig, runner *procexec.Runner, logger *zap.Logger) *CommandSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Binary == "" {
		config.Binary = "psearch"
	}
	if config.Results <= 0 {
		config.Results = 3
	}
	if runner == nil {
		runner = procexec.NewRunner(0, logger)
	}
	return &CommandSearcher{
		config: config,
		runner: runner,
		logger: logger.With(zap.String("component", "psearch")),
	}
}

// Search runs the tool for query under filter.
func (s *CommandSearcher) Search(ctx context.Context, query string, filter Filter) (string, error) {
	args := BuildArgs(query, s.config.Results, filter)

	var sink procexec.LineSink
	if s.config.Stream {
		sink = func(line string) {
			s.logger.Debug("psearch output", zap.String("query", query), zap.String("line", line))
		}
	}

	res, err := s.runner.Stream(ctx, sink, s.config.Binary, args...)
	if err != nil {
		return "", fmt.Errorf("%s search: %w", s.config.Binary, err)
	}
	return res.Stdout, nil
}

// BuildArgs builds the psearch argument list. The query is cut to 100 runes.
// A recent filter of 30 days or less uses the tool's default recent window;
// longer windows are expressed in whole months.
func BuildArgs(query string, results int, filter Filter) []string {
	args := []string{"search", truncateRunes(query, maxQueryRunes), "-n", strconv.Itoa(results), "-c", "--json"}

	if filter.Recent {
		days := filter.Days()
		if days <= 30 {
			args = append(args, "-r", "-s")
		} else {
			months := days / 30
			if months < 1 {
				months = 1
			}
			args = append(args, "-r", "--months", strconv.Itoa(months), "-s")
		}
	}
	return args
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// clipRunes cuts s to n runes and appends "..." when anything was cut.
func clipRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 2, 64) + "s"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
