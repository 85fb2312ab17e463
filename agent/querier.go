package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/internal/procexec"
	"github.com/BaSui01/askflow/types"
)

// Options controls a single query.
type Options struct {
	SystemPrompt string
	MaxTurns     int
	AllowedTools []string
}

// Querier sends one prompt to an agentic capability and returns its text.
type Querier interface {
	Query(ctx context.Context, prompt string, opts Options) (string, error)
}

// QuerierFunc adapts a function to Querier.
type QuerierFunc func(ctx context.Context, prompt string, opts Options) (string, error)

// Query calls f.
func (f QuerierFunc) Query(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// CLIConfig configures the agent command line tool.
type CLIConfig struct {
	Binary       string        `yaml:"binary" json:"binary" env:"BINARY"`
	MaxTurns     int           `yaml:"max_turns" json:"max_turns" env:"MAX_TURNS"`
	AllowedTools []string      `yaml:"allowed_tools" json:"allowed_tools" env:"ALLOWED_TOOLS"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
}

// DefaultCLIConfig returns the default CLI settings.
func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		Binary:       "claude",
		MaxTurns:     1,
		AllowedTools: []string{"WebSearch"},
		Timeout:      5 * time.Minute,
	}
}

// CLIQuerier runs the agent CLI once per query.
type CLIQuerier struct {
	config CLIConfig
	runner *procexec.Runner
	logger *zap.Logger
}

// NewCLIQuerier creates a CLIQuerier. runner may be nil.
func NewCLIQuerier(config CLIConfig, runner *procexec.Runner, logger *zap.Logger) *CLIQuerier {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultCLIConfig()
	if config.Binary == "" {
		config.Binary = def.Binary
	}
	if config.MaxTurns <= 0 {
		config.MaxTurns = def.MaxTurns
	}
	if runner == nil {
		runner = procexec.NewRunner(config.Timeout, logger)
	}
	return &CLIQuerier{
		config: config,
		runner: runner,
		logger: logger.With(zap.String("component", "agent_cli")),
	}
}

// Args returns the command line for prompt under opts.
func (q *CLIQuerier) Args(prompt string, opts Options) []string {
	turns := opts.MaxTurns
	if turns <= 0 {
		turns = q.config.MaxTurns
	}
	tools := opts.AllowedTools
	if len(tools) == 0 {
		tools = q.config.AllowedTools
	}

	args := []string{
		"-p", prompt,
		"--output-format", "stream-json",
		"--verbose",
		"--max-turns", strconv.Itoa(turns),
	}
	if opts.SystemPrompt != "" {
		args = append(args, "--system-prompt", opts.SystemPrompt)
	}
	if len(tools) > 0 {
		args = append(args, "--allowedTools", strings.Join(tools, ","))
	}
	return args
}

// Query runs the CLI and collects its streamed output.
func (q *CLIQuerier) Query(ctx context.Context, prompt string, opts Options) (string, error) {
	start := time.Now()
	acc := newAccumulator(q.logger)

	res, err := q.runner.Stream(ctx, acc.consume, q.config.Binary, q.Args(prompt, opts)...)
	if err != nil {
		return "", q.mapError(err)
	}
	text, err := acc.text()
	if err != nil {
		return "", err
	}

	q.logger.Debug("agent query completed",
		zap.Int("messages", acc.messages),
		zap.Int("content_runes", len([]rune(text))),
		zap.Duration("duration", time.Since(start)),
		zap.Int("exit_code", res.ExitCode),
	)
	return text, nil
}

func (q *CLIQuerier) mapError(err error) error {
	switch {
	case procexec.IsTimeout(err):
		return types.NewTimeoutError("agent cli timed out").WithCause(err)
	case errors.Is(err, context.Canceled):
		return err
	}
	if exit, ok := procexec.IsExit(err); ok {
		msg := fmt.Sprintf("agent cli exited with code %d", exit.Code)
		if s := strings.TrimSpace(exit.Stderr); s != "" {
			msg += ": " + s
		}
		return types.NewUpstreamError(msg, 0).WithRetryable(false).WithCause(err)
	}
	return types.NewUpstreamError("agent cli failed", 0).WithRetryable(false).WithCause(err)
}
