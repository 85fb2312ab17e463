package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/agent"
	"github.com/BaSui01/askflow/llm"
	"github.com/BaSui01/askflow/report"
	"github.com/BaSui01/askflow/workflow"
)

// Config shapes the pipeline.
type Config struct {
	// MaxTurns bounds the answer loop; 1 gives the linear pipeline.
	MaxTurns       int           `yaml:"max_turns" json:"max_turns" env:"MAX_TURNS"`
	MaxPasses      int           `yaml:"max_passes" json:"max_passes" env:"MAX_PASSES"`
	RunTimeout     time.Duration `yaml:"run_timeout" json:"run_timeout" env:"RUN_TIMEOUT"`
	Notify         bool          `yaml:"notify" json:"notify" env:"NOTIFY"`
	ReviewMaxTurns int           `yaml:"review_max_turns" json:"review_max_turns" env:"REVIEW_MAX_TURNS"`
	WindowDays     int           `yaml:"window_days" json:"window_days" env:"WINDOW_DAYS"`
}

// DefaultConfig returns the linear pipeline without notification.
func DefaultConfig() Config {
	return Config{
		MaxTurns:       1,
		MaxPasses:      workflow.DefaultMaxPasses,
		RunTimeout:     30 * time.Minute,
		ReviewMaxTurns: 1,
		WindowDays:     DefaultWindowDays,
	}
}

// Deps are the collaborators of the steps. Sink may be nil, in which case
// reports are kept in state only. Deliverer is required when Notify is set.
type Deps struct {
	Generator llm.Generator
	Querier   agent.Querier
	Search    SearchRunner
	Sink      report.Sink
	Deliverer Deliverer
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Pipeline runs questions through the step graph.
type Pipeline struct {
	executor *workflow.Executor
	logger   *zap.Logger
}

// New wires the steps and builds the executor.
func New(cfg Config, deps Deps, logger *zap.Logger, opts ...workflow.Option) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case deps.Generator == nil:
		return nil, errors.New("pipeline: generator is required")
	case deps.Querier == nil:
		return nil, errors.New("pipeline: querier is required")
	case deps.Search == nil:
		return nil, errors.New("pipeline: search runner is required")
	case cfg.Notify && deps.Deliverer == nil:
		return nil, errors.New("pipeline: deliverer is required when notify is enabled")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if cfg.ReviewMaxTurns <= 0 {
		cfg.ReviewMaxTurns = 1
	}

	logger = logger.With(zap.String("component", "pipeline"))
	steps := workflow.Steps{
		Entry: &entryStep{clock: deps.Clock, windowDays: cfg.WindowDays},
		Search: &searchStep{
			queries: NewQueryGenerator(deps.Querier, logger),
			runner:  deps.Search,
			logger:  logger,
		},
		Answer: &answerStep{generator: deps.Generator, maxTurns: cfg.MaxTurns, clock: deps.Clock},
		Review: &reviewStep{querier: deps.Querier, maxTurns: cfg.ReviewMaxTurns, clock: deps.Clock},
		Report: &reportStep{sink: deps.Sink, clock: deps.Clock, logger: logger},
	}
	if cfg.Notify {
		steps.Notify = &notifyStep{deliverer: deps.Deliverer}
	}

	exec, err := workflow.NewExecutor(steps, workflow.Topology{
		Notify:     cfg.Notify,
		MaxTurns:   cfg.MaxTurns,
		MaxPasses:  cfg.MaxPasses,
		RunTimeout: cfg.RunTimeout,
	}, logger, opts...)
	if err != nil {
		return nil, err
	}
	return &Pipeline{executor: exec, logger: logger}, nil
}

// Run answers question and returns the final state.
func (p *Pipeline) Run(ctx context.Context, question string) (workflow.State, error) {
	return p.executor.Run(ctx, workflow.NewState(question))
}

// Executor exposes the underlying graph executor.
func (p *Pipeline) Executor() *workflow.Executor {
	return p.executor
}
