package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/askflow/internal/ctxkeys"
	"github.com/BaSui01/askflow/types"
)

const tracerName = "github.com/BaSui01/askflow/workflow"

// ErrPassLimitExceeded is the cause when the entry step is reached more
// often than Topology.MaxPasses allows.
var ErrPassLimitExceeded = errors.New("pass limit exceeded")

// StepFailedError reports the step that aborted a run.
type StepFailedError struct {
	Step  StepName
	Cause error
}

func (e *StepFailedError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Cause)
}

func (e *StepFailedError) Unwrap() error {
	return e.Cause
}

// Is matches the STEP_FAILED code so types.IsErrorCode works on it.
func (e *StepFailedError) Is(target error) bool {
	t, ok := target.(*types.Error)
	return ok && t.Code == types.ErrStepFailed
}

// StepRecorder records step and run outcomes.
type StepRecorder interface {
	RecordStep(step string, status string, duration time.Duration)
	RecordRun(status string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordStep(string, string, time.Duration) {}
func (nopRecorder) RecordRun(string, time.Duration)          {}

// Option configures an Executor.
type Option func(*Executor)

// WithStepRecorder sets the metrics recorder.
func WithStepRecorder(r StepRecorder) Option {
	return func(e *Executor) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithRunID replaces the run ID generator.
func WithRunID(fn func() string) Option {
	return func(e *Executor) {
		if fn != nil {
			e.newRunID = fn
		}
	}
}

// Executor runs the fixed step graph.
type Executor struct {
	steps    map[StepName]Step
	edges    map[StepName]StepName
	order    []StepName
	topo     Topology
	router   Router
	recorder StepRecorder
	tracer   trace.Tracer
	newRunID func() string
	logger   *zap.Logger
}

// NewExecutor validates the steps and topology and builds the edge map.
func NewExecutor(steps Steps, topo Topology, logger *zap.Logger, opts ...Option) (*Executor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topo.MaxTurns < 1 {
		return nil, fmt.Errorf("topology: max turns must be at least 1, got %d", topo.MaxTurns)
	}
	if topo.MaxPasses <= 0 {
		topo.MaxPasses = DefaultMaxPasses
	}

	order := []StepName{StepEntry, StepSearch, StepAnswer, StepReview, StepReport}
	if topo.Notify {
		order = append(order, StepNotify)
	}

	all := steps.byName()
	bound := make(map[StepName]Step, len(order))
	for _, name := range order {
		s := all[name]
		if s == nil {
			return nil, fmt.Errorf("topology: step %q is required but not provided", name)
		}
		bound[name] = s
	}

	// answer 的出边由 Router 决定，这里记录的是 RouteReview 的目标
	edges := make(map[StepName]StepName, len(order))
	for i, name := range order {
		if i+1 < len(order) {
			edges[name] = order[i+1]
		} else {
			edges[name] = stepEnd
		}
	}

	router := topo.Router
	if router == nil {
		router = TurnRouter(topo.MaxTurns)
	}

	e := &Executor{
		steps:    bound,
		edges:    edges,
		order:    order,
		topo:     topo,
		router:   router,
		recorder: nopRecorder{},
		tracer:   otel.Tracer(tracerName),
		newRunID: uuid.NewString,
		logger:   logger.With(zap.String("component", "workflow")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Order returns the steps in graph order, excluding the loop edge.
func (e *Executor) Order() []StepName {
	return append([]StepName(nil), e.order...)
}

// Topology returns the effective topology.
func (e *Executor) Topology() Topology {
	return e.topo
}

// Run executes the graph from the entry step until the end node. On error
// the returned state is the last state reached before the failing step.
func (e *Executor) Run(ctx context.Context, initial State) (State, error) {
	runID := e.newRunID()
	logger := e.logger.With(zap.String("run_id", runID))
	start := time.Now()

	if e.topo.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.topo.RunTimeout)
		defer cancel()
	}

	ctx = ctxkeys.WithRunID(ctx, runID)
	ctx, span := e.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("max_turns", e.topo.MaxTurns),
		attribute.Bool("notify", e.topo.Notify),
	))
	defer span.End()

	logger.Info("workflow run started", zap.Int("max_turns", e.topo.MaxTurns))

	state, err := e.run(ctx, logger, initial.clone())

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("workflow run failed", zap.Error(err))
	} else {
		logger.Info("workflow run completed",
			zap.Int("turns", state.Turn),
			zap.Duration("duration", time.Since(start)),
		)
	}
	e.recorder.RecordRun(status, time.Since(start))
	return state, err
}

func (e *Executor) run(ctx context.Context, logger *zap.Logger, state State) (State, error) {
	current := StepEntry
	passes := 0

	for current != stepEnd {
		if err := ctx.Err(); err != nil {
			return state, &StepFailedError{Step: current, Cause: err}
		}

		if current == StepEntry {
			passes++
			if passes > e.topo.MaxPasses {
				return state, &StepFailedError{Step: StepEntry, Cause: ErrPassLimitExceeded}
			}
		}

		upd, err := e.runStep(ctx, logger, current, state)
		if err != nil {
			// 只有入口步骤的输入错误原样返回
			if current == StepEntry && types.IsErrorCode(err, types.ErrInvalidInput) {
				return state, err
			}
			return state, &StepFailedError{Step: current, Cause: err}
		}

		if current == StepEntry {
			upd.Turn = Ptr(state.Turn + 1)
		}
		state = state.Apply(upd)

		next := e.edges[current]
		if current == StepAnswer {
			route := e.router(state)
			logger.Debug("route decided",
				zap.String("route", route.String()),
				zap.Int("turn", state.Turn),
			)
			if route == RouteContinue {
				next = StepEntry
			} else {
				state = state.Apply(Update{Continue: Ptr(false)})
			}
		}
		current = next
	}

	return state, nil
}

func (e *Executor) runStep(ctx context.Context, logger *zap.Logger, name StepName, state State) (upd Update, err error) {
	ctx = ctxkeys.WithStep(ctx, string(name))
	ctx, span := e.tracer.Start(ctx, "workflow.step/"+string(name), trace.WithAttributes(
		attribute.String("step", string(name)),
		attribute.Int("turn", state.Turn),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
		d := time.Since(start)
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		e.recorder.RecordStep(string(name), status, d)
		logger.Debug("step finished",
			zap.String("step", string(name)),
			zap.String("status", status),
			zap.Duration("duration", d),
		)
	}()

	return e.steps[name].Run(ctx, state)
}
