package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/internal/procexec"
)

// DefaultTaskTimeout bounds a single lookup.
const DefaultTaskTimeout = 120 * time.Second

// Outcome labels used for metrics.
const (
	OutcomeSuccess = "success"
)

// TaskRecorder records per-task and fallback results.
type TaskRecorder interface {
	RecordSearchTask(outcome string, duration time.Duration)
	RecordSearchFallback(success bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordSearchTask(string, time.Duration) {}
func (nopRecorder) RecordSearchFallback(bool)              {}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRecorder sets the metrics recorder.
func WithRecorder(r TaskRecorder) ExecutorOption {
	return func(e *Executor) {
		if r != nil {
			e.recorder = r
		}
	}
}

// Executor runs one lookup under its own timeout and classifies the result.
type Executor struct {
	searcher Searcher
	timeout  time.Duration
	recorder TaskRecorder
	logger   *zap.Logger
}

// NewExecutor creates an Executor. A non-positive timeout means
// DefaultTaskTimeout.
func NewExecutor(searcher Searcher, timeout time.Duration, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	e := &Executor{
		searcher: searcher,
		timeout:  timeout,
		recorder: nopRecorder{},
		logger:   logger.With(zap.String("component", "search_executor")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeout returns the per-task timeout.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

type searchResult struct {
	text string
	err  error
}

// Execute runs task and never returns an error; failures are carried in the
// Outcome. The call returns no later than the task timeout even if the
// Searcher ignores its context.
func (e *Executor) Execute(ctx context.Context, task Task) Outcome {
	start := time.Now()
	tctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan searchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- searchResult{err: fmt.Errorf("search panicked: %v", r)}
			}
		}()
		text, err := e.searcher.Search(tctx, task.Query, task.Filter)
		done <- searchResult{text: text, err: err}
	}()

	var res searchResult
	select {
	case res = <-done:
	case <-tctx.Done():
		res = searchResult{err: tctx.Err()}
	}

	out := Outcome{Task: task, Elapsed: time.Since(start)}
	if res.err == nil {
		out.Success = true
		out.Text = res.text
		e.recorder.RecordSearchTask(OutcomeSuccess, out.Elapsed)
		e.logger.Debug("search completed",
			zap.Int("index", task.Index),
			zap.Duration("elapsed", out.Elapsed),
		)
		return out
	}

	out.Reason = classify(tctx, res.err)
	switch out.Reason {
	case ReasonTimeout:
		out.Text = "Search timed out"
	case ReasonNonZeroExit:
		exitErr, _ := procexec.IsExit(res.err)
		out.Text = "Search failed: " + exitErr.Stderr
	default:
		out.Text = "Search error: " + res.err.Error()
	}
	e.recorder.RecordSearchTask(string(out.Reason), out.Elapsed)
	e.logger.Warn("search failed",
		zap.Int("index", task.Index),
		zap.String("query", task.Query),
		zap.String("reason", string(out.Reason)),
		zap.Duration("elapsed", out.Elapsed),
		zap.Error(res.err),
	)
	return out
}

func classify(tctx context.Context, err error) FailureReason {
	switch {
	case procexec.IsTimeout(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(tctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	}
	if _, ok := procexec.IsExit(err); ok {
		return ReasonNonZeroExit
	}
	return ReasonProcessError
}
