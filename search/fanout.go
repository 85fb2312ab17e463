package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/internal/pool"
)

const (
	// DefaultWorkers is the fan-out concurrency cap.
	DefaultWorkers = 3
	// DefaultResultLimit clips each successful payload, in runes.
	DefaultResultLimit = 1000

	separator = "--------------------------------------------------"
)

// Fallback performs one broad lookup covering all queries.
type Fallback interface {
	BroadSearch(ctx context.Context, queries []string) (string, error)
}

// FallbackFunc adapts a function to Fallback.
type FallbackFunc func(ctx context.Context, queries []string) (string, error)

// BroadSearch calls f.
func (f FallbackFunc) BroadSearch(ctx context.Context, queries []string) (string, error) {
	return f(ctx, queries)
}

// FanoutConfig configures a Fanout.
type FanoutConfig struct {
	Workers     int `yaml:"workers" json:"workers" env:"WORKERS"`
	ResultLimit int `yaml:"result_limit" json:"result_limit" env:"RESULT_LIMIT"`
}

// DefaultFanoutConfig returns the defaults.
func DefaultFanoutConfig() FanoutConfig {
	return FanoutConfig{
		Workers:     DefaultWorkers,
		ResultLimit: DefaultResultLimit,
	}
}

// FanoutOption configures a Fanout.
type FanoutOption func(*Fanout)

// WithFallback sets the capability used when every task fails.
func WithFallback(fb Fallback) FanoutOption {
	return func(f *Fanout) {
		f.fallback = fb
	}
}

// WithFanoutRecorder sets the recorder for fallback metrics.
func WithFanoutRecorder(r TaskRecorder) FanoutOption {
	return func(f *Fanout) {
		if r != nil {
			f.recorder = r
		}
	}
}

// Fanout runs K lookups on a bounded worker pool and aggregates them into a
// single text block.
type Fanout struct {
	executor *Executor
	config   FanoutConfig
	fallback Fallback
	recorder TaskRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewFanout creates a Fanout over executor.
func NewFanout(executor *Executor, config FanoutConfig, logger *zap.Logger, opts ...FanoutOption) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Workers < 1 {
		config.Workers = DefaultWorkers
	}
	if config.ResultLimit <= 0 {
		config.ResultLimit = DefaultResultLimit
	}
	f := &Fanout{
		executor: executor,
		config:   config,
		recorder: nopRecorder{},
		logger:   logger.With(zap.String("component", "search_fanout")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run executes one task per query and blocks until every task has finished
// or timed out. It never fails: when all tasks fail the fallback is called
// exactly once, and when that fails too the failure summary is returned.
func (f *Fanout) Run(ctx context.Context, queries []string, filter Filter) (string, Stats) {
	if len(queries) == 0 {
		return "", Stats{}
	}

	start := f.now()
	outcomes := f.collect(ctx, queries, filter)
	elapsed := f.now().Sub(start)

	stats := Stats{TotalQueries: len(queries), Elapsed: elapsed}
	for _, o := range outcomes {
		if o.Success {
			stats.Successful++
			continue
		}
		stats.Failed++
		stats.Failures = append(stats.Failures, Failure{
			Index:  o.Task.Index,
			Query:  o.Task.Query,
			Reason: o.Reason,
			Detail: o.Text,
		})
	}

	f.logger.Info("parallel search finished",
		zap.Int("total", stats.TotalQueries),
		zap.Int("successful", stats.Successful),
		zap.Int("failed", stats.Failed),
		zap.Duration("elapsed", elapsed),
	)

	if stats.Successful == 0 && f.fallback != nil {
		f.logger.Warn("all parallel searches failed, using fallback")
		text, err := f.fallback.BroadSearch(ctx, queries)
		f.recorder.RecordSearchFallback(err == nil)
		if err == nil {
			stats.Fallback = true
			stats.Elapsed = f.now().Sub(start)
			return formatFallback(queries[0], text, stats.Elapsed, outcomes), stats
		}
		f.logger.Error("fallback search failed", zap.Error(err))
	}

	return formatOutcomes(outcomes, f.config.ResultLimit), stats
}

// collect runs the tasks and returns their outcomes in completion order.
func (f *Fanout) collect(ctx context.Context, queries []string, filter Filter) []Outcome {
	p := pool.New(pool.Config{
		MaxWorkers: f.config.Workers,
		QueueSize:  len(queries),
	})
	defer p.Close()

	results := make(chan Outcome, len(queries))
	// 排队由池子控制，任务本身仍受 ctx 约束
	gate := context.WithoutCancel(ctx)

	for i, q := range queries {
		task := Task{Index: i + 1, Query: q, Filter: filter}
		_, err := p.Go(gate, func(context.Context) error {
			results <- f.executor.Execute(ctx, task)
			return nil
		})
		if err != nil {
			results <- Outcome{
				Task:   task,
				Reason: ReasonProcessError,
				Text:   fmt.Sprintf("Search error: %v", err),
			}
		}
	}

	outcomes := make([]Outcome, 0, len(queries))
	for range queries {
		outcomes = append(outcomes, <-results)
	}
	return outcomes
}

func formatOutcomes(outcomes []Outcome, limit int) string {
	b := pool.Buffers.Get()
	defer pool.Buffers.Put(b)

	successful := 0
	for _, o := range outcomes {
		if o.Success {
			successful++
		}
	}

	fmt.Fprintf(b, "Parallel Search Results (%d/%d successful):\n\n", successful, len(outcomes))
	for _, o := range outcomes {
		status := "❌"
		if o.Success {
			status = "✅"
		}
		fmt.Fprintf(b, "%s Search %d: %s\n", status, o.Task.Index, o.Task.Query)
		fmt.Fprintf(b, "Time: %s\n", formatSeconds(o.Elapsed))
		if o.Success && o.Text != "" {
			fmt.Fprintf(b, "Results:\n%s\n", clipRunes(o.Text, limit))
		} else if o.Success {
			b.WriteString("Results:\n(empty)\n")
		} else {
			fmt.Fprintf(b, "Error: %s\n", o.Text)
		}
		b.WriteString(separator + "\n\n")
	}
	return b.String()
}

func formatFallback(mainQuery, text string, elapsed time.Duration, outcomes []Outcome) string {
	var sb strings.Builder
	sb.WriteString("WebSearch Fallback Results (all parallel searches failed):\n\n")
	fmt.Fprintf(&sb, "🌐 WebSearch Query: %s\n", mainQuery)
	fmt.Fprintf(&sb, "⏱️ Fallback execution time: %s\n", formatSeconds(elapsed))
	fmt.Fprintf(&sb, "📊 Results:\n%s\n", text)
	sb.WriteString(separator + "\n\n")
	sb.WriteString("Original parallel search failures:\n")
	for _, o := range outcomes {
		fmt.Fprintf(&sb, "❌ Search %d: %s - %s\n", o.Task.Index, o.Task.Query, oneLine(o.Text))
	}
	return sb.String()
}
