package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Class classifies the outcome of a single attempt.
type Class int

const (
	ClassSuccess Class = iota
	ClassRetryable
	ClassTerminal
)

func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassRetryable:
		return "retryable"
	case ClassTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Policy 定义重试策略配置
type Policy struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts" env:"MAX_ATTEMPTS"`    // 最大尝试次数（含首次）
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay" env:"INITIAL_DELAY"` // 首次重试前的延迟
	Multiplier   float64       `yaml:"multiplier" json:"multiplier" env:"MULTIPLIER"`          // 延迟倍增因子
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay" env:"MAX_DELAY"`             // 延迟上限（0 表示不限制）

	// OnRetry is called before each sleep with the failed attempt and the
	// delay about to be applied.
	OnRetry func(attempt Attempt, delay time.Duration) `yaml:"-" json:"-"`
}

// DefaultPolicy 返回默认的重试策略：3 次尝试，2s 起始延迟，倍增。
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		Multiplier:   2.0,
	}
}

// Attempt records one try of the operation.
type Attempt struct {
	Index   int           `json:"index"` // 1-based
	Class   Class         `json:"class"`
	Elapsed time.Duration `json:"elapsed"`
	Err     error         `json:"-"`
}

// Result is the final outcome of a retry loop. Callers decide how to
// surface a failure; Do never returns an error of its own.
type Result struct {
	OK       bool
	Attempts []Attempt
	Err      error
}

// Sleeps returns how many sleeps happened, which is the number of retryable
// failures that were followed by another attempt.
func (r Result) Sleeps() int {
	n := len(r.Attempts) - 1
	if n < 0 {
		return 0
	}
	return n
}

// Operation is a fallible unit of work.
type Operation func(ctx context.Context) error

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Retrier.
type Option func(*Retrier)

// WithSleeper replaces the real sleep, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(r *Retrier) {
		if s != nil {
			r.sleep = s
		}
	}
}

// Retrier runs an Operation under a Policy.
type Retrier struct {
	policy Policy
	logger *zap.Logger
	sleep  Sleeper
}

// New 创建指数退避重试器
func New(policy Policy, logger *zap.Logger, opts ...Option) *Retrier {
	// 参数校验
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.InitialDelay < 0 {
		policy.InitialDelay = 0
	}
	if policy.Multiplier < 1.0 {
		policy.Multiplier = 2.0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Retrier{
		policy: policy,
		logger: logger.With(zap.String("component", "retry")),
		sleep:  contextSleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the effective policy after validation.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs op until it succeeds, fails terminally, or MaxAttempts retryable
// failures have happened.
func (r *Retrier) Do(ctx context.Context, op Operation) Result {
	var res Result
	delay := r.policy.InitialDelay

	for i := 1; i <= r.policy.MaxAttempts; i++ {
		start := time.Now()
		err := op(ctx)
		attempt := Attempt{
			Index:   i,
			Class:   Classify(err),
			Elapsed: time.Since(start),
			Err:     err,
		}
		res.Attempts = append(res.Attempts, attempt)

		switch attempt.Class {
		case ClassSuccess:
			if i > 1 {
				r.logger.Info("retry succeeded", zap.Int("attempt", i))
			}
			res.OK = true
			res.Err = nil
			return res
		case ClassTerminal:
			r.logger.Debug("terminal failure, not retrying",
				zap.Int("attempt", i),
				zap.Error(err),
			)
			res.Err = err
			return res
		}

		res.Err = err
		if i == r.policy.MaxAttempts {
			break
		}

		r.logger.Debug("retrying",
			zap.Int("attempt", i),
			zap.Int("max_attempts", r.policy.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(attempt, delay)
		}

		if serr := r.sleep(ctx, delay); serr != nil {
			res.Err = fmt.Errorf("retry cancelled: %w", serr)
			return res
		}
		delay = r.nextDelay(delay)
	}

	r.logger.Warn("retry attempts exhausted",
		zap.Int("attempts", len(res.Attempts)),
		zap.Error(res.Err),
	)
	res.Err = fmt.Errorf("failed after %d attempts: %w", len(res.Attempts), res.Err)
	return res
}

func (r *Retrier) nextDelay(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * r.policy.Multiplier)
	if r.policy.MaxDelay > 0 && next > r.policy.MaxDelay {
		next = r.policy.MaxDelay
	}
	return next
}

// Delays returns the full sleep schedule of the policy, one entry per gap
// between attempts.
func (r *Retrier) Delays() []time.Duration {
	out := make([]time.Duration, 0, r.policy.MaxAttempts-1)
	d := r.policy.InitialDelay
	for i := 1; i < r.policy.MaxAttempts; i++ {
		out = append(out, d)
		d = r.nextDelay(d)
	}
	return out
}

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TerminalError marks an error that must not be retried.
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string {
	return e.Err.Error()
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// Terminal 将错误包装为终止性错误
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &TerminalError{Err: err}
}

// IsTerminal reports whether err was wrapped by Terminal.
func IsTerminal(err error) bool {
	var t *TerminalError
	return errors.As(err, &t)
}

// Classify maps an operation error to its Class.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassSuccess
	case IsTerminal(err):
		return ClassTerminal
	default:
		return ClassRetryable
	}
}
