package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingSleeper captures requested delays without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func (s *recordingSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}

func newTestRetrier(policy Policy) (*Retrier, *recordingSleeper) {
	s := &recordingSleeper{}
	return New(policy, zap.NewNop(), WithSleeper(s.sleep)), s
}

func TestRetrier_SuccessFirstAttempt(t *testing.T) {
	r, sleeper := newTestRetrier(DefaultPolicy())

	calls := 0
	res := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.True(t, res.OK)
	assert.NoError(t, res.Err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.recorded())
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, ClassSuccess, res.Attempts[0].Class)
}

func TestRetrier_TwoRetryableFailuresThenSuccess(t *testing.T) {
	r, sleeper := newTestRetrier(DefaultPolicy())

	calls := 0
	res := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("503 service unavailable")
		}
		return nil
	})

	assert.True(t, res.OK)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.recorded())
	assert.Equal(t, 2, res.Sleeps())

	classes := make([]Class, 0, len(res.Attempts))
	for _, a := range res.Attempts {
		classes = append(classes, a.Class)
	}
	assert.Equal(t, []Class{ClassRetryable, ClassRetryable, ClassSuccess}, classes)
}

func TestRetrier_TerminalFailureStopsImmediately(t *testing.T) {
	r, sleeper := newTestRetrier(DefaultPolicy())

	calls := 0
	res := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Terminal(errors.New("400 bad request"))
	})

	assert.False(t, res.OK)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.recorded())
	assert.True(t, IsTerminal(res.Err))
	assert.EqualError(t, res.Err, "400 bad request")
}

func TestRetrier_ExhaustsAttemptsWithoutTrailingSleep(t *testing.T) {
	r, sleeper := newTestRetrier(Policy{MaxAttempts: 3, InitialDelay: time.Second, Multiplier: 2})

	calls := 0
	res := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("connection refused")
	})

	assert.False(t, res.OK)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.recorded())
	assert.Contains(t, res.Err.Error(), "failed after 3 attempts")
	assert.Contains(t, res.Err.Error(), "connection refused")
}

func TestRetrier_RetryableThenTerminal(t *testing.T) {
	r, sleeper := newTestRetrier(DefaultPolicy())

	calls := 0
	res := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("timeout")
		}
		return Terminal(errors.New("404 not found"))
	})

	assert.False(t, res.OK)
	assert.Equal(t, 2, calls)
	assert.Len(t, sleeper.recorded(), 1)
	assert.Equal(t, ClassTerminal, res.Attempts[1].Class)
}

func TestRetrier_MaxDelayCap(t *testing.T) {
	r, _ := newTestRetrier(Policy{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     3 * time.Second,
	})

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, r.Delays())
}

func TestRetrier_ContextCancelledDuringSleep(t *testing.T) {
	r := New(Policy{MaxAttempts: 5, InitialDelay: time.Hour, Multiplier: 2}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	res := r.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("unavailable")
	})

	assert.False(t, res.OK)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Contains(t, res.Err.Error(), "retry cancelled")
}

func TestRetrier_OnRetryCallback(t *testing.T) {
	var seen []time.Duration
	policy := Policy{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		Multiplier:   2,
		OnRetry: func(a Attempt, d time.Duration) {
			seen = append(seen, d)
		},
	}
	r, _ := newTestRetrier(policy)

	r.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("again")
	})

	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, seen)
}

func TestNew_NormalizesPolicy(t *testing.T) {
	r := New(Policy{MaxAttempts: 0, InitialDelay: -time.Second, Multiplier: 0.5}, nil)

	p := r.Policy()
	assert.Equal(t, 1, p.MaxAttempts)
	assert.Equal(t, time.Duration(0), p.InitialDelay)
	assert.Equal(t, 2.0, p.Multiplier)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassSuccess, Classify(nil))
	assert.Equal(t, ClassTerminal, Classify(Terminal(errors.New("x"))))
	assert.Equal(t, ClassRetryable, Classify(errors.New("x")))
	assert.Nil(t, Terminal(nil))
	assert.Equal(t, "terminal", ClassTerminal.String())
}
