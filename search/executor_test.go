package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/BaSui01/askflow/internal/procexec"
)

type recordedTask struct {
	outcome string
	elapsed time.Duration
}

type fakeRecorder struct {
	mu        sync.Mutex
	tasks     []recordedTask
	fallbacks []bool
}

func (r *fakeRecorder) RecordSearchTask(outcome string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, recordedTask{outcome, d})
}

func (r *fakeRecorder) RecordSearchFallback(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, success)
}

func (r *fakeRecorder) outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.outcome)
	}
	return out
}

func TestExecutor_Success(t *testing.T) {
	rec := &fakeRecorder{}
	e := NewExecutor(SearcherFunc(func(ctx context.Context, q string, f Filter) (string, error) {
		return "payload for " + q, nil
	}), time.Second, zap.NewNop(), WithRecorder(rec))

	out := e.Execute(context.Background(), Task{Index: 2, Query: "q"})

	assert.True(t, out.Success)
	assert.Equal(t, "payload for q", out.Text)
	assert.Equal(t, ReasonNone, out.Reason)
	assert.Equal(t, 2, out.Task.Index)
	assert.Equal(t, []string{OutcomeSuccess}, rec.outcomes())
}

func TestExecutor_TimeoutEvenWhenSearcherIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	e := NewExecutor(SearcherFunc(func(ctx context.Context, q string, f Filter) (string, error) {
		<-release
		return "late", nil
	}), 30*time.Millisecond, nil)

	start := time.Now()
	out := e.Execute(context.Background(), Task{Index: 1, Query: "slow"})

	assert.False(t, out.Success)
	assert.Equal(t, ReasonTimeout, out.Reason)
	assert.Equal(t, "Search timed out", out.Text)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecutor_ProcessTimeout(t *testing.T) {
	e := NewExecutor(SearcherFunc(func(ctx context.Context, q string, f Filter) (string, error) {
		return "", procexec.ErrTimeout
	}), time.Second, nil)

	out := e.Execute(context.Background(), Task{Index: 1, Query: "q"})

	assert.Equal(t, ReasonTimeout, out.Reason)
}

func TestExecutor_NonZeroExit(t *testing.T) {
	e := NewExecutor(SearcherFunc(func(ctx context.Context, q string, f Filter) (string, error) {
		return "", &procexec.ExitError{Code: 2, Stderr: "bad flag"}
	}), time.Second, nil)

	out := e.Execute(context.Background(), Task{Index: 1, Query: "q"})

	assert.False(t, out.Success)
	assert.Equal(t, ReasonNonZeroExit, out.Reason)
	assert.Equal(t, "Search failed: bad flag", out.Text)
}

func TestExecutor_ProcessError(t *testing.T) {
	e := NewExecutor(SearcherFunc(func(ctx context.Context, q string, f Filter) (string, error) {
		return "", errors.New("exec: not found")
	}), time.Second, nil)

	out := e.Execute(context.Background(), Task{Index: 1, Query: "q"})

	assert.Equal(t, ReasonProcessError, out.Reason)
	assert.Equal(t, "Search error: exec: not found", out.Text)
}

func TestExecutor_PanicIsProcessError(t *testing.T) {
	e := NewExecutor(SearcherFunc(func(ctx context.Context, q string, f Filter) (string, error) {
		panic("boom")
	}), time.Second, nil)

	out := e.Execute(context.Background(), Task{Index: 1, Query: "q"})

	assert.Equal(t, ReasonProcessError, out.Reason)
	assert.Contains(t, out.Text, "boom")
}

func TestNewExecutor_DefaultTimeout(t *testing.T) {
	e := NewExecutor(SearcherFunc(nil), 0, nil)
	assert.Equal(t, DefaultTaskTimeout, e.Timeout())
}
