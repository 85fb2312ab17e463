package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedSearcher answers per query with a delay and optional error.
type scriptedSearcher struct {
	delays map[string]time.Duration
	errs   map[string]error

	mu      sync.Mutex
	running int
	peak    int
	calls   atomic.Int32
}

func (s *scriptedSearcher) Search(ctx context.Context, q string, f Filter) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.running++
	if s.running > s.peak {
		s.peak = s.running
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running--
		s.mu.Unlock()
	}()

	select {
	case <-time.After(s.delays[q]):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if err := s.errs[q]; err != nil {
		return "", err
	}
	return "result for " + q, nil
}

type countingFallback struct {
	calls   atomic.Int32
	text    string
	err     error
	queries []string
}

func (f *countingFallback) BroadSearch(ctx context.Context, queries []string) (string, error) {
	f.calls.Add(1)
	f.queries = queries
	return f.text, f.err
}

func newFanout(s Searcher, timeout time.Duration, cfg FanoutConfig, opts ...FanoutOption) *Fanout {
	return NewFanout(NewExecutor(s, timeout, zap.NewNop()), cfg, zap.NewNop(), opts...)
}

func TestFanout_AllSucceedOutOfOrder(t *testing.T) {
	s := &scriptedSearcher{delays: map[string]time.Duration{
		"a": 40 * time.Millisecond,
		"b": 20 * time.Millisecond,
		"c": 0,
	}}
	f := newFanout(s, time.Second, FanoutConfig{Workers: 3})

	out, stats := f.Run(context.Background(), []string{"a", "b", "c"}, Filter{})

	assert.Equal(t, 3, stats.TotalQueries)
	assert.Equal(t, 3, stats.Successful)
	assert.Equal(t, 0, stats.Failed)
	assert.False(t, stats.Fallback)
	assert.True(t, strings.HasPrefix(out, "Parallel Search Results (3/3 successful):"))
	for i, q := range []string{"a", "b", "c"} {
		assert.Contains(t, out, fmt.Sprintf("✅ Search %d: %s", i+1, q))
		assert.Contains(t, out, "result for "+q)
	}
	// completion order: c finishes first
	assert.Less(t, strings.Index(out, "Search 3: c"), strings.Index(out, "Search 1: a"))
}

func TestFanout_AllFailFallbackSucceeds(t *testing.T) {
	boom := errors.New("boom")
	s := &scriptedSearcher{errs: map[string]error{"a": boom, "b": boom, "c": boom}}
	fb := &countingFallback{text: "broad results"}
	rec := &fakeRecorder{}
	f := newFanout(s, time.Second, FanoutConfig{Workers: 3}, WithFallback(fb), WithFanoutRecorder(rec))

	out, stats := f.Run(context.Background(), []string{"a", "b", "c"}, Filter{})

	assert.Equal(t, int32(1), fb.calls.Load())
	assert.Equal(t, []string{"a", "b", "c"}, fb.queries)
	assert.Equal(t, 0, stats.Successful)
	assert.Equal(t, 3, stats.Failed)
	assert.True(t, stats.Fallback)
	assert.Len(t, stats.Failures, 3)
	assert.True(t, strings.HasPrefix(out, "WebSearch Fallback Results (all parallel searches failed):"))
	assert.Contains(t, out, "broad results")
	assert.Contains(t, out, "Original parallel search failures:")
	for i := 1; i <= 3; i++ {
		assert.Contains(t, out, fmt.Sprintf("❌ Search %d:", i))
	}
	assert.Equal(t, []bool{true}, rec.fallbacks)
}

func TestFanout_AllFailFallbackFails(t *testing.T) {
	boom := errors.New("boom")
	s := &scriptedSearcher{errs: map[string]error{"a": boom, "b": boom}}
	fb := &countingFallback{err: errors.New("agent unavailable")}
	f := newFanout(s, time.Second, FanoutConfig{}, WithFallback(fb))

	out, stats := f.Run(context.Background(), []string{"a", "b"}, Filter{})

	assert.Equal(t, int32(1), fb.calls.Load())
	assert.False(t, stats.Fallback)
	assert.Equal(t, 0, stats.Successful)
	assert.True(t, strings.HasPrefix(out, "Parallel Search Results (0/2 successful):"))
	assert.Contains(t, out, "Error: Search error: boom")
}

func TestFanout_AllFailNoFallback(t *testing.T) {
	boom := errors.New("boom")
	s := &scriptedSearcher{errs: map[string]error{"a": boom}}
	f := newFanout(s, time.Second, FanoutConfig{})

	out, stats := f.Run(context.Background(), []string{"a"}, Filter{})

	assert.False(t, stats.Fallback)
	assert.Contains(t, out, "0/1 successful")
}

func TestFanout_PartialFailureSkipsFallback(t *testing.T) {
	s := &scriptedSearcher{errs: map[string]error{"b": errors.New("nope")}}
	fb := &countingFallback{text: "unused"}
	f := newFanout(s, time.Second, FanoutConfig{}, WithFallback(fb))

	out, stats := f.Run(context.Background(), []string{"a", "b", "c"}, Filter{})

	assert.Equal(t, int32(0), fb.calls.Load())
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Failures, 1)
	assert.Equal(t, 2, stats.Failures[0].Index)
	assert.Equal(t, ReasonProcessError, stats.Failures[0].Reason)
	assert.Contains(t, out, "❌ Search 2: b")
}

func TestFanout_EmptyQueries(t *testing.T) {
	s := &scriptedSearcher{}
	f := newFanout(s, time.Second, FanoutConfig{}, WithFallback(&countingFallback{}))

	out, stats := f.Run(context.Background(), nil, Filter{})

	assert.Equal(t, "", out)
	assert.Equal(t, Stats{}, stats)
	assert.Equal(t, int32(0), s.calls.Load())
}

func TestFanout_RespectsWorkerCap(t *testing.T) {
	delays := map[string]time.Duration{}
	queries := make([]string, 8)
	for i := range queries {
		queries[i] = fmt.Sprintf("q%d", i)
		delays[queries[i]] = 10 * time.Millisecond
	}
	s := &scriptedSearcher{delays: delays}
	f := newFanout(s, time.Second, FanoutConfig{Workers: 2})

	_, stats := f.Run(context.Background(), queries, Filter{})

	assert.Equal(t, 8, stats.Successful)
	assert.LessOrEqual(t, s.peak, 2)
}

func TestFanout_TimeoutDoesNotCancelSiblings(t *testing.T) {
	s := &scriptedSearcher{delays: map[string]time.Duration{
		"slow": time.Second,
		"fast": 60 * time.Millisecond,
	}}
	f := newFanout(s, 30*time.Millisecond, FanoutConfig{Workers: 2})

	out, stats := f.Run(context.Background(), []string{"slow", "fast"}, Filter{})

	assert.Equal(t, 0, stats.Successful)
	require.Len(t, stats.Failures, 2)
	for _, fl := range stats.Failures {
		assert.Equal(t, ReasonTimeout, fl.Reason)
	}
	assert.Contains(t, out, "Search timed out")

	s2 := &scriptedSearcher{delays: map[string]time.Duration{"slow": time.Second}}
	f2 := newFanout(s2, 50*time.Millisecond, FanoutConfig{Workers: 2})
	_, stats2 := f2.Run(context.Background(), []string{"slow", "fast"}, Filter{})
	assert.Equal(t, 1, stats2.Successful)
	assert.Equal(t, 1, stats2.Failed)
}

func TestFanout_ClipsLongResults(t *testing.T) {
	long := strings.Repeat("x", 50)
	s := SearcherFunc(func(ctx context.Context, q string, f Filter) (string, error) {
		return long, nil
	})
	f := newFanout(s, time.Second, FanoutConfig{ResultLimit: 10})

	out, _ := f.Run(context.Background(), []string{"q"}, Filter{})

	assert.Contains(t, out, "Results:\n"+strings.Repeat("x", 10)+"...\n")
	assert.NotContains(t, out, strings.Repeat("x", 11))
}

func TestFanout_PassesFilter(t *testing.T) {
	var got atomic.Value
	s := SearcherFunc(func(ctx context.Context, q string, f Filter) (string, error) {
		got.Store(f)
		return "ok", nil
	})
	f := newFanout(s, time.Second, FanoutConfig{})
	want := Filter{Recent: true, Window: 24 * time.Hour}

	f.Run(context.Background(), []string{"q"}, want)

	assert.Equal(t, want, got.Load())
}
