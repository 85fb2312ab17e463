package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/askflow/retry"
)

type webhookServer struct {
	*httptest.Server
	hits     atomic.Int32
	mu       sync.Mutex
	payloads []Payload
}

// newWebhookServer answers with statuses in order, repeating the last one.
func newWebhookServer(t *testing.T, statuses ...int) *webhookServer {
	t.Helper()
	ws := &webhookServer{}
	ws.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(ws.hits.Add(1))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p Payload
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&p)) {
			ws.mu.Lock()
			ws.payloads = append(ws.payloads, p)
			ws.mu.Unlock()
		}

		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(ws.Close)
	return ws
}

type sleepLog struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

type countingRecorder struct {
	mu       sync.Mutex
	attempts []string
	results  []string
}

func (r *countingRecorder) RecordDeliveryAttempt(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, outcome)
}

func (r *countingRecorder) RecordDelivery(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func testNotifier(url, prefix string, opts ...Option) (*Notifier, *sleepLog) {
	cfg := DefaultConfig()
	cfg.WebhookURL = url
	cfg.URLPrefix = prefix
	cfg.RateLimit = 0
	sl := &sleepLog{}
	opts = append(opts, WithRetryOptions(retry.WithSleeper(sl.sleep)))
	return New(cfg, zap.NewNop(), opts...), sl
}

func TestNotifier_DeliversOnFirstAttempt(t *testing.T) {
	ws := newWebhookServer(t, http.StatusOK)
	rec := &countingRecorder{}
	n, sl := testNotifier(ws.URL, ws.URL, WithRecorder(rec))

	res := n.Deliver(context.Background(), "short report", "reports/a.md", "What is Go?")

	assert.True(t, res.Delivered)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, sl.delays)
	require.Len(t, ws.payloads, 1)
	assert.Equal(t, "askflow", ws.payloads[0].Username)
	assert.Equal(t, ":memo:", ws.payloads[0].IconEmoji)
	assert.Contains(t, ws.payloads[0].Text, "short report")
	assert.Equal(t, []string{"success"}, rec.attempts)
	assert.Equal(t, []string{"delivered"}, rec.results)
}

func TestNotifier_RetriesServerErrorsWithDoublingDelay(t *testing.T) {
	ws := newWebhookServer(t, http.StatusInternalServerError, http.StatusBadGateway, http.StatusOK)
	n, sl := testNotifier(ws.URL, ws.URL)

	res := n.Deliver(context.Background(), "report", "loc", "q")

	assert.True(t, res.Delivered)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, int32(3), ws.hits.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sl.delays)
}

func TestNotifier_ClientErrorsAreTerminal(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			ws := newWebhookServer(t, status)
			rec := &countingRecorder{}
			n, sl := testNotifier(ws.URL, ws.URL, WithRecorder(rec))

			res := n.Deliver(context.Background(), "report", "loc", "q")

			assert.False(t, res.Delivered)
			assert.False(t, res.Skipped)
			assert.Equal(t, 1, res.Attempts)
			assert.Equal(t, status, res.StatusCode)
			assert.Empty(t, sl.delays)
			assert.Contains(t, res.Reason, "DELIVERY_TERMINAL")
			assert.Equal(t, []string{"terminal"}, rec.attempts)
			assert.Equal(t, []string{"failed"}, rec.results)
		})
	}
}

func TestNotifier_OtherStatusesAreRetryable(t *testing.T) {
	ws := newWebhookServer(t, http.StatusTooManyRequests)
	n, sl := testNotifier(ws.URL, ws.URL)

	res := n.Deliver(context.Background(), "report", "loc", "q")

	assert.False(t, res.Delivered)
	assert.Equal(t, 3, res.Attempts)
	assert.Len(t, sl.delays, 2)
	assert.Contains(t, res.Reason, "failed after 3 attempts")
}

func TestNotifier_ConnectionErrorIsRetryable(t *testing.T) {
	ws := newWebhookServer(t, http.StatusOK)
	url := ws.URL
	ws.Close()
	n, sl := testNotifier(url, url)

	res := n.Deliver(context.Background(), "report", "loc", "q")

	assert.False(t, res.Delivered)
	assert.Equal(t, 3, res.Attempts)
	assert.Len(t, sl.delays, 2)
}

func TestNotifier_InvalidURLSkipsWithoutRetrier(t *testing.T) {
	ws := newWebhookServer(t, http.StatusOK)
	rec := &countingRecorder{}
	n, sl := testNotifier(ws.URL, "https://hooks.slack.com/", WithRecorder(rec))

	res := n.Deliver(context.Background(), "report", "loc", "q")

	assert.True(t, res.Skipped)
	assert.False(t, res.Delivered)
	assert.Equal(t, 0, res.Attempts)
	assert.Contains(t, res.Reason, "invalid webhook URL format")
	assert.Equal(t, int32(0), ws.hits.Load())
	assert.Empty(t, sl.delays)
	assert.Empty(t, rec.attempts)
	assert.Equal(t, []string{"skipped"}, rec.results)
}

func TestNotifier_MissingURLSkips(t *testing.T) {
	n, _ := testNotifier("", "https://hooks.slack.com/")

	res := n.Deliver(context.Background(), "report", "loc", "q")

	assert.True(t, res.Skipped)
	assert.Equal(t, "webhook URL not configured", res.Reason)
}

func TestNotifier_EmptyReportSkips(t *testing.T) {
	ws := newWebhookServer(t, http.StatusOK)
	n, _ := testNotifier(ws.URL, ws.URL)

	res := n.Deliver(context.Background(), "", "loc", "q")

	assert.True(t, res.Skipped)
	assert.Equal(t, int32(0), ws.hits.Load())
}

func TestNotifier_LargeReportSendsSummary(t *testing.T) {
	ws := newWebhookServer(t, http.StatusOK)
	n, _ := testNotifier(ws.URL, ws.URL)
	report := strings.Repeat("語", 5000)

	res := n.Deliver(context.Background(), report, "reports/big.md", "Big question")

	require.True(t, res.Delivered)
	assert.True(t, res.Summary)
	require.Len(t, ws.payloads, 1)
	text := ws.payloads[0].Text
	assert.NotContains(t, text, report)
	assert.Contains(t, text, "Big question")
	assert.Contains(t, text, "reports/big.md")
	assert.Contains(t, text, "too large")
}

func TestNotifier_SmallReportSendsFullText(t *testing.T) {
	ws := newWebhookServer(t, http.StatusOK)
	n, _ := testNotifier(ws.URL, ws.URL)
	report := strings.Repeat("a", 500)

	res := n.Deliver(context.Background(), report, "reports/small.md", "Small question")

	require.True(t, res.Delivered)
	assert.False(t, res.Summary)
	assert.Contains(t, ws.payloads[0].Text, "```\n"+report+"\n```")
}

func TestNotifier_ContextCancelledIsTerminal(t *testing.T) {
	ws := newWebhookServer(t, http.StatusOK)
	n, sl := testNotifier(ws.URL, ws.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := n.Deliver(ctx, "report", "loc", "q")

	assert.False(t, res.Delivered)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, sl.delays)
}

func TestNew_AppliesDefaults(t *testing.T) {
	n := New(Config{}, nil)

	cfg := n.Config()
	assert.Equal(t, "https://hooks.slack.com/", cfg.URLPrefix)
	assert.Equal(t, 3000, cfg.SizeThreshold)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}
