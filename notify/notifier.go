package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/askflow/internal/tlsutil"
	"github.com/BaSui01/askflow/retry"
	"github.com/BaSui01/askflow/types"
)

// Config configures webhook delivery.
type Config struct {
	WebhookURL     string        `yaml:"webhook_url" json:"webhook_url" env:"WEBHOOK_URL"`
	URLPrefix      string        `yaml:"url_prefix" json:"url_prefix" env:"URL_PREFIX"`
	Username       string        `yaml:"username" json:"username" env:"USERNAME"`
	IconEmoji      string        `yaml:"icon_emoji" json:"icon_emoji" env:"ICON_EMOJI"`
	SizeThreshold  int           `yaml:"size_threshold" json:"size_threshold" env:"SIZE_THRESHOLD"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" env:"REQUEST_TIMEOUT"`
	// RateLimit is messages per second; 0 disables limiting.
	RateLimit float64      `yaml:"rate_limit" json:"rate_limit" env:"RATE_LIMIT"`
	RateBurst int          `yaml:"rate_burst" json:"rate_burst" env:"RATE_BURST"`
	Retry     retry.Policy `yaml:"retry" json:"retry" env:"RETRY"`
}

// DefaultConfig returns the delivery defaults.
func DefaultConfig() Config {
	return Config{
		URLPrefix:      "https://hooks.slack.com/",
		Username:       "askflow",
		IconEmoji:      ":memo:",
		SizeThreshold:  3000,
		RequestTimeout: 30 * time.Second,
		RateLimit:      1,
		RateBurst:      1,
		Retry:          retry.DefaultPolicy(),
	}
}

// Result is the outcome of one delivery.
type Result struct {
	Delivered  bool   `json:"delivered"`
	Skipped    bool   `json:"skipped"`
	Reason     string `json:"reason,omitempty"`
	Attempts   int    `json:"attempts"`
	StatusCode int    `json:"status_code,omitempty"`
	Summary    bool   `json:"summary"`
}

// DeliveryRecorder records delivery attempts and final results.
type DeliveryRecorder interface {
	RecordDeliveryAttempt(outcome string)
	RecordDelivery(result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordDeliveryAttempt(string) {}
func (nopRecorder) RecordDelivery(string)        {}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		if c != nil {
			n.client = c
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r DeliveryRecorder) Option {
	return func(n *Notifier) {
		if r != nil {
			n.recorder = r
		}
	}
}

// WithRetryOptions passes options to the underlying retrier.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(n *Notifier) {
		n.retryOpts = append(n.retryOpts, opts...)
	}
}

// Notifier delivers reports to a webhook.
type Notifier struct {
	cfg       Config
	client    *http.Client
	limiter   *rate.Limiter
	retrier   *retry.Retrier
	retryOpts []retry.Option
	recorder  DeliveryRecorder
	logger    *zap.Logger
}

// New creates a Notifier.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = def.URLPrefix
	}
	if cfg.SizeThreshold <= 0 {
		cfg.SizeThreshold = def.SizeThreshold
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = def.Retry
	}

	n := &Notifier{
		cfg:      cfg,
		client:   tlsutil.SecureHTTPClient(cfg.RequestTimeout),
		limiter:  rate.NewLimiter(rate.Inf, 0),
		recorder: nopRecorder{},
		logger:   logger.With(zap.String("component", "notify")),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		n.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(n)
	}
	n.retrier = retry.New(cfg.Retry, n.logger, n.retryOpts...)
	return n
}

// Config returns the effective configuration.
func (n *Notifier) Config() Config {
	return n.cfg
}

// Deliver validates the endpoint, shapes the payload and posts it through
// the retrier. It never returns an error; failures end up in Result.
func (n *Notifier) Deliver(ctx context.Context, report, locator, question string) Result {
	if err := ValidateURL(n.cfg.WebhookURL, n.cfg.URLPrefix); err != nil {
		n.logger.Warn("notification skipped", zap.String("reason", err.Error()))
		n.recorder.RecordDelivery("skipped")
		return Result{Skipped: true, Reason: err.Error()}
	}
	if report == "" {
		n.recorder.RecordDelivery("skipped")
		return Result{Skipped: true, Reason: "no report content"}
	}

	payload := BuildPayload(n.cfg, report, locator, question)
	body, err := json.Marshal(payload)
	if err != nil {
		n.recorder.RecordDelivery("failed")
		return Result{Reason: fmt.Sprintf("marshal payload: %v", err)}
	}

	res := Result{Summary: IsSummary(report, n.cfg.SizeThreshold)}
	outcome := n.retrier.Do(ctx, func(ctx context.Context) error {
		res.Attempts++
		status, err := n.post(ctx, body)
		res.StatusCode = status
		n.recorder.RecordDeliveryAttempt(retry.Classify(err).String())
		return err
	})

	if outcome.OK {
		res.Delivered = true
		n.recorder.RecordDelivery("delivered")
		n.logger.Info("notification delivered",
			zap.Int("attempts", res.Attempts),
			zap.Int("report_runes", len([]rune(report))),
			zap.Bool("summary", res.Summary),
		)
		return res
	}

	res.Reason = outcome.Err.Error()
	n.recorder.RecordDelivery("failed")
	n.logger.Error("notification failed",
		zap.Int("attempts", res.Attempts),
		zap.Error(outcome.Err),
	)
	return res
}

// post sends one request and classifies the response: nil on 200, a
// terminal error on 400 and 404, a retryable error otherwise.
func (n *Notifier) post(ctx context.Context, body []byte) (int, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return 0, retry.Terminal(fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, retry.Terminal(types.NewError(types.ErrDeliveryTerminal, "build request").WithCause(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, retry.Terminal(ctx.Err())
		}
		return 0, types.NewError(types.ErrDeliveryRetryable, "request failed").
			WithCause(err).
			WithRetryable(true)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.StatusCode, nil
	case http.StatusBadRequest, http.StatusNotFound:
		return resp.StatusCode, retry.Terminal(
			types.NewError(types.ErrDeliveryTerminal, fmt.Sprintf("webhook rejected: %d %s", resp.StatusCode, string(respBody))).
				WithHTTPStatus(resp.StatusCode),
		)
	default:
		return resp.StatusCode, types.NewError(types.ErrDeliveryRetryable, fmt.Sprintf("webhook returned %d", resp.StatusCode)).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(true)
	}
}
