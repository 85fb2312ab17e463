package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/internal/tlsutil"
	"github.com/BaSui01/askflow/types"
)

// OllamaConfig configures the Ollama client.
type OllamaConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url" env:"BASE_URL"`
	Model       string        `yaml:"model" json:"model" env:"MODEL"`
	Temperature float64       `yaml:"temperature" json:"temperature" env:"TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
}

// DefaultOllamaConfig returns the defaults for a local Ollama.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL:     "http://localhost:11434",
		Model:       "gemma3:latest",
		Temperature: 0.7,
		Timeout:     5 * time.Minute,
	}
}

// RequestRecorder records generate calls.
type RequestRecorder interface {
	RecordLLMRequest(model, status string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordLLMRequest(string, string, time.Duration) {}

// OllamaOption configures an OllamaClient.
type OllamaOption func(*OllamaClient)

// WithRequestRecorder sets the metrics recorder.
func WithRequestRecorder(r RequestRecorder) OllamaOption {
	return func(c *OllamaClient) {
		if r != nil {
			c.recorder = r
		}
	}
}

// OllamaClient talks to the Ollama HTTP API.
type OllamaClient struct {
	cfg      OllamaConfig
	client   *http.Client
	recorder RequestRecorder
	logger   *zap.Logger
}

// NewOllamaClient creates an OllamaClient. client may be nil.
func NewOllamaClient(cfg OllamaConfig, client *http.Client, logger *zap.Logger, opts ...OllamaOption) *OllamaClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOllamaConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = tlsutil.SecureHTTPClient(cfg.Timeout)
	}
	c := &OllamaClient{
		cfg:      cfg,
		client:   client,
		recorder: nopRecorder{},
		logger:   logger.With(zap.String("component", "ollama"), zap.String("model", cfg.Model)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Generate sends a non-streaming generate request.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := c.generate(ctx, prompt)
	status := "success"
	if err != nil {
		status = "error"
	}
	c.recorder.RecordLLMRequest(c.cfg.Model, status, time.Since(start))
	return out, err
}

func (c *OllamaClient) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:   c.cfg.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: generateOptions{Temperature: c.cfg.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		return "", types.NewUpstreamError(fmt.Sprintf("ollama generate: %s", msg), resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.NewUpstreamError("ollama generate: decode response", 0).WithCause(err)
	}
	if out.Error != "" {
		return "", types.NewUpstreamError("ollama generate: "+out.Error, 0).WithRetryable(false)
	}

	c.logger.Debug("generate completed",
		zap.Duration("latency", time.Since(start)),
		zap.Int("response_runes", len([]rune(out.Response))),
	)
	return out.Response, nil
}

// CheckModel verifies that Ollama is reachable and the configured model is
// pulled.
func (c *OllamaClient) CheckModel(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &HealthStatus{Model: c.cfg.Model, Latency: time.Since(start)}, mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	status := &HealthStatus{Model: c.cfg.Model, Latency: time.Since(start)}
	if resp.StatusCode != http.StatusOK {
		return status, types.NewUpstreamError(fmt.Sprintf("ollama tags: %s", readErrorMessage(resp.Body)), resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return status, types.NewUpstreamError("ollama tags: decode response", 0).WithCause(err)
	}
	for _, m := range tags.Models {
		status.Available = append(status.Available, m.Name)
	}

	if !slices.Contains(status.Available, c.cfg.Model) {
		return status, fmt.Errorf("model %s not found, run: ollama pull %s", c.cfg.Model, c.cfg.Model)
	}
	status.Healthy = true
	return status, nil
}

func mapTransportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		return types.NewTimeoutError("ollama request timed out").WithCause(err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return types.NewUpstreamError("cannot connect to ollama", 0).WithCause(err)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// readErrorMessage 读取响应体中的错误消息，失败则回退到原始文本
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return "failed to read error response"
	}
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error != "" {
		return errResp.Error
	}
	return strings.TrimSpace(string(data))
}
