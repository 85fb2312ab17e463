package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/askflow/types"
)

func newOllama(t *testing.T, h http.HandlerFunc) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewOllamaClient(OllamaConfig{BaseURL: srv.URL + "/", Model: "gemma3:latest", Temperature: 0.2}, srv.Client(), zap.NewNop())
}

func TestOllamaClient_Generate(t *testing.T) {
	c := newOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gemma3:latest", req.Model)
		assert.Equal(t, "hello", req.Prompt)
		assert.False(t, req.Stream)
		assert.Equal(t, 0.2, req.Options.Temperature)

		_ = json.NewEncoder(w).Encode(generateResponse{Model: req.Model, Response: "hi there", Done: true})
	})

	out, err := c.Generate(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestOllamaClient_GenerateServerError(t *testing.T) {
	c := newOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model crashed"}`))
	})

	_, err := c.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))
	assert.True(t, types.IsRetryable(err))
	assert.Contains(t, err.Error(), "model crashed")
}

func TestOllamaClient_GenerateClientError(t *testing.T) {
	c := newOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'x' not found"}`))
	})

	_, err := c.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.False(t, types.IsRetryable(err))
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus)
}

func TestOllamaClient_GenerateTimeout(t *testing.T) {
	c := newOllama(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, "hello")

	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamTimeout))
}

func TestOllamaClient_GenerateConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := NewOllamaClient(OllamaConfig{BaseURL: url}, nil, nil)

	_, err := c.Generate(context.Background(), "hello")

	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))
	assert.True(t, types.IsRetryable(err))
}

func TestOllamaClient_CheckModel(t *testing.T) {
	tags := `{"models":[{"name":"llama3:8b"},{"name":"gemma3:latest"}]}`
	c := newOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(tags))
	})

	status, err := c.CheckModel(context.Background())

	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Equal(t, []string{"llama3:8b", "gemma3:latest"}, status.Available)
}

func TestOllamaClient_CheckModelMissing(t *testing.T) {
	c := newOllama(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3:8b"}]}`))
	})

	status, err := c.CheckModel(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull gemma3:latest")
	assert.False(t, status.Healthy)
}

func TestNewOllamaClient_Defaults(t *testing.T) {
	c := NewOllamaClient(OllamaConfig{}, nil, nil)
	assert.Equal(t, "http://localhost:11434", c.cfg.BaseURL)
	assert.Equal(t, "gemma3:latest", c.cfg.Model)
	assert.Equal(t, 5*time.Minute, c.cfg.Timeout)
}

type statusRecorder struct{ statuses []string }

func (r *statusRecorder) RecordLLMRequest(model, status string, _ time.Duration) {
	r.statuses = append(r.statuses, model+":"+status)
}

func TestOllamaClient_RecordsRequests(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"response":"ok","done":true}`))
	}))
	t.Cleanup(srv.Close)
	rec := &statusRecorder{}
	c := NewOllamaClient(OllamaConfig{BaseURL: srv.URL, Model: "m"}, srv.Client(), nil, WithRequestRecorder(rec))

	_, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	fail.Store(true)
	_, err = c.Generate(context.Background(), "p")
	require.Error(t, err)

	assert.Equal(t, []string{"m:success", "m:error"}, rec.statuses)
}
