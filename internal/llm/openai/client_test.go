package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/llm"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg, err := ConfigFor(ProviderGroq, "secret", "", srv.URL)
	require.NoError(t, err)
	return NewClient(cfg, nil)
}

func TestClient_Call(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "llama-3.3-70b-versatile",
			"choices": [{"message": {"content": " {\"ok\":true} "}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5}
		}`))
	})

	resp, err := c.Call(context.Background(), llm.Request{
		Prompt:       "analyze",
		SystemPrompt: "You are a legal document analyst.",
		JSONMode:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, resp.Text)
	assert.Equal(t, "llama-3.3-70b-versatile", resp.Model)
	assert.Equal(t, 17, resp.Tokens("analyze"))

	assert.Equal(t, "llama-3.3-70b-versatile", body["model"])
	assert.InDelta(t, 0.1, body["temperature"], 1e-9)
	assert.EqualValues(t, 8000, body["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestClient_RequestOverridesDefaults(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"plain"}}]}`))
	})

	resp, err := c.Call(context.Background(), llm.Request{Prompt: "p", Temperature: llm.Temperature(0), MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "plain", resp.Text)
	assert.Equal(t, c.Model(), resp.Model)
	assert.InDelta(t, 0.0, body["temperature"], 1e-9)
	assert.EqualValues(t, 100, body["max_tokens"])
	assert.NotContains(t, body, "response_format")
}

func TestClient_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		is     error
		class  constants.ErrorClass
	}{
		{"auth", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key"}}`, llm.ErrAuth, constants.ErrorClassAuth},
		{"rate limit", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, llm.ErrRateLimit, constants.ErrorClassRateLimit},
		{"unknown model", http.StatusNotFound, `{"error":{"code":"model_not_found"}}`, llm.ErrUnknownModel, constants.ErrorClassUnknownModel},
		{"server", http.StatusInternalServerError, `oops`, llm.ErrProvider, constants.ErrorClassProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Call(context.Background(), llm.Request{Prompt: "p"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
			assert.Equal(t, tt.class, llm.Classify(err))
			assert.Contains(t, err.Error(), "LLM API call failed (groq)")
		})
	}
}

func TestClient_NoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := c.Call(context.Background(), llm.Request{Prompt: "p"})
	assert.ErrorIs(t, err, llm.ErrProvider)
}

func TestClient_ContextDeadlineIsTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Call(ctx, llm.Request{Prompt: "p"})
	assert.ErrorIs(t, err, llm.ErrTimeout)
	assert.Equal(t, constants.ErrorClassTimeout, llm.Classify(err))
}

func TestConfigFor(t *testing.T) {
	cfg, err := ConfigFor("OpenAI", "k", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1", cfg.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)

	cfg, err = ConfigFor(ProviderGroq, "k", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.BaseURL)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Model)

	cfg, err = ConfigFor(ProviderOpenRouter, "k", "meta/llama", "")
	require.NoError(t, err)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.BaseURL)
	assert.Equal(t, "meta/llama", cfg.Model)
	assert.NotEmpty(t, cfg.Title)

	_, err = ConfigFor("anthropic", "k", "", "")
	assert.Error(t, err)
}
