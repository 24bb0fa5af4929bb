package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadbot/internal/config"
	"leadbot/internal/entities"
)

func groqConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider:         "groq",
		Temperature:      0.7,
		TimeoutSecs:      5,
		MaxRetries:       2,
		RetryBaseDelayMs: 1000,
		Groq:             config.ChatProviderConfig{APIKey: "test-key", Model: "llama3-8b"},
	}
}

type recordedSleep struct {
	delays []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

var testSegments = []entities.Segment{
	{Role: entities.RoleSystem, Content: "be nice"},
	{Role: entities.RoleUser, Content: "hello"},
}

func TestNewCompletionGatewayConfiguration(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*config.LLMConfig)
		wantField string
	}{
		{"no provider", func(c *config.LLMConfig) { c.Provider = "" }, "llm.provider"},
		{"unknown provider", func(c *config.LLMConfig) { c.Provider = "openai" }, "llm.provider"},
		{"missing key", func(c *config.LLMConfig) { c.Groq.APIKey = "" }, "llm.groq.api_key"},
		{"missing model", func(c *config.LLMConfig) { c.Groq.Model = "" }, "llm.groq.model"},
		{"together missing key", func(c *config.LLMConfig) { c.Provider = "together" }, "llm.together.api_key"},
		{"anthropic missing model", func(c *config.LLMConfig) {
			c.Provider = "anthropic"
			c.Anthropic.APIKey = "k"
		}, "llm.anthropic.model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := groqConfig()
			tt.mutate(&cfg)
			_, err := NewCompletionGateway(cfg, WithBaseURL("http://localhost"))
			require.Error(t, err)
			var cfgErr *entities.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestCompleteRequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3-8b", body.Model)
		assert.InDelta(t, 0.7, body.Temperature, 0.001)
		assert.Equal(t, []chatMessage{{Role: "system", Content: "be nice"}, {Role: "user", Content: "hello"}}, body.Messages)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hi there"}}]}`))
	}))
	defer srv.Close()

	g, err := NewCompletionGateway(groqConfig(), WithBaseURL(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "groq", g.Provider())

	got, err := g.Complete(context.Background(), testSegments)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", got)
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"third time lucky"}}]}`))
	}))
	defer srv.Close()

	sl := &recordedSleep{}
	g, err := NewCompletionGateway(groqConfig(), WithBaseURL(srv.URL), WithSleep(sl.sleep))
	require.NoError(t, err)

	got, err := g.Complete(context.Background(), testSegments)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", got)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sl.delays)
}

func TestCompleteExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream down"}`))
	}))
	defer srv.Close()

	sl := &recordedSleep{}
	g, err := NewCompletionGateway(groqConfig(), WithBaseURL(srv.URL), WithSleep(sl.sleep))
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), testSegments)
	require.Error(t, err)

	var pe *entities.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Attempts)
	assert.Equal(t, http.StatusBadGateway, pe.StatusCode)
	assert.Equal(t, "upstream down", pe.ServerMessage)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, sl.delays, 2)
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	sl := &recordedSleep{}
	g, err := NewCompletionGateway(groqConfig(), WithBaseURL(srv.URL), WithSleep(sl.sleep))
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), testSegments)
	var pe *entities.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Attempts)
	assert.Equal(t, "Invalid API Key", pe.ServerMessage)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, sl.delays)
}

func TestCompleteRetriesNetworkErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	sl := &recordedSleep{}
	g, err := NewCompletionGateway(groqConfig(), WithBaseURL(url), WithSleep(sl.sleep))
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), testSegments)
	var pe *entities.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Attempts)
	assert.Zero(t, pe.StatusCode)
	assert.Len(t, sl.delays, 2)
}

func TestParseChatCompletion(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr string
	}{
		{"message content", `{"choices":[{"message":{"content":"a"}}]}`, "a", ""},
		{"legacy text", `{"choices":[{"text":"b"}]}`, "b", ""},
		{"message wins over text", `{"choices":[{"message":{"content":"a"},"text":"b"}]}`, "a", ""},
		{"message without content falls back", `{"choices":[{"message":{"role":"assistant"},"text":"b"}]}`, "b", ""},
		{"empty choices", `{"choices":[]}`, "", "no choices"},
		{"missing choices", `{"id":"x"}`, "", "no choices"},
		{"unrecognized", `{"choices":[{"delta":{"content":"x"}}]}`, "", "unrecognized choice shape"},
		{"not json", `<html>oops</html>`, "", "invalid JSON response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseChatCompletion([]byte(tt.body))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompleteSurfacesServerMessageOnEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[],"message":"model is loading"}`))
	}))
	defer srv.Close()

	g, err := NewCompletionGateway(groqConfig(), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), testSegments)
	var pe *entities.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Attempts)
	assert.Equal(t, "model is loading", pe.ServerMessage)
}

func TestAnthropicTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/messages")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		system, _ := body["system"].([]any)
		require.Len(t, system, 1)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": "Hello from Claude"}},
			"model":       "claude-haiku-4-5",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 3, "output_tokens": 4},
		})
	}))
	defer srv.Close()

	cfg := groqConfig()
	cfg.Provider = "anthropic"
	cfg.Anthropic = config.AnthropicConfig{APIKey: "k", Model: "claude-haiku-4-5", MaxTokens: 256}

	g, err := NewCompletionGateway(cfg, WithBaseURL(srv.URL))
	require.NoError(t, err)

	got, err := g.Complete(context.Background(), testSegments)
	require.NoError(t, err)
	assert.Equal(t, "Hello from Claude", got)
}

func TestAnthropicTransportClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`))
	}))
	defer srv.Close()

	cfg := groqConfig()
	cfg.Provider = "anthropic"
	cfg.Anthropic = config.AnthropicConfig{APIKey: "k", Model: "claude-haiku-4-5"}

	g, err := NewCompletionGateway(cfg, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), testSegments)
	var pe *entities.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadRequest, pe.StatusCode)
	assert.Equal(t, "max_tokens too large", pe.ServerMessage)
	assert.Equal(t, int32(1), calls.Load())
}
