package oracle

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
)

func newTestClient(t *testing.T, baseURL string, maxRetries int) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:           baseURL,
		Model:             "gpt-4o",
		APIKey:            "sk-test",
		MaxRetries:        maxRetries,
		RequestsPerMinute: 60000,
		Burst:             100,
	})
	require.NoError(t, err)
	c.baseBackoff = time.Millisecond
	return c
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid",
			config:  Config{BaseURL: "https://api.openai.com", Model: "gpt-4o", APIKey: "sk-test"},
			wantErr: false,
		},
		{
			name:    "missing API key",
			config:  Config{BaseURL: "https://api.openai.com", Model: "gpt-4o"},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			config:  Config{BaseURL: "https://api.openai.com", Model: "gpt-4o", APIKey: "k", Timeout: -1},
			wantErr: true,
		},
		{
			name:    "negative retries",
			config:  Config{BaseURL: "https://api.openai.com", Model: "gpt-4o", APIKey: "k", MaxRetries: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ORACLE_BASE_URL", "http://llm.internal")
	t.Setenv("ORACLE_MODEL", "gpt-4o-mini")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg := ConfigFromEnv()
	assert.Equal(t, "http://llm.internal", cfg.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "sk-env", cfg.APIKey)
	assert.Equal(t, defaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, defaultRequestsPerMinute, cfg.RequestsPerMinute)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestComplete_Success(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		chatReply(t, w, "a fine answer")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	reply, err := c.Complete(context.Background(), Request{
		SystemPrompt: "You are concise.",
		UserPrompt:   "Say something fine.",
		Format:       FormatText,
		Temperature:  0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, "a fine answer", reply)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "gpt-4o", got.Model)
	assert.InDelta(t, 0.3, got.Temperature, 1e-9)
	assert.Nil(t, got.ResponseFormat)
}

func TestComplete_JSONFormat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		chatReply(t, w, `{"ok": true}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	_, err := c.Complete(context.Background(), Request{
		UserPrompt: "Return JSON.",
		Format:     FormatJSON,
	})
	require.NoError(t, err)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestComplete_MalformedJSONReplyIsNotAnError(t *testing.T) {
	// Invalid JSON in the reply body is a normal outcome; parsing is the
	// caller's concern.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "Sorry, I cannot produce JSON today.")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	reply, err := c.Complete(context.Background(), Request{UserPrompt: "json please", Format: FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I cannot produce JSON today.", reply)
}

func TestComplete_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		chatReply(t, w, "second time lucky")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2)
	reply, err := c.Complete(context.Background(), Request{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "second time lucky", reply)
	assert.Equal(t, int32(2), calls.Load())
}

func TestComplete_ServerErrorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2)
	_, err := c.Complete(context.Background(), Request{UserPrompt: "hi"})
	require.ErrorIs(t, err, ErrCompletionUnavailable)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_NonRetryableAPIError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "model overloaded with nonsense"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Complete(context.Background(), Request{UserPrompt: "hi"})
	require.ErrorIs(t, err, ErrCompletionUnavailable)
	assert.Contains(t, err.Error(), "model overloaded with nonsense")
	assert.Equal(t, int32(1), calls.Load(), "client must not retry 4xx errors")
}

func TestComplete_EmptyPrompt(t *testing.T) {
	c := newTestClient(t, "http://unused.invalid", 0)
	_, err := c.Complete(context.Background(), Request{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}
