// Package oracle provides the text-completion capability behind evaluation,
// coaching and LLM-based case extraction.
//
// The client speaks the OpenAI chat completions API with rate limiting and
// retry handling. Replies are returned verbatim: when JSON output is
// requested the reply may still be syntactically invalid, and callers own
// parsing it (with a fallback path) rather than treating that as a failure
// here.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCompletionUnavailable indicates a transport or provider failure
	ErrCompletionUnavailable = errors.New("completion capability unavailable")
)

// Format selects the oracle's reply shape.
type Format string

const (
	// FormatText requests free-form text.
	FormatText Format = "text"
	// FormatJSON requests a JSON object reply.
	FormatJSON Format = "json"
)

// Request is one completion exchange with the oracle.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Format       Format

	// Temperature is passed through as-is; 0 means deterministic.
	Temperature float64
	// MaxTokens caps the reply length; 0 uses the client default.
	MaxTokens int
}

const (
	defaultBaseURL     = "https://api.openai.com"
	defaultModel       = "gpt-4o"
	defaultMaxTokens   = 1024
	defaultTimeout     = 60 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = 1 * time.Second
)

// Rate limiter defaults: 50 requests per minute.
const (
	defaultRequestsPerMinute = 50.0
	defaultBurst             = 5
)

// Config holds configuration for the completion client.
type Config struct {
	// BaseURL is the API root, without the /v1/chat/completions path.
	BaseURL string `koanf:"base_url"`

	// Model is the chat model to use.
	Model string `koanf:"model"`

	// APIKey authenticates against the API. Required.
	APIKey string `koanf:"api_key"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `koanf:"timeout"`

	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int `koanf:"max_retries"`

	// RequestsPerMinute throttles outbound calls.
	RequestsPerMinute float64 `koanf:"requests_per_minute"`

	// Burst allows short request bursts above the sustained rate.
	Burst int `koanf:"burst"`
}

// ConfigFromEnv creates a Config from environment variables.
//
// Environment variables:
//   - ORACLE_BASE_URL: API root (default: https://api.openai.com)
//   - ORACLE_MODEL: Chat model (default: gpt-4o)
//   - OPENAI_API_KEY: API key
func ConfigFromEnv() Config {
	cfg := Config{
		BaseURL: os.Getenv("ORACLE_BASE_URL"),
		Model:   os.Getenv("ORACLE_MODEL"),
		APIKey:  os.Getenv("OPENAI_API_KEY"),
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = int(defaultTimeout / time.Second)
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = defaultRequestsPerMinute
	}
	if c.Burst == 0 {
		c.Burst = defaultBurst
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: API key required", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be >= 0, got %d", ErrInvalidConfig, c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be >= 0, got %d", ErrInvalidConfig, c.MaxRetries)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: requests per minute must be >= 0, got %f", ErrInvalidConfig, c.RequestsPerMinute)
	}
	return nil
}

// Client calls the chat completions API.
type Client struct {
	config      Config
	httpClient  *http.Client
	limiter     *rate.Limiter
	baseBackoff time.Duration
}

// New creates a completion client from config.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), cfg.Burst),
		baseBackoff: defaultBaseBackoff,
	}, nil
}

// Model returns the configured chat model name.
func (c *Client) Model() string {
	return c.config.Model
}

// Complete sends one completion request and returns the raw reply text.
//
// The method handles:
//   - Rate limiting to avoid API quota issues
//   - Context cancellation and deadlines
//   - Retries with exponential backoff for transient errors
//
// All transport and API failures wrap ErrCompletionUnavailable.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if req.UserPrompt == "" {
		return "", fmt.Errorf("%w: user prompt required", ErrInvalidConfig)
	}

	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", ErrCompletionUnavailable, err)
	}

	chatReq := c.buildChatRequest(req)

	// Make request with retries
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrCompletionUnavailable, ctx.Err())
			}
		}

		reply, err := c.doRequest(ctx, chatReq)
		if err == nil {
			return reply, nil
		}

		lastErr = err
		// Check if error is retryable
		if !isRetryableError(err) {
			return "", fmt.Errorf("%w: %v", ErrCompletionUnavailable, err)
		}
	}

	return "", fmt.Errorf("%w: max retries exceeded: %v", ErrCompletionUnavailable, lastErr)
}

// chatRequest is the OpenAI chat completions request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) buildChatRequest(req Request) chatRequest {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.UserPrompt})

	chatReq := chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	if req.Format == FormatJSON {
		chatReq.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return chatReq
}

// doRequest performs the actual HTTP request to the chat API.
func (c *Client) doRequest(ctx context.Context, req chatRequest) (string, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &retryableError{err: fmt.Errorf("rate limited (429)")}
	}

	// Handle server errors (retryable)
	if resp.StatusCode >= 500 {
		return "", &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from API")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var re *retryableError
	return errors.As(err, &re)
}
