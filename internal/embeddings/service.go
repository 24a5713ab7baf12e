package embeddings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

var (
	// ErrEmptyInput indicates empty or nil input texts
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable indicates a transport or provider failure
	ErrEmbeddingUnavailable = errors.New("embedding capability unavailable")
)

// DefaultBatchSize bounds how many texts go into one provider request.
const DefaultBatchSize = 64

// Config holds configuration for the embedding service.
type Config struct {
	// BaseURL is the base URL for the embedding API
	// For OpenAI: https://api.openai.com/v1
	// For TEI: http://localhost:8080/v1
	BaseURL string `koanf:"base_url"`

	// Model is the embedding model to use
	// For OpenAI: text-embedding-3-small, text-embedding-3-large
	// For TEI: BAAI/bge-small-en-v1.5, Alibaba-NLP/gte-base-en-v1.5
	Model string `koanf:"model"`

	// APIKey is the API key (required for OpenAI, optional for TEI)
	APIKey string `koanf:"api_key"`

	// BatchSize caps texts per embedding request
	BatchSize int `koanf:"batch_size"`
}

// ConfigFromEnv creates a Config from environment variables.
//
// Environment variables:
//   - EMBEDDING_BASE_URL: Base URL (default: https://api.openai.com/v1)
//   - EMBEDDING_MODEL: Model name (default: text-embedding-3-small)
//   - OPENAI_API_KEY: OpenAI API key (optional for TEI)
func ConfigFromEnv() Config {
	baseURL := os.Getenv("EMBEDDING_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = "text-embedding-3-small"
	}

	apiKey := os.Getenv("OPENAI_API_KEY")

	return Config{
		BaseURL:   baseURL,
		Model:     model,
		APIKey:    apiKey,
		BatchSize: DefaultBatchSize,
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "text-embedding-3-small"
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
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
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch size must be >= 0, got %d", ErrInvalidConfig, c.BatchSize)
	}
	return nil
}

// Service provides embedding generation functionality.
type Service struct {
	embedder *embeddings.EmbedderImpl
	config   Config
	metrics  *Metrics
}

// New creates a new embedding service with the given configuration.
//
// The service uses langchaingo's embeddings abstraction over an
// OpenAI-compatible API, so one client covers both the hosted API and
// local inference servers.
//
// Returns an error if the configuration is invalid.
func New(cfg Config, logger *zap.Logger) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// langchaingo requires a token, use placeholder for TEI
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm,
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &Service{
		embedder: embedder,
		config:   cfg,
		metrics:  NewMetrics(logger),
	}, nil
}

// Embedder returns the underlying langchaingo Embedder.
//
// This allows the service to be used with other langchaingo components
// that require an Embedder interface.
func (s *Service) Embedder() embeddings.Embedder {
	return s.embedder
}

// Model returns the configured embedding model name.
func (s *Service) Model() string {
	return s.config.Model
}

// EmbedDocuments generates embeddings for the given texts.
//
// Returns one float32 vector per input text, in input order. The provider
// contract requires the same length and ordering as the input; a mismatch
// is reported as a capability failure.
//
// Returns ErrEmptyInput if texts is empty or nil.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	start := time.Now()
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	s.metrics.RecordGeneration(ctx, s.config.Model, "embed_documents", time.Since(start), len(texts), err)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding %d documents: %v", ErrEmbeddingUnavailable, len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingUnavailable, len(vectors), len(texts))
	}

	return vectors, nil
}

// EmbedQuery generates an embedding for a single query text.
//
// Returns ErrEmptyInput if text is empty.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	start := time.Now()
	vector, err := s.embedder.EmbedQuery(ctx, text)
	s.metrics.RecordGeneration(ctx, s.config.Model, "embed_query", time.Since(start), 1, err)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", ErrEmbeddingUnavailable, err)
	}

	return vector, nil
}
