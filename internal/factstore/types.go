package factstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/fyrsmithlabs/interviewd/internal/chunker"
)

// Common errors.
var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidDocumentID = errors.New("invalid document id")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrEmptyDocument     = errors.New("document has no indexable text")
	ErrDocumentTooLarge  = errors.New("document exceeds size limit")
	ErrCorruptArtifacts  = errors.New("corrupt document artifacts")
)

// Chunk is one bounded span of source-document text, the unit of retrieval.
// Immutable once created; search results reference the stored records.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
	Text       string `json:"text"`
	TokenStart int    `json:"token_start"`
	TokenEnd   int    `json:"token_end"`
}

// Embedder generates embeddings for indexing and queries.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Splitter turns raw text into ordered segments.
type Splitter interface {
	Chunk(text string) []chunker.Segment
}

// Default configuration values.
const (
	DefaultK                = 6
	DefaultMaxDocumentBytes = 10 << 20 // 10 MiB
)

// Config holds fact store configuration.
type Config struct {
	// DataDir is where artifact pairs are stored.
	DataDir string `koanf:"data_dir"`

	// DefaultK is the result count used when a search passes k <= 0.
	DefaultK int `koanf:"default_k"`

	// MaxDocumentBytes caps the raw text size accepted by ingest.
	MaxDocumentBytes int64 `koanf:"max_document_bytes"`
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.DefaultK == 0 {
		c.DefaultK = DefaultK
	}
	if c.MaxDocumentBytes == 0 {
		c.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
}

// Validate checks config for errors.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data dir required", ErrInvalidConfig)
	}
	if c.DefaultK <= 0 {
		return fmt.Errorf("%w: default k must be > 0, got %d", ErrInvalidConfig, c.DefaultK)
	}
	if c.MaxDocumentBytes <= 0 {
		return fmt.Errorf("%w: max document bytes must be > 0, got %d", ErrInvalidConfig, c.MaxDocumentBytes)
	}
	return nil
}

// docIDPattern keeps document ids path-safe: they become file names.
var docIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// ValidateDocumentID rejects ids that cannot safely key on-disk artifacts.
func ValidateDocumentID(id string) error {
	if !docIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q (must be 1-128 alphanumeric, hyphen or underscore characters)",
			ErrInvalidDocumentID, id)
	}
	return nil
}
