// Package chunker splits raw document text into bounded, overlapping
// token-addressed segments for embedding and retrieval.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Common errors.
var (
	ErrInvalidConfig = errors.New("invalid chunker config")
	ErrEncoding      = errors.New("encoding unavailable")
)

// Default configuration values.
const (
	DefaultChunkTokens  = 500
	DefaultChunkOverlap = 80
	DefaultEncodingName = "cl100k_base"
)

// Config holds chunking parameters.
type Config struct {
	// ChunkTokens is the window size in tokens.
	ChunkTokens int `koanf:"chunk_tokens"`
	// ChunkOverlap is how many tokens consecutive windows share.
	ChunkOverlap int `koanf:"chunk_overlap"`
	// EncodingName selects the tokenizer vocabulary.
	EncodingName string `koanf:"encoding_name"`
}

// DefaultConfig returns production-ready chunking defaults.
func DefaultConfig() Config {
	return Config{
		ChunkTokens:  DefaultChunkTokens,
		ChunkOverlap: DefaultChunkOverlap,
		EncodingName: DefaultEncodingName,
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.ChunkTokens == 0 {
		c.ChunkTokens = DefaultChunkTokens
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	if c.EncodingName == "" {
		c.EncodingName = DefaultEncodingName
	}
}

// Validate checks config for errors.
// ChunkOverlap >= ChunkTokens would never advance the window and is
// rejected here rather than looping at chunk time.
func (c *Config) Validate() error {
	if c.ChunkTokens <= 0 {
		return fmt.Errorf("%w: chunk_tokens must be > 0, got %d", ErrInvalidConfig, c.ChunkTokens)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must be >= 0, got %d", ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkTokens {
		return fmt.Errorf("%w: chunk_overlap %d must be smaller than chunk_tokens %d",
			ErrInvalidConfig, c.ChunkOverlap, c.ChunkTokens)
	}
	if c.EncodingName == "" {
		return fmt.Errorf("%w: encoding_name required", ErrInvalidConfig)
	}
	return nil
}

// Encoding tokenizes and detokenizes text. Satisfied by tiktoken encodings;
// tests inject deterministic implementations.
type Encoding interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// tiktokenEncoding adapts a tiktoken.Tiktoken to the Encoding interface.
type tiktokenEncoding struct {
	tk *tiktoken.Tiktoken
}

func (e *tiktokenEncoding) Encode(text string) []int {
	return e.tk.Encode(text, nil, nil)
}

func (e *tiktokenEncoding) Decode(tokens []int) string {
	return e.tk.Decode(tokens)
}

// Span is a half-open token range [Start, End) into the source token stream.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Segment is one chunk of source text with its token addressing.
type Segment struct {
	Text string `json:"text"`
	Span Span   `json:"span"`
}

// Chunker splits text into overlapping token windows.
type Chunker struct {
	cfg Config
	enc Encoding
}

// New creates a Chunker using the configured tiktoken encoding.
func New(cfg Config) (*Chunker, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tk, err := tiktoken.GetEncoding(cfg.EncodingName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncoding, cfg.EncodingName, err)
	}
	return &Chunker{cfg: cfg, enc: &tiktokenEncoding{tk: tk}}, nil
}

// NewWithEncoding creates a Chunker with an injected Encoding.
func NewWithEncoding(cfg Config, enc Encoding) (*Chunker, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: encoding required", ErrInvalidConfig)
	}
	return &Chunker{cfg: cfg, enc: enc}, nil
}

// Config returns the effective configuration.
func (c *Chunker) Config() Config {
	return c.cfg
}

// Chunk splits text into segments of ChunkTokens tokens, consecutive
// segments sharing ChunkOverlap tokens. The window advances by
// ChunkTokens-ChunkOverlap each step, so the final segment may be shorter.
// Segments whose text trims to empty are dropped. Deterministic for
// identical input and configuration.
func (c *Chunker) Chunk(text string) []Segment {
	tokens := c.enc.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	step := c.cfg.ChunkTokens - c.cfg.ChunkOverlap
	segments := make([]Segment, 0, (len(tokens)+step-1)/step)

	for start := 0; start < len(tokens); start += step {
		end := start + c.cfg.ChunkTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		window := c.enc.Decode(tokens[start:end])
		if strings.TrimSpace(window) == "" {
			continue
		}
		segments = append(segments, Segment{
			Text: window,
			Span: Span{Start: start, End: end},
		})
	}

	return segments
}
