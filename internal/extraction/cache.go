package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

const cacheSuffix = ".case.json"

// Fingerprint returns the content identity of a document: the SHA-256
// of its normalized text, hex encoded. Formatting noise (line endings,
// hyphenation breaks, trailing space) does not change the fingerprint.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// CachingExtractor wraps an extractor with an on-disk result cache
// keyed by document fingerprint. Re-uploading an unchanged document
// never repeats extraction, which matters most for the llm provider.
type CachingExtractor struct {
	inner  CaseExtractor
	dir    string
	logger *zap.Logger
}

// NewCachingExtractor creates the cache around inner, storing results
// under dir.
func NewCachingExtractor(inner CaseExtractor, dir string, logger *zap.Logger) (*CachingExtractor, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner extractor is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating extraction cache directory: %w", err)
	}
	return &CachingExtractor{inner: inner, dir: dir, logger: logger}, nil
}

// Extract returns the cached result for the document's fingerprint, or
// runs the wrapped extractor and stores its result. A corrupt cache
// entry is treated as a miss and overwritten.
func (c *CachingExtractor) Extract(ctx context.Context, text string) (interview.CaseDocument, error) {
	fp := Fingerprint(text)
	path := filepath.Join(c.dir, fp+cacheSuffix)

	if data, err := os.ReadFile(path); err == nil {
		var doc interview.CaseDocument
		if err := json.Unmarshal(data, &doc); err == nil {
			c.logger.Debug("extraction cache hit", zap.String("fingerprint", fp))
			return doc, nil
		}
		c.logger.Warn("discarding corrupt extraction cache entry",
			zap.String("fingerprint", fp), zap.Error(err))
	}

	doc, err := c.inner.Extract(ctx, text)
	if err != nil {
		return interview.CaseDocument{}, err
	}
	if err := c.store(path, doc); err != nil {
		// A failed cache write does not fail extraction.
		c.logger.Warn("writing extraction cache entry failed",
			zap.String("fingerprint", fp), zap.Error(err))
	}
	return doc, nil
}

// store writes the entry to a temp file and renames it into place.
func (c *CachingExtractor) store(path string, doc interview.CaseDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(c.dir, ".extraction-*.tmp")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	if err := os.Rename(f.Name(), path); err != nil {
		os.Remove(f.Name())
		return err
	}
	return nil
}

var _ CaseExtractor = (*CachingExtractor)(nil)
