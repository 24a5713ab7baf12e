package factstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/vecindex"
)

// Service stores chunked documents on disk and answers similarity
// queries against them. One Service may manage many documents; each
// document is keyed by caller-chosen id.
type Service struct {
	cfg      Config
	embedder Embedder
	splitter Splitter
	logger   *zap.Logger

	mu   sync.Mutex
	docs map[string]*document
}

// document serializes access to one document's artifacts. Searches take
// the read lock; ingest and removal take the write lock.
type document struct {
	mu     sync.RWMutex
	loaded *loadedDoc
}

// loadedDoc is an immutable snapshot of a document's index and chunk
// records. Mutations install a fresh snapshot rather than editing the
// current one, so in-flight searches keep a consistent view.
type loadedDoc struct {
	index  *vecindex.Index
	chunks []Chunk
}

// New creates a fact store rooted at cfg.DataDir, creating the
// directory if needed.
func New(cfg Config, embedder Embedder, splitter Splitter, logger *zap.Logger) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if splitter == nil {
		return nil, fmt.Errorf("%w: splitter is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &Service{
		cfg:      cfg,
		embedder: embedder,
		splitter: splitter,
		logger:   logger,
		docs:     make(map[string]*document),
	}, nil
}

// Ingest chunks, embeds and indexes rawText under documentID, replacing
// any previously stored content for that id.
func (s *Service) Ingest(ctx context.Context, documentID, rawText string) (int, error) {
	return s.IngestPages(ctx, documentID, []string{rawText})
}

// IngestPages is Ingest for pre-paginated input. Chunking runs per page
// so every chunk record carries its 1-based page number. The document
// becomes visible to Search only after both artifacts are on disk.
func (s *Service) IngestPages(ctx context.Context, documentID string, pages []string) (count int, err error) {
	start := time.Now()
	defer func() { observeIngest(time.Since(start), count, err) }()

	if err = ValidateDocumentID(documentID); err != nil {
		return 0, err
	}

	var total int64
	for _, page := range pages {
		total += int64(len(page))
	}
	if total > s.cfg.MaxDocumentBytes {
		return 0, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrDocumentTooLarge, total, s.cfg.MaxDocumentBytes)
	}

	var chunks []Chunk
	for pageIdx, page := range pages {
		for _, seg := range s.splitter.Chunk(page) {
			chunks = append(chunks, Chunk{
				ID:         uuid.NewString(),
				DocumentID: documentID,
				Page:       pageIdx + 1,
				Text:       seg.Text,
				TokenStart: seg.Span.Start,
				TokenEnd:   seg.Span.End,
			})
		}
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptyDocument, documentID)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	// Embedding happens before any lock is taken; a failing provider
	// must leave previously stored artifacts untouched.
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding document %s: %w", documentID, err)
	}

	index, err := vecindex.Build(vectors)
	if err != nil {
		return 0, fmt.Errorf("indexing document %s: %w", documentID, err)
	}

	doc := s.doc(documentID)
	doc.mu.Lock()
	defer doc.mu.Unlock()

	if err = s.writeArtifacts(documentID, index, chunks); err != nil {
		return 0, err
	}
	doc.loaded = &loadedDoc{index: index, chunks: chunks}

	s.logger.Info("document ingested",
		zap.String("document_id", documentID),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// Search embeds query and returns the k most similar chunks of the
// document, most similar first. k <= 0 selects the configured default.
func (s *Service) Search(ctx context.Context, documentID, query string, k int) (_ []Chunk, err error) {
	start := time.Now()
	defer func() { observeSearch(time.Since(start), err) }()

	if err = ValidateDocumentID(documentID); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.cfg.DefaultK
	}

	snapshot, err := s.loadDocument(documentID)
	if err != nil {
		return nil, err
	}

	// The embedding call runs outside the document lock; the snapshot
	// stays valid even if a concurrent ingest replaces the document.
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := snapshot.index.Search(vector, k)
	if err != nil {
		return nil, fmt.Errorf("searching document %s: %w", documentID, err)
	}

	results := make([]Chunk, 0, len(hits))
	for _, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(snapshot.chunks) {
			return nil, fmt.Errorf("%w: hit position %d out of range for %s", ErrCorruptArtifacts, hit.Position, documentID)
		}
		results = append(results, snapshot.chunks[hit.Position])
	}
	return results, nil
}

// Remove deletes the document's artifacts and evicts it from the cache.
// Removing an unknown document is a no-op.
func (s *Service) Remove(documentID string) error {
	if err := ValidateDocumentID(documentID); err != nil {
		return err
	}

	doc := s.doc(documentID)
	doc.mu.Lock()
	for _, path := range []string{s.indexPath(documentID), s.chunksPath(documentID)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			doc.mu.Unlock()
			return fmt.Errorf("removing artifact for %s: %w", documentID, err)
		}
	}
	doc.loaded = nil
	doc.mu.Unlock()

	s.mu.Lock()
	delete(s.docs, documentID)
	s.mu.Unlock()

	s.logger.Info("document removed", zap.String("document_id", documentID))
	return nil
}

// Documents lists the ids of every document with artifacts on disk.
func (s *Service) Documents() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("listing data dir: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), chunksSuffix); ok {
			ids = append(ids, name)
		}
	}
	return ids, nil
}

// doc returns the lock entry for documentID, creating it if absent.
func (s *Service) doc(documentID string) *document {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[documentID]
	if !ok {
		d = &document{}
		s.docs[documentID] = d
	}
	return d
}

// loadDocument returns the current snapshot for documentID, reading the
// artifacts from disk on first access.
func (s *Service) loadDocument(documentID string) (*loadedDoc, error) {
	doc := s.doc(documentID)

	doc.mu.RLock()
	if doc.loaded != nil {
		snapshot := doc.loaded
		doc.mu.RUnlock()
		observeCache(true)
		return snapshot, nil
	}
	doc.mu.RUnlock()

	doc.mu.Lock()
	defer doc.mu.Unlock()
	if doc.loaded != nil {
		observeCache(true)
		return doc.loaded, nil
	}

	observeCache(false)
	snapshot, err := s.readArtifacts(documentID)
	if err != nil {
		return nil, err
	}
	doc.loaded = snapshot
	s.logger.Debug("document loaded from disk",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(snapshot.chunks)))
	return snapshot, nil
}
