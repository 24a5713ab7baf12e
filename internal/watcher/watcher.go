// Package watcher ingests PDF case documents dropped into a directory.
//
// Each *.pdf that appears in (or is rewritten under) the watch
// directory runs through the same pipeline as an uploaded case: page
// text extraction, case structure extraction, fact indexing, and case
// registration. The case id is derived from the file name. Content
// fingerprints skip files whose bytes have not changed, so editor save
// storms and re-copies do not re-ingest.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

var (
	// ErrInvalidConfig indicates the watcher configuration is invalid.
	ErrInvalidConfig = errors.New("invalid watcher config")

	// ErrWatcherFailed indicates the filesystem watcher could not start.
	ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")
)

// PageSource extracts per-page text from a PDF file on disk.
type PageSource interface {
	Pages(path string) ([]string, error)
}

// CaseExtractor derives a structured case from document text.
type CaseExtractor interface {
	Extract(ctx context.Context, text string) (interview.CaseDocument, error)
}

// FactIngestor stores and drops per-page document text in the fact
// index.
type FactIngestor interface {
	IngestPages(ctx context.Context, documentID string, pages []string) (int, error)
	Remove(documentID string) error
}

// CaseRegistrar registers extracted cases for the interview engine.
type CaseRegistrar interface {
	Put(id string, c *interview.Case) error
	Remove(id string)
}

// Watcher runs the watch-directory ingest loop.
type Watcher struct {
	cfg    Config
	pages  PageSource
	cases  CaseExtractor
	facts  FactIngestor
	reg    CaseRegistrar
	logger *zap.Logger

	mu     sync.Mutex
	seen   map[string]string // path -> content fingerprint
	timers map[string]*time.Timer
}

// New creates a watcher for cfg.Dir. The directory is not touched until
// Start.
func New(cfg Config, pages PageSource, cases CaseExtractor, facts FactIngestor, reg CaseRegistrar, logger *zap.Logger) (*Watcher, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pages == nil {
		return nil, fmt.Errorf("%w: page source is required", ErrInvalidConfig)
	}
	if cases == nil {
		return nil, fmt.Errorf("%w: case extractor is required", ErrInvalidConfig)
	}
	if facts == nil {
		return nil, fmt.Errorf("%w: fact ingestor is required", ErrInvalidConfig)
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: case registrar is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		cfg:    cfg,
		pages:  pages,
		cases:  cases,
		facts:  facts,
		reg:    reg,
		logger: logger,
		seen:   make(map[string]string),
		timers: make(map[string]*time.Timer),
	}, nil
}

// Start ingests the PDFs already in the watch directory, then blocks
// processing filesystem events until ctx is cancelled. It returns nil
// on clean shutdown and an error only when the watch cannot be
// established.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.Enabled() {
		w.logger.Info("watch directory not configured, watcher disabled")
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("%w: watching %s: %v", ErrWatcherFailed, w.cfg.Dir, err)
	}
	w.logger.Info("watching directory for case documents", zap.String("dir", w.cfg.Dir))

	// Watch is registered before the scan, so files landing mid-scan
	// still produce events; the fingerprint check absorbs the overlap.
	w.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			w.logger.Info("watcher shutting down")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !isPDF(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				w.schedule(ctx, event.Name)
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				w.drop(event.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// scan ingests every PDF already present in the watch directory.
func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.logger.Warn("initial scan failed", zap.String("dir", w.cfg.Dir), zap.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isPDF(entry.Name()) {
			continue
		}
		w.ingest(ctx, filepath.Join(w.cfg.Dir, entry.Name()))
	}
}

// schedule arms (or re-arms) the debounce timer for path. The ingest
// runs only once the file has been quiet for the full debounce period.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.cfg.Debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// ingest runs the full pipeline for one PDF.
func (w *Watcher) ingest(ctx context.Context, path string) {
	fp, err := fileFingerprint(path)
	if err != nil {
		w.logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
		return
	}

	w.mu.Lock()
	unchanged := w.seen[path] == fp
	w.mu.Unlock()
	if unchanged {
		w.logger.Debug("file unchanged, skipping", zap.String("path", path))
		return
	}

	caseID := caseIDFromPath(path)
	logger := w.logger.With(zap.String("path", path), zap.String("case_id", caseID))

	pages, err := w.pages.Pages(path)
	if err != nil {
		logger.Warn("page extraction failed", zap.Error(err))
		return
	}

	doc, err := w.cases.Extract(ctx, strings.Join(pages, "\n\n"))
	if err != nil {
		logger.Warn("case extraction failed", zap.Error(err))
		return
	}
	c, err := interview.CaseFromDocument(doc)
	if err != nil {
		logger.Warn("extracted case is invalid", zap.Error(err))
		return
	}

	chunks, err := w.facts.IngestPages(ctx, caseID, pages)
	if err != nil {
		logger.Warn("fact ingest failed", zap.Error(err))
		return
	}
	if err := w.reg.Put(caseID, c); err != nil {
		logger.Warn("case registration failed", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.seen[path] = fp
	w.mu.Unlock()

	logger.Info("case ingested from watch directory",
		zap.Int("pages", len(pages)),
		zap.Int("chunks", chunks),
		zap.Int("phases", len(doc.PhaseOrder)))
}

// drop removes the case backed by a deleted or renamed-away file.
func (w *Watcher) drop(path string) {
	w.mu.Lock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
	delete(w.seen, path)
	w.mu.Unlock()

	caseID := caseIDFromPath(path)
	w.reg.Remove(caseID)
	if err := w.facts.Remove(caseID); err != nil {
		w.logger.Debug("fact removal after file delete", zap.String("case_id", caseID), zap.Error(err))
		return
	}
	w.logger.Info("case removed after file delete",
		zap.String("path", path), zap.String("case_id", caseID))
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// idSanitize collapses runs of characters that are not legal in a
// document id.
var idSanitize = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// caseIDFromPath derives a fact-store-safe case id from a file name:
// "Acme Retail.pdf" becomes "Acme_Retail".
func caseIDFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	id := strings.Trim(idSanitize.ReplaceAllString(stem, "_"), "_")
	if id == "" {
		return "case"
	}
	if len(id) > 128 {
		id = id[:128]
	}
	return id
}

// fileFingerprint hashes a file's content.
func fileFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
