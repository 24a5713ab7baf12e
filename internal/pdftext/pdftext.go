// Package pdftext extracts per-page text from PDF documents.
//
// Extraction uses unipdf, which requires a license key. The metered key
// is read from UNIDOC_LICENSE_KEY and applied once per process; without
// it, opening documents still works but extraction will fail at the
// library level.
package pdftext

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"
)

// ErrUnreadable means the input could not be parsed as a PDF.
var ErrUnreadable = errors.New("pdf is unreadable")

const licenseEnvVar = "UNIDOC_LICENSE_KEY"

var (
	licenseOnce sync.Once
	licenseErr  error
)

// applyLicense installs the metered license key. unipdf accepts the key
// process-wide, so this runs once no matter how many extractors exist.
func applyLicense(logger *zap.Logger) error {
	licenseOnce.Do(func() {
		key := os.Getenv(licenseEnvVar)
		if key == "" {
			logger.Warn("UNIDOC_LICENSE_KEY is not set, PDF text extraction may fail")
			return
		}
		licenseErr = license.SetMeteredKey(key)
	})
	return licenseErr
}

// PageExtractor yields the text of each page of a PDF document.
type PageExtractor interface {
	// Pages extracts page texts from a PDF file on disk.
	Pages(path string) ([]string, error)
	// PagesFromReader extracts page texts from an in-memory PDF.
	PagesFromReader(r io.ReaderAt, size int64) ([]string, error)
}

// Extractor reads PDFs with unipdf.
type Extractor struct {
	logger *zap.Logger
}

// New creates a PDF text extractor. It fails only when a license key is
// present but rejected by unipdf.
func New(logger *zap.Logger) (*Extractor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := applyLicense(logger); err != nil {
		return nil, fmt.Errorf("applying unidoc license: %w", err)
	}
	return &Extractor{logger: logger}, nil
}

// Pages extracts the text of every page of the PDF at path, in page
// order. Pages without extractable text yield empty strings.
func (e *Extractor) Pages(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()
	return e.pagesFrom(f)
}

// PagesFromReader is Pages for an in-memory document, as produced by a
// multipart upload.
func (e *Extractor) PagesFromReader(r io.ReaderAt, size int64) ([]string, error) {
	return e.pagesFrom(io.NewSectionReader(r, 0, size))
}

func (e *Extractor) pagesFrom(r io.ReadSeeker) ([]string, error) {
	reader, err := model.NewPdfReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("%w: counting pages: %v", ErrUnreadable, err)
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("%w: reading page %d: %v", ErrUnreadable, i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return nil, fmt.Errorf("%w: extractor for page %d: %v", ErrUnreadable, i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return nil, fmt.Errorf("%w: extracting page %d: %v", ErrUnreadable, i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

var _ PageExtractor = (*Extractor)(nil)
