package factstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/interviewd/internal/vecindex"
)

const (
	indexSuffix  = ".index"
	chunksSuffix = ".chunks.json"
)

func (s *Service) indexPath(documentID string) string {
	return filepath.Join(s.cfg.DataDir, documentID+indexSuffix)
}

func (s *Service) chunksPath(documentID string) string {
	return filepath.Join(s.cfg.DataDir, documentID+chunksSuffix)
}

// writeArtifacts persists the index and the chunk records for one
// document. Each file is written to a temp path and renamed into place,
// so readers never observe a partially written artifact.
func (s *Service) writeArtifacts(documentID string, index *vecindex.Index, chunks []Chunk) error {
	indexTmp, err := s.writeTemp(func(w io.Writer) error { return index.Encode(w) })
	if err != nil {
		return fmt.Errorf("writing index for %s: %w", documentID, err)
	}

	chunksTmp, err := s.writeTemp(func(w io.Writer) error { return json.NewEncoder(w).Encode(chunks) })
	if err != nil {
		os.Remove(indexTmp)
		return fmt.Errorf("writing chunk records for %s: %w", documentID, err)
	}

	if err := os.Rename(indexTmp, s.indexPath(documentID)); err != nil {
		os.Remove(indexTmp)
		os.Remove(chunksTmp)
		return fmt.Errorf("installing index for %s: %w", documentID, err)
	}
	if err := os.Rename(chunksTmp, s.chunksPath(documentID)); err != nil {
		os.Remove(chunksTmp)
		return fmt.Errorf("installing chunk records for %s: %w", documentID, err)
	}
	return nil
}

func (s *Service) writeTemp(write func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(s.cfg.DataDir, ".factstore-*.tmp")
	if err != nil {
		return "", err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// readArtifacts loads both artifacts for a document. A missing pair
// means the document was never ingested; a half-missing or misaligned
// pair is reported as corruption.
func (s *Service) readArtifacts(documentID string) (*loadedDoc, error) {
	indexFile, indexErr := os.Open(s.indexPath(documentID))
	if indexErr == nil {
		defer indexFile.Close()
	}
	chunksFile, chunksErr := os.Open(s.chunksPath(documentID))
	if chunksErr == nil {
		defer chunksFile.Close()
	}

	switch {
	case indexErr != nil && chunksErr != nil:
		if errors.Is(indexErr, fs.ErrNotExist) && errors.Is(chunksErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
		}
		return nil, fmt.Errorf("opening artifacts for %s: %w", documentID, errors.Join(indexErr, chunksErr))
	case indexErr != nil:
		return nil, fmt.Errorf("%w: %s has chunk records but no index", ErrCorruptArtifacts, documentID)
	case chunksErr != nil:
		return nil, fmt.Errorf("%w: %s has an index but no chunk records", ErrCorruptArtifacts, documentID)
	}

	index, err := vecindex.Decode(indexFile)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding index for %s: %v", ErrCorruptArtifacts, documentID, err)
	}

	var chunks []Chunk
	if err := json.NewDecoder(chunksFile).Decode(&chunks); err != nil {
		return nil, fmt.Errorf("%w: decoding chunk records for %s: %v", ErrCorruptArtifacts, documentID, err)
	}

	if index.Len() != len(chunks) {
		return nil, fmt.Errorf("%w: %s index holds %d vectors but %d chunk records",
			ErrCorruptArtifacts, documentID, index.Len(), len(chunks))
	}
	return &loadedDoc{index: index, chunks: chunks}, nil
}
