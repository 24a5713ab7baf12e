package server

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/factstore"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

// handleUploadCase ingests a PDF case document: page text extraction,
// case structure extraction, fact indexing, case registration.
// Re-uploading an existing case id replaces the stored case.
func (s *Server) handleUploadCase(c echo.Context) error {
	caseID := strings.TrimSpace(c.FormValue("case_id"))
	if caseID == "" {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "case_id form field is required")
	}
	if err := factstore.ValidateDocumentID(caseID); err != nil {
		return s.fail(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "file form field is required")
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") &&
		fh.Header.Get(echo.HeaderContentType) != "application/pdf" {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "only PDF uploads are supported")
	}

	f, err := fh.Open()
	if err != nil {
		return s.fail(c, err)
	}
	defer f.Close()

	pages, err := s.deps.Pages.PagesFromReader(f, fh.Size)
	if err != nil {
		return s.fail(c, err)
	}

	ctx := c.Request().Context()
	doc, err := s.deps.Extractor.Extract(ctx, strings.Join(pages, "\n\n"))
	if err != nil {
		return s.fail(c, err)
	}
	caseObj, err := interview.CaseFromDocument(doc)
	if err != nil {
		return s.fail(c, err)
	}

	chunks, err := s.deps.Facts.IngestPages(ctx, caseID, pages)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.deps.Cases.Put(caseID, caseObj); err != nil {
		return s.fail(c, err)
	}

	s.logger.Info("case uploaded",
		zap.String("case_id", caseID),
		zap.String("filename", fh.Filename),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", chunks),
		zap.Int("phases", len(doc.PhaseOrder)))

	return c.JSON(http.StatusCreated, UploadCaseResponse{
		CaseID:        caseID,
		ChunksCreated: chunks,
		PhasesFound:   len(doc.PhaseOrder),
		Description:   preview(doc.Description, descriptionPreviewLimit),
	})
}

// handleListCases returns the ids of all registered cases.
func (s *Server) handleListCases(c echo.Context) error {
	return c.JSON(http.StatusOK, CaseListResponse{Cases: s.deps.Cases.IDs()})
}

// handleGetCase returns the full case document.
func (s *Server) handleGetCase(c echo.Context) error {
	caseObj, err := s.deps.Cases.Get(c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	doc := caseObj.Document()
	return c.JSON(http.StatusOK, CaseDetailResponse{
		CaseID:      c.Param("id"),
		Description: doc.Description,
		PhaseOrder:  doc.PhaseOrder,
		Phases:      doc.Phases,
	})
}

// handleDeleteCase removes a case and its fact index.
func (s *Server) handleDeleteCase(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.deps.Cases.Get(id); err != nil {
		return s.fail(c, err)
	}
	s.deps.Cases.Remove(id)
	if err := s.deps.Facts.Remove(id); err != nil {
		return s.fail(c, err)
	}
	s.logger.Info("case deleted", zap.String("case_id", id))
	return c.NoContent(http.StatusNoContent)
}

// handleSearchFacts runs a similarity search over one case's fact
// index. Query parameter q is required; k caps the result count.
func (s *Server) handleSearchFacts(c echo.Context) error {
	id := c.Param("id")
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "query parameter q is required")
	}

	k := 0
	if raw := c.QueryParam("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return errorJSON(c, http.StatusBadRequest, "invalid_request", "query parameter k must be a positive integer")
		}
		k = parsed
	}

	chunks, err := s.deps.Facts.Search(c.Request().Context(), id, query, k)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, FactsResponse{CaseID: id, Query: query, Facts: chunks})
}
