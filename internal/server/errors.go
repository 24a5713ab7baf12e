package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/embeddings"
	"github.com/fyrsmithlabs/interviewd/internal/extraction"
	"github.com/fyrsmithlabs/interviewd/internal/factstore"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/pdftext"
)

// errorBody is the payload inside the error envelope.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorResponse is the JSON error envelope all failures use.
type errorResponse struct {
	Error errorBody `json:"error"`
}

// errorJSON writes the error envelope with an explicit status and code.
func errorJSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// fail maps a service error onto an HTTP status and writes the error
// envelope. Unrecognized errors become an opaque 500.
func (s *Server) fail(c echo.Context, err error) error {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err))
		return errorJSON(c, status, code, "internal error")
	}
	return errorJSON(c, status, code, err.Error())
}

// statusFor classifies service errors: usage errors map to 400/409,
// missing resources to 404, oversized documents to 413, and missing
// capabilities to 503.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, interview.ErrCaseNotFound),
		errors.Is(err, interview.ErrSessionNotFound),
		errors.Is(err, interview.ErrPhaseNotFound),
		errors.Is(err, factstore.ErrDocumentNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, interview.ErrSessionExists):
		return http.StatusConflict, "already_exists"

	case errors.Is(err, interview.ErrSessionEnded),
		errors.Is(err, interview.ErrNoEvaluation),
		errors.Is(err, interview.ErrAdvanceNotEarned),
		errors.Is(err, interview.ErrNoNextPhase):
		return http.StatusConflict, "conflict"

	case errors.Is(err, interview.ErrEmptyResponse),
		errors.Is(err, interview.ErrInvalidCase),
		errors.Is(err, interview.ErrInvalidSession),
		errors.Is(err, factstore.ErrInvalidDocumentID),
		errors.Is(err, factstore.ErrEmptyDocument),
		errors.Is(err, embeddings.ErrEmptyInput),
		errors.Is(err, extraction.ErrNoQuestions),
		errors.Is(err, extraction.ErrInvalidDocument),
		errors.Is(err, extraction.ErrExtractionFailed),
		errors.Is(err, pdftext.ErrUnreadable):
		return http.StatusBadRequest, "invalid_request"

	case errors.Is(err, factstore.ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge, "document_too_large"

	case errors.Is(err, embeddings.ErrEmbeddingUnavailable),
		errors.Is(err, oracle.ErrCompletionUnavailable):
		return http.StatusServiceUnavailable, "capability_unavailable"

	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
