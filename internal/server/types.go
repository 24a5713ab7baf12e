package server

import (
	"github.com/fyrsmithlabs/interviewd/internal/factstore"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// UploadCaseResponse is the response body for POST /v1/cases.
type UploadCaseResponse struct {
	CaseID        string `json:"case_id"`
	ChunksCreated int    `json:"chunks_created"`
	PhasesFound   int    `json:"phases_found"`
	Description   string `json:"description"`
}

// CaseListResponse is the response body for GET /v1/cases.
type CaseListResponse struct {
	Cases []string `json:"cases"`
}

// CaseDetailResponse is the response body for GET /v1/cases/:id.
type CaseDetailResponse struct {
	CaseID      string                             `json:"case_id"`
	Description string                             `json:"description"`
	PhaseOrder  []string                           `json:"phase_order"`
	Phases      map[string]interview.PhaseDocument `json:"phases"`
}

// FactsResponse is the response body for GET /v1/cases/:id/facts.
type FactsResponse struct {
	CaseID string            `json:"case_id"`
	Query  string            `json:"query"`
	Facts  []factstore.Chunk `json:"facts"`
}

// CreateSessionRequest is the request body for POST /v1/sessions.
type CreateSessionRequest struct {
	CaseID string `json:"case_id"`
}

// SessionResponse is the session state snapshot returned by session
// endpoints. CurrentPhase and Question are empty once the session has
// ended.
type SessionResponse struct {
	SessionID    string                          `json:"session_id"`
	CaseID       string                          `json:"case_id"`
	CurrentPhase string                          `json:"current_phase,omitempty"`
	Question     string                          `json:"question,omitempty"`
	Ended        bool                            `json:"ended"`
	PhaseOrder   []string                        `json:"phase_order"`
	History      map[string]interview.Evaluation `json:"history,omitempty"`
}

// SessionListResponse is the response body for GET /v1/sessions.
type SessionListResponse struct {
	Sessions []string `json:"sessions"`
}

// EvaluateRequest is the request body for POST /v1/sessions/:id/evaluate.
type EvaluateRequest struct {
	Response string `json:"response"`
}

// AdvanceResponse is the response body for POST /v1/sessions/:id/advance.
type AdvanceResponse struct {
	SessionID    string `json:"session_id"`
	CurrentPhase string `json:"current_phase"`
}

// descriptionPreviewLimit caps the description echoed back by upload.
const descriptionPreviewLimit = 200

// preview truncates s to at most limit runes.
func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
