package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

// handleCreateSession starts an interview session against a registered
// case and returns the opening state snapshot.
func (s *Server) handleCreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "invalid request body")
	}
	if req.CaseID == "" {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "case_id is required")
	}

	caseObj, err := s.deps.Cases.Get(req.CaseID)
	if err != nil {
		return s.fail(c, err)
	}

	id := uuid.NewString()
	sess, err := interview.NewSession(id, req.CaseID, caseObj, s.deps.Facts, s.deps.Oracle, s.logger)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.deps.Sessions.Add(sess); err != nil {
		return s.fail(c, err)
	}

	s.logger.Info("session created",
		zap.String("session_id", id),
		zap.String("case_id", req.CaseID))
	return c.JSON(http.StatusCreated, s.sessionSnapshot(sess))
}

// handleListSessions returns the ids of all live sessions.
func (s *Server) handleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, SessionListResponse{Sessions: s.deps.Sessions.IDs()})
}

// handleGetSession returns the session state snapshot.
func (s *Server) handleGetSession(c echo.Context) error {
	sess, err := s.deps.Sessions.Get(c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, s.sessionSnapshot(sess))
}

// handleDeleteSession ends the session and drops it from the registry.
func (s *Server) handleDeleteSession(c echo.Context) error {
	if err := s.deps.Sessions.Remove(c.Request().Context(), c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleEvaluate scores a candidate response against the current
// phase's rubric.
func (s *Server) handleEvaluate(c echo.Context) error {
	sess, err := s.deps.Sessions.Get(c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}

	var req EvaluateRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "invalid request body")
	}

	eval, err := sess.Evaluate(c.Request().Context(), req.Response)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, eval)
}

// handleNext decides the transition out of the current phase based on
// the stored evaluation: advance, coach, or end.
func (s *Server) handleNext(c echo.Context) error {
	sess, err := s.deps.Sessions.Get(c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}

	decision, err := sess.DecideNextAction(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, decision)
}

// handleAdvance moves the session to the next phase, gated on the
// stored evaluation.
func (s *Server) handleAdvance(c echo.Context) error {
	sess, err := s.deps.Sessions.Get(c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}

	next, err := sess.Advance(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, AdvanceResponse{SessionID: sess.ID(), CurrentPhase: next})
}

// handleCoach produces coaching guidance for the current phase.
func (s *Server) handleCoach(c echo.Context) error {
	sess, err := s.deps.Sessions.Get(c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}

	coaching, err := sess.Coach(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, coaching)
}

// handleEnd concludes the interview. Ending an already-ended session is
// a no-op.
func (s *Server) handleEnd(c echo.Context) error {
	sess, err := s.deps.Sessions.Get(c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}

	sess.End(c.Request().Context())
	return c.JSON(http.StatusOK, s.sessionSnapshot(sess))
}

// sessionSnapshot assembles the state view session endpoints return.
func (s *Server) sessionSnapshot(sess *interview.Session) SessionResponse {
	resp := SessionResponse{
		SessionID:  sess.ID(),
		CaseID:     sess.CaseID(),
		Ended:      sess.Ended(),
		PhaseOrder: sess.Case().PhaseOrder(),
		History:    sess.History(),
	}
	if phase, ok := sess.CurrentPhase(); ok {
		resp.CurrentPhase = phase
	}
	if question, ok := sess.CurrentQuestion(); ok {
		resp.Question = question
	}
	return resp
}
