package interview

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/factstore"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
)

// AbortMessage is the candidate-facing text used when an internal error
// forces the interview to end. Raw errors are never shown to the
// candidate.
const AbortMessage = "The interview has concluded due to an error."

// FactSearcher retrieves grounding facts for a case document.
type FactSearcher interface {
	Search(ctx context.Context, documentID, query string, k int) ([]factstore.Chunk, error)
}

// Oracle produces completions for evaluation and coaching prompts.
type Oracle interface {
	Complete(ctx context.Context, req oracle.Request) (string, error)
}

// Action is the transition DecideNextAction selects.
type Action string

const (
	// ActionAdvance moves the session to the next phase.
	ActionAdvance Action = "advance"
	// ActionCoach keeps the session in the current phase for coaching.
	ActionCoach Action = "coach"
	// ActionEnd concludes the interview after the final phase.
	ActionEnd Action = "end"
)

// Decision pairs the selected action with the phases involved. ToPhase
// is set only for ActionAdvance.
type Decision struct {
	Action    Action `json:"action"`
	FromPhase string `json:"from_phase"`
	ToPhase   string `json:"to_phase,omitempty"`
}

// Session drives one candidate through a case, one phase at a time.
// All state-machine operations serialize on an internal mutex: the
// session is one logical writer, so a slow oracle call in Evaluate
// blocks other operations on the same session but never on other
// sessions.
type Session struct {
	id      string
	caseID  string
	c       *Case
	facts   FactSearcher
	oracle  Oracle
	logger  *zap.Logger
	metrics *Metrics
	clock   func() time.Time

	mu           sync.Mutex
	currentPhase string // empty marks the terminal state
	history      map[string]*Evaluation
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionMetrics sets custom metrics for the session.
func WithSessionMetrics(m *Metrics) SessionOption {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithClock overrides the evaluation timestamp source.
func WithClock(clock func() time.Time) SessionOption {
	return func(s *Session) {
		s.clock = clock
	}
}

// NewSession starts a session at the case's first phase. caseID keys
// fact-store lookups for grounding retrieval.
func NewSession(id, caseID string, c *Case, facts FactSearcher, orc Oracle, logger *zap.Logger, opts ...SessionOption) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidSession)
	}
	if strings.TrimSpace(caseID) == "" {
		return nil, fmt.Errorf("%w: case id is required", ErrInvalidSession)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: case is required", ErrInvalidSession)
	}
	if facts == nil {
		return nil, fmt.Errorf("%w: fact searcher is required", ErrInvalidSession)
	}
	if orc == nil {
		return nil, fmt.Errorf("%w: oracle is required", ErrInvalidSession)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics, _ := NewMetrics(nil)
	s := &Session{
		id:           id,
		caseID:       caseID,
		c:            c,
		facts:        facts,
		oracle:       orc,
		logger:       logger,
		metrics:      metrics,
		clock:        time.Now,
		currentPhase: c.FirstPhase(),
		history:      make(map[string]*Evaluation),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.metrics.RecordSessionStarted(context.Background())
	s.logger.Info("session started",
		zap.String("session_id", s.id),
		zap.String("case_id", s.caseID),
		zap.String("phase", s.currentPhase))
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CaseID returns the id of the case under interview.
func (s *Session) CaseID() string {
	return s.caseID
}

// Case returns the case under interview.
func (s *Session) Case() *Case {
	return s.c
}

// CurrentPhase returns the active phase name; ok is false once the
// session has ended.
func (s *Session) CurrentPhase() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentPhase == "" {
		return "", false
	}
	return s.currentPhase, true
}

// Ended reports whether the session reached the terminal state.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPhase == ""
}

// CurrentQuestion returns the active phase's question; ok is false once
// the session has ended.
func (s *Session) CurrentQuestion() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentPhase == "" {
		return "", false
	}
	p, ok := s.c.PhaseAt(s.currentPhase)
	if !ok {
		return "", false
	}
	return p.Question, true
}

// History returns a copy of the stored evaluations keyed by phase, the
// latest per phase.
func (s *Session) History() map[string]Evaluation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Evaluation, len(s.history))
	for name, eval := range s.history {
		out[name] = *eval.clone()
	}
	return out
}

// EvaluationFor returns the stored evaluation for one phase.
func (s *Session) EvaluationFor(phase string) (Evaluation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eval, ok := s.history[phase]
	if !ok {
		return Evaluation{}, false
	}
	return *eval.clone(), true
}

// Evaluate scores the candidate's response against the current phase's
// rubric, grounded on retrieved case facts, and stores the verdict for
// the phase (overwriting any earlier attempt). Oracle trouble, whether
// a transport failure or an unparseable reply, yields the deterministic
// fallback verdict instead of an error; Evaluate only fails on usage
// errors.
func (s *Session) Evaluate(ctx context.Context, response string) (*Evaluation, error) {
	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("%w: nothing to evaluate", ErrEmptyResponse)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentPhase == "" {
		return nil, fmt.Errorf("%w: cannot evaluate", ErrSessionEnded)
	}
	phase, ok := s.c.PhaseAt(s.currentPhase)
	if !ok {
		return nil, s.abort(ctx, fmt.Errorf("%w: current phase %q missing from case", ErrPhaseNotFound, s.currentPhase))
	}

	facts := s.groundingFacts(ctx, response)
	eval := s.scoreResponse(ctx, phase, response, facts)

	s.history[phase.Name] = eval
	s.metrics.RecordEvaluation(ctx, eval.Phase, eval.OverallScore, eval.Fallback)
	s.logger.Info("evaluation complete",
		zap.String("session_id", s.id),
		zap.String("phase", eval.Phase),
		zap.Float64("overall_score", eval.OverallScore),
		zap.Bool("should_advance", eval.ShouldAdvance),
		zap.Bool("fallback", eval.Fallback))
	return eval.clone(), nil
}

// DecideNextAction reads the stored verdict for the current phase and
// selects the transition: advance to the next phase, end after the
// final phase, or stay put for coaching. Advancing and ending mutate
// state here; a coach decision does not.
func (s *Session) DecideNextAction(ctx context.Context) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentPhase == "" {
		return Decision{}, fmt.Errorf("%w: no decision to make", ErrSessionEnded)
	}
	eval, ok := s.history[s.currentPhase]
	if !ok {
		return Decision{}, fmt.Errorf("%w: evaluate the response first", ErrNoEvaluation)
	}

	from := s.currentPhase
	if !eval.ShouldAdvance {
		return Decision{Action: ActionCoach, FromPhase: from}, nil
	}

	next, ok := s.c.NextPhase(from)
	if !ok {
		s.endLocked(ctx, "all phases complete")
		return Decision{Action: ActionEnd, FromPhase: from}, nil
	}

	s.currentPhase = next
	s.metrics.RecordTransition(ctx, ActionAdvance)
	s.logger.Info("phase advanced",
		zap.String("session_id", s.id),
		zap.String("from", from),
		zap.String("to", next))
	return Decision{Action: ActionAdvance, FromPhase: from, ToPhase: next}, nil
}

// Advance moves to the next phase, gated on the stored verdict: the
// current phase's evaluation must have earned advancement and a next
// phase must exist. On rejection no state changes. Returns the new
// phase name.
func (s *Session) Advance(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentPhase == "" {
		return "", fmt.Errorf("%w: cannot advance", ErrSessionEnded)
	}
	eval, ok := s.history[s.currentPhase]
	if !ok {
		return "", fmt.Errorf("%w: evaluate the response first", ErrNoEvaluation)
	}
	if !eval.ShouldAdvance {
		return "", fmt.Errorf("%w: phase %s scored %.1f", ErrAdvanceNotEarned, s.currentPhase, eval.OverallScore)
	}
	next, ok := s.c.NextPhase(s.currentPhase)
	if !ok {
		return "", fmt.Errorf("%w: %s is the final phase", ErrNoNextPhase, s.currentPhase)
	}

	from := s.currentPhase
	s.currentPhase = next
	s.metrics.RecordTransition(ctx, ActionAdvance)
	s.logger.Info("phase advanced",
		zap.String("session_id", s.id),
		zap.String("from", from),
		zap.String("to", next))
	return next, nil
}

// Coach derives guidance from the stored verdict without changing
// state; it may be called any number of times within a phase. Oracle
// trouble yields the deterministic fallback payload.
func (s *Session) Coach(ctx context.Context) (*Coaching, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentPhase == "" {
		return nil, fmt.Errorf("%w: cannot coach", ErrSessionEnded)
	}
	eval, ok := s.history[s.currentPhase]
	if !ok {
		return nil, fmt.Errorf("%w: evaluate the response first", ErrNoEvaluation)
	}
	phase, ok := s.c.PhaseAt(s.currentPhase)
	if !ok {
		return nil, s.abort(ctx, fmt.Errorf("%w: current phase %q missing from case", ErrPhaseNotFound, s.currentPhase))
	}

	coaching := s.coachFromEvaluation(ctx, phase, eval)
	s.metrics.RecordCoaching(ctx, phase.Name, coaching.Fallback)
	s.logger.Info("coaching produced",
		zap.String("session_id", s.id),
		zap.String("phase", phase.Name),
		zap.Bool("fallback", coaching.Fallback))
	return coaching, nil
}

// End concludes the interview unconditionally. Safe to call repeatedly.
func (s *Session) End(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked(ctx, "ended by caller")
}

// endLocked performs the terminal transition. Callers hold s.mu.
func (s *Session) endLocked(ctx context.Context, reason string) {
	if s.currentPhase == "" {
		return
	}
	last := s.currentPhase
	s.currentPhase = ""
	s.metrics.RecordTransition(ctx, ActionEnd)
	s.metrics.RecordSessionEnded(ctx)
	s.logger.Info("session ended",
		zap.String("session_id", s.id),
		zap.String("last_phase", last),
		zap.String("reason", reason))
}

// abort forces the terminal state after an unexpected internal error.
// The caller receives ErrSessionAborted wrapping the cause; the
// candidate sees only AbortMessage. Callers hold s.mu.
func (s *Session) abort(ctx context.Context, cause error) error {
	s.endLocked(ctx, "internal error")
	s.logger.Error("session aborted",
		zap.String("session_id", s.id),
		zap.Error(cause))
	return fmt.Errorf("%w: %v", ErrSessionAborted, cause)
}

// groundingFacts retrieves up to GroundingFactCount chunks keyed on the
// candidate's response. Retrieval failure degrades to no facts so the
// evaluation can still proceed ungrounded.
func (s *Session) groundingFacts(ctx context.Context, query string) []string {
	chunks, err := s.facts.Search(ctx, s.caseID, query, GroundingFactCount)
	if err != nil {
		s.logger.Warn("grounding fact retrieval failed",
			zap.String("session_id", s.id),
			zap.String("case_id", s.caseID),
			zap.Error(err))
		return nil
	}
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}
	return texts
}

// scoreResponse asks the oracle for a verdict and normalizes it. The
// advance flag is recomputed locally from the overall score; the
// oracle's own flag is advisory.
func (s *Session) scoreResponse(ctx context.Context, phase Phase, response string, facts []string) *Evaluation {
	reply, err := s.oracle.Complete(ctx, oracle.Request{
		SystemPrompt: evaluatorSystemPrompt,
		UserPrompt:   buildEvaluationPrompt(phase, response, facts),
		Format:       oracle.FormatJSON,
		Temperature:  scoringTemperature,
	})
	now := s.clock()
	if err != nil {
		s.logger.Warn("evaluation oracle call failed",
			zap.String("session_id", s.id),
			zap.String("phase", phase.Name),
			zap.Error(err))
		return fallbackEvaluation(phase.Name, response, facts, now)
	}

	parsed, ok := parseEvaluation(reply)
	if !ok {
		s.logger.Warn("evaluation reply unparseable",
			zap.String("session_id", s.id),
			zap.String("phase", phase.Name))
		return fallbackEvaluation(phase.Name, response, facts, now)
	}

	return &Evaluation{
		Phase:            phase.Name,
		Response:         response,
		CriterionScores:  parsed.CriterionScores,
		OverallScore:     parsed.OverallScore,
		ShouldAdvance:    parsed.OverallScore >= AdvanceThreshold,
		Strengths:        parsed.Strengths,
		ImprovementAreas: parsed.ImprovementAreas,
		Feedback:         parsed.SpecificFeedback,
		GroundingFacts:   facts,
		EvaluatedAt:      now,
	}
}

// coachFromEvaluation asks the oracle for coaching guidance.
func (s *Session) coachFromEvaluation(ctx context.Context, phase Phase, eval *Evaluation) *Coaching {
	reply, err := s.oracle.Complete(ctx, oracle.Request{
		SystemPrompt: coachSystemPrompt,
		UserPrompt:   buildCoachingPrompt(phase, eval),
		Format:       oracle.FormatJSON,
		Temperature:  scoringTemperature,
	})
	if err != nil {
		s.logger.Warn("coaching oracle call failed",
			zap.String("session_id", s.id),
			zap.String("phase", phase.Name),
			zap.Error(err))
		return fallbackCoaching()
	}

	parsed, ok := parseCoaching(reply)
	if !ok {
		s.logger.Warn("coaching reply unparseable",
			zap.String("session_id", s.id),
			zap.String("phase", phase.Name))
		return fallbackCoaching()
	}
	return parsed
}
