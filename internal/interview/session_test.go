package interview

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/factstore"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
)

// stubFacts plays the fact store. It records the last query and can be
// forced to fail.
type stubFacts struct {
	chunks []factstore.Chunk
	err    error

	gotDoc   string
	gotQuery string
	gotK     int
}

func (f *stubFacts) Search(_ context.Context, documentID, query string, k int) ([]factstore.Chunk, error) {
	f.gotDoc, f.gotQuery, f.gotK = documentID, query, k
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

// scriptOracle returns queued replies in order and records every
// request it sees.
type scriptOracle struct {
	replies  []string
	err      error
	requests []oracle.Request
}

func (o *scriptOracle) Complete(_ context.Context, req oracle.Request) (string, error) {
	o.requests = append(o.requests, req)
	if o.err != nil {
		return "", o.err
	}
	if len(o.replies) == 0 {
		return "", errors.New("oracle script exhausted")
	}
	reply := o.replies[0]
	o.replies = o.replies[1:]
	return reply, nil
}

func (o *scriptOracle) lastRequest(t *testing.T) oracle.Request {
	t.Helper()
	require.NotEmpty(t, o.requests)
	return o.requests[len(o.requests)-1]
}

func twoPhaseCase(t *testing.T) *Case {
	t.Helper()
	c, err := NewCase("A beverage maker faces declining sales.",
		[]string{"intro", "calc"},
		map[string]Phase{
			"intro": {Question: "How would you structure the problem?", Rubric: []string{"Uses a clear framework", "Identifies key drivers"}},
			"calc":  {Question: "Estimate the revenue impact.", Rubric: []string{"Sets up the calculation", "Arrives at a defensible number"}},
		})
	require.NoError(t, err)
	return c
}

func evalReply(overall float64, advance bool) string {
	return fmt.Sprintf(`{"criterion_scores": {"criterion_1": %.1f}, "overall_score": %.1f, "should_advance": %t, "strengths": ["Clear structure"], "improvement_areas": ["Quantify the impact"], "specific_feedback": "Good framing."}`,
		overall, overall, advance)
}

const coachingReply = `{"coaching_message": "Revisit the drivers you named.", "leading_questions": ["What happens to volume if price rises?"], "areas_to_explore": ["Price elasticity"], "encouragement": "Strong start."}`

func newTestSession(t *testing.T, c *Case, facts FactSearcher, orc Oracle) *Session {
	t.Helper()
	s, err := NewSession("sess-1", "case-1", c, facts, orc, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestNewSession_Validation(t *testing.T) {
	c := twoPhaseCase(t)
	facts := &stubFacts{}
	orc := &scriptOracle{}

	tests := []struct {
		name    string
		id      string
		caseID  string
		c       *Case
		facts   FactSearcher
		oracle  Oracle
		wantErr bool
	}{
		{name: "valid", id: "s1", caseID: "c1", c: c, facts: facts, oracle: orc},
		{name: "blank id", id: " ", caseID: "c1", c: c, facts: facts, oracle: orc, wantErr: true},
		{name: "blank case id", id: "s1", caseID: "", c: c, facts: facts, oracle: orc, wantErr: true},
		{name: "nil case", id: "s1", caseID: "c1", c: nil, facts: facts, oracle: orc, wantErr: true},
		{name: "nil facts", id: "s1", caseID: "c1", c: c, facts: nil, oracle: orc, wantErr: true},
		{name: "nil oracle", id: "s1", caseID: "c1", c: c, facts: facts, oracle: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSession(tt.id, tt.caseID, tt.c, tt.facts, tt.oracle, nil)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidSession)
				return
			}
			require.NoError(t, err)
			phase, ok := s.CurrentPhase()
			require.True(t, ok)
			assert.Equal(t, "intro", phase, "session starts at the first phase")
		})
	}
}

func TestSession_EvaluateStoresVerdict(t *testing.T) {
	facts := &stubFacts{chunks: []factstore.Chunk{
		{Text: "Sales fell 12% in the north region."},
		{Text: "A competitor cut prices in March."},
	}}
	orc := &scriptOracle{replies: []string{evalReply(9.0, true)}}
	s := newTestSession(t, twoPhaseCase(t), facts, orc)

	eval, err := s.Evaluate(context.Background(), "I would split revenue into price and volume.")
	require.NoError(t, err)

	assert.Equal(t, "intro", eval.Phase)
	assert.InDelta(t, 9.0, eval.OverallScore, 0.001)
	assert.True(t, eval.ShouldAdvance)
	assert.False(t, eval.Fallback)
	assert.Equal(t, []string{
		"Sales fell 12% in the north region.",
		"A competitor cut prices in March.",
	}, eval.GroundingFacts)

	// Retrieval is keyed on the response, capped at the grounding
	// fact count, against the session's case.
	assert.Equal(t, "case-1", facts.gotDoc)
	assert.Equal(t, "I would split revenue into price and volume.", facts.gotQuery)
	assert.Equal(t, GroundingFactCount, facts.gotK)

	req := orc.lastRequest(t)
	assert.Equal(t, oracle.FormatJSON, req.Format)
	assert.InDelta(t, 0.3, req.Temperature, 0.001)
	assert.Contains(t, req.UserPrompt, "PHASE: intro")
	assert.Contains(t, req.UserPrompt, "1. Uses a clear framework")
	assert.Contains(t, req.UserPrompt, "Sales fell 12% in the north region.")

	stored, ok := s.EvaluationFor("intro")
	require.True(t, ok)
	assert.InDelta(t, 9.0, stored.OverallScore, 0.001)
}

func TestSession_AdvanceFlagIsLocal(t *testing.T) {
	// The oracle claims the candidate should advance despite a score
	// under the threshold. The local threshold wins.
	orc := &scriptOracle{replies: []string{evalReply(7.9, true)}}
	s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, orc)

	eval, err := s.Evaluate(context.Background(), "some response")
	require.NoError(t, err)
	assert.False(t, eval.ShouldAdvance)

	// And the inverse: a passing score advances even if the oracle
	// says otherwise.
	orc.replies = []string{evalReply(8.0, false)}
	eval, err = s.Evaluate(context.Background(), "a better response")
	require.NoError(t, err)
	assert.True(t, eval.ShouldAdvance)
}

func TestSession_EvaluateFallbackOnProse(t *testing.T) {
	orc := &scriptOracle{replies: []string{"The candidate showed promise but lacked rigor."}}
	s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, orc)

	eval, err := s.Evaluate(context.Background(), "my answer")
	require.NoError(t, err, "a malformed reply is not an error")

	assert.True(t, eval.Fallback)
	assert.InDelta(t, 5.0, eval.OverallScore, 0.001)
	assert.False(t, eval.ShouldAdvance)
	assert.Equal(t, "Unable to parse detailed evaluation.", eval.Feedback)
}

func TestSession_EvaluateFallbackOnOracleFailure(t *testing.T) {
	orc := &scriptOracle{err: errors.New("connection refused")}
	s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, orc)

	eval, err := s.Evaluate(context.Background(), "my answer")
	require.NoError(t, err, "oracle failure is absorbed, not surfaced")

	assert.True(t, eval.Fallback)
	assert.False(t, eval.ShouldAdvance)

	// The session remains usable: the fallback verdict drives a coach
	// decision.
	decision, err := s.DecideNextAction(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionCoach, decision.Action)
}

func TestSession_EvaluateDegradesWithoutFacts(t *testing.T) {
	facts := &stubFacts{err: errors.New("store offline")}
	orc := &scriptOracle{replies: []string{evalReply(9.0, true)}}
	s := newTestSession(t, twoPhaseCase(t), facts, orc)

	eval, err := s.Evaluate(context.Background(), "my answer")
	require.NoError(t, err, "fact retrieval failure must not fail the evaluation")

	assert.Empty(t, eval.GroundingFacts)
	assert.Contains(t, orc.lastRequest(t).UserPrompt, "No relevant case facts found.")
}

func TestSession_EvaluateUsageErrors(t *testing.T) {
	s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, &scriptOracle{})

	_, err := s.Evaluate(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	s.End(context.Background())
	_, err = s.Evaluate(context.Background(), "a real answer")
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestSession_ReevaluationOverwrites(t *testing.T) {
	orc := &scriptOracle{replies: []string{evalReply(4.0, false), evalReply(9.0, true)}}
	s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, orc)
	ctx := context.Background()

	_, err := s.Evaluate(ctx, "first try")
	require.NoError(t, err)
	_, err = s.Evaluate(ctx, "second try")
	require.NoError(t, err)

	history := s.History()
	require.Len(t, history, 1, "one evaluation per phase, latest wins")
	assert.Equal(t, "second try", history["intro"].Response)
	assert.InDelta(t, 9.0, history["intro"].OverallScore, 0.001)
}

func TestSession_TwoPhaseWalk(t *testing.T) {
	// Strong intro answer, weak calc answer, then coaching.
	orc := &scriptOracle{replies: []string{
		evalReply(9.0, true),
		evalReply(4.0, false),
		coachingReply,
	}}
	s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, orc)
	ctx := context.Background()

	_, err := s.Evaluate(ctx, "Revenue splits into price and volume; I would examine both.")
	require.NoError(t, err)

	decision, err := s.DecideNextAction(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionAdvance, decision.Action)
	assert.Equal(t, "intro", decision.FromPhase)
	assert.Equal(t, "calc", decision.ToPhase)

	phase, ok := s.CurrentPhase()
	require.True(t, ok)
	assert.Equal(t, "calc", phase)

	question, ok := s.CurrentQuestion()
	require.True(t, ok)
	assert.Equal(t, "Estimate the revenue impact.", question)

	_, err = s.Evaluate(ctx, "Maybe ten percent?")
	require.NoError(t, err)

	decision, err = s.DecideNextAction(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionCoach, decision.Action)

	phase, _ = s.CurrentPhase()
	assert.Equal(t, "calc", phase, "coach decision leaves the phase unchanged")

	coaching, err := s.Coach(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Revisit the drivers you named.", coaching.Message)
	assert.NotEmpty(t, coaching.LeadingQuestions)
	assert.False(t, coaching.Fallback)

	// The coaching prompt resubmits the stored verdict's material.
	req := orc.lastRequest(t)
	assert.Contains(t, req.UserPrompt, "Maybe ten percent?")
	assert.Contains(t, req.UserPrompt, "Quantify the impact")
	assert.Contains(t, req.UserPrompt, "DO NOT REVEAL TO CANDIDATE")
}

func TestSession_DecideRequiresEvaluation(t *testing.T) {
	s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, &scriptOracle{})

	_, err := s.DecideNextAction(context.Background())
	assert.ErrorIs(t, err, ErrNoEvaluation)

	phase, ok := s.CurrentPhase()
	require.True(t, ok)
	assert.Equal(t, "intro", phase, "rejected decision mutates nothing")
}

func TestSession_DecideEndsAfterFinalPhase(t *testing.T) {
	c, err := NewCase("one phase only", []string{"solo"}, map[string]Phase{
		"solo": {Question: "Q?", Rubric: []string{"r"}},
	})
	require.NoError(t, err)

	orc := &scriptOracle{replies: []string{evalReply(9.5, true)}}
	s := newTestSession(t, c, &stubFacts{}, orc)
	ctx := context.Background()

	_, err = s.Evaluate(ctx, "an excellent answer")
	require.NoError(t, err)

	decision, err := s.DecideNextAction(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionEnd, decision.Action)
	assert.Equal(t, "solo", decision.FromPhase)
	assert.Empty(t, decision.ToPhase)
	assert.True(t, s.Ended())
}

func TestSession_AdvanceGating(t *testing.T) {
	ctx := context.Background()

	t.Run("no evaluation", func(t *testing.T) {
		s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, &scriptOracle{})
		_, err := s.Advance(ctx)
		assert.ErrorIs(t, err, ErrNoEvaluation)
	})

	t.Run("not earned", func(t *testing.T) {
		orc := &scriptOracle{replies: []string{evalReply(5.0, false)}}
		s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, orc)
		_, err := s.Evaluate(ctx, "weak answer")
		require.NoError(t, err)

		_, err = s.Advance(ctx)
		assert.ErrorIs(t, err, ErrAdvanceNotEarned)

		phase, _ := s.CurrentPhase()
		assert.Equal(t, "intro", phase)
	})

	t.Run("earned", func(t *testing.T) {
		orc := &scriptOracle{replies: []string{evalReply(9.0, true)}}
		s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, orc)
		_, err := s.Evaluate(ctx, "strong answer")
		require.NoError(t, err)

		next, err := s.Advance(ctx)
		require.NoError(t, err)
		assert.Equal(t, "calc", next)
	})

	t.Run("no next phase", func(t *testing.T) {
		c, err := NewCase("d", []string{"solo"}, map[string]Phase{
			"solo": {Question: "Q?", Rubric: []string{"r"}},
		})
		require.NoError(t, err)

		orc := &scriptOracle{replies: []string{evalReply(9.0, true)}}
		s := newTestSession(t, c, &stubFacts{}, orc)
		_, err = s.Evaluate(ctx, "strong answer")
		require.NoError(t, err)

		_, err = s.Advance(ctx)
		assert.ErrorIs(t, err, ErrNoNextPhase)
		assert.False(t, s.Ended(), "rejected advance must not end the session")
	})
}

func TestSession_CoachRequiresEvaluation(t *testing.T) {
	s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, &scriptOracle{})

	_, err := s.Coach(context.Background())
	assert.ErrorIs(t, err, ErrNoEvaluation)
}

func TestSession_CoachFallback(t *testing.T) {
	orc := &scriptOracle{replies: []string{evalReply(4.0, false), "not json at all"}}
	s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, orc)
	ctx := context.Background()

	_, err := s.Evaluate(ctx, "weak answer")
	require.NoError(t, err)

	coaching, err := s.Coach(ctx)
	require.NoError(t, err)
	assert.True(t, coaching.Fallback)
	assert.Equal(t, "That's a good start! Let's refine your approach.", coaching.Message)
}

func TestSession_CoachRepeatable(t *testing.T) {
	orc := &scriptOracle{replies: []string{evalReply(4.0, false), coachingReply, coachingReply}}
	s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, orc)
	ctx := context.Background()

	_, err := s.Evaluate(ctx, "weak answer")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		coaching, err := s.Coach(ctx)
		require.NoError(t, err)
		assert.False(t, coaching.Fallback)
	}

	phase, ok := s.CurrentPhase()
	require.True(t, ok)
	assert.Equal(t, "intro", phase)
}

func TestSession_TerminalIdempotence(t *testing.T) {
	s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, &scriptOracle{})
	ctx := context.Background()

	s.End(ctx)
	s.End(ctx) // repeat is safe

	assert.True(t, s.Ended())
	_, ok := s.CurrentPhase()
	assert.False(t, ok)
	_, ok = s.CurrentQuestion()
	assert.False(t, ok)

	_, err := s.Evaluate(ctx, "anything")
	assert.ErrorIs(t, err, ErrSessionEnded)
	_, err = s.DecideNextAction(ctx)
	assert.ErrorIs(t, err, ErrSessionEnded)
	_, err = s.Advance(ctx)
	assert.ErrorIs(t, err, ErrSessionEnded)
	_, err = s.Coach(ctx)
	assert.ErrorIs(t, err, ErrSessionEnded)

	_, ok = s.CurrentPhase()
	assert.False(t, ok, "no operation reinstates a phase")
}

func TestSession_HistoryReturnsCopies(t *testing.T) {
	orc := &scriptOracle{replies: []string{evalReply(6.0, false)}}
	s := newTestSession(t, twoPhaseCase(t), &stubFacts{}, orc)

	_, err := s.Evaluate(context.Background(), "an answer")
	require.NoError(t, err)

	history := s.History()
	entry := history["intro"]
	entry.Strengths[0] = "tampered"
	entry.CriterionScores["criterion_1"] = -1

	fresh, ok := s.EvaluationFor("intro")
	require.True(t, ok)
	assert.Equal(t, "Clear structure", fresh.Strengths[0])
	assert.InDelta(t, 6.0, fresh.CriterionScores["criterion_1"], 0.001)
}
