// Package interview implements the case model and the phase state
// machine that drives a scripted business-case interview.
//
// A Case is the validated playbook: an ordered list of phases, each
// pairing one question with the rubric its answers are scored against.
// A Session walks one candidate through a case phase by phase,
// following a fixed loop: evaluate the response, decide the next
// action, then advance, coach, or end.
//
// # Lifecycle
//
// A session starts at the first phase of the case and moves only
// forward, one phase at a time, until it reaches the terminal state.
// The terminal state is absorbing: no operation can reinstate a phase.
//
//	evaluate → decide → advance ┐
//	   ↑                        │
//	   └──────── coach ←────────┘ (score below threshold)
//
// Evaluate retrieves up to three grounding facts from the fact store,
// submits response, rubric, and facts to the completion oracle, and
// stores the resulting verdict (latest per phase; re-evaluating a phase
// overwrites). The advance decision itself is local: a response
// advances exactly when its overall score reaches AdvanceThreshold.
// The oracle is advisory, never authoritative.
//
// # Failure policy
//
// The oracle is treated as unreliable. Transport failures and
// unparseable replies inside Evaluate and Coach collapse into
// deterministic fallback payloads (marked Fallback: true) so the
// interview always has a decision to act on. Usage errors, such as
// advancing without a qualifying verdict or operating on an ended
// session, are rejected with typed sentinel errors and no state
// change. Unexpected internal errors force the terminal state and
// surface as ErrSessionAborted; the candidate sees only AbortMessage.
//
// # Usage
//
//	c, err := interview.CaseFromDocument(doc)
//	if err != nil {
//	    return err
//	}
//	sess, err := interview.NewSession(uuid.NewString(), caseID, c, store, client, logger)
//	if err != nil {
//	    return err
//	}
//
//	eval, err := sess.Evaluate(ctx, responseText)
//	if err != nil {
//	    return err
//	}
//	decision, err := sess.DecideNextAction(ctx)
//	if err != nil {
//	    return err
//	}
//	if decision.Action == interview.ActionCoach {
//	    coaching, _ := sess.Coach(ctx)
//	    fmt.Println(coaching.Message)
//	}
//
// Each session serializes its own operations; concurrent sessions share
// nothing but the fact store.
package interview
