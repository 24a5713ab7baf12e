package interview

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"
)

// Scoring contract. The threshold and the phase-order walk are local
// logic; the oracle's reply is advisory input only.
const (
	// AdvanceThreshold is the overall score at or above which a
	// response earns advancement to the next phase.
	AdvanceThreshold = 8.0

	// GroundingFactCount is how many fact-store chunks are retrieved
	// to ground an evaluation or coaching prompt.
	GroundingFactCount = 3

	scoringTemperature = 0.3
)

// Evaluation is the stored verdict for the latest attempt at one phase.
type Evaluation struct {
	Phase            string             `json:"phase"`
	Response         string             `json:"response"`
	CriterionScores  map[string]float64 `json:"criterion_scores"`
	OverallScore     float64            `json:"overall_score"`
	ShouldAdvance    bool               `json:"should_advance"`
	Strengths        []string           `json:"strengths"`
	ImprovementAreas []string           `json:"improvement_areas"`
	Feedback         string             `json:"specific_feedback"`
	GroundingFacts   []string           `json:"grounding_facts"`
	Fallback         bool               `json:"fallback"`
	EvaluatedAt      time.Time          `json:"evaluated_at"`
}

func (e *Evaluation) clone() *Evaluation {
	out := *e
	out.CriterionScores = maps.Clone(e.CriterionScores)
	out.Strengths = append([]string(nil), e.Strengths...)
	out.ImprovementAreas = append([]string(nil), e.ImprovementAreas...)
	out.GroundingFacts = append([]string(nil), e.GroundingFacts...)
	return &out
}

const evaluatorSystemPrompt = "You are an expert case interview evaluator. " +
	"Provide detailed, objective evaluations in the specified JSON format."

// buildEvaluationPrompt assembles the scoring request for one response.
func buildEvaluationPrompt(phase Phase, response string, facts []string) string {
	var b strings.Builder
	b.WriteString("You are an expert case interview evaluator. Evaluate this candidate's response objectively.\n\n")
	fmt.Fprintf(&b, "PHASE: %s\n", phase.Name)
	fmt.Fprintf(&b, "QUESTION: %s\n\n", phase.Question)
	b.WriteString("CANDIDATE RESPONSE:\n")
	b.WriteString(response)
	b.WriteString("\n\nEVALUATION CRITERIA:\n")
	for i, criterion := range phase.Rubric {
		fmt.Fprintf(&b, "%d. %s\n", i+1, criterion)
	}
	b.WriteString("\nRELEVANT CASE FACTS:\n")
	b.WriteString(renderFacts(facts))
	b.WriteString("\n\nINSTRUCTIONS:\n")
	b.WriteString("- Evaluate against EACH criterion (1-10 scale)\n")
	b.WriteString("- Overall score = average of criterion scores\n")
	fmt.Fprintf(&b, "- Threshold to advance = %.1f or higher\n", AdvanceThreshold)
	b.WriteString("- Be objective but constructive\n\n")
	b.WriteString("REQUIRED JSON OUTPUT:\n")
	b.WriteString(`{
  "criterion_scores": {"criterion_1": score, "criterion_2": score, ...},
  "overall_score": average_score,
  "should_advance": boolean,
  "strengths": ["strength1", "strength2"],
  "improvement_areas": ["area1", "area2"],
  "specific_feedback": "Detailed feedback for the candidate"
}`)
	return b.String()
}

func renderFacts(facts []string) string {
	if len(facts) == 0 {
		return "No relevant case facts found."
	}
	return strings.Join(facts, "\n")
}

// evaluationReply mirrors the JSON contract in the evaluation prompt.
type evaluationReply struct {
	CriterionScores  map[string]float64 `json:"criterion_scores"`
	OverallScore     float64            `json:"overall_score"`
	ShouldAdvance    bool               `json:"should_advance"`
	Strengths        []string           `json:"strengths"`
	ImprovementAreas []string           `json:"improvement_areas"`
	SpecificFeedback string             `json:"specific_feedback"`
}

// parseEvaluation decodes the oracle's reply, tolerating markdown code
// fences. ok is false when the reply is unusable and the fallback
// verdict applies: either invalid JSON or an overall score outside the
// 1-10 scale the prompt demands.
func parseEvaluation(raw string) (evaluationReply, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var reply evaluationReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		return evaluationReply{}, false
	}
	if reply.OverallScore < 1 || reply.OverallScore > 10 {
		return evaluationReply{}, false
	}
	return reply, true
}

// fallbackEvaluation is the deterministic verdict substituted when the
// oracle call fails or its reply cannot be parsed. It never advances.
func fallbackEvaluation(phase, response string, facts []string, now time.Time) *Evaluation {
	return &Evaluation{
		Phase:            phase,
		Response:         response,
		CriterionScores:  map[string]float64{},
		OverallScore:     5.0,
		ShouldAdvance:    false,
		Strengths:        []string{"Attempted to answer the question"},
		ImprovementAreas: []string{"Response needs more development"},
		Feedback:         "Unable to parse detailed evaluation.",
		GroundingFacts:   facts,
		Fallback:         true,
		EvaluatedAt:      now,
	}
}
