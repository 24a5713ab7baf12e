package interview

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Coaching is the structured guidance returned while the candidate
// stays in the current phase.
type Coaching struct {
	Message          string   `json:"coaching_message"`
	LeadingQuestions []string `json:"leading_questions"`
	AreasToExplore   []string `json:"areas_to_explore"`
	Encouragement    string   `json:"encouragement"`
	Fallback         bool     `json:"fallback"`
}

const coachSystemPrompt = "You are an expert case interview coach. " +
	"Provide strategic guidance that redirects thinking without revealing answers."

// buildCoachingPrompt assembles the guidance request from the stored
// verdict. The grounding facts are included for the coach's eyes only.
func buildCoachingPrompt(phase Phase, eval *Evaluation) string {
	var b strings.Builder
	b.WriteString("You are an expert case interview coach. The candidate's response needs improvement.\n\n")
	fmt.Fprintf(&b, "CURRENT PHASE: %s\n", phase.Name)
	fmt.Fprintf(&b, "QUESTION: %s\n\n", phase.Question)
	b.WriteString("CANDIDATE'S RESPONSE:\n")
	b.WriteString(eval.Response)
	b.WriteString("\n\nRELEVANT CASE FACTS (DO NOT REVEAL TO CANDIDATE):\n")
	b.WriteString(renderFacts(eval.GroundingFacts))
	b.WriteString("\n\nEVALUATION RESULTS:\n")
	fmt.Fprintf(&b, "- Strengths: %s\n", strings.Join(eval.Strengths, "; "))
	fmt.Fprintf(&b, "- Areas for improvement: %s\n", strings.Join(eval.ImprovementAreas, "; "))
	fmt.Fprintf(&b, "- Specific feedback: %s\n", eval.Feedback)
	b.WriteString("\nCOACHING INSTRUCTIONS:\n")
	b.WriteString("- Guide the candidate toward the correct analytical direction\n")
	b.WriteString("- Ask leading questions that help them discover the right approach\n")
	b.WriteString("- Suggest frameworks or thinking methods (not specific answers)\n")
	b.WriteString("- Encourage them to consider aspects they might have missed\n")
	b.WriteString("- DO NOT reveal case facts or give direct answers\n")
	b.WriteString("- BE encouraging but redirect their thinking\n\n")
	b.WriteString("REQUIRED JSON OUTPUT:\n")
	b.WriteString(`{
  "coaching_message": "Encouraging message with strategic redirection",
  "leading_questions": ["question1", "question2"],
  "areas_to_explore": ["area1", "area2"],
  "encouragement": "Positive reinforcement message"
}`)
	return b.String()
}

// parseCoaching decodes the oracle's reply, tolerating markdown code
// fences. ok is false when the reply is unusable: invalid JSON or a
// blank coaching message.
func parseCoaching(raw string) (*Coaching, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var c Coaching
	if err := json.Unmarshal([]byte(cleaned), &c); err != nil {
		return nil, false
	}
	if strings.TrimSpace(c.Message) == "" {
		return nil, false
	}
	return &c, true
}

// fallbackCoaching is the deterministic payload substituted when the
// oracle call fails or its reply cannot be parsed.
func fallbackCoaching() *Coaching {
	return &Coaching{
		Message:          "That's a good start! Let's refine your approach.",
		LeadingQuestions: []string{"What other factors might be important to consider?"},
		AreasToExplore:   []string{"Market dynamics", "Financial implications"},
		Encouragement:    "You're on the right track - keep building on your analysis!",
		Fallback:         true,
	}
}
