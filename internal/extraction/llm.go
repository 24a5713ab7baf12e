package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
)

// Completer is the slice of the oracle client the LLM extractor needs.
type Completer interface {
	Complete(ctx context.Context, req oracle.Request) (string, error)
}

const (
	llmTemperature = 0.1
	llmMaxTokens   = 4000
)

const llmSystemPrompt = `You are an expert case interview analyst. Your task is to analyze a business case study document and extract the key information in a structured format.

From the provided case study text, you need to:

1. Case Description: Extract the main case description/prompt. This is usually labeled as "PROMPT:", "Case Description:", "Scenario:", or contains phrases like "Your client is..." or "You have been hired to..."

2. Interview Questions: Identify all the interview questions that a candidate would be asked during the case. These might be direct questions ending with "?", calculation tasks (e.g., "Calculate the ROI..."), analysis tasks (e.g., "Analyze the market opportunity..."), or framework questions (e.g., "How would you structure your analysis?").

3. Question Classification: For each question, determine if it is primarily "math" (requires calculations, quantitative analysis) or "analysis" (requires qualitative reasoning, frameworks, strategic thinking).

Return your analysis as a JSON object:

{
  "case_description": "The main case description/scenario text",
  "phase_order": ["01_analysis_framework", "02_math_calculation"],
  "phases": {
    "01_analysis_framework": {
      "name": "01_analysis_framework",
      "question": "The actual question text",
      "rubric": ["Evaluation criteria 1", "Evaluation criteria 2", "Evaluation criteria 3", "Evaluation criteria 4"]
    },
    "02_math_calculation": {
      "name": "02_math_calculation",
      "question": "The calculation question text",
      "rubric": ["Math-specific evaluation criteria 1", "Math-specific evaluation criteria 2", "Math-specific evaluation criteria 3", "Math-specific evaluation criteria 4"]
    }
  }
}

Guidelines:
- Phase names follow the pattern "{number}_{type}_{short_description}" (e.g., "01_analysis_market_entry", "02_math_roi_calculation").
- Math rubrics focus on: identifying figures and assumptions, calculation setup, accuracy, business interpretation.
- Analysis rubrics focus on: structured approach, using case facts, considering multiple angles, clear communication.
- Extract questions in the order they appear in the document.
- If no clear case description is found, use an empty string.
- Ensure all questions are substantial and relevant to the case interview process.`

// LLMExtractor asks the oracle to read the case document and return its
// structure as JSON. When configured with a fallback it degrades to the
// heuristic extractor instead of failing, so ingest keeps working
// through oracle outages.
type LLMExtractor struct {
	completer Completer
	fallback  *HeuristicExtractor
	logger    *zap.Logger
}

// LLMOption configures an LLMExtractor.
type LLMOption func(*LLMExtractor)

// WithFallback degrades to the heuristic extractor on oracle failure.
func WithFallback(h *HeuristicExtractor) LLMOption {
	return func(e *LLMExtractor) {
		e.fallback = h
	}
}

// NewLLMExtractor creates an oracle-backed case extractor.
func NewLLMExtractor(completer Completer, logger *zap.Logger, opts ...LLMOption) (*LLMExtractor, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required for llm extraction")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &LLMExtractor{completer: completer, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract analyzes the document with the oracle and validates the
// returned structure, repairing what it safely can.
func (e *LLMExtractor) Extract(ctx context.Context, text string) (interview.CaseDocument, error) {
	normalized := NormalizeText(text)

	userPrompt := fmt.Sprintf(
		"Please analyze the following case study document and extract the structured information as requested:\n\n---\n%s\n---\n\nReturn only the JSON response with the extracted case information.",
		normalized)

	content, err := e.completer.Complete(ctx, oracle.Request{
		SystemPrompt: llmSystemPrompt,
		UserPrompt:   userPrompt,
		Format:       oracle.FormatJSON,
		Temperature:  llmTemperature,
		MaxTokens:    llmMaxTokens,
	})
	if err != nil {
		return e.degrade(ctx, text, fmt.Errorf("%w: oracle completion: %v", ErrExtractionFailed, err))
	}

	resp, err := parseCaseJSON(content)
	if err != nil {
		return e.degrade(ctx, text, err)
	}
	doc, err := validateAndFix(resp)
	if err != nil {
		return e.degrade(ctx, text, err)
	}
	return doc, nil
}

// degrade runs the heuristic fallback when configured, otherwise
// returns the original failure.
func (e *LLMExtractor) degrade(ctx context.Context, text string, cause error) (interview.CaseDocument, error) {
	if e.fallback == nil {
		return interview.CaseDocument{}, cause
	}
	e.logger.Warn("llm extraction failed, falling back to heuristics", zap.Error(cause))
	return e.fallback.Extract(ctx, text)
}

// caseResponse is the JSON shape the oracle is asked to produce.
type caseResponse struct {
	CaseDescription string                   `json:"case_description"`
	PhaseOrder      []string                 `json:"phase_order"`
	Phases          map[string]phaseResponse `json:"phases"`
}

type phaseResponse struct {
	Name     string   `json:"name"`
	Question string   `json:"question"`
	Rubric   []string `json:"rubric"`
}

// parseCaseJSON strips markdown fences the model sometimes wraps its
// reply in, then unmarshals.
func parseCaseJSON(content string) (caseResponse, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var resp caseResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return caseResponse{}, fmt.Errorf("%w: parsing oracle reply: %v", ErrExtractionFailed, err)
	}
	return resp, nil
}

// validateAndFix repairs recoverable gaps in the oracle's reply: a
// missing phase order is rebuilt from phase names, a missing rubric is
// replaced with the canned one for the phase's kind. A phase without a
// question is unrecoverable.
func validateAndFix(resp caseResponse) (interview.CaseDocument, error) {
	if len(resp.Phases) == 0 {
		return interview.CaseDocument{}, fmt.Errorf("%w: oracle reply has no phases", ErrInvalidDocument)
	}

	order := resp.PhaseOrder
	if len(order) == 0 {
		order = make([]string, 0, len(resp.Phases))
		for name := range resp.Phases {
			order = append(order, name)
		}
		sort.Strings(order)
	}

	doc := interview.CaseDocument{
		Description: resp.CaseDescription,
		PhaseOrder:  order,
		Phases:      make(map[string]interview.PhaseDocument, len(resp.Phases)),
	}
	for name, phase := range resp.Phases {
		if strings.TrimSpace(phase.Question) == "" {
			return interview.CaseDocument{}, fmt.Errorf("%w: phase %q has no question", ErrInvalidDocument, name)
		}
		rubric := phase.Rubric
		if len(rubric) == 0 {
			kind := KindAnalysis
			if strings.Contains(strings.ToLower(name), KindMath) {
				kind = KindMath
			}
			rubric = rubricFor(kind)
		}
		doc.Phases[name] = interview.PhaseDocument{
			Question: phase.Question,
			Rubric:   rubric,
		}
	}
	return doc, nil
}

var _ CaseExtractor = (*LLMExtractor)(nil)
