package extraction

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

// Extraction errors.
var (
	// ErrNoQuestions means the document text contained nothing that
	// reads as an interview prompt.
	ErrNoQuestions = errors.New("no interview questions found in document")
	// ErrExtractionFailed wraps oracle transport or parse failures.
	ErrExtractionFailed = errors.New("case extraction failed")
	// ErrInvalidDocument wraps structural problems in an extracted case.
	ErrInvalidDocument = errors.New("extracted case document is invalid")
)

// Provider names accepted by Config.Provider.
const (
	ProviderHeuristic = "heuristic"
	ProviderLLM       = "llm"
)

// Question kinds used in phase names and rubric selection.
const (
	KindMath     = "math"
	KindAnalysis = "analysis"
)

// CaseExtractor turns the plain text of a case document into the
// structured case the interview engine runs on.
type CaseExtractor interface {
	// Extract analyzes document text and returns the case structure.
	Extract(ctx context.Context, text string) (interview.CaseDocument, error)
}

// Config holds extraction configuration.
type Config struct {
	// Provider selects the extraction strategy: "heuristic" or "llm".
	Provider string `koanf:"provider"`

	// CacheDir stores extraction results keyed by document fingerprint.
	// Empty disables the cache.
	CacheDir string `koanf:"cache_dir"`

	// LLMFallback lets the llm provider fall back to the heuristic
	// extractor when the oracle is unavailable or returns garbage.
	LLMFallback bool `koanf:"llm_fallback"`
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderHeuristic
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderHeuristic, ProviderLLM:
		return nil
	default:
		return fmt.Errorf("unknown extraction provider: %q", c.Provider)
	}
}

// mathRubric is the canned rubric for calculation questions.
func mathRubric() []string {
	return []string{
		"Identifies the relevant figures, units, and assumptions from the case facts.",
		"Sets up the calculation with a clear structure before solving.",
		"Executes each computation accurately and shows intermediate steps.",
		"Interprets the numerical result within the client's business context.",
	}
}

// analysisRubric is the canned rubric for qualitative questions.
func analysisRubric() []string {
	return []string{
		"Applies a structured, hypothesis-driven approach to the question.",
		"Incorporates pertinent case facts and clarifying data points.",
		"Considers multiple angles, risks, and trade-offs before concluding.",
		"Communicates insights crisply and ties them to business impact.",
	}
}

// rubricFor returns the canned rubric for a question kind.
func rubricFor(kind string) []string {
	if kind == KindMath {
		return mathRubric()
	}
	return analysisRubric()
}
