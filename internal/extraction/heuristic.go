package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

// questionLeads are block openings that mark a prompt even without a
// question mark.
var questionLeads = []string{
	"question",
	"prompt",
	"case prompt",
	"case question",
	"analysis",
	"phase",
	"stage",
	"step",
	"section",
	"task",
	"calculation",
	"market sizing",
	"framework",
}

// mathKeywords flag calculation prompts.
var mathKeywords = []string{
	"calculate",
	"calculation",
	"compute",
	"estimate",
	"project",
	"determin",
	"how much",
	"how many",
	"roi",
	"margin",
	"breakeven",
	"%",
	"percent",
	"percentage",
	"growth rate",
	"npv",
	"volume",
	"units",
	"revenue",
	"cost",
}

// analysisKeywords flag qualitative prompts.
var analysisKeywords = []string{
	"explain",
	"describe",
	"outline",
	"structure",
	"recommend",
	"assess",
	"evaluate",
	"analyze",
	"diagnose",
	"framework",
	"approach",
	"strategy",
	"prioritize",
	"consider",
	"discuss",
}

var (
	reHyphenBreak = regexp.MustCompile("-\n([a-z])")
	reBlankRun    = regexp.MustCompile(`\n{3,}`)
	reBlockSplit  = regexp.MustCompile(`\n\s*\n`)
	reWhitespace  = regexp.MustCompile(`\s+`)
	reQuestionSeg = regexp.MustCompile(`[^?]+\?`)
	reSlugStrip   = regexp.MustCompile(`[^a-z0-9]+`)
	reDigit       = regexp.MustCompile(`\d`)
)

// NormalizeText cleans PDF-derived text: line endings, hyphenation
// breaks, blank-line runs, and per-line trailing space. Idempotent.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	// Rejoin words the PDF layout hyphenated across lines.
	text = reHyphenBreak.ReplaceAllString(text, "$1")
	text = reBlankRun.ReplaceAllString(text, "\n\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// HeuristicExtractor finds interview prompts in case text by scanning
// paragraph blocks for question marks and interrogative keywords. It is
// fully deterministic and needs no network access.
type HeuristicExtractor struct{}

// NewHeuristicExtractor creates a deterministic keyword-based extractor.
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

// Extract scans the document text and builds a case: a leading
// narrative description plus one phase per detected question.
func (h *HeuristicExtractor) Extract(ctx context.Context, text string) (interview.CaseDocument, error) {
	if err := ctx.Err(); err != nil {
		return interview.CaseDocument{}, err
	}

	normalized := NormalizeText(text)
	description, questions := separateDescriptionAndQuestions(normalized)
	if len(questions) == 0 {
		return interview.CaseDocument{}, fmt.Errorf(
			"%w: ensure the document contains clear question prompts", ErrNoQuestions)
	}

	doc := interview.CaseDocument{
		Description: description,
		PhaseOrder:  make([]string, 0, len(questions)),
		Phases:      make(map[string]interview.PhaseDocument, len(questions)),
	}
	used := make(map[string]struct{}, len(questions))
	for i, question := range questions {
		name := generatePhaseName(question, i+1, used)
		used[name] = struct{}{}
		doc.PhaseOrder = append(doc.PhaseOrder, name)
		doc.Phases[name] = interview.PhaseDocument{
			Question: question,
			Rubric:   rubricFor(classifyQuestion(question)),
		}
	}
	return doc, nil
}

// separateDescriptionAndQuestions splits normalized text into the
// narrative description and the ordered question list. Blocks before
// the first question accumulate into the description; later narrative
// blocks are treated as continuations of the preceding question.
func separateDescriptionAndQuestions(text string) (string, []string) {
	var descriptionParts, questions []string

	for _, block := range reBlockSplit.Split(text, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if blockIsQuestion(block) {
			extracted := extractQuestionsFromBlock(block)
			switch {
			case len(extracted) > 0:
				questions = append(questions, extracted...)
			case len(questions) > 0:
				questions[len(questions)-1] = strings.TrimSpace(questions[len(questions)-1] + " " + block)
			default:
				descriptionParts = append(descriptionParts, block)
			}
			continue
		}
		if len(questions) > 0 {
			questions[len(questions)-1] = strings.TrimSpace(questions[len(questions)-1] + " " + block)
		} else {
			descriptionParts = append(descriptionParts, block)
		}
	}

	if len(questions) == 0 {
		// Last resort: any "?"-terminated run of at least five words.
		for _, segment := range reQuestionSeg.FindAllString(text, -1) {
			segment = strings.TrimSpace(segment)
			if segment != "" && len(strings.Fields(segment)) >= 5 {
				questions = append(questions, segment)
			}
		}
	}

	return strings.TrimSpace(strings.Join(descriptionParts, " ")), questions
}

// blockIsQuestion reports whether a paragraph block likely holds a
// prompt.
func blockIsQuestion(block string) bool {
	if strings.Contains(block, "?") {
		return true
	}
	lowered := strings.ToLower(block)
	for _, lead := range questionLeads {
		if strings.HasPrefix(lowered, lead) {
			return true
		}
	}
	return containsAny(lowered, mathKeywords) || containsAny(lowered, analysisKeywords)
}

// extractQuestionsFromBlock breaks a block into cleaned questions.
func extractQuestionsFromBlock(block string) []string {
	var questions []string
	parts := strings.Split(block, "?")

	for i, part := range parts {
		chunk := strings.TrimSpace(part)
		if chunk == "" {
			continue
		}
		if i < len(parts)-1 {
			candidate := chunk + "?"
			if isViableQuestion(candidate) {
				questions = append(questions, collapseWhitespace(candidate))
			}
			continue
		}
		// Trailing text without a "?" still counts when it reads like
		// a prompt ("Calculate the annual ROI for this investment").
		if looksLikeQuestion(chunk) && isViableQuestion(chunk) {
			questions = append(questions, collapseWhitespace(chunk))
		}
	}
	return questions
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}

// isViableQuestion bounds accepted prompts to 6..120 words.
func isViableQuestion(question string) bool {
	n := len(strings.Fields(question))
	return n >= 6 && n <= 120
}

func looksLikeQuestion(text string) bool {
	lowered := strings.ToLower(text)
	for _, lead := range questionLeads {
		if strings.HasPrefix(lowered, lead) {
			return true
		}
	}
	return containsAny(lowered, mathKeywords) || containsAny(lowered, analysisKeywords)
}

func containsAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// generatePhaseName derives a unique phase identifier from the question
// content: "03_math_calculate_the_annual_roi".
func generatePhaseName(question string, index int, existing map[string]struct{}) string {
	kind := classifyQuestion(question)

	slug := reSlugStrip.ReplaceAllString(strings.ToLower(question), "_")
	slug = strings.Trim(slug, "_")
	if len(slug) > 30 {
		slug = slug[:30]
	}
	if slug == "" {
		slug = kind
	}

	candidate := fmt.Sprintf("%02d_%s_%s", index, kind, slug)
	for {
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", candidate, len(existing))
	}
}

// classifyQuestion labels a prompt math or analysis. Math keywords win;
// any digit also marks the prompt as quantitative.
func classifyQuestion(question string) string {
	if containsAny(strings.ToLower(question), mathKeywords) {
		return KindMath
	}
	if reDigit.MatchString(question) {
		return KindMath
	}
	return KindAnalysis
}

var _ CaseExtractor = (*HeuristicExtractor)(nil)
