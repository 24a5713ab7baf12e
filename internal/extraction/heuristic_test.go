package extraction_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/interviewd/internal/extraction"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

// caseFixture is a small but realistic case document: a narrative
// paragraph followed by one qualitative and one quantitative prompt.
const caseFixture = `Your client is FreshFizz, a regional beverage maker based in Lisbon. The company sells flavored sparkling water through grocery chains and has seen sales slip for three straight years while the overall category expanded.

How would you organize your thinking about the decline in sales at FreshFizz?

Calculate the annual revenue impact if FreshFizz raises prices by 5 percent and loses 40000 units of yearly sales.`

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "crlf and cr become lf",
			in:   "first\r\nsecond\rthird",
			want: "first\nsecond\nthird",
		},
		{
			name: "hyphenation breaks rejoined",
			in:   "the mar-\nket is growing",
			want: "the market is growing",
		},
		{
			name: "blank runs collapse to one blank line",
			in:   "alpha\n\n\n\n\nbeta",
			want: "alpha\n\nbeta",
		},
		{
			name: "line trailing space trimmed",
			in:   "alpha   \nbeta\t",
			want: "alpha\nbeta",
		},
		{
			name: "surrounding whitespace trimmed",
			in:   "\n\n  alpha  \n\n",
			want: "alpha",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extraction.NormalizeText(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, extraction.NormalizeText(got), "normalization must be idempotent")
		})
	}
}

func TestHeuristicExtractor_Extract(t *testing.T) {
	h := extraction.NewHeuristicExtractor()

	doc, err := h.Extract(context.Background(), caseFixture)
	require.NoError(t, err)

	assert.Equal(t,
		"Your client is FreshFizz, a regional beverage maker based in Lisbon. The company sells flavored sparkling water through grocery chains and has seen sales slip for three straight years while the overall category expanded.",
		doc.Description)

	require.Equal(t, []string{
		"01_analysis_how_would_you_organize_your_th",
		"02_math_calculate_the_annual_revenue_i",
	}, doc.PhaseOrder)

	framework := doc.Phases["01_analysis_how_would_you_organize_your_th"]
	assert.Equal(t, "How would you organize your thinking about the decline in sales at FreshFizz?", framework.Question)
	require.Len(t, framework.Rubric, 4)
	assert.Contains(t, framework.Rubric[0], "structured, hypothesis-driven")

	calc := doc.Phases["02_math_calculate_the_annual_revenue_i"]
	assert.Equal(t, "Calculate the annual revenue impact if FreshFizz raises prices by 5 percent and loses 40000 units of yearly sales.", calc.Question)
	require.Len(t, calc.Rubric, 4)
	assert.Contains(t, calc.Rubric[2], "computation")

	// The document must survive case validation as-is.
	c, err := interview.CaseFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, c.PhaseCount())
}

func TestHeuristicExtractor_Extract_Deterministic(t *testing.T) {
	h := extraction.NewHeuristicExtractor()

	first, err := h.Extract(context.Background(), caseFixture)
	require.NoError(t, err)
	second, err := h.Extract(context.Background(), caseFixture)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHeuristicExtractor_Extract_NoQuestions(t *testing.T) {
	h := extraction.NewHeuristicExtractor()

	_, err := h.Extract(context.Background(),
		"The quarterly report was filed on time. Everyone went home early.")
	require.Error(t, err)
	assert.ErrorIs(t, err, extraction.ErrNoQuestions)
}

func TestHeuristicExtractor_Extract_FallbackQuestionScan(t *testing.T) {
	// Too short for the block pass (needs six words) but long enough
	// for the whole-text fallback scan (needs five).
	h := extraction.NewHeuristicExtractor()

	doc, err := h.Extract(context.Background(), "Why is profit falling now?")
	require.NoError(t, err)
	require.Len(t, doc.PhaseOrder, 1)

	phase := doc.Phases[doc.PhaseOrder[0]]
	assert.Equal(t, "Why is profit falling now?", phase.Question)
}

func TestHeuristicExtractor_Classification(t *testing.T) {
	tests := []struct {
		name     string
		question string
		wantKind string
	}{
		{
			name:     "math keyword",
			question: "What breakeven point should the new factory be expected to reach?",
			wantKind: "math",
		},
		{
			name:     "digits imply math",
			question: "What happens if 3 of the plants close next year?",
			wantKind: "math",
		},
		{
			name:     "plain qualitative question",
			question: "How should the client think about entering the market?",
			wantKind: "analysis",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := extraction.NewHeuristicExtractor()
			doc, err := h.Extract(context.Background(), tt.question)
			require.NoError(t, err)
			require.Len(t, doc.PhaseOrder, 1)
			assert.True(t, strings.HasPrefix(doc.PhaseOrder[0], "01_"+tt.wantKind+"_"),
				"phase %q should carry kind %q", doc.PhaseOrder[0], tt.wantKind)
		})
	}
}

func TestHeuristicExtractor_NarrativeAfterQuestionContinuesIt(t *testing.T) {
	h := extraction.NewHeuristicExtractor()

	text := "How would you size the bottled tea market in Portugal?\n\n" +
		"Assume the population is split evenly between urban and rural areas."

	doc, err := h.Extract(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, doc.PhaseOrder, 1)

	phase := doc.Phases[doc.PhaseOrder[0]]
	assert.Contains(t, phase.Question, "bottled tea market")
	assert.Contains(t, phase.Question, "split evenly", "trailing narrative should extend the question")
	assert.Empty(t, doc.Description)
}
