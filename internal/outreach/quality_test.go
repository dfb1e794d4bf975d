package outreach_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trytheo/outreach/internal/outreach"
)

const goodBody = "Dear Principal Doe,\n\n" +
	"I am reaching out because we believe the students at Lincoln Academy deserve stronger support. " +
	"We developed a small tool with teachers in mind, and we would love to share it with your team. " +
	"We noticed tuition and budget pressures are rising, and we hope our work can help in a modest way.\n\n" +
	"Thank you for considering this.\n\nSam"

// Exactly 30 words, otherwise clean.
const shortBody = "Dear Jane, I am reaching out because we believe Lincoln Academy can benefit " +
	"from our work. Tuition pressures are real here. We hope to help soon enough. Thank you, Sam"

// 30 words with tone, accuracy and closing problems.
const weakBody = "This note describes our product quickly. It saves time for staff and makes " +
	"reporting simple. Please consider a short call next week to discuss pricing, setup, and support options today."

func newQC() *outreach.QualityControl {
	return outreach.NewQualityControl(outreach.DefaultHeuristics(), 70)
}

func TestQuality_CleanDraftScoresPerfect(t *testing.T) {
	report := newQC().Score(outreach.Draft{Subject: "Quick question", Body: goodBody}, testOrg(), nil)

	assert.Equal(t, 100, report.QualityScore)
	assert.Equal(t, 100, report.ComponentScores["tone"])
	assert.Equal(t, 100, report.ComponentScores["accuracy"])
	assert.Equal(t, 100, report.ComponentScores["structure"])
	assert.Equal(t, 100, report.ComponentScores["length"])
	assert.False(t, report.NeedsRetry)
	assert.False(t, report.NeedsHumanReview)
	assert.Empty(t, report.Flags)
}

func TestQuality_ToneDeductions(t *testing.T) {
	body := "Hey there, you must reply immediately. " + goodBody
	report := newQC().Score(outreach.Draft{Subject: "s", Body: body}, testOrg(), nil)

	// Two distinct red flags (-30) plus casual language (-20).
	assert.Equal(t, 50, report.ComponentScores["tone"])
	assert.Contains(t, report.Flags, "tone")
}

func TestQuality_ToneMissingFounderVoice(t *testing.T) {
	report := newQC().Score(outreach.Draft{Subject: "s", Body: weakBody}, testOrg(), nil)
	assert.Equal(t, 80, report.ComponentScores["tone"])
}

func TestQuality_AccuracyDeductions(t *testing.T) {
	report := newQC().Score(outreach.Draft{Subject: "s", Body: weakBody}, testOrg(), nil)

	// Org name absent (-15); record has a tuition field but the body never
	// touches cost (-10).
	assert.Equal(t, 75, report.ComponentScores["accuracy"])
	assert.Contains(t, report.Flags, "accuracy")
}

func TestQuality_AccuracyNoCostFieldNoDeduction(t *testing.T) {
	org := outreach.Organization{
		Name:   "Lincoln Academy",
		Fields: []outreach.Field{{Key: "Organization name", Value: "Lincoln Academy"}},
	}
	body := strings.Replace(goodBody, "tuition and budget pressures", "workload pressures", 1)
	report := newQC().Score(outreach.Draft{Subject: "s", Body: body}, org, nil)

	assert.Equal(t, 100, report.ComponentScores["accuracy"])
}

func TestQuality_StructureDeductions(t *testing.T) {
	qc := newQC()

	t.Run("missing subject", func(t *testing.T) {
		report := qc.Score(outreach.Draft{Subject: "", Body: goodBody}, testOrg(), nil)
		assert.Equal(t, 70, report.ComponentScores["structure"])
		assert.Contains(t, report.Flags, "structure")
	})

	t.Run("overlong subject", func(t *testing.T) {
		report := qc.Score(outreach.Draft{Subject: strings.Repeat("x", 81), Body: goodBody}, testOrg(), nil)
		assert.Equal(t, 90, report.ComponentScores["structure"])
	})

	t.Run("empty body", func(t *testing.T) {
		report := qc.Score(outreach.Draft{Subject: "s", Body: ""}, testOrg(), nil)
		assert.LessOrEqual(t, report.ComponentScores["structure"], 50)
		assert.True(t, report.NeedsHumanReview)
	})
}

func TestQuality_LengthScoreForThirtyWords(t *testing.T) {
	report := newQC().Score(outreach.Draft{Subject: "Quick question", Body: shortBody}, testOrg(), nil)

	assert.Equal(t, 80, report.ComponentScores["length"])
	// 0.35*100 + 0.35*100 + 0.20*100 + 0.10*80, truncated.
	assert.Equal(t, 98, report.QualityScore)
}

func TestQuality_BlendWithCritique(t *testing.T) {
	critique := &outreach.Critique{ToneScore: 8, AccuracyScore: 9, OverallScore: 8}
	report := newQC().Score(outreach.Draft{Subject: "Quick question", Body: goodBody}, testOrg(), critique)

	// Critique composite: mean(8,9,8)*10 = 83.33.
	assert.Equal(t, 83, report.ComponentScores["critique"])
	// 0.25*100 + 0.25*100 + 0.15*100 + 0.10*100 + 0.25*83.33 = 95.83.
	assert.Equal(t, 95, report.QualityScore)
}

func TestQuality_WeakDraftWithHarshCritiqueNeedsRetry(t *testing.T) {
	critique := &outreach.Critique{ToneScore: 3, AccuracyScore: 3, OverallScore: 3, Issues: "Reads like an ad"}
	report := newQC().Score(outreach.Draft{Subject: "s", Body: weakBody}, testOrg(), critique)

	// tone 80, accuracy 75, structure 90 (no closing), length 80, critique 30:
	// 20 + 18.75 + 13.5 + 8 + 7.5 = 67.75 -> 67.
	assert.Equal(t, 67, report.QualityScore)
	assert.True(t, report.NeedsRetry)
	assert.True(t, report.NeedsHumanReview)
	assert.Contains(t, strings.Join(report.Issues, "\n"), "Self-critique: Reads like an ad")
}

func TestQuality_ScoreAlwaysWithinBounds(t *testing.T) {
	qc := newQC()

	perfect := qc.Score(outreach.Draft{Subject: "Quick question", Body: goodBody}, testOrg(),
		&outreach.Critique{ToneScore: 10, AccuracyScore: 10, OverallScore: 10})
	assert.Equal(t, 100, perfect.QualityScore)

	awful := qc.Score(outreach.Draft{}, testOrg(),
		&outreach.Critique{ToneScore: 1, AccuracyScore: 1, OverallScore: 1, Issues: "Empty"})
	assert.GreaterOrEqual(t, awful.QualityScore, 0)
	assert.LessOrEqual(t, awful.QualityScore, 100)
	assert.True(t, awful.NeedsRetry)
}

func TestQuality_RetryThresholdBoundary(t *testing.T) {
	qc := outreach.NewQualityControl(outreach.DefaultHeuristics(), 99)

	report := qc.Score(outreach.Draft{Subject: "Quick question", Body: shortBody}, testOrg(), nil)
	// Score 98 against threshold 99.
	assert.True(t, report.NeedsRetry)

	report = qc.Score(outreach.Draft{Subject: "Quick question", Body: goodBody}, testOrg(), nil)
	// Score 100 against threshold 99.
	assert.False(t, report.NeedsRetry)
}

func TestQuality_RetryFeedback(t *testing.T) {
	qc := newQC()
	report := qc.Score(outreach.Draft{Subject: "s", Body: weakBody}, testOrg(), nil)
	critique := &outreach.Critique{ToneScore: 4, AccuracyScore: 6, OverallScore: 5, Suggestions: "Open with the recipient's name"}

	feedback := qc.GenerateRetryFeedback(report, critique)

	require.NotEmpty(t, feedback)
	assert.Contains(t, feedback, "ISSUES TO FIX:")
	for _, issue := range report.Issues {
		assert.Contains(t, feedback, "- "+issue)
	}
	assert.Contains(t, feedback, "SUGGESTIONS: Open with the recipient's name")
}

func TestQuality_RetryFeedbackCoachingLines(t *testing.T) {
	qc := newQC()

	report := outreach.QualityReport{
		ComponentScores: map[string]int{"tone": 50, "accuracy": 60},
		Issues:          []string{"Potentially disrespectful/blunt phrases: you must"},
	}
	feedback := qc.GenerateRetryFeedback(report, nil)

	assert.Contains(t, feedback, "IMPROVE TONE:")
	assert.Contains(t, feedback, "IMPROVE ACCURACY:")

	report.ComponentScores = map[string]int{"tone": 90, "accuracy": 90}
	feedback = qc.GenerateRetryFeedback(report, nil)
	assert.NotContains(t, feedback, "IMPROVE TONE:")
	assert.NotContains(t, feedback, "IMPROVE ACCURACY:")
}
