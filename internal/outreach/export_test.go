package outreach_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trytheo/outreach/internal/outreach"
)

func sampleResults() []outreach.OrganizationResult {
	return []outreach.OrganizationResult{
		{
			OrganizationName: "Lincoln Academy",
			Emails: []outreach.EmailAttemptResult{
				{
					Contact: outreach.Contact{Name: "Jane Doe", Email: "jdoe@lincolnacademy.edu", Title: "Principal", Confidence: 95},
					Draft: outreach.Draft{
						Subject:        "Quick question",
						Body:           "Dear Jane, ...",
						RecipientEmail: "jdoe@lincolnacademy.edu",
						RecipientName:  "Jane Doe",
					},
					Quality:         &outreach.QualityReport{QualityScore: 92},
					Attempts:        1,
					FinalConfidence: 93,
					Status:          outreach.StatusSuccess,
				},
				{
					Contact: outreach.Contact{Email: "dean@lincolnacademy.edu", Title: "Dean", Confidence: 40, Flagged: true},
					Draft: outreach.Draft{
						Subject:        "Quick question",
						Body:           "Dear Dean, ...",
						RecipientEmail: "dean@lincolnacademy.edu",
						RecipientName:  "Administrator",
					},
					Quality:         &outreach.QualityReport{QualityScore: 60, Flags: []string{"tone", "accuracy"}},
					Attempts:        3,
					FinalConfidence: 52,
					Status:          outreach.StatusFailed,
					Flagged:         true,
				},
				{
					Contact: outreach.Contact{Email: "broken@lincolnacademy.edu", Confidence: 80},
					Draft:   outreach.Draft{RecipientEmail: "broken@lincolnacademy.edu", Error: "capability down"},
					Status:  outreach.StatusError,
					Flagged: true,
				},
			},
		},
	}
}

func TestFlattenResults(t *testing.T) {
	rows := outreach.FlattenResults(sampleResults())

	// The hard-error contact produces no row.
	require.Len(t, rows, 2)

	clean := rows[0]
	assert.Equal(t, "jdoe@lincolnacademy.edu", clean.RecipientEmail)
	assert.Equal(t, "Lincoln Academy", clean.OrganizationName)
	assert.Equal(t, 93, clean.ConfidenceScore)
	assert.Equal(t, 95, clean.ContactConfidence)
	assert.Equal(t, 92, clean.EmailQuality)
	assert.Equal(t, 1, clean.Attempts)
	assert.Empty(t, clean.Flags)

	flagged := rows[1]
	assert.Equal(t, "NEEDS_REVIEW, UNCERTAIN_CONTACT, tone, accuracy", flagged.Flags)
	assert.Equal(t, 3, flagged.Attempts)
}

func TestFlattenResults_NoQualityReport(t *testing.T) {
	rows := outreach.FlattenResults([]outreach.OrganizationResult{{
		OrganizationName: "Lincoln Academy",
		Emails: []outreach.EmailAttemptResult{{
			Contact: outreach.Contact{Email: "a@b.org"},
			Draft:   outreach.Draft{RecipientEmail: "a@b.org"},
			Status:  outreach.StatusSuccess,
		}},
	}})

	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].EmailQuality)
}

func TestExportHeaderMatchesRowShape(t *testing.T) {
	// 11 columns, spreadsheet order.
	h := outreach.ExportHeader()
	require.Len(t, h, 11)
	assert.Equal(t, "Recipient Email", h[0])
	assert.Equal(t, "Attempts", h[10])
}

func TestSummarize(t *testing.T) {
	rows := outreach.FlattenResults(sampleResults())
	s := outreach.Summarize(rows)

	assert.Equal(t, 2, s.TotalEmails)
	assert.Equal(t, 1, s.FlaggedCount)
	assert.Equal(t, (93+52)/2, s.AvgConfidence)
}

func TestSummarize_Empty(t *testing.T) {
	s := outreach.Summarize(nil)
	assert.Zero(t, s.TotalEmails)
	assert.Zero(t, s.AvgConfidence)
}
