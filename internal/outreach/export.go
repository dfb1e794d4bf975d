package outreach

import "strings"

// Flag tags attached to export rows.
const (
	FlagNeedsReview      = "NEEDS_REVIEW"
	FlagUncertainContact = "UNCERTAIN_CONTACT"
)

// ExportRow is one reviewable spreadsheet row per generated email.
type ExportRow struct {
	RecipientEmail    string `json:"recipient_email"`
	RecipientName     string `json:"recipient_name"`
	OrganizationName  string `json:"organization_name"`
	Subject           string `json:"subject"`
	Body              string `json:"body"`
	ConfidenceScore   int    `json:"confidence_score"`
	Flags             string `json:"flags"`
	ContactTitle      string `json:"contact_title"`
	ContactConfidence int    `json:"contact_confidence"`
	EmailQuality      int    `json:"email_quality"`
	Attempts          int    `json:"attempts"`
}

// ExportHeader returns the stable CSV header for export rows.
func ExportHeader() []string {
	return []string{
		"Recipient Email",
		"Recipient Name",
		"Organization Name",
		"Subject",
		"Body",
		"Confidence Score",
		"Flags",
		"Contact Title",
		"Contact Confidence",
		"Email Quality",
		"Attempts",
	}
}

// FlattenResults turns organization results into one export row per terminal
// email. Contacts that ended in a hard generation error produce no row.
func FlattenResults(results []OrganizationResult) []ExportRow {
	var rows []ExportRow
	for _, orgResult := range results {
		for _, er := range orgResult.Emails {
			if er.Status == StatusError {
				continue
			}

			var flags []string
			if er.Flagged {
				flags = append(flags, FlagNeedsReview)
			}
			if er.Contact.Flagged {
				flags = append(flags, FlagUncertainContact)
			}
			quality := 0
			if er.Quality != nil {
				quality = er.Quality.QualityScore
				flags = append(flags, er.Quality.Flags...)
			}

			rows = append(rows, ExportRow{
				RecipientEmail:    er.Draft.RecipientEmail,
				RecipientName:     er.Draft.RecipientName,
				OrganizationName:  orgResult.OrganizationName,
				Subject:           er.Draft.Subject,
				Body:              er.Draft.Body,
				ConfidenceScore:   er.FinalConfidence,
				Flags:             strings.Join(flags, ", "),
				ContactTitle:      er.Contact.Title,
				ContactConfidence: er.Contact.Confidence,
				EmailQuality:      quality,
				Attempts:          er.Attempts,
			})
		}
	}
	return rows
}

// Summary aggregates run-level stats for the UI.
type Summary struct {
	TotalEmails   int `json:"total_emails"`
	FlaggedCount  int `json:"flagged_count"`
	AvgConfidence int `json:"avg_confidence"`
}

func Summarize(rows []ExportRow) Summary {
	s := Summary{TotalEmails: len(rows)}
	if len(rows) == 0 {
		return s
	}
	sum := 0
	for _, r := range rows {
		if r.Flags != "" {
			s.FlaggedCount++
		}
		sum += r.ConfidenceScore
	}
	s.AvgConfidence = sum / len(rows)
	return s
}
