package outreach

import "strings"

// ContactSource records where a contact came from. Callers must be able to
// tell synthetic placeholders apart from real contacts.
type ContactSource string

const (
	ContactSourceWebSearch ContactSource = "web-search"
	ContactSourceSupplied  ContactSource = "supplied"
	ContactSourceSynthetic ContactSource = "synthetic"
)

// Field is one named value on an organization record. Fields keep their input
// order so prompts are deterministic for a given upload.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Organization is one outreach target. Immutable once loaded; the pipeline
// attaches its personalization token to a copy, never the original.
type Organization struct {
	Name     string    `json:"name"`
	Fields   []Field   `json:"fields"`
	Contacts []Contact `json:"contacts,omitempty"` // pre-supplied; bypasses research when non-empty
}

// Get returns the value for key, matched case-insensitively.
func (o Organization) Get(key string) (string, bool) {
	for _, f := range o.Fields {
		if strings.EqualFold(f.Key, key) {
			return f.Value, true
		}
	}
	return "", false
}

// WithField returns a copy of o with an extra field appended.
func (o Organization) WithField(key, value string) Organization {
	fields := make([]Field, 0, len(o.Fields)+1)
	fields = append(fields, o.Fields...)
	fields = append(fields, Field{Key: key, Value: value})
	o.Fields = fields
	return o
}

// Contact is a candidate recipient at an organization. Never mutated after
// validation.
type Contact struct {
	Name       string        `json:"name,omitempty"`
	Email      string        `json:"email"`
	Title      string        `json:"title,omitempty"`
	SourceText string        `json:"source_text,omitempty"` // attribution (URL or bio) from discovery
	Source     ContactSource `json:"source"`
	Confidence int           `json:"confidence"`
	Flagged    bool          `json:"flagged"`
}

// Draft is one generated email attempt. A populated Error means the
// generation capability failed and subject/body are empty.
type Draft struct {
	Subject          string `json:"subject"`
	Body             string `json:"body"`
	RecipientEmail   string `json:"recipient_email"`
	RecipientName    string `json:"recipient_name"`
	OrganizationName string `json:"organization_name"`
	Error            string `json:"error,omitempty"`
}

// Critique is the writer's LLM second opinion on a draft. Scores are 1-10.
// Unparsed lists score fields that defaulted to 5 because the response did
// not contain them; a defaulted score is not a real neutral review.
type Critique struct {
	ToneScore     int      `json:"tone_score"`
	AccuracyScore int      `json:"accuracy_score"`
	OverallScore  int      `json:"overall_score"`
	Issues        string   `json:"issues"`
	Suggestions   string   `json:"suggestions"`
	Unparsed      []string `json:"unparsed,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// QualityReport is the deterministic heuristic scoring of a draft.
// Recomputed every attempt; never carries state between attempts.
type QualityReport struct {
	QualityScore     int            `json:"quality_score"`
	ComponentScores  map[string]int `json:"component_scores"`
	Issues           []string       `json:"issues"`
	Flags            []string       `json:"flags"`
	NeedsRetry       bool           `json:"needs_retry"`
	NeedsHumanReview bool           `json:"needs_human_review"`
}

// Status of one contact's terminal result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusFailed  = "failed"
)

// EmailAttemptResult is the terminal record for one contact. Immutable once
// the retry loop terminates.
type EmailAttemptResult struct {
	Contact         Contact        `json:"contact"`
	Draft           Draft          `json:"draft"`
	Quality         *QualityReport `json:"quality,omitempty"`
	Critique        *Critique      `json:"critique,omitempty"`
	Attempts        int            `json:"attempts"`
	FinalConfidence int            `json:"final_confidence"`
	Status          string         `json:"status"`
	Flagged         bool           `json:"flagged"`
}

// OrganizationResult aggregates everything produced for one input organization.
type OrganizationResult struct {
	OrganizationName string               `json:"organization_name"`
	Organization     Organization         `json:"organization"`
	Contacts         []Contact            `json:"contacts"`
	Emails           []EmailAttemptResult `json:"emails"`
	Warning          string               `json:"warning,omitempty"`
}

// ProgressEvent is a fire-and-forget notification emitted after each discrete
// pipeline step. Delivery failures never affect pipeline outcomes.
type ProgressEvent struct {
	OrgIndex int    `json:"org_index"` // 1-based
	OrgTotal int    `json:"org_total"`
	Step     string `json:"step"`
	Detail   string `json:"detail"`
}

// ProgressFunc receives progress events. May be nil.
type ProgressFunc func(ProgressEvent)
