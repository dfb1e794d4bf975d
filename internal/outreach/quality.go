package outreach

import (
	"fmt"
	"strings"
)

// Score deductions and blend weights. Named so tuning stays auditable.
const (
	deductRedFlagPhrase   = 15 // per distinct commanding/urgent phrase
	deductNoPositiveTone  = 20
	deductCasualLanguage  = 20
	deductOrgNameMissing  = 15
	deductCostNotCovered  = 10
	deductMissingSubject  = 30
	deductLongSubject     = 10
	deductEmptyBody       = 50
	deductMissingGreeting = 10
	deductMissingClosing  = 10
	deductTooShort        = 20
	deductTooLong         = 15

	subjectMaxLen   = 80
	greetingWindow  = 100 // chars from the start of the body
	closingWindow   = 200 // chars from the end of the body
	minWordCount    = 50
	maxWordCount    = 400
	critiqueScale   = 10 // critique scores are 1-10, component scores 0-100
	defaultMinScore = 70
)

type blendWeights struct {
	tone, accuracy, structure, length, critique float64
}

var (
	blendWithCritique    = blendWeights{tone: 0.25, accuracy: 0.25, structure: 0.15, length: 0.10, critique: 0.25}
	blendWithoutCritique = blendWeights{tone: 0.35, accuracy: 0.35, structure: 0.20, length: 0.10}
)

// QualityControl applies independent heuristic checks to a draft and blends
// them with any self-critique into a single 0-100 score. Stateless; every
// attempt is scored from scratch.
type QualityControl struct {
	h        Heuristics
	minScore int
}

func NewQualityControl(h Heuristics, minScore int) *QualityControl {
	if minScore <= 0 {
		minScore = defaultMinScore
	}
	return &QualityControl{h: h.Merged(), minScore: minScore}
}

func (q *QualityControl) Heuristics() Heuristics { return q.h }

// Score derives a QualityReport from a draft, the organization record, and
// an optional self-critique.
func (q *QualityControl) Score(draft Draft, org Organization, critique *Critique) QualityReport {
	var issues []string
	var flags []string
	components := map[string]int{}

	toneScore, toneIssues := q.checkTone(draft.Body)
	components["tone"] = toneScore
	if len(toneIssues) > 0 {
		issues = append(issues, toneIssues...)
		flags = append(flags, "tone")
	}

	accScore, accIssues := q.checkAccuracy(draft.Body, org)
	components["accuracy"] = accScore
	if len(accIssues) > 0 {
		issues = append(issues, accIssues...)
		flags = append(flags, "accuracy")
	}

	structScore, structIssues := q.checkStructure(draft.Subject, draft.Body)
	components["structure"] = structScore
	if len(structIssues) > 0 {
		issues = append(issues, structIssues...)
		flags = append(flags, "structure")
	}

	lenScore, lenIssues := q.checkLength(draft.Body)
	components["length"] = lenScore
	issues = append(issues, lenIssues...)

	var quality float64
	if critique != nil {
		composite := float64(critique.ToneScore+critique.AccuracyScore+critique.OverallScore) * critiqueScale / 3
		components["critique"] = int(composite)
		if critique.Issues != "" && critique.Issues != "None" {
			issues = append(issues, "Self-critique: "+critique.Issues)
		}
		w := blendWithCritique
		quality = float64(toneScore)*w.tone +
			float64(accScore)*w.accuracy +
			float64(structScore)*w.structure +
			float64(lenScore)*w.length +
			composite*w.critique
	} else {
		w := blendWithoutCritique
		quality = float64(toneScore)*w.tone +
			float64(accScore)*w.accuracy +
			float64(structScore)*w.structure +
			float64(lenScore)*w.length
	}

	score := int(quality)
	needsRetry := score < q.minScore
	return QualityReport{
		QualityScore:     score,
		ComponentScores:  components,
		Issues:           issues,
		Flags:            flags,
		NeedsRetry:       needsRetry,
		NeedsHumanReview: needsRetry || len(flags) > 1,
	}
}

func (q *QualityControl) checkTone(body string) (int, []string) {
	bodyLower := strings.ToLower(body)
	score := 100
	var issues []string

	var redFlags []string
	for _, phrase := range q.h.ToneRedFlags {
		if strings.Contains(bodyLower, phrase) {
			redFlags = append(redFlags, phrase)
		}
	}
	if len(redFlags) > 0 {
		issues = append(issues, "Potentially disrespectful/blunt phrases: "+strings.Join(redFlags, ", "))
		score -= len(redFlags) * deductRedFlagPhrase
	}

	positive := false
	for _, phrase := range q.h.PositiveToneIndicators {
		if strings.Contains(bodyLower, phrase) {
			positive = true
			break
		}
	}
	if !positive {
		issues = append(issues, "Missing student founder voice (humble, earnest tone)")
		score -= deductNoPositiveTone
	}

	var casual []string
	for _, word := range q.h.CasualWords {
		if strings.Contains(bodyLower, word) {
			casual = append(casual, word)
		}
	}
	if len(casual) > 0 {
		issues = append(issues, "Overly casual language: "+strings.Join(casual, ", "))
		score -= deductCasualLanguage
	}

	return floorZero(score), issues
}

func (q *QualityControl) checkAccuracy(body string, org Organization) (int, []string) {
	bodyLower := strings.ToLower(body)
	score := 100
	var issues []string

	if org.Name != "" && !strings.Contains(bodyLower, strings.ToLower(org.Name)) {
		issues = append(issues, "Organization name not mentioned in email")
		score -= deductOrgNameMissing
	}

	if q.hasCostField(org) {
		covered := false
		for _, kw := range q.h.CostKeywords {
			if strings.Contains(bodyLower, kw) {
				covered = true
				break
			}
		}
		if !covered {
			score -= deductCostNotCovered
		}
	}

	return floorZero(score), issues
}

func (q *QualityControl) hasCostField(org Organization) bool {
	for _, f := range org.Fields {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		keyLower := strings.ToLower(f.Key)
		for _, k := range q.h.CostFieldKeys {
			if strings.Contains(keyLower, k) {
				return true
			}
		}
	}
	return false
}

func (q *QualityControl) checkStructure(subject, body string) (int, []string) {
	score := 100
	var issues []string

	if strings.TrimSpace(subject) == "" {
		issues = append(issues, "Missing subject line")
		score -= deductMissingSubject
	} else if len(subject) > subjectMaxLen {
		issues = append(issues, fmt.Sprintf("Subject line too long (>%d chars)", subjectMaxLen))
		score -= deductLongSubject
	}

	if strings.TrimSpace(body) == "" {
		issues = append(issues, "Empty email body")
		score -= deductEmptyBody
	} else {
		head := strings.ToLower(firstN(body, greetingWindow))
		if !containsAny(head, q.h.Greetings) {
			issues = append(issues, "Missing proper greeting")
			score -= deductMissingGreeting
		}
		tail := strings.ToLower(lastN(body, closingWindow))
		if !containsAny(tail, q.h.Closings) {
			issues = append(issues, "Missing proper closing")
			score -= deductMissingClosing
		}
	}

	return floorZero(score), issues
}

func (q *QualityControl) checkLength(body string) (int, []string) {
	score := 100
	var issues []string

	words := len(strings.Fields(body))
	if words < minWordCount {
		issues = append(issues, fmt.Sprintf("Email too short (%d words, recommend 100-300)", words))
		score -= deductTooShort
	} else if words > maxWordCount {
		issues = append(issues, fmt.Sprintf("Email too long (%d words, recommend 100-300)", words))
		score -= deductTooLong
	}

	return floorZero(score), issues
}

// Sub-scores below this trigger a targeted coaching line in retry feedback.
const feedbackCoachingThreshold = 70

// GenerateRetryFeedback builds the deterministic bullet list fed verbatim
// into the next generation attempt.
func (q *QualityControl) GenerateRetryFeedback(report QualityReport, critique *Critique) string {
	var parts []string

	if len(report.Issues) > 0 {
		parts = append(parts, "ISSUES TO FIX:")
		for _, issue := range report.Issues {
			parts = append(parts, "- "+issue)
		}
	}

	if critique != nil && critique.Suggestions != "" && critique.Suggestions != "None" {
		parts = append(parts, "\nSUGGESTIONS: "+critique.Suggestions)
	}

	if report.ComponentScores["tone"] < feedbackCoachingThreshold {
		parts = append(parts, "\nIMPROVE TONE: Be more respectful and use humble student founder voice")
	}
	if report.ComponentScores["accuracy"] < feedbackCoachingThreshold {
		parts = append(parts, "\nIMPROVE ACCURACY: Ensure all facts match the organization data exactly")
	}

	return strings.Join(parts, "\n")
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
