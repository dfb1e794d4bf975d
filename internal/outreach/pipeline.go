package outreach

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PersonalizationTokenKey names the organization field carrying the
// per-organization randomized token. Generated exactly once per organization
// and reused unchanged across every contact's prompt.
const PersonalizationTokenKey = "Personalization token"

const (
	tokenMin = 3
	tokenMax = 5

	// Fixed score assigned when a draft passes the fast local gate and the
	// critique round-trip is skipped.
	fastPathScore = 85

	// The fast path keeps latency down with a single retry.
	fastPathMaxRetries = 1

	fastGateMinWords = 50
	fastGateMaxWords = 600
)

// Progress step tags.
const (
	StepStart    = "start"
	StepContacts = "contacts"
	StepDraft    = "draft"
	StepOrgDone  = "organization_done"
)

// Options tunes the orchestrator's retry loop.
type Options struct {
	// MaxRetries bounds extra attempts per contact on the full (cost-blind)
	// path. The fast path always uses a bound of 1.
	MaxRetries int

	// RetryDelay is the inter-attempt pause on the full path. The fast path
	// skips it.
	RetryDelay time.Duration

	// FastPath enables the local heuristic gate that skips the critique
	// round-trip for drafts that already look good.
	FastPath bool
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 2
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Second
	}
	return o
}

// Orchestrator drives the per-organization, per-contact pipeline:
// research, generate, critique, score, retry with feedback, finalize.
// Organizations and contacts are processed strictly sequentially; the
// per-organization token and the shared rate-limited capability make
// independent concurrency unsafe without extra coordination.
type Orchestrator struct {
	researcher *Researcher
	writer     *Writer
	qc         *QualityControl
	opts       Options
	log        *zap.Logger

	// tokenFn exists so tests can pin the personalization token.
	tokenFn func() int
}

func NewOrchestrator(researcher *Researcher, writer *Writer, qc *QualityControl, opts Options, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		researcher: researcher,
		writer:     writer,
		qc:         qc,
		opts:       opts.withDefaults(),
		log:        log,
		tokenFn:    func() int { return tokenMin + rand.IntN(tokenMax-tokenMin+1) },
	}
}

// Run processes every organization and returns one result per input. A
// failure in one organization never aborts the run; partial results are
// always returned.
func (o *Orchestrator) Run(ctx context.Context, orgs []Organization, template string, progress ProgressFunc) []OrganizationResult {
	results := make([]OrganizationResult, 0, len(orgs))
	total := len(orgs)

	for idx, org := range orgs {
		o.emit(progress, ProgressEvent{
			OrgIndex: idx + 1,
			OrgTotal: total,
			Step:     StepStart,
			Detail:   "Processing " + org.Name,
		})
		results = append(results, o.processOrganization(ctx, idx+1, total, org, template, progress))
	}
	return results
}

func (o *Orchestrator) processOrganization(ctx context.Context, idx, total int, org Organization, template string, progress ProgressFunc) (result OrganizationResult) {
	result = OrganizationResult{OrganizationName: org.Name, Organization: org}

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("organization pipeline panicked",
				zap.String("organization", org.Name),
				zap.Any("panic", r))
			result = OrganizationResult{
				OrganizationName: org.Name,
				Organization:     org,
				Warning:          fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	// Attach the shared personalization token before any contact work so
	// every contact's prompt sees the same value.
	org = org.WithField(PersonalizationTokenKey, strconv.Itoa(o.tokenFn()))
	result.Organization = org

	contacts := org.Contacts
	if len(contacts) == 0 {
		contacts = o.researcher.Research(ctx, org)
	}
	result.Contacts = contacts

	o.emit(progress, ProgressEvent{
		OrgIndex: idx,
		OrgTotal: total,
		Step:     StepContacts,
		Detail:   fmt.Sprintf("%d contacts for %s", len(contacts), org.Name),
	})

	if len(contacts) == 0 {
		o.log.Warn("no contacts found", zap.String("organization", org.Name))
		result.Warning = "No contacts found"
		return result
	}

	for _, contact := range contacts {
		o.emit(progress, ProgressEvent{
			OrgIndex: idx,
			OrgTotal: total,
			Step:     StepDraft,
			Detail:   "Drafting email to " + contactLabel(contact),
		})
		result.Emails = append(result.Emails, o.processContact(ctx, org, template, contact))
	}

	o.emit(progress, ProgressEvent{
		OrgIndex: idx,
		OrgTotal: total,
		Step:     StepOrgDone,
		Detail:   fmt.Sprintf("%s done: %d emails", org.Name, len(result.Emails)),
	})
	return result
}

// processContact runs the bounded generate-critique-score-retry loop for one
// contact and produces its immutable terminal record.
func (o *Orchestrator) processContact(ctx context.Context, org Organization, template string, contact Contact) EmailAttemptResult {
	maxRetries := o.opts.MaxRetries
	if o.opts.FastPath {
		maxRetries = fastPathMaxRetries
	}

	var retryFeedback string
	attempt := 0
	for {
		attempt++

		draft := o.writer.Generate(ctx, template, org, contact, retryFeedback)
		if draft.Error != "" {
			return EmailAttemptResult{
				Contact:  contact,
				Draft:    draft,
				Attempts: attempt,
				Status:   StatusError,
				Flagged:  true,
			}
		}

		var critique *Critique
		var report QualityReport
		if o.opts.FastPath && o.passesFastGate(draft, contact) {
			report = QualityReport{
				QualityScore:    fastPathScore,
				ComponentScores: map[string]int{},
			}
		} else {
			c := o.writer.Critique(ctx, draft, org)
			critique = &c
			report = o.qc.Score(draft, org, critique)
		}

		if !report.NeedsRetry || attempt > maxRetries {
			status := StatusSuccess
			if report.NeedsRetry {
				// Retries exhausted: keep the result, flag it for a human.
				status = StatusFailed
			}
			return EmailAttemptResult{
				Contact:         contact,
				Draft:           draft,
				Quality:         &report,
				Critique:        critique,
				Attempts:        attempt,
				FinalConfidence: finalConfidence(report.QualityScore, contact.Confidence),
				Status:          status,
				Flagged:         report.NeedsHumanReview || contact.Flagged || status == StatusFailed,
			}
		}

		o.log.Info("quality below threshold, retrying",
			zap.String("organization", org.Name),
			zap.String("recipient", contact.Email),
			zap.Int("score", report.QualityScore),
			zap.Int("attempt", attempt))
		retryFeedback = o.qc.GenerateRetryFeedback(report, critique)

		if !o.opts.FastPath {
			select {
			case <-time.After(o.opts.RetryDelay):
			case <-ctx.Done():
			}
		}
	}
}

// passesFastGate is the inexpensive local check that lets an obviously good
// draft skip the critique round-trip.
func (o *Orchestrator) passesFastGate(draft Draft, contact Contact) bool {
	if strings.TrimSpace(draft.Subject) == "" || strings.TrimSpace(draft.Body) == "" {
		return false
	}

	words := len(strings.Fields(draft.Body))
	if words < fastGateMinWords || words > fastGateMaxWords {
		return false
	}

	h := o.qc.Heuristics()
	bodyLower := strings.ToLower(draft.Body)
	head := strings.ToLower(firstN(draft.Body, greetingWindow))

	if !containsAny(head, h.Greetings) {
		return false
	}
	if first := firstName(contact.Name); first != "" {
		if !strings.Contains(head, strings.ToLower(first)) && !containsAny(head, h.GenericRecipients) {
			return false
		}
	} else if !containsAny(head, h.GenericRecipients) {
		return false
	}

	if !containsAny(bodyLower, h.IdentityMarkers) {
		return false
	}
	if containsAny(bodyLower, h.RefusalPhrases) {
		return false
	}
	return true
}

// finalConfidence blends the written artifact's quality with the contact's
// confidence. Quality of the email matters more than uncertainty about the
// recipient, but both matter.
func finalConfidence(emailQuality, contactConfidence int) int {
	return int(math.Round(0.6*float64(emailQuality) + 0.4*float64(contactConfidence)))
}

func (o *Orchestrator) emit(progress ProgressFunc, ev ProgressEvent) {
	if progress == nil {
		return
	}
	progress(ev)
}

func contactLabel(c Contact) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Email
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
