package outreach

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/trytheo/outreach/internal/llm"
	"github.com/trytheo/outreach/internal/redact"
)

const (
	critiqueMaxTokens    = 1000
	critiqueTemperature  = 0.3
	critiqueDefaultScore = 5

	// Fallback recipient when a contact has no name or title.
	genericRecipient = "Administrator"
)

// Sender identifies who the emails are written on behalf of.
type Sender struct {
	Organization string `yaml:"organization"`
	URL          string `yaml:"url"`
	Description  string `yaml:"description"`
}

func DefaultSender() Sender {
	return Sender{
		Organization: "Theo",
		URL:          "https://trytheo.org",
		Description:  "an agentic teaching assistant platform",
	}
}

// WriterConfig tunes the draft writer's generation calls.
type WriterConfig struct {
	MaxTokens   int32
	Temperature float32
	Sender      Sender
}

// Writer produces email drafts and self-critiques via the text-generation
// capability. Drafting runs at a higher temperature than critique, so retries
// are expected to vary.
type Writer struct {
	gen         llm.Generator
	maxTokens   int32
	temperature float32
	sender      Sender
	log         *zap.Logger
}

func NewWriter(gen llm.Generator, cfg WriterConfig, log *zap.Logger) *Writer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Sender == (Sender{}) {
		cfg.Sender = DefaultSender()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		gen:         gen,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		sender:      cfg.Sender,
		log:         log,
	}
}

// Generate produces one draft for the contact. A capability failure returns
// a Draft with a populated Error and empty subject/body; the orchestrator
// uses that to short-circuit the contact with an error status.
func (w *Writer) Generate(ctx context.Context, template string, org Organization, contact Contact, retryFeedback string) Draft {
	draft := Draft{
		RecipientEmail:   contact.Email,
		RecipientName:    contact.Name,
		OrganizationName: org.Name,
	}
	if draft.RecipientName == "" {
		draft.RecipientName = genericRecipient
	}

	prompt := w.buildPrompt(template, org, contact, retryFeedback)
	resp, err := w.gen.GenerateText(ctx, llm.Request{
		Prompt:          prompt,
		MaxOutputTokens: w.maxTokens,
		Temperature:     w.temperature,
	})
	if err != nil {
		w.log.Warn("draft generation failed",
			zap.String("organization", org.Name),
			zap.String("recipient", contact.Email),
			zap.String("error", redact.Secrets(err.Error())))
		draft.Error = redact.Secrets(err.Error())
		return draft
	}

	subject, body := w.parseDraftResponse(resp.Text)
	draft.Subject = subject
	draft.Body = body
	return draft
}

func (w *Writer) buildPrompt(template string, org Organization, contact Contact, retryFeedback string) string {
	var orgInfo strings.Builder
	for _, f := range org.Fields {
		fmt.Fprintf(&orgInfo, "- %s: %s\n", f.Key, f.Value)
	}

	contactName := contact.Name
	if contactName == "" {
		contactName = genericRecipient
	}
	contactTitle := contact.Title
	if contactTitle == "" {
		contactTitle = genericRecipient
	}

	feedbackBlock := ""
	if retryFeedback != "" {
		feedbackBlock = fmt.Sprintf("FEEDBACK FROM PREVIOUS ATTEMPT (address these issues):\n%s\n\n", retryFeedback)
	}

	return fmt.Sprintf(`You are writing a cold outreach email on behalf of a student founder from %s, %s (%s).

CRITICAL REQUIREMENTS:
1. Be respectful and professional - you are a student reaching out to senior decision-makers
2. Use accurate information only - do not hallucinate or make up details
3. Follow the template structure and guidelines exactly
4. Maintain a humble, earnest student founder tone
5. Keep the email concise and focused

TEMPLATE AND GUIDELINES:
%s

ORGANIZATION INFORMATION:
%s
RECIPIENT:
- Name: %s
- Title: %s
- Organization: %s

%sGenerate a personalized cold outreach email. Format your response as:

SUBJECT: [Your subject line]

BODY:
[Your email body]

Remember: Be respectful, accurate, and follow the template. You represent a student founder, so the tone should be earnest and professional but not overly formal.`,
		w.sender.Organization, w.sender.Description, w.sender.URL,
		template, orgInfo.String(),
		contactName, contactTitle, org.Name,
		feedbackBlock)
}

// parseDraftResponse extracts SUBJECT:/BODY: markers. Malformed output
// degrades to a best-effort draft; this never fails.
func (w *Writer) parseDraftResponse(text string) (subject, body string) {
	var bodyLines []string
	inBody := false
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		switch {
		case strings.HasPrefix(line, "SUBJECT:"):
			subject = strings.TrimSpace(strings.TrimPrefix(line, "SUBJECT:"))
		case strings.HasPrefix(line, "BODY:"):
			inBody = true
		case inBody:
			bodyLines = append(bodyLines, line)
		}
	}
	body = strings.TrimSpace(strings.Join(bodyLines, "\n"))

	if subject != "" || body != "" {
		return subject, body
	}

	if i := strings.Index(text, "SUBJECT:"); i >= 0 {
		rest := text[i+len("SUBJECT:"):]
		if nl := strings.Index(rest, "\n"); nl >= 0 {
			subject = strings.TrimSpace(rest[:nl])
			body = strings.TrimSpace(strings.ReplaceAll(rest[nl+1:], "BODY:", ""))
		} else {
			subject = strings.TrimSpace(rest)
		}
		return subject, body
	}

	// No markers at all: treat the whole response as the body.
	subject = fmt.Sprintf("Partnership opportunity with %s", w.sender.Organization)
	body = strings.TrimSpace(text)
	return subject, body
}

var critiqueScoreFields = []string{"TONE_SCORE", "ACCURACY_SCORE", "OVERALL_SCORE"}

// Critique asks the capability for a second opinion on a draft. A capability
// failure returns an all-neutral critique tagged with an error marker rather
// than failing the pipeline.
func (w *Writer) Critique(ctx context.Context, draft Draft, org Organization) Critique {
	var orgInfo strings.Builder
	for _, f := range org.Fields {
		fmt.Fprintf(&orgInfo, "- %s: %s\n", f.Key, f.Value)
	}

	prompt := fmt.Sprintf(`Review this cold outreach email for quality issues. Check for:

1. Tone issues (disrespectful, too blunt, overly casual)
2. Factual accuracy (do details match the organization data?)
3. Professionalism (appropriate for a student founder writing to a senior decision-maker)
4. Clarity and conciseness

ORGANIZATION DATA:
%s
EMAIL SUBJECT: %s

EMAIL BODY:
%s

Provide feedback in this format:
ISSUES: [List any problems, or "None" if acceptable]
TONE_SCORE: [1-10, where 10 is perfect]
ACCURACY_SCORE: [1-10, where 10 is perfect]
OVERALL_SCORE: [1-10, where 10 is perfect]
SUGGESTIONS: [How to improve, or "None" if acceptable]`,
		orgInfo.String(), draft.Subject, draft.Body)

	resp, err := w.gen.GenerateText(ctx, llm.Request{
		Prompt:          prompt,
		MaxOutputTokens: critiqueMaxTokens,
		Temperature:     critiqueTemperature,
	})
	if err != nil {
		w.log.Warn("critique failed",
			zap.String("organization", org.Name),
			zap.String("error", redact.Secrets(err.Error())))
		return Critique{
			ToneScore:     critiqueDefaultScore,
			AccuracyScore: critiqueDefaultScore,
			OverallScore:  critiqueDefaultScore,
			Issues:        "Could not critique",
			Unparsed:      append([]string(nil), critiqueScoreFields...),
			Error:         redact.Secrets(err.Error()),
		}
	}

	return parseCritique(resp.Text)
}

func parseCritique(text string) Critique {
	c := Critique{
		Issues:      extractCritiqueField(text, "ISSUES"),
		Suggestions: extractCritiqueField(text, "SUGGESTIONS"),
	}
	c.ToneScore = extractCritiqueScore(text, "TONE_SCORE", &c.Unparsed)
	c.AccuracyScore = extractCritiqueScore(text, "ACCURACY_SCORE", &c.Unparsed)
	c.OverallScore = extractCritiqueScore(text, "OVERALL_SCORE", &c.Unparsed)
	return c
}

// extractCritiqueScore looks for "FIELD: <integer>". Absent fields default
// to 5 and are recorded in unparsed so the default is distinguishable from
// a real neutral review.
func extractCritiqueScore(text, field string, unparsed *[]string) int {
	re := regexp.MustCompile(field + `:\s*(\d+)`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		*unparsed = append(*unparsed, field)
		return critiqueDefaultScore
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		*unparsed = append(*unparsed, field)
		return critiqueDefaultScore
	}
	return n
}

var critiqueFieldLabels = []string{"ISSUES:", "TONE_SCORE:", "ACCURACY_SCORE:", "OVERALL_SCORE:", "SUGGESTIONS:"}

func extractCritiqueField(text, field string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, field+":") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, field+":"))
		// The value sometimes continues on the next line.
		if i+1 < len(lines) && !startsWithAnyLabel(lines[i+1]) {
			value += " " + strings.TrimSpace(lines[i+1])
		}
		return strings.TrimSpace(value)
	}
	return ""
}

func startsWithAnyLabel(line string) bool {
	for _, l := range critiqueFieldLabels {
		if strings.HasPrefix(line, l) {
			return true
		}
	}
	return false
}
