package outreach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/trytheo/outreach/internal/llm"
	"github.com/trytheo/outreach/internal/redact"
)

const (
	researchMaxTokens   = 2000
	researchTemperature = 0.3

	// Below this many validated contacts the researcher pads with synthetic
	// placeholders.
	minRealContacts = 2

	syntheticConfidence = 40
	syntheticDomainMax  = 20 // slug length cap for the generated domain
)

// Researcher produces a bounded list of candidate contacts for an
// organization via the search-enabled generation capability. All capability
// failures degrade to zero candidates; the researcher never returns an error
// to the orchestrator.
type Researcher struct {
	gen         llm.Generator
	validator   *Validator
	maxContacts int
	titles      []string
	log         *zap.Logger
}

func NewResearcher(gen llm.Generator, validator *Validator, maxContacts int, h Heuristics, log *zap.Logger) *Researcher {
	if maxContacts <= 0 {
		maxContacts = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Researcher{
		gen:         gen,
		validator:   validator,
		maxContacts: maxContacts,
		titles:      h.Merged().GenericTitles,
		log:         log,
	}
}

// Research returns up to maxContacts validated contacts for the organization.
func (r *Researcher) Research(ctx context.Context, org Organization) []Contact {
	candidates := r.searchAndExtract(ctx, org.Name)

	if len(candidates) > r.maxContacts {
		candidates = candidates[:r.maxContacts]
	}

	validated := make([]Contact, 0, r.maxContacts)
	for _, c := range candidates {
		vc, ok := r.validator.Validate(c, org.Name)
		if !ok {
			continue
		}
		validated = append(validated, vc)
	}

	if len(validated) < minRealContacts {
		r.log.Warn("too few real contacts, padding with generic placeholders",
			zap.String("organization", org.Name),
			zap.Int("found", len(validated)))
		validated = append(validated, r.syntheticContacts(org.Name, len(validated))...)
	}

	if len(validated) > r.maxContacts {
		validated = validated[:r.maxContacts]
	}
	return validated
}

func (r *Researcher) searchAndExtract(ctx context.Context, orgName string) []Contact {
	resp, err := r.gen.GenerateText(ctx, llm.Request{
		Prompt:          researchPrompt(orgName, r.titles),
		MaxOutputTokens: researchMaxTokens,
		Temperature:     researchTemperature,
		EnableWebSearch: true,
	})
	if err != nil {
		r.log.Warn("contact research failed",
			zap.String("organization", orgName),
			zap.String("error", redact.Secrets(err.Error())))
		return nil
	}
	if len(resp.WebSearchQueries) > 0 {
		r.log.Debug("contact research searches",
			zap.String("organization", orgName),
			zap.Strings("queries", resp.WebSearchQueries))
	}

	contacts, err := parseContactsJSON(resp.Text)
	if err != nil {
		r.log.Warn("contact research response unparsable",
			zap.String("organization", orgName),
			zap.Error(err))
		return nil
	}
	return contacts
}

func researchPrompt(orgName string, titles []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find contact information for decision-makers at %q.\n\n", orgName)
	b.WriteString("I need 2-3 key decision-makers such as:\n")
	for _, t := range titles {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	b.WriteString(`
For each person, find:
1. Full name (First Last)
2. Email address
3. Job title

Search the organization's official website and staff directories.

Return your findings as JSON:
{
  "contacts": [
    {
      "name": "John Smith",
      "email": "jsmith@example.edu",
      "title": "Principal"
    }
  ]
}

Only include contacts where you found both a real name and a valid email address. Do not make up or guess information.`)
	return b.String()
}

type contactsEnvelope struct {
	Contacts []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Title string `json:"title"`
	} `json:"contacts"`
}

// parseContactsJSON extracts the strict contacts contract from free text,
// tolerating a fenced code block around the JSON.
func parseContactsJSON(text string) ([]Contact, error) {
	text = stripCodeFence(text)

	var env contactsEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("parse contacts json: %w", err)
	}

	out := make([]Contact, 0, len(env.Contacts))
	for _, c := range env.Contacts {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" {
			continue
		}
		out = append(out, Contact{
			Name:   strings.TrimSpace(c.Name),
			Email:  strings.ToLower(strings.TrimSpace(c.Email)),
			Title:  strings.TrimSpace(c.Title),
			Source: ContactSourceWebSearch,
		})
	}
	return out, nil
}

func stripCodeFence(text string) string {
	if i := strings.Index(text, "```json"); i >= 0 {
		rest := text[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+len("```"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(text)
}

// syntheticContacts builds low-confidence placeholder contacts so downstream
// steps always have someone to address. They are always flagged and carry
// the synthetic source so callers can tell them apart from real contacts.
func (r *Researcher) syntheticContacts(orgName string, existing int) []Contact {
	slug := strings.ToLower(orgName)
	slug = strings.ReplaceAll(slug, " ", "")
	slug = strings.ReplaceAll(slug, "-", "")
	if len(slug) > syntheticDomainMax {
		slug = slug[:syntheticDomainMax]
	}
	domain := slug + institutionalTLD

	var out []Contact
	limit := existing + minRealContacts
	if limit > r.maxContacts {
		limit = r.maxContacts
	}
	for i := existing; i < limit; i++ {
		title := "Administrator"
		if i < len(r.titles) {
			title = r.titles[i]
		}
		out = append(out, Contact{
			Email:      fmt.Sprintf("%s@%s", strings.ToLower(title), domain),
			Title:      title,
			Source:     ContactSourceSynthetic,
			Confidence: syntheticConfidence,
			Flagged:    true,
		})
	}
	return out
}
