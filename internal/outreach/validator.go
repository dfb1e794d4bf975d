package outreach

import (
	"net/mail"
	"strings"
)

// Confidence boosts applied on top of the base score. Kept as named values so
// threshold tuning stays auditable.
const (
	confidenceBase        = 50
	boostDomainKeyword    = 20 // first org-name keyword (>3 chars) found in the email domain
	boostInstitutionalTLD = 15
	boostHasName          = 10
	boostHasTitle         = 15
	boostSourceMatch      = 10 // attribution text mentions the org's first keyword
	confidenceCap         = 100

	institutionalTLD = ".edu"
)

// Validator normalizes and scores candidate contacts.
type Validator struct {
	minContactConfidence int
}

func NewValidator(minContactConfidence int) *Validator {
	return &Validator{minContactConfidence: minContactConfidence}
}

// Validate checks the contact's email syntax (no deliverability check) and
// computes its confidence score. Returns ok=false when the contact is
// unusable; such candidates are dropped silently by callers.
func (v *Validator) Validate(c Contact, orgName string) (Contact, bool) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email == "" {
		return Contact{}, false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return Contact{}, false
	}
	email = addr.Address
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return Contact{}, false
	}
	domain := email[at+1:]
	if !strings.Contains(domain, ".") {
		return Contact{}, false
	}

	confidence := confidenceBase
	keywords := strings.Fields(strings.ToLower(orgName))

	for _, kw := range keywords {
		if len(kw) > 3 && strings.Contains(domain, kw) {
			confidence += boostDomainKeyword
			break
		}
	}
	if strings.HasSuffix(domain, institutionalTLD) {
		confidence += boostInstitutionalTLD
	}
	if strings.TrimSpace(c.Name) != "" {
		confidence += boostHasName
	}
	if strings.TrimSpace(c.Title) != "" {
		confidence += boostHasTitle
	}
	if len(keywords) > 0 && c.SourceText != "" &&
		strings.Contains(strings.ToLower(c.SourceText), keywords[0]) {
		confidence += boostSourceMatch
	}
	if confidence > confidenceCap {
		confidence = confidenceCap
	}

	c.Email = email
	c.Confidence = confidence
	c.Flagged = confidence < v.minContactConfidence
	return c, true
}
