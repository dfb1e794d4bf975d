package outreach

// Heuristics holds the phrase lists the scorer and the fast gate match
// against. Kept as data rather than inline literals so tuning is auditable
// and testable in isolation from the orchestration logic. Zero-value lists
// fall back to the defaults below.
type Heuristics struct {
	// Commanding/urgent phrases that read as disrespectful in cold outreach.
	ToneRedFlags []string `yaml:"tone_red_flags"`

	// Humble/earnest phrases expected somewhere in the body.
	PositiveToneIndicators []string `yaml:"positive_tone_indicators"`

	// Overly casual language.
	CasualWords []string `yaml:"casual_words"`

	// Organization field keys that indicate a cost-related data point.
	CostFieldKeys []string `yaml:"cost_field_keys"`

	// Body keywords that count as referencing cost when the record carries
	// a cost-related field.
	CostKeywords []string `yaml:"cost_keywords"`

	Greetings []string `yaml:"greetings"`
	Closings  []string `yaml:"closings"`

	// Titles for synthetic placeholder contacts, in fallback order.
	GenericTitles []string `yaml:"generic_titles"`

	// Recipient words accepted as a generic greeting by the fast gate.
	GenericRecipients []string `yaml:"generic_recipients"`

	// Sender-identity markers the fast gate expects in the body.
	IdentityMarkers []string `yaml:"identity_markers"`

	// Refusal/meta-commentary phrases that disqualify a draft from the
	// fast path.
	RefusalPhrases []string `yaml:"refusal_phrases"`
}

func DefaultHeuristics() Heuristics {
	return Heuristics{
		ToneRedFlags: []string{
			"you must", "you need to", "you should", "obviously", "clearly",
			"it is evident", "i demand", "immediately", "asap", "urgently",
			"you have to", "we require", "mandatory",
		},
		PositiveToneIndicators: []string{
			"we believe", "we would love", "we hope", "i am reaching out",
			"i wanted to share", "would you be interested", "we think",
			"we noticed", "we developed", "we created",
		},
		CasualWords: []string{
			"hey", "ya", "gonna", "wanna", "cool", "awesome sauce",
		},
		CostFieldKeys: []string{
			"tuition", "cost", "price", "fees", "budget",
		},
		CostKeywords: []string{
			"tuition", "cost", "budget", "affordability",
		},
		Greetings: []string{"dear", "hello", "hi"},
		Closings: []string{
			"sincerely", "best regards", "best", "thank you", "thanks",
		},
		GenericTitles: []string{
			"Principal", "Dean", "Superintendent", "Director", "Administrator",
		},
		GenericRecipients: []string{
			"administrator", "principal", "dean", "superintendent",
			"director", "team",
		},
		IdentityMarkers: []string{"theo", "trytheo.org"},
		RefusalPhrases: []string{
			"i cannot", "i can't", "i'm unable", "i am unable",
			"as an ai", "i apologize, but", "[insert",
		},
	}
}

// Merged returns h with any empty list replaced by its default, so partial
// YAML overrides keep the remaining defaults.
func (h Heuristics) Merged() Heuristics {
	def := DefaultHeuristics()
	pick := func(v, d []string) []string {
		if len(v) == 0 {
			return d
		}
		return v
	}
	return Heuristics{
		ToneRedFlags:           pick(h.ToneRedFlags, def.ToneRedFlags),
		PositiveToneIndicators: pick(h.PositiveToneIndicators, def.PositiveToneIndicators),
		CasualWords:            pick(h.CasualWords, def.CasualWords),
		CostFieldKeys:          pick(h.CostFieldKeys, def.CostFieldKeys),
		CostKeywords:           pick(h.CostKeywords, def.CostKeywords),
		Greetings:              pick(h.Greetings, def.Greetings),
		Closings:               pick(h.Closings, def.Closings),
		GenericTitles:          pick(h.GenericTitles, def.GenericTitles),
		GenericRecipients:      pick(h.GenericRecipients, def.GenericRecipients),
		IdentityMarkers:        pick(h.IdentityMarkers, def.IdentityMarkers),
		RefusalPhrases:         pick(h.RefusalPhrases, def.RefusalPhrases),
	}
}
