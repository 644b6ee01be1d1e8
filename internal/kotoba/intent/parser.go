package intent

import (
	"regexp"
	"strings"
)

// rule binds a pattern to an intent name and its entity extractors. The
// rule table stays data-like; all control flow lives in Parse.
type rule struct {
	pattern  *regexp.Regexp
	name     string
	entities map[string]extractor
}

// defaultRules is the ordered rule table. System phrasings come first so a
// bare "next" or "cancel" is never mistaken for a domain command, then
// domain rules from most to least specific.
var defaultRules = []rule{
	// --- system ---
	{
		pattern: regexp.MustCompile(`(?i)^(?:please\s+)?(?:repeat(?:\s+that)?|say (?:that|it) again)$`),
		name:    Repeat,
	},
	{
		pattern: regexp.MustCompile(`(?i)^next(?:\s+(?:one|item))?$`),
		name:    Next,
	},
	{
		pattern: regexp.MustCompile(`(?i)^(?:confirm|yes[,.]?\s*(?:do it|go ahead)?|go ahead)(?:\s+([A-Za-z0-9_-]+))?$`),
		name:    Confirm,
		entities: map[string]extractor{
			"token": groupText{1},
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)^(?:cancel|never\s?mind|abort)(?:\s+(?:that|it))?(?:\s+([A-Za-z0-9_-]+))?$`),
		name:    Cancel,
		entities: map[string]extractor{
			"token": groupText{1},
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)set (?:my )?profile to (\w+)`),
		name:    SetProfile,
		entities: map[string]extractor{
			"profile": groupText{1},
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)^switch to (\w+) (?:mode|profile)$`),
		name:    SetProfile,
		entities: map[string]extractor{
			"profile": groupText{1},
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)^(?:show |dump )?debug transcript$`),
		name:    DebugTranscript,
	},

	// --- agent delegation: the "on PR N" form must precede the catch-all,
	// or the general rule would swallow the PR number into the task text.
	{
		pattern: regexp.MustCompile(`(?i)ask (?:the )?agent to (.+?) on (?:pr|pull request) #?(\d+)`),
		name:    AgentDelegate,
		entities: map[string]extractor{
			"task":      groupText{1},
			"pr_number": groupNumber{2},
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)ask (?:the )?agent to (.+)`),
		name:    AgentDelegate,
		entities: map[string]extractor{
			"task": groupText{1},
		},
	},

	// --- pull requests ---
	{
		pattern: regexp.MustCompile(`(?i)summari[sz]e (?:pr|pull request) #?(\d+)`),
		name:    PRSummarize,
		entities: map[string]extractor{
			"pr_number": groupNumber{1},
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)(?:request|ask for) (?:a )?review (?:from|by) (.+?) on (?:pr|pull request) #?(\d+)`),
		name:    PRRequestReview,
		entities: map[string]extractor{
			"reviewers": groupList{1},
			"pr_number": groupNumber{2},
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)add (.+?) as (?:a )?reviewers? (?:to|on) (?:pr|pull request) #?(\d+)`),
		name:    PRRequestReview,
		entities: map[string]extractor{
			"reviewers": groupList{1},
			"pr_number": groupNumber{2},
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)(?:request|ask for) (?:a )?review (?:from|by) (.+)`),
		name:    PRRequestReview,
		entities: map[string]extractor{
			"reviewers": groupList{1},
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)squash(?:[ -]and[ -])?[ -]?merge (?:pr|pull request) #?(\d+)`),
		name:    PRMerge,
		entities: map[string]extractor{
			"pr_number":    groupNumber{1},
			"merge_method": constVal{"squash"},
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)merge (?:pr|pull request) #?(\d+)`),
		name:    PRMerge,
		entities: map[string]extractor{
			"pr_number":    groupNumber{1},
			"merge_method": constVal{"merge"},
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)re-?run (?:the )?(?:checks|ci|tests)(?: (?:on|for) (?:pr|pull request) #?(\d+))?`),
		name:    PRRerunChecks,
		entities: map[string]extractor{
			"pr_number": groupNumber{1},
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)comment on (?:pr|pull request) #?(\d+)[:,]?\s+(.+)`),
		name:    PRComment,
		entities: map[string]extractor{
			"pr_number": groupNumber{1},
			"body":      groupText{2},
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)(?:check|show|what.?s) (?:the )?(?:ci |build |check )?status(?: (?:of|on|for) (?:pr|pull request) #?(\d+))?`),
		name:    PRStatus,
		entities: map[string]extractor{
			"pr_number": groupNumber{1},
		},
	},

	// --- inbox ---
	{
		pattern: regexp.MustCompile(`(?i)(?:my )?(?:inbox|notifications)\b`),
		name:    InboxList,
	},
}

// Parser scans an ordered rule table and returns the first match.
type Parser struct {
	rules []rule
}

// NewParser returns a Parser with the default rule table.
func NewParser() *Parser {
	return &Parser{rules: defaultRules}
}

// Parse returns the structured intent for text. When no rule matches, the
// intent is Unknown with confidence 0 and the original text preserved under
// the "text" entity.
func (p *Parser) Parse(text string) Intent {
	trimmed := strings.TrimSpace(text)

	for _, r := range p.rules {
		m := r.pattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}

		confidence := PartialConfidence
		if loc := r.pattern.FindStringIndex(trimmed); loc != nil && loc[0] == 0 {
			confidence = AnchoredConfidence
		}

		entities := make(map[string]any, len(r.entities))
		for name, ex := range r.entities {
			if v, ok := ex.extract(m); ok {
				entities[name] = v
			}
		}

		return Intent{Name: r.name, Confidence: confidence, Entities: entities}
	}

	return Intent{
		Name:       Unknown,
		Confidence: 0.0,
		Entities:   map[string]any{"text": text},
	}
}
