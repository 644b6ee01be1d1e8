// Package profile derives response-shaping limits from a named listening
// context and applies them to spoken text, summaries, and inbox lists. All
// operations are pure; a Config is never mutated after lookup.
package profile

import "strings"

// Tag names a listening context.
type Tag string

const (
	Workout Tag = "workout"
	Kitchen Tag = "kitchen"
	Commute Tag = "commute"
	Focused Tag = "focused"
	Relaxed Tag = "relaxed"
	Default Tag = "default"
)

// Detail is the requested verbosity of generated responses.
type Detail string

const (
	DetailMinimal Detail = "minimal"
	DetailBrief   Detail = "brief"
	DetailNormal  Detail = "normal"
	DetailFull    Detail = "full"
)

// Config holds the shaping limits for one profile.
type Config struct {
	Profile              Tag
	MaxSpokenWords       int
	MaxSummarySentences  int
	MaxInboxItems        int
	ConfirmationRequired bool
	DetailLevel          Detail
}

// configs is the fixed profile table.
var configs = map[Tag]Config{
	Workout: {Workout, 15, 2, 3, true, DetailMinimal},
	Kitchen: {Kitchen, 30, 3, 5, true, DetailBrief},
	Commute: {Commute, 50, 4, 8, true, DetailNormal},
	Focused: {Focused, 25, 2, 5, false, DetailBrief},
	Relaxed: {Relaxed, 120, 8, 15, false, DetailFull},
	Default: {Default, 60, 5, 10, false, DetailNormal},
}

// For returns the Config for tag. Unknown tags fall back to Default, so a
// transport sending a profile this build does not know about degrades
// gracefully instead of failing the command.
func For(tag Tag) Config {
	if c, ok := configs[Tag(strings.ToLower(string(tag)))]; ok {
		return c
	}
	return configs[Default]
}

// Ellipsis is appended to spoken text that was cut at the word cap.
const Ellipsis = "..."

// TruncateSpokenText cuts text at the profile's word cap on a word
// boundary, appending the ellipsis marker when anything was removed. The
// result is at most MaxSpokenWords+1 whitespace-separated tokens (the
// marker counts as one).
func (c Config) TruncateSpokenText(text string) string {
	words := strings.Fields(text)
	if len(words) <= c.MaxSpokenWords {
		return text
	}
	return strings.Join(words[:c.MaxSpokenWords], " ") + " " + Ellipsis
}

// criticalKeywords mark sentences that must survive summary truncation.
var criticalKeywords = []string{"security", "alert", "failing", "failed", "error", "critical"}

// isCritical reports whether the sentence contains a critical keyword
// (case-insensitive substring match).
func isCritical(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, kw := range criticalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// splitSentences breaks text on '.', '!' and '?', trimming whitespace and
// dropping empty fragments.
func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TruncateSummary caps text at the profile's sentence limit. Sentences
// containing a critical keyword are unconditionally kept, even when they
// alone exceed the cap, and are emitted first; remaining slots are
// back-filled with the earliest non-critical sentences. Without any
// critical sentence this is a plain first-N truncation.
func (c Config) TruncateSummary(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}

	var critical, normal []string
	for _, s := range sentences {
		if isCritical(s) {
			critical = append(critical, s)
		} else {
			normal = append(normal, s)
		}
	}

	var kept []string
	if len(critical) == 0 {
		kept = normal
		if len(kept) > c.MaxSummarySentences {
			kept = kept[:c.MaxSummarySentences]
		}
	} else {
		kept = critical
		slots := c.MaxSummarySentences - len(critical)
		if slots < 0 {
			slots = 0
		}
		if slots > len(normal) {
			slots = len(normal)
		}
		kept = append(kept, normal[:slots]...)
	}

	return strings.Join(kept, ". ") + "."
}
