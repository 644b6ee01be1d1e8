// Package intent turns raw utterance text into a structured intent by
// scanning an ordered table of pattern rules. Ordering encodes precedence:
// the first matching rule wins, so specific phrasings ("ask agent to X on
// PR N") must be listed before the catch-alls that would swallow them
// ("ask agent to X").
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent name constants. Names are dot-namespaced; the part before the dot
// selects the domain handler in the router.
const (
	Unknown = "unknown"

	Repeat          = "system.repeat"
	Next            = "system.next"
	Confirm         = "system.confirm"
	Cancel          = "system.cancel"
	SetProfile      = "system.set_profile"
	DebugTranscript = "system.debug_transcript"

	PRSummarize     = "pr.summarize"
	PRStatus        = "pr.status"
	PRRequestReview = "pr.request_review"
	PRRerunChecks   = "pr.rerun_checks"
	PRMerge         = "pr.merge"
	PRComment       = "pr.comment"

	AgentDelegate = "agent.delegate"
	InboxList     = "inbox.list"
)

// Confidence values reported by Parse. The anchored/partial split is a
// coarse heuristic with no product semantics beyond the numeric contract;
// nothing downstream should branch on it.
const (
	AnchoredConfidence = 1.0
	PartialConfidence  = 0.9
)

// Intent is the structured form of a parsed utterance. Entities whose
// extractor yielded an empty value are omitted from the map.
type Intent struct {
	Name       string         `json:"name"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities"`
}

// Namespace returns the part of the intent name before the first dot.
func (i Intent) Namespace() string {
	if idx := strings.IndexByte(i.Name, '.'); idx >= 0 {
		return i.Name[:idx]
	}
	return i.Name
}

// StringEntity returns the named entity as a string, or "" when absent or
// not a string.
func (i Intent) StringEntity(name string) string {
	if v, ok := i.Entities[name].(string); ok {
		return v
	}
	return ""
}

// IntEntity returns the named entity as an int, with a boolean indicating
// presence. float64 is accepted because entity snapshots round-trip through
// JSON in the durable pending store.
func (i Intent) IntEntity(name string) (int, bool) {
	switch v := i.Entities[name].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// ListEntity returns the named entity as a string slice, or nil. []any is
// accepted for the same JSON round-trip reason as IntEntity.
func (i Intent) ListEntity(name string) []string {
	switch v := i.Entities[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// extractor produces one entity value from a rule match. match is the
// FindStringSubmatch result for the rule's pattern. Returning ok == false
// omits the entity without failing the match.
type extractor interface {
	extract(match []string) (any, bool)
}

// constVal yields a fixed value regardless of the match text.
type constVal struct{ v any }

func (c constVal) extract([]string) (any, bool) { return c.v, true }

// groupText yields the trimmed text of a capture group.
type groupText struct{ group int }

func (g groupText) extract(m []string) (any, bool) {
	if g.group >= len(m) {
		return nil, false
	}
	s := strings.TrimSpace(m[g.group])
	if s == "" {
		return nil, false
	}
	return s, true
}

// groupNumber parses a capture group as a decimal integer. Parse failures
// silently drop the entity rather than failing the whole match.
type groupNumber struct{ group int }

func (g groupNumber) extract(m []string) (any, bool) {
	if g.group >= len(m) {
		return nil, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(m[g.group]))
	if err != nil {
		return nil, false
	}
	return n, true
}

// listSplitRe separates reviewer lists on commas or the word "and".
var listSplitRe = regexp.MustCompile(`\s*,\s*|\s+and\s+`)

// groupList splits a capture group into a name list: on comma or " and "
// when present, otherwise on whitespace. Leading @-signs are stripped.
type groupList struct{ group int }

func (g groupList) extract(m []string) (any, bool) {
	if g.group >= len(m) {
		return nil, false
	}
	s := strings.TrimSpace(m[g.group])
	if s == "" {
		return nil, false
	}

	var parts []string
	if strings.Contains(s, ",") || strings.Contains(strings.ToLower(s), " and ") {
		parts = listSplitRe.Split(s, -1)
	} else {
		parts = strings.Fields(s)
	}

	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimPrefix(strings.TrimSpace(p), "@")
		if p != "" {
			names = append(names, p)
		}
	}
	if len(names) == 0 {
		return nil, false
	}
	return names, true
}
