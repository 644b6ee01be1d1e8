package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/mizutama/kotoba/internal/kotoba/intent"
)

// actionSpec is the metadata for one gated action. The gated path is a
// single protocol (validate, rate-limit, policy, confirm-or-execute, audit)
// parameterized by this table; adding a gated action means adding a row,
// not a handler.
type actionSpec struct {
	// actionType is the name used for rate-limit keys, policy evaluation,
	// the executor, and audit entries.
	actionType string

	// required lists the entity keys that must be present and non-empty
	// before any gating call is made.
	required []string

	// hint is the corrective guidance returned when a required entity is
	// missing.
	hint string

	// window and maxCalls are this action's rate-limit budget.
	window   time.Duration
	maxCalls int

	// summary renders the human-readable description shown on
	// confirmation prompts and stored with pending actions.
	summary func(in intent.Intent) string

	// target renders the audit-log target for the action.
	target func(in intent.Intent) string
}

// gatedActions maps intent names of the side-effecting family to their
// metadata. Intents absent from this table never touch policy, rate
// limiting, or confirmation.
var gatedActions = map[string]actionSpec{
	intent.PRRequestReview: {
		actionType: "request_review",
		required:   []string{"pr_number", "reviewers"},
		hint:       `Tell me the pull request number and the reviewers, like "request review from alice on pr 123".`,
		window:     time.Minute,
		maxCalls:   5,
		summary: func(in intent.Intent) string {
			n, _ := in.IntEntity("pr_number")
			return fmt.Sprintf("Request review from %s on PR %d",
				strings.Join(in.ListEntity("reviewers"), ", "), n)
		},
		target: prTarget,
	},
	intent.PRRerunChecks: {
		actionType: "rerun_checks",
		required:   []string{"pr_number"},
		hint:       `Tell me which pull request, like "rerun checks on pr 123".`,
		window:     time.Minute,
		maxCalls:   10,
		summary: func(in intent.Intent) string {
			n, _ := in.IntEntity("pr_number")
			return fmt.Sprintf("Re-run checks on PR %d", n)
		},
		target: prTarget,
	},
	intent.PRMerge: {
		actionType: "merge",
		required:   []string{"pr_number"},
		hint:       `Tell me which pull request to merge, like "merge pr 123".`,
		window:     time.Minute,
		maxCalls:   2,
		summary: func(in intent.Intent) string {
			n, _ := in.IntEntity("pr_number")
			if in.StringEntity("merge_method") == "squash" {
				return fmt.Sprintf("Squash-merge PR %d", n)
			}
			return fmt.Sprintf("Merge PR %d", n)
		},
		target: prTarget,
	},
	intent.PRComment: {
		actionType: "comment",
		required:   []string{"pr_number", "body"},
		hint:       `Tell me the pull request and what to say, like "comment on pr 123 saying looks good".`,
		window:     time.Minute,
		maxCalls:   10,
		summary: func(in intent.Intent) string {
			n, _ := in.IntEntity("pr_number")
			return fmt.Sprintf("Comment on PR %d: %q", n, in.StringEntity("body"))
		},
		target: prTarget,
	},
	intent.AgentDelegate: {
		actionType: "agent_delegate",
		required:   []string{"task"},
		hint:       `Tell me what to delegate, like "ask the agent to fix the flaky test".`,
		window:     time.Minute,
		maxCalls:   5,
		summary: func(in intent.Intent) string {
			s := fmt.Sprintf("Delegate to agent: %s", in.StringEntity("task"))
			if n, ok := in.IntEntity("pr_number"); ok {
				s = fmt.Sprintf("%s (PR %d)", s, n)
			}
			return s
		},
		target: func(in intent.Intent) string {
			if n, ok := in.IntEntity("pr_number"); ok {
				return fmt.Sprintf("%s#%d", repoOf(in), n)
			}
			return "agent"
		},
	},
}

// prTarget renders "repo#number" for PR-scoped actions.
func prTarget(in intent.Intent) string {
	n, _ := in.IntEntity("pr_number")
	return fmt.Sprintf("%s#%d", repoOf(in), n)
}

// repoOf returns the repo entity, or "current" when the utterance named
// none; transports that know the active repository inject it as an entity.
func repoOf(in intent.Intent) string {
	if repo := in.StringEntity("repo"); repo != "" {
		return repo
	}
	return "current"
}

// missing returns the first absent or empty required entity, or "".
func (s actionSpec) missing(in intent.Intent) string {
	for _, key := range s.required {
		v, ok := in.Entities[key]
		if !ok {
			return key
		}
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) == "" {
				return key
			}
		case []string:
			if len(t) == 0 {
				return key
			}
		case []any:
			if len(t) == 0 {
				return key
			}
		}
	}
	return ""
}
