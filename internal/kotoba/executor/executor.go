// Package executor defines the contracts for performing a gated action
// against the forge once policy allows it, plus the fixture executor used
// when no live credential is available.
package executor

import (
	"context"
	"fmt"
	"strings"
)

// Request describes one action invocation. Entities carry the parsed
// command parameters; Credential is the live token obtained from a
// TokenSource, empty in fixture mode.
type Request struct {
	ActionType string
	Repo       string
	Number     int
	Entities   map[string]any
	Credential string
}

// Result is the fallible outcome of an invocation. A transport-level
// failure is returned as an error instead; Result.OK == false means the
// forge answered and said no.
type Result struct {
	OK         bool
	Message    string
	StatusCode int
}

// Executor performs the action. Implementations wrap the forge API client;
// its retry and backoff behavior lives behind this interface.
type Executor interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// TokenSource supplies a live API credential for a user. Returning an empty
// credential with a nil error means none is configured, which selects
// fixture mode.
type TokenSource interface {
	Credential(ctx context.Context, user string) (string, error)
}

// NoCredential is a TokenSource that never has a credential; the dev REPL
// uses it to keep every execution in fixture mode.
type NoCredential struct{}

func (NoCredential) Credential(context.Context, string) (string, error) { return "", nil }

// Fixture simulates a successful execution without touching the network.
// Its messages mirror what the live path would report so response shaping
// is identical in both modes; the audit log is what distinguishes them.
type Fixture struct{}

func (Fixture) Execute(_ context.Context, req Request) (Result, error) {
	var msg string
	switch req.ActionType {
	case "request_review":
		msg = fmt.Sprintf("requested review from %s on %s#%d",
			strings.Join(stringList(req.Entities["reviewers"]), ", "), req.Repo, req.Number)
	case "rerun_checks":
		msg = fmt.Sprintf("re-ran checks on %s#%d", req.Repo, req.Number)
	case "merge":
		method, _ := req.Entities["merge_method"].(string)
		if method == "" {
			method = "merge"
		}
		msg = fmt.Sprintf("merged %s#%d via %s", req.Repo, req.Number, method)
	case "comment":
		msg = fmt.Sprintf("commented on %s#%d", req.Repo, req.Number)
	case "agent_delegate":
		task, _ := req.Entities["task"].(string)
		msg = fmt.Sprintf("delegated to agent: %s", task)
	default:
		msg = fmt.Sprintf("executed %s", req.ActionType)
	}
	return Result{OK: true, Message: msg, StatusCode: 200}, nil
}

// stringList normalizes an entity value to a string slice; entity maps that
// round-tripped through JSON carry []any instead of []string.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
