// Package audit defines the append-only audit log contract the router
// writes through on every gated-path branch.
//
// Writes are idempotent per key: re-submitting an entry with the same
// idempotency key returns the ID of the stored row instead of appending a
// duplicate. A re-submission whose payload differs from the stored entry
// fails with ErrConflict; the router tolerates that only at the call sites
// where the outcome was already decided (rate-limit and policy denials).
package audit

import (
	"context"
	"errors"
)

// ErrConflict is returned when an idempotency key is reused with a payload
// that differs from the entry already stored under it.
var ErrConflict = errors.New("audit: idempotency key conflict")

// Entry is one audit record. Request holds the redacted command payload;
// Result is the human-readable terminal outcome.
type Entry struct {
	TraceID        string
	User           string
	ActionType     string
	OK             bool
	Target         string
	Request        map[string]any
	Result         string
	IdempotencyKey string
}

// Log is the collaborator contract. Write returns the stored row ID.
type Log interface {
	Write(ctx context.Context, e Entry) (int64, error)
}
