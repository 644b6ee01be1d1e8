// Package pending issues and redeems the single-use, expiring confirmation
// tokens that gate side-effecting commands.
//
// Two variants share the same contract: the in-memory Manager backs the
// profile-gated path (short-lived, process-local), while the Store
// interface is the durable variant used on the policy-integrated path and
// implemented by the SQLite layer. In both, a token that has been
// confirmed, cancelled, or expired is indistinguishable from one that never
// existed.
package pending

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned for unknown, already-consumed, cancelled, and
// expired tokens alike; callers must not be able to tell these apart.
var ErrNotFound = errors.New("pending: action not found")

// DefaultTTL is the lifetime of an in-memory confirmation token.
const DefaultTTL = 60 * time.Second

// DefaultDurableTTL is the lifetime of a policy-path confirmation token.
const DefaultDurableTTL = 5 * time.Minute

// Action is a held side-effecting command awaiting confirmation.
type Action struct {
	// Token is the opaque, high-entropy confirmation handle.
	Token string

	// Intent is the dot-namespaced intent name to re-execute on confirm.
	Intent string

	// Entities is a snapshot of the parsed entities at creation time.
	Entities map[string]any

	// Summary is the human-readable description shown to the user.
	Summary string

	// UserID is the authenticated requestor, when known.
	UserID string

	// ExpiresAt is the absolute expiry deadline.
	ExpiresAt time.Time
}

// Store is the durable variant of the manager contract, used on the
// policy-integrated path. Implementations must guarantee that Consume
// redeems a token exactly once under concurrent callers.
type Store interface {
	// Create persists a new pending action and returns it with a fresh
	// token. ttl <= 0 selects DefaultDurableTTL.
	Create(ctx context.Context, intentName string, entities map[string]any, summary, userID string, ttl time.Duration) (*Action, error)

	// Get returns the action when present and unexpired. An expired row is
	// deleted as a side effect and reported as ErrNotFound.
	Get(ctx context.Context, token string) (*Action, error)

	// Consume atomically reads and deletes the action. Exactly one caller
	// among concurrent confirmers succeeds; the rest get ErrNotFound.
	Consume(ctx context.Context, token string) (*Action, error)

	// Cancel removes the action unconditionally, reporting whether a row
	// was removed.
	Cancel(ctx context.Context, token string) (bool, error)

	// Sweep purges all expired rows and returns the count removed.
	Sweep(ctx context.Context) (int64, error)
}

// NewToken returns a cryptographically random, URL-safe token.
func NewToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("pending: generate token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// cloneEntities snapshots an entity map so a held action is immune to later
// mutation of the caller's map.
func cloneEntities(entities map[string]any) map[string]any {
	if entities == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(entities))
	for k, v := range entities {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		out[k] = v
	}
	return out
}

// snapshot returns a copy of a so callers cannot reach into the store's
// live record.
func (a *Action) snapshot() *Action {
	if a == nil {
		return nil
	}
	out := *a
	out.Entities = cloneEntities(a.Entities)
	return &out
}
