package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mizutama/kotoba/internal/kotoba/pending"
)

// PendingStore is the SQLite-backed pending.Store used on the
// policy-integrated path. It offers the same single-use/expiry contract as
// the in-memory manager but survives process restarts.
type PendingStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ pending.Store = (*PendingStore)(nil)

// NewPendingStore returns a PendingStore backed by the given store.
func NewPendingStore(s *Store) *PendingStore {
	return &PendingStore{db: s.db, now: time.Now}
}

// Create persists a new pending action under a fresh token.
func (p *PendingStore) Create(ctx context.Context, intentName string, entities map[string]any, summary, userID string, ttl time.Duration) (*pending.Action, error) {
	token, err := pending.NewToken()
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = pending.DefaultDurableTTL
	}
	if entities == nil {
		entities = map[string]any{}
	}

	entitiesJSON, err := json.Marshal(entities)
	if err != nil {
		return nil, fmt.Errorf("store: marshal pending entities: %w", err)
	}

	now := p.now().UTC()
	expiresAt := now.Add(ttl)

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO pending_actions (token, intent, entities_json, summary, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, token, intentName, string(entitiesJSON), summary, userID,
		now.Format(time.RFC3339Nano), expiresAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("store: insert pending action: %w", err)
	}

	return &pending.Action{
		Token:     token,
		Intent:    intentName,
		Entities:  entities,
		Summary:   summary,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}, nil
}

// load fetches a row without consuming it.
func (p *PendingStore) load(ctx context.Context, token string) (*pending.Action, error) {
	var a pending.Action
	var entitiesJSON, expiresStr string

	err := p.db.QueryRowContext(ctx, `
		SELECT token, intent, entities_json, summary, user_id, expires_at
		FROM pending_actions
		WHERE token = ?
	`, token).Scan(&a.Token, &a.Intent, &entitiesJSON, &a.Summary, &a.UserID, &expiresStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pending.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load pending action: %w", err)
	}

	if err := json.Unmarshal([]byte(entitiesJSON), &a.Entities); err != nil {
		return nil, fmt.Errorf("store: decode pending entities: %w", err)
	}
	a.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresStr)
	if err != nil {
		return nil, fmt.Errorf("store: parse pending expiry: %w", err)
	}
	return &a, nil
}

// Get returns the action when present and unexpired; an expired row is
// deleted as a side effect and reported as ErrNotFound.
func (p *PendingStore) Get(ctx context.Context, token string) (*pending.Action, error) {
	a, err := p.load(ctx, token)
	if err != nil {
		return nil, err
	}
	if !p.now().Before(a.ExpiresAt) {
		if _, err := p.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE token = ?`, token); err != nil {
			return nil, fmt.Errorf("store: delete expired pending action: %w", err)
		}
		return nil, pending.ErrNotFound
	}
	return a, nil
}

// Consume atomically reads and deletes the action: the DELETE's row count
// decides the winner among concurrent confirmers, so exactly one caller
// gets the action and the rest see ErrNotFound.
func (p *PendingStore) Consume(ctx context.Context, token string) (*pending.Action, error) {
	a, err := p.load(ctx, token)
	if err != nil {
		return nil, err
	}

	res, err := p.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE token = ?`, token)
	if err != nil {
		return nil, fmt.Errorf("store: consume pending action: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("store: consume pending action: %w", err)
	}
	if n == 0 {
		// Another confirmer won the race.
		return nil, pending.ErrNotFound
	}

	if !p.now().Before(a.ExpiresAt) {
		return nil, pending.ErrNotFound
	}
	return a, nil
}

// Cancel removes the action unconditionally.
func (p *PendingStore) Cancel(ctx context.Context, token string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE token = ?`, token)
	if err != nil {
		return false, fmt.Errorf("store: cancel pending action: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: cancel pending action: %w", err)
	}
	return n > 0, nil
}

// Sweep purges all expired rows and returns the count removed.
func (p *PendingStore) Sweep(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE expires_at <= ?`,
		p.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("store: sweep pending actions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: sweep pending actions: %w", err)
	}
	return n, nil
}
