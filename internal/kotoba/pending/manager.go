package pending

import (
	"sync"
	"time"
)

// Manager is the in-memory single-use token store backing the
// profile-gated confirmation path. It is safe for concurrent use; Confirm
// performs its read-and-delete under the store mutex so exactly one of any
// number of concurrent confirmers for the same token wins.
type Manager struct {
	mu      sync.Mutex
	actions map[string]*Action
	now     func() time.Time
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		actions: make(map[string]*Action),
		now:     time.Now,
	}
}

// Create issues a token for the given command and holds it until confirmed,
// cancelled, or expired. ttl <= 0 selects DefaultTTL.
func (m *Manager) Create(intentName string, entities map[string]any, summary, userID string, ttl time.Duration) (*Action, error) {
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a := &Action{
		Token:     token,
		Intent:    intentName,
		Entities:  cloneEntities(entities),
		Summary:   summary,
		UserID:    userID,
		ExpiresAt: m.now().Add(ttl),
	}
	m.actions[token] = a

	return a.snapshot(), nil
}

// Get returns the action when present and unexpired. An expired entry is
// deleted as a side effect and reported as missing.
func (m *Manager) Get(token string) (*Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.actions[token]
	if !ok {
		return nil, false
	}
	if !m.now().Before(a.ExpiresAt) {
		delete(m.actions, token)
		return nil, false
	}
	return a.snapshot(), true
}

// Confirm atomically reads and deletes the action. The first caller on a
// live token receives it; every other caller, concurrent or later, sees
// the same "not found" as for a token that never existed.
func (m *Manager) Confirm(token string) (*Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.actions[token]
	if !ok {
		return nil, false
	}
	delete(m.actions, token)
	if !m.now().Before(a.ExpiresAt) {
		return nil, false
	}
	return a.snapshot(), true
}

// Cancel removes the action unconditionally, reporting whether anything
// was removed.
func (m *Manager) Cancel(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.actions[token]
	delete(m.actions, token)
	return ok
}

// CleanupExpired purges every expired entry and returns the count removed.
// Intended for a periodic sweep; safe to run concurrently with traffic.
func (m *Manager) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for token, a := range m.actions {
		if !now.Before(a.ExpiresAt) {
			delete(m.actions, token)
			removed++
		}
	}
	return removed
}
