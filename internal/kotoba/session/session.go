// Package session tracks short-term conversational state per session: the
// last response (for verbatim "repeat") and a navigation cursor over the
// most recent card list (for "next").
//
// The store serializes map access internally, but within one session the
// transport must deliver requests in order (e.g. hold a per-session lock)
// for the last-response cache to reflect request order.
package session

import (
	"fmt"
	"sync"

	"github.com/mizutama/kotoba/internal/kotoba/intent"
	"github.com/mizutama/kotoba/internal/kotoba/response"
)

// Guidance texts returned when there is nothing to replay or navigate.
const (
	NothingToRepeat  = "Nothing to repeat yet."
	NoListToNavigate = "No list to navigate. Ask for your inbox or a pull request summary first."
	NoMoreItems      = "No more items."
)

// state is the per-session record. The navigation list is always derived
// from the most recent card-bearing response; any response without cards
// clears it.
type state struct {
	last   *response.Response
	items  []response.Card
	cursor int
	hasNav bool
}

// Store holds conversational state for all sessions. Lifetime is the
// process; sessions are never explicitly destroyed.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*state
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*state)}
}

// get returns the state for sessionID, creating it on first touch. Caller
// must hold s.mu.
func (s *Store) get(sessionID string) *state {
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &state{}
		s.sessions[sessionID] = st
	}
	return st
}

// RecordResponse caches resp as the session's last response. A response
// carrying cards resets navigation to (cards, cursor 0); one without cards
// clears any existing navigation state.
func (s *Store) RecordResponse(sessionID string, resp *response.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.get(sessionID)
	st.last = resp.Clone()
	if len(resp.Cards) > 0 {
		st.items = st.last.Cards
		st.cursor = 0
		st.hasNav = true
	} else {
		st.items = nil
		st.cursor = 0
		st.hasNav = false
	}
}

// Repeat replays the session's cached last response verbatim, or a guidance
// response when nothing has been cached yet.
func (s *Store) Repeat(sessionID string, in intent.Intent) *response.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.get(sessionID)
	if st.last == nil {
		return response.OK(in, NothingToRepeat)
	}
	return st.last.Clone()
}

// Last returns the session's cached last response, or nil when none has
// been recorded yet.
func (s *Store) Last(sessionID string) *response.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.get(sessionID)
	if st.last == nil {
		return nil
	}
	return st.last.Clone()
}

// LastPendingToken returns the confirmation token carried by the session's
// cached last response, or "" when it carried none. Used to resolve a bare
// "confirm" or "cancel" utterance.
func (s *Store) LastPendingToken(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.get(sessionID)
	if st.last == nil || st.last.PendingAction == nil {
		return ""
	}
	return st.last.PendingAction.Token
}

// Next advances the session's navigation cursor and returns a single-item
// response for the card now under it. Walking past the end returns a
// "no more items" response and leaves all state unchanged. A successful
// step overwrites only the last-response cache; the navigation list and
// cursor survive, so repeat replays the current item while next keeps
// walking the original list.
//
// shape is applied to the spoken text before the response is cached, so a
// later repeat replays exactly what was spoken; nil means no shaping.
func (s *Store) Next(sessionID string, in intent.Intent, shape func(string) string) *response.Response {
	if shape == nil {
		shape = func(t string) string { return t }
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.get(sessionID)
	if !st.hasNav {
		return response.OK(in, shape(NoListToNavigate))
	}

	if st.cursor+1 >= len(st.items) {
		return response.OK(in, shape(NoMoreItems))
	}
	st.cursor++

	card := st.items[st.cursor]
	spoken := card.Title
	if card.Subtitle != "" {
		spoken = fmt.Sprintf("%s. %s", card.Title, card.Subtitle)
	}
	resp := response.OK(in, shape(spoken), card)

	st.last = resp.Clone()
	return resp
}
