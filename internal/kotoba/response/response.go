// Package response defines the envelope the router hands back to the
// transport layer: a status, the parsed intent, profile-shaped spoken text,
// optional display cards, and the pending-action handle when confirmation
// is required.
package response

import (
	"time"

	"github.com/mizutama/kotoba/internal/kotoba/intent"
)

// Status is the terminal outcome of a routed command.
type Status string

const (
	StatusOK                = Status("ok")
	StatusNeedsConfirmation = Status("needs_confirmation")
	StatusError             = Status("error")
)

// Card is one display-surface item (a PR, an inbox entry, a debug dump).
type Card struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Lines    []string `json:"lines,omitempty"`
	DeepLink string   `json:"deep_link,omitempty"`
}

// PendingAction is the confirmation handle surfaced to the user. The token
// is single-use and expires at ExpiresAt.
type PendingAction struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Summary   string    `json:"summary"`
}

// Response is the router's output envelope.
type Response struct {
	Status        Status         `json:"status"`
	Intent        intent.Intent  `json:"intent"`
	SpokenText    string         `json:"spoken_text"`
	Cards         []Card         `json:"cards,omitempty"`
	PendingAction *PendingAction `json:"pending_action,omitempty"`
}

// OK builds a success response.
func OK(in intent.Intent, spoken string, cards ...Card) *Response {
	return &Response{Status: StatusOK, Intent: in, SpokenText: spoken, Cards: cards}
}

// Error builds an error response with corrective guidance as spoken text.
func Error(in intent.Intent, spoken string) *Response {
	return &Response{Status: StatusError, Intent: in, SpokenText: spoken}
}

// NeedsConfirmation builds a confirmation-required response.
func NeedsConfirmation(in intent.Intent, spoken string, pa *PendingAction) *Response {
	return &Response{Status: StatusNeedsConfirmation, Intent: in, SpokenText: spoken, PendingAction: pa}
}

// Clone returns a deep copy so cached responses replay byte-identically
// even if the transport mutates what it was handed.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r

	if r.Intent.Entities != nil {
		ents := make(map[string]any, len(r.Intent.Entities))
		for k, v := range r.Intent.Entities {
			ents[k] = v
		}
		out.Intent.Entities = ents
	}

	if r.Cards != nil {
		out.Cards = make([]Card, len(r.Cards))
		for i, c := range r.Cards {
			out.Cards[i] = c
			if c.Lines != nil {
				out.Cards[i].Lines = append([]string(nil), c.Lines...)
			}
		}
	}

	if r.PendingAction != nil {
		pa := *r.PendingAction
		out.PendingAction = &pa
	}

	return &out
}
