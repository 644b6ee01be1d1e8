// Package router is the central decision layer: it takes a parsed intent
// plus the caller's profile, session, and identity, and decides whether to
// answer directly, demand confirmation, or refuse, shaping every spoken
// response to the active profile.
//
// System intents (repeat, next, confirm, cancel, set-profile, debug
// transcript) bypass all gating. The side-effecting family listed in
// gatedActions goes through the policy-integrated path when a durable
// pending store and an authenticated user are available, and falls back to
// profile-driven confirmation otherwise.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mizutama/kotoba/common/trace"
	"github.com/mizutama/kotoba/internal/kotoba/audit"
	"github.com/mizutama/kotoba/internal/kotoba/executor"
	"github.com/mizutama/kotoba/internal/kotoba/intent"
	"github.com/mizutama/kotoba/internal/kotoba/pending"
	"github.com/mizutama/kotoba/internal/kotoba/policy"
	"github.com/mizutama/kotoba/internal/kotoba/profile"
	"github.com/mizutama/kotoba/internal/kotoba/ratelimit"
	"github.com/mizutama/kotoba/internal/kotoba/response"
	"github.com/mizutama/kotoba/internal/kotoba/session"
)

// TokenNotFoundText answers confirm/cancel on an unknown, consumed, or
// expired token; all three cases read identically on purpose.
const TokenNotFoundText = "Nothing pending under that confirmation. It may have expired."

// UnknownIntentText is the corrective guidance for utterances no rule
// matched.
const UnknownIntentText = `Sorry, I did not catch that. Try "summarize pr 123" or "what is in my inbox".`

// Request is one routed command: the parsed intent plus the transport's
// ambient inputs. SessionID, UserID, and IdempotencyKey are all optional;
// an empty UserID (or a router without a durable store) disables the
// policy-integrated path.
type Request struct {
	Intent         intent.Intent
	Profile        profile.Tag
	SessionID      string
	UserID         string
	IdempotencyKey string
}

// Options wires the router's collaborators. Pendings, Sessions, Tokens,
// Data, and Logger default when nil. Durable enables the policy-integrated
// path and requires Policy, Limiter, and Audit to be set with it.
type Options struct {
	Pendings *pending.Manager
	Sessions *session.Store
	Durable  pending.Store
	Policy   policy.Evaluator
	Limiter  ratelimit.Limiter
	Audit    audit.Log
	Executor executor.Executor
	Tokens   executor.TokenSource
	Data     DataSource
	Logger   *slog.Logger

	// PendingTTL and DurableTTL override the confirmation-token lifetimes;
	// zero selects the package defaults (60 s memory, 5 min durable).
	PendingTTL time.Duration
	DurableTTL time.Duration

	// RateWindow and RateMax, when both positive, override every gated
	// action's rate budget; zero keeps the per-action defaults.
	RateWindow time.Duration
	RateMax    int
}

// Router routes parsed intents to execution, confirmation, or refusal.
type Router struct {
	pendings *pending.Manager
	sessions *session.Store
	durable  pending.Store
	policy   policy.Evaluator
	limiter  ratelimit.Limiter
	audit    audit.Log
	exec     executor.Executor
	tokens   executor.TokenSource
	data     DataSource
	log      *slog.Logger

	pendingTTL time.Duration
	durableTTL time.Duration
	rateWindow time.Duration
	rateMax    int
}

// New creates a Router from opts, filling in defaults for optional
// collaborators.
func New(opts Options) *Router {
	r := &Router{
		pendings:   opts.Pendings,
		sessions:   opts.Sessions,
		durable:    opts.Durable,
		policy:     opts.Policy,
		limiter:    opts.Limiter,
		audit:      opts.Audit,
		exec:       opts.Executor,
		tokens:     opts.Tokens,
		data:       opts.Data,
		log:        opts.Logger,
		pendingTTL: opts.PendingTTL,
		durableTTL: opts.DurableTTL,
		rateWindow: opts.RateWindow,
		rateMax:    opts.RateMax,
	}
	if r.pendings == nil {
		r.pendings = pending.NewManager()
	}
	if r.sessions == nil {
		r.sessions = session.NewStore()
	}
	if r.exec == nil {
		r.exec = executor.Fixture{}
	}
	if r.tokens == nil {
		r.tokens = executor.NoCredential{}
	}
	if r.data == nil {
		r.data = NewStaticDataSource()
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.pendingTTL <= 0 {
		r.pendingTTL = pending.DefaultTTL
	}
	if r.durableTTL <= 0 {
		r.durableTTL = pending.DefaultDurableTTL
	}
	return r
}

// Sessions returns the session store, for transports that need direct
// access to conversational state.
func (r *Router) Sessions() *session.Store { return r.sessions }

// Pendings returns the in-memory pending-action manager, for sweep loops.
func (r *Router) Pendings() *pending.Manager { return r.pendings }

// Route decides and executes one command. Every fresh spoken text passes
// through the profile's word cap before return; verbatim session replays
// and navigation steps shape and cache themselves and are returned as-is.
// When the request carries a session ID, the response is recorded so a
// later "repeat" replays it and a bare "confirm" finds its token.
func (r *Router) Route(ctx context.Context, req Request) (*response.Response, error) {
	ctx, traceID := trace.Ensure(ctx)
	cfg := profile.For(req.Profile)
	in := req.Intent

	r.log.Debug("routing intent",
		slog.String("trace_id", traceID),
		slog.String("intent", in.Name),
		slog.String("profile", string(cfg.Profile)))

	resp, shaped, err := r.dispatch(ctx, cfg, req)
	if err != nil {
		return nil, err
	}
	if shaped {
		return resp, nil
	}

	resp.SpokenText = cfg.TruncateSpokenText(resp.SpokenText)
	if req.SessionID != "" {
		r.sessions.RecordResponse(req.SessionID, resp)
	}
	return resp, nil
}

// dispatch picks the handling path. shaped == true means the response has
// already been word-capped and cached and Route must return it untouched;
// repeat and next manage their own caching so a replay stays byte-identical
// and a navigation step does not clobber its own list.
func (r *Router) dispatch(ctx context.Context, cfg profile.Config, req Request) (resp *response.Response, shaped bool, err error) {
	in := req.Intent

	if in.Namespace() == "system" {
		return r.routeSystem(ctx, cfg, req)
	}

	if spec, ok := gatedActions[in.Name]; ok {
		if key := spec.missing(in); key != "" {
			r.log.Debug("gated action missing entity",
				slog.String("intent", in.Name), slog.String("entity", key))
			return response.Error(in, spec.hint), false, nil
		}

		if r.durable != nil && req.UserID != "" {
			resp, err = r.routeGated(ctx, cfg, req, spec)
			return resp, false, err
		}

		if cfg.ConfirmationRequired {
			act, cerr := r.pendings.Create(in.Name, in.Entities, spec.summary(in), req.UserID, r.pendingTTL)
			if cerr != nil {
				return nil, false, cerr
			}
			return response.NeedsConfirmation(in, confirmPrompt(cfg, act.Summary), &response.PendingAction{
				Token:     act.Token,
				ExpiresAt: act.ExpiresAt,
				Summary:   act.Summary,
			}), false, nil
		}

		resp, err = r.perform(ctx, in, spec, req.UserID, idemKey(req))
		return resp, false, err
	}

	switch in.Namespace() {
	case "pr":
		resp, err = r.handlePR(ctx, cfg, in)
	case "inbox":
		resp, err = r.handleInbox(ctx, cfg, req)
	default:
		resp = r.handleUnknown(in)
	}
	return resp, false, err
}

// routeSystem handles the intents that bypass gating.
func (r *Router) routeSystem(ctx context.Context, cfg profile.Config, req Request) (*response.Response, bool, error) {
	in := req.Intent

	switch in.Name {
	case intent.Repeat:
		if req.SessionID == "" {
			return response.OK(in, session.NothingToRepeat), true, nil
		}
		return r.sessions.Repeat(req.SessionID, in), true, nil

	case intent.Next:
		if req.SessionID == "" {
			return response.OK(in, cfg.TruncateSpokenText(session.NoListToNavigate)), true, nil
		}
		return r.sessions.Next(req.SessionID, in, cfg.TruncateSpokenText), true, nil

	case intent.Confirm:
		resp, err := r.confirmToken(ctx, req)
		return resp, false, err

	case intent.Cancel:
		resp, err := r.cancelToken(ctx, req)
		return resp, false, err

	case intent.SetProfile:
		return r.setProfile(in), false, nil

	case intent.DebugTranscript:
		return r.debugTranscript(req), false, nil
	}

	return r.handleUnknown(in), false, nil
}

// setProfile acknowledges a profile switch. The transport owns the active
// profile and passes it on every request; the router only validates the
// name and echoes the change.
func (r *Router) setProfile(in intent.Intent) *response.Response {
	name := strings.ToLower(in.StringEntity("profile"))
	if name == "" {
		return response.Error(in, `Tell me which profile, like "set profile to workout".`)
	}
	cfg := profile.For(profile.Tag(name))
	if string(cfg.Profile) != name {
		return response.Error(in, fmt.Sprintf(
			"Unknown profile %q. Known profiles: workout, kitchen, commute, focused, relaxed, default.", name))
	}
	return response.OK(in, fmt.Sprintf("Profile set to %s.", name))
}

// debugTranscript returns the session's cached last response serialized as
// a card, as an operator debugging aid.
func (r *Router) debugTranscript(req Request) *response.Response {
	in := req.Intent
	if req.SessionID == "" {
		return response.OK(in, "No transcript yet.")
	}
	last := r.sessions.Last(req.SessionID)
	if last == nil {
		return response.OK(in, "No transcript yet.")
	}

	raw, err := json.MarshalIndent(last, "", "  ")
	if err != nil {
		return response.Error(in, "Could not serialize the transcript.")
	}
	card := response.Card{
		Title: "Last response",
		Lines: strings.Split(string(raw), "\n"),
	}
	return response.OK(in, "Transcript attached.", card)
}

// resolveToken picks the confirmation token for a bare confirm/cancel: the
// explicit token entity when the utterance carried one, otherwise the token
// from the session's cached last response.
func (r *Router) resolveToken(req Request) string {
	if tok := req.Intent.StringEntity("token"); tok != "" {
		return tok
	}
	if req.SessionID == "" {
		return ""
	}
	return r.sessions.LastPendingToken(req.SessionID)
}

// confirmToken redeems a pending action and executes it. The durable store
// is consulted first; its Consume and the manager's Confirm are both
// exactly-once, so a double confirm reads as "nothing pending" no matter
// which store held the token.
func (r *Router) confirmToken(ctx context.Context, req Request) (*response.Response, error) {
	in := req.Intent
	tok := r.resolveToken(req)
	if tok == "" {
		return response.Error(in, TokenNotFoundText), nil
	}

	var act *pending.Action
	if r.durable != nil {
		a, err := r.durable.Consume(ctx, tok)
		switch {
		case err == nil:
			act = a
		case !errors.Is(err, pending.ErrNotFound):
			return nil, err
		}
	}
	if act == nil {
		a, ok := r.pendings.Confirm(tok)
		if !ok {
			return response.Error(in, TokenNotFoundText), nil
		}
		act = a
	}

	spec, ok := gatedActions[act.Intent]
	if !ok {
		return nil, fmt.Errorf("router: pending action %q has no gated spec", act.Intent)
	}
	held := intent.Intent{Name: act.Intent, Confidence: intent.AnchoredConfidence, Entities: act.Entities}

	user := act.UserID
	if user == "" {
		user = req.UserID
	}
	r.log.Info("pending action confirmed",
		slog.String("intent", act.Intent), slog.String("user", user))

	return r.perform(ctx, held, spec, user, idemKey(req))
}

// cancelToken discards a pending action.
func (r *Router) cancelToken(ctx context.Context, req Request) (*response.Response, error) {
	in := req.Intent
	tok := r.resolveToken(req)
	if tok == "" {
		return response.Error(in, TokenNotFoundText), nil
	}

	removed := false
	if r.durable != nil {
		ok, err := r.durable.Cancel(ctx, tok)
		if err != nil {
			return nil, err
		}
		removed = ok
	}
	if !removed {
		removed = r.pendings.Cancel(tok)
	}
	if !removed {
		return response.Error(in, TokenNotFoundText), nil
	}
	return response.OK(in, "Cancelled. Nothing was executed."), nil
}

// confirmPrompt builds the spoken confirmation question inside the
// profile's word cap, reserving room for the trailing "Confirm?" so the
// final truncation pass never has to cut it.
func confirmPrompt(cfg profile.Config, summary string) string {
	words := strings.Fields(summary)
	budget := cfg.MaxSpokenWords - 1
	if budget < 1 {
		budget = 1
	}
	if len(words) > budget {
		words = append(words[:budget-1], profile.Ellipsis)
	}
	return strings.Join(words, " ") + " Confirm?"
}

// idemKey returns the caller's idempotency key, or a fresh one so every
// audit write still carries a key even when the transport supplied none.
func idemKey(req Request) string {
	if req.IdempotencyKey != "" {
		return req.IdempotencyKey
	}
	return uuid.NewString()
}
