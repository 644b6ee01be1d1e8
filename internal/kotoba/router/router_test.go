package router_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mizutama/kotoba/internal/kotoba/intent"
	"github.com/mizutama/kotoba/internal/kotoba/profile"
	"github.com/mizutama/kotoba/internal/kotoba/response"
	"github.com/mizutama/kotoba/internal/kotoba/router"
	"github.com/mizutama/kotoba/internal/kotoba/session"
)

// newRouter returns a router wired for the profile-gated path: in-memory
// pendings, fixture executor, static data, no durable store.
func newRouter() *router.Router {
	return router.New(router.Options{})
}

// parse is a shorthand around the default rule table.
func parse(t *testing.T, text string) intent.Intent {
	t.Helper()
	in := intent.NewParser().Parse(text)
	if in.Name == intent.Unknown {
		t.Fatalf("parse(%q) returned unknown intent", text)
	}
	return in
}

func route(t *testing.T, r *router.Router, req router.Request) *response.Response {
	t.Helper()
	resp, err := r.Route(context.Background(), req)
	if err != nil {
		t.Fatalf("route %s: %v", req.Intent.Name, err)
	}
	return resp
}

func wordCount(s string) int { return len(strings.Fields(s)) }

func TestSummarizeReturnsCardAndRecordsSession(t *testing.T) {
	r := newRouter()
	req := router.Request{
		Intent:    parse(t, "summarize pr 123"),
		Profile:   profile.Default,
		SessionID: "s1",
	}

	resp := route(t, r, req)
	if resp.Status != response.StatusOK {
		t.Fatalf("status = %q, want ok", resp.Status)
	}
	if len(resp.Cards) != 1 {
		t.Fatalf("cards = %d, want 1", len(resp.Cards))
	}
	if resp.Cards[0].Title != "PR 123" {
		t.Errorf("card title = %q", resp.Cards[0].Title)
	}

	// Repeat must replay the cached response byte-identically.
	repeat := route(t, r, router.Request{
		Intent:    parse(t, "repeat that"),
		Profile:   profile.Default,
		SessionID: "s1",
	})
	if repeat.SpokenText != resp.SpokenText || len(repeat.Cards) != 1 {
		t.Errorf("repeat diverged: spoken %q vs %q", repeat.SpokenText, resp.SpokenText)
	}
}

func TestWorkoutRequestReviewNeedsConfirmation(t *testing.T) {
	r := newRouter()
	resp := route(t, r, router.Request{
		Intent:  parse(t, "request review from alice on pr 123"),
		Profile: profile.Workout,
	})

	if resp.Status != response.StatusNeedsConfirmation {
		t.Fatalf("status = %q, want needs_confirmation", resp.Status)
	}
	if resp.PendingAction == nil || resp.PendingAction.Token == "" {
		t.Fatal("missing pending action token")
	}
	summary := resp.PendingAction.Summary
	if !strings.Contains(summary, "alice") || !strings.Contains(summary, "123") {
		t.Errorf("summary %q should mention alice and 123", summary)
	}
	if !strings.HasSuffix(resp.SpokenText, "Confirm?") {
		t.Errorf("spoken %q should end with Confirm?", resp.SpokenText)
	}
	if n := wordCount(resp.SpokenText); n > 15 {
		t.Errorf("spoken prompt is %d words, workout cap is 15", n)
	}
}

func TestConfirmExecutesExactlyOnce(t *testing.T) {
	r := newRouter()
	pendingResp := route(t, r, router.Request{
		Intent:  parse(t, "request review from alice and bob on pr 42"),
		Profile: profile.Kitchen,
	})
	if pendingResp.Status != response.StatusNeedsConfirmation {
		t.Fatalf("status = %q, want needs_confirmation", pendingResp.Status)
	}
	tok := pendingResp.PendingAction.Token

	confirm := parse(t, "confirm "+tok)
	done := route(t, r, router.Request{Intent: confirm, Profile: profile.Kitchen})
	if done.Status != response.StatusOK {
		t.Fatalf("confirm status = %q, spoken %q", done.Status, done.SpokenText)
	}
	if !strings.Contains(done.SpokenText, "alice") || !strings.Contains(done.SpokenText, "42") {
		t.Errorf("execution message %q should name the reviewers and PR", done.SpokenText)
	}

	again := route(t, r, router.Request{Intent: confirm, Profile: profile.Kitchen})
	if again.Status != response.StatusError {
		t.Fatalf("second confirm status = %q, want error", again.Status)
	}
	if again.SpokenText != router.TokenNotFoundText {
		t.Errorf("second confirm spoken = %q", again.SpokenText)
	}
}

func TestBareConfirmFallsBackToSessionToken(t *testing.T) {
	r := newRouter()
	pendingResp := route(t, r, router.Request{
		Intent:    parse(t, "merge pr 7"),
		Profile:   profile.Commute,
		SessionID: "s1",
	})
	if pendingResp.Status != response.StatusNeedsConfirmation {
		t.Fatalf("status = %q, want needs_confirmation", pendingResp.Status)
	}

	done := route(t, r, router.Request{
		Intent:    parse(t, "confirm"),
		Profile:   profile.Commute,
		SessionID: "s1",
	})
	if done.Status != response.StatusOK {
		t.Fatalf("bare confirm status = %q, spoken %q", done.Status, done.SpokenText)
	}
	if !strings.Contains(done.SpokenText, "merged") {
		t.Errorf("spoken = %q, want merge execution message", done.SpokenText)
	}
}

func TestCancelDiscardsPendingAction(t *testing.T) {
	r := newRouter()
	pendingResp := route(t, r, router.Request{
		Intent:  parse(t, "merge pr 7"),
		Profile: profile.Workout,
	})
	tok := pendingResp.PendingAction.Token

	cancel := route(t, r, router.Request{Intent: parse(t, "cancel "+tok), Profile: profile.Workout})
	if cancel.Status != response.StatusOK {
		t.Fatalf("cancel status = %q", cancel.Status)
	}

	confirm := route(t, r, router.Request{Intent: parse(t, "confirm "+tok), Profile: profile.Workout})
	if confirm.Status != response.StatusError {
		t.Errorf("confirm after cancel status = %q, want error", confirm.Status)
	}
}

func TestNextWithoutListReturnsGuidance(t *testing.T) {
	r := newRouter()
	resp := route(t, r, router.Request{
		Intent:    parse(t, "next"),
		Profile:   profile.Default,
		SessionID: "fresh",
	})
	if resp.Status != response.StatusOK {
		t.Fatalf("status = %q, want ok", resp.Status)
	}
	if resp.SpokenText != session.NoListToNavigate {
		t.Errorf("spoken = %q, want %q", resp.SpokenText, session.NoListToNavigate)
	}
}

func TestInboxNavigation(t *testing.T) {
	r := newRouter()
	list := route(t, r, router.Request{
		Intent:    parse(t, "what's in my inbox"),
		Profile:   profile.Default,
		SessionID: "s1",
	})
	if len(list.Cards) != 3 {
		t.Fatalf("inbox cards = %d, want 3", len(list.Cards))
	}

	next := func() *response.Response {
		return route(t, r, router.Request{
			Intent:    parse(t, "next"),
			Profile:   profile.Default,
			SessionID: "s1",
		})
	}

	second := next()
	if !strings.Contains(second.SpokenText, list.Cards[1].Title) {
		t.Errorf("first next spoke %q, want item %q", second.SpokenText, list.Cards[1].Title)
	}

	// Repeat replays the current item, then next keeps walking.
	repeat := route(t, r, router.Request{
		Intent:    parse(t, "repeat that"),
		Profile:   profile.Default,
		SessionID: "s1",
	})
	if repeat.SpokenText != second.SpokenText {
		t.Errorf("repeat = %q, want %q", repeat.SpokenText, second.SpokenText)
	}

	third := next()
	if !strings.Contains(third.SpokenText, list.Cards[2].Title) {
		t.Errorf("second next spoke %q, want item %q", third.SpokenText, list.Cards[2].Title)
	}

	done := next()
	if done.SpokenText != session.NoMoreItems {
		t.Errorf("past-end next = %q, want %q", done.SpokenText, session.NoMoreItems)
	}
}

func TestUnknownIntentGuidance(t *testing.T) {
	r := newRouter()
	in := intent.NewParser().Parse("make me a sandwich")
	resp := route(t, r, router.Request{Intent: in, Profile: profile.Default})
	if resp.Status != response.StatusError {
		t.Fatalf("status = %q, want error", resp.Status)
	}
	if resp.SpokenText != router.UnknownIntentText {
		t.Errorf("spoken = %q", resp.SpokenText)
	}
}

func TestSetProfile(t *testing.T) {
	r := newRouter()

	ok := route(t, r, router.Request{Intent: parse(t, "set profile to workout"), Profile: profile.Default})
	if ok.Status != response.StatusOK || !strings.Contains(ok.SpokenText, "workout") {
		t.Errorf("set profile: status %q, spoken %q", ok.Status, ok.SpokenText)
	}

	bad := route(t, r, router.Request{Intent: parse(t, "set profile to zen"), Profile: profile.Default})
	if bad.Status != response.StatusError {
		t.Errorf("unknown profile status = %q, want error", bad.Status)
	}
}

func TestMissingEntityReturnsHintWithoutPending(t *testing.T) {
	r := newRouter()
	in := intent.Intent{Name: intent.PRRequestReview, Confidence: 1.0, Entities: map[string]any{"pr_number": 5}}

	resp := route(t, r, router.Request{Intent: in, Profile: profile.Workout})
	if resp.Status != response.StatusError {
		t.Fatalf("status = %q, want error", resp.Status)
	}
	if !strings.Contains(resp.SpokenText, "reviewers") {
		t.Errorf("hint = %q, should name the missing reviewers", resp.SpokenText)
	}
	if resp.PendingAction != nil {
		t.Error("no pending action should be created on a validation failure")
	}
}

func TestRelaxedProfileExecutesWithoutConfirmation(t *testing.T) {
	r := newRouter()
	resp := route(t, r, router.Request{
		Intent:  parse(t, "squash merge pr 9"),
		Profile: profile.Relaxed,
	})
	if resp.Status != response.StatusOK {
		t.Fatalf("status = %q, spoken %q", resp.Status, resp.SpokenText)
	}
	if !strings.Contains(resp.SpokenText, "squash") {
		t.Errorf("spoken = %q, want squash merge message", resp.SpokenText)
	}
}

func TestSpokenTextRespectsWordCap(t *testing.T) {
	r := newRouter()
	for _, tag := range []profile.Tag{profile.Workout, profile.Kitchen, profile.Focused, profile.Default} {
		resp := route(t, r, router.Request{
			Intent:  parse(t, "summarize pr 321"),
			Profile: tag,
		})
		cfg := profile.For(tag)
		if n := wordCount(resp.SpokenText); n > cfg.MaxSpokenWords+1 {
			t.Errorf("%s: spoken is %d words, cap %d", tag, n, cfg.MaxSpokenWords)
		}
	}
}

func TestDebugTranscript(t *testing.T) {
	r := newRouter()
	route(t, r, router.Request{
		Intent:    parse(t, "summarize pr 11"),
		Profile:   profile.Default,
		SessionID: "s1",
	})

	resp := route(t, r, router.Request{
		Intent:    parse(t, "debug transcript"),
		Profile:   profile.Default,
		SessionID: "s1",
	})
	if resp.Status != response.StatusOK || len(resp.Cards) != 1 {
		t.Fatalf("status %q, cards %d", resp.Status, len(resp.Cards))
	}

	var replay response.Response
	if err := json.Unmarshal([]byte(strings.Join(resp.Cards[0].Lines, "\n")), &replay); err != nil {
		t.Fatalf("transcript card is not valid JSON: %v", err)
	}
	if replay.Intent.Name != intent.PRSummarize {
		t.Errorf("transcript intent = %q, want %q", replay.Intent.Name, intent.PRSummarize)
	}
}
