package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mizutama/kotoba/common/trace"
	"github.com/mizutama/kotoba/internal/kotoba/audit"
	"github.com/mizutama/kotoba/internal/kotoba/executor"
	"github.com/mizutama/kotoba/internal/kotoba/intent"
	"github.com/mizutama/kotoba/internal/kotoba/policy"
	"github.com/mizutama/kotoba/internal/kotoba/profile"
	"github.com/mizutama/kotoba/internal/kotoba/response"
)

// routeGated runs the policy-integrated protocol for one gated action:
// rate-limit, policy, then durable confirmation or execution. Required
// entities were validated by the caller. Exactly one terminal audit write
// happens per call; only the rate-limit and deny branches tolerate an
// idempotency-key conflict on that write, because there the outcome was
// already decided and a conflicting retry changes nothing.
func (r *Router) routeGated(ctx context.Context, cfg profile.Config, req Request, spec actionSpec) (*response.Response, error) {
	in := req.Intent
	key := idemKey(req)
	traceID := trace.FromContext(ctx)
	target := spec.target(in)

	window, maxCalls := spec.window, spec.maxCalls
	if r.rateWindow > 0 && r.rateMax > 0 {
		window, maxCalls = r.rateWindow, r.rateMax
	}

	if res := r.limiter.Check(req.UserID, spec.actionType, window, maxCalls); !res.Allowed {
		r.log.Info("gated action rate limited",
			slog.String("trace_id", traceID),
			slog.String("user", req.UserID),
			slog.String("action", spec.actionType))

		_, err := r.audit.Write(ctx, audit.Entry{
			TraceID:        traceID,
			User:           req.UserID,
			ActionType:     spec.actionType,
			OK:             false,
			Target:         target,
			Request:        in.Entities,
			Result:         "rate limited: " + res.Reason,
			IdempotencyKey: key,
		})
		if err != nil && !errors.Is(err, audit.ErrConflict) {
			return nil, err
		}

		msg := res.Reason
		if msg == "" {
			msg = "Too many requests. Try again in a minute."
		}
		return response.Error(in, msg), nil
	}

	verdict, err := r.policy.Evaluate(ctx, req.UserID, repoOf(in), spec.actionType)
	if err != nil {
		return nil, err
	}

	switch verdict.Decision {
	case policy.Deny:
		r.log.Info("gated action denied",
			slog.String("trace_id", traceID),
			slog.String("user", req.UserID),
			slog.String("action", spec.actionType),
			slog.String("reason", verdict.Reason))

		_, err := r.audit.Write(ctx, audit.Entry{
			TraceID:        traceID,
			User:           req.UserID,
			ActionType:     spec.actionType,
			OK:             false,
			Target:         target,
			Request:        in.Entities,
			Result:         "denied: " + verdict.Reason,
			IdempotencyKey: key,
		})
		if err != nil && !errors.Is(err, audit.ErrConflict) {
			return nil, err
		}
		return response.Error(in, verdict.Reason), nil

	case policy.RequireConfirmation:
		act, err := r.durable.Create(ctx, in.Name, in.Entities, spec.summary(in), req.UserID, r.durableTTL)
		if err != nil {
			return nil, err
		}

		if _, err := r.audit.Write(ctx, audit.Entry{
			TraceID:        traceID,
			User:           req.UserID,
			ActionType:     spec.actionType,
			OK:             true,
			Target:         target,
			Request:        in.Entities,
			Result:         "confirmation required, token " + act.Token,
			IdempotencyKey: key,
		}); err != nil {
			return nil, err
		}

		return response.NeedsConfirmation(in, confirmPrompt(cfg, act.Summary), &response.PendingAction{
			Token:     act.Token,
			ExpiresAt: act.ExpiresAt,
			Summary:   act.Summary,
		}), nil
	}

	return r.perform(ctx, in, spec, req.UserID, key)
}

// perform executes an allowed (or already-confirmed) gated action. With a
// live credential from the token source it calls the configured executor;
// without one it runs the deterministic fixture and marks the audit entry
// so operators can tell the two modes apart from the log alone. Executor
// and audit failures propagate: swallowing them could double-execute a
// side effect on retry.
func (r *Router) perform(ctx context.Context, in intent.Intent, spec actionSpec, user, key string) (*response.Response, error) {
	traceID := trace.FromContext(ctx)

	cred, err := r.tokens.Credential(ctx, user)
	if err != nil {
		return nil, err
	}

	number, _ := in.IntEntity("pr_number")
	ereq := executor.Request{
		ActionType: spec.actionType,
		Repo:       repoOf(in),
		Number:     number,
		Entities:   in.Entities,
		Credential: cred,
	}

	var (
		exec   executor.Executor = r.exec
		result executor.Result
	)
	if cred == "" {
		exec = executor.Fixture{}
	}
	result, err = exec.Execute(ctx, ereq)
	if err != nil {
		return nil, err
	}

	logged := result.Message
	if cred == "" {
		logged = "fixture mode (no live credential): " + result.Message
	}
	r.log.Info("gated action executed",
		slog.String("trace_id", traceID),
		slog.String("user", user),
		slog.String("action", spec.actionType),
		slog.Bool("ok", result.OK),
		slog.Bool("fixture", cred == ""))

	if r.audit != nil {
		if _, err := r.audit.Write(ctx, audit.Entry{
			TraceID:        traceID,
			User:           user,
			ActionType:     spec.actionType,
			OK:             result.OK,
			Target:         spec.target(in),
			Request:        in.Entities,
			Result:         logged,
			IdempotencyKey: key,
		}); err != nil {
			return nil, err
		}
	}

	if !result.OK {
		return response.Error(in, result.Message), nil
	}
	return response.OK(in, result.Message), nil
}
