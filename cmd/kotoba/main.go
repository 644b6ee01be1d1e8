// Command kotoba runs the command-interpretation layer behind a line-based
// developer REPL: each stdin line is parsed, routed, and printed as the
// JSON response envelope. The REPL is a development transport only; in
// production an external transport produces intents and consumes responses.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mizutama/kotoba/common/version"
	"github.com/mizutama/kotoba/internal/kotoba/config"
	"github.com/mizutama/kotoba/internal/kotoba/intent"
	"github.com/mizutama/kotoba/internal/kotoba/policy"
	"github.com/mizutama/kotoba/internal/kotoba/profile"
	"github.com/mizutama/kotoba/internal/kotoba/ratelimit"
	"github.com/mizutama/kotoba/internal/kotoba/response"
	"github.com/mizutama/kotoba/internal/kotoba/router"
	"github.com/mizutama/kotoba/internal/kotoba/store"
)

func main() {
	fmt.Printf("Kotoba Command Layer\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	cfg := config.FromEnv()

	s, err := store.New(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	evaluator, err := loadPolicy(cfg.PolicyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load policy rules: %v\n", err)
		os.Exit(1)
	}

	durable := store.NewPendingStore(s)
	r := router.New(router.Options{
		Durable:    durable,
		Policy:     evaluator,
		Limiter:    ratelimit.NewSlidingWindow(),
		Audit:      store.NewAuditLog(s),
		PendingTTL: cfg.PendingTTL,
		DurableTTL: cfg.DurableTTL,
		RateWindow: cfg.RateWindow,
		RateMax:    cfg.RateMax,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Expired-token sweep. Expiry is otherwise detected lazily on access,
	// so without this loop abandoned tokens linger until next touched.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Pendings().CleanupExpired(); n > 0 {
					slog.Info("swept expired pending actions", "count", n)
				}
				if n, err := durable.Sweep(ctx); err != nil {
					slog.Warn("sweep durable pending actions", "err", err)
				} else if n > 0 {
					slog.Info("swept expired durable pending actions", "count", n)
				}
			}
		}
	}()

	if err := repl(ctx, r, cfg.DefaultProfile); err != nil {
		fmt.Fprintf(os.Stderr, "REPL error: %v\n", err)
		os.Exit(1)
	}
}

// loadPolicy reads the rules file, or falls back to allow-all when no path
// is configured.
func loadPolicy(path string) (policy.Evaluator, error) {
	if path == "" {
		slog.Info("no policy rules file configured, allowing all actions")
		return policy.AllowAll(), nil
	}
	rules, err := policy.LoadFile(path)
	if err != nil {
		return nil, err
	}
	slog.Info("policy rules loaded", "path", path)
	return rules, nil
}

// repl reads one utterance per line and prints the routed response. The
// profile switches locally on a successful set-profile command; the user
// identity comes from KOTOBA_USER and is empty (profile-gated path) by
// default.
func repl(ctx context.Context, r *router.Router, prof profile.Tag) error {
	parser := intent.NewParser()
	sessionID := uuid.NewString()
	userID := os.Getenv("KOTOBA_USER")

	fmt.Printf("session %s, profile %s. Type a command, Ctrl+D to exit.\n", sessionID, prof)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Println()
				return <-scanErr
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			in := parser.Parse(line)
			resp, err := r.Route(ctx, router.Request{
				Intent:    in,
				Profile:   prof,
				SessionID: sessionID,
				UserID:    userID,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "route: %v\n", err)
				continue
			}

			if in.Name == intent.SetProfile && resp.Status == response.StatusOK {
				prof = profile.For(profile.Tag(in.StringEntity("profile"))).Profile
				fmt.Printf("(profile is now %s)\n", prof)
			}

			raw, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal response: %w", err)
			}
			fmt.Println(string(raw))
		}
	}
}
