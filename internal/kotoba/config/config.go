// Package config loads process configuration from environment variables.
// All values have working defaults so the dev REPL runs with no setup.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/mizutama/kotoba/internal/kotoba/pending"
	"github.com/mizutama/kotoba/internal/kotoba/profile"
)

// Config holds everything cmd/kotoba needs to wire the router.
type Config struct {
	// DBPath is the SQLite database file backing the durable pending store
	// and the audit log.
	DBPath string

	// PolicyPath points at the YAML policy rules file. Empty selects the
	// allow-all evaluator.
	PolicyPath string

	// DefaultProfile is the profile applied when a request names none.
	DefaultProfile profile.Tag

	// PendingTTL and DurableTTL are the confirmation-token lifetimes.
	PendingTTL time.Duration
	DurableTTL time.Duration

	// SweepInterval is how often expired tokens are purged.
	SweepInterval time.Duration

	// RateWindow and RateMax override the per-action rate budgets when set;
	// zero keeps the per-action defaults.
	RateWindow time.Duration
	RateMax    int
}

// FromEnv reads the KOTOBA_* environment variables, falling back to
// defaults for anything unset or unparsable.
func FromEnv() Config {
	return Config{
		DBPath:         stringOr("KOTOBA_DB_PATH", "kotoba.db"),
		PolicyPath:     os.Getenv("KOTOBA_POLICY_PATH"),
		DefaultProfile: profile.Tag(stringOr("KOTOBA_DEFAULT_PROFILE", string(profile.Default))),
		PendingTTL:     durationOr("KOTOBA_PENDING_TTL", pending.DefaultTTL),
		DurableTTL:     durationOr("KOTOBA_DURABLE_TTL", pending.DefaultDurableTTL),
		SweepInterval:  durationOr("KOTOBA_SWEEP_INTERVAL", time.Minute),
		RateWindow:     durationOr("KOTOBA_RATE_WINDOW", 0),
		RateMax:        intOr("KOTOBA_RATE_MAX", 0),
	}
}

// stringOr returns the variable's value, or defaultValue when unset or
// empty.
func stringOr(name, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}

// intOr parses the variable as a decimal integer, keeping defaultValue on
// any parse failure.
func intOr(name string, defaultValue int) int {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// durationOr parses the variable as a time.Duration ("30s", "5m"), keeping
// defaultValue on any parse failure.
func durationOr(name string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
