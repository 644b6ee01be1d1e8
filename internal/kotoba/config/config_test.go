package config_test

import (
	"testing"
	"time"

	"github.com/mizutama/kotoba/internal/kotoba/config"
	"github.com/mizutama/kotoba/internal/kotoba/pending"
	"github.com/mizutama/kotoba/internal/kotoba/profile"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := config.FromEnv()

	if cfg.DBPath != "kotoba.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.DefaultProfile != profile.Default {
		t.Errorf("DefaultProfile = %q", cfg.DefaultProfile)
	}
	if cfg.PendingTTL != pending.DefaultTTL || cfg.DurableTTL != pending.DefaultDurableTTL {
		t.Errorf("TTLs = %v / %v", cfg.PendingTTL, cfg.DurableTTL)
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v", cfg.SweepInterval)
	}
	if cfg.RateWindow != 0 || cfg.RateMax != 0 {
		t.Errorf("rate overrides should default to zero, got %v / %d", cfg.RateWindow, cfg.RateMax)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("KOTOBA_DB_PATH", "/tmp/k.db")
	t.Setenv("KOTOBA_POLICY_PATH", "/etc/kotoba/policy.yaml")
	t.Setenv("KOTOBA_DEFAULT_PROFILE", "commute")
	t.Setenv("KOTOBA_PENDING_TTL", "90s")
	t.Setenv("KOTOBA_DURABLE_TTL", "10m")
	t.Setenv("KOTOBA_SWEEP_INTERVAL", "30s")
	t.Setenv("KOTOBA_RATE_WINDOW", "2m")
	t.Setenv("KOTOBA_RATE_MAX", "7")

	cfg := config.FromEnv()

	if cfg.DBPath != "/tmp/k.db" || cfg.PolicyPath != "/etc/kotoba/policy.yaml" {
		t.Errorf("paths = %q / %q", cfg.DBPath, cfg.PolicyPath)
	}
	if cfg.DefaultProfile != profile.Commute {
		t.Errorf("DefaultProfile = %q", cfg.DefaultProfile)
	}
	if cfg.PendingTTL != 90*time.Second || cfg.DurableTTL != 10*time.Minute {
		t.Errorf("TTLs = %v / %v", cfg.PendingTTL, cfg.DurableTTL)
	}
	if cfg.RateWindow != 2*time.Minute || cfg.RateMax != 7 {
		t.Errorf("rate overrides = %v / %d", cfg.RateWindow, cfg.RateMax)
	}
}

func TestFromEnvKeepsDefaultsOnBadValues(t *testing.T) {
	t.Setenv("KOTOBA_PENDING_TTL", "soon")
	t.Setenv("KOTOBA_RATE_MAX", "many")

	cfg := config.FromEnv()
	if cfg.PendingTTL != pending.DefaultTTL {
		t.Errorf("PendingTTL = %v, want default", cfg.PendingTTL)
	}
	if cfg.RateMax != 0 {
		t.Errorf("RateMax = %d, want 0", cfg.RateMax)
	}
}
