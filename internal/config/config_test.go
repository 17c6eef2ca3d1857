package config

import (
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	for _, key := range []string{
		"BACKEND_BASE_URL", "FORWARDING_POLL_INTERVAL", "DB_HOST", "REDIS_ADDR",
		"REVERB_APP_KEY", "REVERB_ENABLED", "TOKEN_SECRET",
	} {
		t.Setenv(key, "")
	}

	cfg := New()

	if cfg.Backend.BaseURL != "http://localhost:8000/api" {
		t.Fatalf("unexpected base url %q", cfg.Backend.BaseURL)
	}
	if cfg.Forwarding.PollInterval != 10*time.Second {
		t.Fatalf("unexpected poll interval %s", cfg.Forwarding.PollInterval)
	}
	if cfg.JournalEnabled() || cfg.CacheEnabled() {
		t.Fatalf("journal and cache should be disabled by default")
	}
	if cfg.RealtimeEnabled() {
		t.Fatalf("realtime needs an app key")
	}
	if cfg.TokenSecret() != cfg.App.Name {
		t.Fatalf("token secret should fall back to app name")
	}
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://sms.example.com/api/")
	t.Setenv("FORWARDING_POLL_INTERVAL", "3s")
	t.Setenv("FORWARDING_AUTO_START", "yes")
	t.Setenv("REVERB_APP_KEY", "key")
	t.Setenv("REVERB_PORT", "not-a-number")
	t.Setenv("DB_HOST", "db")

	cfg := New()

	if cfg.Backend.BaseURL != "https://sms.example.com/api" {
		t.Fatalf("trailing slash should be trimmed, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Forwarding.PollInterval != 3*time.Second {
		t.Fatalf("unexpected poll interval %s", cfg.Forwarding.PollInterval)
	}
	if !cfg.Forwarding.AutoStart {
		t.Fatalf("auto start should be enabled")
	}
	if cfg.Reverb.Port != 8080 {
		t.Fatalf("invalid int should fall back to default, got %d", cfg.Reverb.Port)
	}
	if !cfg.RealtimeEnabled() || !cfg.JournalEnabled() {
		t.Fatalf("realtime and journal should be enabled")
	}
}
