package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "4000" {
		t.Fatalf("expected default port 4000, got %q", cfg.Port)
	}
	if cfg.TokenDuration != 24*time.Hour {
		t.Fatalf("expected default token duration 24h, got %v", cfg.TokenDuration)
	}
	if cfg.SyncBatchSize != 10 {
		t.Fatalf("expected default sync batch size 10, got %d", cfg.SyncBatchSize)
	}
	if cfg.AMQPURL != "" {
		t.Fatalf("expected AMQP disabled by default, got %q", cfg.AMQPURL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SYNC_INTERVAL", "2m")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.SyncInterval != 2*time.Minute {
		t.Fatalf("expected sync interval 2m, got %v", cfg.SyncInterval)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Fatalf("expected rate limit 120, got %d", cfg.RateLimitPerMinute)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Port:               "notaport",
		RateLimitPerMinute: 0,
		SQLiteDBPath:       "test.db",
		TokenDuration:      time.Second,
		AMQPURL:            "http://wrong-scheme",
		SyncBatchSize:      0,
		SyncInterval:       0,
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"invalid port", "rate limit", "token duration", "AMQP URL scheme", "sync batch size", "sync interval"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %q, got:\n%v", want, err)
		}
	}
}

func TestValidateOK(t *testing.T) {
	cfg := &Config{
		Port:               "4000",
		RateLimitPerMinute: 60,
		SQLiteDBPath:       t.TempDir() + "/kharcha.db",
		TokenDuration:      time.Hour,
		SyncBatchSize:      10,
		SyncInterval:       30 * time.Second,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
