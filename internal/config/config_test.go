package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %s", cfg.OpenAIModel)
	}
	if cfg.ReminderDefaultLeadHours != 24 {
		t.Errorf("expected default lead hours 24, got %d", cfg.ReminderDefaultLeadHours)
	}
	if cfg.WebhookRateWindow != time.Minute {
		t.Errorf("expected default rate window 1m, got %s", cfg.WebhookRateWindow)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_MAX_TOKENS", "256")
	t.Setenv("REMINDER_SWEEP_INTERVAL", "30m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.agendai.com, https://staging.agendai.com")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.OpenAIMaxTokens != 256 {
		t.Errorf("expected max tokens 256, got %d", cfg.OpenAIMaxTokens)
	}
	if cfg.ReminderSweepInterval != 30*time.Minute {
		t.Errorf("expected sweep interval 30m, got %s", cfg.ReminderSweepInterval)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %d", len(cfg.CORSAllowedOrigins))
	}
	if cfg.CORSAllowedOrigins[1] != "https://staging.agendai.com" {
		t.Errorf("unexpected origin: %s", cfg.CORSAllowedOrigins[1])
	}
}

func TestGetEnvAsIntInvalid(t *testing.T) {
	t.Setenv("OPENAI_MAX_TOKENS", "not-a-number")
	cfg := Load()
	if cfg.OpenAIMaxTokens != 512 {
		t.Errorf("expected fallback 512, got %d", cfg.OpenAIMaxTokens)
	}
}
