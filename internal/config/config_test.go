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
	if cfg.DefaultDurationMinutes != 30 {
		t.Errorf("expected default duration 30, got %d", cfg.DefaultDurationMinutes)
	}
	if cfg.BookingBufferMinutes != 10 {
		t.Errorf("expected default buffer 10, got %d", cfg.BookingBufferMinutes)
	}
	if cfg.ExternalCallTimeout != 15*time.Second {
		t.Errorf("expected 15s external call timeout, got %s", cfg.ExternalCallTimeout)
	}
	if cfg.DefaultTimezone != "Europe/Madrid" {
		t.Errorf("expected Europe/Madrid, got %s", cfg.DefaultTimezone)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("BOOKING_BUFFER_MINUTES", "5")
	t.Setenv("EXTERNAL_CALL_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %s", cfg.Port)
	}
	if cfg.BookingBufferMinutes != 5 {
		t.Errorf("expected buffer 5, got %d", cfg.BookingBufferMinutes)
	}
	if cfg.ExternalCallTimeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %s", cfg.ExternalCallTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("DEFAULT_DURATION_MINUTES", "thirty")
	t.Setenv("TELEGRAM_POLL_INTERVAL", "soon")

	cfg := Load()

	if cfg.DefaultDurationMinutes != 30 {
		t.Errorf("expected fallback 30, got %d", cfg.DefaultDurationMinutes)
	}
	if cfg.TelegramPollInterval != 30*time.Second {
		t.Errorf("expected fallback 30s, got %s", cfg.TelegramPollInterval)
	}
}
