package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for key := range defaults {
		t.Setenv(strings.ToUpper(key), "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabasePath != "./products.db" || cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
	if cfg.CheckInterval != 30*time.Minute || cfg.BatchSize != 5 || cfg.BatchDelay != 2*time.Second {
		t.Fatalf("unexpected schedule: %+v", cfg)
	}
	if cfg.FetchTimeout != 15*time.Second || cfg.FetchRetryAttempts != 2 || cfg.FetchRetryDelay != time.Second {
		t.Fatalf("unexpected fetch settings: %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.RateLimit != 1 || cfg.RateBurst != 3 {
		t.Fatalf("unexpected misc settings: %+v", cfg)
	}
	if cfg.TelegramBotToken != "" || cfg.TelegramAdminChatID != 0 || cfg.RedisAddr != "" {
		t.Fatalf("optional settings should be empty: %+v", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", " abc:123 ")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "-100200")
	t.Setenv("CHECK_INTERVAL_MINUTES", "10")
	t.Setenv("BATCH_SIZE", "3")
	t.Setenv("BATCH_DELAY", "500ms")
	t.Setenv("ALERT_DEDUP", "false")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TelegramBotToken != "abc:123" || cfg.TelegramAdminChatID != -100200 {
		t.Fatalf("unexpected telegram settings: %+v", cfg)
	}
	if cfg.CheckInterval != 10*time.Minute || cfg.BatchSize != 3 || cfg.BatchDelay != 500*time.Millisecond {
		t.Fatalf("unexpected schedule: %+v", cfg)
	}
	if cfg.AlertDedup || cfg.LogLevel != slog.LevelDebug || cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	t.Setenv("BATCH_DELAY", "soon")
	t.Setenv("REFRESH_WORKERS", "-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BatchSize != 5 || cfg.BatchDelay != 2*time.Second || cfg.RefreshWorkers != 2 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_InvalidAdminChatID(t *testing.T) {
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "admin")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric admin chat id")
	}
}
