package config

import (
	"strings"
	"testing"
)

func setDummyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUCTIONBOT_TRANSPORT", "dummy")
	t.Setenv("AUCTIONBOT_PROVIDER", "dummy")
}

func TestLoad_Defaults(t *testing.T) {
	setDummyEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PollTimeout != 30 || cfg.SleepSeconds != 1 {
		t.Errorf("poll defaults: timeout=%d sleep=%d", cfg.PollTimeout, cfg.SleepSeconds)
	}
	if cfg.HistoryDBPath != ":memory:" {
		t.Errorf("history db default = %q", cfg.HistoryDBPath)
	}
	if cfg.ManheimBaseURL != "https://api.manheim.com" {
		t.Errorf("base url default = %q", cfg.ManheimBaseURL)
	}
	if cfg.LogLevel != "info" || cfg.LogPretty {
		t.Errorf("log defaults: level=%q pretty=%v", cfg.LogLevel, cfg.LogPretty)
	}
}

func TestLoad_RequiresTelegramToken(t *testing.T) {
	t.Setenv("AUCTIONBOT_TRANSPORT", "telegram")
	t.Setenv("AUCTIONBOT_PROVIDER", "dummy")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "TELEGRAM_BOT_TOKEN") {
		t.Errorf("Load() = %v, want missing-token error", err)
	}
}

func TestLoad_RequiresManheimCredentials(t *testing.T) {
	t.Setenv("AUCTIONBOT_TRANSPORT", "dummy")
	t.Setenv("AUCTIONBOT_PROVIDER", "manheim")
	t.Setenv("MANHEIM_CLIENT_ID", "id")
	t.Setenv("MANHEIM_CLIENT_SECRET", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "MANHEIM_CLIENT") {
		t.Errorf("Load() = %v, want missing-credentials error", err)
	}
}

func TestLoad_UATSwitch(t *testing.T) {
	setDummyEnv(t)
	t.Setenv("USE_MANHEIM_UAT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ManheimBaseURL != "https://uat.api.manheim.com" {
		t.Errorf("UAT base url = %q", cfg.ManheimBaseURL)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_STR", "value")
	t.Setenv("X_INT", "42")
	t.Setenv("X_INT_BAD", "forty-two")
	t.Setenv("X_BOOL", "1")

	if got := envOrDefault("X_STR", "d"); got != "value" {
		t.Errorf("envOrDefault = %q", got)
	}
	if got := envOrDefault("X_MISSING", "d"); got != "d" {
		t.Errorf("envOrDefault fallback = %q", got)
	}
	if got := envIntOrDefault("X_INT", 7); got != 42 {
		t.Errorf("envIntOrDefault = %d", got)
	}
	if got := envIntOrDefault("X_INT_BAD", 7); got != 7 {
		t.Errorf("envIntOrDefault bad value = %d", got)
	}
	if !envBoolOrDefault("X_BOOL", false) {
		t.Error("envBoolOrDefault(1) = false")
	}
	if envBoolOrDefault("X_MISSING", false) {
		t.Error("envBoolOrDefault fallback = true")
	}
}
