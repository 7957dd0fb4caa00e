package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spektr-org/opsboard/engine"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opsboard.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if len(cfg.Dashboard.Cards) != 5 {
		t.Errorf("default cards = %d, want 5", len(cfg.Dashboard.Cards))
	}
	if cfg.Dashboard.Alert.Threshold != 1000 {
		t.Errorf("alert threshold = %v, want 1000", cfg.Dashboard.Alert.Threshold)
	}
	if cfg.UploadLimit() != 32<<20 {
		t.Errorf("UploadLimit() = %d", cfg.UploadLimit())
	}
	if len(cfg.EngineOptions()) != 5 {
		t.Errorf("EngineOptions() = %d options, want 5", len(cfg.EngineOptions()))
	}
}

func TestLoadProfileOverridesDefaults(t *testing.T) {
	path := writeProfile(t, `
server:
  addr: ":9090"
dashboard:
  cards:
    - label: Consumo
      column: "Consumo Médio (l/ha)"
      target: 12.5
  alert:
    threshold: 250
    statuses: [sim]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Server.UploadLimitMB != 32 {
		t.Errorf("untouched keys keep defaults, UploadLimitMB = %d", cfg.Server.UploadLimitMB)
	}
	if len(cfg.Dashboard.Cards) != 1 || cfg.Dashboard.Cards[0].Target == nil || *cfg.Dashboard.Cards[0].Target != 12.5 {
		t.Errorf("cards = %+v", cfg.Dashboard.Cards)
	}
	if len(cfg.Dashboard.Charts) != 2 {
		t.Errorf("charts kept defaults, got %d", len(cfg.Dashboard.Charts))
	}
	if cfg.Dashboard.Alert.Threshold != 250 || cfg.Dashboard.Alert.Statuses[0] != "sim" {
		t.Errorf("alert = %+v", cfg.Dashboard.Alert)
	}
}

func TestLoadRejectsUnknownStatus(t *testing.T) {
	path := writeProfile(t, "dashboard:\n  alert:\n    statuses: [quebrado]\n")

	_, err := Load(path)
	if !errors.Is(err, engine.ErrUnknownStatus) {
		t.Errorf("Load() error = %v, want ErrUnknownStatus", err)
	}
}

func TestLoadRejectsBadChart(t *testing.T) {
	path := writeProfile(t, "dashboard:\n  charts:\n    - title: x\n      group_keyword: operador\n      value_keyword: area\n      aggregation: median\n")

	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown aggregation")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing profile")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPSBOARD_ADDR", ":7070")
	t.Setenv("OPSBOARD_REDIS_URL", "redis://cache:6379/1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Addr = %q, want :7070", cfg.Server.Addr)
	}
	if cfg.Redis.URL != "redis://cache:6379/1" {
		t.Errorf("Redis.URL = %q", cfg.Redis.URL)
	}

	t.Setenv("OPSBOARD_UPLOAD_LIMIT_MB", "lots")
	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric upload limit")
	}
}

func TestGetEnv(t *testing.T) {
	os.Unsetenv("TEST_OPSBOARD_VAR")
	if got := getEnv("TEST_OPSBOARD_VAR", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want %q", got, "default")
	}

	t.Setenv("TEST_OPSBOARD_VAR", "custom")
	if got := getEnv("TEST_OPSBOARD_VAR", "default"); got != "custom" {
		t.Errorf("getEnv() = %q, want %q", got, "custom")
	}
}
