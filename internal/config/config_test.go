package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("DEFAULT_TIMEZONE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8080" {
		t.Errorf("got port %s, want 8080", cfg.Port)
	}
	if cfg.DefaultTimezone != "UTC" {
		t.Errorf("got timezone %s, want UTC", cfg.DefaultTimezone)
	}
	if cfg.RedisURL == "" {
		t.Error("expected a default redis URL")
	}
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "database_url: postgres://file-host/db\nping_base_url: https://file-host\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DATABASE_URL", "postgres://env-host/db")
	t.Setenv("PING_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "postgres://env-host/db" {
		t.Errorf("env value lost: %s", cfg.DatabaseURL)
	}
	if cfg.PingBaseURL != "https://file-host" {
		t.Errorf("file value not applied: %s", cfg.PingBaseURL)
	}
}

func TestLoadRejectsUnknownFileKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("databse_url: typo\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Error("expected unknown-key rejection")
	}
}
