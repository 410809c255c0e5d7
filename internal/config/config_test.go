package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BackendURL != defaultBackendURL {
		t.Fatalf("BackendURL = %q, want %q", cfg.BackendURL, defaultBackendURL)
	}
	if cfg.Timeout != defaultTimeout || cfg.MaxAttempts != 3 || cfg.RefreshEvery != defaultRefreshEvery {
		t.Fatalf("numeric defaults = %v/%d/%v", cfg.Timeout, cfg.MaxAttempts, cfg.RefreshEvery)
	}
	if cfg.SessionStore != StoreFile {
		t.Fatalf("SessionStore = %q, want %q", cfg.SessionStore, StoreFile)
	}
	wantSession := filepath.Join(home, ".config/quizwhiz/session.toml")
	if cfg.SessionPath != wantSession {
		t.Fatalf("SessionPath = %q, want %q", cfg.SessionPath, wantSession)
	}
	if cfg.OnUnauthorized != "clear" {
		t.Fatalf("OnUnauthorized = %q, want clear", cfg.OnUnauthorized)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	path := writeConfig(t, `
backend_url = "  http://10.0.0.5:8000/  "
timeout_seconds = 4
max_attempts = 5
refresh_seconds = 60
session_store = " SQLite "
on_unauthorized = "Refresh"
log_level = " DEBUG "
log_file = "~/logs/qw.log"
theme = "Dracula"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BackendURL != "http://10.0.0.5:8000" {
		t.Fatalf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.Timeout != 4*time.Second || cfg.MaxAttempts != 5 || cfg.RefreshEvery != time.Minute {
		t.Fatalf("numeric values = %v/%d/%v", cfg.Timeout, cfg.MaxAttempts, cfg.RefreshEvery)
	}
	if cfg.SessionStore != StoreSQLite {
		t.Fatalf("SessionStore = %q", cfg.SessionStore)
	}
	if !strings.HasSuffix(cfg.SessionPath, "session.db") {
		t.Fatalf("SessionPath = %q, want sqlite default", cfg.SessionPath)
	}
	if cfg.OnUnauthorized != "refresh" || cfg.LogLevel != "debug" || cfg.Theme != "Dracula" {
		t.Fatalf("strings = %q/%q/%q", cfg.OnUnauthorized, cfg.LogLevel, cfg.Theme)
	}
	if cfg.LogFile != filepath.Join(home, "logs/qw.log") {
		t.Fatalf("LogFile = %q", cfg.LogFile)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)
	path := writeConfig(t, `
backend_url = "http://from-file"
max_attempts = 2
`)
	t.Setenv("QUIZWHIZ_BACKEND_URL", "http://from-env")
	t.Setenv("QUIZWHIZ_MAX_ATTEMPTS", "7")
	t.Setenv("QUIZWHIZ_SESSION_STORE", "memory")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BackendURL != "http://from-env" || cfg.MaxAttempts != 7 || cfg.SessionStore != StoreMemory {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoad_BadEnvNumberFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)
	t.Setenv("QUIZWHIZ_TIMEOUT_SECONDS", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "QUIZWHIZ_TIMEOUT_SECONDS") {
		t.Fatalf("Load error = %v, want env parse error", err)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid toml", `backend_url = [`, "parse config"},
		{"negative", `max_attempts = -1`, "must not be negative"},
		{"unknown store", `session_store = "redis"`, "unknown session_store"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("Load returned nil error, want %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %q, want it to mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	// godotenv only fills variables that are absent, not merely empty.
	t.Setenv("QUIZWHIZ_THEME", "")
	if err := os.Unsetenv("QUIZWHIZ_THEME"); err != nil {
		t.Fatalf("Unsetenv: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("QUIZWHIZ_THEME=Slate\nQUIZWHIZ_LOG_LEVEL=warn\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("QUIZWHIZ_LOG_LEVEL", "error")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv returned error: %v", err)
	}
	if got := os.Getenv("QUIZWHIZ_THEME"); got != "Slate" {
		t.Fatalf("QUIZWHIZ_THEME = %q, want Slate", got)
	}
	if got := os.Getenv("QUIZWHIZ_LOG_LEVEL"); got != "error" {
		t.Fatalf("QUIZWHIZ_LOG_LEVEL = %q, existing value must win", got)
	}
	if err := LoadDotEnv(filepath.Join(dir, "absent.env")); err != nil {
		t.Fatalf("missing .env returned error: %v", err)
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BACKEND_URL", "TIMEOUT_SECONDS", "MAX_ATTEMPTS", "REFRESH_SECONDS",
		"SESSION_STORE", "SESSION_PATH", "ON_UNAUTHORIZED", "LOG_LEVEL",
		"LOG_FILE", "THEME",
	} {
		t.Setenv(envPrefix+key, "")
	}
}
