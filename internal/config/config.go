package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the settings QuizWhiz reads at startup.
type Config struct {
	BackendURL     string
	Timeout        time.Duration
	MaxAttempts    int
	RefreshEvery   time.Duration
	SessionStore   string
	SessionPath    string
	OnUnauthorized string
	LogLevel       string
	LogFile        string
	Theme          string
}

// Session store kinds.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

const (
	defaultConfigPath     = "~/.config/quizwhiz/config.toml"
	defaultBackendURL     = "https://quizwhiz-backend-679124120937.us-central1.run.app"
	defaultTimeout        = 10 * time.Second
	defaultMaxAttempts    = 3
	defaultRefreshEvery   = 30 * time.Second
	defaultSessionPath    = "~/.config/quizwhiz/session.toml"
	defaultSQLitePath     = "~/.config/quizwhiz/session.db"
	defaultOnUnauthorized = "clear"
	defaultLogLevel       = "info"
	defaultLogFile        = "~/.local/state/quizwhiz/quizwhiz.log"
	defaultTheme          = "Nightfox"

	envPrefix = "QUIZWHIZ_"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BackendURL:     defaultBackendURL,
		Timeout:        defaultTimeout,
		MaxAttempts:    defaultMaxAttempts,
		RefreshEvery:   defaultRefreshEvery,
		SessionStore:   StoreFile,
		SessionPath:    mustExpand(defaultSessionPath),
		OnUnauthorized: defaultOnUnauthorized,
		LogLevel:       defaultLogLevel,
		LogFile:        mustExpand(defaultLogFile),
		Theme:          defaultTheme,
	}
}

type fileConfig struct {
	BackendURL     string `toml:"backend_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxAttempts    int    `toml:"max_attempts"`
	RefreshSeconds int    `toml:"refresh_seconds"`
	SessionStore   string `toml:"session_store"`
	SessionPath    string `toml:"session_path"`
	OnUnauthorized string `toml:"on_unauthorized"`
	LogLevel       string `toml:"log_level"`
	LogFile        string `toml:"log_file"`
	Theme          string `toml:"theme"`
}

// Load reads the TOML config at path (empty uses the default location),
// then applies QUIZWHIZ_* environment overrides. A missing file is not an
// error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw fileConfig
	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&raw, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return build(raw)
}

// LoadDotEnv loads KEY=VALUE pairs from a .env file into the process
// environment without overriding variables that are already set. Empty
// path means ".env" in the working directory; a missing file is ignored.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func applyEnv(raw *fileConfig, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(envPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", envPrefix, key, err)
		}
		*dst = n
		return nil
	}

	str("BACKEND_URL", &raw.BackendURL)
	str("SESSION_STORE", &raw.SessionStore)
	str("SESSION_PATH", &raw.SessionPath)
	str("ON_UNAUTHORIZED", &raw.OnUnauthorized)
	str("LOG_LEVEL", &raw.LogLevel)
	str("LOG_FILE", &raw.LogFile)
	str("THEME", &raw.Theme)
	for key, dst := range map[string]*int{
		"TIMEOUT_SECONDS": &raw.TimeoutSeconds,
		"MAX_ATTEMPTS":    &raw.MaxAttempts,
		"REFRESH_SECONDS": &raw.RefreshSeconds,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func build(raw fileConfig) (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(raw.BackendURL); v != "" {
		cfg.BackendURL = strings.TrimRight(v, "/")
	}
	if raw.TimeoutSeconds < 0 || raw.MaxAttempts < 0 || raw.RefreshSeconds < 0 {
		return Config{}, errors.New("timeout_seconds, max_attempts and refresh_seconds must not be negative")
	}
	if raw.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(raw.TimeoutSeconds) * time.Second
	}
	if raw.MaxAttempts > 0 {
		cfg.MaxAttempts = raw.MaxAttempts
	}
	if raw.RefreshSeconds > 0 {
		cfg.RefreshEvery = time.Duration(raw.RefreshSeconds) * time.Second
	}

	if v := strings.ToLower(strings.TrimSpace(raw.SessionStore)); v != "" {
		switch v {
		case StoreFile, StoreSQLite, StoreMemory:
			cfg.SessionStore = v
		default:
			return Config{}, fmt.Errorf("unknown session_store %q (want %s, %s or %s)", raw.SessionStore, StoreFile, StoreSQLite, StoreMemory)
		}
	}
	if v := strings.TrimSpace(raw.SessionPath); v != "" {
		cfg.SessionPath = mustExpand(v)
	} else if cfg.SessionStore == StoreSQLite {
		cfg.SessionPath = mustExpand(defaultSQLitePath)
	}

	if v := strings.TrimSpace(raw.OnUnauthorized); v != "" {
		cfg.OnUnauthorized = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.Theme); v != "" {
		cfg.Theme = v
	}
	return cfg, nil
}

// Path returns the config file location Load would read for path.
func Path(path string) string {
	resolved, err := resolvePath(path)
	if err != nil {
		return path
	}
	return resolved
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
