// Package prefs persists QuizWhiz UI preferences between runs.
// Preferences are stored in ~/.config/quizwhiz/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Lesson tabs remembered across runs.
const (
	TabPublic   = "public"
	TabPersonal = "personal"
)

// Prefs holds what the UI remembers. An empty Theme defers to config.
type Prefs struct {
	Theme string `toml:"theme"`
	Tab   string `toml:"tab"`
}

const defaultPrefsPath = "~/.config/quizwhiz/prefs.toml"

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path. Missing or unreadable files yield the
// zero Prefs with the public tab selected; preferences never block startup.
func Load(path string) Prefs {
	p := Prefs{Tab: TabPublic}

	resolved, err := resolvePath(path)
	if err != nil {
		return p
	}
	file, err := os.Open(resolved)
	if err != nil {
		return p
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return p
	}
	var raw Prefs
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return p
	}

	p.Theme = strings.TrimSpace(raw.Theme)
	if tab := strings.ToLower(strings.TrimSpace(raw.Tab)); tab == TabPersonal {
		p.Tab = TabPersonal
	}
	return p
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
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
