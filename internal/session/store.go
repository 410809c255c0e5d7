package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/quizwhiz/internal/api"
)

// MemoryStore keeps the session in process memory only.
type MemoryStore struct {
	mu sync.Mutex
	s  Session
}

func (m *MemoryStore) Load(context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = Session{}
	return nil
}

const defaultSessionPath = "~/.config/quizwhiz/session.toml"

// DefaultPath returns the default session file path.
func DefaultPath() string {
	return defaultSessionPath
}

// FileStore persists the session as a TOML file readable only by the owner.
type FileStore struct {
	Path string // empty uses DefaultPath
}

// fileRecord mirrors the keys the mobile app kept in local storage;
// user_data is the JSON-serialised profile.
type fileRecord struct {
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
	UserData     string `toml:"user_data"`
}

// Load reads the session file. A missing file yields an empty session.
func (f FileStore) Load(context.Context) (Session, error) {
	resolved, err := resolvePath(f.Path)
	if err != nil {
		return Session{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("open session: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}

	var rec fileRecord
	if err := toml.Unmarshal(bytes, &rec); err != nil {
		return Session{}, fmt.Errorf("parse session: %w", err)
	}
	return decodeRecord(rec.AccessToken, rec.RefreshToken, rec.UserData)
}

// Save writes the session file, creating directories as needed.
func (f FileStore) Save(_ context.Context, s Session) error {
	resolved, err := resolvePath(f.Path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	userData, err := encodeUser(s.User)
	if err != nil {
		return err
	}
	bytes, err := toml.Marshal(fileRecord{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		UserData:     userData,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the session file.
func (f FileStore) Clear(context.Context) error {
	resolved, err := resolvePath(f.Path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.Remove(resolved); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func encodeUser(u api.User) (string, error) {
	if u.ID == 0 && u.Username == "" {
		return "", nil
	}
	data, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("encode user data: %w", err)
	}
	return string(data), nil
}

func decodeRecord(access, refresh, userData string) (Session, error) {
	s := Session{AccessToken: access, RefreshToken: refresh}
	if strings.TrimSpace(userData) == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(userData), &s.User); err != nil {
		return Session{}, fmt.Errorf("decode user data: %w", err)
	}
	return s, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultSessionPath)
	}
	return expandPath(path)
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
