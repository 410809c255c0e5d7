package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/five82/quizwhiz/internal/api"
)

func sampleSession() Session {
	return Session{
		AccessToken:  "acc",
		RefreshToken: "ref",
		User:         api.User{ID: 7, Username: "ada", Email: "ada@example.com", Role: api.RoleAdmin},
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := FileStore{}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if s.Valid() || s.AccessToken != "" {
		t.Fatalf("Load = %#v, want empty session", s)
	}
}

func TestFileStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.toml")
	store := FileStore{Path: path}

	if err := store.Save(ctx, sampleSession()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("session file mode = %v, want 0600", perm)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(raw), "user_data") {
		t.Fatalf("session file = %q, want user_data key", raw)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != sampleSession() {
		t.Fatalf("Load = %#v, want %#v", got, sampleSession())
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second Clear returned error: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil || got.Valid() {
		t.Fatalf("Load after Clear = %#v, %v; want empty", got, err)
	}
}

func TestFileStore_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	if err := os.WriteFile(path, []byte("access_token = ["), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := FileStore{Path: path}.Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "parse session") {
		t.Fatalf("Load error = %v, want parse session error", err)
	}
}

func TestFileStore_ExpandsTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store := FileStore{Path: "~/qw/session.toml"}
	if err := store.Save(context.Background(), sampleSession()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "qw", "session.toml")); err != nil {
		t.Fatalf("session file not under HOME: %v", err)
	}
}

func TestSQLiteStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	empty, err := store.Load(ctx)
	if err != nil || empty.Valid() {
		t.Fatalf("Load on new db = %#v, %v; want empty", empty, err)
	}

	if err := store.Save(ctx, sampleSession()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != sampleSession() {
		t.Fatalf("Load = %#v, want %#v", got, sampleSession())
	}

	// Dropping the access token removes only that key.
	next := sampleSession()
	next.AccessToken = ""
	if err := store.Save(ctx, next); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.AccessToken != "" || got.RefreshToken != "ref" || got.User.ID != 7 {
		t.Fatalf("Load = %#v, want token cleared and profile kept", got)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil || got != (Session{}) {
		t.Fatalf("Load after Clear = %#v, %v; want zero", got, err)
	}
}
