// Package session owns the signed-in identity: the tokens and user profile
// persisted between runs, and the policy applied when the backend rejects
// the access token.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/five82/quizwhiz/internal/api"
)

// Session is the persisted login state.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         api.User
}

// Valid reports whether the session can make authenticated calls.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.AccessToken) != "" && s.User.ID > 0
}

// Store persists a Session. Implementations must treat a missing session as
// an empty Session and a nil error.
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// Manager is the session context handed to every component that needs the
// current identity. It is safe for concurrent use.
type Manager struct {
	store Store
	log   zerolog.Logger

	mu      sync.RWMutex
	current Session
}

// NewManager builds a Manager backed by store.
func NewManager(store Store, log zerolog.Logger) *Manager {
	if store == nil {
		store = &MemoryStore{}
	}
	return &Manager{store: store, log: log}
}

// Restore loads the persisted session, if any.
func (m *Manager) Restore(ctx context.Context) error {
	s, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	m.log.Debug().Bool("valid", s.Valid()).Int64("user", s.User.ID).Msg("session restored")
	return nil
}

// Begin records a fresh login.
func (m *Manager) Begin(ctx context.Context, resp api.LoginResponse) error {
	s := Session{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken, User: resp.User}
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	m.log.Info().Int64("user", s.User.ID).Str("username", s.User.Username).Msg("signed in")
	return nil
}

// Current returns the session and whether it can make authenticated calls.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.current.Valid()
}

// AccessToken implements api.TokenSource.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.AccessToken
}

// UserID returns the signed-in user's id. Ownership checks use this value and
// never a flag from a list payload.
func (m *Manager) UserID() (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.User.ID, m.current.User.ID > 0
}

// User returns the cached profile of the signed-in user.
func (m *Manager) User() api.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.User
}

// IsAdmin reports whether the signed-in user carries the admin role.
func (m *Manager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Valid() && m.current.User.IsAdmin()
}

// SetUser replaces the stored profile after a successful profile update.
func (m *Manager) SetUser(ctx context.Context, u api.User) error {
	m.mu.Lock()
	next := m.current
	if u.Role == "" {
		u.Role = next.User.Role
	}
	next.User = u
	m.mu.Unlock()
	return m.replace(ctx, next)
}

// SetTokens stores a refreshed token pair. An empty refresh token keeps the
// previous one.
func (m *Manager) SetTokens(ctx context.Context, pair api.TokenPair) error {
	m.mu.RLock()
	next := m.current
	m.mu.RUnlock()
	next.AccessToken = pair.AccessToken
	if strings.TrimSpace(pair.RefreshToken) != "" {
		next.RefreshToken = pair.RefreshToken
	}
	return m.replace(ctx, next)
}

// Invalidate drops the access token, keeping the profile so screens can
// still say who was signed in.
func (m *Manager) Invalidate(ctx context.Context) error {
	m.mu.RLock()
	next := m.current
	m.mu.RUnlock()
	if next.AccessToken == "" {
		return nil
	}
	next.AccessToken = ""
	m.log.Warn().Int64("user", next.User.ID).Msg("session invalidated")
	return m.replace(ctx, next)
}

// End signs out and clears the persisted session.
func (m *Manager) End(ctx context.Context) error {
	m.mu.Lock()
	m.current = Session{}
	m.mu.Unlock()
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.log.Info().Msg("signed out")
	return nil
}

func (m *Manager) replace(ctx context.Context, next Session) error {
	m.mu.Lock()
	m.current = next
	m.mu.Unlock()
	if err := m.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
