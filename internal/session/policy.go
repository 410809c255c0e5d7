package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/five82/quizwhiz/internal/api"
)

// Policy names accepted by ParsePolicy.
const (
	PolicyClear   = "clear"
	PolicyRefresh = "refresh"
)

// Refresher trades a refresh token for a new access token.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (api.TokenPair, error)
}

// ParsePolicy validates a configured policy name; empty means PolicyClear.
func ParsePolicy(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyClear:
		return PolicyClear, nil
	case PolicyRefresh:
		return PolicyRefresh, nil
	default:
		return "", fmt.Errorf("unknown unauthorized policy %q (want %q or %q)", name, PolicyClear, PolicyRefresh)
	}
}

// ClearOnUnauthorized invalidates the session and never retries. The caller
// then surfaces "please log in again".
func ClearOnUnauthorized(m *Manager) api.UnauthorizedHandler {
	return api.UnauthorizedFunc(func(ctx context.Context) bool {
		if err := m.Invalidate(ctx); err != nil {
			m.log.Error().Err(err).Msg("invalidate session after 401")
		}
		return false
	})
}

// RefreshOnUnauthorized tries the stored refresh token once and asks for a
// retry when it yields a new access token. Any refresh failure falls back
// to clearing the session.
func RefreshOnUnauthorized(m *Manager, r Refresher) api.UnauthorizedHandler {
	fallback := ClearOnUnauthorized(m)
	return api.UnauthorizedFunc(func(ctx context.Context) bool {
		m.mu.RLock()
		refresh := m.current.RefreshToken
		m.mu.RUnlock()
		if strings.TrimSpace(refresh) == "" || r == nil {
			return fallback.HandleUnauthorized(ctx)
		}
		pair, err := r.RefreshToken(ctx, refresh)
		if err != nil {
			m.log.Warn().Err(err).Msg("token refresh failed")
			return fallback.HandleUnauthorized(ctx)
		}
		if err := m.SetTokens(ctx, pair); err != nil {
			m.log.Error().Err(err).Msg("store refreshed tokens")
		}
		m.log.Debug().Msg("access token refreshed")
		return true
	})
}

// Handler builds the handler for a policy name returned by ParsePolicy.
func Handler(policy string, m *Manager, r Refresher) api.UnauthorizedHandler {
	if policy == PolicyRefresh {
		return RefreshOnUnauthorized(m, r)
	}
	return ClearOnUnauthorized(m)
}
