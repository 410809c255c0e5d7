package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/quizwhiz/internal/api"
)

type fakeRefresher struct {
	pair  api.TokenPair
	err   error
	calls int
	got   string
}

func (f *fakeRefresher) RefreshToken(_ context.Context, token string) (api.TokenPair, error) {
	f.calls++
	f.got = token
	return f.pair, f.err
}

func signedIn(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	store := &MemoryStore{}
	m := NewManager(store, zerolog.Nop())
	require.NoError(t, m.Begin(context.Background(), api.LoginResponse{
		AccessToken:  "old",
		RefreshToken: "refresh-1",
		User:         api.User{ID: 9, Username: "kim"},
	}))
	return m, store
}

func TestManager_BeginRestoreEnd(t *testing.T) {
	ctx := context.Background()
	m, store := signedIn(t)

	s, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "old", m.AccessToken())
	id, ok := m.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(9), id)
	assert.False(t, m.IsAdmin())

	other := NewManager(store, zerolog.Nop())
	require.NoError(t, other.Restore(ctx))
	restored, ok := other.Current()
	require.True(t, ok)
	assert.Equal(t, s, restored)

	require.NoError(t, m.End(ctx))
	_, ok = m.Current()
	assert.False(t, ok)
	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Session{}, persisted)
}

func TestManager_SetUserKeepsRole(t *testing.T) {
	ctx := context.Background()
	store := &MemoryStore{}
	m := NewManager(store, zerolog.Nop())
	require.NoError(t, m.Begin(ctx, api.LoginResponse{AccessToken: "a", User: api.User{ID: 1, Role: api.RoleAdmin}}))

	require.NoError(t, m.SetUser(ctx, api.User{ID: 1, Username: "renamed"}))
	assert.True(t, m.IsAdmin())
	assert.Equal(t, "renamed", m.User().Username)

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "renamed", persisted.User.Username)
}

func TestClearOnUnauthorized_InvalidatesWithoutRetry(t *testing.T) {
	ctx := context.Background()
	m, store := signedIn(t)

	retry := ClearOnUnauthorized(m).HandleUnauthorized(ctx)
	assert.False(t, retry)
	assert.Empty(t, m.AccessToken())
	assert.Equal(t, "kim", m.User().Username, "profile survives invalidation")

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted.AccessToken)
}

func TestRefreshOnUnauthorized_StoresNewTokenAndRetries(t *testing.T) {
	ctx := context.Background()
	m, store := signedIn(t)
	r := &fakeRefresher{pair: api.TokenPair{AccessToken: "new"}}

	retry := RefreshOnUnauthorized(m, r).HandleUnauthorized(ctx)
	assert.True(t, retry)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, "refresh-1", r.got)
	assert.Equal(t, "new", m.AccessToken())

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", persisted.AccessToken)
	assert.Equal(t, "refresh-1", persisted.RefreshToken, "empty refresh keeps the old one")
}

func TestRefreshOnUnauthorized_FallsBackToClear(t *testing.T) {
	ctx := context.Background()
	m, _ := signedIn(t)
	r := &fakeRefresher{err: errors.New("refresh rejected")}

	retry := RefreshOnUnauthorized(m, r).HandleUnauthorized(ctx)
	assert.False(t, retry)
	assert.Empty(t, m.AccessToken())
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]string{"": PolicyClear, "Clear": PolicyClear, " refresh ": PolicyRefresh} {
		got, err := ParsePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParsePolicy("retry-forever")
	assert.Error(t, err)
}
