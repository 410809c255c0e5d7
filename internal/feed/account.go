package feed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/five82/quizwhiz/internal/api"
	"github.com/five82/quizwhiz/internal/form"
)

// AccountAPI is the slice of the backend used for the signed-in account.
type AccountAPI interface {
	Login(ctx context.Context, creds api.Credentials) (api.LoginResponse, error)
	FetchUser(ctx context.Context, id int64) (api.User, error)
	UpdateUser(ctx context.Context, patch api.UserPatch) (api.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Sessions is the session context the account flows mutate.
// *session.Manager satisfies it.
type Sessions interface {
	Identity
	Begin(ctx context.Context, resp api.LoginResponse) error
	SetUser(ctx context.Context, u api.User) error
	End(ctx context.Context) error
}

// Account handles sign-in, sign-out and the user's own profile.
type Account struct {
	api  AccountAPI
	sess Sessions
	seed Seeder
	log  zerolog.Logger
}

// NewAccount builds the account flows. seed may be nil.
func NewAccount(backend AccountAPI, sess Sessions, seed Seeder, log zerolog.Logger) *Account {
	return &Account{api: backend, sess: sess, seed: seed, log: log.With().Str("component", "account").Logger()}
}

// Login validates f, exchanges the credentials and starts a session.
func (a *Account) Login(ctx context.Context, f form.Login) (api.User, error) {
	creds, err := f.Credentials()
	if err != nil {
		return api.User{}, err
	}
	resp, err := a.api.Login(ctx, creds)
	if err != nil {
		a.log.Warn().Err(err).Str("username", creds.Username).Msg("login failed")
		return api.User{}, err
	}
	if err := a.sess.Begin(ctx, resp); err != nil {
		return api.User{}, fmt.Errorf("start session: %w", err)
	}
	a.forget()
	a.remember(resp.User)
	a.log.Info().Int64("user", resp.User.ID).Str("role", string(resp.User.Role.Normalize())).Msg("login succeeded")
	return a.sess.User(), nil
}

// Logout ends the session locally. The backend keeps no session state.
func (a *Account) Logout(ctx context.Context) error {
	if err := a.sess.End(ctx); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	a.forget()
	a.log.Debug().Msg("logout complete")
	return nil
}

// Profile refetches the signed-in user's profile and stores it in the
// session.
func (a *Account) Profile(ctx context.Context) (api.User, error) {
	uid, ok := a.sess.UserID()
	if !ok {
		return api.User{}, api.ErrNoSession
	}
	u, err := a.api.FetchUser(ctx, uid)
	if err != nil {
		return api.User{}, err
	}
	if err := a.sess.SetUser(ctx, u); err != nil {
		return api.User{}, fmt.Errorf("store profile: %w", err)
	}
	a.remember(u)
	return a.sess.User(), nil
}

// UpdateProfile applies f to the signed-in account.
func (a *Account) UpdateProfile(ctx context.Context, f form.Profile) (api.User, error) {
	uid, ok := a.sess.UserID()
	if !ok {
		return api.User{}, api.ErrNoSession
	}
	patch, err := f.Patch()
	if err != nil {
		return api.User{}, err
	}
	updated, err := a.api.UpdateUser(ctx, patch)
	if err != nil {
		a.log.Warn().Err(err).Msg("update profile failed")
		return api.User{}, err
	}

	merged := a.sess.User()
	merged.ID = uid
	if updated.Username != "" {
		merged.Username = updated.Username
	} else if patch.Username != "" {
		merged.Username = patch.Username
	}
	if updated.Email != "" {
		merged.Email = updated.Email
	} else if patch.Email != "" {
		merged.Email = patch.Email
	}
	if updated.Bio != "" {
		merged.Bio = updated.Bio
	} else if patch.Bio != "" {
		merged.Bio = patch.Bio
	}
	if err := a.sess.SetUser(ctx, merged); err != nil {
		return api.User{}, fmt.Errorf("store profile: %w", err)
	}
	a.remember(a.sess.User())
	return a.sess.User(), nil
}

// DeleteAccount deletes the signed-in account and ends the session.
// Callers confirm with the user first.
func (a *Account) DeleteAccount(ctx context.Context) error {
	uid, ok := a.sess.UserID()
	if !ok {
		return api.ErrNoSession
	}
	if err := a.api.DeleteUser(ctx, uid); err != nil {
		a.log.Warn().Err(err).Msg("delete account failed")
		return err
	}
	a.log.Info().Int64("user", uid).Msg("account deleted")
	return a.Logout(ctx)
}

// forget drops profiles and fallback labels learned under the previous
// session.
func (a *Account) forget() {
	if a.seed != nil {
		a.seed.Reset()
	}
}

func (a *Account) remember(u api.User) {
	if a.seed != nil && u.ID > 0 {
		a.seed.Put(u)
	}
}
