package feed

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/five82/quizwhiz/internal/api"
	"github.com/five82/quizwhiz/internal/form"
)

// UserAPI is the slice of the backend the admin view uses.
type UserAPI interface {
	ListUsers(ctx context.Context) ([]api.User, error)
	UpdateUser(ctx context.Context, patch api.UserPatch) (api.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Seeder receives profiles learned from listings and forgets them when the
// session changes. *usercache.Cache satisfies it.
type Seeder interface {
	Put(u api.User)
	Reset()
}

// errNotAdmin is reported without touching the network.
var errNotAdmin = &api.Failure{Kind: api.KindForbidden, Status: 403, Message: "administrator role required"}

// Users is the admin user list. Access is decided by the session's role.
type Users struct {
	api  UserAPI
	who  Identity
	seed Seeder
	log  zerolog.Logger

	List *Loader[api.User]
}

// NewUsers wires the admin view. seed may be nil.
func NewUsers(backend UserAPI, seed Seeder, deps Deps) *Users {
	u := &Users{
		api:  backend,
		who:  deps.Who,
		seed: seed,
		log:  deps.Log.With().Str("component", "users").Logger(),
	}
	u.List = NewLoader[api.User]("users", func(ctx context.Context, _ string) ([]api.User, error) {
		if !u.admin() {
			return nil, errNotAdmin
		}
		users, err := backend.ListUsers(ctx)
		if err == nil && u.seed != nil {
			for _, user := range users {
				u.seed.Put(user)
			}
		}
		return users, err
	}, deps, WithoutNames[api.User]())
	return u
}

// Load mounts the list.
func (u *Users) Load(ctx context.Context) error {
	return u.List.Load(ctx, "")
}

// Update edits another account. Blank form fields are left unchanged.
func (u *Users) Update(ctx context.Context, id int64, f form.Profile) (api.User, error) {
	if !u.admin() {
		return api.User{}, errNotAdmin
	}
	patch, err := f.Patch()
	if err != nil {
		return api.User{}, err
	}
	patch.UserID = id

	updated, err := u.api.UpdateUser(ctx, patch)
	if err != nil {
		u.log.Warn().Err(err).Int64("user", id).Msg("update user failed")
		return api.User{}, err
	}
	u.List.Patch(id, func(cur *api.User) {
		if updated.ID == 0 {
			updated.ID = id
		}
		if updated.Role == "" {
			updated.Role = cur.Role
		}
		*cur = updated
	})
	return updated, nil
}

// Delete removes account id. Callers confirm with the user first.
func (u *Users) Delete(ctx context.Context, id int64) error {
	if !u.admin() {
		return errNotAdmin
	}
	u.List.Remove(id)
	if err := u.api.DeleteUser(ctx, id); err != nil {
		u.log.Warn().Err(err).Int64("user", id).Msg("delete user failed")
		_ = u.List.Refresh(ctx)
		return err
	}
	u.log.Info().Int64("user", id).Msg("user deleted")
	return nil
}

// Reset returns the list to idle.
func (u *Users) Reset() { u.List.Reset() }

func (u *Users) admin() bool {
	return u.who != nil && u.who.IsAdmin()
}
