package feed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/five82/quizwhiz/internal/api"
	"github.com/five82/quizwhiz/internal/reconcile"
	"github.com/five82/quizwhiz/internal/state"
)

// ErrSkipped is returned when a fetch was not started because one with the
// same params is in flight or the view has run out of attempts.
var ErrSkipped = errors.New("fetch skipped")

// Identity is the signed-in user as seen by loaders. *session.Manager
// satisfies it.
type Identity interface {
	UserID() (int64, bool)
	User() api.User
	IsAdmin() bool
}

// FetchFunc loads the raw records for params.
type FetchFunc[T reconcile.Record] func(ctx context.Context, params string) ([]T, error)

// Deps are shared by every loader.
type Deps struct {
	Names       reconcile.NameResolver
	Who         Identity
	MaxAttempts int
	Log         zerolog.Logger
}

// Loader runs one list view: fetch, filter, reconcile, then publish the
// result through a state.Machine.
type Loader[T reconcile.Record] struct {
	name    string
	fetch   FetchFunc[T]
	machine *state.Machine[reconcile.Item[T]]
	names   reconcile.NameResolver
	who     Identity
	log     zerolog.Logger

	emptyOnNotFound bool
	keep            func(rec T, uid int64) bool
	sort            []reconcile.Option[T]
}

// LoaderOption customises a Loader.
type LoaderOption[T reconcile.Record] func(*Loader[T])

// EmptyOnNotFound treats a 404 as an empty list.
func EmptyOnNotFound[T reconcile.Record]() LoaderOption[T] {
	return func(l *Loader[T]) { l.emptyOnNotFound = true }
}

// Keep filters fetched records; uid is zero when nobody is signed in.
func Keep[T reconcile.Record](keep func(rec T, uid int64) bool) LoaderOption[T] {
	return func(l *Loader[T]) { l.keep = keep }
}

// Sorted passes sort options through to reconcile.Reconcile.
func Sorted[T reconcile.Record](opts ...reconcile.Option[T]) LoaderOption[T] {
	return func(l *Loader[T]) { l.sort = append(l.sort, opts...) }
}

// WithoutNames skips creator lookups, e.g. for lists of users.
func WithoutNames[T reconcile.Record]() LoaderOption[T] {
	return func(l *Loader[T]) { l.names = nil }
}

// NewLoader builds an idle loader.
func NewLoader[T reconcile.Record](name string, fetch FetchFunc[T], deps Deps, opts ...LoaderOption[T]) *Loader[T] {
	l := &Loader[T]{
		name:    name,
		fetch:   fetch,
		machine: state.NewMachine[reconcile.Item[T]](deps.MaxAttempts),
		names:   deps.Names,
		who:     deps.Who,
		log:     deps.Log.With().Str("feed", name).Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name identifies the loader in logs.
func (l *Loader[T]) Name() string { return l.name }

// Snapshot returns the current view state.
func (l *Loader[T]) Snapshot() state.Snapshot[reconcile.Item[T]] {
	return l.machine.Snapshot()
}

// Load fetches params, superseding any fetch for different params. The
// returned error is also recorded in the view state.
func (l *Loader[T]) Load(ctx context.Context, params string) error {
	gen, ok := l.machine.Begin(params)
	if !ok {
		return ErrSkipped
	}
	return l.run(ctx, gen, params)
}

// Retry repeats the last failed fetch while attempts remain.
func (l *Loader[T]) Retry(ctx context.Context) error {
	gen, params, ok := l.machine.Retry()
	if !ok {
		return ErrSkipped
	}
	return l.run(ctx, gen, params)
}

// Refresh refetches the current params of a loaded view. Views that are
// idle, loading or errored are left alone.
func (l *Loader[T]) Refresh(ctx context.Context) error {
	snap := l.machine.Snapshot()
	if snap.Phase != state.Loaded {
		return ErrSkipped
	}
	return l.Load(ctx, snap.Params)
}

// Reset returns the view to idle, as on remount.
func (l *Loader[T]) Reset() { l.machine.Reset() }

func (l *Loader[T]) run(ctx context.Context, gen uint64, params string) error {
	raw, err := l.fetch(ctx, params)
	if err != nil && l.emptyOnNotFound && api.IsKind(err, api.KindNotFound) {
		raw, err = nil, nil
	}
	if err != nil {
		if l.machine.Fail(gen, err) {
			l.log.Warn().Err(err).Str("params", params).Uint64("gen", gen).Msg("fetch failed")
		} else {
			l.log.Debug().Err(err).Uint64("gen", gen).Msg("superseded fetch failed")
		}
		return err
	}

	var uid int64
	if l.who != nil {
		uid, _ = l.who.UserID()
	}
	if l.keep != nil {
		raw = reconcile.Filter(raw, func(rec T) bool { return l.keep(rec, uid) })
	}
	items := reconcile.Reconcile(ctx, raw, uid, l.names, l.sort...)

	applied := l.machine.ResolveWith(gen, func(current []reconcile.Item[T]) []reconcile.Item[T] {
		return reconcile.MergeAt(items, current, gen)
	})
	if !applied {
		l.log.Debug().Str("params", params).Uint64("gen", gen).Msg("dropped superseded result")
		return nil
	}
	l.log.Debug().Str("params", params).Int("items", len(items)).Msg("loaded")
	return nil
}

// Insert adds an optimistic placeholder owned by the signed-in user and
// returns its correlation id.
func (l *Loader[T]) Insert(rec T, pos reconcile.Position) string {
	var name string
	if l.who != nil {
		name = l.who.User().Username
	}
	var corr string
	l.machine.Mutate(func(items []reconcile.Item[T]) []reconcile.Item[T] {
		items, corr = reconcile.ApplyCreate(items, rec, name, pos)
		return items
	})
	return corr
}

// Confirm replaces a placeholder with the server's record. A fetch already
// in flight may answer without it; that answer keeps the record and only a
// later fetch can drop it.
func (l *Loader[T]) Confirm(correlationID string, rec T) {
	l.machine.MutateAt(func(items []reconcile.Item[T], gen uint64) []reconcile.Item[T] {
		return reconcile.ConfirmAt(items, correlationID, rec, gen)
	})
}

// Discard drops a placeholder after a failed create.
func (l *Loader[T]) Discard(correlationID string) {
	l.machine.Mutate(func(items []reconcile.Item[T]) []reconcile.Item[T] {
		return reconcile.Discard(items, correlationID)
	})
}

// Patch edits the record with id in place.
func (l *Loader[T]) Patch(id int64, fn func(*T)) bool {
	var found bool
	l.machine.Mutate(func(items []reconcile.Item[T]) []reconcile.Item[T] {
		items, found = reconcile.ApplyUpdate(items, id, fn)
		return items
	})
	return found
}

// Remove deletes the record with id from the view.
func (l *Loader[T]) Remove(id int64) bool {
	var found bool
	l.machine.Mutate(func(items []reconcile.Item[T]) []reconcile.Item[T] {
		items, found = reconcile.ApplyDelete(items, id)
		return items
	})
	return found
}
