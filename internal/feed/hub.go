package feed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/five82/quizwhiz/internal/api"
)

// Refreshable is a view the background refresher can poke.
type Refreshable interface {
	Name() string
	Refresh(ctx context.Context) error
}

// Hub groups every view and flow of one signed-in session.
type Hub struct {
	Lessons    *Lessons
	Flashcards *Flashcards
	Users      *Users
	Account    *Account
}

// New wires all views to backend. seed may be nil.
func New(backend api.Backend, sess Sessions, seed Seeder, deps Deps) *Hub {
	if deps.Who == nil {
		deps.Who = sess
	}
	return &Hub{
		Lessons:    NewLessons(backend, deps),
		Flashcards: NewFlashcards(backend, deps),
		Users:      NewUsers(backend, seed, deps),
		Account:    NewAccount(backend, sess, seed, deps.Log),
	}
}

// Views lists the list views in a stable order.
func (h *Hub) Views() []Refreshable {
	return []Refreshable{
		h.Lessons.Public,
		h.Lessons.Personal,
		h.Lessons.Search,
		h.Flashcards.ByLesson,
		h.Flashcards.Public,
		h.Users.List,
	}
}

// RefreshLoaded refetches every view that is currently loaded and returns
// how many refreshes were started. Errored views are left for the user to
// retry.
func (h *Hub) RefreshLoaded(ctx context.Context, log zerolog.Logger) int {
	started := 0
	for _, v := range h.Views() {
		err := v.Refresh(ctx)
		if errors.Is(err, ErrSkipped) {
			continue
		}
		started++
		if err != nil {
			log.Debug().Err(err).Str("feed", v.Name()).Msg("background refresh failed")
		}
	}
	return started
}

// Reset returns every view to idle, e.g. after the signed-in user changes.
func (h *Hub) Reset() {
	h.Lessons.Reset()
	h.Flashcards.Reset()
	h.Users.Reset()
}
