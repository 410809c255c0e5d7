package feed

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/five82/quizwhiz/internal/api"
	"github.com/five82/quizwhiz/internal/form"
	"github.com/five82/quizwhiz/internal/reconcile"
)

// FlashcardAPI is the slice of the backend the card views use.
type FlashcardAPI interface {
	FlashcardsByLesson(ctx context.Context, lessonID int64) ([]api.Flashcard, error)
	PublicFlashcards(ctx context.Context) ([]api.Flashcard, error)
	CreateFlashcard(ctx context.Context, card api.NewFlashcard) (api.Flashcard, error)
}

// Flashcards owns the per-lesson deck view and the public card pool.
type Flashcards struct {
	api FlashcardAPI
	who Identity
	log zerolog.Logger

	ByLesson *Loader[api.Flashcard]
	Public   *Loader[api.Flashcard]
}

// NewFlashcards wires the card views to backend.
func NewFlashcards(backend FlashcardAPI, deps Deps) *Flashcards {
	fc := &Flashcards{
		api: backend,
		who: deps.Who,
		log: deps.Log.With().Str("component", "flashcards").Logger(),
	}
	fc.ByLesson = NewLoader[api.Flashcard]("flashcards.lesson", func(ctx context.Context, params string) ([]api.Flashcard, error) {
		id, err := strconv.ParseInt(params, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid lesson id %q", params)
		}
		return backend.FlashcardsByLesson(ctx, id)
	}, deps, EmptyOnNotFound[api.Flashcard]())
	fc.Public = NewLoader[api.Flashcard]("flashcards.public", func(ctx context.Context, _ string) ([]api.Flashcard, error) {
		return backend.PublicFlashcards(ctx)
	}, deps)
	return fc
}

// Open loads the cards of lessonID, superseding any other lesson.
func (fc *Flashcards) Open(ctx context.Context, lessonID int64) error {
	return fc.ByLesson.Load(ctx, strconv.FormatInt(lessonID, 10))
}

// LoadPublic mounts the public pool.
func (fc *Flashcards) LoadPublic(ctx context.Context) error {
	return fc.Public.Load(ctx, "")
}

// Create validates f and adds a card to lessonID. The card shows at the end
// of the open deck right away and is confirmed by a refetch.
func (fc *Flashcards) Create(ctx context.Context, lessonID int64, f form.Flashcard) (api.Flashcard, error) {
	var uid int64
	if fc.who != nil {
		uid, _ = fc.who.UserID()
	}
	card, err := f.NewFlashcard(lessonID, uid)
	if err != nil {
		return api.Flashcard{}, err
	}

	open := fc.ByLesson.Snapshot().Params == strconv.FormatInt(lessonID, 10)
	var corr string
	if open {
		corr = fc.ByLesson.Insert(api.Flashcard{
			FrontText: card.FrontText,
			BackText:  card.BackText,
			Lesson:    lessonID,
			CreatedBy: uid,
		}, reconcile.Append)
	}

	created, err := fc.api.CreateFlashcard(ctx, card)
	if err != nil {
		if open {
			fc.ByLesson.Discard(corr)
		}
		fc.log.Warn().Err(err).Int64("lesson", lessonID).Msg("create flashcard failed")
		return api.Flashcard{}, err
	}
	if created.CreatedBy == 0 {
		created.CreatedBy = uid
	}
	if open {
		fc.ByLesson.Confirm(corr, created)
		_ = fc.ByLesson.Refresh(ctx)
	}
	return created, nil
}

// Reset returns both views to idle.
func (fc *Flashcards) Reset() {
	fc.ByLesson.Reset()
	fc.Public.Reset()
}
