package feed

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/five82/quizwhiz/internal/api"
	"github.com/five82/quizwhiz/internal/form"
	"github.com/five82/quizwhiz/internal/reconcile"
	"github.com/five82/quizwhiz/internal/state"
)

// LessonAPI is the slice of the backend the lesson views use.
type LessonAPI interface {
	PublicLessons(ctx context.Context) ([]api.Lesson, error)
	UserLessons(ctx context.Context, userID int64) ([]api.Lesson, error)
	SearchLessons(ctx context.Context, query string) ([]api.Lesson, error)
	TopCategories(ctx context.Context) ([]api.CategoryCount, error)
	CreateLesson(ctx context.Context, lesson api.NewLesson) (api.Lesson, error)
	UpdateLesson(ctx context.Context, patch api.LessonPatch) (api.Lesson, error)
	DeleteLesson(ctx context.Context, id int64) error
}

// PublicOnly keeps lessons flagged public, whoever created them.
func PublicOnly(l api.Lesson, _ int64) bool { return l.IsPublic }

// PersonalOf keeps the private lessons of uid.
func PersonalOf(l api.Lesson, uid int64) bool {
	return uid != 0 && l.CreatedBy == uid && !l.IsPublic
}

// VisibleTo keeps public lessons plus anything uid created.
func VisibleTo(l api.Lesson, uid int64) bool {
	return l.IsPublic || (uid != 0 && l.CreatedBy == uid)
}

// Lessons owns the public, personal and search views plus lesson mutations.
type Lessons struct {
	api LessonAPI
	who Identity
	log zerolog.Logger

	Public     *Loader[api.Lesson]
	Personal   *Loader[api.Lesson]
	Search     *Loader[api.Lesson]
	Categories *state.Machine[api.CategoryCount]
}

// NewLessons wires the lesson views to backend.
func NewLessons(backend LessonAPI, deps Deps) *Lessons {
	ls := &Lessons{
		api:        backend,
		who:        deps.Who,
		log:        deps.Log.With().Str("component", "lessons").Logger(),
		Categories: state.NewMachine[api.CategoryCount](deps.MaxAttempts),
	}
	ls.Public = NewLoader[api.Lesson]("lessons.public", func(ctx context.Context, _ string) ([]api.Lesson, error) {
		return backend.PublicLessons(ctx)
	}, deps, Keep(PublicOnly))
	ls.Personal = NewLoader[api.Lesson]("lessons.personal", func(ctx context.Context, params string) ([]api.Lesson, error) {
		uid, err := strconv.ParseInt(params, 10, 64)
		if err != nil || uid <= 0 {
			return nil, api.ErrNoSession
		}
		return backend.UserLessons(ctx, uid)
	}, deps, Keep(PersonalOf), EmptyOnNotFound[api.Lesson]())
	ls.Search = NewLoader[api.Lesson]("lessons.search", func(ctx context.Context, query string) ([]api.Lesson, error) {
		return backend.SearchLessons(ctx, query)
	}, deps, Keep(VisibleTo), Sorted(reconcile.UpdatedDesc[api.Lesson]()), EmptyOnNotFound[api.Lesson]())
	return ls
}

// LoadPublic mounts the public view.
func (ls *Lessons) LoadPublic(ctx context.Context) error {
	return ls.Public.Load(ctx, "")
}

// LoadPersonal mounts the personal view for the signed-in user.
func (ls *Lessons) LoadPersonal(ctx context.Context) error {
	return ls.Personal.Load(ctx, ls.uidParam())
}

// LoadSearch issues a search for query. Each call supersedes the last.
func (ls *Lessons) LoadSearch(ctx context.Context, query string) error {
	return ls.Search.Load(ctx, query)
}

// LoadCategories fetches the top categories.
func (ls *Lessons) LoadCategories(ctx context.Context) error {
	gen, ok := ls.Categories.Begin("")
	if !ok {
		return ErrSkipped
	}
	cats, err := ls.api.TopCategories(ctx)
	if err != nil {
		ls.Categories.Fail(gen, err)
		ls.log.Warn().Err(err).Msg("top categories failed")
		return err
	}
	ls.Categories.Resolve(gen, cats)
	return nil
}

// Create validates f, shows the new lesson immediately in the collection
// its visibility selects, posts it and then refetches that collection.
func (ls *Lessons) Create(ctx context.Context, f form.Lesson) (api.Lesson, error) {
	nl, err := f.NewLesson()
	if err != nil {
		return api.Lesson{}, err
	}
	uid, ok := ls.who.UserID()
	if !ok {
		return api.Lesson{}, api.ErrNoSession
	}

	target := ls.Personal
	if nl.IsPublic {
		target = ls.Public
	}
	corr := target.Insert(api.Lesson{
		Title:       nl.Title,
		Description: nl.Description,
		Category:    nl.Category,
		IsPublic:    nl.IsPublic,
		CreatedBy:   uid,
	}, reconcile.Prepend)

	created, err := ls.api.CreateLesson(ctx, nl)
	if err != nil {
		target.Discard(corr)
		ls.log.Warn().Err(err).Msg("create lesson failed")
		return api.Lesson{}, err
	}
	if created.CreatedBy == 0 {
		created.CreatedBy = uid
	}
	target.Confirm(corr, created)
	ls.log.Info().Int64("lesson", created.ID).Msg("lesson created")

	_ = target.Refresh(ctx)
	return created, nil
}

// Update applies f to lesson id locally, then on the server. A failed
// update refetches to undo the local edit.
func (ls *Lessons) Update(ctx context.Context, id int64, f form.Lesson) (api.Lesson, error) {
	patch, err := f.Patch(id)
	if err != nil {
		return api.Lesson{}, err
	}
	apply := func(l *api.Lesson) {
		l.Title = *patch.Title
		l.Description = *patch.Description
		l.Category = *patch.Category
		l.IsPublic = *patch.IsPublic
	}
	for _, v := range ls.views() {
		v.Patch(id, apply)
	}

	updated, err := ls.api.UpdateLesson(ctx, patch)
	if err != nil {
		ls.log.Warn().Err(err).Int64("lesson", id).Msg("update lesson failed")
		ls.refreshAll(ctx)
		return api.Lesson{}, err
	}
	if updated.ID == 0 {
		updated.ID = id
	}
	for _, v := range ls.views() {
		v.Patch(id, func(l *api.Lesson) {
			if updated.CreatedBy == 0 {
				updated.CreatedBy = l.CreatedBy
			}
			*l = updated
		})
	}
	// Visibility decides the collection; let the server sort it out.
	ls.refreshAll(ctx)
	return updated, nil
}

// Delete removes lesson id from every view and then from the server.
// Callers confirm with the user first.
func (ls *Lessons) Delete(ctx context.Context, id int64) error {
	for _, v := range ls.views() {
		v.Remove(id)
	}
	if err := ls.api.DeleteLesson(ctx, id); err != nil {
		ls.log.Warn().Err(err).Int64("lesson", id).Msg("delete lesson failed")
		ls.refreshAll(ctx)
		return err
	}
	ls.log.Info().Int64("lesson", id).Msg("lesson deleted")
	return nil
}

// Reset returns every lesson view to idle.
func (ls *Lessons) Reset() {
	for _, v := range ls.views() {
		v.Reset()
	}
	ls.Categories.Reset()
}

func (ls *Lessons) views() []*Loader[api.Lesson] {
	return []*Loader[api.Lesson]{ls.Public, ls.Personal, ls.Search}
}

func (ls *Lessons) refreshAll(ctx context.Context) {
	for _, v := range ls.views() {
		_ = v.Refresh(ctx)
	}
}

func (ls *Lessons) uidParam() string {
	if ls.who == nil {
		return ""
	}
	uid, ok := ls.who.UserID()
	if !ok {
		return ""
	}
	return strconv.FormatInt(uid, 10)
}
