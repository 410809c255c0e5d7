package ui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/quizwhiz/internal/api"
	"github.com/five82/quizwhiz/internal/deck"
	"github.com/five82/quizwhiz/internal/feed"
	"github.com/five82/quizwhiz/internal/form"
	"github.com/five82/quizwhiz/internal/prefs"
	"github.com/five82/quizwhiz/internal/reconcile"
	"github.com/five82/quizwhiz/internal/session"
	"github.com/five82/quizwhiz/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewLessons View = iota
	ViewSearch
	ViewCategories
	ViewDeck
	ViewUsers
)

// Tab selects which lesson collection ViewLessons shows.
type Tab int

const (
	TabPublic Tab = iota
	TabPersonal
)

const msgBadCredentials = "Invalid username or password."

// pixelsPerCell converts a mouse drag in terminal cells into the pixel
// distance the deck's swipe threshold is expressed in.
const pixelsPerCell = 8

// Session is the signed-in identity the UI reads. *session.Manager
// satisfies it.
type Session interface {
	feed.Identity
	Current() (session.Session, bool)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Hub       *feed.Hub
	Session   Session
	ThemeName string
	Tab       string // prefs.TabPublic or prefs.TabPersonal
	PrefsPath string // empty uses the default prefs file
	Log       zerolog.Logger
	Tick      time.Duration // repaint interval; zero uses one second
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	hub       *feed.Hub
	who       Session
	log       zerolog.Logger
	keys      keyMap
	prefsPath string
	tick      time.Duration

	theme    Theme
	view     View
	tab      Tab
	width    int
	height   int
	ready    bool
	showHelp bool
	modal    Modal

	cursor    map[View]int
	search    textinput.Model
	searching bool

	lesson   api.Lesson
	deck     *deck.Deck
	dragging bool
	dragX    int

	flash    string
	flashErr bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = time.Second
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search title, description or category"
	search.CharLimit = 200
	_ = search.Cursor.SetMode(cursor.CursorStatic)

	m := Model{
		ctx:       ctx,
		hub:       opts.Hub,
		who:       opts.Session,
		log:       opts.Log,
		keys:      DefaultKeyMap(),
		prefsPath: prefsPath,
		tick:      tick,
		theme:     GetTheme(opts.ThemeName),
		cursor:    make(map[View]int),
		search:    search,
		deck:      deck.New(nil),
	}
	if opts.Tab == prefs.TabPersonal {
		m.tab = TabPersonal
	}
	if !m.signedIn() {
		m.modal = m.loginForm("")
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.tick)}
	if m.signedIn() {
		cmds = append(cmds, m.mount())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg), nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.search.Width = max(msg.Width-6, 10)
		return m, nil

	case tickMsg:
		m.syncDeck()
		if !m.signedIn() && m.modal == nil {
			m.modal = m.loginForm(api.UserMessage(&api.Failure{Kind: api.KindUnauthorized}))
		}
		return m, tickCmd(m.tick)

	case loadedMsg:
		return m.handleLoaded(msg)

	case signedInMsg:
		return m.handleSignedIn(msg)

	case signedOutMsg:
		if msg.err != nil {
			m.setFlash(describe(msg.err), true)
		}
		m.hub.Reset()
		m.view = ViewLessons
		m.modal = m.loginForm("")
		return m, nil

	case doneMsg:
		return m.handleDone(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.overlay(m.modal.View(m.theme, m.width))
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.modal != nil {
		next, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = next
		}
		return m, cmd
	}
	if m.searching {
		return m.handleSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.Logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.Profile):
		m.modal = m.profileForm(nil)
		return m, nil
	case key.Matches(msg, m.keys.DeleteAccount):
		m.modal = confirmModal{prompt: "Delete your account? This cannot be undone.", onYes: m.deleteAccount()}
		return m, nil
	case key.Matches(msg, m.keys.ViewPublic):
		return m.switchTab(TabPublic)
	case key.Matches(msg, m.keys.ViewPersonal):
		return m.switchTab(TabPersonal)
	case key.Matches(msg, m.keys.ToggleTab):
		if m.tab == TabPublic {
			return m.switchTab(TabPersonal)
		}
		return m.switchTab(TabPublic)
	case key.Matches(msg, m.keys.ViewSearch):
		m.view = ViewSearch
		m.searching = true
		m.search.Focus()
		return m, nil
	case key.Matches(msg, m.keys.ViewCategories):
		m.view = ViewCategories
		return m, m.mount()
	case key.Matches(msg, m.keys.ViewUsers):
		m.view = ViewUsers
		return m, m.mount()
	case key.Matches(msg, m.keys.Escape):
		m.view = ViewLessons
		return m, m.mount()
	case key.Matches(msg, m.keys.Retry):
		return m, m.retry()
	case key.Matches(msg, m.keys.Reload):
		return m, m.reload()
	}

	switch m.view {
	case ViewDeck:
		return m.handleDeckKey(msg)
	case ViewCategories:
		return m.handleCategoriesKey(msg)
	case ViewUsers:
		return m.handleUsersKey(msg)
	default:
		return m.handleLessonKey(msg)
	}
}

func (m Model) switchTab(t Tab) (tea.Model, tea.Cmd) {
	m.view = ViewLessons
	if m.tab != t {
		m.tab = t
		m.savePrefs()
	}
	return m, m.mount()
}

// handleSearchInput feeds the search box. Every edit issues a new search;
// results of superseded queries are dropped by the view state.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "down":
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	query := strings.TrimSpace(m.search.Value())
	if m.search.Value() == before {
		return m, cmd
	}
	m.cursor[ViewSearch] = 0
	if query == "" {
		m.hub.Lessons.Search.Reset()
		return m, cmd
	}
	return m, tea.Batch(cmd, m.loadCmd("lessons.search", func(ctx context.Context) error {
		return m.hub.Lessons.LoadSearch(ctx, query)
	}))
}

func (m Model) handleLessonKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.lessonItems()
	m.moveCursor(msg, len(items))

	switch {
	case key.Matches(msg, m.keys.New):
		m.modal = m.lessonForm(nil)
	case len(items) == 0:
	case key.Matches(msg, m.keys.Open):
		sel := items[m.cursor[m.view]]
		if sel.Pending {
			m.setFlash("This lesson is still being saved.", false)
			return m, nil
		}
		m.lesson = sel.Record
		m.view = ViewDeck
		m.deck = deck.New(nil)
		m.hub.Flashcards.ByLesson.Reset()
		return m, m.mount()
	case key.Matches(msg, m.keys.Edit):
		sel := items[m.cursor[m.view]]
		if !sel.IsCurrentUser || sel.Pending {
			m.setFlash("You can only edit your own lessons.", true)
			return m, nil
		}
		rec := sel.Record
		m.modal = m.lessonForm(&rec)
	case key.Matches(msg, m.keys.Delete):
		sel := items[m.cursor[m.view]]
		if (!sel.IsCurrentUser && !m.who.IsAdmin()) || sel.Pending {
			m.setFlash("You can only delete your own lessons.", true)
			return m, nil
		}
		id, title := sel.ID(), sel.Record.Title
		m.modal = confirmModal{
			prompt: "Delete lesson \"" + title + "\" and its cards?",
			onYes:  m.mutate("lesson deleted", func(ctx context.Context) error { return m.hub.Lessons.Delete(ctx, id) }),
		}
	}
	return m, nil
}

func (m Model) handleDeckKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Flip):
		m.deck.Flip()
	case key.Matches(msg, m.keys.Next):
		m.deck.Next()
	case key.Matches(msg, m.keys.Prev):
		m.deck.Prev()
	case key.Matches(msg, m.keys.New):
		uid, _ := m.who.UserID()
		if m.lesson.CreatedBy != uid {
			m.setFlash("Only the lesson's author can add cards.", true)
			return m, nil
		}
		m.modal = m.cardForm(m.lesson)
	}
	return m, nil
}

func (m Model) handleCategoriesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cats := m.hub.Lessons.Categories.Snapshot().Items
	m.moveCursor(msg, len(cats))
	if key.Matches(msg, m.keys.Open) && len(cats) > 0 {
		category := cats[m.cursor[ViewCategories]].Category
		m.view = ViewSearch
		m.search.SetValue(category)
		m.cursor[ViewSearch] = 0
		return m, m.loadCmd("lessons.search", func(ctx context.Context) error {
			return m.hub.Lessons.LoadSearch(ctx, category)
		})
	}
	return m, nil
}

func (m Model) handleUsersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.hub.Users.List.Snapshot().Items
	m.moveCursor(msg, len(items))
	if len(items) == 0 {
		return m, nil
	}
	sel := items[m.cursor[ViewUsers]]
	switch {
	case key.Matches(msg, m.keys.Edit):
		u := sel.Record
		m.modal = m.profileForm(&u)
	case key.Matches(msg, m.keys.Delete):
		if sel.IsCurrentUser {
			m.setFlash("Use X to delete your own account.", true)
			return m, nil
		}
		id := sel.ID()
		m.modal = confirmModal{
			prompt: "Delete user \"" + sel.Record.Username + "\"?",
			onYes:  m.mutate("user deleted", func(ctx context.Context) error { return m.hub.Users.Delete(ctx, id) }),
		}
	}
	return m, nil
}

func (m *Model) moveCursor(msg tea.KeyMsg, n int) {
	pos := m.cursor[m.view]
	switch {
	case key.Matches(msg, m.keys.Down):
		pos++
	case key.Matches(msg, m.keys.Up):
		pos--
	case key.Matches(msg, m.keys.Top):
		pos = 0
	case key.Matches(msg, m.keys.Bottom):
		pos = n - 1
	}
	m.cursor[m.view] = clamp(pos, n)
}

// handleMouse turns a horizontal drag over the deck into a swipe.
func (m Model) handleMouse(msg tea.MouseMsg) Model {
	if m.view != ViewDeck || m.modal != nil {
		return m
	}
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.dragging = true
			m.dragX = msg.X
		}
	case tea.MouseActionRelease:
		if m.dragging {
			m.dragging = false
			m.deck.Swipe((msg.X - m.dragX) * pixelsPerCell)
		}
	}
	return m
}

func (m Model) handleLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	if msg.feed == "flashcards.lesson" {
		m.syncDeck()
	}
	if msg.err == nil || errors.Is(msg.err, feed.ErrSkipped) {
		return m, nil
	}
	m.log.Debug().Err(msg.err).Str("feed", msg.feed).Msg("view load failed")
	if !m.signedIn() && m.modal == nil {
		m.modal = m.loginForm(describe(msg.err))
	}
	return m, nil
}

func (m Model) handleSignedIn(msg signedInMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if f, ok := m.modal.(formModal); ok {
			f, _ = f.finish(msg.err)
			if api.IsKind(msg.err, api.KindUnauthorized) {
				f.err = msgBadCredentials
			}
			m.modal = f
		}
		return m, nil
	}
	m.modal = nil
	m.hub.Reset()
	m.view = ViewLessons
	m.setFlash("Welcome, "+msg.user.Username+".", false)
	return m, m.mount()
}

func (m Model) handleDone(msg doneMsg) (tea.Model, tea.Cmd) {
	if f, ok := m.modal.(formModal); ok && f.busy {
		next, closeForm := f.finish(msg.err)
		if !closeForm {
			m.modal = next
			return m, nil
		}
		m.modal = nil
	}
	if msg.err != nil {
		m.setFlash(describe(msg.err), true)
		return m, nil
	}
	m.setFlash(capitalize(msg.action)+".", false)
	if msg.action == "account deleted" {
		m.hub.Reset()
		m.modal = m.loginForm("")
	}
	return m, nil
}

// mount starts the fetch for the visible view unless it already has state.
func (m Model) mount() tea.Cmd {
	if !m.signedIn() {
		return nil
	}
	switch m.view {
	case ViewLessons:
		if m.tab == TabPersonal {
			if m.hub.Lessons.Personal.Snapshot().Phase != state.Idle {
				return nil
			}
			return m.loadCmd("lessons.personal", m.hub.Lessons.LoadPersonal)
		}
		if m.hub.Lessons.Public.Snapshot().Phase != state.Idle {
			return nil
		}
		return m.loadCmd("lessons.public", m.hub.Lessons.LoadPublic)
	case ViewCategories:
		if m.hub.Lessons.Categories.Snapshot().Phase != state.Idle {
			return nil
		}
		return m.loadCmd("lessons.categories", m.hub.Lessons.LoadCategories)
	case ViewUsers:
		if m.hub.Users.List.Snapshot().Phase != state.Idle {
			return nil
		}
		return m.loadCmd("users", m.hub.Users.Load)
	case ViewDeck:
		id := m.lesson.ID
		return m.loadCmd("flashcards.lesson", func(ctx context.Context) error {
			return m.hub.Flashcards.Open(ctx, id)
		})
	}
	return nil
}

// retry repeats the visible view's failed fetch while attempts remain.
func (m Model) retry() tea.Cmd {
	switch m.view {
	case ViewLessons:
		if m.tab == TabPersonal {
			return m.loadCmd("lessons.personal", m.hub.Lessons.Personal.Retry)
		}
		return m.loadCmd("lessons.public", m.hub.Lessons.Public.Retry)
	case ViewSearch:
		return m.loadCmd("lessons.search", m.hub.Lessons.Search.Retry)
	case ViewCategories:
		if !m.hub.Lessons.Categories.Snapshot().CanRetry {
			return nil
		}
		return m.loadCmd("lessons.categories", m.hub.Lessons.LoadCategories)
	case ViewUsers:
		return m.loadCmd("users", m.hub.Users.List.Retry)
	case ViewDeck:
		return m.loadCmd("flashcards.lesson", m.hub.Flashcards.ByLesson.Retry)
	}
	return nil
}

// reload remounts the visible view, clearing an exhausted retry budget.
func (m Model) reload() tea.Cmd {
	switch m.view {
	case ViewLessons:
		if m.tab == TabPersonal {
			m.hub.Lessons.Personal.Reset()
		} else {
			m.hub.Lessons.Public.Reset()
		}
	case ViewSearch:
		m.hub.Lessons.Search.Reset()
		query := strings.TrimSpace(m.search.Value())
		if query == "" {
			return nil
		}
		return m.loadCmd("lessons.search", func(ctx context.Context) error {
			return m.hub.Lessons.LoadSearch(ctx, query)
		})
	case ViewCategories:
		m.hub.Lessons.Categories.Reset()
	case ViewUsers:
		m.hub.Users.List.Reset()
	case ViewDeck:
		m.hub.Flashcards.ByLesson.Reset()
	}
	return m.mount()
}

// syncDeck copies the loaded cards into the study deck, keeping position.
func (m *Model) syncDeck() {
	if m.view != ViewDeck {
		return
	}
	snap := m.hub.Flashcards.ByLesson.Snapshot()
	if snap.Params != strconv.FormatInt(m.lesson.ID, 10) {
		return
	}
	m.deck.Replace(reconcile.Records(snap.Items))
}

func (m Model) lessonItems() []reconcile.Item[api.Lesson] {
	switch {
	case m.view == ViewSearch:
		return m.hub.Lessons.Search.Snapshot().Items
	case m.tab == TabPersonal:
		return m.hub.Lessons.Personal.Snapshot().Items
	default:
		return m.hub.Lessons.Public.Snapshot().Items
	}
}

func (m Model) signedIn() bool {
	if m.who == nil {
		return false
	}
	_, ok := m.who.Current()
	return ok
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

func (m Model) savePrefs() {
	tab := prefs.TabPublic
	if m.tab == TabPersonal {
		tab = prefs.TabPersonal
	}
	if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, Tab: tab}); err != nil {
		m.log.Warn().Err(err).Msg("save prefs")
	}
}

// Messages

type tickMsg time.Time

// loadedMsg reports a finished fetch; the outcome itself lives in the view
// state.
type loadedMsg struct {
	feed string
	err  error
}

type signedInMsg struct {
	user api.User
	err  error
}

type signedOutMsg struct{ err error }

// doneMsg reports a finished mutation.
type doneMsg struct {
	action string
	err    error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) loadCmd(name string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return loadedMsg{feed: name, err: fn(ctx)}
	}
}

func (m Model) mutate(action string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return doneMsg{action: action, err: fn(ctx)}
	}
}

func (m Model) submitLogin(v []string, _ bool) tea.Cmd {
	ctx, hub := m.ctx, m.hub
	return func() tea.Msg {
		u, err := hub.Account.Login(ctx, form.Login{Username: v[0], Password: v[1]})
		return signedInMsg{user: u, err: err}
	}
}

func (m Model) submitLesson(id int64, v []string, public bool) tea.Cmd {
	f := form.Lesson{Title: v[0], Description: v[1], Category: v[2], IsPublic: public}
	if id == 0 {
		return m.mutate("lesson created", func(ctx context.Context) error {
			_, err := m.hub.Lessons.Create(ctx, f)
			return err
		})
	}
	return m.mutate("lesson updated", func(ctx context.Context) error {
		_, err := m.hub.Lessons.Update(ctx, id, f)
		return err
	})
}

func (m Model) submitCard(lessonID int64, v []string) tea.Cmd {
	f := form.Flashcard{Front: v[0], Back: v[1]}
	return m.mutate("card added", func(ctx context.Context) error {
		_, err := m.hub.Flashcards.Create(ctx, lessonID, f)
		return err
	})
}

// submitProfile sends only the fields that differ from current. A zero id
// edits the signed-in account.
func (m Model) submitProfile(id int64, current api.User, v []string) tea.Cmd {
	f := form.Profile{Password: v[2], ConfirmPassword: v[3]}
	if strings.TrimSpace(v[0]) != current.Username {
		f.Username = v[0]
	}
	if strings.TrimSpace(v[1]) != current.Email {
		f.Email = v[1]
	}
	if strings.TrimSpace(v[4]) != current.Bio {
		f.Bio = v[4]
	}
	if id == 0 {
		return m.mutate("profile saved", func(ctx context.Context) error {
			_, err := m.hub.Account.UpdateProfile(ctx, f)
			return err
		})
	}
	return m.mutate("user updated", func(ctx context.Context) error {
		_, err := m.hub.Users.Update(ctx, id, f)
		return err
	})
}

func (m Model) logout() tea.Cmd {
	ctx, hub := m.ctx, m.hub
	return func() tea.Msg {
		return signedOutMsg{err: hub.Account.Logout(ctx)}
	}
}

func (m Model) deleteAccount() tea.Cmd {
	return m.mutate("account deleted", m.hub.Account.DeleteAccount)
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	if opts.Hub == nil || opts.Session == nil {
		return errors.New("ui requires a feed hub and a session")
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}

// describe renders an error the way the screens show it.
func describe(err error) string {
	var v *form.ValidationFailure
	if errors.As(err, &v) {
		return v.Message
	}
	var f *api.Failure
	if errors.Is(err, api.ErrNoSession) || errors.As(err, &f) {
		return api.UserMessage(err)
	}
	return err.Error()
}

func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
