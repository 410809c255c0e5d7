package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/quizwhiz/internal/api"
	"github.com/five82/quizwhiz/internal/fakeapi"
	"github.com/five82/quizwhiz/internal/feed"
	"github.com/five82/quizwhiz/internal/prefs"
	"github.com/five82/quizwhiz/internal/session"
	"github.com/five82/quizwhiz/internal/state"
	"github.com/five82/quizwhiz/internal/usercache"
)

// harness drives a Model synchronously: every command is executed inline
// and its message fed back, except repaint ticks.
type harness struct {
	t     *testing.T
	m     Model
	srv   *fakeapi.Server
	sess  *session.Manager
	prefs string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := fakeapi.NewServer()
	srv.Seed()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	sess := session.NewManager(&session.MemoryStore{}, zerolog.Nop())
	client, err := api.NewClient(ts.URL, api.WithTokenSource(sess))
	require.NoError(t, err)
	client.SetUnauthorizedHandler(session.Handler(session.PolicyClear, sess, client))
	cache := usercache.New(client)
	hub := feed.New(client, sess, cache, feed.Deps{Names: cache, MaxAttempts: 3, Log: zerolog.Nop()})

	h := &harness{t: t, srv: srv, sess: sess, prefs: filepath.Join(t.TempDir(), "prefs.toml")}
	h.m = New(Options{
		Context:   context.Background(),
		Hub:       hub,
		Session:   sess,
		ThemeName: "Nightfox",
		PrefsPath: h.prefs,
		Log:       zerolog.Nop(),
		Tick:      time.Millisecond,
	})
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	h.run(cmd, 0)
}

func (h *harness) run(cmd tea.Cmd, depth int) {
	if cmd == nil || depth > 10 {
		return
	}
	switch msg := cmd().(type) {
	case nil, tickMsg, tea.QuitMsg:
	case tea.BatchMsg:
		for _, c := range msg {
			h.run(c, depth+1)
		}
	default:
		h.send(msg)
	}
}

func (h *harness) keys(keys ...string) {
	h.t.Helper()
	for _, k := range keys {
		h.send(keyMsg(k))
	}
}

func (h *harness) typeText(s string) {
	h.t.Helper()
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) login(username string) {
	h.t.Helper()
	h.typeText(username)
	h.keys("tab")
	h.typeText(fakeapi.DemoPassword)
	h.keys("enter")
	require.Nil(h.t, h.m.modal, "login form should close")
}

func (h *harness) view() string { return h.m.View() }

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyCtrlP}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestModel_LoginThenPublicLessons(t *testing.T) {
	h := newHarness(t)
	require.IsType(t, formModal{}, h.m.modal)
	assert.Contains(t, h.view(), "Sign in to QuizWhiz")

	h.keys("esc")
	require.NotNil(t, h.m.modal, "sign-in cannot be dismissed")

	h.login(fakeapi.DemoUser)

	out := h.view()
	assert.Contains(t, out, "Welcome, demo.")
	assert.Contains(t, out, "Go basics")
	assert.Contains(t, out, "by marie")
	assert.NotContains(t, out, "My notes")
	assert.Equal(t, state.Loaded, h.m.hub.Lessons.Public.Snapshot().Phase)
}

func TestModel_LoginRejected(t *testing.T) {
	h := newHarness(t)
	h.typeText(fakeapi.DemoUser)
	h.keys("tab")
	h.typeText("wrong")
	h.keys("enter")

	f, ok := h.m.modal.(formModal)
	require.True(t, ok)
	assert.Equal(t, msgBadCredentials, f.err)
	assert.False(t, f.busy)

	assert.Equal(t, 1, h.srv.Calls(http.MethodPost, "/users/login"))
}

func TestModel_LoginValidatesLocally(t *testing.T) {
	h := newHarness(t)
	h.keys("enter", "enter")

	f, ok := h.m.modal.(formModal)
	require.True(t, ok)
	assert.Equal(t, "Please fill in all required fields", f.err)
	assert.Equal(t, 0, h.srv.Calls(http.MethodPost, "/users/login"))
}

func TestModel_PersonalTabShowsOwnPrivateLessons(t *testing.T) {
	h := newHarness(t)
	h.login(fakeapi.DemoUser)

	h.keys("2")
	out := h.view()
	assert.Contains(t, out, "My notes")
	assert.NotContains(t, out, "European capitals")
	assert.Equal(t, TabPersonal, h.m.tab)
	assert.Equal(t, prefs.TabPersonal, prefs.Load(h.prefs).Tab)
}

func TestModel_StudyDeck(t *testing.T) {
	h := newHarness(t)
	h.login(fakeapi.DemoUser)

	h.keys("g", "enter")
	require.Equal(t, ViewDeck, h.m.view)
	assert.Equal(t, "Go basics", h.m.lesson.Title)
	assert.Contains(t, h.view(), "Zero value of an int?")
	assert.Contains(t, h.view(), "Card 1 of 3")

	h.keys("f")
	assert.Contains(t, h.view(), "Answer")
	assert.Equal(t, "0", h.m.deck.Face())

	h.keys("l")
	assert.Equal(t, "Keyword to start a goroutine?", h.m.deck.Face())
	assert.False(t, h.m.deck.Flipped(), "moving resets the flip")

	// Drag right by ten cells: a swipe back.
	h.send(tea.MouseMsg{X: 10, Y: 5, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	h.send(tea.MouseMsg{X: 20, Y: 5, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	assert.Equal(t, "Zero value of an int?", h.m.deck.Face())

	// A short drag stays put.
	h.send(tea.MouseMsg{X: 20, Y: 5, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	h.send(tea.MouseMsg{X: 16, Y: 5, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	assert.Equal(t, "Zero value of an int?", h.m.deck.Face())

	h.keys("n")
	assert.Contains(t, h.m.flash, "Only the lesson's author")

	h.keys("esc")
	assert.Equal(t, ViewLessons, h.m.view)
}

func TestModel_SearchIssuesAFetchPerKeystroke(t *testing.T) {
	h := newHarness(t)
	h.login(fakeapi.DemoUser)

	h.keys("/")
	require.True(t, h.m.searching)
	h.typeText("jav")

	assert.Equal(t, 1, h.srv.Calls(http.MethodGet, "/lessons/keywords/j"))
	assert.Equal(t, 1, h.srv.Calls(http.MethodGet, "/lessons/keywords/ja"))
	assert.Equal(t, 1, h.srv.Calls(http.MethodGet, "/lessons/keywords/jav"))
	assert.Equal(t, "jav", h.m.hub.Lessons.Search.Snapshot().Params)
	assert.Contains(t, h.view(), "JavaScript closures")

	h.keys("enter")
	assert.False(t, h.m.searching)
	h.keys("enter")
	assert.Equal(t, ViewDeck, h.m.view)
}

func TestModel_CreateAndDeleteLesson(t *testing.T) {
	h := newHarness(t)
	h.login(fakeapi.DemoUser)

	h.keys("n")
	require.IsType(t, formModal{}, h.m.modal)
	h.typeText("Rust ownership")
	h.keys("tab")
	h.typeText("Borrowing rules")
	h.keys("tab")
	h.typeText("programming")
	h.keys("enter")

	assert.Nil(t, h.m.modal)
	assert.Equal(t, "Lesson created.", h.m.flash)

	h.keys("2")
	assert.Contains(t, h.view(), "Rust ownership")
	items := h.m.hub.Lessons.Personal.Snapshot().Items
	require.Len(t, items, 2)

	// Select the new lesson and delete it after confirming.
	for i, it := range items {
		if it.Record.Title == "Rust ownership" {
			h.m.cursor[ViewLessons] = i
		}
	}
	h.keys("d")
	require.IsType(t, confirmModal{}, h.m.modal)
	h.keys("n")
	assert.Nil(t, h.m.modal, "cancel keeps the lesson")
	assert.Contains(t, h.view(), "Rust ownership")

	h.keys("d", "y")
	assert.Equal(t, "Lesson deleted.", h.m.flash)
	assert.NotContains(t, h.view(), "Rust ownership")
}

func TestModel_CreateLessonValidationKeepsFormOpen(t *testing.T) {
	h := newHarness(t)
	h.login(fakeapi.DemoUser)

	h.keys("n")
	h.typeText("Only a title")
	h.keys("tab", "tab", "enter")

	f, ok := h.m.modal.(formModal)
	require.True(t, ok)
	assert.Equal(t, "Please fill in all required fields", f.err)
	assert.Equal(t, 0, h.srv.Calls(http.MethodPost, "/lessons/new"))

	h.keys("esc")
	assert.Nil(t, h.m.modal)
}

func TestModel_RetryBoundThenReload(t *testing.T) {
	h := newHarness(t)
	h.srv.Inject(http.MethodGet, "/lessons/public", fakeapi.Fault{Status: http.StatusBadGateway})
	h.login(fakeapi.DemoUser)

	assert.Contains(t, h.view(), "press r to retry")
	h.keys("r", "r")
	assert.Contains(t, h.view(), "press R to reload")
	h.keys("r")
	assert.Equal(t, 3, h.srv.Calls(http.MethodGet, "/lessons/public"), "no fourth attempt")

	h.srv.ClearFaults()
	h.keys("R")
	assert.Contains(t, h.view(), "Go basics")
}

func TestModel_UsersViewNeedsAdmin(t *testing.T) {
	h := newHarness(t)
	h.login(fakeapi.DemoUser)

	h.keys("u")
	assert.Contains(t, h.view(), "You do not have permission to do that.")
	assert.NotContains(t, h.view(), "u Users")
	assert.Equal(t, 0, h.srv.Calls(http.MethodGet, "/users/list"))
}

func TestModel_AdminEditsUser(t *testing.T) {
	h := newHarness(t)
	h.login(fakeapi.DemoAdmin)

	h.keys("u")
	out := h.view()
	assert.Contains(t, out, "marie")
	assert.Contains(t, out, "u Users")

	items := h.m.hub.Users.List.Snapshot().Items
	for i, it := range items {
		if it.Record.Username == "marie" {
			h.m.cursor[ViewUsers] = i
		}
	}
	h.keys("e")
	require.IsType(t, formModal{}, h.m.modal)
	h.keys("tab", "tab", "tab", "tab")
	h.typeText(" Teaches Go.")
	h.keys("enter")

	assert.Nil(t, h.m.modal)
	assert.Equal(t, "User updated.", h.m.flash)
}

func TestModel_ThemeHelpLogout(t *testing.T) {
	h := newHarness(t)
	h.login(fakeapi.DemoUser)

	h.keys("T")
	assert.Equal(t, "Kanagawa", h.m.theme.Name)
	assert.Equal(t, "Kanagawa", prefs.Load(h.prefs).Theme)

	h.keys("?")
	assert.Contains(t, h.view(), "Keyboard Shortcuts")
	h.keys("x")
	assert.False(t, h.m.showHelp)

	h.keys("L")
	require.IsType(t, formModal{}, h.m.modal)
	_, ok := h.sess.Current()
	assert.False(t, ok)
}

func TestModel_ExpiredSessionPromptsLogin(t *testing.T) {
	h := newHarness(t)
	h.login(fakeapi.DemoUser)

	h.srv.ExpireTokens()
	h.keys("R")

	f, ok := h.m.modal.(formModal)
	require.True(t, ok)
	assert.Equal(t, "Your session has expired. Please log in again.", f.err)
}

func TestRenderStatus(t *testing.T) {
	styles := GetTheme("Slate").Styles()
	tests := []struct {
		name     string
		snap     state.Snapshot[int]
		want     string
		showList bool
	}{
		{"idle", state.Snapshot[int]{Phase: state.Idle}, "Loading...", false},
		{"loading empty", state.Snapshot[int]{Phase: state.Loading}, "Loading...", false},
		{"refreshing", state.Snapshot[int]{Phase: state.Loading, Items: []int{1}}, "Refreshing...", true},
		{"loaded empty", state.Snapshot[int]{Phase: state.Loaded}, "nothing here", false},
		{"loaded", state.Snapshot[int]{Phase: state.Loaded, Items: []int{1}}, "", true},
		{"retryable", state.Snapshot[int]{Phase: state.Errored, Message: "boom", CanRetry: true}, "press r to retry", false},
		{"terminal keeps items", state.Snapshot[int]{Phase: state.Errored, Message: "boom", Terminal: true, Items: []int{1}}, "press R to reload", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, show := renderStatus(tt.snap, styles, "nothing here")
			assert.Equal(t, tt.showList, show)
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.True(t, strings.Contains(got, tt.want), "got %q", got)
		})
	}
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, 0, clamp(-1, 3))
	assert.Equal(t, 2, clamp(9, 3))
	assert.Equal(t, 0, clamp(4, 0))
	assert.Equal(t, "Lesson created", capitalize("lesson created"))
}
