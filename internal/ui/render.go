package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/quizwhiz/internal/api"
	"github.com/five82/quizwhiz/internal/reconcile"
	"github.com/five82/quizwhiz/internal/state"
)

// renderMain renders the header, the active view and the hint line.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	u := m.who.User()
	parts := []string{styles.Logo.Render("quizwhiz")}
	if u.ID > 0 {
		parts = append(parts, styles.Text.Render(u.Username), styles.Badge(string(u.Role.Normalize())))
	}
	if m.flash != "" {
		style := styles.SuccessText
		if m.flashErr {
			style = styles.DangerText
		}
		parts = append(parts, style.Render(m.flash))
	}
	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	type tab struct {
		label  string
		active bool
	}
	tabs := []tab{
		{"1 Public", m.view == ViewLessons && m.tab == TabPublic},
		{"2 Mine", m.view == ViewLessons && m.tab == TabPersonal},
		{"/ Search", m.view == ViewSearch},
		{"c Categories", m.view == ViewCategories},
	}
	if m.who.IsAdmin() {
		tabs = append(tabs, tab{"u Users", m.view == ViewUsers})
	}
	if m.view == ViewDeck {
		tabs = append(tabs, tab{"Study: " + m.lesson.Title, true})
	}
	out := make([]string, len(tabs))
	for i, t := range tabs {
		if t.active {
			out[i] = styles.Selected.Bold(true).Padding(0, 1).Render(t.label)
		} else {
			out[i] = styles.MutedText.Padding(0, 1).Render(t.label)
		}
	}
	return strings.Join(out, " ")
}

func (m Model) renderContent() string {
	switch m.view {
	case ViewSearch:
		return m.renderSearch()
	case ViewCategories:
		return m.renderCategories()
	case ViewDeck:
		return m.renderDeck()
	case ViewUsers:
		return m.renderUsers()
	default:
		if m.tab == TabPersonal {
			return m.renderLessons(m.hub.Lessons.Personal.Snapshot(), "You have no private lessons yet. Press n to create one.")
		}
		return m.renderLessons(m.hub.Lessons.Public.Snapshot(), "No public lessons yet.")
	}
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	var hint string
	switch m.view {
	case ViewDeck:
		hint = "space flip  h/l prev/next  drag to swipe  n new card  esc back  ? help"
	case ViewSearch:
		hint = "/ edit query  j/k move  enter study  esc back  ? help"
	case ViewUsers:
		hint = "j/k move  e edit  d delete  esc back  ? help"
	case ViewCategories:
		hint = "j/k move  enter search category  esc back  ? help"
	default:
		hint = "j/k move  enter study  n new  e edit  d delete  tab switch  ? help  q quit"
	}
	return styles.FaintText.Render(hint)
}

func (m Model) renderLessons(snap state.Snapshot[reconcile.Item[api.Lesson]], empty string) string {
	status, show := renderStatus(snap, m.theme.Styles(), empty)
	if !show {
		return status
	}
	var b strings.Builder
	if status != "" {
		b.WriteString(status + "\n")
	}
	styles := m.theme.Styles()
	sel := clamp(m.cursor[m.view], len(snap.Items))
	for i, it := range snap.Items {
		l := it.Record
		line := fmt.Sprintf("%-32s %s", truncate(l.Title, 32), styles.MutedText.Render(truncate(l.Category, 16)))
		if it.CreatorName != "" {
			line += styles.FaintText.Render("  by " + it.CreatorName)
		}
		badges := []string{}
		if l.IsPublic {
			badges = append(badges, styles.Badge("public"))
		} else {
			badges = append(badges, styles.Badge("private"))
		}
		if it.IsCurrentUser {
			badges = append(badges, styles.Badge("mine"))
		}
		if it.Pending {
			badges = append(badges, styles.Badge("saving"))
		}
		b.WriteString(m.row(i == sel, line+"  "+strings.Join(badges, " ")))
		b.WriteString("\n")
	}
	if l, ok := selected(snap.Items, sel); ok && l.Record.Description != "" {
		b.WriteString("\n" + styles.MutedText.Render(truncate(l.Record.Description, max(m.width-2, 20))))
	}
	return b.String()
}

func (m Model) renderSearch() string {
	var b strings.Builder
	b.WriteString(m.search.View())
	b.WriteString("\n\n")
	if strings.TrimSpace(m.search.Value()) == "" {
		b.WriteString(m.theme.Styles().FaintText.Render("Type to search lessons."))
		return b.String()
	}
	b.WriteString(m.renderLessons(m.hub.Lessons.Search.Snapshot(), "No lessons match."))
	return b.String()
}

func (m Model) renderCategories() string {
	snap := m.hub.Lessons.Categories.Snapshot()
	status, show := renderStatus(snap, m.theme.Styles(), "No categories yet.")
	if !show {
		return status
	}
	var b strings.Builder
	if status != "" {
		b.WriteString(status + "\n")
	}
	sel := clamp(m.cursor[ViewCategories], len(snap.Items))
	for i, c := range snap.Items {
		noun := "lessons"
		if c.Count == 1 {
			noun = "lesson"
		}
		b.WriteString(m.row(i == sel, fmt.Sprintf("%-24s %d %s", truncate(c.Category, 24), c.Count, noun)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderUsers() string {
	snap := m.hub.Users.List.Snapshot()
	status, show := renderStatus(snap, m.theme.Styles(), "No users.")
	if !show {
		return status
	}
	styles := m.theme.Styles()
	var b strings.Builder
	if status != "" {
		b.WriteString(status + "\n")
	}
	sel := clamp(m.cursor[ViewUsers], len(snap.Items))
	for i, it := range snap.Items {
		u := it.Record
		line := fmt.Sprintf("%-20s %s  %s", truncate(u.Username, 20), styles.MutedText.Render(truncate(u.Email, 32)), styles.Badge(string(u.Role.Normalize())))
		if it.IsCurrentUser {
			line += " " + styles.Badge("mine")
		}
		b.WriteString(m.row(i == sel, line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderDeck() string {
	snap := m.hub.Flashcards.ByLesson.Snapshot()
	styles := m.theme.Styles()
	if m.deck.Empty() {
		status, _ := renderStatus(snap, styles, "This lesson has no cards yet.")
		return status
	}

	pos, total := m.deck.Progress()
	side := "Question"
	if m.deck.Flipped() {
		side = "Answer"
	}
	cardWidth := min(max(m.width-8, 20), 60)
	card := styles.Card.Width(cardWidth).Height(7).Render(m.deck.Face())

	var b strings.Builder
	b.WriteString(styles.AccentText.Render(fmt.Sprintf("Card %d of %d", pos, total)))
	b.WriteString("  " + styles.MutedText.Render(side))
	if status, _ := renderStatus(snap, styles, ""); status != "" && snap.Phase == state.Errored {
		b.WriteString("\n" + status)
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(max(m.width, cardWidth+4), lipgloss.Center, card))
	return b.String()
}

func (m Model) row(selected bool, text string) string {
	if selected {
		return m.theme.Styles().Selected.Render("> " + text)
	}
	return "  " + text
}

// renderStatus describes a view's phase. The bool reports whether the item
// list should be drawn below the status line.
func renderStatus[T any](s state.Snapshot[T], styles Styles, empty string) (string, bool) {
	switch s.Phase {
	case state.Errored:
		line := styles.DangerText.Render(s.Message)
		switch {
		case s.CanRetry:
			line += styles.MutedText.Render("  press r to retry")
		case s.Terminal:
			line += styles.MutedText.Render("  press R to reload")
		}
		return line, len(s.Items) > 0
	case state.Idle:
		return styles.FaintText.Render("Loading..."), false
	case state.Loading:
		if len(s.Items) == 0 {
			return styles.FaintText.Render("Loading..."), false
		}
		return styles.FaintText.Render("Refreshing..."), true
	}
	if len(s.Items) == 0 {
		return styles.MutedText.Render(empty), false
	}
	return "", true
}

func selected[T reconcile.Record](items []reconcile.Item[T], i int) (reconcile.Item[T], bool) {
	if i < 0 || i >= len(items) {
		return reconcile.Item[T]{}, false
	}
	return items[i], true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
