package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/quizwhiz/internal/api"
)

// formModal is a small stack of text inputs with an optional public toggle.
// submit runs when the user confirms on the last field; the form stays open
// until the result message arrives.
type formModal struct {
	title    string
	labels   []string
	inputs   []textinput.Model
	focus    int
	toggle   bool // offer the public/private switch
	public   bool
	required bool // cannot be dismissed (sign-in)
	busy     bool
	err      string
	submit   func(values []string, public bool) tea.Cmd
}

type field struct {
	label    string
	value    string
	secret   bool
	optional bool
}

func newForm(title string, fields []field, submit func([]string, bool) tea.Cmd) formModal {
	f := formModal{title: title, submit: submit}
	for i, fd := range fields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 2000
		in.SetValue(fd.value)
		_ = in.Cursor.SetMode(cursor.CursorStatic)
		if fd.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		if fd.optional {
			in.Placeholder = "unchanged"
		}
		if i == 0 {
			in.Focus()
		}
		f.labels = append(f.labels, fd.label)
		f.inputs = append(f.inputs, in)
	}
	return f
}

func (f formModal) values() []string {
	out := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		out[i] = in.Value()
	}
	return out
}

func (f formModal) setFocus(i int) formModal {
	n := len(f.inputs)
	f.focus = (i%n + n) % n
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	return f
}

func (f formModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	k, ok := msg.(tea.KeyMsg)
	if !ok || f.busy {
		return f, nil, false
	}
	switch {
	case key.Matches(k, keys.Escape):
		return f, nil, !f.required
	case key.Matches(k, keys.TogglePublic) && f.toggle:
		f.public = !f.public
		return f, nil, false
	case k.String() == "ctrl+s" || (k.String() == "enter" && f.focus == len(f.inputs)-1):
		f.busy = true
		f.err = ""
		return f, f.submit(f.values(), f.public), false
	case key.Matches(k, keys.NextField) || k.String() == "enter":
		return f.setFocus(f.focus + 1), nil, false
	case key.Matches(k, keys.PrevField):
		return f.setFocus(f.focus - 1), nil, false
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(k)
	return f, cmd, false
}

// finish records the submission result; it reports whether the form can close.
func (f formModal) finish(err error) (formModal, bool) {
	f.busy = false
	if err != nil {
		f.err = describe(err)
		return f, false
	}
	return f, true
}

func (f formModal) View(theme Theme, width int) string {
	styles := theme.Styles()
	labelStyle := lipgloss.NewStyle().Foreground(styleColor(theme.Muted)).Width(12)
	focusLabel := labelStyle.Foreground(styleColor(theme.Accent)).Bold(true)

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(f.title))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		ls := labelStyle
		if i == f.focus {
			ls = focusLabel
		}
		b.WriteString(ls.Render(f.labels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if f.toggle {
		mark, badge := "[ ]", "private"
		if f.public {
			mark, badge = "[x]", "public"
		}
		b.WriteString(labelStyle.Render("Public"))
		b.WriteString(styles.Text.Render(mark) + " " + styles.Badge(badge) + styles.FaintText.Render("  ctrl+p"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	switch {
	case f.busy:
		b.WriteString(styles.InfoText.Render("Saving..."))
	case f.err != "":
		b.WriteString(styles.DangerText.Render(f.err))
	default:
		hint := "enter next/submit, tab move"
		if !f.required {
			hint += ", esc cancel"
		}
		b.WriteString(styles.FaintText.Render(hint))
	}
	return styles.Modal.Width(min(width-4, 64)).Render(b.String())
}

// Form builders

func (m Model) loginForm(notice string) formModal {
	f := newForm("Sign in to QuizWhiz", []field{
		{label: "Username"},
		{label: "Password", secret: true},
	}, m.submitLogin)
	f.required = true
	f.err = notice
	return f
}

func (m Model) lessonForm(edit *api.Lesson) formModal {
	title, fields := "New lesson", []field{{label: "Title"}, {label: "Description"}, {label: "Category"}}
	var id int64
	if edit != nil {
		title = "Edit lesson"
		id = edit.ID
		fields[0].value, fields[1].value, fields[2].value = edit.Title, edit.Description, edit.Category
	}
	f := newForm(title, fields, func(v []string, public bool) tea.Cmd {
		return m.submitLesson(id, v, public)
	})
	f.toggle = true
	if edit != nil {
		f.public = edit.IsPublic
	}
	return f
}

func (m Model) cardForm(lesson api.Lesson) formModal {
	return newForm("New card for "+lesson.Title, []field{
		{label: "Front"},
		{label: "Back"},
	}, func(v []string, _ bool) tea.Cmd {
		return m.submitCard(lesson.ID, v)
	})
}

// profileForm edits the signed-in user, or another user when an admin
// passes target.
func (m Model) profileForm(target *api.User) formModal {
	title := "Edit profile"
	var id int64
	current := m.who.User()
	if target != nil {
		title = "Edit user " + target.Username
		id = target.ID
		current = *target
	}
	return newForm(title, []field{
		{label: "Username", value: current.Username},
		{label: "Email", value: current.Email},
		{label: "Password", secret: true, optional: true},
		{label: "Confirm", secret: true, optional: true},
		{label: "Bio", value: current.Bio},
	}, func(v []string, _ bool) tea.Cmd {
		return m.submitProfile(id, current, v)
	})
}

func styleColor(hex string) lipgloss.Color { return lipgloss.Color(hex) }
