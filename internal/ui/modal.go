package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width int) string
}

// confirmModal asks before a destructive action.
type confirmModal struct {
	prompt string
	onYes  tea.Cmd
}

func (c confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(k, keys.Yes):
		return c, c.onYes, true
	case key.Matches(k, keys.No):
		return c, nil, true
	}
	return c, nil, false
}

func (c confirmModal) View(theme Theme, width int) string {
	styles := theme.Styles()
	body := styles.WarningText.Bold(true).Render(c.prompt) + "\n\n" +
		styles.MutedText.Render("y to confirm, n or esc to cancel")
	return styles.Modal.BorderForeground(styleColor(theme.Danger)).Width(min(width-4, 56)).Render(body)
}
