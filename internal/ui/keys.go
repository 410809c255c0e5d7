package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit          key.Binding
	Help          key.Binding
	CycleTheme    key.Binding
	Escape        key.Binding
	Logout        key.Binding
	Profile       key.Binding
	DeleteAccount key.Binding

	// View switching
	ViewPublic     key.Binding
	ViewPersonal   key.Binding
	ToggleTab      key.Binding
	ViewSearch     key.Binding
	ViewCategories key.Binding
	ViewUsers      key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Open   key.Binding

	// Feed actions
	Retry  key.Binding
	Reload key.Binding
	New    key.Binding
	Edit   key.Binding
	Delete key.Binding

	// Deck
	Flip key.Binding
	Next key.Binding
	Prev key.Binding

	// Forms and prompts
	NextField    key.Binding
	PrevField    key.Binding
	TogglePublic key.Binding
	Submit       key.Binding
	Yes          key.Binding
	No           key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Log out"),
		),
		Profile: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Edit profile"),
		),
		DeleteAccount: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Delete account"),
		),

		ViewPublic: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Public lessons"),
		),
		ViewPersonal: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "My lessons"),
		),
		ToggleTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Switch public/mine"),
		),
		ViewSearch: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search lessons"),
		),
		ViewCategories: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Top categories"),
		),
		ViewUsers: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Users (admin)"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Study / open"),
		),

		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Retry"),
		),
		Reload: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Reload view"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New lesson/card"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Delete"),
		),

		Flip: key.NewBinding(
			key.WithKeys(" ", "space", "f"),
			key.WithHelp("space", "Flip card"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("l/right", "Next card"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("h/left", "Previous card"),
		),

		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		TogglePublic: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "Toggle public"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s", "enter"),
			key.WithHelp("enter", "Submit"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "Confirm"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n/esc", "Cancel"),
		),
	}
}

// FullHelp groups bindings for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ViewPublic, k.ViewPersonal, k.ToggleTab, k.ViewSearch, k.ViewCategories, k.ViewUsers, k.Escape},
		{k.Up, k.Down, k.Top, k.Bottom, k.Open},
		{k.Retry, k.Reload, k.New, k.Edit, k.Delete},
		{k.Flip, k.Next, k.Prev},
		{k.Profile, k.DeleteAccount, k.Logout, k.CycleTheme, k.Help, k.Quit},
	}
}
