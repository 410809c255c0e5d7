// Package ui provides the QuizWhiz terminal interface.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model holds navigation, selection and the
// open modal; everything fetched from the backend lives in feed.Hub, whose
// views publish state.Snapshot values. Screens read those snapshots on every
// render, so a fetch that finishes in a background command only has to send
// a small loadedMsg to trigger a repaint.
//
// # Package Structure
//
//   - ui.go: Model, key handling, messages and commands, and Run
//   - render.go: Screen rendering and the shared status line
//   - forms.go: Text-input modals for sign-in, lessons, cards and profiles
//   - modal.go: Modal interface and the yes/no confirmation prompt
//   - keys.go: Key bindings
//   - help.go: Help overlay
//   - theme.go: Color themes and derived lipgloss styles
//
// # Views
//
//   - Lessons: Public or personal lessons, switched with 1, 2 or tab
//   - Search: Live keyword search; each keystroke issues a fetch and stale
//     results are dropped
//   - Categories: Most used categories; enter searches one
//   - Deck: Study the cards of a lesson, flip with space, move with arrows
//     or a horizontal mouse drag
//   - Users: Administrator user list
//
// # Load Status
//
// Every list shows one status line: Loading... until the first result,
// the user-facing error with "press r to retry" while attempts remain, and
// "press R to reload" once the retry budget is spent.
//
// # Session
//
// The sign-in form cannot be dismissed. When the backend rejects the
// session mid-use the hub's views are reset and the form reopens with the
// expiry notice.
package ui
