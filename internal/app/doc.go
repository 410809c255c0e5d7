// Package app is the composition root of QuizWhiz.
//
// # Overview
//
// This package wires configuration, logging, the session store, the remote
// client, the user cache and the feed views together, then hands them to
// the terminal UI. The CLI subcommands (login, logout, whoami) use the same
// wiring without starting the UI; Logs only needs the config to find the
// log file.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        TOML + QUIZWHIZ_* overrides
//	       ├─────> logging.New()        zerolog to the log file
//	       ├─────> session.Manager      restore persisted tokens
//	       ├─────> api.NewClient()      bearer tokens + 401 policy
//	       ├─────> usercache.New()      creator names
//	       ├─────> feed.New()           list views and mutations
//	       ├─────> StartRefresher()     background refresh of loaded views
//	       └─────> ui.Run()             Start TUI (blocks)
//
// # Refresh Behavior
//
// The refresher wakes on a configurable interval (default 30 seconds) and
// refetches every view that is currently loaded. Idle and errored views are
// skipped: an errored view is only retried by the user, which keeps the
// attempt bound meaningful.
//
// # Offline Mode
//
// With Options.Offline a seeded in-process backend (internal/fakeapi) is
// started on a random local port and the session is kept in memory. The
// demo accounts are "demo" and "admin" with password "password123".
package app
