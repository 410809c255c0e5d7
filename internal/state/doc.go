// Package state tracks the lifecycle of each list view in QuizWhiz.
//
// # Overview
//
// Every screen that shows fetched data (public lessons, personal lessons,
// search results, flashcards, users) owns one Machine. Loaders in the feed
// package drive it; the UI only reads Snapshots.
//
//	Idle ──Begin──→ Loading ──Resolve──→ Loaded
//	                   │                   │
//	                  Fail               Begin (refresh)
//	                   ↓                   ↓
//	                Errored ──Retry──→ Loading
//
// # Generations
//
// Begin and Retry hand out a generation number that increases
// monotonically. Resolve and Fail take that number back and are ignored
// unless it is still the latest one. A search for "java" followed quickly
// by "javascript" therefore shows the "javascript" results even when the
// "java" response arrives last. In-flight requests are not cancelled; their
// late results are simply dropped. Reset also bumps the generation.
//
// At most one fetch per params value is in flight: Begin with the params
// that are already loading is refused, while different params supersede
// the current fetch.
//
// # Retry Bound
//
// Failures counts consecutive failed fetches. Retry is available only when
// the last error is retryable (network, timeout, server) and Failures is
// below the cap (3 by default). Once the cap is reached the snapshot is
// Terminal and Begin with the same params is refused until Reset, which
// the UI calls on remount.
//
// # Concurrency
//
// Loader goroutines and the UI share a Machine through a sync.RWMutex.
// Snapshot copies the item slice so renderers never see a later mutation.
//
//	m := state.NewMachine[api.Lesson](3)
//	gen, ok := m.Begin("python")
//	if ok {
//		lessons, err := client.SearchLessons(ctx, "python")
//		if err != nil {
//			m.Fail(gen, err)
//		} else {
//			m.Resolve(gen, lessons)
//		}
//	}
//	snap := m.Snapshot()
package state
