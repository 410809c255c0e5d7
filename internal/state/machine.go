package state

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/five82/quizwhiz/internal/api"
)

// DefaultMaxAttempts caps consecutive failures before retry is withdrawn.
const DefaultMaxAttempts = 3

// Phase is the lifecycle stage of one view.
type Phase int

const (
	Idle Phase = iota
	Loading
	Loaded
	Errored
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Snapshot represents the latest view state available to the UI.
type Snapshot[T any] struct {
	Phase       Phase
	Items       []T
	Err         error
	Message     string // user-facing text for Err
	Failures    int    // consecutive failed fetches for Params
	CanRetry    bool
	Terminal    bool // errored with no retry left; needs Reset
	Generation  uint64
	Params      string
	LastUpdated time.Time
}

// Busy reports whether a fetch is in flight.
func (s Snapshot[T]) Busy() bool { return s.Phase == Loading }

// Machine coordinates fetch results for one logical resource. Results are
// applied only when they carry the latest generation, so a slow superseded
// fetch can never overwrite a newer one.
type Machine[T any] struct {
	maxAttempts int

	mu          sync.RWMutex
	phase       Phase
	items       []T
	err         error
	failures    int
	gen         uint64
	params      string
	lastUpdated time.Time
}

// NewMachine returns an idle machine. maxAttempts <= 0 selects
// DefaultMaxAttempts.
func NewMachine[T any](maxAttempts int) *Machine[T] {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Machine[T]{maxAttempts: maxAttempts}
}

// MaxAttempts returns the configured failure cap.
func (m *Machine[T]) MaxAttempts() int { return m.maxAttempts }

// Begin starts a fetch for params and returns its generation. It refuses
// when a fetch for the same params is already in flight, or when params
// have exhausted their attempts. Different params supersede whatever is in
// flight and start with a fresh failure count.
func (m *Machine[T]) Begin(params string) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	same := m.phase != Idle && params == m.params
	if same && m.phase == Loading {
		return 0, false
	}
	if same && m.phase == Errored && m.failures >= m.maxAttempts {
		return 0, false
	}
	if !same {
		m.failures = 0
	}
	m.gen++
	m.phase = Loading
	m.params = params
	return m.gen, true
}

// Retry re-issues the last fetch after a retryable failure while attempts
// remain.
func (m *Machine[T]) Retry() (uint64, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.canRetryLocked() {
		return 0, "", false
	}
	m.gen++
	m.phase = Loading
	return m.gen, m.params, true
}

// Resolve applies a successful fetch. It reports false and changes nothing
// when gen is stale.
func (m *Machine[T]) Resolve(gen uint64, items []T) bool {
	return m.ResolveWith(gen, func([]T) []T { return items })
}

// ResolveWith is Resolve with a merge step that sees the current items under
// the lock, so optimistic edits made during the fetch can be carried over.
func (m *Machine[T]) ResolveWith(gen uint64, merge func(current []T) []T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.phase != Loading {
		return false
	}
	m.items = slices.Clone(merge(slices.Clone(m.items)))
	m.phase = Loaded
	m.err = nil
	m.failures = 0
	m.lastUpdated = time.Now()
	return true
}

// Fail records a failed fetch. Previous items are kept for display. It
// reports false when gen is stale.
func (m *Machine[T]) Fail(gen uint64, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.phase != Loading {
		return false
	}
	if err == nil {
		err = errors.New("fetch failed")
	}
	m.phase = Errored
	m.err = err
	m.failures++
	m.lastUpdated = time.Now()
	return true
}

// Reset returns to Idle with counters zeroed, as on remount. Results of
// fetches started before Reset are discarded.
func (m *Machine[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	m.phase = Idle
	m.items = nil
	m.err = nil
	m.failures = 0
	m.params = ""
	m.lastUpdated = time.Time{}
}

// Mutate replaces the current items with fn's result. fn receives a copy.
func (m *Machine[T]) Mutate(fn func(items []T) []T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = slices.Clone(fn(slices.Clone(m.items)))
}

// MutateAt is Mutate with the latest issued generation passed to fn, so
// an edit can be ordered against fetches that are in flight.
func (m *Machine[T]) MutateAt(fn func(items []T, gen uint64) []T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = slices.Clone(fn(slices.Clone(m.items), m.gen))
}

// IsCurrent reports whether gen is still the latest generation.
func (m *Machine[T]) IsCurrent(gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return gen == m.gen
}

// Snapshot returns a copy of the current state.
func (m *Machine[T]) Snapshot() Snapshot[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot[T]{
		Phase:       m.phase,
		Items:       slices.Clone(m.items),
		Failures:    m.failures,
		CanRetry:    m.canRetryLocked(),
		Generation:  m.gen,
		Params:      m.params,
		LastUpdated: m.lastUpdated,
	}
	if m.err != nil {
		snap.Err = fmt.Errorf("%w", m.err)
		snap.Message = api.UserMessage(m.err)
	}
	snap.Terminal = m.phase == Errored && !snap.CanRetry
	return snap
}

func (m *Machine[T]) canRetryLocked() bool {
	return m.phase == Errored && m.failures < m.maxAttempts && api.Retryable(m.err)
}
