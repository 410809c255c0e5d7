// Package usercache resolves user ids to profiles, remembering every answer
// (including failures) until the session changes and Reset is called.
package usercache

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/five82/quizwhiz/internal/api"
)

// Fallback display names used when a profile cannot be fetched.
const (
	LabelSessionExpired = "Session Expired"
	LabelAnonymous      = "Anonymous User"
	LabelDeleted        = "Deleted User"
	LabelUnknown        = "Unknown User"
)

// Fetcher loads a single profile. *api.Client satisfies it.
type Fetcher interface {
	FetchUser(ctx context.Context, id int64) (api.User, error)
}

// Entry is a cached lookup result.
type Entry struct {
	User     api.User
	Fallback bool            // true when User is a placeholder for a failed lookup
	Kind     api.FailureKind // failure kind behind a fallback
}

// Cache maps user ids to profiles. There is no eviction and no TTL; Reset
// drops everything when the signed-in session changes.
type Cache struct {
	fetcher Fetcher
	log     zerolog.Logger

	mu      sync.RWMutex
	entries map[int64]Entry
	epoch   uint64 // bumped by Reset; results from older epochs are not stored
	group   singleflight.Group
}

// Option customises a Cache.
type Option func(*Cache)

// WithLogger attaches a logger for lookup failures.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// New builds an empty cache.
func New(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		log:     zerolog.Nop(),
		entries: make(map[int64]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached entry for id, fetching it on first use. Concurrent
// first lookups of the same id share a single request. The request is not
// tied to any one caller: a caller whose ctx ends gets an uncached "Unknown
// User" at once while the others keep waiting for the answer.
func (c *Cache) Get(ctx context.Context, id int64) Entry {
	if e, ok := c.Peek(id); ok {
		return e
	}

	c.mu.RLock()
	epoch := c.epoch
	c.mu.RUnlock()

	key := strconv.FormatUint(epoch, 10) + "/" + strconv.FormatInt(id, 10)
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(fetchCtx, id, epoch), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Entry)
	case <-ctx.Done():
		return fallback(id, ctx.Err())
	}
}

// load fetches id and stores the outcome unless the cache was reset in the
// meantime. ctx carries no cancellation; the fetcher's own timeout bounds it.
func (c *Cache) load(ctx context.Context, id int64, epoch uint64) Entry {
	if e, ok := c.Peek(id); ok {
		return e
	}
	user, err := c.fetcher.FetchUser(ctx, id)
	var e Entry
	if err != nil {
		e = fallback(id, err)
		c.log.Debug().Err(err).Int64("user", id).Str("label", e.User.Username).Msg("user lookup failed")
	} else {
		if user.ID == 0 {
			user.ID = id
		}
		e = Entry{User: user}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		c.log.Debug().Int64("user", id).Msg("dropped lookup from before reset")
		return e
	}
	c.entries[id] = e
	return e
}

// Reset forgets every entry. Call it when a session begins or ends, since
// fallbacks such as "Session Expired" describe the old session.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.entries = make(map[int64]Entry)
}

// CreatorName returns the display name for id, suitable for list annotation.
func (c *Cache) CreatorName(ctx context.Context, id int64) string {
	e := c.Get(ctx, id)
	if e.User.Username == "" {
		return LabelUnknown
	}
	return e.User.Username
}

// Peek returns the cached entry without fetching.
func (c *Cache) Peek(id int64) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// Len returns the number of cached ids.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Put seeds the cache with a known profile, e.g. the signed-in user.
func (c *Cache) Put(u api.User) {
	if u.ID <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[u.ID] = Entry{User: u}
	c.mu.Unlock()
}

func fallback(id int64, err error) Entry {
	kind := api.KindOf(err)
	label := LabelUnknown
	switch kind {
	case api.KindUnauthorized:
		label = LabelSessionExpired
	case api.KindForbidden:
		label = LabelAnonymous
	case api.KindNotFound:
		label = LabelDeleted
	}
	return Entry{User: api.User{ID: id, Username: label}, Fallback: true, Kind: kind}
}
