// Package reconcile turns raw record lists from the backend into display
// lists annotated with creator names and ownership, and keeps optimistic
// local edits consistent with later authoritative fetches.
package reconcile

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds creator lookups issued by one Reconcile call.
const DefaultConcurrency = 8

// Record is anything with an id and a single immutable creator.
type Record interface {
	RecordID() int64
	CreatorID() int64
}

// Timestamped records can be ordered by last update.
type Timestamped interface {
	Record
	Updated() time.Time
}

// NameResolver maps a creator id to a display name. It never fails; lookup
// problems surface as fallback labels.
type NameResolver interface {
	CreatorName(ctx context.Context, id int64) string
}

// Item is a record plus the fields derived during reconciliation.
type Item[T Record] struct {
	Record        T
	CreatorName   string
	IsCurrentUser bool

	// CorrelationID is set on optimistic inserts and survives confirmation.
	CorrelationID string
	// Pending is true until the server has confirmed the insert.
	Pending bool

	appended bool
	// settledAt is the view generation current when the insert was
	// confirmed; fetches issued up to it may predate the record.
	settledAt uint64
}

// ID returns the record id; zero for an unconfirmed placeholder.
func (i Item[T]) ID() int64 { return i.Record.RecordID() }

// Option tweaks a Reconcile call.
type Option[T Record] func(*options[T])

type options[T Record] struct {
	limit int
	cmp   func(a, b T) int
}

// SortBy orders the output with a stable sort using less.
func SortBy[T Record](less func(a, b T) bool) Option[T] {
	return func(o *options[T]) {
		o.cmp = func(a, b T) int {
			switch {
			case less(a, b):
				return -1
			case less(b, a):
				return 1
			default:
				return 0
			}
		}
	}
}

// UpdatedDesc orders the output newest-update first.
func UpdatedDesc[T Timestamped]() Option[T] {
	return SortBy(func(a, b T) bool { return a.Updated().After(b.Updated()) })
}

// Concurrency caps in-flight creator lookups. Values below one are ignored.
func Concurrency[T Record](n int) Option[T] {
	return func(o *options[T]) {
		if n > 0 {
			o.limit = n
		}
	}
}

// Reconcile annotates raw with creator names and ownership. Creator ids are
// resolved concurrently, one lookup per distinct id, and joined back by id,
// so the output has the same length and order as raw unless a sort option
// is given. currentUserID must come from the local session.
func Reconcile[T Record](ctx context.Context, raw []T, currentUserID int64, names NameResolver, opts ...Option[T]) []Item[T] {
	o := options[T]{limit: DefaultConcurrency}
	for _, opt := range opts {
		opt(&o)
	}
	if len(raw) == 0 {
		return nil
	}

	resolved := resolveNames(ctx, raw, names, o.limit)

	out := make([]Item[T], len(raw))
	for i, rec := range raw {
		creator := rec.CreatorID()
		out[i] = Item[T]{
			Record:        rec,
			CreatorName:   resolved[creator],
			IsCurrentUser: currentUserID != 0 && creator == currentUserID,
		}
	}
	if o.cmp != nil {
		slices.SortStableFunc(out, func(a, b Item[T]) int { return o.cmp(a.Record, b.Record) })
	}
	return out
}

func resolveNames[T Record](ctx context.Context, raw []T, names NameResolver, limit int) map[int64]string {
	if names == nil {
		return nil
	}
	ids := make([]int64, 0, len(raw))
	seen := make(map[int64]struct{}, len(raw))
	for _, rec := range raw {
		id := rec.CreatorID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	labels := make([]string, len(ids))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			labels[i] = names.CreatorName(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	byID := make(map[int64]string, len(ids))
	for i, id := range ids {
		byID[id] = labels[i]
	}
	return byID
}

// Filter returns the records for which keep reports true, preserving order.
func Filter[T any](raw []T, keep func(T) bool) []T {
	if keep == nil {
		return slices.Clone(raw)
	}
	out := make([]T, 0, len(raw))
	for _, rec := range raw {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Records strips the derived fields.
func Records[T Record](list []Item[T]) []T {
	if len(list) == 0 {
		return nil
	}
	out := make([]T, len(list))
	for i, it := range list {
		out[i] = it.Record
	}
	return out
}
