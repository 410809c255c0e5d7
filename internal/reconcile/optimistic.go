package reconcile

import (
	"math"
	"slices"

	"github.com/google/uuid"
)

// Position says where an optimistic insert lands.
type Position int

const (
	Prepend Position = iota
	Append
)

// ApplyCreate inserts rec as a pending placeholder owned by the current user
// and returns the new list along with the correlation id that later Confirm,
// Discard and Merge calls use to find it. list is not modified.
func ApplyCreate[T Record](list []Item[T], rec T, creatorName string, pos Position) ([]Item[T], string) {
	id := uuid.NewString()
	placeholder := Item[T]{
		Record:        rec,
		CreatorName:   creatorName,
		IsCurrentUser: true,
		CorrelationID: id,
		Pending:       true,
		appended:      pos == Append,
	}

	out := make([]Item[T], 0, len(list)+1)
	if pos == Append {
		out = append(out, list...)
		out = append(out, placeholder)
	} else {
		out = append(out, placeholder)
		out = append(out, list...)
	}
	return out, id
}

// Confirm attaches the server's copy of a created record to its placeholder.
// When the list already holds that id (a refetch won the race) the
// placeholder is dropped instead. Unknown correlation ids leave the list as
// it was.
func Confirm[T Record](list []Item[T], correlationID string, rec T) []Item[T] {
	return ConfirmAt(list, correlationID, rec, 0)
}

// ConfirmAt is Confirm for a list owned by a generation-tracked view. gen is
// the latest generation the view had issued when the create returned; a
// MergeAt with a generation up to gen keeps the record even if the fetched
// list lacks it.
func ConfirmAt[T Record](list []Item[T], correlationID string, rec T, gen uint64) []Item[T] {
	idx := indexOfCorrelation(list, correlationID)
	if idx < 0 {
		return slices.Clone(list)
	}
	if j := indexOfID(list, rec.RecordID()); j >= 0 && j != idx {
		return slices.Delete(slices.Clone(list), idx, idx+1)
	}
	out := slices.Clone(list)
	out[idx].Record = rec
	out[idx].Pending = false
	out[idx].settledAt = gen
	return out
}

// Discard removes a placeholder, e.g. after the create call failed.
func Discard[T Record](list []Item[T], correlationID string) []Item[T] {
	idx := indexOfCorrelation(list, correlationID)
	if idx < 0 {
		return slices.Clone(list)
	}
	return slices.Delete(slices.Clone(list), idx, idx+1)
}

// Merge reconciles an authoritative fetch with the local list. The fresh list
// wins: confirmed placeholders are dropped because the server now reports
// them (or has since removed them). Placeholders still in flight are kept at
// the end they were inserted at. No id appears twice in the result.
func Merge[T Record](fresh, local []Item[T]) []Item[T] {
	return MergeAt(fresh, local, math.MaxUint64)
}

// MergeAt is Merge for a fetch issued as generation gen. Records confirmed
// with ConfirmAt at gen or later are kept like in-flight placeholders when
// fresh lacks them, since the fetch may have been answered before the
// create landed.
func MergeAt[T Record](fresh, local []Item[T], gen uint64) []Item[T] {
	seen := make(map[int64]struct{}, len(fresh))
	body := make([]Item[T], 0, len(fresh))
	for _, it := range fresh {
		id := it.ID()
		if id != 0 {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		body = append(body, it)
	}

	var head, tail []Item[T]
	for _, it := range local {
		if it.CorrelationID == "" {
			continue
		}
		predates := it.settledAt != 0 && gen <= it.settledAt
		if !it.Pending && !predates {
			continue
		}
		if id := it.ID(); id != 0 {
			if _, dup := seen[id]; dup {
				continue
			}
		}
		if it.appended {
			tail = append(tail, it)
		} else {
			head = append(head, it)
		}
	}

	out := make([]Item[T], 0, len(head)+len(body)+len(tail))
	out = append(out, head...)
	out = append(out, body...)
	return append(out, tail...)
}

// ApplyUpdate runs patch on the item with the given id. It reports whether
// the id was found.
func ApplyUpdate[T Record](list []Item[T], id int64, patch func(*T)) ([]Item[T], bool) {
	idx := indexOfID(list, id)
	if idx < 0 || patch == nil {
		return slices.Clone(list), false
	}
	out := slices.Clone(list)
	patch(&out[idx].Record)
	return out, true
}

// ApplyDelete removes the item with the given id. It reports whether the id
// was found.
func ApplyDelete[T Record](list []Item[T], id int64) ([]Item[T], bool) {
	idx := indexOfID(list, id)
	if idx < 0 {
		return slices.Clone(list), false
	}
	return slices.Delete(slices.Clone(list), idx, idx+1), true
}

func indexOfID[T Record](list []Item[T], id int64) int {
	if id == 0 {
		return -1
	}
	return slices.IndexFunc(list, func(it Item[T]) bool { return it.ID() == id })
}

func indexOfCorrelation[T Record](list []Item[T], correlationID string) int {
	if correlationID == "" {
		return -1
	}
	return slices.IndexFunc(list, func(it Item[T]) bool { return it.CorrelationID == correlationID })
}
