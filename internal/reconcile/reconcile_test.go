package reconcile

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lesson struct {
	id      int64
	creator int64
	title   string
	updated time.Time
}

func (l lesson) RecordID() int64    { return l.id }
func (l lesson) CreatorID() int64   { return l.creator }
func (l lesson) Updated() time.Time { return l.updated }

// jitterNames answers after a random delay so completion order differs from
// request order.
type jitterNames struct {
	mu    sync.Mutex
	calls map[int64]int
	names map[int64]string
}

func (j *jitterNames) CreatorName(_ context.Context, id int64) string {
	time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.calls == nil {
		j.calls = map[int64]int{}
	}
	j.calls[id]++
	if n, ok := j.names[id]; ok {
		return n
	}
	return "Unknown User"
}

func ids(list []Item[lesson]) []int64 {
	out := make([]int64, len(list))
	for i, it := range list {
		out[i] = it.ID()
	}
	return out
}

func TestReconcile_PreservesOrderAndLength(t *testing.T) {
	raw := make([]lesson, 40)
	want := make([]int64, len(raw))
	for i := range raw {
		raw[i] = lesson{id: int64(100 - i), creator: int64(i % 5)}
		want[i] = raw[i].id
	}
	names := &jitterNames{names: map[int64]string{0: "a", 1: "b", 2: "c", 3: "d", 4: "e"}}

	got := Reconcile(context.Background(), raw, 3, names, Concurrency[lesson](4))

	require.Len(t, got, len(raw))
	assert.Equal(t, want, ids(got))
	for i, it := range got {
		assert.Equal(t, names.names[raw[i].creator], it.CreatorName)
	}
	for id, n := range names.calls {
		assert.Equal(t, 1, n, "creator %d resolved more than once", id)
	}
}

func TestReconcile_Ownership(t *testing.T) {
	raw := []lesson{{id: 1, creator: 7}, {id: 2, creator: 8}, {id: 3, creator: 7}, {id: 4, creator: 0}}

	got := Reconcile(context.Background(), raw, 7, nil)
	assert.Equal(t, []bool{true, false, true, false}, []bool{
		got[0].IsCurrentUser, got[1].IsCurrentUser, got[2].IsCurrentUser, got[3].IsCurrentUser,
	})
	assert.Empty(t, got[0].CreatorName, "nil resolver leaves names empty")

	anon := Reconcile(context.Background(), raw, 0, nil)
	for _, it := range anon {
		assert.False(t, it.IsCurrentUser)
	}
}

func TestReconcile_PublicLessonOfCurrentUser(t *testing.T) {
	names := &jitterNames{names: map[int64]string{7: "grace"}}
	got := Reconcile(context.Background(), []lesson{{id: 1, creator: 7, title: "X"}}, 7, names)

	require.Len(t, got, 1)
	assert.True(t, got[0].IsCurrentUser)
	assert.Equal(t, "grace", got[0].CreatorName)
	assert.Equal(t, "X", got[0].Record.title)
}

func TestReconcile_UpdatedDesc(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	raw := []lesson{
		{id: 1, updated: base},
		{id: 2, updated: base.Add(2 * time.Hour)},
		{id: 3, updated: base.Add(time.Hour)},
		{id: 4, updated: base.Add(2 * time.Hour)},
	}
	got := Reconcile(context.Background(), raw, 0, nil, UpdatedDesc[lesson]())
	assert.Equal(t, []int64{2, 4, 3, 1}, ids(got))
	assert.Equal(t, int64(1), raw[0].id, "input untouched")
}

func TestReconcile_EmptyInput(t *testing.T) {
	assert.Empty(t, Reconcile[lesson](context.Background(), nil, 1, nil))
}

func TestFilter(t *testing.T) {
	raw := []lesson{{id: 1, creator: 1}, {id: 2, creator: 2}, {id: 3, creator: 1}}
	got := Filter(raw, func(l lesson) bool { return l.creator == 1 })
	assert.Equal(t, []lesson{{id: 1, creator: 1}, {id: 3, creator: 1}}, got)
	assert.Len(t, Filter(raw, nil), 3)
}

func TestApplyCreate_ThenRefetchHasRecordOnce(t *testing.T) {
	local := Reconcile(context.Background(), []lesson{{id: 1}, {id: 2}}, 9, nil)

	local, corr := ApplyCreate(local, lesson{title: "new", creator: 9}, "me", Prepend)
	require.Len(t, local, 3)
	assert.True(t, local[0].Pending)
	assert.True(t, local[0].IsCurrentUser)
	assert.NotEmpty(t, corr)

	local = Confirm(local, corr, lesson{id: 3, title: "new", creator: 9})
	assert.False(t, local[0].Pending)
	assert.Equal(t, int64(3), local[0].ID())

	fresh := Reconcile(context.Background(), []lesson{{id: 3, creator: 9}, {id: 1}, {id: 2}}, 9, nil)
	merged := Merge(fresh, local)
	assert.Equal(t, []int64{3, 1, 2}, ids(merged))
}

func TestMerge_KeepsInFlightPlaceholders(t *testing.T) {
	local := Reconcile(context.Background(), []lesson{{id: 1}}, 9, nil)
	local, front := ApplyCreate(local, lesson{title: "a"}, "me", Prepend)
	local, back := ApplyCreate(local, lesson{title: "b"}, "me", Append)

	fresh := Reconcile(context.Background(), []lesson{{id: 1}, {id: 5}, {id: 5}}, 9, nil)
	merged := Merge(fresh, local)

	require.Len(t, merged, 4)
	assert.Equal(t, front, merged[0].CorrelationID)
	assert.Equal(t, []int64{0, 1, 5, 0}, ids(merged))
	assert.Equal(t, back, merged[3].CorrelationID)
}

func TestMergeAt_FetchIssuedBeforeConfirmKeepsRecord(t *testing.T) {
	local := Reconcile(context.Background(), []lesson{{id: 1}}, 9, nil)
	local, corr := ApplyCreate(local, lesson{title: "new", creator: 9}, "me", Prepend)
	// Generation 4 was in flight when the create returned.
	local = ConfirmAt(local, corr, lesson{id: 7, title: "new", creator: 9}, 4)

	stale := Reconcile(context.Background(), []lesson{{id: 1}}, 9, nil)
	merged := MergeAt(stale, local, 4)
	assert.Equal(t, []int64{7, 1}, ids(merged))
	assert.False(t, merged[0].Pending)

	// A fetch issued afterwards is authoritative.
	assert.Equal(t, []int64{1}, ids(MergeAt(stale, merged, 5)))
	withRecord := Reconcile(context.Background(), []lesson{{id: 7}, {id: 1}}, 9, nil)
	assert.Equal(t, []int64{7, 1}, ids(MergeAt(withRecord, merged, 4)))
}

func TestConfirm_AfterRefetchAlreadyShowsRecord(t *testing.T) {
	local, corr := ApplyCreate[lesson](nil, lesson{title: "x"}, "me", Prepend)
	local = Merge(Reconcile(context.Background(), []lesson{{id: 8}}, 0, nil), local)
	require.Len(t, local, 2)

	local = Confirm(local, corr, lesson{id: 8})
	assert.Equal(t, []int64{8}, ids(local))
}

func TestDiscard(t *testing.T) {
	base := Reconcile(context.Background(), []lesson{{id: 1}}, 0, nil)
	list, corr := ApplyCreate(base, lesson{}, "me", Append)

	assert.Equal(t, []int64{1}, ids(Discard(list, corr)))
	assert.Len(t, Discard(list, "missing"), 2)
	assert.Len(t, list, 2, "input not modified")
}

func TestApplyUpdateAndDelete(t *testing.T) {
	list := Reconcile(context.Background(), []lesson{{id: 1, title: "a"}, {id: 2, title: "b"}}, 0, nil)

	updated, ok := ApplyUpdate(list, 2, func(l *lesson) { l.title = "B" })
	require.True(t, ok)
	assert.Equal(t, "B", updated[1].Record.title)
	assert.Equal(t, "b", list[1].Record.title, "input not modified")

	_, ok = ApplyUpdate(list, 3, func(l *lesson) {})
	assert.False(t, ok)

	deleted, ok := ApplyDelete(list, 1)
	require.True(t, ok)
	assert.Equal(t, []int64{2}, ids(deleted))

	_, ok = ApplyDelete(list, 0)
	assert.False(t, ok)
}

func TestRecords(t *testing.T) {
	list := Reconcile(context.Background(), []lesson{{id: 4}, {id: 2}}, 0, nil)
	assert.Equal(t, []lesson{{id: 4}, {id: 2}}, Records(list))
	assert.Nil(t, Records[lesson](nil))
}
