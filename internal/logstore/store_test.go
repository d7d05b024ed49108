package logstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/rzbill/synthlog/internal/medium"
)

func newTestStore(t *testing.T, chunkSize int, opts ...medium.MemoryOption) (*Store, *medium.Memory) {
	t.Helper()
	m := medium.NewMemory(opts...)
	return New(m, Options{ChunkSize: chunkSize}), m
}

func item(n int) Item {
	return Item{ID: strconv.Itoa(n), Data: json.RawMessage(fmt.Sprintf(`{"n":%d}`, n))}
}

func appendN(t *testing.T, st *Store, session string, from, to int) {
	t.Helper()
	ctx := context.Background()
	for i := from; i <= to; i++ {
		if err := st.Append(ctx, session, item(i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func descending(from, to int) []string {
	out := []string{}
	for i := from; i >= to; i-- {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

func TestAppendThenReadAllSizes(t *testing.T) {
	const c = 4
	for n := 0; n <= 5*c; n++ {
		st, _ := newTestStore(t, c)
		appendN(t, st, "s", 1, n)
		if got := st.TotalCount("s"); got != n {
			t.Fatalf("n=%d total=%d", n, got)
		}
		if n == 0 {
			if got := st.Page("s", 1, 1); len(got) != 0 {
				t.Fatalf("empty session returned %v", ids(got))
			}
			continue
		}
		got := ids(st.Page("s", 1, n))
		if want := descending(n, 1); !reflect.DeepEqual(got, want) {
			t.Fatalf("n=%d got %v want %v", n, got, want)
		}
	}
}

func TestChunkBoundarySealsFullChunk(t *testing.T) {
	const c = 3
	st, m := newTestStore(t, c)
	appendN(t, st, "s", 1, c)
	sealed, err := m.Get(KeyChunk(DefaultPrefix, "s", 0))
	if err != nil {
		t.Fatalf("get chunk0: %v", err)
	}
	appendN(t, st, "s", c+1, c+1)

	after, _ := m.Get(KeyChunk(DefaultPrefix, "s", 0))
	if string(after) != string(sealed) {
		t.Fatalf("sealed chunk rewritten by C+1th append")
	}
	chunk0, _ := st.loadChunk("s", 0)
	chunk1, present := st.loadChunk("s", 1)
	if len(chunk0) != c || !present || len(chunk1) != 1 || chunk1[0].ID != strconv.Itoa(c+1) {
		t.Fatalf("chunk0=%v chunk1=%v", ids(chunk0), ids(chunk1))
	}
	idx, ok := st.Index("s")
	if !ok || idx != (SessionIndex{TotalCount: c + 1, LastChunkID: 1}) {
		t.Fatalf("index %+v", idx)
	}
}

func TestPaginationExhaustive(t *testing.T) {
	for _, tc := range []struct{ n, c, p int }{{0, 3, 2}, {1, 3, 1}, {7, 3, 2}, {9, 3, 3}, {10, 4, 7}, {25, 5, 25}, {13, 50, 4}} {
		st, _ := newTestStore(t, tc.c)
		appendN(t, st, "s", 1, tc.n)
		var got []string
		for page := 1; ; page++ {
			items := st.Page("s", page, tc.p)
			if len(items) == 0 {
				break
			}
			if len(items) > tc.p {
				t.Fatalf("%+v: page %d has %d items", tc, page, len(items))
			}
			got = append(got, ids(items)...)
		}
		want := descending(tc.n, 1)
		if tc.n == 0 {
			want = nil
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%+v: got %v want %v", tc, got, want)
		}
	}
}

func TestOutOfRangeAndInvalidPages(t *testing.T) {
	st, _ := newTestStore(t, 3)
	appendN(t, st, "s", 1, 5)
	for _, tc := range []struct{ page, size int }{{3, 3}, {6, 1}, {0, 2}, {-1, 2}, {1, 0}, {1, -4}, {1 << 40, 1 << 40}} {
		if got := st.Page("s", tc.page, tc.size); len(got) != 0 {
			t.Fatalf("page=%d size=%d returned %v", tc.page, tc.size, ids(got))
		}
	}
	if got := st.Page("unknown", 1, 10); got == nil || len(got) != 0 {
		t.Fatalf("unknown session must return an empty, non-nil slice")
	}
}

func TestConcreteScenarioChunkSizeTwo(t *testing.T) {
	st, _ := newTestStore(t, 2)
	ctx := context.Background()
	for i, name := range []string{"A", "B", "C", "D", "E"} {
		it := Item{ID: strconv.Itoa(i + 1), Data: json.RawMessage(`"` + name + `"`)}
		if err := st.Append(ctx, "s", it); err != nil {
			t.Fatalf("append %s: %v", name, err)
		}
	}
	if st.TotalCount("s") != 5 {
		t.Fatalf("total %d", st.TotalCount("s"))
	}
	for chunkID, want := range [][]string{{"1", "2"}, {"3", "4"}, {"5"}} {
		got, _ := st.loadChunk("s", chunkID)
		if !reflect.DeepEqual(ids(got), want) {
			t.Fatalf("chunk%d = %v want %v", chunkID, ids(got), want)
		}
	}
	names := func(items []Item) []string {
		out := []string{}
		for _, it := range items {
			var s string
			_ = json.Unmarshal(it.Data, &s)
			out = append(out, s)
		}
		return out
	}
	for page, want := range map[int][]string{1: {"E", "D"}, 2: {"C", "B"}, 3: {"A"}, 4: {}} {
		if got := names(st.Page("s", page, 2)); !reflect.DeepEqual(got, want) {
			t.Fatalf("page %d = %v want %v", page, got, want)
		}
	}
}

func TestUpdateItemVisibility(t *testing.T) {
	st, _ := newTestStore(t, 3)
	appendN(t, st, "s", 1, 8)
	ctx := context.Background()

	patched := Item{ID: "2", Data: json.RawMessage(`{"n":2,"verified":true}`)}
	found, err := st.UpdateItem(ctx, "s", patched)
	if err != nil || !found {
		t.Fatalf("update: found=%v err=%v", found, err)
	}
	page := st.Page("s", 1, 8)
	if got := page[6]; got.ID != "2" || string(got.Data) != string(patched.Data) {
		t.Fatalf("page does not reflect update: %+v", got)
	}
	if st.TotalCount("s") != 8 {
		t.Fatalf("update must not change count")
	}
}

func TestUpdateUnknownIDLeavesDataUnchanged(t *testing.T) {
	st, m := newTestStore(t, 3)
	appendN(t, st, "s", 1, 5)
	snapshot := map[string]string{}
	keys, _ := m.Keys("")
	for _, k := range keys {
		v, _ := m.Get(k)
		snapshot[k] = string(v)
	}
	ctx := context.Background()
	for _, it := range []Item{{ID: "99"}, {ID: ""}} {
		found, err := st.UpdateItem(ctx, "s", it)
		if found || err != nil {
			t.Fatalf("update %q: found=%v err=%v", it.ID, found, err)
		}
	}
	if found, _ := st.UpdateItem(ctx, "never", Item{ID: "1"}); found {
		t.Fatalf("update on unknown session must report not found")
	}
	keys, _ = m.Keys("")
	if len(keys) != len(snapshot) {
		t.Fatalf("key count changed")
	}
	for _, k := range keys {
		v, _ := m.Get(k)
		if snapshot[k] != string(v) {
			t.Fatalf("key %s changed", k)
		}
	}
}

func TestUpdatePrefersNewestDuplicate(t *testing.T) {
	st, _ := newTestStore(t, 2)
	ctx := context.Background()
	for _, it := range []Item{{ID: "dup", Data: json.RawMessage(`1`)}, {ID: "x"}, {ID: "dup", Data: json.RawMessage(`2`)}} {
		if err := st.Append(ctx, "s", it); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if found, err := st.UpdateItem(ctx, "s", Item{ID: "dup", Data: json.RawMessage(`3`)}); !found || err != nil {
		t.Fatalf("update: %v %v", found, err)
	}
	page := st.Page("s", 1, 3)
	if string(page[0].Data) != "3" || string(page[2].Data) != "1" {
		t.Fatalf("expected newest duplicate patched, got %s / %s", page[0].Data, page[2].Data)
	}
}

func TestClearSessionCompleteAndIdempotent(t *testing.T) {
	st, m := newTestStore(t, 2)
	appendN(t, st, "a", 1, 5)
	appendN(t, st, "b", 1, 1)
	ctx := context.Background()

	if err := st.ClearSession(ctx, "a"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if st.TotalCount("a") != 0 || len(st.Page("a", 1, 10)) != 0 {
		t.Fatalf("cleared session still readable")
	}
	sessions, _ := st.ListSessions()
	if !reflect.DeepEqual(sessions, []string{"b"}) {
		t.Fatalf("sessions after clear: %v", sessions)
	}
	if keys, _ := m.Keys(KeySessionPrefix(DefaultPrefix, "a")); len(keys) != 0 {
		t.Fatalf("leftover keys: %v", keys)
	}
	if err := st.ClearSession(ctx, "a"); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if err := st.ClearSession(ctx, "never-used"); err != nil {
		t.Fatalf("clear unknown: %v", err)
	}
	if st.TotalCount("b") != 1 {
		t.Fatalf("other session affected")
	}
}

func TestClearSessionWithCorruptIndexSweepsKeys(t *testing.T) {
	st, m := newTestStore(t, 2)
	appendN(t, st, "s", 1, 5)
	_ = m.Set(KeyIndex(DefaultPrefix, "s"), []byte("garbage"))
	if err := st.ClearSession(context.Background(), "s"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if keys, _ := m.Keys(KeySessionPrefix(DefaultPrefix, "s")); len(keys) != 0 {
		t.Fatalf("leftover keys: %v", keys)
	}
}

func TestListSessions(t *testing.T) {
	st, m := newTestStore(t, 2)
	if got, err := st.ListSessions(); err != nil || len(got) != 0 {
		t.Fatalf("empty list: %v %v", got, err)
	}
	appendN(t, st, "zeta", 1, 3)
	appendN(t, st, "alpha", 1, 1)
	_ = m.Set("unrelated/key", []byte("x"))
	_ = m.Set(KeyChunk(DefaultPrefix, "orphan", 0), []byte("[]"))
	got, err := st.ListSessions()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"alpha", "zeta"}) {
		t.Fatalf("sessions: %v", got)
	}
}

func TestInvalidSessionRejected(t *testing.T) {
	st, _ := newTestStore(t, 2)
	if err := st.Append(context.Background(), "a/b", item(1)); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("want ErrInvalidSession, got %v", err)
	}
	if err := st.Append(context.Background(), "", item(1)); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("want ErrInvalidSession, got %v", err)
	}
	if st.TotalCount("a/b") != 0 {
		t.Fatalf("invalid session count")
	}
}

func TestQuotaRejectionIsReported(t *testing.T) {
	st, m := newTestStore(t, 50, medium.WithMaxBytes(200))
	ctx := context.Background()
	var rejected error
	appended := 0
	for i := 1; i <= 100 && rejected == nil; i++ {
		if err := st.Append(ctx, "s", item(i)); err != nil {
			rejected = err
			break
		}
		appended++
	}
	if !errors.Is(rejected, ErrNotPersisted) || !errors.Is(rejected, medium.ErrQuotaExceeded) {
		t.Fatalf("want ErrNotPersisted wrapping quota error, got %v", rejected)
	}
	if appended == 0 {
		t.Fatalf("quota too small for the test")
	}
	// The chunk write failed first, so the count reflects only persisted items.
	if got := st.TotalCount("s"); got != appended {
		t.Fatalf("total %d want %d", got, appended)
	}
	if len(st.Page("s", 1, 1000)) != appended {
		t.Fatalf("page length mismatch")
	}
	if m.Used() > 200 {
		t.Fatalf("quota exceeded: %d", m.Used())
	}
}

func TestUpdateRejectedByQuotaLeavesChunkUnchanged(t *testing.T) {
	st, m := newTestStore(t, 50, medium.WithMaxBytes(200))
	appendN(t, st, "s", 1, 1)
	chunkKey := KeyChunk(DefaultPrefix, "s", 0)
	before, err := m.Get(chunkKey)
	if err != nil {
		t.Fatalf("get chunk: %v", err)
	}

	big := Item{ID: "1", Data: json.RawMessage(`"` + strings.Repeat("x", 300) + `"`)}
	found, err := st.UpdateItem(context.Background(), "s", big)
	if found {
		t.Fatalf("rejected update reported as found")
	}
	if !errors.Is(err, ErrNotPersisted) || !errors.Is(err, medium.ErrQuotaExceeded) {
		t.Fatalf("want ErrNotPersisted wrapping quota error, got %v", err)
	}
	after, _ := m.Get(chunkKey)
	if string(before) != string(after) {
		t.Fatalf("chunk changed: %s -> %s", before, after)
	}
	if got := st.Page("s", 1, 10); len(got) != 1 || string(got[0].Data) != `{"n":1}` {
		t.Fatalf("page after rejected update: %+v", got)
	}
}

func TestIndexCountBeyondChunkCapacityIsCorrupt(t *testing.T) {
	st, m := newTestStore(t, 2)
	appendN(t, st, "s", 1, 3)
	_ = m.Set(KeyIndex(DefaultPrefix, "s"), []byte(`{"totalCount":1000000000000000,"lastChunkId":0}`))

	if st.TotalCount("s") != 0 {
		t.Fatalf("oversized count must read as absent")
	}
	if got := st.Page("s", 1, math.MaxInt); len(got) != 0 {
		t.Fatalf("page over oversized count: %v", ids(got))
	}
	if err := st.Append(context.Background(), "s", item(4)); !errors.Is(err, ErrCorruptIndex) {
		t.Fatalf("want ErrCorruptIndex, got %v", err)
	}

	// One past capacity is already out of range.
	_ = m.Set(KeyIndex(DefaultPrefix, "s"), []byte(`{"totalCount":3,"lastChunkId":0}`))
	if st.TotalCount("s") != 0 {
		t.Fatalf("count 3 with one chunk of 2 must read as absent")
	}
	_ = m.Set(KeyIndex(DefaultPrefix, "s"), []byte(`{"totalCount":3,"lastChunkId":1}`))
	if got := ids(st.Page("s", 1, math.MaxInt)); !reflect.DeepEqual(got, []string{"3", "2", "1"}) {
		t.Fatalf("page: %v", got)
	}
}

func TestAppendRefusesCorruptIndex(t *testing.T) {
	st, m := newTestStore(t, 2)
	appendN(t, st, "s", 1, 4)
	chunk1Before, _ := m.Get(KeyChunk(DefaultPrefix, "s", 1))
	_ = m.Set(KeyIndex(DefaultPrefix, "s"), []byte("{"))

	err := st.Append(context.Background(), "s", item(5))
	if !errors.Is(err, ErrNotPersisted) || !errors.Is(err, ErrCorruptIndex) {
		t.Fatalf("want ErrCorruptIndex, got %v", err)
	}
	chunk1After, _ := m.Get(KeyChunk(DefaultPrefix, "s", 1))
	if string(chunk1Before) != string(chunk1After) {
		t.Fatalf("sealed chunk overwritten")
	}
	if st.TotalCount("s") != 0 || len(st.Page("s", 1, 10)) != 0 {
		t.Fatalf("corrupt index must read as absent")
	}
}

func TestCorruptChunkSkippedOnRead(t *testing.T) {
	st, m := newTestStore(t, 2)
	appendN(t, st, "s", 1, 5)
	_ = m.Set(KeyChunk(DefaultPrefix, "s", 1), []byte("not json"))
	got := ids(st.Page("s", 1, 5))
	if want := []string{"5", "2", "1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	_ = m.Remove(KeyChunk(DefaultPrefix, "s", 0))
	if got := ids(st.Page("s", 1, 5)); !reflect.DeepEqual(got, []string{"5"}) {
		t.Fatalf("missing chunk: got %v", got)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	st, _ := newTestStore(t, 2)
	appendN(t, st, "a", 1, 3)
	appendN(t, st, "b", 10, 11)
	if got := ids(st.Page("a", 1, 10)); !reflect.DeepEqual(got, []string{"3", "2", "1"}) {
		t.Fatalf("a: %v", got)
	}
	if got := ids(st.Page("b", 1, 10)); !reflect.DeepEqual(got, []string{"11", "10"}) {
		t.Fatalf("b: %v", got)
	}
}

func TestCompressedStoreRoundTrip(t *testing.T) {
	m := medium.NewMemory()
	st := New(m, Options{ChunkSize: 3, Compression: CompressionZstd})
	appendN(t, st, "s", 1, 7)
	raw, _ := m.Get(KeyChunk(DefaultPrefix, "s", 0))
	if len(raw) < 4 || raw[0] != zstdMagic[0] {
		t.Fatalf("expected compressed chunk")
	}
	if got := ids(st.Page("s", 1, 7)); !reflect.DeepEqual(got, descending(7, 1)) {
		t.Fatalf("got %v", got)
	}
	// A plain store over the same medium reads the compressed chunks.
	plain := New(m, Options{ChunkSize: 3})
	if got := ids(plain.Page("s", 2, 3)); !reflect.DeepEqual(got, []string{"4", "3", "2"}) {
		t.Fatalf("plain reader got %v", got)
	}
}

func TestScanOrdersAndStops(t *testing.T) {
	st, m := newTestStore(t, 2)
	appendN(t, st, "s", 1, 5)

	var asc []string
	var ords []int
	st.Scan("s", OldestFirst, func(ord int, it Item) bool {
		asc = append(asc, it.ID)
		ords = append(ords, ord)
		return true
	})
	if !reflect.DeepEqual(asc, []string{"1", "2", "3", "4", "5"}) || !reflect.DeepEqual(ords, []int{0, 1, 2, 3, 4}) {
		t.Fatalf("ascending: %v %v", asc, ords)
	}

	var desc []string
	st.Scan("s", NewestFirst, func(_ int, it Item) bool {
		desc = append(desc, it.ID)
		return len(desc) < 2
	})
	if !reflect.DeepEqual(desc, []string{"5", "4"}) {
		t.Fatalf("descending with stop: %v", desc)
	}

	// Ordinals stay absolute when data is missing.
	_ = m.Remove(KeyChunk(DefaultPrefix, "s", 1))
	ords = nil
	st.Scan("s", OldestFirst, func(ord int, _ Item) bool {
		ords = append(ords, ord)
		return true
	})
	if !reflect.DeepEqual(ords, []int{0, 1, 4}) {
		t.Fatalf("ordinals with gap: %v", ords)
	}

	called := false
	st.Scan("missing", NewestFirst, func(int, Item) bool { called = true; return true })
	if called {
		t.Fatalf("scan of unknown session visited items")
	}
}
