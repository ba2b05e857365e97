package results

import (
	"context"
	"testing"
	"time"

	pebblestore "github.com/rzbill/cleave/internal/storage/pebble"
)

func newTestFeed(t *testing.T) *Feed {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	f, err := OpenFeed(db, "ns")
	if err != nil {
		t.Fatalf("open feed: %v", err)
	}
	return f
}

func TestAppendReadRoundTrip(t *testing.T) {
	f := newTestFeed(t)
	ctx := context.Background()

	in := []Entry{
		{EntityID: "r1", Done: false, Splits: 1, SplitCount: 1, Segments: 2, Depth: 0},
		{EntityID: "r1", Done: true, SplitCount: 1, Segments: 2, Depth: 1},
		{EntityID: "r2", Done: false, Error: "record not found", Depth: 0},
	}
	for _, e := range in {
		if _, err := f.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	items, _ := f.Read(ReadOptions{})
	if len(items) != len(in) {
		t.Fatalf("read %d items, want %d", len(items), len(in))
	}
	for i, it := range items {
		if it.Entry.EntityID != in[i].EntityID || it.Entry.Done != in[i].Done || it.Entry.Error != in[i].Error {
			t.Errorf("item %d mismatch: %+v vs %+v", i, it.Entry, in[i])
		}
		if it.Entry.AtMs == 0 {
			t.Errorf("item %d missing timestamp", i)
		}
	}
	if !(items[0].Seq < items[1].Seq && items[1].Seq < items[2].Seq) {
		t.Fatalf("seqs not increasing: %d %d %d", items[0].Seq, items[1].Seq, items[2].Seq)
	}
}

func TestReadStartLimitResume(t *testing.T) {
	f := newTestFeed(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.Append(ctx, Entry{EntityID: "r", Splits: i}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	first, next := f.Read(ReadOptions{Limit: 2})
	if len(first) != 2 || first[0].Entry.Splits != 0 || first[1].Entry.Splits != 1 {
		t.Fatalf("unexpected first page: %+v", first)
	}
	if next.Seq() == 0 {
		t.Fatalf("no resume token after partial read")
	}

	rest, _ := f.Read(ReadOptions{Start: next})
	if len(rest) != 3 || rest[0].Entry.Splits != 2 {
		t.Fatalf("unexpected second page: %+v", rest)
	}
}

func TestReadReverse(t *testing.T) {
	f := newTestFeed(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.Append(ctx, Entry{EntityID: "r", Splits: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	items, next := f.Read(ReadOptions{Reverse: true, Limit: 2})
	if len(items) != 2 || items[0].Entry.Splits != 2 || items[1].Entry.Splits != 1 {
		t.Fatalf("unexpected reverse page: %+v", items)
	}
	if next.Seq() != 1 {
		t.Fatalf("next = %d, want 1", next.Seq())
	}

	// Resume includes the entry the token addresses.
	items, next = f.Read(ReadOptions{Start: next, Reverse: true, Limit: 2})
	if len(items) != 1 || items[0].Entry.Splits != 0 {
		t.Fatalf("unexpected second page: %+v", items)
	}
	if next != (Token{}) {
		t.Fatalf("expected zero token at end, got seq %d", next.Seq())
	}
}

func TestFeedDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	f, err := OpenFeed(db, "ns")
	if err != nil {
		t.Fatalf("open feed: %v", err)
	}
	tok, err := f.Append(context.Background(), Entry{EntityID: "r"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("reopen pebble: %v", err)
	}
	t.Cleanup(func() { _ = db2.Close() })
	f2, err := OpenFeed(db2, "ns")
	if err != nil {
		t.Fatalf("open feed2: %v", err)
	}
	tok2, err := f2.Append(context.Background(), Entry{EntityID: "r"})
	if err != nil {
		t.Fatalf("append2: %v", err)
	}
	if !(tok.Seq() < tok2.Seq()) {
		t.Fatalf("sequence regressed across reopen: %d then %d", tok.Seq(), tok2.Seq())
	}
}

func TestWaitForAppendWake(t *testing.T) {
	f := newTestFeed(t)

	done := make(chan struct{})
	go func() {
		ok := f.WaitForAppend(500 * time.Millisecond)
		if !ok {
			t.Errorf("expected wake by append")
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if _, err := f.Append(context.Background(), Entry{EntityID: "r"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for waiter to wake")
	}
}

func TestWaitForAppendTimeout(t *testing.T) {
	f := newTestFeed(t)
	if f.WaitForAppend(50 * time.Millisecond) {
		t.Fatalf("expected timeout")
	}
}

func TestCommitCursorIdempotent(t *testing.T) {
	f := newTestFeed(t)
	ctx := context.Background()

	tok1, err := f.Append(ctx, Entry{EntityID: "a"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	tok2, err := f.Append(ctx, Entry{EntityID: "b"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := f.CommitCursor("driver", tok2); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// committing an older token must not regress
	if err := f.CommitCursor("driver", tok1); err != nil {
		t.Fatalf("commit lower: %v", err)
	}
	got, ok := f.GetCursor("driver")
	if !ok || got.Seq() != tok2.Seq() {
		t.Fatalf("cursor regressed: %d, want %d", got.Seq(), tok2.Seq())
	}

	if _, ok := f.GetCursor("other"); ok {
		t.Fatalf("unexpected cursor for unknown group")
	}
}

func TestTrimOlderThan(t *testing.T) {
	f := newTestFeed(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	stamps := []int64{now - 10_000, now - 5_000, now}
	for _, ms := range stamps {
		if _, err := f.Append(ctx, Entry{EntityID: "r", AtMs: ms}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	del, err := f.TrimOlderThan(ctx, now-1, 10, 0)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if del != 2 {
		t.Fatalf("deleted %d entries, want 2", del)
	}
	items, _ := f.Read(ReadOptions{})
	if len(items) != 1 || items[0].Entry.AtMs != now {
		t.Fatalf("unexpected survivors: %+v", items)
	}
}

func TestReadSkipsCorruptFrame(t *testing.T) {
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	f, err := OpenFeed(db, "ns")
	if err != nil {
		t.Fatalf("open feed: %v", err)
	}
	ctx := context.Background()

	if _, err := f.Append(ctx, Entry{EntityID: "good"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	victim, err := f.Append(ctx, Entry{EntityID: "victim"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := f.Append(ctx, Entry{EntityID: "alsogood"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	// damage the middle frame in place
	if err := db.Set(keyFeedEntry("ns", victim.Seq()), []byte("garbage")); err != nil {
		t.Fatalf("seed corrupt frame: %v", err)
	}

	items, _ := f.Read(ReadOptions{})
	if len(items) != 2 || items[0].Entry.EntityID != "good" || items[1].Entry.EntityID != "alsogood" {
		t.Fatalf("corrupt frame not skipped: %+v", items)
	}
}
