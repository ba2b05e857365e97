package steps

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rzbill/cleave/internal/config"
	"github.com/rzbill/cleave/internal/record"
	"github.com/rzbill/cleave/internal/results"
	"github.com/rzbill/cleave/internal/runtime"
	pebblestore "github.com/rzbill/cleave/internal/storage/pebble"
)

func newTestService(t *testing.T) (*Service, *runtime.Runtime) {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeAlways,
		Config:  config.Default(),
	})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	svc := New(rt)
	t.Cleanup(svc.Close)
	return svc, rt
}

func mustCreate(t *testing.T, rt *runtime.Runtime, ns, id, text string) {
	t.Helper()
	if _, err := rt.EnsureNamespace(ns); err != nil {
		t.Fatalf("ensure namespace: %v", err)
	}
	if _, err := rt.Records(ns).Create(context.Background(), id, record.Props{Text: text}); err != nil {
		t.Fatalf("create record: %v", err)
	}
}

type testSink struct {
	items *[]ResultItem
}

func (s *testSink) Send(it ResultItem) error { *s.items = append(*s.items, it); return nil }
func (s *testSink) Context() context.Context { return context.Background() }
func (s *testSink) Flush() error             { return nil }

func TestRunAppendsOutcome(t *testing.T) {
	svc, rt := newTestService(t)
	ctx := context.Background()
	mustCreate(t, rt, "ns1", "doc", strings.Repeat("a", 23))

	res, err := svc.Run(ctx, RunRequest{Namespace: "ns1", ID: "doc", Depth: 4})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Done || res.Splits != 1 || res.SegmentsAfter != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}

	items, _, err := svc.Results(ctx, ResultsRequest{Namespace: "ns1"})
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 feed entry, got %d", len(items))
	}
	e := items[0].Entry
	if e.EntityID != "doc" || e.Done || e.Splits != 1 || e.SplitCount != 1 || e.Segments != 2 || e.Depth != 4 {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Error != "" {
		t.Fatalf("unexpected error on entry: %q", e.Error)
	}
}

func TestRunUntilSettled(t *testing.T) {
	svc, rt := newTestService(t)
	ctx := context.Background()
	mustCreate(t, rt, "ns1", "doc", strings.Repeat("b", 40))

	var last RunRequest
	rounds := 0
	for depth := int64(0); ; depth++ {
		last = RunRequest{Namespace: "ns1", ID: "doc", Depth: depth}
		res, err := svc.Run(ctx, last)
		if err != nil {
			t.Fatalf("run depth %d: %v", depth, err)
		}
		rounds++
		if res.Done {
			break
		}
		if rounds > 10 {
			t.Fatal("did not settle")
		}
	}
	// 40 -> 20,20 -> 10,10,10,10 -> settled on the third call.
	if rounds != 3 {
		t.Fatalf("rounds = %d, want 3", rounds)
	}

	items, _, err := svc.Results(ctx, ResultsRequest{Namespace: "ns1"})
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 feed entries, got %d", len(items))
	}
	final := items[2].Entry
	if !final.Done || final.Splits != 0 || final.Segments != 4 || final.SplitCount != 2 {
		t.Fatalf("unexpected final entry: %+v", final)
	}
}

func TestRunFailureLandsOnFeed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Run(ctx, RunRequest{Namespace: "ns1", ID: "ghost"})
	if !errors.Is(err, record.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	items, _, err := svc.Results(ctx, ResultsRequest{Namespace: "ns1"})
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 feed entry, got %d", len(items))
	}
	e := items[0].Entry
	if e.EntityID != "ghost" || e.Done || e.Error == "" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestTriggerAckThenAsyncResult(t *testing.T) {
	svc, rt := newTestService(t)
	ctx := context.Background()
	mustCreate(t, rt, "ns1", "doc", strings.Repeat("c", 30))

	ack, err := svc.Trigger(ctx, RunRequest{Namespace: "ns1", ID: "doc", Depth: 1})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if ack.EntityID != "doc" || !ack.Accepted {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		items, _, err := svc.Results(ctx, ResultsRequest{Namespace: "ns1"})
		if err != nil {
			t.Fatalf("results: %v", err)
		}
		if len(items) == 1 {
			e := items[0].Entry
			if e.EntityID != "doc" || e.Splits != 1 || e.Depth != 1 {
				t.Fatalf("unexpected entry: %+v", e)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for async result")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTriggerMissingRecord(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Trigger(context.Background(), RunRequest{Namespace: "ns1", ID: "ghost"})
	if !errors.Is(err, record.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSubscribeDeliversBacklog(t *testing.T) {
	svc, rt := newTestService(t)
	ctx := context.Background()
	mustCreate(t, rt, "ns1", "doc", strings.Repeat("d", 23))

	if _, err := svc.Run(ctx, RunRequest{Namespace: "ns1", ID: "doc"}); err != nil {
		t.Fatalf("run 1: %v", err)
	}
	if _, err := svc.Run(ctx, RunRequest{Namespace: "ns1", ID: "doc", Depth: 1}); err != nil {
		t.Fatalf("run 2: %v", err)
	}

	var received []ResultItem
	sink := &testSink{items: &received}

	// Limit bounds the subscribe so it returns once the backlog is drained.
	err := svc.Subscribe(ctx, "ns1", nil, SubscribeOptions{Limit: 2}, sink)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(received) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(received))
	}
	if received[0].Token.Seq() != 1 || received[1].Token.Seq() != 2 {
		t.Fatalf("unexpected tokens: %v %v", received[0].Token.Seq(), received[1].Token.Seq())
	}
	if received[1].Entry.Depth != 1 {
		t.Fatalf("unexpected second entry: %+v", received[1].Entry)
	}
}

func TestSubscribeTailsNewAppends(t *testing.T) {
	svc, rt := newTestService(t)
	ctx := context.Background()
	mustCreate(t, rt, "ns1", "doc", strings.Repeat("e", 23))

	go func() {
		time.Sleep(50 * time.Millisecond)
		_, _ = svc.Run(context.Background(), RunRequest{Namespace: "ns1", ID: "doc"})
	}()

	var received []ResultItem
	sink := &testSink{items: &received}
	if err := svc.Subscribe(ctx, "ns1", nil, SubscribeOptions{Limit: 1}, sink); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(received) != 1 || received[0].Entry.EntityID != "doc" {
		t.Fatalf("unexpected delivery: %+v", received)
	}
}

func TestSubscribeFilter(t *testing.T) {
	svc, rt := newTestService(t)
	ctx := context.Background()

	feed, err := rt.Results("ns1")
	if err != nil {
		t.Fatalf("results feed: %v", err)
	}
	seed := []results.Entry{
		{EntityID: "a", Done: false, Splits: 3},
		{EntityID: "b", Done: true},
		{EntityID: "c", Done: true, SplitCount: 7},
	}
	for _, e := range seed {
		if _, err := feed.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	var received []ResultItem
	sink := &testSink{items: &received}
	opts := SubscribeOptions{Filter: `done && entity_id != "b"`, Limit: 1}
	if err := svc.Subscribe(ctx, "ns1", nil, opts, sink); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(received) != 1 || received[0].Entry.EntityID != "c" {
		t.Fatalf("unexpected delivery: %+v", received)
	}
}

func TestSubscribeRejectsBadFilter(t *testing.T) {
	svc, _ := newTestService(t)

	sink := &testSink{items: &[]ResultItem{}}
	err := svc.Subscribe(context.Background(), "ns1", nil, SubscribeOptions{Filter: "done &&"}, sink)
	if err == nil {
		t.Fatal("expected compile error")
	}
}

func TestSubscribeExplicitStartToken(t *testing.T) {
	svc, rt := newTestService(t)
	ctx := context.Background()

	feed, err := rt.Results("ns1")
	if err != nil {
		t.Fatalf("results feed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := feed.Append(ctx, results.Entry{EntityID: "r", Splits: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	start := results.TokenFromSeq(2)
	var received []ResultItem
	sink := &testSink{items: &received}
	if err := svc.Subscribe(ctx, "ns1", start[:], SubscribeOptions{Limit: 2}, sink); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(received) != 2 || received[0].Token.Seq() != 2 || received[1].Token.Seq() != 3 {
		t.Fatalf("unexpected deliveries: %+v", received)
	}
}

func TestResultsGroupCursorResume(t *testing.T) {
	svc, rt := newTestService(t)
	ctx := context.Background()

	feed, err := rt.Results("ns1")
	if err != nil {
		t.Fatalf("results feed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := feed.Append(ctx, results.Entry{EntityID: "r", Splits: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	items, _, err := svc.Results(ctx, ResultsRequest{Namespace: "ns1", Group: "drv"})
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected full read, got %d", len(items))
	}

	if err := svc.CommitCursor(ctx, "ns1", "drv", items[0].Token); err != nil {
		t.Fatalf("commit: %v", err)
	}
	tok, ok, err := svc.Cursor(ctx, "ns1", "drv")
	if err != nil || !ok || tok.Seq() != 1 {
		t.Fatalf("cursor = %v %v %v", tok.Seq(), ok, err)
	}

	items, _, err = svc.Results(ctx, ResultsRequest{Namespace: "ns1", Group: "drv"})
	if err != nil {
		t.Fatalf("results after commit: %v", err)
	}
	if len(items) != 2 || items[0].Token.Seq() != 2 {
		t.Fatalf("unexpected resume: %+v", items)
	}
}

func TestResultsFromEndAndReverse(t *testing.T) {
	svc, rt := newTestService(t)
	ctx := context.Background()

	feed, err := rt.Results("ns1")
	if err != nil {
		t.Fatalf("results feed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := feed.Append(ctx, results.Entry{EntityID: "r", Splits: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	items, next, err := svc.Results(ctx, ResultsRequest{Namespace: "ns1", From: FromEnd})
	if err != nil {
		t.Fatalf("results from end: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty read from end, got %d", len(items))
	}
	if next.Seq() != 4 {
		t.Fatalf("next = %d, want 4", next.Seq())
	}

	items, next, err = svc.Results(ctx, ResultsRequest{Namespace: "ns1", Reverse: true, Limit: 2})
	if err != nil {
		t.Fatalf("reverse results: %v", err)
	}
	if len(items) != 2 || items[0].Token.Seq() != 3 || items[1].Token.Seq() != 2 {
		t.Fatalf("unexpected reverse page: %+v", items)
	}
	if next.Seq() != 1 {
		t.Fatalf("reverse next = %d, want 1", next.Seq())
	}
}
