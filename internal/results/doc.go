// Package results implements the per-namespace step-result feed.
//
// # Overview
//
// Every completed step invocation, successful or failed, appends one entry
// to its namespace's feed. The feed is the side channel a driver polls to
// learn an invocation's outcome after the trigger endpoint has already
// acknowledged. Entries persist in Pebble with lexicographically ordered
// keys:
//   - ns/{ns}/res/m           (feed metadata: lastSeq)
//   - ns/{ns}/res/e/{seq_be8} (entries)
//   - ns/{ns}/rescur/{group}  (durable reader cursors)
//
// Entries are framed as: atMs(8B BE) | JSON payload | crc32c. A frame that
// fails its checksum is skipped on read and collected by trims.
//
// API surface (internal)
//
//	f, _ := OpenFeed(db, ns)
//	tok, _ := f.Append(ctx, Entry{EntityID: id, Done: false, Splits: 3})
//
//	// Read forward/reverse with an optional start token and limit
//	items, next := f.Read(ReadOptions{Start: tok, Limit: 100})
//	_ = next // resume position
//
//	// Blocking wait/notify for live subscriptions
//	woke := f.WaitForAppend(200 * time.Millisecond)
//	_ = woke
//
//	// Durable reader cursor commits (idempotent, no regression)
//	_ = f.CommitCursor("driver-a", tok)
//
//	// Age-based retention, batched and throttled
//	_, _ = f.TrimOlderThan(ctx, cutoffMs, 1024, 0)
package results
