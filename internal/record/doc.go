// Package record implements Cleave's versioned record store.
//
// # Overview
//
// Records live in Pebble as two adjacent keys per id:
//   - ns/{ns}/rec/{id}/meta  (revision + created/updated unix-ms, JSON)
//   - ns/{ns}/rec/{id}/props (property document, JSON)
//
// Both keys are written in a single batch, so a record is never observed
// half-updated. Every successful write bumps the meta revision. The
// revision travels as an opaque 8-byte Token; Update compares the caller's
// token against the stored revision and rejects a stale one with
// ErrConflict, which gives callers read-decide-write without locks.
//
// API surface (internal)
//
//	s := OpenStore(db, ns)
//	tok, _ := s.Create(ctx, id, Props{Text: "..."})
//
//	// Read props together with the revision they were read at
//	props, tok, _ := s.Get(id)
//
//	// Fresh token only, for a conditional write about to happen
//	tok, _ = s.Version(id)
//
//	// Conditional write; ErrConflict when tok is stale
//	tok, err := s.Update(ctx, id, tok, props)
//
// The props document carries the step state: text, segments, split_count
// and last_split_depth. All fields are optional and absent counters read
// as zero.
package record
