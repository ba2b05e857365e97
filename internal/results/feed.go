package results

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pebblestore "github.com/rzbill/cleave/internal/storage/pebble"
)

// Entry is one step outcome as it appears in the feed. Splits counts the
// cuts made by the round, Segments the sequence length after it. Error is
// set only for failed invocations.
type Entry struct {
	EntityID   string `json:"entity_id"`
	Done       bool   `json:"done"`
	Splits     int    `json:"splits"`
	SplitCount int64  `json:"split_count"`
	Segments   int    `json:"segments"`
	Depth      int64  `json:"depth"`
	Error      string `json:"error,omitempty"`
	AtMs       int64  `json:"at_ms"`
}

// Feed provides the append-only step-result channel for a namespace.
type Feed struct {
	db *pebblestore.DB
	ns string

	mu       sync.Mutex
	lastSeq  uint64
	notifyCh chan struct{}
}

// OpenFeed initializes a Feed and loads the last sequence from metadata (if any).
func OpenFeed(db *pebblestore.DB, namespace string) (*Feed, error) {
	f := &Feed{db: db, ns: namespace, notifyCh: make(chan struct{})}
	meta, err := db.Get(keyFeedMeta(namespace))
	if err == nil && len(meta) >= 8 {
		f.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return f, nil
}

// Append appends one entry atomically and returns its token. AtMs is
// stamped with the current time when unset.
func (f *Feed) Append(ctx context.Context, e Entry) (Token, error) {
	if e.AtMs <= 0 {
		e.AtMs = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return Token{}, fmt.Errorf("encode result: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	b := f.db.NewBatch()
	defer b.Close()

	f.lastSeq++
	seq := f.lastSeq
	if err := b.Set(keyFeedEntry(f.ns, seq), encodeFrame(e.AtMs, payload), nil); err != nil {
		return Token{}, err
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], f.lastSeq)
	if err := b.Set(keyFeedMeta(f.ns), meta[:], nil); err != nil {
		return Token{}, err
	}
	if err := f.db.CommitBatch(ctx, b); err != nil {
		return Token{}, err
	}
	// notify waiters
	close(f.notifyCh)
	f.notifyCh = make(chan struct{})
	return TokenFromSeq(seq), nil
}

// LastSeq returns the sequence of the most recent entry, zero when empty.
func (f *Feed) LastSeq() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSeq
}
