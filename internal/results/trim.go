package results

import (
	"context"
	"time"

	"github.com/cockroachdb/pebble"
)

// TrimOlderThan deletes entries stamped before cutoffMs. Deletes are
// committed in batches of up to batchLimit keys with an optional throttle
// between commits. The scan stops at the first entry at or past the
// cutoff, so the feed stays contiguous. Returns the number of deleted
// entries.
func (f *Feed) TrimOlderThan(ctx context.Context, cutoffMs int64, batchLimit int, throttle time.Duration) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}

	low := keyFeedEntry(f.ns, 0)
	hi := keyFeedEntry(f.ns, ^uint64(0))
	iter, err := f.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	deleted := 0
	for ok := iter.First(); ok; {
		b := f.db.NewBatch()
		n := 0
		for ok && n < batchLimit {
			atMs, _, okDec := decodeFrame(iter.Value())
			if okDec && atMs >= cutoffMs {
				ok = false
				break
			}
			// corrupt frames are trimmed along with expired ones
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			deleted++
			n++
			ok = iter.Next()
		}
		if n > 0 {
			if err := f.db.CommitBatch(ctx, b); err != nil {
				b.Close()
				return deleted, err
			}
			b.Close()
			if throttle > 0 {
				time.Sleep(throttle)
			}
		} else {
			b.Close()
		}
	}
	return deleted, nil
}
