package results

import (
	"encoding/binary"
	"encoding/json"

	"github.com/cockroachdb/pebble"
)

// Token encodes a feed position as seq (8 bytes big-endian).
type Token [8]byte

// TokenFromSeq builds the token addressing seq.
func TokenFromSeq(seq uint64) Token { var t Token; binary.BigEndian.PutUint64(t[:], seq); return t }

// Seq returns the sequence the token addresses.
func (t Token) Seq() uint64 { return binary.BigEndian.Uint64(t[:]) }

type ReadOptions struct {
	Start   Token // if zero, begin from the first entry
	Limit   int
	Reverse bool
}

type Item struct {
	Seq   uint64
	Entry Entry
}

// Read returns up to Limit items starting at Start (inclusive). Reverse
// scans descending. Corrupt frames are skipped. The returned token points
// at the next unread entry when the scan stopped early.
func (f *Feed) Read(opts ReadOptions) ([]Item, Token) {
	startSeq := opts.Start.Seq()
	startKey := keyFeedEntry(f.ns, startSeq)
	low := keyFeedEntry(f.ns, 0)
	hi := keyFeedEntry(f.ns, ^uint64(0))

	capHint := opts.Limit
	if capHint <= 0 {
		capHint = 16
	}
	items := make([]Item, 0, capHint)
	var next Token

	iter, err := f.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return items, next
	}
	defer iter.Close()

	if opts.Reverse {
		if startSeq == 0 {
			if !iter.Last() {
				return items, next
			}
		} else {
			// SeekLT on the successor key keeps Start inclusive.
			if !iter.SeekLT(keyFeedEntry(f.ns, startSeq+1)) {
				return items, next
			}
		}
		for iter.Valid() && (opts.Limit == 0 || len(items) < opts.Limit) {
			if it, ok := decodeItem(iter.Key(), iter.Value()); ok {
				items = append(items, it)
			}
			if !iter.Prev() {
				break
			}
		}
		if iter.Valid() {
			k := iter.Key()
			copy(next[:], k[len(k)-8:])
		}
		return items, next
	}

	if startSeq == 0 {
		if !iter.First() {
			return items, next
		}
	} else {
		if !iter.SeekGE(startKey) {
			return items, next
		}
	}
	for iter.Valid() && (opts.Limit == 0 || len(items) < opts.Limit) {
		if it, ok := decodeItem(iter.Key(), iter.Value()); ok {
			items = append(items, it)
		}
		if !iter.Next() {
			break
		}
	}
	if iter.Valid() {
		k := iter.Key()
		copy(next[:], k[len(k)-8:])
	}
	return items, next
}

func decodeItem(key, val []byte) (Item, bool) {
	seq := binary.BigEndian.Uint64(key[len(key)-8:])
	atMs, payload, ok := decodeFrame(val)
	if !ok {
		return Item{}, false
	}
	var e Entry
	if err := json.Unmarshal(payload, &e); err != nil {
		return Item{}, false
	}
	if e.AtMs == 0 {
		e.AtMs = atMs
	}
	return Item{Seq: seq, Entry: e}, true
}
