package results

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - ns/{ns}/res/m           (feed metadata: lastSeq)
// - ns/{ns}/res/e/{seq_be8} (entries)
// - ns/{ns}/rescur/{group}  (durable reader cursors)

var (
	nsPrefix   = []byte("ns/")
	metaSeg    = []byte("/res/m")
	entrySeg   = []byte("/res/e/")
	cursorSeg  = []byte("/rescur/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// keyFeedMeta builds the feed metadata key.
func keyFeedMeta(namespace string) []byte {
	k := make([]byte, 0, len(namespace)+16)
	k = append(k, nsPrefix...)
	k = append(k, namespace...)
	k = append(k, metaSeg...)
	return k
}

// keyFeedEntry builds the entry key with a big-endian sequence for proper ordering.
func keyFeedEntry(namespace string, seq uint64) []byte {
	k := make([]byte, 0, len(namespace)+24)
	k = append(k, nsPrefix...)
	k = append(k, namespace...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

// keyCursor builds the durable cursor key for a reader group.
func keyCursor(namespace, group string) []byte {
	k := make([]byte, 0, len(namespace)+len(group)+16)
	k = append(k, nsPrefix...)
	k = append(k, namespace...)
	k = append(k, cursorSeg...)
	k = append(k, group...)
	return k
}
