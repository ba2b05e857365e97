package results

import (
	"encoding/binary"
	"hash/crc32"
)

// Frame encoding: atMs(8B BE) | payload | crc32c(atMs|payload)
//
// The timestamp sits outside the payload so trims can read it without
// decoding the JSON document.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func encodeFrame(atMs int64, payload []byte) []byte {
	out := make([]byte, 0, 8+len(payload)+4)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(atMs))
	out = append(out, ts[:]...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, ts[:])
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out
}

func decodeFrame(b []byte) (atMs int64, payload []byte, ok bool) {
	if len(b) < 8+4 {
		return 0, nil, false
	}
	ts := b[:8]
	body := b[8 : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, ts)
	crc = crc32.Update(crc, castagnoli, body)
	if crc != expect {
		return 0, nil, false
	}
	return int64(binary.BigEndian.Uint64(ts)), append([]byte(nil), body...), true
}
