package results

import (
	"encoding/binary"
)

// CommitCursor stores the last processed token for a reader group
// idempotently. If the provided token is lower than the stored one, the
// commit is ignored.
func (f *Feed) CommitCursor(group string, tok Token) error {
	key := keyCursor(f.ns, group)
	cur, err := f.db.Get(key)
	if err == nil && len(cur) >= 8 {
		prev := binary.BigEndian.Uint64(cur[:8])
		if tok.Seq() <= prev {
			return nil
		}
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], tok.Seq())
	return f.db.Set(key, b[:])
}

// GetCursor loads the current cursor token for a reader group.
func (f *Feed) GetCursor(group string) (Token, bool) {
	cur, err := f.db.Get(keyCursor(f.ns, group))
	if err != nil || len(cur) < 8 {
		return Token{}, false
	}
	var t Token
	copy(t[:], cur[:8])
	return t, true
}
