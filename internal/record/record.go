package record

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Props is the mutable property document of a record. All fields are
// optional; an absent split_count reads as zero.
type Props struct {
	Text           string   `json:"text,omitempty"`
	Segments       []string `json:"segments,omitempty"`
	SplitCount     int64    `json:"split_count,omitempty"`
	LastSplitDepth int64    `json:"last_split_depth,omitempty"`
}

// recMeta is the bookkeeping document stored beside the props. Every
// successful write bumps Rev.
type recMeta struct {
	Rev         uint64 `json:"rev"`
	CreatedAtMs int64  `json:"createdAtMs"`
	UpdatedAtMs int64  `json:"updatedAtMs"`
}

// Token is an opaque revision guard encoded as rev (8 bytes big-endian).
// A token obtained from Get or Version is only valid for the revision it
// was read at; Update rejects stale tokens with ErrConflict.
type Token [8]byte

func tokenFromRev(rev uint64) Token { var t Token; binary.BigEndian.PutUint64(t[:], rev); return t }

func (t Token) rev() uint64 { return binary.BigEndian.Uint64(t[:]) }

// String renders the token as fixed-width hex for transport.
func (t Token) String() string { return hex.EncodeToString(t[:]) }

// ParseToken decodes the hex form produced by String.
func ParseToken(s string) (Token, error) {
	var t Token
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(t) {
		return t, fmt.Errorf("malformed token %q", s)
	}
	copy(t[:], raw)
	return t, nil
}
