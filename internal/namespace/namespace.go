package namespace

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/cleave/internal/storage/pebble"
)

// Meta holds namespace metadata and limits applied to records within it.
type Meta struct {
	Name            string `json:"name"`
	CreatedAtMs     int64  `json:"createdAtMs"`
	TextMaxBytes    int    `json:"textMaxBytes"`
	ResultsRetainMs int64  `json:"resultsRetainMs"`
}

// Defaults returns opinionated defaults for new namespaces.
func Defaults() Meta {
	return Meta{
		TextMaxBytes:    1 << 20, // 1 MiB
		ResultsRetainMs: int64(24 * time.Hour / time.Millisecond),
	}
}

var nsMetaPrefix = []byte("nsmeta/")

// nsMetaKey builds metadata key for a namespace.
func nsMetaKey(ns string) []byte {
	k := make([]byte, 0, len(nsMetaPrefix)+len(ns))
	k = append(k, nsMetaPrefix...)
	k = append(k, ns...)
	return k
}

// Validate rejects names that cannot appear as a keyspace segment.
func Validate(name string) error {
	if name == "" {
		return fmt.Errorf("namespace required")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("namespace %q contains invalid character %q", name, r)
		}
	}
	return nil
}

// EnsureNamespace creates a namespace meta record if absent, returning the effective meta.
// Idempotent: returns existing if already present.
func EnsureNamespace(db *pebblestore.DB, name string) (Meta, error) {
	return EnsureNamespaceWith(db, name, Defaults())
}

// EnsureNamespaceWith is EnsureNamespace with caller-supplied limits. Zero
// limits fall back to Defaults.
func EnsureNamespaceWith(db *pebblestore.DB, name string, seed Meta) (Meta, error) {
	if err := Validate(name); err != nil {
		return Meta{}, err
	}
	key := nsMetaKey(name)
	if b, err := db.Get(key); err == nil && len(b) > 0 {
		var m Meta
		if err := json.Unmarshal(b, &m); err == nil {
			return m, nil
		}
		// fallthrough to rewrite if corrupted
	}
	m := seed
	if m.TextMaxBytes <= 0 {
		m.TextMaxBytes = Defaults().TextMaxBytes
	}
	if m.ResultsRetainMs <= 0 {
		m.ResultsRetainMs = Defaults().ResultsRetainMs
	}
	m.Name = name
	m.CreatedAtMs = time.Now().UnixMilli()
	bytes, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	if err := db.Set(key, bytes); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// List returns all namespace metas in name order.
func List(db *pebblestore.DB) ([]Meta, error) {
	hi := append(append([]byte{}, nsMetaPrefix...), 0xff)
	it, err := db.NewIter(&pebble.IterOptions{LowerBound: nsMetaPrefix, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []Meta
	for it.First(); it.Valid(); it.Next() {
		var m Meta
		if err := json.Unmarshal(it.Value(), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
