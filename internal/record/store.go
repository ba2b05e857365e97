package record

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	pebblestore "github.com/rzbill/cleave/internal/storage/pebble"
)

var (
	// ErrNotFound reports a record that does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrExists reports a create against an id that is already present.
	ErrExists = errors.New("record already exists")
	// ErrConflict reports a conditional write guarded by a stale token.
	ErrConflict = errors.New("record revision conflict")
)

// Store reads and writes versioned records for a single namespace.
// Writers serialize on an internal mutex, so token checks and the batch
// commit they guard are atomic within the process; share one Store per
// namespace rather than opening several.
type Store struct {
	db *pebblestore.DB
	ns string

	mu sync.Mutex
}

// OpenStore binds a Store to a namespace.
func OpenStore(db *pebblestore.DB, namespace string) *Store {
	return &Store{db: db, ns: namespace}
}

// ValidateID checks the id shape; ids become key path segments.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("record id required")
	}
	if strings.ContainsRune(id, '/') {
		return fmt.Errorf("record id must not contain '/'")
	}
	return nil
}

// Create writes a new record and returns its first token. Fails with
// ErrExists when the id is already present.
func (s *Store) Create(ctx context.Context, id string, props Props) (Token, error) {
	if err := ValidateID(id); err != nil {
		return Token{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.readMeta(id); err == nil {
		return Token{}, ErrExists
	} else if !errors.Is(err, ErrNotFound) {
		return Token{}, err
	}
	now := time.Now().UnixMilli()
	return s.write(ctx, id, props, recMeta{Rev: 1, CreatedAtMs: now, UpdatedAtMs: now})
}

// Get returns the record's props and the token of the revision they were
// read at.
func (s *Store) Get(id string) (Props, Token, error) {
	if err := ValidateID(id); err != nil {
		return Props{}, Token{}, err
	}
	m, err := s.readMeta(id)
	if err != nil {
		return Props{}, Token{}, err
	}
	raw, err := s.db.Get(propsKey(s.ns, id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Props{}, Token{}, ErrNotFound
		}
		return Props{}, Token{}, err
	}
	var p Props
	if err := json.Unmarshal(raw, &p); err != nil {
		return Props{}, Token{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return p, tokenFromRev(m.Rev), nil
}

// Version returns a fresh token for the record's current revision without
// reading the props.
func (s *Store) Version(id string) (Token, error) {
	if err := ValidateID(id); err != nil {
		return Token{}, err
	}
	m, err := s.readMeta(id)
	if err != nil {
		return Token{}, err
	}
	return tokenFromRev(m.Rev), nil
}

// Update replaces the record's props if tok still matches the stored
// revision, returning the token of the new revision. A stale token fails
// with ErrConflict and leaves the record untouched.
func (s *Store) Update(ctx context.Context, id string, tok Token, props Props) (Token, error) {
	if err := ValidateID(id); err != nil {
		return Token{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.readMeta(id)
	if err != nil {
		return Token{}, err
	}
	if tok.rev() != m.Rev {
		return Token{}, ErrConflict
	}
	m.Rev++
	m.UpdatedAtMs = time.Now().UnixMilli()
	return s.write(ctx, id, props, m)
}

// Delete removes the record's props and meta. Deleting an absent record
// is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Delete(propsKey(s.ns, id), nil); err != nil {
		return err
	}
	if err := b.Delete(metaKey(s.ns, id), nil); err != nil {
		return err
	}
	return s.db.CommitBatch(ctx, b)
}

// Entry is one record as returned by List.
type Entry struct {
	ID          string
	Props       Props
	Token       Token
	CreatedAtMs int64
	UpdatedAtMs int64
}

type ListOptions struct {
	Limit int // 0 means no limit
}

// List scans the namespace's records in id order. Corrupt documents are
// skipped.
func (s *Store) List(opts ListOptions) ([]Entry, error) {
	prefix := recPrefix(s.ns)
	hi := append(append([]byte{}, prefix...), 0xFF)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	entries := make([]Entry, 0, 16)
	var (
		curID    string
		curMeta  recMeta
		haveMeta bool
	)
	// Per id the meta key sorts before the props key, so one forward scan
	// pairs them up.
	for ok := iter.First(); ok; ok = iter.Next() {
		rest := iter.Key()[len(prefix):]
		i := bytes.IndexByte(rest, sepByte)
		if i <= 0 {
			continue
		}
		id := string(rest[:i])
		switch string(rest[i:]) {
		case "/meta":
			var m recMeta
			if json.Unmarshal(iter.Value(), &m) == nil {
				curID, curMeta, haveMeta = id, m, true
			}
		case "/props":
			if !haveMeta || curID != id {
				continue
			}
			var p Props
			if err := json.Unmarshal(iter.Value(), &p); err != nil {
				haveMeta = false
				continue
			}
			entries = append(entries, Entry{
				ID:          id,
				Props:       p,
				Token:       tokenFromRev(curMeta.Rev),
				CreatedAtMs: curMeta.CreatedAtMs,
				UpdatedAtMs: curMeta.UpdatedAtMs,
			})
			haveMeta = false
			if opts.Limit > 0 && len(entries) >= opts.Limit {
				return entries, nil
			}
		}
	}
	return entries, nil
}

const sepByte = byte('/')

func (s *Store) readMeta(id string) (recMeta, error) {
	raw, err := s.db.Get(metaKey(s.ns, id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return recMeta{}, ErrNotFound
		}
		return recMeta{}, err
	}
	var m recMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return recMeta{}, fmt.Errorf("decode record meta %s: %w", id, err)
	}
	return m, nil
}

func (s *Store) write(ctx context.Context, id string, props Props, m recMeta) (Token, error) {
	pv, err := json.Marshal(props)
	if err != nil {
		return Token{}, fmt.Errorf("encode record %s: %w", id, err)
	}
	mv, err := json.Marshal(m)
	if err != nil {
		return Token{}, fmt.Errorf("encode record meta %s: %w", id, err)
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(propsKey(s.ns, id), pv, nil); err != nil {
		return Token{}, err
	}
	if err := b.Set(metaKey(s.ns, id), mv, nil); err != nil {
		return Token{}, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return Token{}, err
	}
	return tokenFromRev(m.Rev), nil
}
