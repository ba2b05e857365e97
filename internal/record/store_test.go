package record

import (
	"context"
	"errors"
	"testing"

	pebblestore "github.com/rzbill/cleave/internal/storage/pebble"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return OpenStore(db, "default")
}

func TestCreateGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := Props{Text: "hello world, this is long enough"}
	tok, err := s.Create(ctx, "rec-1", in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tok == (Token{}) {
		t.Fatalf("create returned zero token")
	}

	got, gtok, err := s.Get("rec-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Text != in.Text || len(got.Segments) != 0 || got.SplitCount != 0 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if gtok != tok {
		t.Fatalf("get token %s != create token %s", gtok, tok)
	}
}

func TestCreateExists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "dup", Props{Text: "a"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, "dup", Props{Text: "b"}); !errors.Is(err, ErrExists) {
		t.Fatalf("second create err = %v, want ErrExists", err)
	}
	got, _, err := s.Get("dup")
	if err != nil || got.Text != "a" {
		t.Fatalf("original overwritten: %+v, %v", got, err)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing err = %v, want ErrNotFound", err)
	}
	if _, err := s.Version("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("version missing err = %v, want ErrNotFound", err)
	}
}

func TestUpdateFreshToken(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tok, err := s.Create(ctx, "r", Props{Text: "0123456789abcdef"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	next := Props{Segments: []string{"01234567", "89abcdef"}, SplitCount: 1, LastSplitDepth: 0}
	tok2, err := s.Update(ctx, "r", tok, next)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if tok2 == tok {
		t.Fatalf("update did not advance the token")
	}

	got, gtok, err := s.Get("r")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if gtok != tok2 {
		t.Fatalf("get token %s != update token %s", gtok, tok2)
	}
	if got.SplitCount != 1 || len(got.Segments) != 2 {
		t.Fatalf("props not replaced: %+v", got)
	}
	if got.Text != "" {
		t.Fatalf("old text survived full replacement: %q", got.Text)
	}
}

func TestUpdateStaleTokenConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stale, err := s.Create(ctx, "r", Props{Text: "first"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Update(ctx, "r", stale, Props{Text: "second"}); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// The create-time token is now one revision behind.
	if _, err := s.Update(ctx, "r", stale, Props{Text: "third"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale update err = %v, want ErrConflict", err)
	}
	got, _, err := s.Get("r")
	if err != nil || got.Text != "second" {
		t.Fatalf("conflict mutated state: %+v, %v", got, err)
	}
}

func TestVersionTracksUpdates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tok, err := s.Create(ctx, "r", Props{Text: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	v1, err := s.Version("r")
	if err != nil || v1 != tok {
		t.Fatalf("version after create: %s vs %s (%v)", v1, tok, err)
	}
	tok2, err := s.Update(ctx, "r", v1, Props{Text: "y"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	v2, err := s.Version("r")
	if err != nil || v2 != tok2 {
		t.Fatalf("version after update: %s vs %s (%v)", v2, tok2, err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "gone", Props{Text: "x"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, "gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := s.Get("gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "gone"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestListOrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		if _, err := s.Create(ctx, id, Props{Text: id}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	all, err := s.List(ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "alpha" || all[1].ID != "bravo" || all[2].ID != "charlie" {
		t.Fatalf("unexpected order: %+v", all)
	}
	for _, e := range all {
		if e.Props.Text != e.ID {
			t.Errorf("entry %s carries wrong props: %+v", e.ID, e.Props)
		}
		if e.CreatedAtMs == 0 || e.UpdatedAtMs == 0 {
			t.Errorf("entry %s missing timestamps", e.ID)
		}
	}

	two, err := s.List(ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("list limit: %v", err)
	}
	if len(two) != 2 || two[0].ID != "alpha" || two[1].ID != "bravo" {
		t.Fatalf("unexpected limited list: %+v", two)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	a := OpenStore(db, "team-a")
	b := OpenStore(db, "team-b")
	if _, err := a.Create(ctx, "shared-id", Props{Text: "a"}); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if _, _, err := b.Get("shared-id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("record leaked across namespaces: %v", err)
	}
	if _, err := b.Create(ctx, "shared-id", Props{Text: "b"}); err != nil {
		t.Fatalf("create b: %v", err)
	}
	got, _, err := a.Get("shared-id")
	if err != nil || got.Text != "a" {
		t.Fatalf("namespace a clobbered: %+v, %v", got, err)
	}
}

func TestValidateID(t *testing.T) {
	cases := []struct {
		id      string
		wantErr bool
	}{
		{id: "ok-id_1"},
		{id: "550e8400-e29b-41d4-a716-446655440000"},
		{id: "", wantErr: true},
		{id: "a/b", wantErr: true},
	}
	for _, c := range cases {
		err := ValidateID(c.id)
		if (err != nil) != c.wantErr {
			t.Fatalf("ValidateID(%q) err = %v, wantErr %v", c.id, err, c.wantErr)
		}
	}
}

func TestTokenTransport(t *testing.T) {
	tok := tokenFromRev(42)
	parsed, err := ParseToken(tok.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != tok {
		t.Fatalf("parsed %s != original %s", parsed, tok)
	}
	if _, err := ParseToken("zzzz"); err == nil {
		t.Fatalf("expected error for non-hex token")
	}
	if _, err := ParseToken("abcd"); err == nil {
		t.Fatalf("expected error for short token")
	}
}
