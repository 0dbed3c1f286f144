package cache

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"hungify/pkg/music"
)

// newTestStore returns a Store over an in-memory database with a
// controllable clock.
func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	d, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	s, err := New(d)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	s.now = func() time.Time { return now }
	return s, &now
}

// TestRoundTrip verifies that a set is immediately readable.
func TestRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	tracks := []music.Track{{ID: "a", Title: "Song", Artist: "Artist", Duration: 200}}
	s.Set(QueryKey("Some Query"), tracks)
	got, ok := s.Get(QueryKey("some query "))
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 || got[0].ID != "a" || got[0].Duration != 200 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

// TestExpiry verifies entries older than the TTL read as absent and are
// purged.
func TestExpiry(t *testing.T) {
	s, now := newTestStore(t)
	s.Set("k", []music.Track{{ID: "a"}})
	*now = now.Add(TTL + time.Second)
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
	// The expired row must be gone even if the clock moves back.
	*now = now.Add(-2 * TTL)
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected purged entry to stay gone")
	}
}

// TestOverwrite verifies Set replaces an existing entry with a fresh
// timestamp.
func TestOverwrite(t *testing.T) {
	s, now := newTestStore(t)
	s.Set("k", []music.Track{{ID: "old"}})
	*now = now.Add(23 * time.Hour)
	s.Set("k", []music.Track{{ID: "new"}})
	*now = now.Add(2 * time.Hour) // old entry would be expired by now
	got, ok := s.Get("k")
	if !ok || len(got) != 1 || got[0].ID != "new" {
		t.Fatalf("expected refreshed entry, got %v %v", got, ok)
	}
}

// TestCorruptPayload verifies undecodable rows read as misses.
func TestCorruptPayload(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.db.Exec(`INSERT INTO response_cache(key, payload, stored_at) VALUES('k', 'not json', ?)`, time.Now().Unix()); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected corrupt entry to miss")
	}
}

// TestClearAll verifies every entry is removed.
func TestClearAll(t *testing.T) {
	s, _ := newTestStore(t)
	s.Set("a", []music.Track{{ID: "1"}})
	s.Set("b", []music.Track{{ID: "2"}})
	if err := s.ClearAll(); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("a"); ok {
		t.Fatal("expected a to be cleared")
	}
	if _, ok := s.Get("b"); ok {
		t.Fatal("expected b to be cleared")
	}
}

// TestKeys verifies key normalization.
func TestKeys(t *testing.T) {
	if QueryKey("  Hello World ") != "search_hello world" {
		t.Errorf("unexpected query key %q", QueryKey("  Hello World "))
	}
	if RelatedKey("AbC123") != "related_AbC123" {
		t.Errorf("unexpected related key %q", RelatedKey("AbC123"))
	}
	if ArtistKey(" Daft Punk") != "artist_daft punk" {
		t.Errorf("unexpected artist key %q", ArtistKey(" Daft Punk"))
	}
}
