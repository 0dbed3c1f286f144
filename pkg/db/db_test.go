package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"hungify/pkg/music"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func track(id string) music.Track {
	return music.Track{ID: id, Title: "Title " + id, Artist: "Artist " + id, Duration: 200}
}

func TestLikes(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	if err := d.AddLike(ctx, "u1", track("a")); err != nil {
		t.Fatal(err)
	}
	if err := d.AddLike(ctx, "u1", track("b")); err != nil {
		t.Fatal(err)
	}
	// Liking the same track twice is a no-op.
	if err := d.AddLike(ctx, "u1", track("a")); err != nil {
		t.Fatal(err)
	}

	likes, err := d.ListLikes(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(likes) != 2 || likes[0].ID != "b" || likes[1].ID != "a" {
		t.Fatalf("expected newest-first [b a], got %+v", likes)
	}

	// Likes are per user.
	other, err := d.ListLikes(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Fatalf("likes leaked across users: %+v", other)
	}

	if err := d.RemoveLike(ctx, "u1", "a"); err != nil {
		t.Fatal(err)
	}
	if err := d.RemoveLike(ctx, "u1", "a"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows removing an absent like, got %v", err)
	}
}

func TestHistory(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := d.AddHistory(ctx, "u1", track(id), base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := d.ListHistory(ctx, "u1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("expected newest-first [c b], got %+v", got)
	}

	// A non-positive limit falls back to the default.
	all, err := d.ListHistory(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}

	if err := d.ClearHistory(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if got, err := d.ListHistory(ctx, "u1", 0); err != nil || len(got) != 0 {
		t.Fatalf("history not cleared: %v %+v", err, got)
	}
}

func TestPlaylists(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	id, err := d.CreatePlaylist(ctx, "u1", "road trip", "long drives")
	if err != nil {
		t.Fatal(err)
	}
	lists, err := d.ListPlaylists(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(lists) != 1 || lists[0].ID != id || lists[0].Name != "road trip" {
		t.Fatalf("unexpected playlists: %+v", lists)
	}

	if err := d.AddPlaylistTrack(ctx, "u1", id, track("a")); err != nil {
		t.Fatal(err)
	}
	if err := d.AddPlaylistTrack(ctx, "u1", id, track("b")); err != nil {
		t.Fatal(err)
	}
	// Duplicates are ignored.
	if err := d.AddPlaylistTrack(ctx, "u1", id, track("a")); err != nil {
		t.Fatal(err)
	}

	tracks, err := d.ListPlaylistTracks(ctx, "u1", id)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 2 || tracks[0].ID != "a" || tracks[1].ID != "b" {
		t.Fatalf("expected insertion order [a b], got %+v", tracks)
	}

	if err := d.RemovePlaylistTrack(ctx, "u1", id, "a"); err != nil {
		t.Fatal(err)
	}
	tracks, err = d.ListPlaylistTracks(ctx, "u1", id)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 1 || tracks[0].ID != "b" {
		t.Fatalf("expected [b], got %+v", tracks)
	}
}

func TestPlaylistOwnership(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	id, err := d.CreatePlaylist(ctx, "u1", "mine", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := d.AddPlaylistTrack(ctx, "u2", id, track("a")); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := d.RemovePlaylistTrack(ctx, "u2", id, "a"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := d.ListPlaylistTracks(ctx, "u2", id); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	// An unknown playlist reports sql.ErrNoRows so handlers can 404.
	if err := d.AddPlaylistTrack(ctx, "u1", "p_missing", track("a")); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestInsights(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	plays := []struct {
		id, artist string
		at         time.Time
	}{
		{"a", "Nova", base},
		{"a", "Nova", base.Add(time.Hour)},
		{"b", "Nova", base.Add(2 * time.Hour)},
		{"c", "Echo", base.Add(3 * time.Hour)},
		{"old", "Echo", base.Add(-48 * time.Hour)},
	}
	for _, p := range plays {
		tr := music.Track{ID: p.id, Title: "Title " + p.id, Artist: p.artist}
		if err := d.AddHistory(ctx, "u1", tr, p.at); err != nil {
			t.Fatal(err)
		}
	}

	artists, err := d.TopArtistsSince(ctx, "u1", base.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(artists) != 2 || artists[0].Artist != "Nova" || artists[0].Count != 3 {
		t.Fatalf("unexpected artist counts: %+v", artists)
	}
	if artists[1].Artist != "Echo" || artists[1].Count != 1 {
		t.Fatalf("unexpected artist counts: %+v", artists)
	}

	tracks, err := d.TopTracksSince(ctx, "u1", base.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 3 || tracks[0].TrackID != "a" || tracks[0].Count != 2 {
		t.Fatalf("unexpected track counts: %+v", tracks)
	}
}

func TestNopStore(t *testing.T) {
	var n Nop
	ctx := context.Background()

	if err := n.AddLike(ctx, "u", track("a")); err != nil {
		t.Fatal(err)
	}
	if got, err := n.ListLikes(ctx, "u"); err != nil || got != nil {
		t.Fatalf("expected empty likes, got %v %v", got, err)
	}
	if err := n.RemoveLike(ctx, "u", "a"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
	if err := n.AddHistory(ctx, "u", track("a"), time.Now()); err != nil {
		t.Fatal(err)
	}
	if got, err := n.ListHistory(ctx, "u", 10); err != nil || got != nil {
		t.Fatalf("expected empty history, got %v %v", got, err)
	}
}
