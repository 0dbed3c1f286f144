// This file provides the no-op Store used when no database is configured.
// Reads return empty results and writes are silently discarded, so a
// deployment without persistence behaves like a signed-out session: likes
// and history are ephemeral and playback is unaffected.
package db

import (
	"context"
	"database/sql"
	"time"

	"hungify/pkg/music"
)

// Nop is a Store that persists nothing.
type Nop struct{}

var _ Store = Nop{}

func (Nop) AddLike(context.Context, string, music.Track) error { return nil }
func (Nop) RemoveLike(context.Context, string, string) error   { return sql.ErrNoRows }
func (Nop) ListLikes(context.Context, string) ([]music.Track, error) {
	return nil, nil
}

func (Nop) AddHistory(context.Context, string, music.Track, time.Time) error { return nil }
func (Nop) ListHistory(context.Context, string, int) ([]music.Track, error) {
	return nil, nil
}
func (Nop) ClearHistory(context.Context, string) error { return nil }

func (Nop) CreatePlaylist(context.Context, string, string, string) (string, error) {
	return "", nil
}
func (Nop) ListPlaylists(context.Context, string) ([]Playlist, error) { return nil, nil }
func (Nop) AddPlaylistTrack(context.Context, string, string, music.Track) error {
	return nil
}
func (Nop) RemovePlaylistTrack(context.Context, string, string, string) error { return nil }
func (Nop) ListPlaylistTracks(context.Context, string, string) ([]music.Track, error) {
	return nil, nil
}

func (Nop) TopArtistsSince(context.Context, string, time.Time) ([]ArtistCount, error) {
	return nil, nil
}
func (Nop) TopTracksSince(context.Context, string, time.Time) ([]TrackCount, error) {
	return nil, nil
}
