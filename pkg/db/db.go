// Package db provides the persistence layer used by the application. It
// wraps a SQLite database and exposes helper methods for mirroring likes,
// listening history and playlists per user. Callers are expected to open a
// single DB instance using New and reuse it for all operations.
//
// The Store interface is the boundary the rest of the application depends
// on: when no database is configured a Nop implementation stands in, so
// playback never observes persistence failures or missing configuration.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"hungify/pkg/music"
)

// Playlist describes a user-created playlist.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ArtistCount represents how many times an artist was played.
type ArtistCount struct {
	Artist string `json:"artist"`
	Count  int    `json:"count"`
}

// TrackCount represents how many times a specific track was played.
type TrackCount struct {
	TrackID string `json:"trackId"`
	Count   int    `json:"count"`
}

// Store is the persistence capability the handlers depend on. All
// operations are scoped to a user id; failures must never block playback,
// so callers log errors and continue.
type Store interface {
	AddLike(ctx context.Context, userID string, t music.Track) error
	RemoveLike(ctx context.Context, userID, trackID string) error
	ListLikes(ctx context.Context, userID string) ([]music.Track, error)

	AddHistory(ctx context.Context, userID string, t music.Track, playedAt time.Time) error
	ListHistory(ctx context.Context, userID string, limit int) ([]music.Track, error)
	ClearHistory(ctx context.Context, userID string) error

	CreatePlaylist(ctx context.Context, userID, name, description string) (string, error)
	ListPlaylists(ctx context.Context, userID string) ([]Playlist, error)
	AddPlaylistTrack(ctx context.Context, userID, playlistID string, t music.Track) error
	RemovePlaylistTrack(ctx context.Context, userID, playlistID, trackID string) error
	ListPlaylistTracks(ctx context.Context, userID, playlistID string) ([]music.Track, error)

	TopArtistsSince(ctx context.Context, userID string, since time.Time) ([]ArtistCount, error)
	TopTracksSince(ctx context.Context, userID string, since time.Time) ([]TrackCount, error)
}

// ErrNotOwner is returned when a user attempts to modify a playlist that
// belongs to someone else.
var ErrNotOwner = fmt.Errorf("db: not playlist owner")

// DB wraps a sql.DB connection and implements Store on SQLite.
type DB struct {
	*sql.DB
}

var _ Store = (*DB)(nil)

// New opens the SQLite database located at path. If the file does not exist
// it is created along with the required schema. The returned DB value wraps
// the sql.DB connection for use by the rest of the application.
func New(path string) (*DB, error) {
	d, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS likes (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id TEXT, track_id TEXT, title TEXT, artist TEXT, thumbnail_url TEXT, duration INTEGER)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_likes_user_track ON likes(user_id, track_id)`,
		`CREATE TABLE IF NOT EXISTS history (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id TEXT, track_id TEXT, title TEXT, artist TEXT, thumbnail_url TEXT, duration INTEGER, played_at TIMESTAMP)`,
		`CREATE INDEX IF NOT EXISTS idx_history_user_time ON history(user_id, played_at)`,
		`CREATE TABLE IF NOT EXISTS playlists (id TEXT PRIMARY KEY, user_id TEXT, name TEXT, description TEXT, created_at TIMESTAMP)`,
		`CREATE TABLE IF NOT EXISTS playlist_tracks (playlist_id TEXT, track_id TEXT, title TEXT, artist TEXT, thumbnail_url TEXT, duration INTEGER, added_at TIMESTAMP)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_playlist_track ON playlist_tracks(playlist_id, track_id)`,
	}
	// Errors here likely mean the database file is not writable.
	for _, s := range stmts {
		if _, err := d.Exec(s); err != nil {
			d.Close()
			return nil, fmt.Errorf("init db: %w", err)
		}
	}
	return &DB{d}, nil
}

// AddLike inserts a track into the likes table for userID. Duplicate
// entries for the same user and track are ignored so likes remain unique.
func (db *DB) AddLike(ctx context.Context, userID string, t music.Track) error {
	_, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO likes(user_id, track_id, title, artist, thumbnail_url, duration) VALUES(?, ?, ?, ?, ?, ?)`,
		userID, t.ID, t.Title, t.Artist, t.ThumbnailURL, t.Duration)
	return err
}

// RemoveLike deletes a track from the user's likes. sql.ErrNoRows is
// returned when the like does not exist, which allows callers to respond
// with a 404.
func (db *DB) RemoveLike(ctx context.Context, userID, trackID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM likes WHERE user_id=? AND track_id=?`, userID, trackID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListLikes retrieves all liked tracks for the provided userID. Results are
// returned in reverse insertion order so the most recently liked tracks
// appear first.
func (db *DB) ListLikes(ctx context.Context, userID string) ([]music.Track, error) {
	rows, err := db.QueryContext(ctx, `SELECT track_id, title, artist, thumbnail_url, duration FROM likes WHERE user_id=? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return scanTracks(rows)
}

// AddHistory inserts a listening event for the given user. playedAt should
// be the time the track was played.
func (db *DB) AddHistory(ctx context.Context, userID string, t music.Track, playedAt time.Time) error {
	_, err := db.ExecContext(ctx, `INSERT INTO history(user_id, track_id, title, artist, thumbnail_url, duration, played_at) VALUES(?,?,?,?,?,?,?)`,
		userID, t.ID, t.Title, t.Artist, t.ThumbnailURL, t.Duration, playedAt)
	return err
}

// ListHistory returns the user's most recent listening events, newest
// first. limit caps the result; values below one default to 100.
func (db *DB) ListHistory(ctx context.Context, userID string, limit int) ([]music.Track, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `SELECT track_id, title, artist, thumbnail_url, duration FROM history WHERE user_id=? ORDER BY played_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanTracks(rows)
}

// ClearHistory removes every listening event stored for the user.
func (db *DB) ClearHistory(ctx context.Context, userID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM history WHERE user_id=?`, userID)
	return err
}

// CreatePlaylist inserts a new playlist owned by the specified user and
// returns its id.
func (db *DB) CreatePlaylist(ctx context.Context, userID, name, description string) (string, error) {
	id := fmt.Sprintf("p_%d", time.Now().UnixNano())
	_, err := db.ExecContext(ctx, `INSERT INTO playlists(id, user_id, name, description, created_at) VALUES(?,?,?,?,?)`,
		id, userID, name, description, time.Now())
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListPlaylists returns the playlists owned by the user.
func (db *DB) ListPlaylists(ctx context.Context, userID string) ([]Playlist, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, description, created_at FROM playlists WHERE user_id=? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// playlistOwner returns the owner of playlistID, or sql.ErrNoRows when the
// playlist does not exist.
func (db *DB) playlistOwner(ctx context.Context, playlistID string) (string, error) {
	var owner string
	err := db.QueryRowContext(ctx, `SELECT user_id FROM playlists WHERE id=?`, playlistID).Scan(&owner)
	return owner, err
}

// AddPlaylistTrack saves a track in the playlist after verifying ownership.
// Duplicate tracks within a playlist are ignored.
func (db *DB) AddPlaylistTrack(ctx context.Context, userID, playlistID string, t music.Track) error {
	owner, err := db.playlistOwner(ctx, playlistID)
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrNotOwner
	}
	_, err = db.ExecContext(ctx, `INSERT OR IGNORE INTO playlist_tracks(playlist_id, track_id, title, artist, thumbnail_url, duration, added_at) VALUES(?,?,?,?,?,?,?)`,
		playlistID, t.ID, t.Title, t.Artist, t.ThumbnailURL, t.Duration, time.Now())
	return err
}

// RemovePlaylistTrack removes a track from the playlist after verifying
// ownership.
func (db *DB) RemovePlaylistTrack(ctx context.Context, userID, playlistID, trackID string) error {
	owner, err := db.playlistOwner(ctx, playlistID)
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrNotOwner
	}
	_, err = db.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id=? AND track_id=?`, playlistID, trackID)
	return err
}

// ListPlaylistTracks returns the tracks stored in the playlist in insertion
// order. Reading requires ownership as playlists are private.
func (db *DB) ListPlaylistTracks(ctx context.Context, userID, playlistID string) ([]music.Track, error) {
	owner, err := db.playlistOwner(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, ErrNotOwner
	}
	rows, err := db.QueryContext(ctx, `SELECT track_id, title, artist, thumbnail_url, duration FROM playlist_tracks WHERE playlist_id=? ORDER BY added_at, rowid`, playlistID)
	if err != nil {
		return nil, err
	}
	return scanTracks(rows)
}

// TopArtistsSince returns the most played artists since the provided time.
func (db *DB) TopArtistsSince(ctx context.Context, userID string, since time.Time) ([]ArtistCount, error) {
	rows, err := db.QueryContext(ctx, `SELECT artist, COUNT(*) c FROM history WHERE user_id=? AND played_at>=? GROUP BY artist ORDER BY c DESC`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ArtistCount
	for rows.Next() {
		var ac ArtistCount
		if err := rows.Scan(&ac.Artist, &ac.Count); err != nil {
			return nil, err
		}
		res = append(res, ac)
	}
	return res, rows.Err()
}

// TopTracksSince returns the most played tracks since the given time.
func (db *DB) TopTracksSince(ctx context.Context, userID string, since time.Time) ([]TrackCount, error) {
	rows, err := db.QueryContext(ctx, `SELECT track_id, COUNT(*) c FROM history WHERE user_id=? AND played_at>=? GROUP BY track_id ORDER BY c DESC`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []TrackCount
	for rows.Next() {
		var tc TrackCount
		if err := rows.Scan(&tc.TrackID, &tc.Count); err != nil {
			return nil, err
		}
		res = append(res, tc)
	}
	return res, rows.Err()
}

// scanTracks drains rows whose columns match the track storage layout.
func scanTracks(rows *sql.Rows) ([]music.Track, error) {
	defer rows.Close()
	var res []music.Track
	for rows.Next() {
		var t music.Track
		if err := rows.Scan(&t.ID, &t.Title, &t.Artist, &t.ThumbnailURL, &t.Duration); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	// rows.Err returns the first error encountered while iterating.
	return res, rows.Err()
}
