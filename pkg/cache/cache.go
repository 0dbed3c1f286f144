// Package cache implements the response cache that shields the search
// gateway from redundant external API calls. Entries are track lists keyed
// by a normalized query string and persisted in SQLite so they survive
// restarts, with a 24 hour expiry. The cache is an optimization, not a
// correctness requirement: every failure path degrades to a miss and is
// never surfaced to callers.
package cache

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"hungify/pkg/metrics"
	"hungify/pkg/music"
)

// TTL is how long a cached response stays valid.
const TTL = 24 * time.Hour

// Store is a sqlite-backed key to track-list cache. The zero value is not
// usable; construct one with New.
type Store struct {
	db *sql.DB
	// now is replaceable in tests to simulate expiry.
	now func() time.Time
}

// New prepares the cache table on the given database and returns a Store.
// The table lives alongside the application's other tables; ClearAll only
// ever touches this table.
func New(db *sql.DB) (*Store, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS response_cache (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		stored_at INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// QueryKey returns the cache key for a text search.
func QueryKey(q string) string {
	return "search_" + strings.ToLower(strings.TrimSpace(q))
}

// RelatedKey returns the cache key for a related-videos lookup.
func RelatedKey(seedID string) string {
	return "related_" + seedID
}

// ArtistKey returns the cache key for an artist popular-tracks lookup.
func ArtistKey(name string) string {
	return "artist_" + strings.ToLower(strings.TrimSpace(name))
}

// Get returns the cached track list for key. The second return value is
// false when no entry exists, the entry has expired, or the stored payload
// cannot be decoded. Expired entries are purged as a side effect.
func (s *Store) Get(key string) ([]music.Track, bool) {
	var payload string
	var storedAt int64
	err := s.db.QueryRow(`SELECT payload, stored_at FROM response_cache WHERE key=?`, key).
		Scan(&payload, &storedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Debug("cache read")
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}
	if s.now().Unix()-storedAt > int64(TTL/time.Second) {
		if _, err := s.db.Exec(`DELETE FROM response_cache WHERE key=?`, key); err != nil {
			log.WithError(err).Debug("cache purge expired")
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}
	var tracks []music.Track
	if err := json.Unmarshal([]byte(payload), &tracks); err != nil {
		log.WithError(err).WithField("key", key).Warn("cache payload corrupt")
		metrics.CacheMisses.Inc()
		return nil, false
	}
	metrics.CacheHits.Inc()
	return tracks, true
}

// Set stores tracks under key with a fresh timestamp, replacing any
// existing entry. When the write fails a best-effort sweep of expired
// entries is attempted before giving up silently.
func (s *Store) Set(key string, tracks []music.Track) {
	payload, err := json.Marshal(tracks)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("cache encode")
		return
	}
	_, err = s.db.Exec(`INSERT INTO response_cache(key, payload, stored_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, stored_at=excluded.stored_at`,
		key, string(payload), s.now().Unix())
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("cache write")
		s.sweepExpired()
	}
}

// ClearAll removes every cached response. Exposed to the user as a recovery
// action when the external API quota is exhausted.
func (s *Store) ClearAll() error {
	_, err := s.db.Exec(`DELETE FROM response_cache`)
	return err
}

// sweepExpired deletes all entries past the TTL.
func (s *Store) sweepExpired() {
	cutoff := s.now().Add(-TTL).Unix()
	if _, err := s.db.Exec(`DELETE FROM response_cache WHERE stored_at < ?`, cutoff); err != nil {
		log.WithError(err).Debug("cache sweep")
	}
}
