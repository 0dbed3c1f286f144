// Package music defines the data structures and interfaces shared by the
// rest of the application. The Track type is the single currency passed
// between the search gateway, the playback store and the persistence layer,
// so handlers and storage code never depend on a concrete provider client.
package music

import "context"

// Track represents a playable track addressed by the external platform's
// video id. Two tracks are considered the same track when their IDs match;
// titles and artist names are display metadata only.
type Track struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	ThumbnailURL string `json:"thumbnailUrl"`
	// Duration is the track length in seconds. Zero means the duration
	// could not be resolved.
	Duration int `json:"duration"`
}

// Service exposes the search and discovery capabilities the application
// needs from the external platform. The context is used for request
// cancellation and timeout propagation on every call.
type Service interface {
	// SearchTracks returns tracks matching the query string, filtered to
	// playable music-length results.
	SearchTracks(ctx context.Context, query string) ([]Track, error)

	// RelatedTracks returns tracks related to the given seed video id. The
	// seed itself is never included in the results.
	RelatedTracks(ctx context.Context, seedID string) ([]Track, error)

	// ArtistTracks returns an artist's popular tracks ordered by view
	// count. Very short clips are excluded.
	ArtistTracks(ctx context.Context, artist string) ([]Track, error)
}

// DedupeByID returns tracks with duplicate IDs removed, keeping the first
// occurrence of each id and preserving order.
func DedupeByID(tracks []Track) []Track {
	seen := make(map[string]struct{}, len(tracks))
	out := tracks[:0:0]
	for _, t := range tracks {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
