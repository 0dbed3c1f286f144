// Package handlers contains the HTTP handlers that make up the hungify
// JSON API: track search and discovery, playback control, per-user likes,
// history and playlists, and the cache maintenance endpoint. Handlers hold
// their dependencies through the Application struct so tests can substitute
// fakes for the search service, the playback store and the database.
package handlers

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"hungify/pkg/cache"
	"hungify/pkg/db"
	"hungify/pkg/music"
	"hungify/pkg/player"
)

// quotaHint is the actionable guidance returned alongside a quota error.
// Distinct from generic failures so the frontend can present a recovery
// path instead of a plain error message.
const quotaHint = "The daily search API quota is exhausted. Previously searched tracks still load from cache; wait for the daily reset or request a quota increase."

// Application bundles the dependencies used by the HTTP handlers.
type Application struct {
	Music       music.Service
	Player      *player.Store
	Cache       *cache.Store
	DB          db.Store
	SignKey     []byte
	GoogleOAuth *oauth2.Config
}

// SearchJSON returns tracks matching the q query parameter.
func (app *Application) SearchJSON(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		respondJSONError(w, http.StatusBadRequest, "q is required")
		return
	}
	tracks, err := app.Music.SearchTracks(r.Context(), q)
	if err != nil {
		app.serviceError(w, err, "search")
		return
	}
	respondJSON(w, http.StatusOK, tracksOrEmpty(tracks))
}

// RelatedJSON returns tracks related to the seed id query parameter.
func (app *Application) RelatedJSON(w http.ResponseWriter, r *http.Request) {
	seed := r.URL.Query().Get("id")
	if seed == "" {
		respondJSONError(w, http.StatusBadRequest, "id is required")
		return
	}
	tracks, err := app.Music.RelatedTracks(r.Context(), seed)
	if err != nil {
		app.serviceError(w, err, "related")
		return
	}
	respondJSON(w, http.StatusOK, tracksOrEmpty(tracks))
}

// ArtistJSON returns an artist's popular tracks.
func (app *Application) ArtistJSON(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	tracks, err := app.Music.ArtistTracks(r.Context(), name)
	if err != nil {
		app.serviceError(w, err, "artist")
		return
	}
	respondJSON(w, http.StatusOK, tracksOrEmpty(tracks))
}

// ClearCacheJSON removes every cached search response. The frontend offers
// this as a recovery action when the quota is exhausted.
func (app *Application) ClearCacheJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		respondJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if app.Cache == nil {
		respondJSONError(w, http.StatusInternalServerError, "cache not configured")
		return
	}
	if err := app.Cache.ClearAll(); err != nil {
		log.WithError(err).Error("clear cache")
		respondJSONError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// serviceError translates a search gateway failure into an HTTP response.
// Quota exhaustion gets a distinct category and guidance; configuration
// problems are server errors; everything else surfaces the upstream
// message as a bad gateway.
func (app *Application) serviceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, music.ErrNoCredentials):
		log.WithField("op", op).Error("search service not configured")
		respondJSONError(w, http.StatusInternalServerError, "search service not configured")
	case music.IsQuota(err):
		log.WithError(err).WithField("op", op).Warn("quota exceeded")
		respondJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":    err.Error(),
			"category": "quota",
			"hint":     quotaHint,
		})
	default:
		log.WithError(err).WithField("op", op).Error("search failed")
		respondJSONError(w, http.StatusBadGateway, err.Error())
	}
}

// tracksOrEmpty keeps empty results rendering as [] rather than null.
func tracksOrEmpty(tracks []music.Track) []music.Track {
	if tracks == nil {
		return []music.Track{}
	}
	return tracks
}
