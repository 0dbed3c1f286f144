// This file contains the playlist endpoints. Playlists are private to
// their owner; the storage layer enforces ownership and the handlers
// translate its verdicts to HTTP statuses.
package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"hungify/pkg/db"
	"hungify/pkg/music"
)

// PlaylistsJSON dispatches on method: GET lists the user's playlists, POST
// creates one.
func (app *Application) PlaylistsJSON(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		app.listPlaylists(w, r)
	case http.MethodPost:
		app.createPlaylist(w, r)
	default:
		respondJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (app *Application) listPlaylists(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.requireUser(w, r)
	if !ok {
		return
	}
	lists, err := app.DB.ListPlaylists(r.Context(), userID)
	if err != nil {
		log.WithError(err).Error("list playlists")
		respondJSONError(w, http.StatusInternalServerError, "failed to load playlists")
		return
	}
	if lists == nil {
		lists = []db.Playlist{}
	}
	respondJSON(w, http.StatusOK, lists)
}

func (app *Application) createPlaylist(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	id, err := app.DB.CreatePlaylist(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		log.WithError(err).Error("create playlist")
		respondJSONError(w, http.StatusInternalServerError, "failed to create playlist")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// PlaylistTracksJSON handles `/api/playlists/{id}/tracks`: GET lists the
// playlist's tracks, POST adds one, DELETE removes one by id.
func (app *Application) PlaylistTracksJSON(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.requireUser(w, r)
	if !ok {
		return
	}
	playlistID := playlistIDFromPath(r.URL.Path)
	if playlistID == "" {
		respondJSONError(w, http.StatusBadRequest, "playlist id is required")
		return
	}
	switch r.Method {
	case http.MethodGet:
		tracks, err := app.DB.ListPlaylistTracks(r.Context(), userID, playlistID)
		if err != nil {
			app.playlistError(w, err, "list playlist tracks")
			return
		}
		respondJSON(w, http.StatusOK, tracksOrEmpty(tracks))
	case http.MethodPost:
		var track music.Track
		if err := decodeJSON(r, &track); err != nil {
			respondJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if track.ID == "" {
			respondJSONError(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := app.DB.AddPlaylistTrack(r.Context(), userID, playlistID, track); err != nil {
			app.playlistError(w, err, "add playlist track")
			return
		}
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		trackID := r.URL.Query().Get("id")
		if trackID == "" {
			respondJSONError(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := app.DB.RemovePlaylistTrack(r.Context(), userID, playlistID, trackID); err != nil {
			app.playlistError(w, err, "remove playlist track")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		respondJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// playlistError maps storage errors for playlist operations: missing
// playlists are 404, foreign playlists are 403, the rest are 500.
func (app *Application) playlistError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		respondJSONError(w, http.StatusNotFound, "playlist not found")
	case errors.Is(err, db.ErrNotOwner):
		respondJSONError(w, http.StatusForbidden, "not your playlist")
	default:
		log.WithError(err).Error(op)
		respondJSONError(w, http.StatusInternalServerError, "playlist operation failed")
	}
}

// playlistIDFromPath extracts {id} from `/api/playlists/{id}/tracks`.
func playlistIDFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/api/playlists/")
	id, _, found := strings.Cut(rest, "/")
	if !found {
		return ""
	}
	return id
}
