// This file groups the endpoints that manage a user's liked tracks. Likes
// are mirrored to the database for the signed-in user; persistence
// failures answer with an error but never touch playback state.
package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"hungify/pkg/music"
)

// LikesJSON dispatches on method: GET lists likes, POST adds one, DELETE
// removes one by id.
func (app *Application) LikesJSON(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		app.listLikes(w, r)
	case http.MethodPost:
		app.addLike(w, r)
	case http.MethodDelete:
		app.removeLike(w, r)
	default:
		respondJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (app *Application) listLikes(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.requireUser(w, r)
	if !ok {
		return
	}
	likes, err := app.DB.ListLikes(r.Context(), userID)
	if err != nil {
		log.WithError(err).Error("list likes")
		respondJSONError(w, http.StatusInternalServerError, "failed to load likes")
		return
	}
	respondJSON(w, http.StatusOK, tracksOrEmpty(likes))
}

func (app *Application) addLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.requireUser(w, r)
	if !ok {
		return
	}
	var track music.Track
	if err := decodeJSON(r, &track); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if track.ID == "" || track.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "id and title are required")
		return
	}
	if err := app.DB.AddLike(r.Context(), userID, track); err != nil {
		log.WithError(err).Error("add like")
		respondJSONError(w, http.StatusInternalServerError, "failed to save like")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (app *Application) removeLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.requireUser(w, r)
	if !ok {
		return
	}
	trackID := r.URL.Query().Get("id")
	if trackID == "" {
		respondJSONError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := app.DB.RemoveLike(r.Context(), userID, trackID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "like not found")
			return
		}
		log.WithError(err).Error("remove like")
		respondJSONError(w, http.StatusInternalServerError, "failed to remove like")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
