// This file contains the listening-history endpoints and the insight
// summaries computed from them. History rows are written both by the
// playback store's history subscriber and by explicit client requests, so
// the remote list survives reloads the way the in-memory one cannot.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"hungify/pkg/music"
)

// HistoryJSON dispatches on method: GET lists recent history, POST records
// a play, DELETE clears everything.
func (app *Application) HistoryJSON(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		app.listHistory(w, r)
	case http.MethodPost:
		app.addHistory(w, r)
	case http.MethodDelete:
		app.clearHistory(w, r)
	default:
		respondJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (app *Application) listHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.requireUser(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := app.DB.ListHistory(r.Context(), userID, limit)
	if err != nil {
		log.WithError(err).Error("list history")
		respondJSONError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	respondJSON(w, http.StatusOK, tracksOrEmpty(items))
}

func (app *Application) addHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.requireUser(w, r)
	if !ok {
		return
	}
	var track music.Track
	if err := decodeJSON(r, &track); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if track.ID == "" {
		respondJSONError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := app.DB.AddHistory(r.Context(), userID, track, time.Now()); err != nil {
		log.WithError(err).Error("add history")
		respondJSONError(w, http.StatusInternalServerError, "failed to save history")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (app *Application) clearHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.requireUser(w, r)
	if !ok {
		return
	}
	if err := app.DB.ClearHistory(r.Context(), userID); err != nil {
		log.WithError(err).Error("clear history")
		respondJSONError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InsightsJSON returns the most played artists for a configurable period
// controlled by the 'days' query parameter, defaulting to the last week.
func (app *Application) InsightsJSON(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.requireUser(w, r)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)
	res, err := app.DB.TopArtistsSince(r.Context(), userID, since)
	if err != nil {
		log.WithError(err).Error("load artist insights")
		respondJSONError(w, http.StatusInternalServerError, "failed to load insights")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// InsightsTracksJSON returns the most played tracks for a configurable
// period controlled by the 'days' query parameter.
func (app *Application) InsightsTracksJSON(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.requireUser(w, r)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)
	res, err := app.DB.TopTracksSince(r.Context(), userID, since)
	if err != nil {
		log.WithError(err).Error("load track insights")
		respondJSONError(w, http.StatusInternalServerError, "failed to load insights")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
