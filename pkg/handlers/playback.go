// This file contains the playback control endpoints. They are thin
// adapters between HTTP and the player.Store transitions: decode the
// request, run the transition, return the resulting snapshot. Transitions
// never fail, so every endpoint answers 200 with the new state.
package handlers

import (
	"net/http"

	"hungify/pkg/music"
)

// PlayJSON makes the posted track the current track, displacing whatever
// was playing into history and clearing the queue.
func (app *Application) PlayJSON(w http.ResponseWriter, r *http.Request) {
	var track music.Track
	if err := decodeJSON(r, &track); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if track.ID == "" {
		respondJSONError(w, http.StatusBadRequest, "id is required")
		return
	}
	app.Player.Assign(track)
	respondJSON(w, http.StatusOK, app.Player.Snapshot())
}

// EnqueueJSON appends the posted track to the queue.
func (app *Application) EnqueueJSON(w http.ResponseWriter, r *http.Request) {
	var track music.Track
	if err := decodeJSON(r, &track); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if track.ID == "" {
		respondJSONError(w, http.StatusBadRequest, "id is required")
		return
	}
	app.Player.Enqueue(track)
	respondJSON(w, http.StatusOK, app.Player.Snapshot())
}

// NextJSON advances playback, refilling the queue from recommendations
// when it is empty. When nothing can be recommended the state comes back
// unchanged and the track simply stops advancing.
func (app *Application) NextJSON(w http.ResponseWriter, r *http.Request) {
	app.Player.Advance(r.Context())
	respondJSON(w, http.StatusOK, app.Player.Snapshot())
}

// PreviousJSON moves playback backward. The client reports the current
// transport position so a track played for more than a few seconds is
// restarted rather than skipped back; the response carries a seekTo field
// when the client should reposition its embedded player.
func (app *Application) PreviousJSON(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position float64 `json:"position"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	seeked := false
	app.Player.Retreat(req.Position, func(float64) { seeked = true })
	respondJSON(w, http.StatusOK, struct {
		State  interface{} `json:"state"`
		SeekTo *float64    `json:"seekTo,omitempty"`
	}{
		State:  app.Player.Snapshot(),
		SeekTo: seekZero(seeked),
	})
}

// StateJSON returns the current playback snapshot.
func (app *Application) StateJSON(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, app.Player.Snapshot())
}

// ToggleJSON flips play/pause and returns the new state.
func (app *Application) ToggleJSON(w http.ResponseWriter, r *http.Request) {
	app.Player.TogglePlay()
	respondJSON(w, http.StatusOK, app.Player.Snapshot())
}

// VolumeJSON sets the playback volume, clamped to [0,1].
func (app *Application) VolumeJSON(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume float64 `json:"volume"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	app.Player.SetVolume(req.Volume)
	respondJSON(w, http.StatusOK, app.Player.Snapshot())
}

// ProgressJSON records the transport position reported by the embedded
// player so the snapshot stays truthful between transitions.
func (app *Application) ProgressJSON(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentTime float64 `json:"currentTime"`
		Duration    float64 `json:"duration"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	app.Player.SetProgress(req.CurrentTime, req.Duration)
	w.WriteHeader(http.StatusNoContent)
}

// seekZero returns a pointer to zero when the player asked the client to
// seek, nil otherwise.
func seekZero(seeked bool) *float64 {
	if !seeked {
		return nil
	}
	zero := 0.0
	return &zero
}
