// Command web initializes the hungify application and starts the HTTP
// server. Configuration is provided via environment variables for the
// YouTube API credential, database location and session signing key. The
// server serves a JSON API for search, playback control and per-user
// state, plus Prometheus metrics.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"hungify/pkg/cache"
	"hungify/pkg/db"
	"hungify/pkg/handlers"
	"hungify/pkg/metrics"
	"hungify/pkg/music"
	"hungify/pkg/player"
	"hungify/pkg/recommend"
	"hungify/pkg/youtube"
)

// localUser is the profile history is mirrored under when persistence is
// configured; the JSON API additionally records per-user history for
// signed-in sessions.
const localUser = "local"

// main configures application dependencies and starts the HTTP server.
func main() {
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	// The API key is required: without it the application cannot talk to
	// the search API at all, so exit early.
	apiKey := os.Getenv("YOUTUBE_API_KEY")
	if apiKey == "" {
		log.Fatal("YOUTUBE_API_KEY must be set")
	}
	signingKey := os.Getenv("SIGNING_KEY")
	if signingKey == "" {
		log.Fatal("SIGNING_KEY must be set")
	}

	// DATABASE_PATH allows the SQLite file to be customised. It defaults
	// to a file named hungify.db in the working directory; the value
	// "none" disables persistence entirely and likes/history become
	// session-local.
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "hungify.db"
	}
	var store db.Store = db.Nop{}
	var database *db.DB
	if dbPath != "none" {
		var err error
		database, err = db.New(dbPath)
		if err != nil {
			log.WithError(err).Fatal("db init")
		}
		defer database.Close()
		store = database
	}

	// The response cache shares the persistence database when one exists,
	// otherwise it lives in its own in-memory sqlite handle and simply
	// does not survive restarts.
	var responseCache *cache.Store
	if database != nil {
		c, err := cache.New(database.DB)
		if err != nil {
			log.WithError(err).Fatal("cache init")
		}
		responseCache = c
	} else {
		mem, err := sql.Open("sqlite3", ":memory:")
		if err != nil {
			log.WithError(err).Fatal("cache init")
		}
		defer mem.Close()
		c, err := cache.New(mem)
		if err != nil {
			log.WithError(err).Fatal("cache init")
		}
		responseCache = c
	}

	yt := &youtube.Client{Key: apiKey, Cache: responseCache}
	policy := recommend.New(yt)
	playerStore := player.New(policy)
	// Mirror every displaced track into persistent history. The
	// subscriber runs off the playback path; failures are logged and
	// forgotten.
	playerStore.OnHistory(func(t music.Track) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.AddHistory(ctx, localUser, t, time.Now()); err != nil {
			log.WithError(err).WithField("track", t.ID).Warn("mirror history")
		}
	})

	// Google OAuth is optional; without it the API still works but every
	// session is anonymous and per-user state is unavailable.
	var googleOAuth *oauth2.Config
	if id, secret := os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"); id != "" && secret != "" {
		redirectURL := os.Getenv("GOOGLE_REDIRECT_URL")
		if redirectURL == "" {
			redirectURL = "http://localhost:4000/callback"
		}
		googleOAuth = &oauth2.Config{
			ClientID:     id,
			ClientSecret: secret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		}
	}

	app := &handlers.Application{
		Music:       yt,
		Player:      playerStore,
		Cache:       responseCache,
		DB:          store,
		SignKey:     []byte(signingKey),
		GoogleOAuth: googleOAuth,
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":4000"
	}
	log.WithField("addr", addr).Info("starting server")
	if err := http.ListenAndServe(addr, routes(app)); err != nil {
		log.WithError(err).Fatal("http server error")
	}
}

// routes assembles the full request multiplexer for the application,
// wrapped in the common security headers.
func routes(app *handlers.Application) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", app.SearchJSON)
	mux.HandleFunc("/api/related", app.RelatedJSON)
	mux.HandleFunc("/api/artist", app.ArtistJSON)
	mux.HandleFunc("/api/player/play", app.PlayJSON)
	mux.HandleFunc("/api/player/queue", app.EnqueueJSON)
	mux.HandleFunc("/api/player/next", app.NextJSON)
	mux.HandleFunc("/api/player/previous", app.PreviousJSON)
	mux.HandleFunc("/api/player/state", app.StateJSON)
	mux.HandleFunc("/api/player/toggle", app.ToggleJSON)
	mux.HandleFunc("/api/player/volume", app.VolumeJSON)
	mux.HandleFunc("/api/player/progress", app.ProgressJSON)
	mux.HandleFunc("/api/likes", app.LikesJSON)
	mux.HandleFunc("/api/history", app.HistoryJSON)
	mux.HandleFunc("/api/insights", app.InsightsJSON)
	mux.HandleFunc("/api/insights/tracks", app.InsightsTracksJSON)
	mux.HandleFunc("/api/playlists", app.PlaylistsJSON)
	mux.HandleFunc("/api/playlists/", app.PlaylistTracksJSON)
	mux.HandleFunc("/api/cache", app.ClearCacheJSON)
	mux.HandleFunc("/api/session", app.SessionJSON)
	mux.HandleFunc("/login", app.Login)
	mux.HandleFunc("/callback", app.OAuthCallback)
	mux.HandleFunc("/logout", app.Logout)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/app/", http.StripPrefix("/app/", http.FileServer(http.Dir("./ui/frontend/dist"))))
	return handlers.SecurityHeaders(mux)
}
