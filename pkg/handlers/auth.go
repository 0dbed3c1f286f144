// This file groups authentication related helpers and endpoints: the
// Google OAuth login flow and the signed-cookie session it establishes.
// The rest of the application only ever asks "is a user signed in" — the
// identity provider is an external collaborator. CSRF protection is
// implemented using a random token stored in a cookie which clients must
// echo back in the `X-CSRF-Token` header for all state changing requests.
package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// signValue computes an HMAC signature for value and appends it using the
// format value|signature. The signature is base64 URL encoded so it can be
// safely stored in cookies.
func signValue(value string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	sig := mac.Sum(nil)
	return value + "|" + base64.RawURLEncoding.EncodeToString(sig)
}

// verifyValue checks the HMAC signature appended to signed. It returns the
// original value and true when the signature matches the provided key.
func verifyValue(signed string, key []byte) (string, bool) {
	parts := strings.Split(signed, "|")
	if len(parts) != 2 {
		return "", false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(parts[0]))
	expected := mac.Sum(nil)
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil || !hmac.Equal(expected, sig) {
		return "", false
	}
	return parts[0], true
}

// setCSRFToken generates a new random token and sets it in a cookie. The
// cookie is not HttpOnly so client-side scripts can read the value and
// attach it to subsequent requests.
func setCSRFToken(w http.ResponseWriter, secure bool) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     "csrf_token",
		Value:    token,
		Path:     "/",
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// verifyCSRF compares the X-CSRF-Token header with the csrf_token cookie.
// The comparison is constant time to avoid timing attacks.
func verifyCSRF(r *http.Request) bool {
	c, err := r.Cookie("csrf_token")
	if err != nil {
		return false
	}
	header := r.Header.Get("X-CSRF-Token")
	if header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(header)) == 1
}

// userFromCookie returns the verified user ID from the request cookie. An
// error is returned when the cookie is missing or has been tampered with.
func (app *Application) userFromCookie(r *http.Request) (string, error) {
	c, err := r.Cookie("user_id")
	if err != nil {
		return "", err
	}
	if v, ok := verifyValue(c.Value, app.SignKey); ok {
		return v, nil
	}
	return "", fmt.Errorf("invalid signature")
}

// requireUser is a helper used by handlers to enforce authentication. It
// writes a 401 response on failure and returns the user ID otherwise.
func (app *Application) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := app.userFromCookie(r)
	if err != nil {
		respondJSONError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	// Enforce CSRF protection on state-changing requests.
	if r.Method != http.MethodGet && r.Method != http.MethodHead && !verifyCSRF(r) {
		respondJSONError(w, http.StatusForbidden, "invalid csrf token")
		return "", false
	}
	return id, true
}

// SessionJSON reports whether the request carries a valid session. The
// frontend uses it to decide between local-only and persisted state.
func (app *Application) SessionJSON(w http.ResponseWriter, r *http.Request) {
	_, err := app.userFromCookie(r)
	respondJSON(w, http.StatusOK, map[string]bool{"signedIn": err == nil})
}

// Login begins the Google OAuth flow and redirects the user to the
// authorization URL with a signed state value stored in a cookie.
func (app *Application) Login(w http.ResponseWriter, r *http.Request) {
	if app.GoogleOAuth == nil {
		respondJSONError(w, http.StatusInternalServerError, "google auth not configured")
		return
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "failed to generate state")
		return
	}
	state := base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    signValue(state, app.SignKey),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, app.GoogleOAuth.AuthCodeURL(state), http.StatusFound)
}

// OAuthCallback completes the OAuth flow, fetches the Google account id and
// stores it in a signed cookie so subsequent requests can be authenticated.
func (app *Application) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if app.GoogleOAuth == nil {
		respondJSONError(w, http.StatusInternalServerError, "google auth not configured")
		return
	}
	c, err := r.Cookie("oauth_state")
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "state mismatch")
		return
	}
	state, ok := verifyValue(c.Value, app.SignKey)
	if !ok || r.URL.Query().Get("state") != state {
		respondJSONError(w, http.StatusBadRequest, "state mismatch")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Path: "/", MaxAge: -1})

	token, err := app.GoogleOAuth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "authentication failed")
		return
	}
	client := app.GoogleOAuth.Client(r.Context(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil || resp.StatusCode != http.StatusOK {
		respondJSONError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	defer resp.Body.Close()
	var data struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "decode user")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "user_id",
		Value:    signValue(data.ID, app.SignKey),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	// Issue a CSRF token for the session so clients can include it with
	// state-changing requests.
	if _, err := setCSRFToken(w, r.TLS != nil); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "csrf token")
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout clears authentication cookies so the user must re-authenticate.
func (app *Application) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "user_id",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{Name: "csrf_token", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusFound)
}
