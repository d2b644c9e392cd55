// Package http provides the HTTP gateway over the Nexus client: session
// endpoints, the currency catalog, conversions and favorites.
package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/nexus/internal/models"
)

// AuthService defines the authentication operations required by the HTTP
// handlers.
type AuthService interface {
	// Login exchanges credentials for a session and stores it.
	Login(ctx context.Context, creds models.Credentials) (models.Session, error)
	// Register creates an account without logging in.
	Register(ctx context.Context, reg models.Registration) error
	// Logout clears the stored session.
	Logout()
}

// SessionReader exposes the current session.
type SessionReader interface {
	Current() models.Session
}

// AuthHandler handles HTTP requests for registration, login and logout.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	// Sessions reports the session state.
	Sessions SessionReader
}

// sessionResponse describes the session without exposing the credential.
type sessionResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	OwnerID         string `json:"userId,omitempty"`
}

// Register handles POST /register. It expects a JSON body with name, email,
// password and confirmPassword and answers 201 on success.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.Registration
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.AuthService.Register(r.Context(), req); err != nil {
		writeError(w, err, "an error occurred during registration")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

// Login handles POST /login. On success the session is stored and its
// owner is returned; the token itself stays on this side.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.Credentials
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := h.AuthService.Login(r.Context(), req)
	if err != nil {
		writeError(w, err, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{IsAuthenticated: true, OwnerID: sess.OwnerID})
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.AuthService.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// LoginEntry handles GET /login, the target of redirected protected views.
func (h *AuthHandler) LoginEntry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "login required",
		"login":    "POST /login",
		"register": "POST /register",
	})
}

// Session handles GET /session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Current()
	writeJSON(w, http.StatusOK, sessionResponse{
		IsAuthenticated: sess.Authenticated(),
		OwnerID:         sess.OwnerID,
	})
}
