package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/nexus/internal/client/clienterr"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and a user-visible message, using
// fallback when err carries nothing displayable.
func writeError(w http.ResponseWriter, err error, fallback string) {
	writeJSON(w, statusFor(err), errorResponse{Message: clienterr.Message(err, fallback)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, clienterr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, clienterr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, clienterr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, clienterr.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, clienterr.ErrRemote), errors.Is(err, clienterr.ErrDecode):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request"})
		return false
	}
	return true
}
