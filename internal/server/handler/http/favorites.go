package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/nexus/internal/models"
	"github.com/go-chi/chi/v5"
)

// FavoritesService is the favorites mirror.
type FavoritesService interface {
	Load(ctx context.Context) ([]models.FavoriteRecord, error)
	IsFavorite(currencyID string) bool
	Add(ctx context.Context, currencyID string) (models.FavoriteRecord, error)
	Remove(ctx context.Context, currencyID string) error
}

// FavoritesHandler serves the favorites of the logged in user.
type FavoritesHandler struct {
	Favorites FavoritesService
}

type addFavoriteRequest struct {
	CurrencyID string `json:"cryptocurrencyId"`
}

// List handles GET /favorites. The mirror is reloaded from the service.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.Favorites.Load(r.Context())
	if err != nil {
		writeError(w, err, "could not load favorites")
		return
	}
	if records == nil {
		records = []models.FavoriteRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Add handles POST /favorites.
func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := h.Favorites.Add(r.Context(), req.CurrencyID)
	if err != nil {
		writeError(w, err, "could not add favorite")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Remove handles DELETE /favorites/{currencyId}. A currency missing from the
// mirror triggers one reload before the removal is attempted.
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	currencyID := chi.URLParam(r, "currencyId")
	if !h.Favorites.IsFavorite(currencyID) {
		if _, err := h.Favorites.Load(r.Context()); err != nil {
			writeError(w, err, "could not load favorites")
			return
		}
	}
	if err := h.Favorites.Remove(r.Context(), currencyID); err != nil {
		writeError(w, err, "could not remove favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
