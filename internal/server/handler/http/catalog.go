package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/atinyakov/nexus/internal/client/catalog"
	"github.com/atinyakov/nexus/internal/models"
)

// CatalogService returns the reference list of currencies.
type CatalogService interface {
	Get(ctx context.Context) ([]models.CurrencyRecord, error)
}

// CatalogHandler serves the currency catalog.
type CatalogHandler struct {
	Catalog CatalogService
}

type currenciesResponse struct {
	Currencies []models.CurrencyRecord `json:"currencies"`
	Stale      bool                    `json:"stale,omitempty"`
	Message    string                  `json:"message,omitempty"`
}

// List handles GET /currencies. The optional search parameter filters by a
// case-insensitive match on id or name. A stale catalog is still served with
// stale set and the refresh failure as message.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.Catalog.Get(r.Context())

	var resp currenciesResponse
	var stale *catalog.StaleError
	switch {
	case errors.As(err, &stale):
		resp.Stale = true
		resp.Message = "currency list could not be refreshed"
	case err != nil:
		writeError(w, err, "could not load the currency list")
		return
	}

	resp.Currencies = filter(records, r.URL.Query().Get("search"))
	writeJSON(w, http.StatusOK, resp)
}

func filter(records []models.CurrencyRecord, search string) []models.CurrencyRecord {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return records
	}
	out := make([]models.CurrencyRecord, 0)
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.ID), search) ||
			strings.Contains(strings.ToLower(rec.DisplayName), search) {
			out = append(out, rec)
		}
	}
	return out
}
