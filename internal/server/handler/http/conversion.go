package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/nexus/internal/models"
)

// ConversionService validates and submits conversions.
type ConversionService interface {
	Convert(ctx context.Context, currencyID, rawAmount string) (models.ConversionResult, error)
	History(ctx context.Context) ([]models.ConversionRecord, error)
}

// ConversionHandler serves conversions and their history.
type ConversionHandler struct {
	Conversions ConversionService
}

// convertRequest accepts the amount as a JSON number or a string; it is
// validated by the ConversionService, not here.
type convertRequest struct {
	CurrencyID string          `json:"cryptocurrencyId"`
	Amount     json.RawMessage `json:"amount"`
}

func (c convertRequest) rawAmount() string {
	var s string
	if err := json.Unmarshal(c.Amount, &s); err == nil {
		return s
	}
	return string(c.Amount)
}

// Convert handles POST /convert.
func (h *ConversionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.Conversions.Convert(r.Context(), req.CurrencyID, req.rawAmount())
	if err != nil {
		writeError(w, err, "conversion failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// History handles GET /conversion-history.
func (h *ConversionHandler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.Conversions.History(r.Context())
	if err != nil {
		writeError(w, err, "could not load the conversion history")
		return
	}
	if records == nil {
		records = []models.ConversionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
