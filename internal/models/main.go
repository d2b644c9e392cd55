// Package models defines the records exchanged with the Nexus service and the
// currency catalog provider.
package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Session is the credential issued by the login exchange.
type Session struct {
	// Token is the opaque bearer credential. Empty means no session.
	Token string `json:"token"`
	// OwnerID identifies the account the token belongs to. It is returned by
	// the login exchange and never derived from the token itself.
	OwnerID string `json:"userId"`
}

// Authenticated reports whether the session carries a credential.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// CurrencyRecord is one entry of the reference catalog.
type CurrencyRecord struct {
	// ID is the provider-defined stable identifier ("bitcoin", "btc", ...).
	ID string `json:"id"`
	// DisplayName is the human readable name.
	DisplayName string `json:"name"`
}

// CacheEnvelope wraps a cached payload with the wall-clock time it was fetched.
type CacheEnvelope[T any] struct {
	// Payload is the cached value.
	Payload T `json:"data"`
	// FetchedAt is the fetch time in epoch milliseconds.
	FetchedAt int64 `json:"timestamp"`
}

// FavoriteRecord is a currency the user marked as favorite, as stored remotely.
type FavoriteRecord struct {
	// ID is assigned by the server on creation.
	ID string `json:"_id"`
	// CurrencyID references CurrencyRecord.ID.
	CurrencyID string `json:"cryptocurrencyId"`
	// OwnerID is the account owning the favorite.
	OwnerID string `json:"user"`
	// Name is the display name the server resolved, if any.
	Name string `json:"name,omitempty"`
}

// ConversionResult is the priced value of an amount of a currency in the two
// fiat currencies the service quotes: BRL (primary) and USD (secondary).
type ConversionResult struct {
	OwnerID            string          `json:"userId,omitempty"`
	CurrencyID         string          `json:"cryptocurrencyId"`
	Amount             decimal.Decimal `json:"amount"`
	ConvertedPrimary   decimal.Decimal `json:"convertedBrl"`
	ConvertedSecondary decimal.Decimal `json:"convertedUsd"`
	UnitPricePrimary   decimal.Decimal `json:"priceInBrl"`
	UnitPriceSecondary decimal.Decimal `json:"priceInUsd"`
}

// ConversionRecord is one entry of the server-side conversion history.
type ConversionRecord struct {
	ConversionResult
	CreatedAt time.Time `json:"createdAt"`
}

// ConversionRequest is the body of the convert call.
type ConversionRequest struct {
	CurrencyID string          `json:"cryptocurrencyId"`
	Amount     decimal.Decimal `json:"amount"`
}

// MarshalJSON encodes Amount as a JSON number; the service rejects quoted
// amounts.
func (r ConversionRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CurrencyID string      `json:"cryptocurrencyId"`
		Amount     json.Number `json:"amount"`
	}{
		CurrencyID: r.CurrencyID,
		Amount:     json.Number(r.Amount.String()),
	})
}

// Credentials is the body of the login exchange.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body of the register call.
type Registration struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}
