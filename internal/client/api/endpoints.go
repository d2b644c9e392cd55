package api

import (
	"context"
	"net/http"

	"github.com/atinyakov/nexus/internal/models"
)

const (
	pathLogin        = "/users/login"
	pathRegister     = "/users/register"
	pathHistory      = "/conversion/history"
	pathConvert      = "/conversion/convert"
	pathFavorites    = "/favorites"
	pathFavoritesAdd = "/favorites/add"
	pathFavoritesDel = "/favorites/delete"
)

// LoginResponse is the body of a successful login exchange.
type LoginResponse struct {
	Token   string `json:"token"`
	OwnerID string `json:"userId"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, "users/login", http.MethodPost, c.url(pathLogin), "", creds, &out)
	return out, err
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg models.Registration) error {
	return c.do(ctx, "users/register", http.MethodPost, c.url(pathRegister), "", reg, nil)
}

// ListFavorites returns every favorite of the token's owner.
func (c *Client) ListFavorites(ctx context.Context, token string) ([]models.FavoriteRecord, error) {
	var out []models.FavoriteRecord
	if err := c.do(ctx, "favorites", http.MethodGet, c.url(pathFavorites), token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type addFavoriteRequest struct {
	CurrencyID string `json:"cryptocurrencyId"`
	OwnerID    string `json:"userId"`
}

// AddFavorite creates a favorite and returns it with its server id.
func (c *Client) AddFavorite(ctx context.Context, token, ownerID, currencyID string) (models.FavoriteRecord, error) {
	var out models.FavoriteRecord
	err := c.do(ctx, "favorites/add", http.MethodPost, c.url(pathFavoritesAdd), token,
		addFavoriteRequest{CurrencyID: currencyID, OwnerID: ownerID}, &out)
	return out, err
}

type deleteFavoriteRequest struct {
	OwnerID    string `json:"userId"`
	FavoriteID string `json:"favoriteId"`
}

// DeleteFavorite removes the favorite with the given server id.
func (c *Client) DeleteFavorite(ctx context.Context, token, ownerID, favoriteID string) error {
	return c.do(ctx, "favorites/delete", http.MethodDelete, c.url(pathFavoritesDel), token,
		deleteFavoriteRequest{OwnerID: ownerID, FavoriteID: favoriteID}, nil)
}

// Convert prices an amount of a currency. token may be empty; with a token
// the service records the conversion in the owner's history.
func (c *Client) Convert(ctx context.Context, token string, req models.ConversionRequest) (models.ConversionResult, error) {
	var out models.ConversionResult
	err := c.do(ctx, "conversion/convert", http.MethodPost, c.url(pathConvert), token, req, &out)
	return out, err
}

// History returns the owner's past conversions.
func (c *Client) History(ctx context.Context, token string) ([]models.ConversionRecord, error) {
	var out []models.ConversionRecord
	if err := c.do(ctx, "conversion/history", http.MethodGet, c.url(pathHistory), token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchCatalog downloads the full currency list from the catalog provider.
func (c *Client) FetchCatalog(ctx context.Context) ([]models.CurrencyRecord, error) {
	var out []models.CurrencyRecord
	if err := c.do(ctx, "catalog", http.MethodGet, c.catalogURL, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
