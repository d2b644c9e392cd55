package http

import (
	"net/http"

	"github.com/atinyakov/nexus/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the gateway.
// It applies JSON content-type enforcement and request logging to every
// route, and guards the favorites and history views with the session gate.
//
// Routes:
//
//	GET    /currencies          → catalogHandler.List
//	POST   /convert             → conversionHandler.Convert
//	GET    /login               → authHandler.LoginEntry
//	POST   /login               → authHandler.Login
//	POST   /register            → authHandler.Register
//	POST   /logout              → authHandler.Logout
//	GET    /session             → authHandler.Session
//	GET    /favorites           → favoritesHandler.List     (protected)
//	POST   /favorites           → favoritesHandler.Add      (protected)
//	DELETE /favorites/{id}      → favoritesHandler.Remove   (protected)
//	GET    /conversion-history  → conversionHandler.History (protected)
func NewRouter(
	authHandler *AuthHandler,
	catalogHandler *CatalogHandler,
	conversionHandler *ConversionHandler,
	favoritesHandler *FavoritesHandler,
	sessionGate middleware.Evaluator,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	// Public endpoints
	r.Get("/currencies", catalogHandler.List)
	r.Post("/convert", conversionHandler.Convert)
	r.Get("/login", authHandler.LoginEntry)
	r.Post("/login", authHandler.Login)
	r.Post("/register", authHandler.Register)
	r.Post("/logout", authHandler.Logout)
	r.Get("/session", authHandler.Session)

	// Protected group: redirected to the login entry without a session
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessionGate))

		r.Get("/favorites", favoritesHandler.List)
		r.Post("/favorites", favoritesHandler.Add)
		r.Delete("/favorites/{currencyId}", favoritesHandler.Remove)
		r.Get("/conversion-history", conversionHandler.History)
	})

	return r
}
