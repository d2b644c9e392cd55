// Package main initializes and starts the Nexus gateway, setting up
// configuration, logging, storage, the client components, handlers and the
// HTTP server.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/nexus/internal/app"
	"github.com/atinyakov/nexus/internal/config"
	"github.com/atinyakov/nexus/internal/logger"
	"github.com/atinyakov/nexus/internal/server/handler/http"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse config file, environment and command-line configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Open storage and wire the session, catalog, favorites and conversion
	// components.
	nexus, err := app.New(options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init client", zap.Error(err))
	}
	defer func() { _ = nexus.Close() }()

	// Create HTTP handlers.
	authHandler := &http.AuthHandler{AuthService: nexus.Auth, Sessions: nexus.Sessions}
	catalogHandler := &http.CatalogHandler{Catalog: nexus.Catalog}
	conversionHandler := &http.ConversionHandler{Conversions: nexus.Conversions}
	favoritesHandler := &http.FavoritesHandler{Favorites: nexus.Favorites}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, catalogHandler, conversionHandler, favoritesHandler, nexus.Gate, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr), zap.String("upstream", options.ServerURL))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
