// Package app wires the client components from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/atinyakov/nexus/internal/client/api"
	"github.com/atinyakov/nexus/internal/client/catalog"
	"github.com/atinyakov/nexus/internal/client/conversion"
	"github.com/atinyakov/nexus/internal/client/favorites"
	"github.com/atinyakov/nexus/internal/client/gate"
	"github.com/atinyakov/nexus/internal/client/session"
	"github.com/atinyakov/nexus/internal/client/storage"
	"github.com/atinyakov/nexus/internal/config"
	"github.com/atinyakov/nexus/internal/db"
	"github.com/atinyakov/nexus/internal/service"
	"go.uber.org/zap"
)

const (
	sweepInterval = time.Hour
	// cache entries untouched this long are dropped from the shared table
	sweepRetention = 30 * 24 * time.Hour
	cachePrefix    = "cache:"
)

// App holds the wired components. Close releases them.
type App struct {
	Remote      *api.Client
	Sessions    *session.Store
	Gate        *gate.Gate
	Catalog     *catalog.Cache
	Favorites   *favorites.Synchronizer
	Conversions *conversion.Requestor
	Auth        *service.Service

	storage *storage.Handle
	cancel  context.CancelFunc
}

// New opens storage and builds every component described by opts.
func New(opts *config.Options, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	handle, err := storage.Open(storage.Options{
		Backend:     opts.Storage,
		Path:        opts.StoragePath,
		DatabaseDSN: opts.DatabaseDSN,
		Secret:      opts.StorageSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	httpClient, err := api.NewHTTPClient(opts.CACert, opts.RequestTimeout.Duration)
	if err != nil {
		_ = handle.Close()
		return nil, err
	}

	a := &App{storage: handle, cancel: func() {}}
	a.Sessions = session.New(handle.KV, log)

	apiOpts := []api.Option{
		api.WithHTTPClient(httpClient),
		api.WithCatalogURL(opts.CatalogURL),
		api.WithLogger(log),
	}
	if opts.LogoutOnReject {
		apiOpts = append(apiOpts, api.WithUnauthorizedHook(a.Sessions.Reject))
	}
	a.Remote = api.New(opts.ServerURL, apiOpts...)

	a.Gate = gate.New(a.Sessions, gate.DefaultLoginPath)
	a.Catalog = catalog.New(handle.KV, a.Remote,
		catalog.WithTTL(opts.CacheTTL.Duration),
		catalog.WithLogger(log),
	)
	a.Favorites = favorites.New(a.Sessions, a.Remote, log)
	a.Conversions = conversion.New(a.Remote, a.Sessions, a.Catalog, log)
	a.Auth = service.NewAuthService(a.Remote, a.Sessions, log)

	if handle.DB != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.cancel = cancel
		db.StartRetentionSweeper(ctx, handle.DB, sweepInterval, sweepRetention, cachePrefix, log)
	}
	return a, nil
}

// Close stops background work and closes storage.
func (a *App) Close() error {
	a.cancel()
	a.Favorites.Close()
	return a.storage.Close()
}
