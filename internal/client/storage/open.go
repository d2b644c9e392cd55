package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atinyakov/nexus/internal/db"
	"github.com/atinyakov/nexus/internal/repository"
)

// Backend names accepted by Open.
const (
	BackendBolt     = "bolt"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Options selects and configures the durable store.
type Options struct {
	// Backend is one of BackendBolt, BackendMemory or BackendPostgres.
	Backend string
	// Path is the bbolt file for BackendBolt.
	Path string
	// DatabaseDSN is the connection string for BackendPostgres.
	DatabaseDSN string
	// Secret, when set, seals every value with AES-GCM.
	Secret string
}

// Handle is an opened store.
type Handle struct {
	// KV is the store to hand to the session store and the catalog cache.
	KV KV
	// DB is the PostgreSQL handle for BackendPostgres, nil otherwise.
	DB *sql.DB

	close func() error
}

// Close releases the underlying resources.
func (h *Handle) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

// Open builds the store described by opts.
func Open(opts Options) (*Handle, error) {
	h := &Handle{}

	switch opts.Backend {
	case BackendMemory:
		h.KV = NewMemory()
	case BackendBolt, "":
		if dir := filepath.Dir(opts.Path); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		b, err := NewBolt(opts.Path)
		if err != nil {
			return nil, err
		}
		h.KV, h.close = b, b.Close
	case BackendPostgres:
		pg, err := db.InitPostgres(opts.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		h.KV, h.DB, h.close = repository.NewPostgresKVRepository(pg), pg, pg.Close
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}

	if opts.Secret != "" {
		sealed, err := NewSealed(h.KV, []byte(opts.Secret))
		if err != nil {
			_ = h.Close()
			return nil, err
		}
		h.KV = sealed
	}

	return h, nil
}
