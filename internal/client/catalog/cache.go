// Package catalog caches the reference list of currencies in durable storage
// (cache-aside with a fixed time-to-live).
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/atinyakov/nexus/internal/client/storage"
	"github.com/atinyakov/nexus/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultKey is the storage key of the catalog envelope.
	DefaultKey = "cache:cryptoList"
	// DefaultTTL is how long a fetched catalog stays valid.
	DefaultTTL = time.Hour
)

// Fetcher downloads the full catalog.
type Fetcher interface {
	FetchCatalog(ctx context.Context) ([]models.CurrencyRecord, error)
}

// StaleError is returned together with a stale payload when a refresh
// failed but an expired envelope was available.
type StaleError struct {
	// FetchedAt is when the stale payload was fetched.
	FetchedAt time.Time
	// Err is the refresh failure.
	Err error
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("catalog refresh failed, serving data fetched at %s: %v",
		e.FetchedAt.UTC().Format(time.RFC3339), e.Err)
}

func (e *StaleError) Unwrap() error { return e.Err }

type envelope = models.CacheEnvelope[[]models.CurrencyRecord]

// Cache is the cache-aside wrapper around a Fetcher.
type Cache struct {
	kv      storage.KV
	fetcher Fetcher
	ttl     time.Duration
	key     string
	now     func() time.Time
	log     *zap.Logger

	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(c *Cache) {
		if key != "" {
			c.key = key
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a cache storing its envelope in kv.
func New(kv storage.KV, fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		kv:      kv,
		fetcher: fetcher,
		ttl:     DefaultTTL,
		key:     DefaultKey,
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the catalog, from storage while the envelope is younger than
// the TTL and from the fetcher otherwise.
//
// When the fetch fails and an expired envelope exists, Get returns its
// payload together with a *StaleError; the envelope is left in place. When
// nothing is cached the fetch error is returned alone.
//
// The fetch is shared by concurrent callers and does not inherit their
// cancellation; a caller whose ctx ends stops waiting without failing the
// others.
func (c *Cache) Get(ctx context.Context) ([]models.CurrencyRecord, error) {
	env, ok := c.read()
	if ok && c.fresh(env) {
		return env.Payload, nil
	}

	// concurrent misses in this process share one fetch
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(c.key, func() (any, error) {
		return c.refresh(fetchCtx)
	})

	var err error
	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.([]models.CurrencyRecord), nil
		}
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	if ok {
		c.log.Warn("serving stale catalog", zap.Error(err), zap.Int64("fetched_at", env.FetchedAt))
		return env.Payload, &StaleError{FetchedAt: time.UnixMilli(env.FetchedAt), Err: err}
	}
	return nil, fmt.Errorf("fetch catalog: %w", err)
}

// Contains reports whether id is in the catalog. With a stale catalog the
// answer is given from the stale payload and the error is dropped.
func (c *Cache) Contains(ctx context.Context, id string) (bool, error) {
	_, ok, err := c.Lookup(ctx, id)
	return ok, err
}

// Lookup returns the record with the given id.
func (c *Cache) Lookup(ctx context.Context, id string) (models.CurrencyRecord, bool, error) {
	records, err := c.Get(ctx)
	if err != nil && records == nil {
		return models.CurrencyRecord{}, false, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, true, nil
		}
	}
	return models.CurrencyRecord{}, false, nil
}

func (c *Cache) fresh(env envelope) bool {
	return c.now().UnixMilli()-env.FetchedAt < c.ttl.Milliseconds()
}

func (c *Cache) read() (envelope, bool) {
	var env envelope
	ok, err := storage.GetJSON(c.kv, c.key, &env)
	if err != nil {
		c.log.Warn("ignoring unreadable catalog envelope", zap.String("key", c.key), zap.Error(err))
		return envelope{}, false
	}
	return env, ok
}

func (c *Cache) refresh(ctx context.Context) ([]models.CurrencyRecord, error) {
	records, err := c.fetcher.FetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.CurrencyRecord{}
	}

	env := envelope{Payload: records, FetchedAt: c.now().UnixMilli()}
	if err := storage.PutJSON(c.kv, c.key, env); err != nil {
		// the payload is still good, it just will not be cached
		c.log.Warn("catalog not cached", zap.Error(err))
	}
	c.log.Debug("catalog refreshed", zap.Int("currencies", len(records)))
	return records, nil
}
