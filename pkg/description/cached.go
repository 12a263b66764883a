package description

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/asyncsoap/pkg/ports"
)

type lockerConfig struct {
	locker ports.DistributedLocker
	ttl    time.Duration
}

// WithLocker serializes cold-cache fetches of the same document across
// processes sharing the cache.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(o *options) {
		o.locker = lockerConfig{locker: locker, ttl: ttl}
	}
}

// WithKeyFunc overrides how locations map to cache keys.
func WithKeyFunc(fn func(location string) string) Option {
	return func(o *options) {
		if fn != nil {
			o.keyFunc = fn
		}
	}
}

// Key is the default cache key: a digest of the location.
func Key(location string) string {
	sum := sha256.Sum256([]byte(location))
	return hex.EncodeToString(sum[:])
}

// CachedLoader is a read-through cache in front of a DescriptionLoader.
type CachedLoader struct {
	loader ports.DescriptionLoader
	cache  ports.DescriptionCache
	locker lockerConfig
	key    func(string) string
	logger *slog.Logger
}

// Cached wraps loader with cache.
func Cached(loader ports.DescriptionLoader, cache ports.DescriptionCache, opts ...Option) *CachedLoader {
	o := newOptions(opts)
	if o.locker.ttl <= 0 {
		o.locker.ttl = 30 * time.Second
	}
	return &CachedLoader{
		loader: loader,
		cache:  cache,
		locker: o.locker,
		key:    o.keyFunc,
		logger: o.logger,
	}
}

// Load returns the cached document or loads and stores it. Cache failures
// other than a miss are logged and bypassed.
func (c *CachedLoader) Load(ctx context.Context, location string) ([]byte, error) {
	key := c.key(location)

	doc, err := c.cache.Get(ctx, key)
	if err == nil {
		c.logger.DebugContext(ctx, "description cache hit", "key", key)
		return doc, nil
	}
	if !errors.Is(err, ports.ErrCacheMiss) {
		c.logger.WarnContext(ctx, "description cache unavailable", "key", key, "err", err)
		return c.loader.Load(ctx, location)
	}

	if c.locker.locker != nil {
		unlock, err := c.locker.locker.Lock(ctx, key, c.locker.ttl)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.WarnContext(ctx, "description lock failed", "key", key, "err", err)
		} else {
			defer func() {
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					c.logger.WarnContext(ctx, "description unlock failed", "key", key, "err", err)
				}
			}()
			// Another holder may have filled the cache while we waited.
			if doc, err := c.cache.Get(ctx, key); err == nil {
				return doc, nil
			}
		}
	}

	doc, err = c.loader.Load(ctx, location)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, doc); err != nil {
		c.logger.WarnContext(ctx, "description cache store failed", "key", key, "err", err)
	}
	return doc, nil
}
