package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/asyncsoap/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DescriptionCache implements ports.DescriptionCache using Redis.
type DescriptionCache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*DescriptionCache)

// WithTTL sets the expiration for cached documents.
func WithTTL(ttl time.Duration) Option {
	return func(c *DescriptionCache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix for cached documents.
func WithPrefix(prefix string) Option {
	return func(c *DescriptionCache) {
		c.prefix = prefix
	}
}

// New creates a new Redis cache with options.
func New(address, password string, db int, opts ...Option) *DescriptionCache {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis cache from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *DescriptionCache {
	cache := &DescriptionCache{
		client: client,
		prefix: "asyncsoap:wsdl:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// Client returns the underlying Redis client, e.g. to share it with a Locker.
func (c *DescriptionCache) Client() *backend.Client {
	return c.client
}

func (c *DescriptionCache) key(key string) string {
	return c.prefix + key
}

// Get retrieves a document from Redis.
func (c *DescriptionCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, ports.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to load from redis: %w", err)
	}
	return val, nil
}

// Set stores a document with the configured TTL.
func (c *DescriptionCache) Set(ctx context.Context, key string, doc []byte) error {
	// Use 0 for no expiration if ttl is not set.
	if err := c.client.Set(ctx, c.key(key), doc, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Delete removes a document.
func (c *DescriptionCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}
