package ports

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by DescriptionCache.Get when the key is absent.
var ErrCacheMiss = errors.New("description cache miss")

// DescriptionLoader fetches a service-description document (WSDL).
type DescriptionLoader interface {
	// Load returns the raw document found at location (URL, file path or data URI).
	Load(ctx context.Context, location string) ([]byte, error)
}

// DescriptionCache stores raw service-description documents.
type DescriptionCache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, doc []byte) error
	Delete(ctx context.Context, key string) error
}
