package memory

import (
	"context"
	"sync"

	"github.com/aretw0/asyncsoap/pkg/ports"
)

// DescriptionCache implements ports.DescriptionCache in memory.
// Safe for concurrent use.
type DescriptionCache struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewDescriptionCache creates a new in-memory cache.
func NewDescriptionCache() *DescriptionCache {
	return &DescriptionCache{
		data: make(map[string][]byte),
	}
}

// Get retrieves a document from memory.
func (c *DescriptionCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	// Copy on read so callers can't mutate the cached bytes.
	return append([]byte(nil), doc...), nil
}

// Set stores a copy of doc.
func (c *DescriptionCache) Set(ctx context.Context, key string, doc []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), doc...)
	return nil
}

// Delete removes the document.
func (c *DescriptionCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
