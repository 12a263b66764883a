package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Loader implements ports.DescriptionLoader using an in-memory map.
type Loader struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	loads map[string]int
}

// NewLoader creates a new Loader with the provided documents keyed by location.
func NewLoader(data map[string]string) *Loader {
	docs := make(map[string][]byte)
	for k, v := range data {
		docs[k] = []byte(v)
	}
	return &Loader{
		docs:  docs,
		loads: make(map[string]int),
	}
}

// Load returns the document registered for location.
func (l *Loader) Load(ctx context.Context, location string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[location]++

	content, ok := l.docs[location]
	if !ok {
		return nil, fmt.Errorf("description not found: %s", location)
	}
	return append([]byte(nil), content...), nil
}

// Loads reports how many times location was requested.
func (l *Loader) Loads(location string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loads[location]
}

// Locations returns all registered locations.
func (l *Loader) Locations() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.docs))
	for k := range l.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys
}
