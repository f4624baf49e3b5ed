// Package adapter connects primary data sources to the cache layer. A Store
// is the system of record behind a cache-aside read path; the Loader bridge
// turns a Store lookup into a cache.Loader.
package adapter

import (
	"context"
	"sync"

	"github.com/mirkobrombin/go-redlock/v1/cache"
)

// Store abstracts the primary storage backing a cache.
//
// T represents the type of values stored.
type Store[T any] interface {
	// Get retrieves the value for a key. The boolean reports whether the
	// key was found; absence is not an error.
	Get(ctx context.Context, key string) (T, bool, error)
	// Set stores the value for a key, replacing any previous value.
	Set(ctx context.Context, key string, value T) error
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Loader adapts a Store lookup for one key into a cache.Loader, so a Store
// can feed an Aside cache directly.
func Loader[T any](s Store[T], key string) cache.Loader[T] {
	return func(ctx context.Context) (T, bool, error) {
		return s.Get(ctx, key)
	}
}

// InMemoryStore is a Store implementation backed by a map, useful for tests
// and single-process setups.
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewInMemoryStore returns an empty InMemoryStore.
func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{items: make(map[string]T)}
}

// Get implements Store.Get.
func (s *InMemoryStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false, nil
	}
	return v, true, nil
}

// Set implements Store.Set.
func (s *InMemoryStore[T]) Set(ctx context.Context, key string, value T) error {
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
	return nil
}

// Delete implements Store.Delete.
func (s *InMemoryStore[T]) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}
