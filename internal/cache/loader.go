package cache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader fronts a Cache with a load function. Concurrent misses for the
// same key share a single call to load. A load that was already running when
// Purge is called is not cached and is not shared with later callers.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group
	load  func(ctx context.Context, key string) (T, error)

	mu  sync.Mutex
	gen uint64

	hits, misses Counter
}

func NewLoader[T any](c Cache[T], load func(ctx context.Context, key string) (T, error)) *Loader[T] {
	return &Loader[T]{cache: c, load: load}
}

// Get returns the cached value or loads, caches and returns it.
func (l *Loader[T]) Get(ctx context.Context, key string) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		l.hits.Inc()
		return v, nil
	}
	l.misses.Inc()

	gen := l.generation()
	v, err, _ := l.group.Do(fmt.Sprintf("%d/%s", gen, key), func() (any, error) {
		data, err := l.load(ctx, key)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if l.gen == gen {
			l.cache.Set(key, data)
		}
		l.mu.Unlock()
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %q: %w", key, err)
	}
	return v.(T), nil
}

func (l *Loader[T]) generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// Purge drops every cached key and fences loads still in flight.
func (l *Loader[T]) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if p, ok := l.cache.(interface{ Purge() }); ok {
		p.Purge()
	}
}

// Stats returns hit and miss counts.
func (l *Loader[T]) Stats() (hits, misses int64) {
	return l.hits.Load(), l.misses.Load()
}
