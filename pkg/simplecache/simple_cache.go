// Package simplecache holds values that go stale after a fixed duration.
package simplecache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

type SimpleCache[K comparable, V any] struct {
	items      map[K]entry[V]
	expiration time.Duration
	now        func() time.Time
	mu         sync.RWMutex
}

type Option[K comparable, V any] func(*SimpleCache[K, V])

// WithClock replaces time.Now as the source of the current time.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(sc *SimpleCache[K, V]) {
		sc.now = now
	}
}

func New[K comparable, V any](expiration time.Duration, opts ...Option[K, V]) *SimpleCache[K, V] {
	sc := &SimpleCache[K, V]{
		items:      make(map[K]entry[V]),
		expiration: expiration,
		now:        time.Now,
	}
	for _, o := range opts {
		o(sc)
	}
	return sc
}

func (sc *SimpleCache[K, V]) Set(key K, value V) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.items[key] = entry[V]{value: value, expires: sc.now().Add(sc.expiration)}
}

// Get returns the value for key unless it is missing or expired. Expired
// entries are evicted on read.
func (sc *SimpleCache[K, V]) Get(key K) (V, bool) {
	sc.mu.RLock()
	e, exists := sc.items[key]
	sc.mu.RUnlock()

	if !exists {
		var zero V
		return zero, false
	}

	if !sc.now().Before(e.expires) {
		sc.mu.Lock()
		if cur, ok := sc.items[key]; ok && cur.expires.Equal(e.expires) {
			delete(sc.items, key)
		}
		sc.mu.Unlock()

		var zero V
		return zero, false
	}

	return e.value, true
}

// GetOrLoad returns the cached value for key, calling load to fill it when
// it is missing or expired. Failed loads are not cached.
func (sc *SimpleCache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := sc.Get(key); ok {
		return v, nil
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	sc.Set(key, v)
	return v, nil
}
