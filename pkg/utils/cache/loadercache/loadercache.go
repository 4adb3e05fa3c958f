// Package loadercache is an in-memory cache that fills misses through a
// loader function.
package loadercache

import (
	"context"
	"sync"
	"time"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/utils/cache"
)

type (
	Option[K comparable, V any] func(*config[K, V])
	LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (*V, error)
	entry[V any]                  struct {
		value   *V
		expires time.Time
	}
	config[K comparable, V any] struct {
		ttl    time.Duration
		loader LoaderFunc[K, V]
		now    func() time.Time
		l      *log.Logger
	}
	loaderCache[K comparable, V any] struct {
		mu      sync.Mutex
		entries map[K]entry[V]
		cfg     *config[K, V]
	}
)

func WithExpiration[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *config[K, V]) {
		c.ttl = ttl
	}
}

func WithLoader[K comparable, V any](lf LoaderFunc[K, V]) Option[K, V] {
	return func(c *config[K, V]) {
		c.loader = lf
	}
}

func WithLogger[K comparable, V any](l *log.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		c.l = l
	}
}

func withClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *config[K, V]) {
		c.now = now
	}
}

func New[K comparable, V any](opts ...Option[K, V]) cache.Cache[K, V] {
	c := &config[K, V]{
		ttl: 5 * time.Minute,
		now: time.Now,
		l:   log.Default().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return &loaderCache[K, V]{
		entries: make(map[K]entry[V]),
		cfg:     c,
	}
}

func (c *loaderCache[K, V]) Get(ctx context.Context, key K) (*V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		if c.cfg.now().Before(e.expires) {
			return e.value, nil
		}
		delete(c.entries, key)
	}
	if c.cfg.loader == nil {
		return nil, cache.ErrCacheMiss
	}
	v, err := c.cfg.loader(ctx, key)
	if err != nil {
		c.cfg.l.Debug("loader failed", log.Any("key", key), log.ErrorField(err))
		return nil, err
	}
	c.entries[key] = entry[V]{value: v, expires: c.cfg.now().Add(c.cfg.ttl)}
	return v, nil
}

func (c *loaderCache[K, V]) Set(_ context.Context, key K, value *V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expires: c.cfg.now().Add(c.cfg.ttl)}
}

func (c *loaderCache[K, V]) Invalidate(_ context.Context, key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.cfg.l.Debug("invalidated", log.Any("key", key), log.Int("remaining", len(c.entries)))
}

func (c *loaderCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
