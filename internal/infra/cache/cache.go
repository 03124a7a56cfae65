// Package cache provides a bounded in-memory TTL cache.
// The projection endpoint memoizes results on their input tuple with it.
package cache

import (
	"sync"
	"time"
)

const defaultTTL = time.Minute

type entry[T any] struct {
	value     T
	expiresAt time.Time
	storedAt  uint64
}

// Option configures an InMemory cache.
type Option func(*options)

type options struct {
	maxEntries int
	now        func() time.Time
}

// WithMaxEntries bounds the cache. When full, the oldest entry is evicted.
// Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(o *options) { o.maxEntries = n }
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// InMemory is a thread-safe in-memory cache with TTL.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	opts  options
	seq   uint64

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a cache whose entries live for ttl and starts the janitor that
// evicts expired entries. A non-positive ttl falls back to one minute.
// Call Close to stop the janitor.
func New[T any](ttl time.Duration, opts ...Option) *InMemory[T] {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		opts:  o,
		stop:  make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Get returns the value stored under key. Expired entries are misses.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || c.opts.now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for the configured TTL.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.opts.maxEntries > 0 && len(c.items) >= c.opts.maxEntries {
		c.evictLocked()
	}
	c.seq++
	c.items[key] = entry[T]{
		value:     value,
		expiresAt: c.opts.now().Add(c.ttl),
		storedAt:  c.seq,
	}
}

// evictLocked drops expired entries, or the oldest one if none has expired.
func (c *InMemory[T]) evictLocked() {
	if c.sweepLocked() > 0 {
		return
	}
	var oldestKey string
	var oldest uint64
	for k, e := range c.items {
		if oldestKey == "" || e.storedAt < oldest {
			oldestKey, oldest = k, e.storedAt
		}
	}
	delete(c.items, oldestKey)
}

// Delete removes key.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len returns the number of entries, expired ones included until the next sweep.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the janitor goroutine.
func (c *InMemory[T]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *InMemory[T]) sweepLocked() int {
	now := c.opts.now()
	n := 0
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

func (c *InMemory[T]) janitor() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.sweepLocked()
			c.mu.Unlock()
		}
	}
}
