// Package cache provides a lazily filled, asynchronously refreshed value.
//
// A Getter never blocks its caller on the fetch. The first Get (or a Get
// with force set) starts a background fetch and returns whatever is cached
// right now, which may be nothing. Once the fetch completes the OnUpdate
// hook fires so the caller can read again.
package cache

import (
	"context"
	"sync"
	"time"
)

// Fetcher loads a fresh value.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Hooks are the optional callbacks and limits of a Getter.
type Hooks struct {
	// OnError receives every fetch failure.
	OnError func(err error)

	// OnUpdate fires after each completed fetch, successful or not.
	OnUpdate func()

	// Timeout bounds a single fetch. Zero means no limit.
	Timeout time.Duration
}

// Getter caches the result of a Fetcher.
//
// A failed fetch stores the empty value given to New, so callers can tell
// "fetched, found nothing or failed" (ok is true) from "never fetched"
// (ok is false). At most one fetch is in flight at any time.
type Getter[T any] struct {
	fetch Fetcher[T]
	empty T
	hooks Hooks

	mu        sync.Mutex
	value     T
	has       bool
	inflight  bool
	fetchedAt time.Time
	fetches   int
	idle      *sync.Cond

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// New creates a Getter. empty is stored when a fetch fails; for slices pass
// a non-nil empty slice.
func New[T any](fetch Fetcher[T], empty T, hooks Hooks) *Getter[T] {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Getter[T]{
		fetch:  fetch,
		empty:  empty,
		hooks:  hooks,
		ctx:    ctx,
		cancel: cancel,
	}
	g.idle = sync.NewCond(&g.mu)
	return g
}

// Get returns the cached value and whether one exists. If nothing is
// cached, or force is set, it starts a background fetch unless one is
// already running.
func (g *Getter[T]) Get(force bool) (T, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.has && !force {
		return g.value, true
	}
	if !g.inflight && !g.closed {
		g.inflight = true
		g.fetches++
		go g.run()
	}
	return g.value, g.has
}

// Peek returns the cached value without ever starting a fetch.
func (g *Getter[T]) Peek() (T, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value, g.has
}

// fetching reports whether a fetch is in flight.
func (g *Getter[T]) fetching() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight
}

// FetchedAt returns when the cached value was stored.
func (g *Getter[T]) FetchedAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetchedAt
}

// fetchCount returns how many fetches have been started.
func (g *Getter[T]) fetchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetches
}

// Wait blocks until no fetch is in flight.
func (g *Getter[T]) Wait() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.inflight {
		g.idle.Wait()
	}
}

// Close cancels any running fetch. Results that arrive afterwards are
// discarded and no further fetches start.
func (g *Getter[T]) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()
	g.cancel()
}

func (g *Getter[T]) run() {
	ctx := g.ctx
	if g.hooks.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.hooks.Timeout)
		defer cancel()
	}

	value, err := g.fetch(ctx)

	g.mu.Lock()
	closed := g.closed
	if !closed {
		if err != nil {
			g.value = g.empty
		} else {
			g.value = value
		}
		g.has = true
		g.fetchedAt = time.Now()
	}
	g.mu.Unlock()

	// Hooks run before the fetch is marked finished so that Wait also
	// waits for them.
	if !closed {
		if err != nil && g.hooks.OnError != nil {
			g.hooks.OnError(err)
		}
		if g.hooks.OnUpdate != nil {
			g.hooks.OnUpdate()
		}
	}

	g.mu.Lock()
	g.inflight = false
	g.idle.Broadcast()
	g.mu.Unlock()
}
