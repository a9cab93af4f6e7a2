// Package app wires the configuration synchronization core: the
// reconciliation loop, its options, logging and user notifications.
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/configsync/internal/cache"
	"github.com/dshills/configsync/internal/channel"
	"github.com/dshills/configsync/internal/colormode"
	"github.com/dshills/configsync/internal/config"
	"github.com/dshills/configsync/internal/config/keypath"
	"github.com/dshills/configsync/internal/config/notify"
	"github.com/dshills/configsync/internal/config/registry"
	"github.com/dshills/configsync/internal/protocol"
)

const (
	eventBuffer = 256
	taskBuffer  = 64
)

// Core keeps the in-process configuration mirror consistent with the
// settings backend behind a channel.
//
// Every mirror mutation runs on a single reconciliation goroutine started
// by Start. Backend events, retrieval results, OS colour-scheme changes and
// cache completions are all funnelled into it, so observers never see two
// changes interleave.
type Core struct {
	ch       channel.Channel
	store    *config.Store
	registry *registry.Registry
	resolver *colormode.Resolver
	runtimes *cache.Getter[[]protocol.RuntimeInfo]

	signal          colormode.Signal
	applier         colormode.Applier
	reporter        Reporter
	languageHook    func(lang string)
	runtimesUpdated func()
	optimistic      bool
	runtimesTimeout time.Duration
	metrics         *Metrics
	logger          zerolog.Logger

	events chan protocol.PartialUpdate
	tasks  chan func()
	done   chan struct{}
	exited chan struct{}
	loopID atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	started     bool
	closed      bool
	unsubscribe channel.Unsubscribe
	subs        []*notify.Subscription

	// Owned by the loop goroutine.
	retrieving bool
	replay     []protocol.PartialUpdate
	waiters    []chan error
	language   string
}

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

// WithReporter sets where user-visible notifications go. The default logs
// them.
func WithReporter(r Reporter) Option {
	return func(c *Core) {
		c.reporter = r
	}
}

// WithSignal sets the OS dark-mode signal. The default never prefers dark.
func WithSignal(s colormode.Signal) Option {
	return func(c *Core) {
		c.signal = s
	}
}

// WithApplier sets the display side of the colour mode.
func WithApplier(a colormode.Applier) Option {
	return func(c *Core) {
		c.applier = a
	}
}

// WithLanguageHook sets a function called with the configured language
// whenever it changes.
func WithLanguageHook(fn func(lang string)) Option {
	return func(c *Core) {
		c.languageHook = fn
	}
}

// WithOptimisticUpdates applies updates to the mirror before the backend
// confirms them and rolls them back if the push fails.
func WithOptimisticUpdates(enabled bool) Option {
	return func(c *Core) {
		c.optimistic = enabled
	}
}

// WithRuntimesUpdated sets a function called on the loop after every
// completed runtime list fetch.
func WithRuntimesUpdated(fn func()) Option {
	return func(c *Core) {
		c.runtimesUpdated = fn
	}
}

// WithRuntimesTimeout bounds a single runtime list fetch.
func WithRuntimesTimeout(d time.Duration) Option {
	return func(c *Core) {
		c.runtimesTimeout = d
	}
}

// WithRegistry sets the settings registry.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Core) {
		c.registry = r
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(c *Core) {
		c.metrics = m
	}
}

// New creates a Core talking to ch. The mirror holds the built-in defaults
// until Start has retrieved the backend's configuration.
func New(ch channel.Channel, opts ...Option) *Core {
	c := &Core{
		ch:     ch,
		logger: zerolog.Nop(),
		events: make(chan protocol.PartialUpdate, eventBuffer),
		tasks:  make(chan func(), taskBuffer),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "core").Logger()

	if c.registry == nil {
		c.registry = registry.NewWithDefaults()
	}
	if c.reporter == nil {
		c.reporter = NewLogReporter(c.logger)
	}
	if c.signal == nil {
		c.signal = colormode.NewManualSignal(false)
	}
	if c.applier == nil {
		c.applier = colormode.NewStateApplier(colormode.Light)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics()
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.store = config.New(config.WithRegistry(c.registry), config.WithLogger(c.logger))
	c.resolver = colormode.NewResolver(c.signal, c.applier,
		colormode.WithLogger(c.logger),
		colormode.WithDispatch(func(fn func()) { c.post(fn) }),
	)
	c.runtimes = cache.New[[]protocol.RuntimeInfo](c.ch.FetchRuntimes, []protocol.RuntimeInfo{}, cache.Hooks{
		OnError: func(err error) {
			c.post(func() {
				c.report(Notification{
					Title:       TitleRuntimesFailed,
					Description: err.Error(),
					Status:      StatusError,
					Err:         err,
				})
			})
		},
		OnUpdate: func() {
			c.post(func() {
				if c.runtimesUpdated != nil {
					c.runtimesUpdated()
				}
			})
		},
		Timeout: c.runtimesTimeout,
	})
	return c
}

// Start subscribes to backend events, starts the reconciliation loop and
// begins the initial retrieval. It does not wait for the retrieval; use
// Reload for that.
func (c *Core) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.started {
		return ErrAlreadyRunning
	}

	unsub, err := c.ch.Subscribe(c.enqueue)
	if err != nil {
		return fmt.Errorf("subscribe to backend events: %w", err)
	}
	c.unsubscribe = unsub

	c.subs = append(c.subs,
		c.store.SubscribePath(registry.PathColorMode, func(notify.Change) { c.syncColorMode() }),
		c.store.SubscribePath(registry.PathLanguage, func(notify.Change) { c.syncLanguage() }),
	)

	c.started = true
	go c.loop()

	c.post(func() {
		c.syncColorMode()
		c.syncLanguage()
		c.startRetrieval(nil)
	})

	c.logger.Info().Bool("optimistic", c.optimistic).Msg("core started")
	return nil
}

// Close unsubscribes from the backend, stops the loop and cancels any
// retrieval in flight. Results that arrive afterwards are dropped. Close is
// idempotent.
func (c *Core) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	unsub := c.unsubscribe
	c.unsubscribe = nil
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	close(c.done)
	c.cancel()
	if started {
		<-c.exited
	}

	c.runtimes.Close()
	c.resolver.Close()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
	c.store.Close()

	c.logger.Info().Msg("core closed")
	return nil
}

// Get returns a copy of the value at path. Every registered path resolves,
// falling back to its default before the first successful retrieval.
func (c *Core) Get(path string) (any, bool) {
	return c.store.Get(path)
}

// Store returns the configuration mirror for typed reads and observers.
func (c *Core) Store() *config.Store {
	return c.store
}

// Loaded reports whether a retrieval has replaced the built-in defaults.
func (c *Core) Loaded() bool {
	return c.store.Loaded()
}

// EffectiveMode returns the display mode currently in effect.
func (c *Core) EffectiveMode() colormode.Mode {
	return c.resolver.Effective()
}

// FollowsSignal reports whether the display mode currently tracks the OS
// signal, which is the case only while the preference is system.
func (c *Core) FollowsSignal() bool {
	return c.resolver.Subscribed()
}

// Metrics returns the core's counters.
func (c *Core) Metrics() *Metrics {
	return c.metrics
}

// Update asks the backend to set path to value.
//
// The mirror changes when the backend's event for the update arrives, not
// when Update returns. With optimistic updates the mirror changes first and
// is restored if the push fails. Failures are reported and returned.
//
// Update may be called from store observers and the language hook; there
// the optimistic write and any rollback happen inline.
func (c *Core) Update(ctx context.Context, path string, value any) error {
	if err := c.checkRunning(); err != nil {
		return err
	}

	if err := c.registry.Validate(path, value); err != nil {
		c.reportUpdateFailure(path, err)
		return NewOperationError("update", path, err)
	}

	var undo config.Undo
	if c.optimistic {
		err := c.runSync(ctx, func() error {
			u, err := c.store.LocalUpdate(path, value)
			undo = u
			return err
		})
		if err != nil {
			c.reportUpdateFailure(path, err)
			return NewOperationError("update", path, err)
		}
	}

	c.metrics.pushes.Add(1)
	if err := c.ch.Push(ctx, path, value); err != nil {
		c.metrics.pushFailures.Add(1)
		c.reportUpdateFailure(path, err)
		if undo != nil {
			if c.onLoop() {
				c.rollback(path, value, undo)
			} else {
				c.post(func() { c.rollback(path, value, undo) })
			}
		}
		return NewOperationError("update", path, err)
	}

	c.logger.Debug().Str("path", path).Msg("update pushed")
	return nil
}

// Reload retrieves the full configuration again and waits for it to be
// applied. A retrieval already in flight is joined rather than repeated.
// Called from an observer, Reload starts the retrieval and returns without
// waiting.
func (c *Core) Reload(ctx context.Context) error {
	if err := c.checkRunning(); err != nil {
		return err
	}
	if c.onLoop() {
		c.startRetrieval(nil)
		return nil
	}

	result := make(chan error, 1)
	if !c.post(func() { c.startRetrieval(result) }) {
		return ErrClosed
	}

	select {
	case err := <-result:
		if err != nil {
			return NewOperationError("reload", "", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// Runtimes returns the cached Java runtime list. ok is false until the first
// fetch completes. Asking for a list that is not cached, or passing force,
// starts a background fetch; WithRuntimesUpdated fires when it completes.
func (c *Core) Runtimes(force bool) (list []protocol.RuntimeInfo, ok bool) {
	if c.checkRunning() != nil {
		return c.runtimes.Peek()
	}
	return c.runtimes.Get(force)
}

// RuntimesFetchedAt returns when the cached runtime list was stored, or the
// zero time if no fetch has completed.
func (c *Core) RuntimesFetchedAt() time.Time {
	return c.runtimes.FetchedAt()
}

// WaitRuntimes blocks until no runtime list fetch is in flight.
func (c *Core) WaitRuntimes() {
	c.runtimes.Wait()
}

func (c *Core) checkRunning() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return ErrClosed
	case !c.started:
		return ErrNotRunning
	}
	return nil
}

// enqueue is the channel subscription handler.
func (c *Core) enqueue(u protocol.PartialUpdate) {
	select {
	case c.events <- u:
	case <-c.done:
	}
}

// post schedules fn on the loop. It reports false once the core is closed.
func (c *Core) post(fn func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.tasks <- fn:
		return true
	case <-c.done:
		return false
	}
}

// runSync runs fn on the loop and waits for its result. On the loop
// itself fn runs inline.
func (c *Core) runSync(ctx context.Context, fn func() error) error {
	if c.onLoop() {
		return callRecover(fn)
	}

	result := make(chan error, 1)
	ok := c.post(func() { result <- callRecover(fn) })
	if !ok {
		return ErrClosed
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

func callRecover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RecoveredPanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn()
}

// onLoop reports whether the caller is the reconciliation goroutine.
func (c *Core) onLoop() bool {
	id := c.loopID.Load()
	return id != 0 && id == goroutineID()
}

// flush waits until every event and task queued before the call has run.
func (c *Core) flush(ctx context.Context) error {
	return c.runSync(ctx, func() error { return nil })
}

func (c *Core) loop() {
	defer close(c.exited)
	c.loopID.Store(goroutineID())

	for {
		select {
		case <-c.done:
			return

		case u := <-c.events:
			c.handleEvent(u)

		case fn := <-c.tasks:
			// Events received before the task was posted apply first.
			c.drainEvents()
			c.runTask(fn)
		}
	}
}

func (c *Core) drainEvents() {
	for {
		select {
		case u := <-c.events:
			c.handleEvent(u)
		default:
			return
		}
	}
}

func (c *Core) runTask(fn func()) {
	timer := StartTimer()
	defer func() {
		if r := recover(); r != nil {
			err := &RecoveredPanicError{Value: r, Stack: string(debug.Stack())}
			c.logger.Error().Err(err).Str("stack", err.Stack).Msg("loop task panicked")
		}
		c.metrics.RecordTask(timer.Elapsed())
	}()
	fn()
}

// handleEvent applies a backend event, or buffers it while a full
// retrieval is in flight so the retrieved snapshot cannot overwrite it.
func (c *Core) handleEvent(u protocol.PartialUpdate) {
	if c.retrieving {
		c.replay = append(c.replay, u)
		return
	}
	c.applyEvent(u)
}

func (c *Core) applyEvent(u protocol.PartialUpdate) {
	defer func() {
		if r := recover(); r != nil {
			c.dropEvent(u, &RecoveredPanicError{Value: r, Stack: string(debug.Stack())})
		}
	}()

	value, err := u.Decode()
	if err != nil {
		c.dropEvent(u, err)
		return
	}
	if !c.registry.Has(u.Path) {
		c.logger.Warn().Str("path", u.Path).Msg("event for unregistered setting")
	}
	if err := c.store.RemoteReconcile(u.Path, value); err != nil {
		if errors.Is(err, config.ErrClosed) {
			return
		}
		c.dropEvent(u, fmt.Errorf("%w: %w", protocol.ErrMalformedEvent, err))
		return
	}
	c.metrics.eventsApplied.Add(1)
}

func (c *Core) dropEvent(u protocol.PartialUpdate, err error) {
	c.metrics.eventsDropped.Add(1)
	c.logger.Warn().Err(err).Str("path", u.Path).Str("value", u.Value).Msg("dropped event")
	c.report(Notification{
		Title:       TitleBadEvent,
		Description: err.Error(),
		Status:      StatusWarning,
		Err:         err,
	})
}

// startRetrieval begins a full retrieval unless one is running. result, if
// not nil, receives the outcome.
func (c *Core) startRetrieval(result chan error) {
	if result != nil {
		c.waiters = append(c.waiters, result)
	}
	if c.retrieving {
		return
	}
	c.retrieving = true
	c.metrics.retrievals.Add(1)

	ctx := c.ctx
	go func() {
		cfg, err := c.ch.FetchAll(ctx)
		c.post(func() { c.finishRetrieval(cfg, err) })
	}()
}

func (c *Core) finishRetrieval(cfg map[string]any, err error) {
	replay := c.replay
	waiters := c.waiters
	c.retrieving = false
	c.replay = nil
	c.waiters = nil

	if err != nil {
		c.metrics.retrievalFailures.Add(1)
		c.logger.Error().Err(err).Msg("retrieval failed")
		c.report(Notification{
			Title:       TitleRetrieveFailed,
			Description: err.Error(),
			Status:      StatusError,
			Err:         err,
		})
	} else {
		c.store.ReplaceAll(cfg)
		c.logger.Info().Int("replayed", len(replay)).Msg("configuration retrieved")
	}

	for _, u := range replay {
		c.applyEvent(u)
		c.metrics.eventsReplayed.Add(1)
	}
	for _, w := range waiters {
		w <- err
	}
}

// rollback restores the value an optimistic update replaced, unless a
// backend event has changed the path since.
func (c *Core) rollback(path string, value any, undo config.Undo) {
	current, _ := c.store.Get(path)
	if !keypath.Equal(current, value) {
		c.logger.Debug().Str("path", path).Msg("rollback skipped, value changed since")
		return
	}
	undo()
	c.metrics.rollbacks.Add(1)
	c.logger.Info().Str("path", path).Msg("optimistic update rolled back")
}

func (c *Core) syncColorMode() {
	v, _ := c.store.Get(registry.PathColorMode)
	pref, err := colormode.ParsePreference(v)
	if err != nil {
		c.logger.Warn().Err(err).Msg("ignoring colour mode preference")
		return
	}
	c.resolver.SetPreference(pref)
}

func (c *Core) syncLanguage() {
	lang, err := c.store.GetString(registry.PathLanguage)
	if err != nil {
		c.logger.Warn().Err(err).Msg("ignoring language")
		return
	}
	if lang == c.language {
		return
	}
	c.language = lang
	c.logger.Debug().Str("language", lang).Msg("language changed")
	if c.languageHook != nil {
		c.languageHook(lang)
	}
}

func (c *Core) reportUpdateFailure(path string, err error) {
	c.logger.Warn().Err(err).Str("path", path).Msg("update failed")
	c.report(Notification{
		Title:       TitleUpdateFailed,
		Description: err.Error(),
		Status:      StatusError,
		Err:         err,
	})
}

func (c *Core) report(n Notification) {
	c.reporter.Report(n)
}
