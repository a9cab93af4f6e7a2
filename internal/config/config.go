package config

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/configsync/internal/config/keypath"
	"github.com/dshills/configsync/internal/config/notify"
	"github.com/dshills/configsync/internal/config/registry"
)

// Store owns the in-process mirror of the persisted launcher configuration.
//
// Reads are safe from any goroutine. Writes are expected to come from a
// single reconciliation loop; the lock only protects readers from a
// half-applied update.
type Store struct {
	mu sync.RWMutex

	mirror   map[string]any
	defaults map[string]any
	loaded   bool
	closed   bool

	registry *registry.Registry
	accessor *registry.Accessor
	notifier *notify.Notifier
	logger   zerolog.Logger
}

// Option configures a Store instance.
type Option func(*Store)

// WithRegistry sets the settings registry. The registry's defaults become
// the store's defaults unless WithDefaults is also given.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Store) {
		s.registry = r
	}
}

// WithDefaults sets the built-in default configuration tree.
func WithDefaults(tree map[string]any) Option {
	return func(s *Store) {
		s.defaults = keypath.Clone(tree)
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store holding the default configuration.
func New(opts ...Option) *Store {
	s := &Store{
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = registry.NewWithDefaults()
	}
	if s.defaults == nil {
		s.defaults = s.registry.DefaultTree()
	}
	s.notifier = notify.New()

	s.mirror = keypath.Clone(s.defaults)
	s.accessor = registry.NewAccessor(s.registry, s)
	s.logger = s.logger.With().Str("component", "store").Logger()

	return s
}

// Close releases observers. The mirror stays readable.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.notifier.Close()
}

// Registry returns the settings registry backing validation.
func (s *Store) Registry() *registry.Registry {
	return s.registry
}

// Loaded reports whether a full retrieval has replaced the defaults.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Get returns a copy of the value at path. The mirror is consulted first,
// then the defaults, so every registered path resolves before the first
// retrieval. The empty path returns the whole mirror.
func (s *Store) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := keypath.Get(s.mirror, path); ok {
		return keypath.CloneValue(v), true
	}
	if v, ok := keypath.Get(s.defaults, path); ok {
		return keypath.CloneValue(v), true
	}
	return nil, false
}

// GetValue implements registry.ValueStore.
func (s *Store) GetValue(path string) (any, bool) {
	return s.Get(path)
}

// Snapshot returns a deep copy of the whole mirror.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return keypath.Clone(s.mirror)
}

// GetString returns a string value at the given path.
func (s *Store) GetString(path string) (string, error) {
	return s.accessor.GetString(path)
}

// GetInt returns an integer value at the given path.
func (s *Store) GetInt(path string) (int, error) {
	return s.accessor.GetInt(path)
}

// GetBool returns a boolean value at the given path.
func (s *Store) GetBool(path string) (bool, error) {
	return s.accessor.GetBool(path)
}

// GetFloat returns a float64 value at the given path.
func (s *Store) GetFloat(path string) (float64, error) {
	return s.accessor.GetFloat64(path)
}

// GetStringSlice returns a string slice at the given path.
func (s *Store) GetStringSlice(path string) ([]string, error) {
	return s.accessor.GetStringSlice(path)
}

// Undo reverts an optimistic local update.
type Undo func()

// LocalUpdate applies value at path before the backend has confirmed it.
// The returned Undo restores the previous state if the push is rejected.
func (s *Store) LocalUpdate(path string, value any) (Undo, error) {
	old, existed, err := s.apply(path, value, notify.SourceLocal)
	if err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.restore(path, old, existed)
		})
	}, nil
}

// RemoteReconcile applies a backend-originated update at path.
func (s *Store) RemoteReconcile(path string, value any) error {
	_, _, err := s.apply(path, value, notify.SourceRemote)
	return err
}

// ReplaceAll replaces the mirror with cfg. Defaults are merged underneath
// so paths missing from cfg keep resolving.
func (s *Store) ReplaceAll(cfg map[string]any) {
	next := keypath.Merge(keypath.Clone(s.defaults), cfg)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mirror = next
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug().Int("leaves", len(keypath.Flatten(next))).Msg("configuration replaced")
	s.notifier.NotifyReload(notify.SourceRetrieve)
}

// Subscribe registers an observer for all configuration changes.
func (s *Store) Subscribe(observer notify.Observer) *notify.Subscription {
	return s.notifier.Subscribe(observer)
}

// SubscribePath registers an observer for changes affecting path.
func (s *Store) SubscribePath(path string, observer notify.Observer) *notify.Subscription {
	return s.notifier.SubscribePath(path, observer)
}

func (s *Store) apply(path string, value any, source notify.Source) (any, bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, false, ErrClosed
	}
	old, existed := keypath.Get(s.mirror, path)
	old = keypath.CloneValue(old)
	if err := keypath.Apply(s.mirror, path, value); err != nil {
		s.mu.Unlock()
		return nil, false, err
	}
	s.mu.Unlock()

	s.logger.Debug().Str("path", path).Str("source", string(source)).Msg("applied")
	s.notifier.NotifySet(path, old, keypath.CloneValue(value), source)
	return old, existed, nil
}

func (s *Store) restore(path string, old any, existed bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	current, _ := keypath.Get(s.mirror, path)
	current = keypath.CloneValue(current)
	if existed {
		if err := keypath.Apply(s.mirror, path, old); err != nil {
			s.mu.Unlock()
			s.logger.Warn().Err(err).Str("path", path).Msg("rollback failed")
			return
		}
	} else {
		keypath.Delete(s.mirror, path)
	}
	s.mu.Unlock()

	s.notifier.NotifySet(path, current, old, notify.SourceRollback)
}
