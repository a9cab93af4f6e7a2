package colormode

import (
	"sync"

	"github.com/rs/zerolog"
)

// Resolver keeps the Applier's mode equal to Resolve(preference, signal).
//
// It listens to the Signal only while the preference is PreferSystem. Each
// subscription carries a generation number, so a callback from a cancelled
// subscription that is already running cannot change the mode.
type Resolver struct {
	mu sync.Mutex

	signal  Signal
	applier Applier

	pref      Preference
	effective Mode
	cancel    func()
	gen       uint64
	closed    bool

	dispatch func(func())
	logger   zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithDispatch routes signal callbacks through dispatch, e.g. onto the
// goroutine that owns the configuration mirror.
func WithDispatch(dispatch func(func())) Option {
	return func(r *Resolver) {
		r.dispatch = dispatch
	}
}

// NewResolver creates a resolver with preference PreferLight. Call
// SetPreference to apply the stored preference.
func NewResolver(signal Signal, applier Applier, opts ...Option) *Resolver {
	r := &Resolver{
		signal:    signal,
		applier:   applier,
		pref:      PreferLight,
		effective: applier.Current(),
		dispatch:  func(fn func()) { fn() },
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "colormode").Logger()
	return r
}

// SetPreference switches the preference and converges the display mode.
func (r *Resolver) SetPreference(p Preference) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	if p != PreferSystem && r.cancel != nil {
		r.unsubscribeLocked()
	}
	if p == PreferSystem && r.cancel == nil {
		r.gen++
		gen := r.gen
		r.cancel = r.signal.Subscribe(func(dark bool) {
			r.dispatch(func() { r.onSignal(gen, dark) })
		})
		r.logger.Debug().Uint64("generation", gen).Msg("subscribed to system colour scheme")
	}

	r.pref = p
	dark := false
	if p == PreferSystem {
		dark = r.signal.PrefersDark()
	}
	r.convergeLocked(dark)
}

// Preference returns the current preference.
func (r *Resolver) Preference() Preference {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pref
}

// Effective returns the most recently computed mode.
func (r *Resolver) Effective() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.effective
}

// Subscribed reports whether the resolver is listening to the signal.
func (r *Resolver) Subscribed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Close releases the signal subscription. The display mode is left as is.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	if r.cancel != nil {
		r.unsubscribeLocked()
	}
}

func (r *Resolver) onSignal(gen uint64, dark bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || gen != r.gen || r.pref != PreferSystem {
		r.logger.Debug().Uint64("generation", gen).Msg("stale colour scheme signal dropped")
		return
	}
	r.convergeLocked(dark)
}

func (r *Resolver) unsubscribeLocked() {
	r.cancel()
	r.cancel = nil
	r.gen++
	r.logger.Debug().Msg("unsubscribed from system colour scheme")
}

// convergeLocked toggles at most once, and only if the shown mode differs
// from the computed one.
func (r *Resolver) convergeLocked(prefersDark bool) {
	target := Resolve(r.pref, prefersDark)
	r.effective = target

	if r.applier.Current() != target {
		r.applier.Toggle()
		r.logger.Info().Str("mode", string(target)).Msg("display mode changed")
	}
}
