package colormode

import "sync"

// Signal is a live "the OS prefers dark" indicator, like a
// prefers-color-scheme media query.
type Signal interface {
	// PrefersDark returns the current value.
	PrefersDark() bool

	// Subscribe registers fn for value changes and returns a function that
	// removes it. The cancel function may be called more than once.
	Subscribe(fn func(prefersDark bool)) (cancel func())
}

// ManualSignal is a Signal whose value is set by the program. It stands in
// when no desktop portal is available and lets callers pin a value.
type ManualSignal struct {
	mu     sync.Mutex
	dark   bool
	subs   map[uint64]func(bool)
	nextID uint64
}

// NewManualSignal returns a signal starting at dark.
func NewManualSignal(dark bool) *ManualSignal {
	return &ManualSignal{
		dark: dark,
		subs: make(map[uint64]func(bool)),
	}
}

// PrefersDark implements Signal.
func (s *ManualSignal) PrefersDark() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dark
}

// Subscribe implements Signal.
func (s *ManualSignal) Subscribe(fn func(bool)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Set stores dark and fires every subscriber, even if the value is unchanged.
func (s *ManualSignal) Set(dark bool) {
	s.mu.Lock()
	s.dark = dark
	fns := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(dark)
	}
}

// Subscribers returns the number of live subscriptions.
func (s *ManualSignal) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
