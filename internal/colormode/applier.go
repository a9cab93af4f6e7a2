package colormode

import "sync"

// Applier is the display side: it knows the mode currently shown and can
// flip it.
type Applier interface {
	Current() Mode
	Toggle()
}

// StateApplier is an in-memory Applier. It records how often it was
// toggled and reports each new mode to an optional callback.
type StateApplier struct {
	mu       sync.Mutex
	mode     Mode
	toggles  int
	onChange func(Mode)
}

// NewStateApplier starts in mode.
func NewStateApplier(mode Mode) *StateApplier {
	return &StateApplier{mode: mode}
}

// OnChange sets the callback invoked after every toggle.
func (a *StateApplier) OnChange(fn func(Mode)) {
	a.mu.Lock()
	a.onChange = fn
	a.mu.Unlock()
}

// Current implements Applier.
func (a *StateApplier) Current() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Toggle implements Applier.
func (a *StateApplier) Toggle() {
	a.mu.Lock()
	a.mode = a.mode.Opposite()
	a.toggles++
	mode, fn := a.mode, a.onChange
	a.mu.Unlock()

	if fn != nil {
		fn(mode)
	}
}

// Toggles returns the number of Toggle calls so far.
func (a *StateApplier) Toggles() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.toggles
}
