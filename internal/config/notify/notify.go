// Package notify provides change notification for the configuration mirror.
//
// Observers subscribe to every change or to a path. A path observer fires
// when its path, one of its ancestors, or one of its descendants changes,
// since replacing "appearance.theme" wholesale also changes
// "appearance.theme.colorMode".
package notify

import (
	"slices"
	"strings"
	"sync"
)

// ChangeType represents the type of configuration change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeReload indicates the entire configuration was replaced.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Source identifies where a change came from.
type Source string

const (
	// SourceLocal is an optimistic write made before the backend confirmed it.
	SourceLocal Source = "local"
	// SourceRemote is a backend partial-update event.
	SourceRemote Source = "remote"
	// SourceRetrieve is a full configuration retrieval.
	SourceRetrieve Source = "retrieve"
	// SourceRollback restores a value after a rejected optimistic write.
	SourceRollback Source = "rollback"
)

// Change represents a configuration change event.
type Change struct {
	// Path is the dot-separated path to the changed setting.
	// Empty for reload events.
	Path string

	// Type is the type of change.
	Type ChangeType

	// OldValue is the previous value (may be nil).
	OldValue any

	// NewValue is the new value.
	NewValue any

	// Source identifies where the change came from.
	Source Source
}

// Affects reports whether the change touches path: the same path, an
// ancestor of it, or a descendant of it. Reloads affect every path.
func (c Change) Affects(path string) bool {
	if c.Type == ChangeReload || c.Path == "" || path == "" {
		return true
	}
	return c.Path == path || isParentPath(c.Path, path) || isParentPath(path, c.Path)
}

// Observer is called when configuration changes occur.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
	once     sync.Once
}

// Unsubscribe removes this subscription. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.notifier == nil {
		return
	}
	s.once.Do(func() {
		s.notifier.remove(s.id)
	})
}

// observer is one registration. scoped observers only see changes that
// affect path.
type observer struct {
	id     uint64
	path   string
	scoped bool
	fn     Observer
}

// Notifier fans changes out to observers, synchronously and in
// subscription order, on the goroutine that calls Notify.
type Notifier struct {
	mu        sync.RWMutex
	observers []observer
	nextID    uint64
	closed    bool
}

// New creates a new Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(fn Observer) *Subscription {
	return n.add(observer{fn: fn})
}

// SubscribePath registers an observer for changes affecting path.
func (n *Notifier) SubscribePath(path string, fn Observer) *Subscription {
	return n.add(observer{path: path, scoped: true, fn: fn})
}

// Notify delivers change to every matching observer. Observers may
// subscribe or unsubscribe while being notified; that takes effect from
// the next change.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	matched := make([]Observer, 0, len(n.observers))
	for _, o := range n.observers {
		if !o.scoped || change.Affects(o.path) {
			matched = append(matched, o.fn)
		}
	}
	n.mu.RUnlock()

	for _, fn := range matched {
		fn(change)
	}
}

// NotifySet notifies a single-path change.
func (n *Notifier) NotifySet(path string, oldValue, newValue any, source Source) {
	n.Notify(Change{
		Path:     path,
		Type:     ChangeSet,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
	})
}

// NotifyReload notifies a wholesale replacement.
func (n *Notifier) NotifyReload(source Source) {
	n.Notify(Change{Type: ChangeReload, Source: source})
}

// Close drops every observer. Later notifications are discarded and later
// subscriptions are inert.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.observers = nil
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

func (n *Notifier) add(o observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	o.id = n.nextID
	n.nextID++
	if !n.closed {
		n.observers = append(n.observers, o)
	}
	return &Subscription{id: o.id, notifier: n}
}

func (n *Notifier) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.observers = slices.DeleteFunc(n.observers, func(o observer) bool { return o.id == id })
}

// isParentPath reports whether child lies strictly below parent, e.g.
// "appearance" is a parent of "appearance.theme".
func isParentPath(parent, child string) bool {
	switch {
	case len(parent) >= len(child):
		return false
	case parent == "":
		return true
	}
	return strings.HasPrefix(child, parent) && child[len(parent)] == '.'
}
