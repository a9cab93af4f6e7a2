// Package config holds the in-process mirror of the launcher configuration.
//
// The mirror is a nested map addressed by dot-separated paths such as
// "appearance.theme.primaryColor". It starts out as the built-in defaults,
// is replaced wholesale when the backend delivers the full configuration,
// and is then patched one path at a time as the backend reports changes.
//
// # Sub-packages
//
//   - keypath: path splitting, lookup, and the Apply patch primitive
//   - registry: known settings with types, defaults, and validation
//   - notify: change notification and observer pattern
//   - loader: loading the core's own options (TOML, YAML, JSON, environment)
//   - watcher: file watching for live reload
//
// # Basic Usage
//
//	store := config.New()
//	defer store.Close()
//
//	color, _ := store.GetString("appearance.theme.primaryColor") // "blue"
//
//	store.SubscribePath("appearance.theme.colorMode", func(c notify.Change) {
//	    fmt.Println("colour mode is now", c.NewValue)
//	})
//
//	_ = store.RemoteReconcile("appearance.theme.colorMode", "dark")
//
// # Write Policies
//
// RemoteReconcile is the normal write path: the mirror only changes when
// the backend reports a change. LocalUpdate applies a value before the
// backend confirms it and returns an Undo for the rejection case.
//
// # Thread Safety
//
// Reads may happen from any goroutine. All writes should come from the
// single loop that owns the store.
package config
