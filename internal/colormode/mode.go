// Package colormode derives the effective light/dark display mode from the
// user's preference and the operating system's dark-mode signal.
package colormode

import (
	"fmt"
	"strings"
)

// Preference is the stored user choice.
type Preference string

// Preferences.
const (
	PreferLight  Preference = "light"
	PreferDark   Preference = "dark"
	PreferSystem Preference = "system"
)

// Mode is the display mode actually in effect.
type Mode string

// Modes.
const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// ParsePreference parses a stored preference value.
func ParsePreference(v any) (Preference, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("colour mode preference: expected string, got %T", v)
	}
	switch p := Preference(strings.ToLower(s)); p {
	case PreferLight, PreferDark, PreferSystem:
		return p, nil
	default:
		return "", fmt.Errorf("colour mode preference: unknown value %q", s)
	}
}

// Resolve computes the effective mode. prefersDark only matters for
// PreferSystem.
func Resolve(p Preference, prefersDark bool) Mode {
	switch p {
	case PreferDark:
		return Dark
	case PreferSystem:
		if prefersDark {
			return Dark
		}
		return Light
	default:
		return Light
	}
}

// Opposite returns the other mode.
func (m Mode) Opposite() Mode {
	if m == Dark {
		return Light
	}
	return Dark
}
