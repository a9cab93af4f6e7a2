package registry

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/configsync/internal/config/keypath"
)

// Registry maintains all known settings definitions.
type Registry struct {
	mu       sync.RWMutex
	settings map[string]*Setting
	sections map[string][]*Setting // Settings grouped by section
}

// New creates a new settings registry.
func New() *Registry {
	return &Registry{
		settings: make(map[string]*Setting),
		sections: make(map[string][]*Setting),
	}
}

// NewWithDefaults creates a registry with the built-in launcher settings.
func NewWithDefaults() *Registry {
	r := New()
	r.RegisterDefaults()
	return r
}

// Register adds a setting definition to the registry.
// Returns an error if a setting with the same path already exists.
func (r *Registry) Register(setting Setting) error {
	if _, err := keypath.Split(setting.Path); err != nil || setting.Path == "" {
		return fmt.Errorf("register %q: %w", setting.Path, keypath.ErrInvalidPath)
	}

	if setting.Pattern != "" {
		re, err := regexp.Compile(setting.Pattern)
		if err != nil {
			return fmt.Errorf("register %q: invalid pattern: %w", setting.Path, err)
		}
		setting.compiledPattern = re
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.settings[setting.Path]; exists {
		return fmt.Errorf("%w: %s", ErrSettingAlreadyRegistered, setting.Path)
	}

	s := &setting
	r.settings[setting.Path] = s

	section := extractSection(setting.Path)
	r.sections[section] = append(r.sections[section], s)

	return nil
}

// MustRegister registers a setting and panics on error.
func (r *Registry) MustRegister(setting Setting) {
	if err := r.Register(setting); err != nil {
		panic(err)
	}
}

// Get returns the setting definition for the given path.
// Returns nil if the setting is not registered.
func (r *Registry) Get(path string) *Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings[path]
}

// Has checks if a setting is registered.
func (r *Registry) Has(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.settings[path]
	return exists
}

// All returns all registered settings sorted by path.
func (r *Registry) All() []*Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Setting, 0, len(r.settings))
	for _, s := range r.settings {
		result = append(result, s)
	}
	sortByPath(result)
	return result
}

// Section returns all settings in a given top-level section (e.g., "appearance").
func (r *Registry) Section(name string) []*Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	settings := r.sections[name]
	result := make([]*Setting, len(settings))
	copy(result, settings)
	sortByPath(result)
	return result
}

// Sections returns all section names.
func (r *Registry) Sections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, 0, len(r.sections))
	for section := range r.sections {
		result = append(result, section)
	}
	sort.Strings(result)
	return result
}

// Search finds settings whose path, description, or tags contain query.
func (r *Registry) Search(query string) []*Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query = strings.ToLower(query)
	var result []*Setting
	for _, s := range r.settings {
		if matchesSetting(s, query) {
			result = append(result, s)
		}
	}
	sortByPath(result)
	return result
}

// Default returns the default value for a setting.
// Returns nil if the setting is not registered.
func (r *Registry) Default(path string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.settings[path]; ok {
		return keypath.CloneValue(s.Default)
	}
	return nil
}

// DefaultTree builds the nested default configuration from every
// registered setting.
func (r *Registry) DefaultTree() map[string]any {
	tree := make(map[string]any)
	for _, s := range r.All() {
		// Paths were checked at registration; a leaf/branch clash between
		// two registered paths is a programming error.
		if err := keypath.Apply(tree, s.Path, s.Default); err != nil {
			panic(fmt.Sprintf("registry: conflicting default %s: %v", s.Path, err))
		}
	}
	return tree
}

// Validate checks if a value is acceptable for the setting at path.
// Unregistered paths yield ErrSettingNotFound.
func (r *Registry) Validate(path string, value any) error {
	r.mu.RLock()
	s, ok := r.settings[path]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSettingNotFound, path)
	}

	if err := s.Validate(value); err != nil {
		return &ValidationError{Path: path, Value: value, Err: err}
	}
	return nil
}

// ValidationError reports a value rejected by a setting definition.
type ValidationError struct {
	Path  string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %v for %s: %v", e.Value, e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func extractSection(path string) string {
	parts := strings.SplitN(path, ".", 2)
	return parts[0]
}

func sortByPath(settings []*Setting) {
	sort.Slice(settings, func(i, j int) bool {
		return settings[i].Path < settings[j].Path
	})
}

func matchesSetting(s *Setting, query string) bool {
	if strings.Contains(strings.ToLower(s.Path), query) {
		return true
	}
	if strings.Contains(strings.ToLower(s.Description), query) {
		return true
	}
	for _, tag := range s.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

var (
	// ErrSettingAlreadyRegistered is returned when attempting to register a duplicate setting.
	ErrSettingAlreadyRegistered = errors.New("setting already registered")

	// ErrSettingNotFound is returned when a setting is not registered.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrTypeMismatch indicates a stored value has the wrong type for a typed getter.
	ErrTypeMismatch = errors.New("type mismatch")
)
