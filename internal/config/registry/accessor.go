package registry

import "fmt"

// Accessor provides type-safe access to configuration values.
// It wraps a value store and uses the registry for defaults.
type Accessor struct {
	registry *Registry
	values   ValueStore
}

// ValueStore is the interface for accessing raw configuration values.
type ValueStore interface {
	// GetValue returns the value at the given path.
	// Returns nil, false if the path doesn't exist.
	GetValue(path string) (any, bool)
}

// NewAccessor creates a new type-safe accessor.
func NewAccessor(registry *Registry, values ValueStore) *Accessor {
	return &Accessor{
		registry: registry,
		values:   values,
	}
}

// Get returns the raw value at the given path.
// If the value is not set, returns the default from the registry.
// Returns ErrSettingNotFound if neither has it.
func (a *Accessor) Get(path string) (any, error) {
	if val, ok := a.values.GetValue(path); ok {
		return val, nil
	}

	setting := a.registry.Get(path)
	if setting == nil {
		return nil, fmt.Errorf("%w: %s", ErrSettingNotFound, path)
	}
	return setting.Default, nil
}

// GetString returns a string value at the given path.
func (a *Accessor) GetString(path string) (string, error) {
	val, err := a.Get(path)
	if err != nil || val == nil {
		return "", err
	}

	s, ok := val.(string)
	if !ok {
		return "", newTypeError(path, "string", val)
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
func (a *Accessor) GetInt(path string) (int, error) {
	val, err := a.Get(path)
	if err != nil || val == nil {
		return 0, err
	}

	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int64(v)) {
			return 0, newTypeError(path, "integer", val)
		}
		return int(v), nil
	default:
		return 0, newTypeError(path, "integer", val)
	}
}

// GetFloat64 returns a float64 value at the given path.
func (a *Accessor) GetFloat64(path string) (float64, error) {
	val, err := a.Get(path)
	if err != nil || val == nil {
		return 0, err
	}

	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, newTypeError(path, "number", val)
	}
}

// GetBool returns a boolean value at the given path.
func (a *Accessor) GetBool(path string) (bool, error) {
	val, err := a.Get(path)
	if err != nil || val == nil {
		return false, err
	}

	b, ok := val.(bool)
	if !ok {
		return false, newTypeError(path, "boolean", val)
	}
	return b, nil
}

// GetStringSlice returns a string slice value at the given path.
func (a *Accessor) GetStringSlice(path string) ([]string, error) {
	val, err := a.Get(path)
	if err != nil || val == nil {
		return nil, err
	}

	switch v := val.(type) {
	case []string:
		return v, nil
	case []any:
		result := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &TypeError{
					Path:     path,
					Expected: "string array",
					Actual:   fmt.Sprintf("array with %T element", item),
				}
			}
			result[i] = s
		}
		return result, nil
	default:
		return nil, newTypeError(path, "string array", val)
	}
}

// TypeError is returned when a type conversion fails.
type TypeError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error at %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Is implements error matching for TypeError.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}

func newTypeError(path, expected string, val any) *TypeError {
	return &TypeError{Path: path, Expected: expected, Actual: fmt.Sprintf("%T", val)}
}
