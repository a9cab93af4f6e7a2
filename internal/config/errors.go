package config

import (
	"errors"

	"github.com/dshills/configsync/internal/config/keypath"
	"github.com/dshills/configsync/internal/config/registry"
)

// Errors returned by configuration operations.
var (
	// ErrSettingNotFound indicates the setting path isn't registered.
	ErrSettingNotFound = registry.ErrSettingNotFound

	// ErrTypeMismatch indicates the value type doesn't match the expected type.
	ErrTypeMismatch = registry.ErrTypeMismatch

	// ErrInvalidPath indicates an invalid setting path format.
	ErrInvalidPath = keypath.ErrInvalidPath

	// ErrNotBranch indicates an update tried to descend through a leaf.
	ErrNotBranch = keypath.ErrNotBranch

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("configuration store closed")
)

// TypeError is returned by the typed getters when a conversion fails.
type TypeError = registry.TypeError

// ValidationError describes a value rejected by a setting definition.
type ValidationError = registry.ValidationError
