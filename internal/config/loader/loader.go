// Package loader reads the synchronizer's own options from files and the
// environment into nested maps.
//
// Files may be TOML, YAML, or JSON, selected by extension. Environment
// variables carrying the CONFIGSYNC_ prefix override file values.
package loader

import (
	"io"
	"io/fs"
	"os"

	"github.com/dshills/configsync/internal/config/keypath"
)

// Loader is the interface for configuration loaders.
type Loader interface {
	// Load reads configuration from the source and returns a map.
	// Returns nil, nil if the source doesn't exist (not an error).
	Load() (map[string]any, error)
}

// ReaderLoader is the interface for loaders that read from io.Reader.
type ReaderLoader interface {
	LoadFromReader(r io.Reader) (map[string]any, error)
}

// FileSystem is an abstraction for file system operations.
type FileSystem interface {
	fs.FS
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// Open implements fs.FS.
func (OSFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// Chain runs loaders in order and deep-merges their results; later loaders
// win. Loaders whose source is missing contribute nothing.
func Chain(loaders ...Loader) (map[string]any, error) {
	result := make(map[string]any)
	for _, l := range loaders {
		data, err := l.Load()
		if err != nil {
			return nil, err
		}
		keypath.Merge(result, data)
	}
	return result, nil
}
