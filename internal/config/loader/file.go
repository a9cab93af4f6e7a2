package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/dshills/configsync/internal/config/keypath"
)

// includeKey lists files whose values sit beneath the including file's.
const includeKey = "@include"

// FileLoader loads configuration from a TOML, YAML, or JSON file.
type FileLoader struct {
	fs     FileSystem
	path   string
	format Format
}

// NewFileLoader creates a loader for path. The format comes from the file
// extension.
func NewFileLoader(path string) (*FileLoader, error) {
	return NewFileLoaderWithFS(DefaultFS(), path)
}

// NewFileLoaderWithFS creates a file loader with a custom file system.
func NewFileLoaderWithFS(fsys FileSystem, path string) (*FileLoader, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	return &FileLoader{fs: fsys, path: path, format: format}, nil
}

// NewReaderLoader creates a loader that only decodes readers in format.
func NewReaderLoader(format Format) *FileLoader {
	return &FileLoader{fs: DefaultFS(), format: format}
}

// Path returns the configured path.
func (l *FileLoader) Path() string {
	return l.path
}

// Load reads configuration from the configured path, resolving includes.
func (l *FileLoader) Load() (map[string]any, error) {
	return l.LoadWithIncludes(l.path, 8)
}

// LoadFrom reads a single file without resolving includes. A missing file
// yields nil, nil.
func (l *FileLoader) LoadFrom(path string) (map[string]any, error) {
	format, err := FormatFor(path)
	if err != nil {
		format = l.format
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Decode(format, path, data)
}

// LoadFromReader decodes r in the loader's format.
func (l *FileLoader) LoadFromReader(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Decode(l.format, "<reader>", data)
}

// LoadWithIncludes loads path and processes its @include list. Included
// files may use any supported format. maxDepth bounds nesting.
func (l *FileLoader) LoadWithIncludes(path string, maxDepth int) (map[string]any, error) {
	if maxDepth <= 0 {
		return nil, fmt.Errorf("include depth exceeded for %s", path)
	}

	config, err := l.LoadFrom(path)
	if err != nil || config == nil {
		return config, err
	}

	includes, ok := config[includeKey]
	if !ok {
		return config, nil
	}
	delete(config, includeKey)

	var list []string
	switch v := includes.(type) {
	case string:
		list = []string{v}
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be string or array of strings", includeKey)
			}
			list = append(list, s)
		}
	default:
		return nil, fmt.Errorf("%s must be string or array of strings, got %T", includeKey, includes)
	}

	baseDir := filepath.Dir(path)
	merged := make(map[string]any)
	for _, inc := range list {
		incPath := inc
		if !filepath.IsAbs(inc) {
			incPath = filepath.Join(baseDir, inc)
		}
		incConfig, err := l.LoadWithIncludes(incPath, maxDepth-1)
		if err != nil {
			return nil, fmt.Errorf("loading include %s: %w", incPath, err)
		}
		keypath.Merge(merged, incConfig)
	}
	// The including file wins over everything it includes.
	return keypath.Merge(merged, config), nil
}
