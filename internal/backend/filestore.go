package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/configsync/internal/config/keypath"
	"github.com/dshills/configsync/internal/config/watcher"
	"github.com/dshills/configsync/internal/protocol"
)

// ErrCorruptDocument is returned when the settings file is not a JSON object.
var ErrCorruptDocument = errors.New("settings file is not a JSON object")

// FileStore is a JSON settings document on disk.
//
// Writes go through sjson so the key order of the existing file survives,
// and land atomically by rename. The effective configuration is the file
// merged over the defaults.
type FileStore struct {
	mu       sync.Mutex
	path     string
	doc      []byte
	defaults map[string]any
	perm     fs.FileMode

	watcher *watcher.Watcher
	logger  zerolog.Logger
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithStoreLogger sets the logger.
func WithStoreLogger(logger zerolog.Logger) FileStoreOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// WithWatcher sets the watcher used by Watch.
func WithWatcher(w *watcher.Watcher) FileStoreOption {
	return func(s *FileStore) {
		s.watcher = w
	}
}

// OpenFileStore opens the settings file at path, creating it from defaults
// when it does not exist. A file that exists but does not parse is kept
// as is; Load reports it.
func OpenFileStore(path string, defaults map[string]any, opts ...FileStoreOption) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	// Defaults go through JSON so they compare equal to values read back
	// from the file.
	rawDefaults, err := json.Marshal(defaults)
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	tree, _ := gjson.ParseBytes(rawDefaults).Value().(map[string]any)
	if tree == nil {
		tree = map[string]any{}
		rawDefaults = []byte("{}")
	}

	s := &FileStore{
		path:     abs,
		defaults: tree,
		perm:     0o644,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "filestore").Str("path", abs).Logger()

	data, err := os.ReadFile(abs)
	switch {
	case err == nil:
		s.doc = data
		if info, err := os.Stat(abs); err == nil {
			s.perm = info.Mode().Perm()
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("create settings directory: %w", err)
		}
		if err := s.writeLocked(rawDefaults); err != nil {
			return nil, err
		}
		s.logger.Info().Msg("created settings file from defaults")
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return s, nil
}

// Path returns the absolute path of the settings file.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the effective configuration.
func (s *FileStore) Load() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effective(s.doc)
}

// Raw returns the JSON encoding stored at path, without defaults.
func (s *FileStore) Raw(path string) (string, bool) {
	segs, err := keypath.Split(path)
	if err != nil || len(segs) == 0 {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res := gjson.GetBytes(s.doc, jsonPath(segs))
	if !res.Exists() {
		return "", false
	}
	return res.Raw, true
}

// Set stores the JSON-encoded value raw at path. Missing branches are
// created; a non-object prefix is an error and leaves the file unchanged.
func (s *FileStore) Set(path, raw string) error {
	segs, err := keypath.Split(path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return fmt.Errorf("%w: empty path", keypath.ErrInvalidPath)
	}
	if !gjson.Valid(raw) {
		return fmt.Errorf("%s: value is not valid JSON", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := parseDocument(s.doc)
	if err != nil {
		return err
	}
	if err := keypath.Apply(tree, path, gjson.Parse(raw).Value()); err != nil {
		return err
	}

	base := s.doc
	if len(bytes.TrimSpace(base)) == 0 {
		base = []byte("{}")
	}
	doc, err := sjson.SetRawBytes(base, setPath(segs), []byte(raw))
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return s.writeLocked(doc)
}

// Watch starts watching the settings file. fn receives one PartialUpdate
// per leaf whose effective value changed since the last known document.
func (s *FileStore) Watch(fn func([]protocol.PartialUpdate)) error {
	if s.watcher == nil {
		s.watcher = watcher.New(watcher.WithLogger(s.logger))
	}
	if err := s.watcher.Watch(s.path); err != nil {
		return err
	}
	s.watcher.OnChange(func(ev watcher.Event) {
		if ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename {
			s.logger.Warn().Str("op", ev.Op.String()).Msg("settings file went away; keeping last known values")
			return
		}
		updates, err := s.Reload()
		if err != nil {
			s.logger.Warn().Err(err).Msg("ignoring unreadable settings file")
			return
		}
		if len(updates) > 0 {
			fn(updates)
		}
	})
	return s.watcher.Start()
}

// Reload rereads the file and returns the updates that bring a mirror of
// the previous document up to date.
func (s *FileStore) Reload() ([]protocol.PartialUpdate, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if bytes.Equal(data, s.doc) {
		return nil, nil
	}
	next, err := s.effective(data)
	if err != nil {
		return nil, err
	}
	prev, err := s.effective(s.doc)
	if err != nil {
		// The previous document was unreadable; everything is new.
		prev = keypath.Clone(s.defaults)
	}
	s.doc = data
	return diff(prev, next)
}

// Close stops watching.
func (s *FileStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Stop()
}

func (s *FileStore) effective(doc []byte) (map[string]any, error) {
	tree, err := parseDocument(doc)
	if err != nil {
		return nil, err
	}
	return keypath.Merge(keypath.Clone(s.defaults), tree), nil
}

func (s *FileStore) writeLocked(doc []byte) error {
	formatted := pretty.Pretty(doc)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(formatted); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Chmod(tmpName, s.perm); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	s.doc = formatted
	return nil
}

func parseDocument(doc []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return map[string]any{}, nil
	}
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrCorruptDocument)
	}
	tree, ok := gjson.ParseBytes(doc).Value().(map[string]any)
	if !ok {
		return nil, ErrCorruptDocument
	}
	return tree, nil
}

// diff returns the updates that turn prev into next, in path order.
// Changed leaves and new keys get one update each. A node that switches
// between leaf and branch gets a single update carrying its whole new
// value. Leaves that disappear get a null update.
func diff(prev, next map[string]any) ([]protocol.PartialUpdate, error) {
	var updates []protocol.PartialUpdate
	if err := diffTree("", prev, next, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func diffTree(prefix string, prev, next map[string]any, out *[]protocol.PartialUpdate) error {
	keys := make([]string, 0, len(prev)+len(next))
	for k := range prev {
		keys = append(keys, k)
	}
	for k := range next {
		if _, ok := prev[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = keypath.Join(prefix, k)
		}
		old, inPrev := prev[k]
		cur, inNext := next[k]
		oldBranch, oldIsBranch := old.(map[string]any)
		curBranch, curIsBranch := cur.(map[string]any)

		var err error
		switch {
		case !inNext && oldIsBranch:
			leaves := keypath.Flatten(oldBranch)
			removed := make([]string, 0, len(leaves))
			for leaf := range leaves {
				removed = append(removed, leaf)
			}
			sort.Strings(removed)
			for _, leaf := range removed {
				if err = emit(out, keypath.Join(path, leaf), nil); err != nil {
					break
				}
			}
		case !inNext:
			err = emit(out, path, nil)
		case oldIsBranch && curIsBranch:
			err = diffTree(path, oldBranch, curBranch, out)
		case !inPrev, oldIsBranch != curIsBranch, !keypath.Equal(old, cur):
			err = emit(out, path, cur)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func emit(out *[]protocol.PartialUpdate, path string, value any) error {
	u, err := protocol.EncodeUpdate(path, value)
	if err != nil {
		return err
	}
	*out = append(*out, u)
	return nil
}

// jsonPath escapes segments for gjson path syntax.
func jsonPath(segs []string) string {
	return buildPath(segs, false)
}

// setPath is jsonPath for sjson, which would otherwise create an array for
// an all-digit segment.
func setPath(segs []string) string {
	return buildPath(segs, true)
}

func buildPath(segs []string, forceKeys bool) string {
	var b strings.Builder
	for i, seg := range segs {
		if i > 0 {
			b.WriteByte('.')
		}
		if forceKeys && isDigits(seg) {
			b.WriteByte(':')
		}
		for j := 0; j < len(seg); j++ {
			c := seg[j]
			if !isSafePathChar(c) {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isSafePathChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '_' || c == '-' || c > '~'
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
