// Package keypath addresses values inside a nested configuration tree by
// dot-separated key paths such as "appearance.theme.primaryColor".
//
// A tree is a map[string]any whose branches are map[string]any and whose
// leaves are anything else (strings, numbers, booleans, slices, nil).
// Apply is the single mutation primitive used for both local writes and
// backend-originated partial updates.
package keypath

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrInvalidPath indicates a malformed path (e.g. an empty segment).
	ErrInvalidPath = errors.New("invalid key path")

	// ErrNotBranch indicates a path prefix resolves to a leaf, so the
	// remaining segments cannot be walked.
	ErrNotBranch = errors.New("path prefix is not a branch")
)

// PathError reports which prefix of a path failed to resolve.
type PathError struct {
	Path   string
	Prefix string
	Err    error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	if e.Prefix == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %q: %v", e.Path, e.Prefix, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *PathError) Unwrap() error {
	return e.Err
}

// Split splits a dot-separated path into its segments.
// The empty path has zero segments and addresses the root.
func Split(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, &PathError{Path: path, Err: ErrInvalidPath}
		}
	}
	return parts, nil
}

// Join joins segments into a dot-separated path.
func Join(parts ...string) string {
	return strings.Join(parts, ".")
}

// Get returns the value at path. The empty path returns root itself.
func Get(root map[string]any, path string) (any, bool) {
	parts, err := Split(path)
	if err != nil || root == nil {
		return nil, false
	}
	if len(parts) == 0 {
		return root, true
	}

	current := any(root)
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Apply sets value at path inside root, creating missing branches.
//
// The final segment is replaced wholesale: an object value replaces the
// whole subtree, it is never merged. If an existing prefix segment holds a
// leaf, Apply returns ErrNotBranch and root is left untouched. The empty
// path replaces the contents of root and requires an object value.
func Apply(root map[string]any, path string, value any) error {
	if root == nil {
		return &PathError{Path: path, Err: ErrInvalidPath}
	}
	parts, err := Split(path)
	if err != nil {
		return err
	}

	if len(parts) == 0 {
		obj, ok := value.(map[string]any)
		if !ok {
			return &PathError{Path: path, Err: ErrInvalidPath}
		}
		replacement := cloneMap(obj)
		for k := range root {
			delete(root, k)
		}
		for k, v := range replacement {
			root[k] = v
		}
		return nil
	}

	// Validate the walk before touching anything so a failure leaves the
	// tree exactly as it was.
	current := root
	depth := 0
	for ; depth < len(parts)-1; depth++ {
		next, ok := current[parts[depth]]
		if !ok {
			break
		}
		nextMap, ok := next.(map[string]any)
		if !ok {
			return &PathError{
				Path:   path,
				Prefix: Join(parts[:depth+1]...),
				Err:    ErrNotBranch,
			}
		}
		current = nextMap
	}

	for ; depth < len(parts)-1; depth++ {
		next := make(map[string]any)
		current[parts[depth]] = next
		current = next
	}

	current[parts[len(parts)-1]] = CloneValue(value)
	return nil
}

// Delete removes the value at path. Returns true if something was removed.
func Delete(root map[string]any, path string) bool {
	parts, err := Split(path)
	if err != nil || len(parts) == 0 || root == nil {
		return false
	}

	current := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return false
		}
		current = next
	}

	key := parts[len(parts)-1]
	if _, ok := current[key]; !ok {
		return false
	}
	delete(current, key)
	return true
}

// Clone returns a deep copy of a tree.
func Clone(root map[string]any) map[string]any {
	if root == nil {
		return nil
	}
	return cloneMap(root)
}

// CloneValue deep-copies maps and slices; other values are returned as is.
func CloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		return cloneSlice(v)
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	default:
		return val
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

func cloneSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = CloneValue(v)
	}
	return out
}

// Merge recursively merges src into dst and returns dst.
// Branches present in both are merged; any other src value replaces dst.
func Merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for key, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = Merge(dstMap, srcMap)
			continue
		}
		dst[key] = CloneValue(srcVal)
	}
	return dst
}

// Flatten maps every leaf path in root to its value.
// Empty branches do not appear in the result.
func Flatten(root map[string]any) map[string]any {
	result := make(map[string]any)
	flatten(root, "", result)
	return result
}

func flatten(data map[string]any, prefix string, result map[string]any) {
	for key, val := range data {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flatten(nested, full, result)
			continue
		}
		result[full] = val
	}
}

// Equal reports whether two values are deeply equal. Numbers compare by
// value, so int(32) equals the float64(32) a JSON decode produces.
func Equal(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = normalize(e)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, e := range x {
			s[i] = normalize(e)
		}
		return s
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	}
	return v
}
