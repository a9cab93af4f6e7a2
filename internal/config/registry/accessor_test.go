package registry

import (
	"errors"
	"testing"

	"github.com/dshills/configsync/internal/config/keypath"
)

type treeValues map[string]any

func (t treeValues) GetValue(path string) (any, bool) {
	return keypath.Get(t, path)
}

func newTestAccessor() *Accessor {
	values := treeValues(map[string]any{
		"appearance": map[string]any{
			"theme": map[string]any{
				"primaryColor": "teal",
			},
		},
		"download": map[string]any{
			"transmission": map[string]any{
				"concurrentCount": 16.0,
			},
		},
		"misc": map[string]any{
			"ratio": 0.5,
			"list":  []any{"a", "b"},
			"mixed": []any{"a", 1},
			"obj":   map[string]any{"k": "v"},
			"frac":  2.5,
		},
	})
	return NewAccessor(NewWithDefaults(), values)
}

func TestAccessor_Get(t *testing.T) {
	a := newTestAccessor()

	v, err := a.Get(PathPrimaryColor)
	if err != nil || v != "teal" {
		t.Errorf("Get(primaryColor) = %v, %v; want teal", v, err)
	}

	v, err = a.Get(PathColorMode)
	if err != nil || v != "light" {
		t.Errorf("Get(colorMode) = %v, %v; want default light", v, err)
	}

	_, err = a.Get("nope.nope")
	if !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrSettingNotFound", err)
	}
}

func TestAccessor_TypedGetters(t *testing.T) {
	a := newTestAccessor()

	if s, err := a.GetString(PathLanguage); err != nil || s != "en" {
		t.Errorf("GetString(language) = %q, %v", s, err)
	}
	if n, err := a.GetInt("download.transmission.concurrentCount"); err != nil || n != 16 {
		t.Errorf("GetInt(concurrentCount) = %d, %v", n, err)
	}
	if f, err := a.GetFloat64("misc.ratio"); err != nil || f != 0.5 {
		t.Errorf("GetFloat64(ratio) = %v, %v", f, err)
	}
	if b, err := a.GetBool("general.optionalFunctions.discover"); err != nil || b {
		t.Errorf("GetBool(discover) = %v, %v", b, err)
	}
	if l, err := a.GetStringSlice("misc.list"); err != nil || len(l) != 2 || l[1] != "b" {
		t.Errorf("GetStringSlice(list) = %v, %v", l, err)
	}
}

func TestAccessor_TypeErrors(t *testing.T) {
	a := newTestAccessor()

	tests := []struct {
		name string
		call func() error
	}{
		{"string of bool", func() error { _, err := a.GetString("general.optionalFunctions.discover"); return err }},
		{"int of fraction", func() error { _, err := a.GetInt("misc.frac"); return err }},
		{"float of string", func() error { _, err := a.GetFloat64(PathPrimaryColor); return err }},
		{"bool of string", func() error { _, err := a.GetBool(PathPrimaryColor); return err }},
		{"slice of mixed", func() error { _, err := a.GetStringSlice("misc.mixed"); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var te *TypeError
			if !errors.As(err, &te) {
				t.Fatalf("error = %v, want *TypeError", err)
			}
			if te.Path == "" {
				t.Error("TypeError.Path should be set")
			}
		})
	}
}

func TestTypeError_Is(t *testing.T) {
	a := newTestAccessor()
	_, err := a.GetBool(PathPrimaryColor)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("errors.Is(%v, ErrTypeMismatch) = false", err)
	}
}
