package registry

import (
	"errors"
	"testing"

	"github.com/dshills/configsync/internal/config/keypath"
)

func TestRegistry_Register(t *testing.T) {
	r := New()

	err := r.Register(Setting{
		Path:    "appearance.theme.primaryColor",
		Type:    TypeString,
		Default: "blue",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	err = r.Register(Setting{Path: "appearance.theme.primaryColor", Type: TypeString})
	if !errors.Is(err, ErrSettingAlreadyRegistered) {
		t.Errorf("duplicate Register error = %v, want ErrSettingAlreadyRegistered", err)
	}

	for _, bad := range []string{"", "a..b"} {
		if err := r.Register(Setting{Path: bad}); !errors.Is(err, keypath.ErrInvalidPath) {
			t.Errorf("Register(%q) error = %v, want ErrInvalidPath", bad, err)
		}
	}
}

func TestRegistry_MustRegister_Panics(t *testing.T) {
	r := New()
	r.MustRegister(Setting{Path: "test.setting", Type: TypeString})

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for duplicate MustRegister")
		}
	}()

	r.MustRegister(Setting{Path: "test.setting", Type: TypeString})
}

func TestRegistry_GetHas(t *testing.T) {
	r := NewWithDefaults()

	s := r.Get(PathColorMode)
	if s == nil {
		t.Fatal("colorMode should be registered")
	}
	if s.Default != "light" {
		t.Errorf("colorMode default = %v, want light", s.Default)
	}
	if !r.Has(PathLanguage) {
		t.Error("language should be registered")
	}
	if r.Has("appearance.theme") {
		t.Error("branch path should not be registered")
	}
	if r.Get("nope") != nil {
		t.Error("Get of unknown path should be nil")
	}
}

func TestRegistry_Sections(t *testing.T) {
	r := NewWithDefaults()

	sections := r.Sections()
	want := []string{"appearance", "download", "general"}
	if len(sections) != len(want) {
		t.Fatalf("Sections() = %v, want %v", sections, want)
	}
	for i := range want {
		if sections[i] != want[i] {
			t.Errorf("Sections()[%d] = %q, want %q", i, sections[i], want[i])
		}
	}

	appearance := r.Section("appearance")
	if len(appearance) == 0 {
		t.Fatal("appearance section empty")
	}
	for i := 1; i < len(appearance); i++ {
		if appearance[i-1].Path > appearance[i].Path {
			t.Error("Section result not sorted")
		}
	}
}

func TestRegistry_Search(t *testing.T) {
	r := NewWithDefaults()

	results := r.Search("accessibility")
	if len(results) != 2 {
		t.Fatalf("Search(accessibility) returned %d results, want 2", len(results))
	}
	if results[0].Path != "appearance.accessibility.enhanceContrast" {
		t.Errorf("first result = %s", results[0].Path)
	}

	if got := r.Search("no-such-thing"); len(got) != 0 {
		t.Errorf("Search(no-such-thing) = %d results, want 0", len(got))
	}
}

func TestRegistry_Validate(t *testing.T) {
	r := NewWithDefaults()

	tests := []struct {
		name     string
		path     string
		value    any
		wantErr  error
		wantFail bool
	}{
		{"palette colour", PathPrimaryColor, "teal", nil, false},
		{"hex colour", PathPrimaryColor, "#ff8800", nil, false},
		{"bad colour", PathPrimaryColor, "chartreuse-ish", nil, true},
		{"system mode", PathColorMode, "system", nil, false},
		{"bad mode", PathColorMode, "auto", nil, true},
		{"nav style", PathHeadNavStyle, "simplified-left", nil, false},
		{"language tag", PathLanguage, "zh-Hans", nil, false},
		{"bad language", PathLanguage, "English", nil, true},
		{"concurrency from json", "download.transmission.concurrentCount", 16.0, nil, false},
		{"concurrency too high", "download.transmission.concurrentCount", 500.0, nil, true},
		{"unknown path", "appearance.theme.sparkles", true, ErrSettingNotFound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Validate(tt.path, tt.value)
			if (err != nil) != tt.wantFail {
				t.Fatalf("Validate(%s, %v) error = %v, wantFail %v", tt.path, tt.value, err, tt.wantFail)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if err != nil && tt.wantErr == nil {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("error should be *ValidationError, got %T", err)
				} else if ve.Path != tt.path {
					t.Errorf("ValidationError.Path = %q, want %q", ve.Path, tt.path)
				}
			}
		})
	}
}

func TestRegistry_DefaultTree(t *testing.T) {
	r := NewWithDefaults()
	tree := r.DefaultTree()

	for _, s := range r.All() {
		got, ok := keypath.Get(tree, s.Path)
		if !ok {
			t.Errorf("default tree missing %s", s.Path)
			continue
		}
		if !keypath.Equal(got, s.Default) {
			t.Errorf("%s = %v, want %v", s.Path, got, s.Default)
		}
		if err := s.Validate(s.Default); err != nil {
			t.Errorf("default for %s does not validate: %v", s.Path, err)
		}
	}
}

func TestRegistry_DefaultIsCopy(t *testing.T) {
	r := New()
	r.MustRegister(Setting{Path: "a.list", Type: TypeArray, Default: []any{"x"}})

	d := r.Default("a.list").([]any)
	d[0] = "mutated"

	if r.Default("a.list").([]any)[0] != "x" {
		t.Error("Default should return a copy")
	}
	if r.Default("missing") != nil {
		t.Error("Default of unknown path should be nil")
	}
}
