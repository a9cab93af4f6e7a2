package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func envLoaderWith(vars ...string) *EnvLoader {
	l := NewEnvLoader(EnvPrefix)
	l.environ = func() []string { return vars }
	return l
}

func TestEnvLoader_Load(t *testing.T) {
	l := envLoaderWith(
		"CONFIGSYNC_LOG_LEVEL=debug",
		"CONFIGSYNC_OPTIMISTIC=true",
		"CONFIGSYNC_JAVA_PATHS=/opt/java"+string(os.PathListSeparator)+"/usr/lib/jvm",
		"CONFIGSYNC_CONFIG=/etc/configsync.toml",
		"JAVA_HOME=/opt/jdk-17",
		"HOME=/home/user",
	)

	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := map[string]any{
		"log":  map[string]any{"level": "debug"},
		"sync": map[string]any{"optimistic": true},
		"runtimes": map[string]any{
			"searchPaths": []any{"/opt/java", "/usr/lib/jvm"},
			"javaHome":    "/opt/jdk-17",
		},
	}
	if diff := cmp.Diff(want, config); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvLoader_LoadUnmapped(t *testing.T) {
	l := envLoaderWith("CONFIGSYNC_RUNTIMES_PROBE_TIMEOUT=3s")

	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := map[string]any{"runtimes": map[string]any{"probeTimeout": "3s"}}
	if diff := cmp.Diff(want, config); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvLoader_envToPath(t *testing.T) {
	l := NewEnvLoader(EnvPrefix)

	tests := []struct {
		env  string
		want string
	}{
		{"CONFIGSYNC_RUNTIMES_PROBE_TIMEOUT", "runtimes.probeTimeout"},
		{"CONFIGSYNC_LOG_LEVEL", "log.level"},
		{"CONFIGSYNC_SIMPLE", "simple"},
		{"CONFIGSYNC_DEEP_NESTED_PATH", "deep.nestedPath"},
	}

	for _, tt := range tests {
		if got := l.envToPath(tt.env); got != tt.want {
			t.Errorf("envToPath(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestEnvLoader_parseValue(t *testing.T) {
	l := NewEnvLoader(EnvPrefix)

	tests := []struct {
		input string
		want  any
	}{
		{"true", true},
		{"YES", true},
		{"1", true},
		{"off", false},
		{"0", false},
		{"42", int64(42)},
		{"-10", int64(-10)},
		{"3.14", 3.14},
		{"500ms", "500ms"},
		{`["a","b"]`, []any{"a", "b"}},
		{`{"key":"value"}`, map[string]any{"key": "value"}},
		{`{broken`, `{broken`},
		{"hello world", "hello world"},
		{"", ""},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, l.parseValue(tt.input)); diff != "" {
			t.Errorf("parseValue(%q) mismatch (-want +got):\n%s", tt.input, diff)
		}
	}
}

func TestExpandEnvInString(t *testing.T) {
	t.Setenv("CONFIGSYNC_TEST_DIR", "/srv/launcher")

	if got := ExpandEnvInString("${CONFIGSYNC_TEST_DIR}/settings.json"); got != "/srv/launcher/settings.json" {
		t.Errorf("ExpandEnvInString = %q", got)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got := ExpandEnvInString("~/settings.json")
	if got != filepath.Join(home, "settings.json") || strings.HasPrefix(got, "~") {
		t.Errorf("ExpandEnvInString(~) = %q", got)
	}
}
