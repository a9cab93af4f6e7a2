package loader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dshills/configsync/internal/config/keypath"
)

// EnvPrefix is the prefix of every environment variable the loader reads.
const EnvPrefix = "CONFIGSYNC_"

// EnvConfigFile names the options file. It is consumed by the caller, not
// loaded as a value.
const EnvConfigFile = EnvPrefix + "CONFIG"

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string
	mapping map[string]string // env var -> config path
	lists   map[string]bool   // config paths holding path lists
	skip    map[string]bool
	environ func() []string
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "CONFIGSYNC_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(),
		lists:   map[string]bool{"runtimes.searchPaths": true},
		skip:    map[string]bool{EnvConfigFile: true},
		environ: os.Environ,
	}
}

func defaultEnvMapping() map[string]string {
	return map[string]string{
		EnvPrefix + "SETTINGS":     "settings.file",
		EnvPrefix + "LOG_LEVEL":    "log.level",
		EnvPrefix + "LOG_FORMAT":   "log.format",
		EnvPrefix + "OPTIMISTIC":   "sync.optimistic",
		EnvPrefix + "COLOR_SIGNAL": "appearance.signal",
		EnvPrefix + "JAVA_PATHS":   "runtimes.searchPaths",
		"JAVA_HOME":                "runtimes.javaHome",
	}
}

// Load reads environment variables and returns a configuration map.
// Empty values are kept; they are not treated as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)
	vars := make(map[string]string)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok {
			vars[name] = value
		}
	}

	for env, path := range l.mapping {
		if val, ok := vars[env]; ok {
			l.set(config, path, val)
		}
	}

	for name, value := range vars {
		if !strings.HasPrefix(name, l.prefix) || l.skip[name] {
			continue
		}
		if _, ok := l.mapping[name]; ok {
			continue
		}
		l.set(config, l.envToPath(name), value)
	}

	return config, nil
}

func (l *EnvLoader) set(config map[string]any, path, raw string) {
	var value any
	if l.lists[path] {
		list := make([]any, 0)
		for _, p := range filepath.SplitList(raw) {
			if p != "" {
				list = append(list, p)
			}
		}
		value = list
	} else {
		value = l.parseValue(raw)
	}
	// Paths built from env names never contain empty segments, and a value
	// that collides with an earlier branch simply loses.
	_ = keypath.Apply(config, path, value)
}

// envToPath converts CONFIGSYNC_RUNTIMES_PROBE_TIMEOUT to runtimes.probeTimeout.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.TrimPrefix(env, l.prefix)
	parts := strings.Split(name, "_")

	section := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return section
	}

	setting := strings.ToLower(parts[1])
	for _, part := range parts[2:] {
		if part != "" {
			setting += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return section + "." + setting
}

// parseValue attempts to parse the string value into an appropriate type.
// Durations stay strings; the options decoder parses them.
func (l *EnvLoader) parseValue(s string) any {
	if s == "" {
		return s
	}

	lower := strings.ToLower(s)
	if lower == "true" || lower == "yes" || lower == "on" || s == "1" {
		return true
	}
	if lower == "false" || lower == "no" || lower == "off" || s == "0" {
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}

	return s
}

// ExpandEnvInString expands environment variables and a leading ~ in s.
func ExpandEnvInString(s string) string {
	s = os.ExpandEnv(s)
	if s == "~" || strings.HasPrefix(s, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			s = filepath.Join(home, strings.TrimPrefix(s, "~"))
		}
	}
	return s
}
