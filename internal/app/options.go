package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/configsync/internal/config/loader"
)

// Colour signal sources.
const (
	SignalAuto   = "auto"   // desktop portal, falling back to light
	SignalPortal = "portal" // desktop portal only
	SignalLight  = "light"  // fixed light
	SignalDark   = "dark"   // fixed dark
)

// Options is the configuration of the configsync process itself, as opposed
// to the launcher settings it synchronizes.
type Options struct {
	Settings struct {
		File string `json:"file"`
	} `json:"settings"`

	Log struct {
		Level  string `json:"level"`
		Format string `json:"format"`
	} `json:"log"`

	Sync struct {
		Optimistic bool `json:"optimistic"`
	} `json:"sync"`

	Runtimes struct {
		JavaHome     string   `json:"javaHome"`
		SearchPaths  []string `json:"searchPaths"`
		ProbeTimeout string   `json:"probeTimeout"`
	} `json:"runtimes"`

	Appearance struct {
		Signal string `json:"signal"`
	} `json:"appearance"`
}

// DefaultOptions returns the built-in options.
func DefaultOptions() Options {
	var o Options
	o.Settings.File = defaultSettingsFile()
	o.Log.Level = "info"
	o.Log.Format = LogFormatConsole
	o.Runtimes.ProbeTimeout = "5s"
	o.Appearance.Signal = SignalAuto
	return o
}

func defaultSettingsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "configsync", "settings.json")
}

// LoadOptions reads options from path (TOML, YAML or JSON, chosen by
// extension) with CONFIGSYNC_* environment variables layered on top. An
// empty path skips the file; a missing file is not an error.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	var loaders []loader.Loader
	if path != "" {
		fl, err := loader.NewFileLoader(loader.ExpandEnvInString(path))
		if err != nil {
			return opts, err
		}
		loaders = append(loaders, fl)
	}
	loaders = append(loaders, loader.NewEnvLoader(loader.EnvPrefix))

	tree, err := loader.Chain(loaders...)
	if err != nil {
		return opts, err
	}

	// Decoding over the defaults keeps every field the sources leave out.
	data, err := json.Marshal(tree)
	if err != nil {
		return opts, fmt.Errorf("encode options: %w", err)
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("decode options: %w", err)
	}

	opts.Settings.File = loader.ExpandEnvInString(opts.Settings.File)
	opts.Runtimes.JavaHome = loader.ExpandEnvInString(opts.Runtimes.JavaHome)
	for i, p := range opts.Runtimes.SearchPaths {
		opts.Runtimes.SearchPaths[i] = loader.ExpandEnvInString(p)
	}

	return opts, opts.Validate()
}

// ProbeTimeoutDuration returns the runtime probe timeout.
func (o Options) ProbeTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(o.Runtimes.ProbeTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// Validate checks option values.
func (o Options) Validate() error {
	var errs ErrorList
	if o.Settings.File == "" {
		errs.Add(fmt.Errorf("settings.file: must not be empty"))
	}
	switch o.Log.Format {
	case LogFormatConsole, LogFormatJSON:
	default:
		errs.Add(fmt.Errorf("log.format: unknown format %q", o.Log.Format))
	}
	switch o.Appearance.Signal {
	case SignalAuto, SignalPortal, SignalLight, SignalDark:
	default:
		errs.Add(fmt.Errorf("appearance.signal: unknown source %q", o.Appearance.Signal))
	}
	if o.Runtimes.ProbeTimeout != "" {
		if d, err := time.ParseDuration(o.Runtimes.ProbeTimeout); err != nil || d <= 0 {
			errs.Add(fmt.Errorf("runtimes.probeTimeout: invalid duration %q", o.Runtimes.ProbeTimeout))
		}
	}
	return errs.AsError()
}
