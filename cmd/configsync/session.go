package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/configsync/internal/app"
	"github.com/dshills/configsync/internal/backend"
	"github.com/dshills/configsync/internal/channel"
	"github.com/dshills/configsync/internal/colormode"
	"github.com/dshills/configsync/internal/config/registry"
)

// session is one core wired to the file backend.
type session struct {
	opts    app.Options
	logger  zerolog.Logger
	service *backend.Service
	channel *channel.Local
	core    *app.Core
	applier *colormode.StateApplier
	closers []func() error
}

type sessionConfig struct {
	watchFile bool
	coreOpts  []app.Option
}

// openSession loads options, opens the settings file and starts a core.
// The initial retrieval has completed when it returns.
func openSession(cmd *cobra.Command, cfg sessionConfig) (*session, error) {
	ctx := cmd.Context()

	opts, err := app.LoadOptions(configFile)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	if settingsFile != "" {
		opts.Settings.File = settingsFile
	}
	if logLevel != "" {
		opts.Log.Level = logLevel
	}

	logCfg := app.DefaultLoggerConfig()
	logCfg.Level = app.ParseLogLevel(opts.Log.Level)
	logCfg.Format = opts.Log.Format
	logCfg.Output = os.Stderr
	logger := app.NewLogger(logCfg)

	s := &session{opts: opts, logger: logger}

	reg := registry.NewWithDefaults()
	store, err := backend.OpenFileStore(opts.Settings.File, reg.DefaultTree(), backend.WithStoreLogger(logger))
	if err != nil {
		return nil, err
	}

	s.service = backend.NewService(store, newScanner(opts, logger),
		backend.WithServiceRegistry(reg),
		backend.WithServiceLogger(logger),
	)
	s.closers = append(s.closers, s.service.Close)
	if cfg.watchFile {
		if err := s.service.Start(); err != nil {
			s.Close()
			return nil, fmt.Errorf("watch %s: %w", store.Path(), err)
		}
	}

	s.channel = channel.NewLocal(s.service, channel.WithLogger(logger))
	s.closers = append(s.closers, s.channel.Close)

	sig := openSignal(ctx, opts.Appearance.Signal, logger)
	if c, ok := sig.(interface{ Close() error }); ok {
		s.closers = append(s.closers, c.Close)
	}
	s.applier = colormode.NewStateApplier(colormode.Light)

	coreOpts := []app.Option{
		app.WithLogger(logger),
		app.WithRegistry(reg),
		app.WithSignal(sig),
		app.WithApplier(s.applier),
		app.WithReporter(cliReporter{}),
		app.WithOptimisticUpdates(opts.Sync.Optimistic),
		app.WithRuntimesTimeout(4 * opts.ProbeTimeoutDuration()),
	}
	s.core = app.New(s.channel, append(coreOpts, cfg.coreOpts...)...)
	s.closers = append(s.closers, s.core.Close)

	if err := s.core.Start(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.core.Reload(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close shuts down in reverse order of opening.
func (s *session) Close() error {
	var errs app.ErrorList
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs.Add(s.closers[i]())
	}
	s.closers = nil
	return errs.AsError()
}

func newScanner(opts app.Options, logger zerolog.Logger) *backend.RuntimeScanner {
	scanOpts := []backend.ScannerOption{
		backend.WithProbeTimeout(opts.ProbeTimeoutDuration()),
		backend.WithScannerLogger(logger),
	}
	if opts.Runtimes.JavaHome != "" {
		scanOpts = append(scanOpts, backend.WithJavaHome(opts.Runtimes.JavaHome))
	}
	if len(opts.Runtimes.SearchPaths) > 0 {
		scanOpts = append(scanOpts, backend.WithSearchPaths(opts.Runtimes.SearchPaths...))
	}
	return backend.NewRuntimeScanner(scanOpts...)
}

// openSignal picks the OS dark-mode signal named by source.
func openSignal(ctx context.Context, source string, logger zerolog.Logger) colormode.Signal {
	switch source {
	case app.SignalDark:
		return colormode.NewManualSignal(true)
	case app.SignalLight:
		return colormode.NewManualSignal(false)
	}

	portal, err := colormode.NewPortalSignal(ctx, logger)
	if err == nil {
		return portal
	}
	if source == app.SignalPortal {
		logger.Warn().Err(err).Msg("desktop portal unavailable")
	} else {
		logger.Debug().Err(err).Msg("desktop portal unavailable, assuming light")
	}
	return colormode.NewManualSignal(false)
}
