// Package main is the entry point for the configsync command.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dshills/configsync/internal/config/loader"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Persistent flags.
var (
	configFile   string
	settingsFile string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "configsync",
	Short: "Inspect and edit launcher settings through the synchronization core",
	Long: `configsync keeps an in-process mirror of the launcher settings file in
step with the file itself. Every read goes through the mirror and every
write goes through the settings backend, exactly as the launcher does.

Options are read from --config (or CONFIGSYNC_CONFIG), a TOML, YAML or JSON
file, and then from CONFIGSYNC_* environment variables.`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetGlobalNormalizationFunc(normalizeFlag)
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv(loader.EnvConfigFile), "options file")
	rootCmd.PersistentFlags().StringVarP(&settingsFile, "settings", "s", "", "launcher settings file (overrides options)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error, off")
}

// normalizeFlag accepts --log_level for --log-level.
func normalizeFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		fmt.Fprintln(os.Stderr, color.RedString("✗")+" "+err.Error())
		return 1
	}
	return 0
}
