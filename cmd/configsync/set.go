package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/configsync/internal/config/keypath"
	"github.com/dshills/configsync/internal/config/notify"
)

var setTimeout time.Duration

func init() {
	setCmd.Flags().DurationVar(&setTimeout, "timeout", 5*time.Second, "how long to wait for the change to come back")
	rootCmd.AddCommand(setCmd)
}

var setCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Change a setting",
	Long: `Sends a change to the settings backend and waits until the backend's
change event has updated the mirror. The value is JSON; anything that does
not parse as JSON is taken as a plain string.

Examples:
  configsync set appearance.theme.primaryColor teal
  configsync set appearance.theme.colorMode '"system"'
  configsync set download.transmission.concurrentCount 32`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		value := parseArgValue(args[1])

		s, err := openSession(cmd, sessionConfig{})
		if err != nil {
			return err
		}
		defer s.Close()

		applied := make(chan struct{})
		var once bool
		sub := s.core.Store().SubscribePath(path, func(c notify.Change) {
			if once || c.Source == notify.SourceLocal {
				return
			}
			if v, _ := s.core.Get(path); keypath.Equal(v, value) {
				once = true
				close(applied)
			}
		})
		defer sub.Unsubscribe()

		if err := s.core.Update(cmd.Context(), path, value); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), setTimeout)
		defer cancel()
		select {
		case <-applied:
		case <-ctx.Done():
			return fmt.Errorf("%s: change sent but not confirmed: %w", path, ctx.Err())
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", okMark, path, formatJSON(value))
		return nil
	},
}

// parseArgValue reads a command-line value as JSON, falling back to a
// string.
func parseArgValue(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return arg
	}
	return v
}

func formatJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
