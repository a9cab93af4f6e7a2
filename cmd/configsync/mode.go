package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/configsync/internal/config/registry"
)

func init() {
	rootCmd.AddCommand(modeCmd)
}

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Show the colour mode preference and the mode in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, sessionConfig{})
		if err != nil {
			return err
		}
		defer s.Close()

		pref, _ := s.core.Get(registry.PathColorMode)
		following := "no"
		if s.core.FollowsSignal() {
			following = "yes"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "preference: %v\neffective:  %s\nsignal:     %s (following: %s)\n",
			pref, s.core.EffectiveMode(), s.opts.Appearance.Signal, following)
		return nil
	},
}
