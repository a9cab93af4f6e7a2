package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/configsync/internal/colormode"
	"github.com/dshills/configsync/internal/config/notify"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream setting changes as they happen",
	Long: `Watches the settings file and prints every change that reaches the
mirror, including edits made by other programs, until interrupted. Display
mode changes are printed as well.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, sessionConfig{watchFile: true})
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		s.applier.OnChange(func(m colormode.Mode) {
			fmt.Fprintf(out, "%s display mode %s\n", infoMark, color.MagentaString(string(m)))
		})
		sub := s.core.Store().Subscribe(func(c notify.Change) {
			stamp := time.Now().Format(time.TimeOnly)
			if c.Type == notify.ChangeReload {
				fmt.Fprintf(out, "%s %s configuration reloaded\n", stamp, infoMark)
				return
			}
			fmt.Fprintf(out, "%s %s %s: %s %s %s\n", stamp, okMark, color.YellowString(c.Path),
				formatJSON(c.OldValue), infoMark, formatJSON(c.NewValue))
		})
		defer sub.Unsubscribe()

		fmt.Fprintf(out, "%s watching %s (mode %s)\n", infoMark, s.opts.Settings.File, s.core.EffectiveMode())
		<-cmd.Context().Done()
		return nil
	},
}
