package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/configsync/internal/config/loader"
)

var (
	getFormat string
	getPlain  bool
)

func init() {
	getCmd.Flags().StringVarP(&getFormat, "format", "f", "json", "output format: json, yaml or toml")
	getCmd.Flags().BoolVarP(&getPlain, "plain", "p", false, "print a single setting as bare text")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get [path]",
	Short: "Print a setting, a section, or the whole configuration",
	Long: `Prints the value at a dot-separated path. Without a path the whole
configuration is printed. Settings missing from the file resolve to their
defaults.

Examples:
  configsync get appearance.theme.primaryColor
  configsync get appearance --format yaml
  configsync get download.transmission.concurrentCount --plain`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := loader.ParseFormat(getFormat)
		if err != nil {
			return err
		}
		path := ""
		if len(args) == 1 {
			path = args[0]
		}

		s, err := openSession(cmd, sessionConfig{})
		if err != nil {
			return err
		}
		defer s.Close()

		if getPlain {
			text, err := plainValue(s.core.Store(), path)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		}

		v, ok := s.core.Get(path)
		if !ok {
			return fmt.Errorf("no setting at %s", path)
		}
		out, err := encodeValue(format, path, v)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}
