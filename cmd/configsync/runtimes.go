package main

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var runtimesRefresh bool

func init() {
	runtimesCmd.Flags().BoolVarP(&runtimesRefresh, "refresh", "r", false, "scan again after the first result")
	rootCmd.AddCommand(runtimesCmd)
}

var runtimesCmd = &cobra.Command{
	Use:   "runtimes",
	Short: "List installed Java runtimes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, sessionConfig{})
		if err != nil {
			return err
		}
		defer s.Close()

		sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		sp.Suffix = " Looking for Java runtimes"
		sp.Writer = cmd.ErrOrStderr()
		_ = sp.Color("cyan")
		sp.Start()

		s.core.Runtimes(false)
		s.core.WaitRuntimes()
		if runtimesRefresh {
			s.core.Runtimes(true)
			s.core.WaitRuntimes()
		}
		sp.Stop()

		list, _ := s.core.Runtimes(false)
		out := cmd.OutOrStdout()
		if at := s.core.RuntimesFetchedAt(); !at.IsZero() {
			fmt.Fprintf(out, "%s scanned at %s\n", infoMark, at.Format(time.TimeOnly))
		}
		if len(list) == 0 {
			fmt.Fprintf(out, "%s no Java runtimes found\n", warnMark)
			return nil
		}
		for _, rt := range list {
			vendor := rt.Vendor
			if vendor == "" {
				vendor = "unknown vendor"
			}
			fmt.Fprintf(out, "%s %-24s Java %-3d %-14s %s\n", okMark, rt.Name, rt.MajorVersion,
				vendor, color.HiBlackString(rt.ExecPath))
		}
		return nil
	},
}
