package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/configsync/internal/config/registry"
)

var settingsSection string

func init() {
	settingsCmd.Flags().StringVarP(&settingsSection, "section", "S", "", "only list settings in this top-level section")
	rootCmd.AddCommand(settingsCmd)
}

var settingsCmd = &cobra.Command{
	Use:   "settings [query]",
	Short: "List known settings with their current values",
	Long: `Lists the settings the launcher knows about, with type, current value
and description. A query filters by path, description or tag; --section
limits the list to one top-level section such as appearance.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, sessionConfig{})
		if err != nil {
			return err
		}
		defer s.Close()

		reg := s.core.Store().Registry()
		var list []*registry.Setting
		switch {
		case settingsSection != "":
			if !slices.Contains(reg.Sections(), settingsSection) {
				return fmt.Errorf("unknown section %q (have %s)", settingsSection, strings.Join(reg.Sections(), ", "))
			}
			list = reg.Section(settingsSection)
			if len(args) == 1 {
				matches := reg.Search(args[0])
				list = slices.DeleteFunc(list, func(st *registry.Setting) bool {
					return !slices.Contains(matches, st)
				})
			}
		case len(args) == 1:
			list = reg.Search(args[0])
		default:
			list = reg.All()
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, st := range list {
			v, _ := s.core.Get(st.Path)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", color.YellowString(st.Path), st.Type, formatJSON(v), st.Description)
		}
		return w.Flush()
	},
}
