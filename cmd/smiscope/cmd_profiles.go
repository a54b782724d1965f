package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *cli) profilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the registered vendor profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := c.profiles()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVENDOR\tVERSIONS\tDESCRIPTION")
			for _, p := range registry.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, dash(p.Vendor), dash(p.Versions), p.Description)
			}
			return w.Flush()
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
