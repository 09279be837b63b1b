package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <fixture|dir>...",
		Short: "Parse fixtures and list their ops without connecting",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := loadFixtures(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range files {
				fmt.Fprintf(out, "%s (%d ops)\n", f.Path, len(f.Ops))
				for _, op := range f.Ops {
					fmt.Fprintf(out, "  %4d  %s\n", op.Line, op)
				}
			}
			return nil
		},
	}
}
