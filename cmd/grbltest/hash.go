package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mastercactapus/grbltest/fixture"
)

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print the SHA-256 used to decide whether a file needs uploading",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				h, err := fixture.FileHash(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", h, path)
			}
			return nil
		},
	}
}
