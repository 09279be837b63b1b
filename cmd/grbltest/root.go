package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mastercactapus/grbltest/transport"
)

// deps holds the pieces of the CLI that touch hardware.
type deps struct {
	open func(port string, baud int) (io.ReadWriteCloser, error)
}

func defaultDeps() deps {
	return deps{open: transport.Open}
}

func newRootCmd(d deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "grbltest",
		Short:         "grbltest - run conformance fixtures against a Grbl/FluidNC controller",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error, disabled).")

	root.AddCommand(newRunCmd(d))
	root.AddCommand(newCheckCmd())
	root.AddCommand(newHashCmd())
	return root
}
