package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "explorer",
		Short:         "Browse STEM datasets and publication lists",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(
		newDatasetsCmd(),
		newShowCmd(),
		newPublicationsCmd(),
	)
	return root
}
