package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "scopetree",
		Short:         "Walk a tree of scoped channel bindings",
		Long:          `scopetree runs a YAML tree document: nodes bind channels for their subtree, update shared cells and print what every node resolves.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("draw", false, "Draw the traversed tree after the resolutions")

	rootCmd.AddCommand(newRunCmd(), newDemoCmd(), newVersionCmd())
	return rootCmd
}
