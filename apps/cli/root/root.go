package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the Veritest admin CLI. Subcommands (refvalues, defects) are attached here.
var rootCmd = &cobra.Command{
	Use:           "veritest",
	Short:         "Veritest admin CLI",
	Long:          "Administrative utilities for Veritest (reference value seeding, defect exports).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
