package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X go-grid-engine/cmd.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewVersionCommand returns the command to get the gridengine version
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Return the gridengine version",
		Long:  "Return the gridengine version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}
}

// print out the built version
func version(cmd *cobra.Command, _ []string) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "gridengine version %s date %s commit %s\n", Version, Date, Commit)
	return err
}
