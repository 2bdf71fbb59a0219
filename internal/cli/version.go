package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the tool version reported by the version command. Release
// builds override it with -ldflags.
var Version = "0.1.0-dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the typewire version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "typewire", Version)
		},
	}
}
