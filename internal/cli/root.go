// Package cli implements the typewire command line interface: document
// generation, the shape dump debugging aid, and version reporting.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the typewire CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "typewire",
		Short: "Generate OpenAPI 3.1 documents from TypeScript route types",
		Long: "typewire resolves an application's route tree from TypeScript type metadata " +
			"and emits a deterministic OpenAPI 3.1 document, without executing any application code.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into usage errors that
	// also show the command's help text.
	flagErr := func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	}
	cmd.SetFlagErrorFunc(flagErr)

	cmd.PersistentFlags().Bool("quiet", false, "Suppress analysis warnings")
	cmd.PersistentFlags().Bool("strict", false, "Treat analysis warnings as errors")

	for _, sub := range []*cobra.Command{newGenerateCmd(), newDumpShapesCmd(), newVersionCmd()} {
		sub.SetFlagErrorFunc(flagErr)
		cmd.AddCommand(sub)
	}

	return cmd
}
