package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/crx-packager/internal/service/inspect"
)

func newInspectCommand() *cobra.Command {
	var options inspect.Options

	inspectCmd := &cobra.Command{
		Use:   "inspect [package]",
		Short: "Verify a .crx file and print its contents.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Path = args[0]

			_, err := inspect.Run(cmd.Context(), &options, cmd.OutOrStdout())

			return err
		},
	}

	inspectCmd.Flags().StringVarP(&options.Description, "description", "d", "", "build description to compare against")

	return inspectCmd
}
