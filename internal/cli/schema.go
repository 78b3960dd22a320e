package cli

import (
	"github.com/spf13/cobra"

	"github.com/slicertools/profshift/pkg/config"
)

func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema for rule configuration files",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Print(string(config.SchemaJSON))
		},
	}
}
