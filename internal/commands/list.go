package commands

import (
	"github.com/spf13/cobra"

	"github.com/idelchi/fenc/internal/logic"
)

// NewListCommand creates a new cobra command that prints the supported parameters.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List protocols, modes, key and tag lengths, paddings and key derivation functions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return logic.List(cmd.OutOrStdout())
		},
	}
}
