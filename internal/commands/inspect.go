package commands

import (
	"github.com/spf13/cobra"

	"github.com/idelchi/fenc/internal/logic"
)

// NewInspectCommand creates a new cobra command that prints file headers.
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "inspect files...",
		Aliases: []string{"info"},
		Short:   "Print the header of encrypted files",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return logic.Inspect(cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
		},
	}
}
