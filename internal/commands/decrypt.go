package commands

import (
	"github.com/spf13/cobra"

	"github.com/idelchi/fenc/internal/config"
	"github.com/idelchi/fenc/internal/logic"
)

// NewDecryptCommand creates a new cobra command for the decrypt subcommand.
func NewDecryptCommand(cfg *config.Config) *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:     "decrypt [flags] files...",
		Aliases: []string{"dec"},
		Short:   "Decrypt files",
		Long: `Decrypt files with the parameters stored in their headers.
With --override the parameter flags or the selected profile are used instead.`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.Decrypt = true

			return preRun(cfg, v)(cmd, args)
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return logic.Run(cfg)
		},
	}

	parameterFlags(cmd.Flags())
	cmd.Flags().Bool("override", false, "Ignore the header parameters and use the parameter flags")

	return cmd
}
