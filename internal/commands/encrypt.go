package commands

import (
	"github.com/spf13/cobra"

	"github.com/idelchi/fenc/internal/config"
	"github.com/idelchi/fenc/internal/logic"
)

// NewEncryptCommand creates a new cobra command for the encrypt subcommand.
func NewEncryptCommand(cfg *config.Config) *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:     "encrypt [flags] files...",
		Aliases: []string{"enc"},
		Short:   "Encrypt files",
		Example: `  fenc encrypt report.pdf
  fenc enc --mode OCB --kdf Argon2id -j 8 backup.tar
  fenc enc --profiles profiles.jsonc --profile archive photos.zip`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.Decrypt = false

			return preRun(cfg, v)(cmd, args)
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return logic.Run(cfg)
		},
	}

	parameterFlags(cmd.Flags())

	return cmd
}
