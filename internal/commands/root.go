package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/idelchi/fenc/internal/config"
	"github.com/idelchi/fenc/internal/encryption"
	"github.com/idelchi/gogen/pkg/cobraext"
)

// NewRootCommand creates the root command with common configuration.
// It sets up environment variable binding and flag handling.
func NewRootCommand(cfg *config.Config, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "fenc [flags] command [flags]",
		Short: "Password based file encryption",
		Long: `A file encryption utility with a choice of block ciphers, modes of operation,
paddings and key derivation functions. The parameters are stored in the header
of every encrypted file, so decryption only needs the password.

Flags can also be set through the environment with the FENC_ prefix,
e.g. FENC_PASSWORD or FENC_CHUNK_SIZE.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE:              cobraext.UnknownSubcommandAction,
	}

	root.SetVersionTemplate("{{ .Version }}\n")

	root.PersistentFlags().IntP("threads", "j", runtime.NumCPU(), "Number of parallel workers, defaults to number of CPUs")
	root.PersistentFlags().String("chunk-size", "1MiB", "Streaming buffer and parallel chunk size")
	root.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-error output")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log progress and run details")
	root.PersistentFlags().Bool("stats", false, "Print a summary when done")

	root.PersistentFlags().StringP("password", "p", "", "Password, prefer FENC_PASSWORD or --password-file")
	root.PersistentFlags().StringP("password-file", "f", "", "Path to a file holding the password, - reads it from piped stdin")

	root.PersistentFlags().StringP("output", "o", "",
		"Output path, defaults to the input with "+encryption.Suffix+" appended or stripped")
	root.PersistentFlags().Bool("force", false, "Overwrite existing output files")
	root.PersistentFlags().BoolP("delete", "d", false, "Delete the original file after successful encryption/decryption")
	root.PersistentFlags().BoolP("preserve-timestamps", "t", false, "Copy the modification time of the input to the output")

	root.AddCommand(
		NewEncryptCommand(cfg),
		NewDecryptCommand(cfg),
		NewInspectCommand(),
		NewListCommand(),
	)

	return root
}
