package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/idelchi/fenc/internal/config"
)

// EnvPrefix prefixes the environment variables bound to flags, e.g. FENC_PASSWORD.
const EnvPrefix = "FENC"

// newViper binds the environment to flag names with dashes turned into underscores.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

// preRun returns a PreRunE handler that merges flags, environment and the
// selected profile into cfg, stores the positional args as cfg.Files and
// validates the configuration.
func preRun(cfg *config.Config, v *viper.Viper) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("binding flags: %w", err)
		}

		if name := v.GetString("profile"); name != "" {
			settings, err := config.LoadProfile(v.GetString("profiles"), name)
			if err != nil {
				return err
			}

			// Profile values rank below explicit flags and the environment.
			if err := v.MergeConfigMap(settings); err != nil {
				return fmt.Errorf("merging profile %q: %w", name, err)
			}
		}

		decrypt := cfg.Decrypt

		if err := v.Unmarshal(cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}

		cfg.Decrypt = decrypt
		cfg.Files = args

		return cfg.Validate()
	}
}

// parameterFlags registers the parameter selection flags.
func parameterFlags(flags *pflag.FlagSet) {
	flags.String("protocol", "AES", "Block cipher: AES, Serpent, Twofish, Blowfish, CAST5, XTEA or 3DES")
	flags.StringP("mode", "m", "GCM", "Mode of operation: ECB, CBC, CTR, OFB, CFB, GCM, CCM, OCB, EAX, WRAP, XTS or SIV")
	flags.IntP("key-length", "l", 0, "Key length in bits, 0 selects 256 or the longest the protocol takes")
	flags.String("padding", "PKCS7", "Padding for ECB, CBC and XTS: None, PKCS7, ISO10126, ANSIX923 or ISO7816")
	flags.Int("tag-length", 0, "Authentication tag length in bits for AEAD modes, 0 selects the mode default")
	flags.String("kdf", "PBKDF2-SHA256",
		"Key derivation: PBKDF2-SHA1, PBKDF2-SHA256, PBKDF2-SHA512, PBKDF2-SHA3-256, Scrypt or Argon2id")
	flags.String("profile", "", "Name of a parameter profile from --profiles")
	flags.String("profiles", "", "Path to a JSONC file with parameter profiles")
}
