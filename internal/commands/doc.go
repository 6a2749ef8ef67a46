// Package commands provides the command-line interface for the fenc tool.
//
// It implements commands for:
//   - encryption
//   - decryption
//   - header inspection
//   - listing the supported parameters
//
// The package handles command-line parsing, configuration validation,
// and environment variable binding through cobra and viper.
package commands
