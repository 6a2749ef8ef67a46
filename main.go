// Command fenc encrypts and decrypts files with a password.
package main

import (
	"fmt"
	"os"

	"github.com/idelchi/fenc/internal/commands"
	"github.com/idelchi/fenc/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "unknown"

func main() {
	cfg := &config.Config{}

	root := commands.NewRootCommand(cfg, version)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
