package logic

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/idelchi/fenc/internal/config"
	"github.com/idelchi/gogen/pkg/stdin"
)

// StdinPath as the password file reads the password from piped stdin.
const StdinPath = "-"

var (
	// ErrNoPassword is returned when no password source is configured and
	// stdin is not a terminal.
	ErrNoPassword = errors.New("no password given")
	// ErrPasswordMismatch is returned when the confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Prompter reads one password without echo.
type Prompter func(prompt string) ([]byte, error)

// password resolves the password from the flag or environment, the password
// file or piped stdin, or an interactive prompt that asks twice when confirm is set.
func password(cfg *config.Config, confirm bool, prompt Prompter) ([]byte, error) {
	switch {
	case cfg.Password != "":
		return []byte(cfg.Password), nil
	case cfg.PasswordFile == StdinPath:
		if !stdin.IsPiped() {
			return nil, fmt.Errorf("%w: --password-file %s expects the password on stdin", ErrNoPassword, StdinPath)
		}

		line, err := stdin.Read()
		if err != nil {
			return nil, fmt.Errorf("reading password from stdin: %w", err)
		}

		if line = strings.TrimSuffix(line, "\r"); line == "" {
			return nil, fmt.Errorf("%w: stdin is empty", ErrNoPassword)
		}

		return []byte(line), nil
	case cfg.PasswordFile != "":
		data, err := os.ReadFile(cfg.PasswordFile)
		if err != nil {
			return nil, fmt.Errorf("reading password file: %w", err)
		}

		data = bytes.TrimRight(data, "\r\n")
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: password file %q is empty", ErrNoPassword, cfg.PasswordFile)
		}

		return data, nil
	}

	if prompt == nil {
		return nil, fmt.Errorf("%w: use --password, --password-file or FENC_PASSWORD", ErrNoPassword)
	}

	first, err := prompt("Password: ")
	if err != nil {
		return nil, err
	}

	if !confirm {
		return first, nil
	}

	second, err := prompt("Confirm password: ")
	if err != nil {
		clear(first)

		return nil, err
	}
	defer clear(second)

	if !bytes.Equal(first, second) {
		clear(first)

		return nil, ErrPasswordMismatch
	}

	return first, nil
}

// terminalPrompt reads from stdin without echo, or returns nil when stdin is
// not a terminal.
func terminalPrompt(out io.Writer) Prompter {
	fd := int(os.Stdin.Fd()) //nolint:gosec

	if !term.IsTerminal(fd) {
		return nil
	}

	return func(prompt string) ([]byte, error) {
		fmt.Fprint(out, prompt)

		pw, err := term.ReadPassword(fd)

		fmt.Fprintln(out)

		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}

		if len(pw) == 0 {
			return nil, fmt.Errorf("%w: empty input", ErrNoPassword)
		}

		return pw, nil
	}
}
