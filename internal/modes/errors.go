package modes

import (
	"errors"
	"fmt"
)

var (
	// ErrCipherInit is returned when a cipher or mode rejects its key, IV or
	// parameters, or when the body length cannot be processed by the mode.
	ErrCipherInit = errors.New("cipher initialization error")
	// ErrIntegrity is returned when authentication, unwrapping or padding
	// verification fails on decryption.
	ErrIntegrity = errors.New("integrity check failed")
	// ErrInvalidPadding is returned when padding is malformed.
	ErrInvalidPadding = errors.New("invalid padding")
)

func initError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCipherInit, fmt.Sprintf(format, args...))
}

func integrityError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIntegrity, fmt.Sprintf(format, args...))
}
