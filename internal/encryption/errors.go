package encryption

import (
	"errors"

	"github.com/idelchi/fenc/internal/header"
	"github.com/idelchi/fenc/internal/kdf"
	"github.com/idelchi/fenc/internal/modes"
	"github.com/idelchi/fenc/internal/params"
)

// Error codes attached to rich engine errors.
const (
	CodeIO          = "FENC_IO"
	CodeConcurrency = "FENC_CONCURRENCY"
	CodeRequest     = "FENC_INVALID_REQUEST"
)

var (
	// ErrIO is returned when reading the source or writing the destination fails.
	ErrIO = errors.New("i/o error")
	// ErrConcurrency wraps the first failure of a parallel chunk task.
	ErrConcurrency = errors.New("parallel chunk task failed")
	// ErrInvalidRequest is returned for requests missing a source, a password
	// or naming the source as its own destination.
	ErrInvalidRequest = errors.New("invalid request")
)

// The rest of the taxonomy is owned by the packages that detect it.
var (
	ErrUnsupportedCombination = params.ErrUnsupportedCombination
	ErrMalformedHeader        = header.ErrMalformedHeader
	ErrUnsupportedVersion     = header.ErrUnsupportedVersion
	ErrKeyDerivation          = kdf.ErrKeyDerivation
	ErrCipherInit             = modes.ErrCipherInit
	ErrIntegrity              = modes.ErrIntegrity
)
