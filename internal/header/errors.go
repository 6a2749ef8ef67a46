package header

import "errors"

// Error codes attached to rich header errors.
const (
	CodeMalformed = "FENC_MALFORMED_HEADER"
	CodeVersion   = "FENC_UNSUPPORTED_VERSION"
)

var (
	// ErrMalformedHeader is returned when the header is truncated or carries
	// out-of-range fields.
	ErrMalformedHeader = errors.New("malformed header")
	// ErrUnsupportedVersion is returned for headers written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported header version")
)
