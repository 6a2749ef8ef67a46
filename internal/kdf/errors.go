package kdf

import "errors"

// Error codes attached to rich derivation errors.
const (
	CodeDerivation = "FENC_KEY_DERIVATION"
	CodeRandom     = "FENC_RANDOM_SOURCE"
)

// ErrKeyDerivation is returned for unknown KDFs, invalid lengths or a failing
// random source.
var ErrKeyDerivation = errors.New("key derivation error")
