// Package kdf turns passwords into symmetric keys and provides the random
// source used for salts and IVs.
package kdf

import (
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // PBKDF2-SHA1 is kept for compatibility
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"

	goerrors "github.com/agilira/go-errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/crypto/sha3"

	"github.com/idelchi/fenc/internal/params"
)

// Fixed derivation costs. They are not stored in the header, so changing any
// of them breaks decryption of existing files.
const (
	PBKDF2Iterations = 100_000

	ScryptN = 1 << 15
	ScryptR = 8
	ScryptP = 1

	Argon2Time    = 3
	Argon2Memory  = 64 * 1024
	Argon2Threads = 4
)

// Key holds derived key material for the duration of one run.
type Key struct {
	full []byte
	size int
}

// Operative returns the first key_bits/8 bytes handed to the cipher.
func (k *Key) Operative() []byte { return k.full[:k.size] }

// Full returns the whole derived buffer, twice the operative length for
// double-width modes.
func (k *Key) Full() []byte { return k.full }

// Wipe zeroes the key material.
func (k *Key) Wipe() {
	clear(k.full)
}

// Derive stretches password with salt into keyBits of key material, or twice
// that when double is set.
func Derive(password, salt []byte, kdf params.KDF, keyBits int, double bool) (*Key, error) {
	if keyBits <= 0 || keyBits%8 != 0 {
		return nil, failure("key length %d is not a positive multiple of 8", keyBits)
	}

	if len(salt) == 0 {
		return nil, failure("salt must not be empty")
	}

	size := keyBits / 8

	length := size
	if double {
		length *= 2
	}

	var full []byte

	switch kdf {
	case params.PBKDF2SHA1:
		full = pbkdf2.Key(password, salt, PBKDF2Iterations, length, sha1.New)
	case params.PBKDF2SHA256:
		full = pbkdf2.Key(password, salt, PBKDF2Iterations, length, sha256.New)
	case params.PBKDF2SHA512:
		full = pbkdf2.Key(password, salt, PBKDF2Iterations, length, sha512.New)
	case params.PBKDF2SHA3:
		full = pbkdf2.Key(password, salt, PBKDF2Iterations, length, func() hash.Hash { return sha3.New256() })
	case params.Scrypt:
		var err error

		full, err = scrypt.Key(password, salt, ScryptN, ScryptR, ScryptP, length)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyDerivation, goerrors.Wrap(err, CodeDerivation, "scrypt"))
		}
	case params.Argon2id:
		full = argon2.IDKey(password, salt, Argon2Time, Argon2Memory, Argon2Threads, uint32(length)) //nolint:gosec
	default:
		return nil, failure("unrecognized kdf %s", kdf)
	}

	return &Key{full: full, size: size}, nil
}

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	return RandomBytesFrom(rand.Reader, n)
}

// RandomBytesFrom returns n bytes read from r.
func RandomBytesFrom(r io.Reader, n int) ([]byte, error) {
	if n < 0 {
		return nil, failure("negative random length %d", n)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyDerivation, goerrors.Wrap(err, CodeRandom, "reading random bytes"))
	}

	return buf, nil
}

func failure(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrKeyDerivation, goerrors.New(CodeDerivation, fmt.Sprintf(format, args...)))
}
