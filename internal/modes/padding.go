package modes

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/idelchi/fenc/internal/params"
)

// Pad appends padding to data so its length is a multiple of blockSize. The
// schemes other than none always add between 1 and blockSize bytes.
func Pad(scheme params.Padding, data []byte, blockSize int) ([]byte, error) {
	if scheme == params.NoPadding {
		if len(data)%blockSize != 0 {
			return nil, initError("length %d is not a multiple of the block size %d and padding is none", len(data), blockSize)
		}

		return data, nil
	}

	padding := blockSize - len(data)%blockSize

	switch scheme {
	case params.PKCS7:
		return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...), nil
	case params.ANSIX923:
		padText := make([]byte, padding)
		padText[padding-1] = byte(padding)

		return append(data, padText...), nil
	case params.ISO10126:
		padText := make([]byte, padding)
		if _, err := io.ReadFull(rand.Reader, padText[:padding-1]); err != nil {
			return nil, fmt.Errorf("%w: generating padding: %w", ErrCipherInit, err)
		}

		padText[padding-1] = byte(padding)

		return append(data, padText...), nil
	case params.ISO7816:
		padText := make([]byte, padding)
		padText[0] = 0x80

		return append(data, padText...), nil
	default:
		return nil, initError("unknown padding %s", scheme)
	}
}

// Unpad removes padding from data, whose length must be a non-zero multiple
// of blockSize for the schemes other than none.
//
//nolint:cyclop
func Unpad(scheme params.Padding, data []byte, blockSize int) ([]byte, error) {
	if scheme == params.NoPadding {
		return data, nil
	}

	length := len(data)
	if length == 0 || length%blockSize != 0 {
		return nil, fmt.Errorf("%w: %w: padded length %d", ErrIntegrity, ErrInvalidPadding, length)
	}

	if scheme == params.ISO7816 {
		for i := length - 1; i >= length-blockSize; i-- {
			switch data[i] {
			case 0x80:
				return data[:i], nil
			case 0x00:
				continue
			default:
				return nil, fmt.Errorf("%w: %w", ErrIntegrity, ErrInvalidPadding)
			}
		}

		return nil, fmt.Errorf("%w: %w", ErrIntegrity, ErrInvalidPadding)
	}

	padding := int(data[length-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("%w: %w: size %d", ErrIntegrity, ErrInvalidPadding, padding)
	}

	for i := length - padding; i < length-1; i++ {
		switch scheme {
		case params.PKCS7:
			if data[i] != byte(padding) {
				return nil, fmt.Errorf("%w: %w", ErrIntegrity, ErrInvalidPadding)
			}
		case params.ANSIX923:
			if data[i] != 0 {
				return nil, fmt.Errorf("%w: %w", ErrIntegrity, ErrInvalidPadding)
			}
		}
	}

	return data[:length-padding], nil
}
