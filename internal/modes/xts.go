package modes

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/xts"

	"github.com/idelchi/fenc/internal/params"
)

// SectorSize is the XTS data unit.
const SectorSize = 4096

// xtsStream encrypts the body in sectors whose tweaks count up from the
// first eight IV bytes. The last sector is padded to a block multiple.
type xtsStream struct {
	cipher  *xts.Cipher
	padding params.Padding
	sector  uint64
	decrypt bool
	buf     []byte
}

func newXTS(cfg Config, decrypt bool) (*xtsStream, error) {
	if want := 2 * cfg.Params.KeySize(); len(cfg.Key) != want {
		return nil, initError("XTS expects a %d byte key, got %d", want, len(cfg.Key))
	}

	c, err := xts.NewCipher(func(key []byte) (cipher.Block, error) {
		return NewBlock(cfg.Params.Protocol, key)
	}, cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: creating XTS cipher: %w", ErrCipherInit, err)
	}

	return &xtsStream{
		cipher:  c,
		padding: cfg.Params.Padding,
		sector:  binary.BigEndian.Uint64(cfg.IV[:8]),
		decrypt: decrypt,
	}, nil
}

func (x *xtsStream) crypt(dst, src []byte) {
	if x.decrypt {
		x.cipher.Decrypt(dst, src, x.sector)
	} else {
		x.cipher.Encrypt(dst, src, x.sector)
	}

	x.sector++
}

func (x *xtsStream) Update(src []byte) ([]byte, error) {
	x.buf = append(x.buf, src...)

	var out []byte

	// Decryption keeps a full trailing sector back because it may hold padding.
	for len(x.buf) > SectorSize || (!x.decrypt && len(x.buf) == SectorSize) {
		sector := make([]byte, SectorSize)
		x.crypt(sector, x.buf[:SectorSize])
		out = append(out, sector...)
		x.buf = x.buf[SectorSize:]
	}

	x.buf = append([]byte{}, x.buf...)

	return out, nil
}

func (x *xtsStream) Final() ([]byte, error) {
	defer func() { x.buf = nil }()

	if x.decrypt {
		if len(x.buf)%16 != 0 {
			return nil, integrityError("XTS ciphertext is not a multiple of the block size")
		}

		if len(x.buf) == 0 {
			return Unpad(x.padding, nil, 16)
		}

		out := make([]byte, len(x.buf))
		x.crypt(out, x.buf)

		return Unpad(x.padding, out, 16)
	}

	padded, err := Pad(x.padding, x.buf, 16)
	if err != nil {
		return nil, err
	}

	if len(padded) == 0 {
		return nil, nil
	}

	out := make([]byte, len(padded))
	x.crypt(out, padded)

	return out, nil
}
