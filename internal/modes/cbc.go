package modes

import (
	"crypto/cipher"

	"github.com/idelchi/fenc/internal/params"
)

// blockStream runs ECB or CBC over whole blocks. Encryption keeps the partial
// tail for padding; decryption keeps the last full block so padding can be
// removed in Final.
type blockStream struct {
	mode    cipher.BlockMode
	padding params.Padding
	size    int
	decrypt bool
	buf     []byte
}

func newBlockStream(cfg Config, block cipher.Block, decrypt bool) *blockStream {
	var mode cipher.BlockMode

	switch {
	case cfg.Params.Mode == params.ECB:
		mode = &ecb{block: block, decrypt: decrypt}
	case decrypt:
		mode = cipher.NewCBCDecrypter(block, cfg.IV)
	default:
		mode = cipher.NewCBCEncrypter(block, cfg.IV)
	}

	return &blockStream{
		mode:    mode,
		padding: cfg.Params.Padding,
		size:    block.BlockSize(),
		decrypt: decrypt,
	}
}

func (s *blockStream) Update(src []byte) ([]byte, error) {
	s.buf = append(s.buf, src...)

	n := len(s.buf) - len(s.buf)%s.size

	// A padded ciphertext always ends in a full block that must stay behind.
	if s.decrypt && s.padding != params.NoPadding && n == len(s.buf) {
		n -= s.size
	}

	if n <= 0 {
		return nil, nil
	}

	out := make([]byte, n)
	s.mode.CryptBlocks(out, s.buf[:n])
	s.buf = append(s.buf[:0], s.buf[n:]...)

	return out, nil
}

func (s *blockStream) Final() ([]byte, error) {
	if s.decrypt {
		if len(s.buf)%s.size != 0 {
			return nil, integrityError("ciphertext is not a multiple of the %d byte block", s.size)
		}

		out := make([]byte, len(s.buf))
		s.mode.CryptBlocks(out, s.buf)
		s.buf = nil

		return Unpad(s.padding, out, s.size)
	}

	padded, err := Pad(s.padding, s.buf, s.size)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(padded))
	s.mode.CryptBlocks(out, padded)
	s.buf = nil

	return out, nil
}

// ecb encrypts each block independently.
type ecb struct {
	block   cipher.Block
	decrypt bool
}

func (e *ecb) BlockSize() int { return e.block.BlockSize() }

func (e *ecb) CryptBlocks(dst, src []byte) {
	size := e.block.BlockSize()

	for len(src) > 0 {
		if e.decrypt {
			e.block.Decrypt(dst[:size], src[:size])
		} else {
			e.block.Encrypt(dst[:size], src[:size])
		}

		src = src[size:]
		dst = dst[size:]
	}
}
