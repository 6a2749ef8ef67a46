package modes

import (
	"crypto/cipher"

	"github.com/idelchi/fenc/internal/offset"
	"github.com/idelchi/fenc/internal/params"
)

// keyStream XORs the body with the CTR, OFB or CFB keystream.
type keyStream struct {
	stream cipher.Stream
}

func newKeyStream(cfg Config, block cipher.Block, decrypt bool) *keyStream {
	var stream cipher.Stream

	switch cfg.Params.Mode {
	case params.OFB:
		stream = cipher.NewOFB(block, cfg.IV) //nolint:staticcheck // OFB is a supported legacy mode
	case params.CFB:
		if decrypt {
			stream = cipher.NewCFBDecrypter(block, cfg.IV) //nolint:staticcheck // CFB is a supported legacy mode
		} else {
			stream = cipher.NewCFBEncrypter(block, cfg.IV) //nolint:staticcheck // CFB is a supported legacy mode
		}
	default:
		stream = cipher.NewCTR(block, cfg.IV)
	}

	return &keyStream{stream: stream}
}

func (k *keyStream) Update(src []byte) ([]byte, error) {
	out := make([]byte, len(src))
	k.stream.XORKeyStream(out, src)

	return out, nil
}

func (k *keyStream) Final() ([]byte, error) {
	return nil, nil
}

// ctrSeekable starts the counter of each chunk at IV + offset / block size.
type ctrSeekable struct {
	block cipher.Block
	iv    []byte
	size  int64
}

func (c *ctrSeekable) Align() int { return c.block.BlockSize() }

func (c *ctrSeekable) SealAt(dst, src []byte, off int64) (Part, error) {
	size := c.block.BlockSize()

	if err := checkChunk(off, len(src), c.size, size); err != nil {
		return Part{}, err
	}

	ctr := offset.AddCounter(c.iv, uint64(off)/uint64(size), size) //nolint:gosec
	cipher.NewCTR(c.block, ctr).XORKeyStream(dst[:len(src)], src)

	return Part{Offset: off, Length: len(src)}, nil
}

func (c *ctrSeekable) Tag(parts []Part, size int64, _, _ ReaderAt) ([]byte, error) {
	return nil, checkParts(parts, size)
}
