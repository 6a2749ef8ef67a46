package modes

import (
	"crypto/cipher"
	"crypto/subtle"

	"github.com/idelchi/fenc/internal/offset"
)

// gcmMaxBody is the largest plaintext GCM can protect under one nonce.
const gcmMaxBody = (1<<32 - 2) * 16

// gcmCore holds what both the streaming and the seekable GCM share.
type gcmCore struct {
	block   cipher.Block
	h       element
	j0      []byte
	aad     []byte
	tagSize int
}

func newGCMCore(cfg Config, block cipher.Block) (*gcmCore, error) {
	if block.BlockSize() != 16 {
		return nil, initError("GCM requires a 128-bit block cipher")
	}

	if cfg.Size > gcmMaxBody+int64(cfg.Params.TagSize()) {
		return nil, initError("body of %d bytes exceeds the GCM limit", cfg.Size)
	}

	hKey := make([]byte, 16)
	block.Encrypt(hKey, hKey)

	j0 := make([]byte, 16)
	copy(j0, cfg.IV)
	j0[15] = 1

	return &gcmCore{
		block:   block,
		h:       loadElement(hKey),
		j0:      j0,
		aad:     cfg.AAD,
		tagSize: cfg.Params.TagSize(),
	}, nil
}

// counter returns the counter block of the given data block index.
func (c *gcmCore) counter(index uint64) []byte {
	return offset.AddCounter(c.j0, index+1, 4)
}

func (c *gcmCore) aadHash() element {
	g := ghash{h: c.h}
	g.write(c.aad)
	g.flush()

	return g.y
}

// finish masks a GHASH output with E(J0) and truncates it.
func (c *gcmCore) finish(s element) []byte {
	mask := make([]byte, 16)
	c.block.Encrypt(mask, c.j0)

	tag := s.bytes()
	subtle.XORBytes(tag, tag, mask)

	return tag[:c.tagSize]
}

// gcm is GCM with a 96-bit nonce, computing GHASH as the ciphertext streams by.
type gcm struct {
	*gcmCore

	ctr     cipher.Stream
	hash    ghash
	length  uint64
	decrypt bool
	tag     tagHolder
}

func newGCM(cfg Config, block cipher.Block, decrypt bool) (*gcm, error) {
	core, err := newGCMCore(cfg, block)
	if err != nil {
		return nil, err
	}

	g := &gcm{
		gcmCore: core,
		ctr:     cipher.NewCTR(block, core.counter(0)),
		hash:    ghash{h: core.h},
		decrypt: decrypt,
	}

	if decrypt {
		g.tag.size = core.tagSize
	}

	g.hash.write(cfg.AAD)
	g.hash.flush()

	return g, nil
}

func (g *gcm) Update(src []byte) ([]byte, error) {
	if g.decrypt {
		src = g.tag.push(src)
	}

	if g.length+uint64(len(src)) > gcmMaxBody {
		return nil, initError("body exceeds the GCM limit")
	}

	g.length += uint64(len(src))

	out := make([]byte, len(src))

	if g.decrypt {
		g.hash.write(src)
		g.ctr.XORKeyStream(out, src)
	} else {
		g.ctr.XORKeyStream(out, src)
		g.hash.write(out)
	}

	return out, nil
}

func (g *gcm) Final() ([]byte, error) {
	expected := g.finish(g.hash.sum(uint64(len(g.aad)), g.length))

	if !g.decrypt {
		return expected, nil
	}

	tag, err := g.tag.tag()
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare(tag, expected) != 1 {
		return nil, integrityError("GCM authentication tag mismatch")
	}

	return nil, nil
}

// gcmSeekable encrypts chunks at arbitrary block offsets and combines their
// partial GHASH values by weighting each with the powers of H that follow it.
type gcmSeekable struct {
	*gcmCore

	size int64
}

func (g *gcmSeekable) Align() int { return 16 }

func (g *gcmSeekable) SealAt(dst, src []byte, off int64) (Part, error) {
	if err := checkChunk(off, len(src), g.size, 16); err != nil {
		return Part{}, err
	}

	cipher.NewCTR(g.block, g.counter(uint64(off)/16)).XORKeyStream(dst[:len(src)], src)

	hash := ghash{h: g.h}
	hash.write(dst[:len(src)])
	hash.flush()

	return Part{Offset: off, Length: len(src), Sum: hash.y.bytes()}, nil
}

func (g *gcmSeekable) Tag(parts []Part, size int64, _, _ ReaderAt) ([]byte, error) {
	if err := checkParts(parts, size); err != nil {
		return nil, err
	}

	total := blocks(size, 16)

	s := gfMul(g.aadHash(), gfPow(g.h, total+1))

	for _, part := range parts {
		after := total - uint64(part.Offset)/16 - blocks(int64(part.Length), 16)
		s = s.xor(gfMul(loadElement(part.Sum), gfPow(g.h, after+1)))
	}

	s = s.xor(gfMul(lengthBlock(uint64(len(g.aad)), uint64(size)), g.h))

	return g.finish(s), nil
}

func blocks(n int64, size int) uint64 {
	if n <= 0 {
		return 0
	}

	return uint64((n + int64(size) - 1) / int64(size)) //nolint:gosec
}
