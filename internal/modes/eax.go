package modes

import (
	"crypto/cipher"
	"crypto/subtle"
	"io"

	"github.com/idelchi/fenc/internal/offset"
)

// cmac is OMAC1 over a 64- or 128-bit block cipher. The last block stays
// buffered until sum so it can be masked with the right subkey.
type cmac struct {
	block  cipher.Block
	k1, k2 []byte
	x      []byte
	buf    []byte
	n      int
}

// dbl multiplies by x in GF(2^64) or GF(2^128).
func dbl(b []byte) []byte {
	out := make([]byte, len(b))
	carry := b[0] >> 7

	for i := range len(b) - 1 {
		out[i] = b[i]<<1 | b[i+1]>>7
	}

	out[len(b)-1] = b[len(b)-1] << 1

	if len(b) == 8 {
		out[len(b)-1] ^= 0x1b * carry
	} else {
		out[len(b)-1] ^= 0x87 * carry
	}

	return out
}

func newCMAC(block cipher.Block) *cmac {
	size := block.BlockSize()

	l := make([]byte, size)
	block.Encrypt(l, l)

	k1 := dbl(l)

	return &cmac{
		block: block,
		k1:    k1,
		k2:    dbl(k1),
		x:     make([]byte, size),
		buf:   make([]byte, size),
	}
}

// omac returns a cmac that has absorbed the block-sized encoding of t.
func omac(block cipher.Block, t byte) *cmac {
	m := newCMAC(block)

	prefix := make([]byte, block.BlockSize())
	prefix[len(prefix)-1] = t
	m.write(prefix)

	return m
}

func (m *cmac) write(p []byte) {
	size := len(m.buf)

	for len(p) > 0 {
		if m.n == size {
			subtle.XORBytes(m.x, m.x, m.buf)
			m.block.Encrypt(m.x, m.x)
			m.n = 0
		}

		c := copy(m.buf[m.n:], p)
		m.n += c
		p = p[c:]
	}
}

func (m *cmac) sum() []byte {
	last := make([]byte, len(m.buf))
	copy(last, m.buf[:m.n])

	if m.n == len(m.buf) {
		subtle.XORBytes(last, last, m.k1)
	} else {
		last[m.n] = 0x80
		subtle.XORBytes(last, last, m.k2)
	}

	out := make([]byte, len(m.x))
	subtle.XORBytes(out, m.x, last)
	m.block.Encrypt(out, out)

	return out
}

// eaxCore holds N' = OMAC0(N) and H' = OMAC1(A).
type eaxCore struct {
	block   cipher.Block
	nonce   []byte
	header  []byte
	tagSize int
}

func newEAXCore(cfg Config, block cipher.Block) *eaxCore {
	n := omac(block, 0)
	n.write(cfg.IV)

	h := omac(block, 1)
	h.write(cfg.AAD)

	return &eaxCore{block: block, nonce: n.sum(), header: h.sum(), tagSize: cfg.Params.TagSize()}
}

func (c *eaxCore) tag(ciphertextMAC []byte) []byte {
	out := make([]byte, len(c.nonce))
	subtle.XORBytes(out, c.nonce, c.header)
	subtle.XORBytes(out, out, ciphertextMAC)

	return out[:c.tagSize]
}

// eax streams EAX: CTR keyed from N' with OMAC2 over the ciphertext.
type eax struct {
	*eaxCore

	stream  cipher.Stream
	mac     *cmac
	decrypt bool
	held    tagHolder
}

func newEAX(cfg Config, block cipher.Block, decrypt bool) (*eax, error) {
	core := newEAXCore(cfg, block)

	e := &eax{
		eaxCore: core,
		stream:  cipher.NewCTR(block, core.nonce),
		mac:     omac(block, 2),
		decrypt: decrypt,
	}

	if decrypt {
		e.held.size = core.tagSize
	}

	return e, nil
}

func (e *eax) Update(src []byte) ([]byte, error) {
	if e.decrypt {
		src = e.held.push(src)
		e.mac.write(src)
	}

	out := make([]byte, len(src))
	e.stream.XORKeyStream(out, src)

	if !e.decrypt {
		e.mac.write(out)
	}

	return out, nil
}

func (e *eax) Final() ([]byte, error) {
	expected := e.tag(e.mac.sum())

	if !e.decrypt {
		return expected, nil
	}

	tag, err := e.held.tag()
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare(tag, expected) != 1 {
		return nil, integrityError("EAX authentication tag mismatch")
	}

	return nil, nil
}

// eaxSeekable encrypts chunks at any block offset and computes OMAC2 over
// the sealed body once every chunk is written.
type eaxSeekable struct {
	*eaxCore

	size int64
}

func (e *eaxSeekable) Align() int { return e.block.BlockSize() }

func (e *eaxSeekable) SealAt(dst, src []byte, off int64) (Part, error) {
	size := e.block.BlockSize()

	if err := checkChunk(off, len(src), e.size, size); err != nil {
		return Part{}, err
	}

	ctr := offset.AddCounter(e.nonce, uint64(off)/uint64(size), size) //nolint:gosec
	cipher.NewCTR(e.block, ctr).XORKeyStream(dst[:len(src)], src)

	return Part{Offset: off, Length: len(src)}, nil
}

func (e *eaxSeekable) Tag(parts []Part, size int64, _, sealed ReaderAt) ([]byte, error) {
	if err := checkParts(parts, size); err != nil {
		return nil, err
	}

	mac := omac(e.block, 2)

	if err := absorb(io.NewSectionReader(sealed, 0, size), mac.write); err != nil {
		return nil, err
	}

	return e.tag(mac.sum()), nil
}
