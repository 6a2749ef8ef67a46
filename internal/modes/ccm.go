package modes

import (
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"io"

	"github.com/idelchi/fenc/internal/offset"
)

// cbcMAC is the CBC-MAC of CCM, absorbing bytes and zero padding on flush.
type cbcMAC struct {
	block cipher.Block
	y     [16]byte
	buf   [16]byte
	n     int
}

func (m *cbcMAC) write(p []byte) {
	for len(p) > 0 {
		c := copy(m.buf[m.n:], p)
		m.n += c
		p = p[c:]

		if m.n == 16 {
			subtle.XORBytes(m.y[:], m.y[:], m.buf[:])
			m.block.Encrypt(m.y[:], m.y[:])
			m.n = 0
		}
	}
}

func (m *cbcMAC) flush() {
	if m.n == 0 {
		return
	}

	clear(m.buf[m.n:])
	subtle.XORBytes(m.y[:], m.y[:], m.buf[:])
	m.block.Encrypt(m.y[:], m.y[:])
	m.n = 0
}

// ccmCore derives the CCM blocks of SP 800-38C for a nonce of 7 to 13 bytes
// and a plaintext length fixed in advance.
type ccmCore struct {
	block   cipher.Block
	nonce   []byte
	aad     []byte
	tagSize int
	length  uint64
}

func newCCMCore(cfg Config, block cipher.Block, length int64) (*ccmCore, error) {
	if block.BlockSize() != 16 {
		return nil, initError("CCM requires a 128-bit block cipher")
	}

	if len(cfg.IV) < 7 || len(cfg.IV) > 13 {
		return nil, initError("CCM nonce must be 7 to 13 bytes, got %d", len(cfg.IV))
	}

	if length < 0 {
		return nil, initError("CCM requires the body length in advance")
	}

	q := 15 - len(cfg.IV)
	if q < 8 && uint64(length) >= 1<<(8*q) {
		return nil, initError("body of %d bytes exceeds the CCM limit for a %d byte nonce", length, len(cfg.IV))
	}

	return &ccmCore{
		block:   block,
		nonce:   cfg.IV,
		aad:     cfg.AAD,
		tagSize: cfg.Params.TagSize(),
		length:  uint64(length),
	}, nil
}

func (c *ccmCore) q() int { return 15 - len(c.nonce) }

// ctr returns counter block Ctr_i.
func (c *ccmCore) ctr(i uint64) []byte {
	block := make([]byte, 16)
	block[0] = byte(c.q() - 1)
	copy(block[1:], c.nonce)

	return offset.AddCounter(block, i, c.q())
}

// mac returns a CBC-MAC that has absorbed B0 and the encoded associated data.
func (c *ccmCore) mac() *cbcMAC {
	m := &cbcMAC{block: c.block}

	var b0 [16]byte

	b0[0] = byte((c.tagSize-2)/2<<3 | (c.q() - 1))
	if len(c.aad) > 0 {
		b0[0] |= 0x40
	}

	copy(b0[1:], c.nonce)

	var length [8]byte

	binary.BigEndian.PutUint64(length[:], c.length)
	copy(b0[16-c.q():], length[8-c.q():])

	m.write(b0[:])

	if len(c.aad) == 0 {
		return m
	}

	switch n := uint64(len(c.aad)); {
	case n < 0xff00:
		m.write(binary.BigEndian.AppendUint16(nil, uint16(n)))
	case n <= 0xffffffff:
		m.write(binary.BigEndian.AppendUint32([]byte{0xff, 0xfe}, uint32(n)))
	default:
		m.write(binary.BigEndian.AppendUint64([]byte{0xff, 0xff}, n))
	}

	m.write(c.aad)
	m.flush()

	return m
}

// finish pads the MAC and masks it with E(Ctr_0).
func (c *ccmCore) finish(m *cbcMAC) []byte {
	m.flush()

	s0 := make([]byte, 16)
	c.block.Encrypt(s0, c.ctr(0))
	subtle.XORBytes(s0, s0, m.y[:])

	return s0[:c.tagSize]
}

// ccm is CCM whose CBC-MAC absorbs the plaintext as it streams by.
type ccm struct {
	*ccmCore

	stream  cipher.Stream
	mac     *cbcMAC
	seen    uint64
	decrypt bool
	tag     tagHolder
}

func newCCM(cfg Config, block cipher.Block, decrypt bool) (*ccm, error) {
	length := cfg.Size
	if decrypt {
		length -= int64(cfg.Params.TagSize())
		if cfg.Size >= 0 && length < 0 {
			return nil, integrityError("ciphertext is shorter than the %d byte tag", cfg.Params.TagSize())
		}
	}

	core, err := newCCMCore(cfg, block, length)
	if err != nil {
		return nil, err
	}

	c := &ccm{
		ccmCore: core,
		stream:  cipher.NewCTR(block, core.ctr(1)),
		mac:     core.mac(),
		decrypt: decrypt,
	}

	if decrypt {
		c.tag.size = core.tagSize
	}

	return c, nil
}

func (c *ccm) Update(src []byte) ([]byte, error) {
	if c.decrypt {
		src = c.tag.push(src)
	}

	c.seen += uint64(len(src))
	if c.seen > c.length {
		if c.decrypt {
			return nil, integrityError("ciphertext is longer than announced")
		}

		return nil, initError("plaintext is longer than the announced %d bytes", c.length)
	}

	out := make([]byte, len(src))
	c.stream.XORKeyStream(out, src)

	if c.decrypt {
		c.mac.write(out)
	} else {
		c.mac.write(src)
	}

	return out, nil
}

func (c *ccm) Final() ([]byte, error) {
	if c.seen != c.length {
		if c.decrypt {
			return nil, integrityError("ciphertext is shorter than announced")
		}

		return nil, initError("plaintext is %d bytes, announced %d", c.seen, c.length)
	}

	expected := c.finish(c.mac)

	if !c.decrypt {
		return expected, nil
	}

	tag, err := c.tag.tag()
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare(tag, expected) != 1 {
		return nil, integrityError("CCM authentication tag mismatch")
	}

	return nil, nil
}

// ccmSeekable encrypts chunks at any block offset; the CBC-MAC is inherently
// sequential and is computed over the plaintext once all chunks are sealed.
type ccmSeekable struct {
	*ccmCore
}

func (c *ccmSeekable) Align() int { return 16 }

func (c *ccmSeekable) SealAt(dst, src []byte, off int64) (Part, error) {
	if err := checkChunk(off, len(src), int64(c.length), 16); err != nil { //nolint:gosec
		return Part{}, err
	}

	cipher.NewCTR(c.block, c.ctr(1+uint64(off)/16)).XORKeyStream(dst[:len(src)], src)

	return Part{Offset: off, Length: len(src)}, nil
}

func (c *ccmSeekable) Tag(parts []Part, size int64, plain, _ ReaderAt) ([]byte, error) {
	if err := checkParts(parts, size); err != nil {
		return nil, err
	}

	if uint64(size) != c.length { //nolint:gosec
		return nil, initError("CCM body is %d bytes, announced %d", size, c.length)
	}

	mac := c.mac()

	if err := absorb(io.NewSectionReader(plain, 0, size), mac.write); err != nil {
		return nil, err
	}

	return c.finish(mac), nil
}

// absorb feeds everything r yields to write.
func absorb(r io.Reader, write func([]byte)) error {
	buf := make([]byte, 64*1024)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			write(buf[:n])
		}

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}
	}
}
