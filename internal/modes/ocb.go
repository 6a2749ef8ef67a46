package modes

import (
	"crypto/cipher"
	"crypto/subtle"

	"github.com/idelchi/fenc/internal/offset"
)

// ocbCore holds the key dependent values of OCB3 (RFC 7253) and the initial
// offset derived from the nonce.
type ocbCore struct {
	block   cipher.Block
	lStar   offset.Block
	lDollar offset.Block
	ls      []offset.Block
	offset0 offset.Block
	hash    offset.Block
	tagSize int
}

func newOCBCore(cfg Config, block cipher.Block) (*ocbCore, error) {
	if block.BlockSize() != offset.BlockSize {
		return nil, initError("OCB requires a 128-bit block cipher")
	}

	if len(cfg.IV) < 1 || len(cfg.IV) > 15 {
		return nil, initError("OCB nonce must be 1 to 15 bytes, got %d", len(cfg.IV))
	}

	c := &ocbCore{block: block, tagSize: cfg.Params.TagSize()}

	c.lStar = c.encrypt(offset.Block{})
	c.lDollar = offset.Double(c.lStar)
	c.ls = offset.Precompute(offset.Double(c.lDollar), 63)
	c.offset0 = c.initialOffset(cfg.IV)
	c.hash = c.hashAAD(cfg.AAD)

	return c, nil
}

func (c *ocbCore) encrypt(b offset.Block) offset.Block {
	c.block.Encrypt(b[:], b[:])

	return b
}

func (c *ocbCore) decrypt(b offset.Block) offset.Block {
	c.block.Decrypt(b[:], b[:])

	return b
}

func (c *ocbCore) initialOffset(iv []byte) offset.Block {
	var nonce offset.Block

	nonce[0] = byte(c.tagSize * 8 % 128 << 1)
	nonce[15-len(iv)] |= 1
	copy(nonce[16-len(iv):], iv)

	bottom := int(nonce[15] & 0x3f)

	nonce[15] &^= 0x3f
	top := c.encrypt(nonce)

	stretch := make([]byte, 24)
	copy(stretch, top[:])

	for i := range 8 {
		stretch[16+i] = top[i] ^ top[i+1]
	}

	var out offset.Block

	shift, bitShift := bottom/8, uint(bottom%8)
	for i := range out {
		out[i] = stretch[i+shift] << bitShift
		if bitShift > 0 {
			out[i] |= stretch[i+shift+1] >> (8 - bitShift)
		}
	}

	return out
}

func (c *ocbCore) hashAAD(aad []byte) offset.Block {
	var sum, off offset.Block

	i := uint64(1)
	for ; len(aad) >= offset.BlockSize; i++ {
		off = offset.Xor(off, c.ls[offset.Ntz(i)])

		var a offset.Block

		copy(a[:], aad)
		sum = offset.Xor(sum, c.encrypt(offset.Xor(a, off)))
		aad = aad[offset.BlockSize:]
	}

	if len(aad) > 0 {
		off = offset.Xor(off, c.lStar)
		sum = offset.Xor(sum, c.encrypt(offset.Xor(padBlock(aad), off)))
	}

	return sum
}

// padBlock returns p followed by 0x80 and zeros.
func padBlock(p []byte) offset.Block {
	var b offset.Block

	copy(b[:], p)
	b[len(p)] = 0x80

	return b
}

// process transforms the full blocks of src starting after block index start,
// whose offset is off, and returns the updated offset and checksum.
func (c *ocbCore) process(dst, src []byte, start uint64, off, checksum offset.Block, decrypt bool) (offset.Block, offset.Block) {
	for i := start + 1; len(src) >= offset.BlockSize; i++ {
		off = offset.Xor(off, c.ls[offset.Ntz(i)])

		var in offset.Block

		copy(in[:], src)

		var out offset.Block

		if decrypt {
			out = offset.Xor(c.decrypt(offset.Xor(in, off)), off)
			checksum = offset.Xor(checksum, out)
		} else {
			out = offset.Xor(c.encrypt(offset.Xor(in, off)), off)
			checksum = offset.Xor(checksum, in)
		}

		copy(dst, out[:])

		src = src[offset.BlockSize:]
		dst = dst[offset.BlockSize:]
	}

	return off, checksum
}

// processTail handles a final partial block of 1 to 15 bytes.
func (c *ocbCore) processTail(dst, src []byte, off, checksum offset.Block, decrypt bool) (offset.Block, offset.Block) {
	off = offset.Xor(off, c.lStar)
	pad := c.encrypt(off)
	subtle.XORBytes(dst[:len(src)], src, pad[:len(src)])

	if decrypt {
		checksum = offset.Xor(checksum, padBlock(dst[:len(src)]))
	} else {
		checksum = offset.Xor(checksum, padBlock(src))
	}

	return off, checksum
}

func (c *ocbCore) tag(off, checksum offset.Block) []byte {
	tag := offset.Xor(c.encrypt(offset.Xor(offset.Xor(checksum, off), c.lDollar)), c.hash)

	return append([]byte{}, tag[:c.tagSize]...)
}

// ocb streams OCB3 over whole blocks, keeping a partial block for Final.
type ocb struct {
	*ocbCore

	off      offset.Block
	checksum offset.Block
	index    uint64
	buf      []byte
	decrypt  bool
	held     tagHolder
}

func newOCB(cfg Config, block cipher.Block, decrypt bool) (*ocb, error) {
	core, err := newOCBCore(cfg, block)
	if err != nil {
		return nil, err
	}

	o := &ocb{ocbCore: core, off: core.offset0, decrypt: decrypt}
	if decrypt {
		o.held.size = core.tagSize
	}

	return o, nil
}

func (o *ocb) Update(src []byte) ([]byte, error) {
	if o.decrypt {
		src = o.held.push(src)
	}

	o.buf = append(o.buf, src...)

	n := len(o.buf) - len(o.buf)%offset.BlockSize
	if n == 0 {
		return nil, nil
	}

	out := make([]byte, n)
	o.off, o.checksum = o.process(out, o.buf[:n], o.index, o.off, o.checksum, o.decrypt)
	o.index += uint64(n / offset.BlockSize)
	o.buf = append(o.buf[:0], o.buf[n:]...)

	return out, nil
}

func (o *ocb) Final() ([]byte, error) {
	var out []byte

	off, checksum := o.off, o.checksum

	if len(o.buf) > 0 {
		out = make([]byte, len(o.buf))
		off, checksum = o.processTail(out, o.buf, off, checksum, o.decrypt)
	}

	expected := o.tag(off, checksum)

	if !o.decrypt {
		return append(out, expected...), nil
	}

	tag, err := o.held.tag()
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare(tag, expected) != 1 {
		return nil, integrityError("OCB authentication tag mismatch")
	}

	return out, nil
}

// ocbSeekable starts each chunk from the offset of its first block, computed
// directly from the block index, and XORs the per-chunk checksums together.
type ocbSeekable struct {
	*ocbCore

	size int64
}

func (o *ocbSeekable) Align() int { return offset.BlockSize }

func (o *ocbSeekable) SealAt(dst, src []byte, off int64) (Part, error) {
	if err := checkChunk(off, len(src), o.size, offset.BlockSize); err != nil {
		return Part{}, err
	}

	start := uint64(off) / offset.BlockSize //nolint:gosec
	full := len(src) - len(src)%offset.BlockSize

	cur, checksum := o.process(dst, src[:full], start, offset.Xor(o.offset0, offset.OffsetForBlock(o.ls, start)), offset.Block{}, false)

	if full < len(src) {
		_, checksum = o.processTail(dst[full:], src[full:], cur, checksum, false)
	}

	return Part{Offset: off, Length: len(src), Sum: append([]byte{}, checksum[:]...)}, nil
}

func (o *ocbSeekable) Tag(parts []Part, size int64, _, _ ReaderAt) ([]byte, error) {
	if err := checkParts(parts, size); err != nil {
		return nil, err
	}

	var checksum offset.Block

	for _, part := range parts {
		var sum offset.Block

		copy(sum[:], part.Sum)
		checksum = offset.Xor(checksum, sum)
	}

	full := uint64(size) / offset.BlockSize //nolint:gosec
	off := offset.Xor(o.offset0, offset.OffsetForBlock(o.ls, full))

	if size%offset.BlockSize != 0 {
		off = offset.Xor(off, o.lStar)
	}

	return o.tag(off, checksum), nil
}
