package modes

import (
	"encoding/binary"
)

// element is a GF(2^128) element in GCM bit order: the most significant bit
// of hi is the coefficient of x^0.
type element struct {
	hi, lo uint64
}

// one is the multiplicative identity.
var one = element{hi: 1 << 63} //nolint:gochecknoglobals

func loadElement(b []byte) element {
	return element{hi: binary.BigEndian.Uint64(b[:8]), lo: binary.BigEndian.Uint64(b[8:16])}
}

func (e element) bytes() []byte {
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out[:8], e.hi)
	binary.BigEndian.PutUint64(out[8:], e.lo)

	return out
}

func (e element) xor(o element) element {
	return element{hi: e.hi ^ o.hi, lo: e.lo ^ o.lo}
}

// gfMul is the right-shift multiplication of SP 800-38D, algorithm 1.
func gfMul(x, y element) element {
	var z element

	v := y

	for i := range 128 {
		var bit uint64
		if i < 64 {
			bit = x.hi >> (63 - i) & 1
		} else {
			bit = x.lo >> (127 - i) & 1
		}

		mask := -bit
		z.hi ^= v.hi & mask
		z.lo ^= v.lo & mask

		lsb := v.lo & 1
		v.lo = v.lo>>1 | v.hi<<63
		v.hi = v.hi>>1 ^ (0xe1<<56)&-lsb
	}

	return z
}

// gfPow returns h^n.
func gfPow(h element, n uint64) element {
	result := one

	for ; n > 0; n >>= 1 {
		if n&1 == 1 {
			result = gfMul(result, h)
		}

		h = gfMul(h, h)
	}

	return result
}

// ghash accumulates GHASH_H over a byte stream, zero padding the last block
// of each segment when flushed.
type ghash struct {
	h   element
	y   element
	buf [16]byte
	n   int
}

func (g *ghash) write(p []byte) {
	for len(p) > 0 {
		c := copy(g.buf[g.n:], p)
		g.n += c
		p = p[c:]

		if g.n == 16 {
			g.y = gfMul(g.y.xor(loadElement(g.buf[:])), g.h)
			g.n = 0
		}
	}
}

func (g *ghash) flush() {
	if g.n == 0 {
		return
	}

	clear(g.buf[g.n:])
	g.y = gfMul(g.y.xor(loadElement(g.buf[:])), g.h)
	g.n = 0
}

// lengthBlock encodes the bit lengths of the associated data and ciphertext.
func lengthBlock(aadLen, ctLen uint64) element {
	return element{hi: aadLen * 8, lo: ctLen * 8}
}

// sum flushes and absorbs the length block.
func (g *ghash) sum(aadLen, ctLen uint64) element {
	g.flush()
	g.y = gfMul(g.y.xor(lengthBlock(aadLen, ctLen)), g.h)

	return g.y
}
