// Package offset implements the block arithmetic used to address a chunk of a
// body without processing what precedes it: doubling in GF(2^128) with the
// polynomial x^128 + x^7 + x^2 + x + 1, the offset chains of OCB-style modes,
// and big-endian counter advancement for counter modes.
package offset

import (
	"math/big"
	"math/bits"
)

// BlockSize is the width of a GF(2^128) element in bytes.
const BlockSize = 16

// Block is one GF(2^128) element in big-endian bit order.
type Block [BlockSize]byte

// Double multiplies b by x: shift left by one bit and reduce with 0x87 if the
// top bit was set.
func Double(b Block) Block {
	var out Block

	carry := b[0] >> 7

	for i := range BlockSize - 1 {
		out[i] = b[i]<<1 | b[i+1]>>7
	}

	out[BlockSize-1] = b[BlockSize-1] << 1
	out[BlockSize-1] ^= 0x87 * carry

	return out
}

// Xor returns a ^ b.
func Xor(a, b Block) Block {
	for i := range a {
		a[i] ^= b[i]
	}

	return a
}

// Precompute returns L_0 = l followed by count successive doublings.
func Precompute(l Block, count int) []Block {
	if count < 0 {
		count = 0
	}

	out := make([]Block, count+1)
	out[0] = l

	for i := 1; i <= count; i++ {
		out[i] = Double(out[i-1])
	}

	return out
}

// Ntz returns the number of trailing zero bits of i.
func Ntz(i uint64) int {
	return bits.TrailingZeros64(i)
}

// OffsetForBlock returns the XOR of L_ntz(j) for j in 1..index, the offset of
// block index (1-based) relative to the initial offset. The set bits of the
// Gray code of index name the L values in that sum; they are visited by
// repeatedly taking ntz and clearing the lowest set bit. ls must hold at least
// bits.Len64(index) values.
func OffsetForBlock(ls []Block, index uint64) Block {
	var out Block

	for gray := index ^ index>>1; gray != 0; gray &= gray - 1 {
		out = Xor(out, ls[Ntz(gray)])
	}

	return out
}

// AddCounter returns a copy of iv whose last width bytes, read as a big-endian
// integer, are advanced by n modulo 2^(8*width). Leading bytes are unchanged.
func AddCounter(iv []byte, n uint64, width int) []byte {
	out := append([]byte{}, iv...)

	if width > len(out) {
		width = len(out)
	}

	if width <= 0 || n == 0 {
		return out
	}

	tail := out[len(out)-width:]

	sum := new(big.Int).SetBytes(tail)
	sum.Add(sum, new(big.Int).SetUint64(n))

	encoded := sum.Bytes()
	if len(encoded) > width {
		encoded = encoded[len(encoded)-width:]
	}

	clear(tail)
	copy(tail[width-len(encoded):], encoded)

	return out
}
