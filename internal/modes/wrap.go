package modes

import (
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"math"
)

// kwpPrefix is the alternative initial value of RFC 5649.
var kwpPrefix = []byte{0xa6, 0x59, 0x59, 0xa6} //nolint:gochecknoglobals

// wrap buffers the whole body and key-wraps it with padding (RFC 5649) in
// Final. An empty body is wrapped as one zero semiblock with a length of 0.
type wrap struct {
	block   cipher.Block
	decrypt bool
	buf     []byte
}

func newWrap(block cipher.Block, decrypt bool) (*wrap, error) {
	if block.BlockSize() != 16 {
		return nil, initError("key wrap requires a 128-bit block cipher")
	}

	return &wrap{block: block, decrypt: decrypt}, nil
}

func (w *wrap) Update(src []byte) ([]byte, error) {
	if int64(len(w.buf))+int64(len(src)) > math.MaxUint32 {
		return nil, initError("key wrap input exceeds 2^32 bytes")
	}

	w.buf = append(w.buf, src...)

	return nil, nil
}

func (w *wrap) Final() ([]byte, error) {
	defer func() { w.buf = nil }()

	if w.decrypt {
		return kwpUnwrap(w.block, w.buf)
	}

	return kwpWrap(w.block, w.buf)
}

func kwpWrap(block cipher.Block, plain []byte) ([]byte, error) {
	if int64(len(plain)) > math.MaxUint32 {
		return nil, initError("key wrap input exceeds 2^32 bytes")
	}

	padded := max(8, (len(plain)+7)/8*8)

	iv := make([]byte, 8)
	copy(iv, kwpPrefix)
	binary.BigEndian.PutUint32(iv[4:], uint32(len(plain)))

	if padded == 8 {
		out := make([]byte, 16)
		copy(out, iv)
		copy(out[8:], plain)
		block.Encrypt(out, out)

		return out, nil
	}

	n := padded / 8
	out := make([]byte, 8+padded)
	copy(out[8:], plain)

	a := iv
	b := make([]byte, 16)

	for j := range 6 {
		for i := 1; i <= n; i++ {
			r := out[8*i : 8*i+8]

			copy(b, a)
			copy(b[8:], r)
			block.Encrypt(b, b)

			t := uint64(n*j + i) //nolint:gosec
			a = binary.BigEndian.AppendUint64(nil, binary.BigEndian.Uint64(b[:8])^t)
			copy(r, b[8:])
		}
	}

	copy(out, a)

	return out, nil
}

//nolint:cyclop
func kwpUnwrap(block cipher.Block, sealed []byte) ([]byte, error) {
	if len(sealed) < 16 || len(sealed)%8 != 0 {
		return nil, integrityError("wrapped body of %d bytes is malformed", len(sealed))
	}

	n := len(sealed)/8 - 1
	body := make([]byte, 8*n)

	var a []byte

	if n == 1 {
		b := make([]byte, 16)
		block.Decrypt(b, sealed)

		a = b[:8]
		copy(body, b[8:])
	} else {
		a = append([]byte{}, sealed[:8]...)
		copy(body, sealed[8:])

		b := make([]byte, 16)

		for j := 5; j >= 0; j-- {
			for i := n; i >= 1; i-- {
				r := body[8*(i-1) : 8*i]
				t := uint64(n*j + i) //nolint:gosec

				binary.BigEndian.PutUint64(b, binary.BigEndian.Uint64(a)^t)
				copy(b[8:], r)
				block.Decrypt(b, b)

				copy(a, b[:8])
				copy(r, b[8:])
			}
		}
	}

	if subtle.ConstantTimeCompare(a[:4], kwpPrefix) != 1 {
		return nil, integrityError("key unwrap integrity value mismatch")
	}

	length := int(binary.BigEndian.Uint32(a[4:]))

	switch {
	case length == 0 && n == 1:
	case length <= 8*(n-1) || length > 8*n:
		return nil, integrityError("key unwrap length %d does not fit %d semiblocks", length, n)
	}

	for _, v := range body[length:] {
		if v != 0 {
			return nil, integrityError("key unwrap padding is not zero")
		}
	}

	return body[:length], nil
}
