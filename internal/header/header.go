// Package header encodes the preamble written before every encrypted body.
//
// The layout is
//
//	magic "FENC" (4) | version (1) | metadata length, uint32 big endian (4) | metadata
//
// where metadata is a protobuf wire record carrying the parameter set, the
// salt, the IV and flags. Unknown metadata fields are skipped on read but stay
// part of the associated data, so they cannot be altered undetected.
package header

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	goerrors "github.com/agilira/go-errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/idelchi/fenc/internal/params"
)

const (
	// Magic identifies fenc files.
	Magic = "FENC"
	// Version is the current header format version.
	Version = byte(1)

	prefixSize = len(Magic) + 1 + 4

	// MaxMetadataSize bounds the metadata record.
	MaxMetadataSize = 4096
	// SaltSize is the size of the random key derivation salt.
	SaltSize = 16

	maxSaltSize = 64
)

// Flags carries file attributes preserved across a round trip.
type Flags uint64

// FlagExecutable marks a source file that had an execute bit set.
const FlagExecutable Flags = 1 << 0

const (
	fieldProtocol protowire.Number = iota + 1
	fieldMode
	fieldPadding
	fieldKDF
	fieldKeyBits
	fieldBlockBits
	fieldTagBits
	fieldSalt
	fieldIV
	fieldFlags
)

// Header binds a ciphertext body to everything needed to reverse it.
type Header struct {
	Params params.Set
	Salt   []byte
	IV     []byte
	Flags  Flags

	// encoded holds the bytes a header was read from.
	encoded []byte
}

// New builds a header for the given parameters.
func New(set params.Set, salt, iv []byte, flags Flags) *Header {
	return &Header{
		Params: set,
		Salt:   append([]byte{}, salt...),
		IV:     append([]byte{}, iv...),
		Flags:  flags,
	}
}

// Executable reports whether the source file was executable.
func (h *Header) Executable() bool { return h.Flags&FlagExecutable != 0 }

// Marshal returns the exact bytes Write emits. For a header obtained from
// Read these are the bytes it was parsed from.
func (h *Header) Marshal() []byte {
	if h.encoded != nil {
		return bytes.Clone(h.encoded)
	}

	var meta []byte

	meta = appendVarint(meta, fieldProtocol, uint64(h.Params.Protocol))
	meta = appendVarint(meta, fieldMode, uint64(h.Params.Mode))
	meta = appendVarint(meta, fieldPadding, uint64(h.Params.Padding))
	meta = appendVarint(meta, fieldKDF, uint64(h.Params.KDF))
	meta = appendVarint(meta, fieldKeyBits, uint64(h.Params.KeyBits))     //nolint:gosec
	meta = appendVarint(meta, fieldBlockBits, uint64(h.Params.BlockBits)) //nolint:gosec
	meta = appendVarint(meta, fieldTagBits, uint64(h.Params.TagBits))     //nolint:gosec
	meta = protowire.AppendTag(meta, fieldSalt, protowire.BytesType)
	meta = protowire.AppendBytes(meta, h.Salt)
	meta = protowire.AppendTag(meta, fieldIV, protowire.BytesType)
	meta = protowire.AppendBytes(meta, h.IV)
	meta = appendVarint(meta, fieldFlags, uint64(h.Flags))

	out := make([]byte, prefixSize, prefixSize+len(meta))
	copy(out, Magic)
	out[len(Magic)] = Version
	binary.BigEndian.PutUint32(out[len(Magic)+1:], uint32(len(meta))) //nolint:gosec

	return append(out, meta...)
}

// Size returns the encoded length of the header, which is also the offset of
// the body.
func (h *Header) Size() int { return len(h.Marshal()) }

// AAD returns the associated data bound into AEAD tags. It only depends on the
// header fields, so it is known before any body byte is processed.
func (h *Header) AAD() []byte { return h.Marshal() }

// Write serializes the header to w and returns the number of bytes written.
func Write(h *Header, w io.Writer) (int, error) {
	n, err := w.Write(h.Marshal())
	if err != nil {
		return n, fmt.Errorf("writing header: %w", err)
	}

	return n, nil
}

// Read parses a header from the start of r and returns it with its encoded length.
func Read(r io.Reader) (*Header, int, error) {
	prefix := make([]byte, prefixSize)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, 0, malformed(err, "reading header prefix")
	}

	if !bytes.Equal(prefix[:len(Magic)], []byte(Magic)) {
		return nil, 0, malformed(nil, "invalid magic")
	}

	if version := prefix[len(Magic)]; version != Version {
		if version > Version {
			return nil, 0, fmt.Errorf("%w: %w", ErrUnsupportedVersion,
				goerrors.New(CodeVersion, fmt.Sprintf("header version %d", version)))
		}

		return nil, 0, malformed(nil, fmt.Sprintf("invalid header version %d", version))
	}

	size := binary.BigEndian.Uint32(prefix[len(Magic)+1:])
	if size == 0 || size > MaxMetadataSize {
		return nil, 0, malformed(nil, fmt.Sprintf("metadata length %d out of range", size))
	}

	meta := make([]byte, size)
	if _, err := io.ReadFull(r, meta); err != nil {
		return nil, 0, malformed(err, "reading header metadata")
	}

	h, err := parse(meta)
	if err != nil {
		return nil, 0, err
	}

	h.encoded = append(prefix, meta...)

	return h, prefixSize + int(size), nil
}

// Probe reads only the header of the file at path.
func Probe(path string) (*Header, int, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, 0, fmt.Errorf("opening %q: %w", path, err)
	}
	defer file.Close()

	return Read(file)
}

//nolint:cyclop,funlen
func parse(meta []byte) (*Header, error) {
	h := &Header{}

	var seen [fieldFlags + 1]bool

	for len(meta) > 0 {
		num, typ, n := protowire.ConsumeTag(meta)
		if n < 0 {
			return nil, malformed(protowire.ParseError(n), "decoding field tag")
		}

		meta = meta[n:]

		switch {
		case num >= fieldProtocol && num <= fieldTagBits || num == fieldFlags:
			if typ != protowire.VarintType {
				return nil, malformed(nil, fmt.Sprintf("field %d has wire type %d", num, typ))
			}

			v, n := protowire.ConsumeVarint(meta)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n), fmt.Sprintf("decoding field %d", num))
			}

			meta = meta[n:]

			if err := h.setVarint(num, v); err != nil {
				return nil, err
			}

			seen[num] = true
		case num == fieldSalt || num == fieldIV:
			if typ != protowire.BytesType {
				return nil, malformed(nil, fmt.Sprintf("field %d has wire type %d", num, typ))
			}

			v, n := protowire.ConsumeBytes(meta)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n), fmt.Sprintf("decoding field %d", num))
			}

			meta = meta[n:]

			if num == fieldSalt {
				h.Salt = bytes.Clone(v)
			} else {
				h.IV = bytes.Clone(v)
			}

			seen[num] = true
		default:
			n := protowire.ConsumeFieldValue(num, typ, meta)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n), fmt.Sprintf("skipping field %d", num))
			}

			meta = meta[n:]
		}
	}

	for num := fieldProtocol; num <= fieldIV; num++ {
		if !seen[num] {
			return nil, malformed(nil, fmt.Sprintf("missing field %d", num))
		}
	}

	if len(h.Salt) == 0 || len(h.Salt) > maxSaltSize {
		return nil, malformed(nil, fmt.Sprintf("salt length %d out of range", len(h.Salt)))
	}

	if err := h.Params.Validate(); err != nil {
		return nil, malformed(err, "invalid parameters")
	}

	if len(h.IV) != h.Params.IVSize() {
		return nil, malformed(nil, fmt.Sprintf("iv length %d, want %d for %s", len(h.IV), h.Params.IVSize(), h.Params.Mode))
	}

	if h.IV == nil {
		h.IV = []byte{}
	}

	return h, nil
}

func (h *Header) setVarint(num protowire.Number, v uint64) error {
	switch num {
	case fieldFlags:
		h.Flags = Flags(v)

		return nil
	case fieldProtocol, fieldMode, fieldPadding, fieldKDF:
		if v > math.MaxUint8 {
			return malformed(nil, fmt.Sprintf("field %d value %d out of range", num, v))
		}
	default:
		if v > math.MaxUint16 {
			return malformed(nil, fmt.Sprintf("field %d value %d out of range", num, v))
		}
	}

	switch num {
	case fieldProtocol:
		h.Params.Protocol = params.Protocol(v)
	case fieldMode:
		h.Params.Mode = params.Mode(v)
	case fieldPadding:
		h.Params.Padding = params.Padding(v)
	case fieldKDF:
		h.Params.KDF = params.KDF(v)
	case fieldKeyBits:
		h.Params.KeyBits = int(v)
	case fieldBlockBits:
		h.Params.BlockBits = int(v)
	case fieldTagBits:
		h.Params.TagBits = int(v)
	}

	return nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, v)
}

func malformed(cause error, msg string) error {
	if cause == nil {
		return fmt.Errorf("%w: %w", ErrMalformedHeader, goerrors.New(CodeMalformed, msg))
	}

	return fmt.Errorf("%w: %w: %w", ErrMalformedHeader, goerrors.New(CodeMalformed, msg), cause)
}
