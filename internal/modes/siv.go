package modes

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/tink-crypto/tink-go/v2/daead"
	"github.com/tink-crypto/tink-go/v2/insecurecleartextkeyset"
	"github.com/tink-crypto/tink-go/v2/keyset"
	aes_sivpb "github.com/tink-crypto/tink-go/v2/proto/aes_siv_go_proto"
	tinkpb "github.com/tink-crypto/tink-go/v2/proto/tink_go_proto"
	"github.com/tink-crypto/tink-go/v2/tink"

	"google.golang.org/protobuf/proto"
)

const (
	// SIVSegmentSize is the plaintext size of every SIV segment but the last.
	SIVSegmentSize = 64 * 1024
	// sivOverhead is the synthetic IV prepended to each sealed segment.
	sivOverhead = 16
	// sivKeySize is the AES-SIV key: two 256-bit AES keys.
	sivKeySize = 64
)

// siv seals the body as length-prefixed AES-SIV segments. Each segment's
// associated data binds the file AAD, its index and whether it is the last,
// so segments can be neither reordered nor dropped from the end.
type siv struct {
	aead    tink.DeterministicAEAD
	aad     []byte
	index   uint64
	decrypt bool
	buf     []byte
}

func newSIV(cfg Config, decrypt bool) (*siv, error) {
	if len(cfg.Key) != sivKeySize {
		return nil, initError("SIV expects a %d byte key, got %d", sivKeySize, len(cfg.Key))
	}

	handle, err := newSIVKeyHandle(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCipherInit, err)
	}

	aead, err := daead.New(handle)
	if err != nil {
		return nil, fmt.Errorf("%w: creating deterministic AEAD: %w", ErrCipherInit, err)
	}

	return &siv{aead: aead, aad: cfg.AAD, decrypt: decrypt}, nil
}

func (s *siv) associatedData(final bool) []byte {
	ad := make([]byte, len(s.aad), len(s.aad)+9)
	copy(ad, s.aad)
	ad = binary.BigEndian.AppendUint64(ad, s.index)

	if final {
		return append(ad, 1)
	}

	return append(ad, 0)
}

func (s *siv) seal(segment []byte, final bool) ([]byte, error) {
	sealed, err := s.aead.EncryptDeterministically(segment, s.associatedData(final))
	if err != nil {
		return nil, fmt.Errorf("%w: sealing segment %d: %w", ErrCipherInit, s.index, err)
	}

	s.index++

	out := binary.BigEndian.AppendUint32(make([]byte, 0, 4+len(sealed)), uint32(len(sealed))) //nolint:gosec

	return append(out, sealed...), nil
}

func (s *siv) open(sealed []byte, final bool) ([]byte, error) {
	plain, err := s.aead.DecryptDeterministically(sealed, s.associatedData(final))
	if err != nil {
		return nil, integrityError("SIV segment %d failed authentication", s.index)
	}

	s.index++

	return plain, nil
}

// record returns the length of the first complete record in buf, or 0.
func (s *siv) record() (int, error) {
	if len(s.buf) < 4 {
		return 0, nil
	}

	n := int(binary.BigEndian.Uint32(s.buf))
	if n < sivOverhead || n > SIVSegmentSize+sivOverhead {
		return 0, integrityError("SIV segment length %d is out of range", n)
	}

	if len(s.buf) < 4+n {
		return 0, nil
	}

	return 4 + n, nil
}

func (s *siv) Update(src []byte) ([]byte, error) {
	s.buf = append(s.buf, src...)

	var out []byte

	if !s.decrypt {
		// A segment is sealed only once more data follows it.
		for len(s.buf) > SIVSegmentSize {
			sealed, err := s.seal(s.buf[:SIVSegmentSize], false)
			if err != nil {
				return nil, err
			}

			out = append(out, sealed...)
			s.buf = s.buf[SIVSegmentSize:]
		}

		s.buf = append([]byte{}, s.buf...)

		return out, nil
	}

	for {
		n, err := s.record()
		if err != nil {
			return nil, err
		}

		// The record that ends the input may be the final one.
		if n == 0 || n == len(s.buf) {
			break
		}

		plain, err := s.open(s.buf[4:n], false)
		if err != nil {
			return nil, err
		}

		out = append(out, plain...)
		s.buf = s.buf[n:]
	}

	s.buf = append([]byte{}, s.buf...)

	return out, nil
}

func (s *siv) Final() ([]byte, error) {
	defer func() { s.buf = nil }()

	if !s.decrypt {
		return s.seal(s.buf, true)
	}

	n, err := s.record()
	if err != nil {
		return nil, err
	}

	if n == 0 || n != len(s.buf) {
		return nil, integrityError("SIV body is truncated")
	}

	return s.open(s.buf[4:n], true)
}

// newSIVKeyHandle wraps a raw 64-byte key in a single-key AES-SIV keyset.
func newSIVKeyHandle(key []byte) (*keyset.Handle, error) {
	serializedKey, err := proto.Marshal(&aes_sivpb.AesSivKey{
		Version:  0,
		KeyValue: key,
	})
	if err != nil {
		return nil, fmt.Errorf("serializing AesSivKey: %w", err)
	}

	serializedKeyset, err := proto.Marshal(&tinkpb.Keyset{
		PrimaryKeyId: 1,
		Key: []*tinkpb.Keyset_Key{
			{
				KeyData: &tinkpb.KeyData{
					TypeUrl:         "type.googleapis.com/google.crypto.tink.AesSivKey",
					Value:           serializedKey,
					KeyMaterialType: tinkpb.KeyData_SYMMETRIC,
				},
				Status:           tinkpb.KeyStatusType_ENABLED,
				KeyId:            1,
				OutputPrefixType: tinkpb.OutputPrefixType_RAW,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("serializing keyset: %w", err)
	}

	handle, err := insecurecleartextkeyset.Read(keyset.NewBinaryReader(bytes.NewReader(serializedKeyset)))
	if err != nil {
		return nil, fmt.Errorf("creating keyset handle: %w", err)
	}

	return handle, nil
}
