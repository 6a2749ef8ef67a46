package params

import (
	"fmt"
	"slices"

	goerrors "github.com/agilira/go-errors"
)

type protocolInfo struct {
	keyBits   []int
	blockBits int
	modes     []Mode
}

var (
	wideModes   = []Mode{ECB, CBC, CTR, OFB, CFB, GCM, CCM, OCB, EAX, WRAP, XTS}
	narrowModes = []Mode{ECB, CBC, CTR, OFB, CFB, EAX}
)

//nolint:gochecknoglobals
var protocols = map[Protocol]protocolInfo{
	AES:       {keyBits: []int{128, 192, 256}, blockBits: 128, modes: append(slices.Clone(wideModes), SIV)},
	Serpent:   {keyBits: []int{128, 192, 256}, blockBits: 128, modes: wideModes},
	Twofish:   {keyBits: []int{128, 192, 256}, blockBits: 128, modes: wideModes},
	Blowfish:  {keyBits: []int{128, 192, 256, 448}, blockBits: 64, modes: narrowModes},
	CAST5:     {keyBits: []int{128}, blockBits: 64, modes: narrowModes},
	XTEA:      {keyBits: []int{128}, blockBits: 64, modes: narrowModes},
	TripleDES: {keyBits: []int{192}, blockBits: 64, modes: narrowModes},
}

//nolint:gochecknoglobals
var tagBits = map[Mode][]int{
	GCM: {96, 104, 112, 120, 128},
	CCM: {32, 48, 64, 80, 96, 112, 128},
	OCB: {64, 96, 128},
	EAX: {32, 64, 96, 128},
	SIV: {128},
}

// SupportedProtocols lists every protocol in stable order.
func SupportedProtocols() []Protocol {
	return []Protocol{AES, Serpent, Twofish, Blowfish, CAST5, XTEA, TripleDES}
}

// SupportedModes lists every mode in stable order.
func SupportedModes() []Mode {
	return []Mode{ECB, CBC, CTR, OFB, CFB, GCM, CCM, OCB, EAX, WRAP, XTS, SIV}
}

// SupportedPaddings lists every padding in stable order.
func SupportedPaddings() []Padding {
	return []Padding{NoPadding, PKCS7, ISO10126, ANSIX923, ISO7816}
}

// SupportedKDFs lists every key derivation function in stable order.
func SupportedKDFs() []KDF {
	return []KDF{PBKDF2SHA1, PBKDF2SHA256, PBKDF2SHA512, PBKDF2SHA3, Scrypt, Argon2id}
}

// ValidKeyLengths returns the key lengths in bits the protocol accepts.
func ValidKeyLengths(p Protocol) []int {
	return slices.Clone(protocols[p].keyBits)
}

// ModesFor returns the modes the protocol supports.
func ModesFor(p Protocol) []Mode {
	return slices.Clone(protocols[p].modes)
}

// BlockBits returns the block size in bits of the protocol, or 0 if unknown.
func BlockBits(p Protocol) int {
	return protocols[p].blockBits
}

// ValidTagLengths returns the tag lengths in bits for an AEAD mode over the
// protocol's block size, or nil for modes without a tag.
func ValidTagLengths(p Protocol, m Mode) []int {
	block := BlockBits(p)

	var out []int

	for _, bits := range tagBits[m] {
		if bits <= block {
			out = append(out, bits)
		}
	}

	return out
}

// DefaultTagBits returns the tag length used when none is requested.
func DefaultTagBits(m Mode, blockBits int) int {
	if !IsAEADMode(m) {
		return 0
	}

	if blockBits > 0 && blockBits < 128 {
		return blockBits
	}

	return 128
}

// IsStreamMode reports whether the mode turns the block cipher into a keystream.
func IsStreamMode(m Mode) bool {
	return m == CTR || m == OFB || m == CFB
}

// IsAEADMode reports whether the mode produces an authentication tag over the
// body and associated data.
func IsAEADMode(m Mode) bool {
	switch m {
	case GCM, CCM, OCB, EAX, SIV:
		return true
	default:
		return false
	}
}

// IsParallelizable reports whether chunks of the body can be encrypted
// independently given only their offset.
func IsParallelizable(m Mode) bool {
	switch m {
	case CTR, GCM, CCM, OCB, EAX:
		return true
	default:
		return false
	}
}

// UsesPadding reports whether the mode honours the padding setting.
func UsesPadding(m Mode) bool {
	return m == ECB || m == CBC || m == XTS
}

// Validate checks the set against the compatibility tables.
func (s Set) Validate() error {
	info, ok := protocols[s.Protocol]
	if !ok {
		return unsupported("unknown protocol %d", uint8(s.Protocol))
	}

	if _, ok := modeNames[s.Mode]; !ok {
		return unsupported("unknown mode %d", uint8(s.Mode))
	}

	if !slices.Contains(info.modes, s.Mode) {
		return unsupported("mode %s is not supported by %s", s.Mode, s.Protocol)
	}

	if !slices.Contains(info.keyBits, s.KeyBits) {
		return unsupported("key length %d is not supported by %s (valid: %v)", s.KeyBits, s.Protocol, info.keyBits)
	}

	if s.BlockBits != info.blockBits {
		return unsupported("block size %d does not match %s (%d)", s.BlockBits, s.Protocol, info.blockBits)
	}

	if s.Mode == SIV && s.KeyBits != 256 {
		return unsupported("SIV requires a 256-bit key")
	}

	if _, ok := paddingNames[s.Padding]; !ok {
		return unsupported("unknown padding %d", uint8(s.Padding))
	}

	if !UsesPadding(s.Mode) && s.Padding != NoPadding {
		return unsupported("mode %s does not use padding", s.Mode)
	}

	if _, ok := kdfNames[s.KDF]; !ok {
		return unsupported("unknown kdf %d", uint8(s.KDF))
	}

	if IsAEADMode(s.Mode) {
		if valid := ValidTagLengths(s.Protocol, s.Mode); !slices.Contains(valid, s.TagBits) {
			return unsupported("tag length %d is not valid for %s/%s (valid: %v)", s.TagBits, s.Protocol, s.Mode, valid)
		}
	} else if s.TagBits != 0 {
		return unsupported("mode %s has no authentication tag", s.Mode)
	}

	return nil
}

func unsupported(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)

	return fmt.Errorf("%w: %w", ErrUnsupportedCombination, goerrors.New(CodeUnsupported, msg))
}
