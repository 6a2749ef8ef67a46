// Package params models the cryptographic parameter sets the engine accepts
// and the static compatibility rules between protocols, modes, key lengths,
// paddings, tag lengths and key derivation functions.
package params

import (
	"fmt"
	"strings"
)

// Protocol identifies a block cipher family.
type Protocol uint8

const (
	AES Protocol = iota + 1
	Serpent
	Twofish
	Blowfish
	CAST5
	XTEA
	TripleDES
)

// Mode identifies a block cipher mode of operation.
type Mode uint8

const (
	ECB Mode = iota + 1
	CBC
	CTR
	OFB
	CFB
	GCM
	CCM
	OCB
	EAX
	WRAP
	XTS
	SIV
)

// Padding identifies a block padding scheme.
type Padding uint8

const (
	NoPadding Padding = iota + 1
	PKCS7
	ISO10126
	ANSIX923
	ISO7816
)

// KDF identifies a password based key derivation function.
type KDF uint8

const (
	PBKDF2SHA1 KDF = iota + 1
	PBKDF2SHA256
	PBKDF2SHA512
	PBKDF2SHA3
	Scrypt
	Argon2id
)

var protocolNames = map[Protocol]string{
	AES:       "AES",
	Serpent:   "Serpent",
	Twofish:   "Twofish",
	Blowfish:  "Blowfish",
	CAST5:     "CAST5",
	XTEA:      "XTEA",
	TripleDES: "3DES",
}

var modeNames = map[Mode]string{
	ECB:  "ECB",
	CBC:  "CBC",
	CTR:  "CTR",
	OFB:  "OFB",
	CFB:  "CFB",
	GCM:  "GCM",
	CCM:  "CCM",
	OCB:  "OCB",
	EAX:  "EAX",
	WRAP: "WRAP",
	XTS:  "XTS",
	SIV:  "SIV",
}

var paddingNames = map[Padding]string{
	NoPadding: "None",
	PKCS7:     "PKCS7",
	ISO10126:  "ISO10126",
	ANSIX923:  "ANSIX923",
	ISO7816:   "ISO7816",
}

var kdfNames = map[KDF]string{
	PBKDF2SHA1:   "PBKDF2-SHA1",
	PBKDF2SHA256: "PBKDF2-SHA256",
	PBKDF2SHA512: "PBKDF2-SHA512",
	PBKDF2SHA3:   "PBKDF2-SHA3-256",
	Scrypt:       "Scrypt",
	Argon2id:     "Argon2id",
}

func (p Protocol) String() string { return name(protocolNames, p) }
func (m Mode) String() string     { return name(modeNames, m) }
func (p Padding) String() string  { return name(paddingNames, p) }
func (k KDF) String() string      { return name(kdfNames, k) }

func name[T ~uint8](names map[T]string, v T) string {
	if s, ok := names[v]; ok {
		return s
	}

	return fmt.Sprintf("unknown(%d)", uint8(v))
}

func parse[T ~uint8](names map[T]string, kind, s string) (T, error) {
	for v, n := range names {
		if strings.EqualFold(n, s) {
			return v, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown %s %q", ErrUnsupportedCombination, kind, s)
}

// ParseProtocol resolves a protocol by its case-insensitive name.
func ParseProtocol(s string) (Protocol, error) { return parse(protocolNames, "protocol", s) }

// ParseMode resolves a mode by its case-insensitive name.
func ParseMode(s string) (Mode, error) { return parse(modeNames, "mode", s) }

// ParsePadding resolves a padding by its case-insensitive name.
func ParsePadding(s string) (Padding, error) {
	if strings.EqualFold(s, "none") || strings.EqualFold(s, "nopadding") {
		return NoPadding, nil
	}

	return parse(paddingNames, "padding", s)
}

// ParseKDF resolves a key derivation function by its case-insensitive name.
func ParseKDF(s string) (KDF, error) { return parse(kdfNames, "kdf", s) }

// Set is one immutable cryptographic configuration.
type Set struct {
	Protocol  Protocol
	KeyBits   int
	BlockBits int
	Mode      Mode
	Padding   Padding
	TagBits   int
	KDF       KDF
}

// Default returns AES-256-GCM with a 128-bit tag and PBKDF2-SHA256.
func Default() Set {
	return Set{
		Protocol:  AES,
		KeyBits:   256,
		BlockBits: 128,
		Mode:      GCM,
		Padding:   NoPadding,
		TagBits:   128,
		KDF:       PBKDF2SHA256,
	}
}

// New builds a normalized set for the given protocol and mode, filling the
// block size from the protocol table and the tag length with the mode default.
func New(protocol Protocol, keyBits int, mode Mode, padding Padding, tagBits int, kdf KDF) (Set, error) {
	set := Set{
		Protocol:  protocol,
		KeyBits:   keyBits,
		BlockBits: BlockBits(protocol),
		Mode:      mode,
		Padding:   padding,
		TagBits:   tagBits,
		KDF:       kdf,
	}.Normalize()

	if err := set.Validate(); err != nil {
		return Set{}, err
	}

	return set, nil
}

// Normalize forces the padding to none for stream-like, AEAD and key wrap
// modes, defaults the tag length of AEAD modes and clears it otherwise.
func (s Set) Normalize() Set {
	if s.BlockBits == 0 {
		s.BlockBits = BlockBits(s.Protocol)
	}

	if s.Padding == 0 || !UsesPadding(s.Mode) {
		s.Padding = NoPadding
	}

	switch {
	case !IsAEADMode(s.Mode):
		s.TagBits = 0
	case s.TagBits == 0:
		s.TagBits = DefaultTagBits(s.Mode, s.BlockBits)
	}

	return s
}

// RequiresAssociatedData reports whether the mode authenticates associated data.
func (s Set) RequiresAssociatedData() bool { return IsAEADMode(s.Mode) }

// IsParallelizable reports whether the mode supports independent, randomly
// addressable chunk transforms.
func (s Set) IsParallelizable() bool { return IsParallelizable(s.Mode) }

// DoubleWidthKey reports whether the mode consumes twice KeyBits of key material.
func (s Set) DoubleWidthKey() bool { return s.Mode == XTS || s.Mode == SIV }

// BlockSize returns the cipher block size in bytes.
func (s Set) BlockSize() int { return s.BlockBits / 8 }

// KeySize returns the operative key size in bytes.
func (s Set) KeySize() int { return s.KeyBits / 8 }

// TagSize returns the authentication tag size in bytes.
func (s Set) TagSize() int { return s.TagBits / 8 }

// IVSize returns the size of the random IV or nonce stored in the header.
func (s Set) IVSize() int {
	switch s.Mode {
	case GCM, OCB:
		return 12
	case CCM:
		return 11
	case ECB, WRAP, SIV:
		return 0
	default:
		return s.BlockSize()
	}
}

func (s Set) String() string {
	out := fmt.Sprintf("%s-%d/%s/%s", s.Protocol, s.KeyBits, s.Mode, s.Padding)
	if s.TagBits > 0 {
		out += fmt.Sprintf("/tag%d", s.TagBits)
	}

	return out + "/" + s.KDF.String()
}
