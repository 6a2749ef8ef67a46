package modes

import (
	"crypto/cipher"

	"github.com/idelchi/fenc/internal/params"
)

// Stream transforms a body incrementally. Update consumes input and returns
// the output it can already produce; Final flushes what is held back and, for
// authenticated modes, appends or verifies the tag. A Stream is not safe for
// concurrent use and must not be used after Final.
type Stream interface {
	Update(src []byte) ([]byte, error)
	Final() ([]byte, error)
}

// Config carries what a mode needs besides the input.
type Config struct {
	// Params is the validated parameter set.
	Params params.Set
	// Key is the full derived key, twice the operative width for double-width modes.
	Key []byte
	// IV is the header IV or nonce.
	IV []byte
	// AAD is authenticated by AEAD modes.
	AAD []byte
	// Size is the body length consumed by the Stream: the plaintext length
	// when encrypting and the ciphertext length, tag included, when decrypting.
	// Negative means unknown; CCM requires it.
	Size int64
}

func (c Config) block() (cipher.Block, error) {
	return NewBlock(c.Params.Protocol, c.Key)
}

func (c Config) checkIV() error {
	if len(c.IV) != c.Params.IVSize() {
		return initError("%s expects a %d byte IV, got %d", c.Params.Mode, c.Params.IVSize(), len(c.IV))
	}

	return nil
}

// NewEncrypter returns the encrypting Stream of the configured mode.
func NewEncrypter(cfg Config) (Stream, error) {
	return newStream(cfg, false)
}

// NewDecrypter returns the decrypting Stream of the configured mode.
func NewDecrypter(cfg Config) (Stream, error) {
	return newStream(cfg, true)
}

//nolint:cyclop
func newStream(cfg Config, decrypt bool) (Stream, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, initError("%v", err)
	}

	if err := cfg.checkIV(); err != nil {
		return nil, err
	}

	switch cfg.Params.Mode {
	case params.XTS:
		return newXTS(cfg, decrypt)
	case params.SIV:
		return newSIV(cfg, decrypt)
	}

	block, err := cfg.block()
	if err != nil {
		return nil, err
	}

	switch cfg.Params.Mode {
	case params.ECB, params.CBC:
		return newBlockStream(cfg, block, decrypt), nil
	case params.CTR, params.OFB, params.CFB:
		return newKeyStream(cfg, block, decrypt), nil
	case params.GCM:
		return newGCM(cfg, block, decrypt)
	case params.CCM:
		return newCCM(cfg, block, decrypt)
	case params.OCB:
		return newOCB(cfg, block, decrypt)
	case params.EAX:
		return newEAX(cfg, block, decrypt)
	case params.WRAP:
		return newWrap(block, decrypt)
	default:
		return nil, initError("mode %s has no stream implementation", cfg.Params.Mode)
	}
}

// tagHolder keeps the trailing tag bytes of a ciphertext back from Update.
type tagHolder struct {
	size int
	held []byte
}

// push returns the bytes known not to belong to the tag.
func (h *tagHolder) push(src []byte) []byte {
	if h.size == 0 {
		return src
	}

	h.held = append(h.held, src...)

	if len(h.held) <= h.size {
		return nil
	}

	n := len(h.held) - h.size
	out := append([]byte{}, h.held[:n]...)
	h.held = append(h.held[:0], h.held[n:]...)

	return out
}

func (h *tagHolder) tag() ([]byte, error) {
	if len(h.held) != h.size {
		return nil, integrityError("ciphertext is shorter than the %d byte tag", h.size)
	}

	return h.held, nil
}
