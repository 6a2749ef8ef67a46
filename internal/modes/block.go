package modes

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des" //nolint:gosec // 3DES is offered for legacy interoperability
	"fmt"

	"github.com/Picocrypt/serpent"
	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/twofish"
	"golang.org/x/crypto/xtea"

	"github.com/idelchi/fenc/internal/params"
)

// NewBlock returns the block cipher of the protocol keyed with key.
func NewBlock(protocol params.Protocol, key []byte) (cipher.Block, error) {
	var (
		block cipher.Block
		err   error
	)

	switch protocol {
	case params.AES:
		block, err = aes.NewCipher(key)
	case params.Serpent:
		block, err = serpent.NewCipher(key)
	case params.Twofish:
		block, err = twofish.NewCipher(key)
	case params.Blowfish:
		block, err = blowfish.NewCipher(key)
	case params.CAST5:
		block, err = cast5.NewCipher(key)
	case params.XTEA:
		block, err = xtea.NewCipher(key)
	case params.TripleDES:
		block, err = des.NewTripleDESCipher(key)
	default:
		return nil, initError("unknown protocol %s", protocol)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: creating %s cipher: %w", ErrCipherInit, protocol, err)
	}

	return block, nil
}
