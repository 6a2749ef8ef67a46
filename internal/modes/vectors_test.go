package modes

import (
	"crypto/aes"
	"encoding/hex"
	"os"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/fenc/internal/params"
)

// Vector is one known-answer case from testdata/vectors.yml.
type Vector struct {
	Key   string `yaml:"key"`
	Nonce string `yaml:"nonce"`
	AAD   string `yaml:"aad"`
	Plain string `yaml:"plain"`
	Tag   int    `yaml:"tag"`
	Out   string `yaml:"out"`
}

// VectorGroup collects the vectors of one mode.
type VectorGroup struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Cases       []Vector `yaml:"cases"`
}

func loadVectorGroups(t *testing.T) map[string]VectorGroup {
	t.Helper()

	data, err := os.ReadFile("testdata/vectors.yml")
	require.NoError(t, err)

	var groups []VectorGroup
	require.NoError(t, yaml.Unmarshal(data, &groups))

	out := make(map[string]VectorGroup, len(groups))
	for _, g := range groups {
		out[g.Name] = g
	}

	return out
}

func unhex(t *testing.T, s string) []byte {
	t.Helper()

	b, err := hex.DecodeString(s)
	require.NoError(t, err)

	return b
}

func drain(t *testing.T, s Stream, input []byte) ([]byte, error) {
	t.Helper()

	var out []byte

	for len(input) > 0 {
		n := min(3, len(input))

		chunk, err := s.Update(input[:n])
		if err != nil {
			return nil, err
		}

		out = append(out, chunk...)
		input = input[n:]
	}

	tail, err := s.Final()
	if err != nil {
		return nil, err
	}

	return append(out, tail...), nil
}

func TestAEADVectors(t *testing.T) {
	t.Parallel()

	groups := loadVectorGroups(t)

	type constructor func(Config, bool) (Stream, error)

	modesByName := map[string]struct {
		mode  params.Mode
		build constructor
	}{
		"ocb": {params.OCB, func(c Config, d bool) (Stream, error) {
			b, err := c.block()
			if err != nil {
				return nil, err
			}

			return newOCB(c, b, d)
		}},
		"eax": {params.EAX, func(c Config, d bool) (Stream, error) {
			b, err := c.block()
			if err != nil {
				return nil, err
			}

			return newEAX(c, b, d)
		}},
		"ccm": {params.CCM, func(c Config, d bool) (Stream, error) {
			b, err := c.block()
			if err != nil {
				return nil, err
			}

			return newCCM(c, b, d)
		}},
	}

	for name, entry := range modesByName {
		group, ok := groups[name]
		require.True(t, ok, "missing vectors for %s", name)

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			for i, v := range group.Cases {
				key := unhex(t, v.Key)
				plain := unhex(t, v.Plain)
				want := unhex(t, v.Out)

				cfg := Config{
					Params: params.Set{
						Protocol: params.AES, KeyBits: len(key) * 8, BlockBits: 128,
						Mode: entry.mode, Padding: params.NoPadding, TagBits: v.Tag, KDF: params.PBKDF2SHA256,
					},
					Key:  key,
					IV:   unhex(t, v.Nonce),
					AAD:  unhex(t, v.AAD),
					Size: int64(len(plain)),
				}

				enc, err := entry.build(cfg, false)
				require.NoError(t, err)

				got, err := drain(t, enc, plain)
				require.NoError(t, err)
				assert.Equal(t, v.Out, hex.EncodeToString(got), "case %d", i)

				cfg.Size = int64(len(want))

				dec, err := entry.build(cfg, true)
				require.NoError(t, err)

				opened, err := drain(t, dec, want)
				require.NoError(t, err)
				assert.Equal(t, v.Plain, hex.EncodeToString(opened), "case %d", i)
			}
		})
	}
}

func TestKeyWrapVectors(t *testing.T) {
	t.Parallel()

	for i, v := range loadVectorGroups(t)["kwp"].Cases {
		block, err := aes.NewCipher(unhex(t, v.Key))
		require.NoError(t, err)

		wrapped, err := kwpWrap(block, unhex(t, v.Plain))
		require.NoError(t, err)
		assert.Equal(t, v.Out, hex.EncodeToString(wrapped), "case %d", i)

		unwrapped, err := kwpUnwrap(block, wrapped)
		require.NoError(t, err)
		assert.Equal(t, v.Plain, hex.EncodeToString(unwrapped), "case %d", i)

		wrapped[len(wrapped)-1] ^= 1
		_, err = kwpUnwrap(block, wrapped)
		require.ErrorIs(t, err, ErrIntegrity)
	}
}

func TestKeyWrapEmptyBody(t *testing.T) {
	t.Parallel()

	block, err := aes.NewCipher(make([]byte, 16))
	require.NoError(t, err)

	wrapped, err := kwpWrap(block, nil)
	require.NoError(t, err)
	assert.Len(t, wrapped, 16)

	unwrapped, err := kwpUnwrap(block, wrapped)
	require.NoError(t, err)
	assert.Empty(t, unwrapped)
}

func TestGFMulIdentity(t *testing.T) {
	t.Parallel()

	x := loadElement(unhex(t, "66e94bd4ef8a2c3b884cfa59ca342b2e"))

	assert.Equal(t, x, gfMul(x, one))
	assert.Equal(t, x, gfMul(one, x))
	assert.Equal(t, gfMul(x, gfMul(x, x)), gfPow(x, 3))
	assert.Equal(t, one, gfPow(x, 0))
}

func TestCMACSubkeys(t *testing.T) {
	t.Parallel()

	// RFC 4493 section 4.
	block, err := aes.NewCipher(unhex(t, "2b7e151628aed2a6abf7158809cf4f3c"))
	require.NoError(t, err)

	m := newCMAC(block)
	assert.Equal(t, "fbeed618357133667c85e08f7236a8de", hex.EncodeToString(m.k1))
	assert.Equal(t, "f7ddac306ae266ccf90bc11ee46d513b", hex.EncodeToString(m.k2))
	assert.Equal(t, "bb1d6929e95937287fa37d129b756746", hex.EncodeToString(m.sum()))

	m = newCMAC(block)
	m.write(unhex(t, "6bc1bee22e409f96e93d7e117393172a"))
	assert.Equal(t, "070a16b46b4d4144f79bdd9dd04a287c", hex.EncodeToString(m.sum()))
}
