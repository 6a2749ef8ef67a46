package params_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/fenc/internal/params"
)

func TestValidateRejectsModeOutsideProtocolTable(t *testing.T) {
	t.Parallel()

	set := params.Set{
		Protocol:  params.Blowfish,
		KeyBits:   128,
		BlockBits: 64,
		Mode:      params.GCM,
		Padding:   params.NoPadding,
		TagBits:   128,
		KDF:       params.PBKDF2SHA256,
	}

	require.ErrorIs(t, set.Validate(), params.ErrUnsupportedCombination)

	_, err := params.New(params.Blowfish, 128, params.GCM, params.NoPadding, 0, params.PBKDF2SHA256)
	require.ErrorIs(t, err, params.ErrUnsupportedCombination)
}

func TestValidateKeyLengths(t *testing.T) {
	t.Parallel()

	for _, protocol := range params.SupportedProtocols() {
		for _, bits := range params.ValidKeyLengths(protocol) {
			_, err := params.New(protocol, bits, params.CBC, params.PKCS7, 0, params.PBKDF2SHA256)
			assert.NoError(t, err, "%s-%d", protocol, bits)
		}

		_, err := params.New(protocol, 100, params.CBC, params.PKCS7, 0, params.PBKDF2SHA256)
		assert.ErrorIs(t, err, params.ErrUnsupportedCombination, "%s-100", protocol)
	}
}

func TestNormalizeForcesPadding(t *testing.T) {
	t.Parallel()

	for _, mode := range []params.Mode{params.CTR, params.OFB, params.CFB, params.GCM, params.CCM, params.OCB, params.EAX, params.WRAP} {
		set, err := params.New(params.AES, 128, mode, params.PKCS7, 0, params.PBKDF2SHA1)
		require.NoError(t, err, mode.String())
		assert.Equal(t, params.NoPadding, set.Padding, mode.String())
	}

	set, err := params.New(params.AES, 128, params.CBC, params.ISO7816, 0, params.PBKDF2SHA1)
	require.NoError(t, err)
	assert.Equal(t, params.ISO7816, set.Padding)
}

func TestTagLengths(t *testing.T) {
	t.Parallel()

	set, err := params.New(params.AES, 256, params.GCM, params.NoPadding, 0, params.Scrypt)
	require.NoError(t, err)
	assert.Equal(t, 128, set.TagBits)
	assert.True(t, set.RequiresAssociatedData())

	set, err = params.New(params.Blowfish, 448, params.EAX, params.NoPadding, 0, params.Scrypt)
	require.NoError(t, err)
	assert.Equal(t, 64, set.TagBits)

	_, err = params.New(params.Blowfish, 448, params.EAX, params.NoPadding, 128, params.Scrypt)
	require.ErrorIs(t, err, params.ErrUnsupportedCombination)

	_, err = params.New(params.AES, 128, params.GCM, params.NoPadding, 64, params.Scrypt)
	require.ErrorIs(t, err, params.ErrUnsupportedCombination)

	set, err = params.New(params.AES, 128, params.CBC, params.PKCS7, 128, params.Scrypt)
	require.NoError(t, err)
	assert.Zero(t, set.TagBits)
	assert.False(t, set.RequiresAssociatedData())
}

func TestParallelizable(t *testing.T) {
	t.Parallel()

	want := map[params.Mode]bool{
		params.CTR: true, params.GCM: true, params.CCM: true, params.OCB: true, params.EAX: true,
		params.ECB: false, params.CBC: false, params.OFB: false, params.CFB: false,
		params.WRAP: false, params.XTS: false, params.SIV: false,
	}

	for mode, parallel := range want {
		assert.Equal(t, parallel, params.IsParallelizable(mode), mode.String())
	}
}

func TestSIVRequires256BitKey(t *testing.T) {
	t.Parallel()

	_, err := params.New(params.AES, 128, params.SIV, params.NoPadding, 0, params.PBKDF2SHA256)
	require.ErrorIs(t, err, params.ErrUnsupportedCombination)

	set, err := params.New(params.AES, 256, params.SIV, params.NoPadding, 0, params.PBKDF2SHA256)
	require.NoError(t, err)
	assert.True(t, set.DoubleWidthKey())
}

func TestIVSize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		protocol params.Protocol
		mode     params.Mode
		want     int
	}{
		{params.AES, params.GCM, 12},
		{params.AES, params.CCM, 11},
		{params.AES, params.OCB, 12},
		{params.AES, params.CBC, 16},
		{params.Blowfish, params.CTR, 8},
		{params.AES, params.ECB, 0},
		{params.AES, params.WRAP, 0},
		{params.Twofish, params.XTS, 16},
	}

	for _, tc := range cases {
		set := params.Set{Protocol: tc.protocol, BlockBits: params.BlockBits(tc.protocol), Mode: tc.mode}
		assert.Equal(t, tc.want, set.IVSize(), "%s/%s", tc.protocol, tc.mode)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	protocol, err := params.ParseProtocol("twofish")
	require.NoError(t, err)
	assert.Equal(t, params.Twofish, protocol)

	mode, err := params.ParseMode("gcm")
	require.NoError(t, err)
	assert.Equal(t, params.GCM, mode)

	padding, err := params.ParsePadding("none")
	require.NoError(t, err)
	assert.Equal(t, params.NoPadding, padding)

	kdf, err := params.ParseKDF("pbkdf2-sha512")
	require.NoError(t, err)
	assert.Equal(t, params.PBKDF2SHA512, kdf)

	_, err = params.ParseMode("rot13")
	require.ErrorIs(t, err, params.ErrUnsupportedCombination)
}
