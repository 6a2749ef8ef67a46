package offset_test

import (
	"encoding/hex"
	"os"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/fenc/internal/offset"
)

type vectors struct {
	Double []struct {
		In  string `yaml:"in"`
		Out string `yaml:"out"`
	} `yaml:"double"`
	Chain []struct {
		Index uint64 `yaml:"index"`
		Terms []int  `yaml:"terms"`
	} `yaml:"chain"`
	Counter []struct {
		IV    string `yaml:"iv"`
		Add   uint64 `yaml:"add"`
		Width int    `yaml:"width"`
		Out   string `yaml:"out"`
	} `yaml:"counter"`
}

func loadVectors(t *testing.T) vectors {
	t.Helper()

	data, err := os.ReadFile("testdata/vectors.yml")
	require.NoError(t, err)

	var v vectors
	require.NoError(t, yaml.Unmarshal(data, &v))

	return v
}

func block(t *testing.T, s string) offset.Block {
	t.Helper()

	raw, err := hex.DecodeString(s)
	require.NoError(t, err)
	require.Len(t, raw, offset.BlockSize)

	var b offset.Block
	copy(b[:], raw)

	return b
}

func TestDouble(t *testing.T) {
	t.Parallel()

	for _, tc := range loadVectors(t).Double {
		got := offset.Double(block(t, tc.In))
		assert.Equal(t, tc.Out, hex.EncodeToString(got[:]), tc.In)
	}
}

// Doubling 128 times multiplies by x^128 = x^7 + x^2 + x + 1.
func TestDouble128TimesMatchesFieldReduction(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"80000000000000000000000000000000",
		"0123456789abcdef0123456789abcdef",
		"00000000000000000000000000000001",
		"deadbeefcafebabe0011223344556677",
	} {
		b := block(t, in)

		powers := offset.Precompute(b, 128)

		want := offset.Xor(offset.Xor(powers[7], powers[2]), offset.Xor(powers[1], powers[0]))
		assert.Equal(t, want, powers[128], in)
		assert.NotEqual(t, offset.Block{}, powers[128], in)
	}
}

func TestPrecompute(t *testing.T) {
	t.Parallel()

	l := block(t, "0123456789abcdef0123456789abcdef")
	ls := offset.Precompute(l, 4)

	require.Len(t, ls, 5)
	assert.Equal(t, l, ls[0])

	for i := 1; i < len(ls); i++ {
		assert.Equal(t, offset.Double(ls[i-1]), ls[i])
	}

	assert.Len(t, offset.Precompute(l, -1), 1)
}

func TestOffsetForBlockTerms(t *testing.T) {
	t.Parallel()

	ls := offset.Precompute(block(t, "deadbeefcafebabe0011223344556677"), 63)

	for _, tc := range loadVectors(t).Chain {
		var want offset.Block
		for _, term := range tc.Terms {
			want = offset.Xor(want, ls[term])
		}

		assert.Equal(t, want, offset.OffsetForBlock(ls, tc.Index), "index %d", tc.Index)
	}
}

func TestOffsetForBlockMatchesChain(t *testing.T) {
	t.Parallel()

	ls := offset.Precompute(block(t, "0123456789abcdef0123456789abcdef"), 63)

	var chained offset.Block

	assert.Equal(t, chained, offset.OffsetForBlock(ls, 0))

	for i := uint64(1); i <= 10000; i++ {
		chained = offset.Xor(chained, ls[offset.Ntz(i)])
		require.Equal(t, chained, offset.OffsetForBlock(ls, i), "block %d", i)
	}
}

func TestNtz(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, offset.Ntz(1))
	assert.Equal(t, 1, offset.Ntz(2))
	assert.Equal(t, 0, offset.Ntz(3))
	assert.Equal(t, 3, offset.Ntz(8))
	assert.Equal(t, 10, offset.Ntz(1024))
}

func TestAddCounter(t *testing.T) {
	t.Parallel()

	for _, tc := range loadVectors(t).Counter {
		iv, err := hex.DecodeString(tc.IV)
		require.NoError(t, err)

		got := offset.AddCounter(iv, tc.Add, tc.Width)
		assert.Equal(t, tc.Out, hex.EncodeToString(got), "%s + %d", tc.IV, tc.Add)
		assert.Equal(t, tc.IV, hex.EncodeToString(iv), "input must not be modified")
	}
}
