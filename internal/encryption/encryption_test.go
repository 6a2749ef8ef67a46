package encryption_test

import (
	"bytes"
	"crypto/rand"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/fenc/internal/encryption"
	"github.com/idelchi/fenc/internal/params"
)

var password = []byte("correct horse battery staple")

type recorder struct {
	mu       sync.Mutex
	progress [][2]int64
	logs     []string
	errors   []error
	success  []string
}

func (r *recorder) OnProgress(done, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.progress = append(r.progress, [2]int64{done, total})
}

func (r *recorder) OnSuccess(_, destination string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.success = append(r.success, destination)
}

func (r *recorder) OnError(_ string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, cause)
}

func (r *recorder) OnLog(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs = append(r.logs, message)
}

func writeFile(t *testing.T, dir, name string, size int) (string, []byte) {
	t.Helper()

	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path, data
}

func mustSet(t *testing.T, protocol params.Protocol, bits int, mode params.Mode, padding params.Padding) params.Set {
	t.Helper()

	set, err := params.New(protocol, bits, mode, padding, 0, params.PBKDF2SHA256)
	require.NoError(t, err)

	return set
}

// seeded returns a reader that yields the same salt and IV stream every time.
func seeded(seed byte) *mrand.ChaCha8 {
	var key [32]byte
	key[0] = seed

	return mrand.NewChaCha8(key)
}

func roundTrip(t *testing.T, p *encryption.Processor, source string, set *params.Set, threads int) string {
	t.Helper()

	encrypted := encryption.OutputPath(source, false)

	res := p.Encrypt(encryption.Request{
		Source:    source,
		Password:  password,
		Params:    set,
		Threads:   threads,
		ChunkSize: 4096,
	})
	require.NoError(t, res.Error)
	assert.Equal(t, encrypted, res.Destination)

	decrypted := filepath.Join(filepath.Dir(source), "plain.out")

	res = p.Decrypt(encryption.Request{
		Source:      encrypted,
		Destination: decrypted,
		Password:    password,
		Threads:     threads,
	})
	require.NoError(t, res.Error)

	return decrypted
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	sets := []params.Set{
		mustSet(t, params.AES, 256, params.ECB, params.PKCS7),
		mustSet(t, params.AES, 128, params.CBC, params.ANSIX923),
		mustSet(t, params.AES, 192, params.CTR, params.NoPadding),
		mustSet(t, params.AES, 256, params.OFB, params.NoPadding),
		mustSet(t, params.AES, 256, params.CFB, params.NoPadding),
		mustSet(t, params.AES, 256, params.GCM, params.NoPadding),
		mustSet(t, params.AES, 256, params.CCM, params.NoPadding),
		mustSet(t, params.AES, 256, params.OCB, params.NoPadding),
		mustSet(t, params.AES, 256, params.EAX, params.NoPadding),
		mustSet(t, params.AES, 256, params.WRAP, params.NoPadding),
		mustSet(t, params.AES, 256, params.XTS, params.ISO7816),
		mustSet(t, params.AES, 256, params.SIV, params.NoPadding),
		mustSet(t, params.Serpent, 256, params.GCM, params.NoPadding),
		mustSet(t, params.Twofish, 128, params.OCB, params.NoPadding),
		mustSet(t, params.Blowfish, 448, params.CBC, params.PKCS7),
		mustSet(t, params.Blowfish, 128, params.EAX, params.NoPadding),
		mustSet(t, params.CAST5, 128, params.CTR, params.NoPadding),
		mustSet(t, params.XTEA, 128, params.CFB, params.NoPadding),
		mustSet(t, params.TripleDES, 192, params.CBC, params.ISO10126),
	}

	for _, set := range sets {
		t.Run(set.String(), func(t *testing.T) {
			t.Parallel()

			bs := set.BlockSize()

			for _, size := range []int{0, 1, bs - 1, bs, bs + 1, 3*4096 + 5} {
				dir := t.TempDir()
				source, data := writeFile(t, dir, "plain.bin", size)

				got, err := os.ReadFile(roundTrip(t, encryption.NewProcessor(), source, &set, 1))
				require.NoError(t, err)
				assert.True(t, bytes.Equal(data, got), "size %d", size)
			}
		})
	}
}

func TestRoundTripKDFs(t *testing.T) {
	t.Parallel()

	for _, kdf := range params.SupportedKDFs() {
		t.Run(kdf.String(), func(t *testing.T) {
			t.Parallel()

			set, err := params.New(params.AES, 256, params.GCM, params.NoPadding, 0, kdf)
			require.NoError(t, err)

			dir := t.TempDir()
			source, data := writeFile(t, dir, "plain.bin", 777)

			got, err := os.ReadFile(roundTrip(t, encryption.NewProcessor(), source, &set, 1))
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestRoundTripLargeParallel(t *testing.T) {
	t.Parallel()

	for _, mode := range []params.Mode{params.CTR, params.GCM, params.CCM, params.OCB, params.EAX} {
		set := mustSet(t, params.AES, 256, mode, params.NoPadding)

		t.Run(set.String(), func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			source, data := writeFile(t, dir, "plain.bin", 3<<20+7)

			got, err := os.ReadFile(roundTrip(t, encryption.NewProcessor(), source, &set, 8))
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, got))
		})
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	sets := []params.Set{
		mustSet(t, params.AES, 256, params.CTR, params.NoPadding),
		mustSet(t, params.AES, 256, params.GCM, params.NoPadding),
		mustSet(t, params.AES, 128, params.CCM, params.NoPadding),
		mustSet(t, params.Twofish, 256, params.OCB, params.NoPadding),
		mustSet(t, params.AES, 256, params.EAX, params.NoPadding),
		mustSet(t, params.Blowfish, 128, params.EAX, params.NoPadding),
		mustSet(t, params.XTEA, 128, params.CTR, params.NoPadding),
	}

	for _, set := range sets {
		t.Run(set.String(), func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			source, _ := writeFile(t, dir, "plain.bin", 300_013)

			encrypt := func(threads, chunk int) []byte {
				out := filepath.Join(dir, "out.enc")
				p := encryption.NewProcessor(encryption.WithRandom(seeded(7)))

				res := p.Encrypt(encryption.Request{
					Source:      source,
					Destination: out,
					Password:    password,
					Params:      &set,
					Threads:     threads,
					ChunkSize:   chunk,
					Overwrite:   true,
				})
				require.NoError(t, res.Error)

				data, err := os.ReadFile(out)
				require.NoError(t, err)

				return data
			}

			want := encrypt(1, 0)

			for _, threads := range []int{2, 8} {
				for _, chunk := range []int{1000, 65536} {
					assert.True(t, bytes.Equal(want, encrypt(threads, chunk)), "threads %d chunk %d", threads, chunk)
				}
			}
		})
	}
}

func TestTamperingIsDetected(t *testing.T) {
	t.Parallel()

	for _, mode := range []params.Mode{params.GCM, params.CCM, params.OCB, params.EAX, params.SIV, params.WRAP} {
		set := mustSet(t, params.AES, 256, mode, params.NoPadding)

		t.Run(set.String(), func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			source, _ := writeFile(t, dir, "plain.bin", 5000)

			res := encryption.NewProcessor().Encrypt(encryption.Request{Source: source, Password: password, Params: &set})
			require.NoError(t, res.Error)

			sealed, err := os.ReadFile(res.Destination)
			require.NoError(t, err)

			for _, pos := range []int{len(sealed) - 1, len(sealed) - 2000} {
				tampered := bytes.Clone(sealed)
				tampered[pos] ^= 0x01

				path := filepath.Join(dir, "tampered.enc")
				require.NoError(t, os.WriteFile(path, tampered, 0o600))

				out := filepath.Join(dir, "tampered.out")

				res := encryption.NewProcessor().Decrypt(encryption.Request{
					Source:      path,
					Destination: out,
					Password:    password,
					Overwrite:   true,
				})
				require.ErrorIs(t, res.Error, encryption.ErrIntegrity, "byte %d", pos)
				assert.NoFileExists(t, out)
				assert.Empty(t, res.Destination)
			}
		})
	}
}

func TestHeaderTamperingIsDetected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source, _ := writeFile(t, dir, "plain.bin", 100)

	res := encryption.NewProcessor().Encrypt(encryption.Request{Source: source, Password: password})
	require.NoError(t, res.Error)

	sealed, err := os.ReadFile(res.Destination)
	require.NoError(t, err)

	// The metadata ends with the IV followed by the one byte flags field.
	// Both are bound as associated data.
	tampered := bytes.Clone(sealed)
	tampered[len(sealed)-100-16-3] ^= 0x01

	path := filepath.Join(dir, "tampered.enc")
	require.NoError(t, os.WriteFile(path, tampered, 0o600))

	res = encryption.NewProcessor().Decrypt(encryption.Request{Source: path, Password: password})
	require.ErrorIs(t, res.Error, encryption.ErrIntegrity)
	assert.NoFileExists(t, filepath.Join(dir, "tampered"))
}

func TestWrongPassword(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source, data := writeFile(t, dir, "plain.bin", 2048)

	gcm := mustSet(t, params.AES, 256, params.GCM, params.NoPadding)
	ctr := mustSet(t, params.AES, 256, params.CTR, params.NoPadding)

	for _, set := range []params.Set{gcm, ctr} {
		encrypted := filepath.Join(dir, set.Mode.String()+".enc")
		decrypted := filepath.Join(dir, set.Mode.String()+".out")

		res := encryption.NewProcessor().Encrypt(encryption.Request{
			Source:      source,
			Destination: encrypted,
			Password:    password,
			Params:      &set,
		})
		require.NoError(t, res.Error)

		res = encryption.NewProcessor().Decrypt(encryption.Request{
			Source:      encrypted,
			Destination: decrypted,
			Password:    []byte("wrong"),
		})

		if set.Mode == params.GCM {
			require.ErrorIs(t, res.Error, encryption.ErrIntegrity)
			assert.NoFileExists(t, decrypted)

			continue
		}

		// Unauthenticated modes cannot tell a wrong key from a right one.
		require.NoError(t, res.Error)

		got, err := os.ReadFile(decrypted)
		require.NoError(t, err)
		assert.NotEqual(t, data, got)
	}
}

func TestUnsupportedCombinationBeforeIO(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist.bin")

	set := params.Set{
		Protocol:  params.Blowfish,
		KeyBits:   128,
		BlockBits: 64,
		Mode:      params.GCM,
		Padding:   params.NoPadding,
		TagBits:   128,
		KDF:       params.PBKDF2SHA256,
	}

	rec := &recorder{}

	res := encryption.NewProcessor(encryption.WithListener(rec)).Encrypt(encryption.Request{
		Source:   missing,
		Password: password,
		Params:   &set,
	})
	require.ErrorIs(t, res.Error, encryption.ErrUnsupportedCombination)
	require.NotErrorIs(t, res.Error, encryption.ErrIO)

	assert.Empty(t, rec.progress)
	assert.Len(t, rec.errors, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInvalidRequests(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source, _ := writeFile(t, dir, "plain.bin", 10)

	existing := filepath.Join(dir, "existing.enc")
	require.NoError(t, os.WriteFile(existing, []byte("keep"), 0o600))

	tests := []struct {
		name string
		req  encryption.Request
	}{
		{name: "no source", req: encryption.Request{Password: password}},
		{name: "empty password", req: encryption.Request{Source: source}},
		{name: "negative chunk", req: encryption.Request{Source: source, Password: password, ChunkSize: -1}},
		{name: "same path", req: encryption.Request{Source: source, Destination: source, Password: password}},
		{name: "existing destination", req: encryption.Request{Source: source, Destination: existing, Password: password}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := encryption.NewProcessor().Encrypt(tt.req)
			require.ErrorIs(t, res.Error, encryption.ErrInvalidRequest)
		})
	}

	got, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(got))
}

func TestOverwrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source, data := writeFile(t, dir, "plain.bin", 64)

	existing := filepath.Join(dir, "existing.enc")
	require.NoError(t, os.WriteFile(existing, []byte("replace me"), 0o600))

	res := encryption.NewProcessor().Encrypt(encryption.Request{
		Source:      source,
		Destination: existing,
		Password:    password,
		Overwrite:   true,
	})
	require.NoError(t, res.Error)

	out := filepath.Join(dir, "out.bin")
	res = encryption.NewProcessor().Decrypt(encryption.Request{Source: existing, Destination: out, Password: password})
	require.NoError(t, res.Error)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSequentialFallbackIsLogged(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source, _ := writeFile(t, dir, "plain.bin", 10_000)

	cbc := mustSet(t, params.AES, 256, params.CBC, params.PKCS7)
	rec := &recorder{}
	p := encryption.NewProcessor(encryption.WithListener(rec))

	res := p.Encrypt(encryption.Request{Source: source, Password: password, Params: &cbc, Threads: 4})
	require.NoError(t, res.Error)
	assert.Equal(t, encryption.Sequential, res.Pipeline)
	assert.Equal(t, 1, res.Threads)
	require.Len(t, rec.logs, 1)
	assert.Contains(t, rec.logs[0], "sequential")

	res = p.Decrypt(encryption.Request{
		Source:      res.Destination,
		Destination: filepath.Join(dir, "cbc.out"),
		Password:    password,
		Threads:     4,
	})
	require.NoError(t, res.Error)
	assert.Len(t, rec.logs, 1, "CBC headers never select the parallel pipeline")

	gcm := filepath.Join(dir, "gcm.enc")

	res = p.Encrypt(encryption.Request{Source: source, Destination: gcm, Password: password, Threads: 4})
	require.NoError(t, res.Error)
	assert.Equal(t, encryption.Parallel, res.Pipeline)
	assert.Equal(t, 4, res.Threads)
	assert.Len(t, rec.logs, 1)

	res = p.Decrypt(encryption.Request{
		Source:      gcm,
		Destination: filepath.Join(dir, "gcm.out"),
		Password:    password,
		Threads:     4,
	})
	require.NoError(t, res.Error)
	assert.Equal(t, encryption.Sequential, res.Pipeline)
	require.Len(t, rec.logs, 2)
	assert.Contains(t, rec.logs[1], "sequential")
}

func TestMalformedSourceFailsCleanly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.enc")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not an encrypted file"), 0o600))

	res := encryption.NewProcessor().Decrypt(encryption.Request{Source: garbage, Password: password, Threads: 8})
	require.ErrorIs(t, res.Error, encryption.ErrMalformedHeader)
	assert.Equal(t, encryption.Sequential, res.Pipeline)
	assert.NoFileExists(t, filepath.Join(dir, "garbage"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDecryptOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source, data := writeFile(t, dir, "plain.bin", 1000)

	cbc := mustSet(t, params.AES, 256, params.CBC, params.PKCS7)

	res := encryption.NewProcessor().Encrypt(encryption.Request{Source: source, Password: password, Params: &cbc})
	require.NoError(t, res.Error)

	encrypted := res.Destination

	same := filepath.Join(dir, "same.out")
	res = encryption.NewProcessor().Decrypt(encryption.Request{
		Source:      encrypted,
		Destination: same,
		Password:    password,
		Params:      &cbc,
	})
	require.NoError(t, res.Error)
	assert.Equal(t, cbc, res.Params)

	got, err := os.ReadFile(same)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// A GCM override expects a 12 byte nonce where the header stores 16 IV bytes.
	gcm := mustSet(t, params.AES, 256, params.GCM, params.NoPadding)
	res = encryption.NewProcessor().Decrypt(encryption.Request{
		Source:      encrypted,
		Destination: filepath.Join(dir, "gcm.out"),
		Password:    password,
		Params:      &gcm,
	})
	require.ErrorIs(t, res.Error, encryption.ErrCipherInit)
	assert.NoFileExists(t, filepath.Join(dir, "gcm.out"))
}

func TestProgressIsMonotonic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source, _ := writeFile(t, dir, "plain.bin", 200_000)

	for _, threads := range []int{1, 6} {
		rec := &recorder{}

		res := encryption.NewProcessor(encryption.WithListener(rec)).Encrypt(encryption.Request{
			Source:      source,
			Destination: filepath.Join(dir, "out.enc"),
			Password:    password,
			Threads:     threads,
			ChunkSize:   8192,
			Overwrite:   true,
		})
		require.NoError(t, res.Error)
		assert.EqualValues(t, 200_000, res.Processed)
		require.NotEmpty(t, rec.progress)

		last := int64(0)

		for _, event := range rec.progress {
			assert.Greater(t, event[0], last)
			assert.EqualValues(t, 200_000, event[1])
			last = event[0]
		}

		assert.EqualValues(t, 200_000, last)
		assert.Len(t, rec.success, 1)
	}
}

func TestExecutableBitSurvives(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source, _ := writeFile(t, dir, "tool.sh", 300)
	require.NoError(t, os.Chmod(source, 0o755))

	res := encryption.NewProcessor().Encrypt(encryption.Request{Source: source, Password: password})
	require.NoError(t, res.Error)

	info, err := os.Stat(res.Destination)
	require.NoError(t, err)
	assert.Zero(t, info.Mode()&0o066, "encrypted output is private")

	require.NoError(t, os.Remove(source))

	res = encryption.NewProcessor().Decrypt(encryption.Request{Source: res.Destination, Password: password})
	require.NoError(t, res.Error)
	assert.Equal(t, source, res.Destination)

	info, err = os.Stat(source)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o100)
}

func TestChoosePipeline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		threads int
		mode    params.Mode
		known   bool
		want    encryption.Pipeline
		workers int
	}{
		{threads: 1, mode: params.GCM, known: true, want: encryption.Sequential, workers: 1},
		{threads: 4, mode: params.GCM, known: true, want: encryption.Parallel, workers: 4},
		{threads: 4, mode: params.CTR, known: true, want: encryption.Parallel, workers: 4},
		{threads: 4, mode: params.CBC, known: true, want: encryption.Sequential, workers: 1},
		{threads: 4, mode: params.SIV, known: true, want: encryption.Sequential, workers: 1},
		{threads: 4, mode: params.GCM, known: false, want: encryption.Sequential, workers: 1},
		{threads: 0, mode: params.OCB, known: true, want: encryption.Sequential, workers: 1},
	}

	for _, tt := range tests {
		got, workers := encryption.ChoosePipeline(tt.threads, tt.mode, tt.known)
		assert.Equal(t, tt.want, got, "%d %s %v", tt.threads, tt.mode, tt.known)
		assert.Equal(t, tt.workers, workers)
	}
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	sep := string(filepath.Separator)

	assert.Equal(t, "dir"+sep+"a.txt.enc", encryption.OutputPath("dir/a.txt", false))
	assert.Equal(t, "dir"+sep+"a.txt", encryption.OutputPath("dir/a.txt.enc", true))
	assert.Equal(t, "dir"+sep+"a.txt.dec", encryption.OutputPath("dir/a.txt", true))
	assert.True(t, strings.HasSuffix(encryption.OutputPath(".enc", true), ".enc.dec"))
}
