package encryption

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/idelchi/fenc/internal/fileutil"
	"github.com/idelchi/fenc/internal/header"
	"github.com/idelchi/fenc/internal/kdf"
	"github.com/idelchi/fenc/internal/modes"
)

// sequential streams the whole body through one cipher instance. It is the
// reference every other pipeline must reproduce byte for byte.
type sequential struct{}

// sealed is the key material and header of an encryption run.
type sealed struct {
	header *header.Header
	key    *kdf.Key
	size   int64
}

// prepare generates salt and IV, derives the key and builds the header.
func (r *run) prepare(source *os.File) (*sealed, error) {
	info, err := source.Stat()
	if err != nil {
		return nil, ioError(err, "stat source")
	}

	salt, err := kdf.RandomBytesFrom(r.random, header.SaltSize)
	if err != nil {
		return nil, err
	}

	iv, err := kdf.RandomBytesFrom(r.random, r.set.IVSize())
	if err != nil {
		return nil, err
	}

	key, err := kdf.Derive(r.req.Password, salt, r.set.KDF, r.set.KeyBits, r.set.DoubleWidthKey())
	if err != nil {
		return nil, err
	}

	var flags header.Flags
	if info.Mode()&0o111 != 0 {
		flags |= header.FlagExecutable
	}

	return &sealed{header: header.New(r.set, salt, iv, flags), key: key, size: info.Size()}, nil
}

func (r *run) modeConfig(s *sealed, size int64) modes.Config {
	return modes.Config{
		Params: s.header.Params,
		Key:    s.key.Full(),
		IV:     s.header.IV,
		AAD:    s.header.AAD(),
		Size:   size,
	}
}

func openSource(path string) (*os.File, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, ioError(err, fmt.Sprintf("opening source %q", path))
	}

	return file, nil
}

func (sequential) encrypt(r *run) (out outcome, err error) {
	out.pipeline, out.threads = Sequential, 1

	source, err := openSource(r.req.Source)
	if err != nil {
		return out, err
	}
	defer source.Close()

	s, err := r.prepare(source)
	if err != nil {
		return out, err
	}
	defer s.key.Wipe()

	out.set = s.header.Params

	stream, err := modes.NewEncrypter(r.modeConfig(s, s.size))
	if err != nil {
		return out, err
	}

	tc, err := fileutil.NewTempContext(r.req.Source, r.req.Destination)
	if err != nil {
		return out, ioError(err, "preparing atomic write")
	}
	defer tc.CleanupOnError(&err)

	if _, err = header.Write(s.header, tc.TmpFile); err != nil {
		return out, ioError(err, "writing header")
	}

	r.progress = newProgress(r.listener, s.size)

	err = r.stream(stream, source, tc.TmpFile)

	r.progress.close()

	if err != nil {
		return out, err
	}

	out.outputSize, err = tc.Commit(s.header.Executable(), r.preserveTimestamps)
	if err != nil {
		return out, ioError(err, "finalizing output")
	}

	return out, nil
}

func (sequential) decrypt(r *run) (out outcome, err error) {
	out.pipeline, out.threads = Sequential, 1

	source, err := openSource(r.req.Source)
	if err != nil {
		return out, err
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return out, ioError(err, "stat source")
	}

	h, hdrLen, err := header.Read(source)
	if err != nil {
		return out, err
	}

	set := h.Params
	if r.override {
		set = r.set
	}

	out.set = set

	key, err := kdf.Derive(r.req.Password, h.Salt, set.KDF, set.KeyBits, set.DoubleWidthKey())
	if err != nil {
		return out, err
	}
	defer key.Wipe()

	body := info.Size() - int64(hdrLen)

	stream, err := modes.NewDecrypter(modes.Config{
		Params: set,
		Key:    key.Full(),
		IV:     h.IV,
		AAD:    h.AAD(),
		Size:   body,
	})
	if err != nil {
		return out, err
	}

	tc, err := fileutil.NewTempContext(r.req.Source, r.req.Destination)
	if err != nil {
		return out, ioError(err, "preparing atomic write")
	}
	defer tc.CleanupOnError(&err)

	r.progress = newProgress(r.listener, body)

	err = r.stream(stream, source, tc.TmpFile)

	r.progress.close()

	if err != nil {
		return out, err
	}

	out.outputSize, err = tc.Commit(h.Executable(), r.preserveTimestamps)
	if err != nil {
		return out, ioError(err, "finalizing output")
	}

	return out, nil
}

// stream pumps chunk-sized reads from src through the cipher into dst,
// reporting progress after every chunk, and writes what Final returns.
func (r *run) stream(stream modes.Stream, src io.Reader, dst io.Writer) error {
	buf, release := getBuffer(r.req.ChunkSize)
	defer release()

	for {
		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			chunk, err := stream.Update(buf[:n])
			if err != nil {
				return err
			}

			if _, err := dst.Write(chunk); err != nil {
				return ioError(err, "writing output")
			}

			r.progress.add(n)
		}

		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}

		if readErr != nil {
			return ioError(readErr, "reading source")
		}
	}

	tail, err := stream.Final()
	if err != nil {
		return err
	}

	if _, err := dst.Write(tail); err != nil {
		return ioError(err, "writing output")
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
