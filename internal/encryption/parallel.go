package encryption

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	goerrors "github.com/agilira/go-errors"
	"golang.org/x/sync/errgroup"

	"github.com/idelchi/fenc/internal/fileutil"
	"github.com/idelchi/fenc/internal/header"
	"github.com/idelchi/fenc/internal/modes"
)

// parallel encrypts disjoint chunks of the body on a fixed pool of workers.
// Every worker owns its source and destination handles and addresses them
// with positional reads and writes, so no seek cursor is shared.
type parallel struct {
	threads int
}

func (p parallel) decrypt(r *run) (outcome, error) {
	r.listener.OnLog("decryption verifies the tag over the whole body, using the sequential pipeline")

	return sequential{}.decrypt(r)
}

//nolint:funlen
func (p parallel) encrypt(r *run) (out outcome, err error) {
	if !r.set.IsParallelizable() {
		r.listener.OnLog(fmt.Sprintf("mode %s cannot be parallelized, falling back to the sequential pipeline", r.set.Mode))

		return sequential{}.encrypt(r)
	}

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
	out.pipeline, out.threads = Parallel, p.threads
	cfg := r.modeConfig(s, s.size)

	sealer, err := modes.NewSeekable(cfg)
	if err != nil {
		return out, err
	}

	chunkSize := roundUp(r.req.ChunkSize, sealer.Align())

	tc, err := fileutil.NewTempContext(r.req.Source, r.req.Destination)
	if err != nil {
		return out, ioError(err, "preparing atomic write")
	}
	defer tc.CleanupOnError(&err)

	hdrLen, err := header.Write(s.header, tc.TmpFile)
	if err != nil {
		return out, ioError(err, "writing header")
	}

	r.progress = newProgress(r.listener, s.size)

	parts, err := p.sealChunks(r, cfg, tc.TmpName, int64(hdrLen), s.size, chunkSize)

	r.progress.close()

	if err != nil {
		return out, err
	}

	plain := source
	sealedBody := io.NewSectionReader(tc.TmpFile, int64(hdrLen), s.size)

	tag, err := sealer.Tag(parts, s.size, plain, sealedBody)
	if err != nil {
		return out, err
	}

	if _, err = tc.TmpFile.WriteAt(tag, int64(hdrLen)+s.size); err != nil {
		return out, ioError(err, "writing tag")
	}

	out.outputSize, err = tc.Commit(s.header.Executable(), r.preserveTimestamps)
	if err != nil {
		return out, ioError(err, "finalizing output")
	}

	return out, nil
}

// sealChunks feeds chunk offsets to the workers and collects their parts.
// The first failure cancels the producer; chunks already in flight finish.
func (p parallel) sealChunks(r *run, cfg modes.Config, tmpName string, hdrLen, size int64, chunkSize int) ([]modes.Part, error) {
	chunks := int((size + int64(chunkSize) - 1) / int64(chunkSize))
	workers := max(1, min(p.threads, chunks))

	group, ctx := errgroup.WithContext(context.Background())

	offsets := make(chan int64)

	group.Go(func() error {
		defer close(offsets)

		for off := int64(0); off < size; off += int64(chunkSize) {
			select {
			case offsets <- off:
			case <-ctx.Done():
				return nil
			}
		}

		return nil
	})

	results := make([][]modes.Part, workers)

	for id := range workers {
		group.Go(func() error {
			parts, err := p.worker(ctx, r, cfg, tmpName, hdrLen, size, chunkSize, offsets)
			results[id] = parts

			return err
		})
	}

	if err := group.Wait(); err != nil {
		return nil, concurrencyError(err, workers)
	}

	var parts []modes.Part
	for _, list := range results {
		parts = append(parts, list...)
	}

	return parts, nil
}

//nolint:cyclop
func (p parallel) worker(
	ctx context.Context,
	r *run,
	cfg modes.Config,
	tmpName string,
	hdrLen, size int64,
	chunkSize int,
	offsets <-chan int64,
) (parts []modes.Part, err error) {
	sealer, err := modes.NewSeekable(cfg)
	if err != nil {
		return nil, err
	}

	src, err := openSource(r.req.Source)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst, err := os.OpenFile(tmpName, os.O_WRONLY, 0)
	if err != nil {
		return nil, ioError(err, "opening destination handle")
	}

	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = ioError(closeErr, "closing destination handle")
		}
	}()

	in := make([]byte, chunkSize)
	sealed := make([]byte, chunkSize)

	for off := range offsets {
		if ctx.Err() != nil {
			continue
		}

		length := int(min(int64(chunkSize), size-off))

		n, readErr := src.ReadAt(in[:length], off)
		if n != length {
			if readErr == nil || errors.Is(readErr, io.EOF) {
				readErr = io.ErrUnexpectedEOF
			}

			return parts, ioError(readErr, fmt.Sprintf("reading chunk at %d", off))
		}

		part, err := sealer.SealAt(sealed[:length], in[:length], off)
		if err != nil {
			return parts, err
		}

		if _, err := dst.WriteAt(sealed[:length], hdrLen+off); err != nil {
			return parts, ioError(err, fmt.Sprintf("writing chunk at %d", off))
		}

		parts = append(parts, part)
		r.progress.add(length)
	}

	return parts, nil
}

// concurrencyError reports the first chunk failure of a parallel run.
func concurrencyError(err error, workers int) error {
	return fmt.Errorf("%w: %w: %w", ErrConcurrency,
		goerrors.New(CodeConcurrency, fmt.Sprintf("first failure among %d workers", workers)), err)
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}

	return (n + align - 1) / align * align
}
