package modes

import (
	"io"
	"slices"

	"github.com/idelchi/fenc/internal/params"
)

// ReaderAt reads a body addressed from its first byte.
type ReaderAt = io.ReaderAt

// Part describes one sealed chunk and the partial authentication state the
// mode keeps for it.
type Part struct {
	Offset int64
	Length int
	Sum    []byte
}

// Seekable encrypts independent chunks of a body of known size. Chunks must
// start on a multiple of Align; only the chunk that ends the body may have a
// length that is not. Tag combines the parts, which together must cover the
// body exactly, into the tag the sequential Stream would have produced;
// plain and sealed give modes whose MAC is sequential access to either body.
type Seekable interface {
	Align() int
	SealAt(dst, src []byte, off int64) (Part, error)
	Tag(parts []Part, size int64, plain, sealed ReaderAt) ([]byte, error)
}

// NewSeekable returns the chunk-addressable encrypter of a parallelizable
// mode; cfg.Size is the plaintext size.
func NewSeekable(cfg Config) (Seekable, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, initError("%v", err)
	}

	if !cfg.Params.IsParallelizable() {
		return nil, initError("mode %s cannot encrypt chunks independently", cfg.Params.Mode)
	}

	if cfg.Size < 0 {
		return nil, initError("chunked encryption requires the body size")
	}

	if err := cfg.checkIV(); err != nil {
		return nil, err
	}

	block, err := cfg.block()
	if err != nil {
		return nil, err
	}

	switch cfg.Params.Mode {
	case params.CTR:
		return &ctrSeekable{block: block, iv: cfg.IV, size: cfg.Size}, nil
	case params.GCM:
		core, err := newGCMCore(cfg, block)
		if err != nil {
			return nil, err
		}

		return &gcmSeekable{gcmCore: core, size: cfg.Size}, nil
	case params.CCM:
		core, err := newCCMCore(cfg, block, cfg.Size)
		if err != nil {
			return nil, err
		}

		return &ccmSeekable{ccmCore: core}, nil
	case params.OCB:
		core, err := newOCBCore(cfg, block)
		if err != nil {
			return nil, err
		}

		return &ocbSeekable{ocbCore: core, size: cfg.Size}, nil
	case params.EAX:
		return &eaxSeekable{eaxCore: newEAXCore(cfg, block), size: cfg.Size}, nil
	default:
		return nil, initError("mode %s cannot encrypt chunks independently", cfg.Params.Mode)
	}
}

func checkChunk(off int64, length int, size int64, align int) error {
	switch {
	case off < 0 || off%int64(align) != 0:
		return initError("chunk offset %d is not aligned to %d", off, align)
	case off+int64(length) > size:
		return initError("chunk [%d, %d) exceeds the body of %d bytes", off, off+int64(length), size)
	case length%align != 0 && off+int64(length) != size:
		return initError("only the last chunk may end off a %d byte boundary", align)
	}

	return nil
}

// checkParts verifies the parts tile [0, size) without gaps or overlap.
func checkParts(parts []Part, size int64) error {
	sorted := slices.Clone(parts)
	slices.SortFunc(sorted, func(a, b Part) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		default:
			return 0
		}
	})

	var next int64

	for _, part := range sorted {
		if part.Offset != next {
			return initError("chunks do not cover the body at offset %d", next)
		}

		next += int64(part.Length)
	}

	if next != size {
		return initError("chunks cover %d of %d bytes", next, size)
	}

	return nil
}
