package encryption

import (
	"github.com/idelchi/fenc/internal/header"
	"github.com/idelchi/fenc/internal/params"
)

// Pipeline names the strategy that processes a body.
type Pipeline uint8

const (
	// Sequential streams the body through one cipher instance.
	Sequential Pipeline = iota + 1
	// Parallel encrypts disjoint chunks of the body on a pool of workers.
	Parallel
)

func (p Pipeline) String() string {
	switch p {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// ChoosePipeline selects Parallel when more than one thread is requested and
// the mode is known and parallelizable; otherwise Sequential with one thread.
func ChoosePipeline(threads int, mode params.Mode, known bool) (Pipeline, int) {
	if threads > 1 && known && params.IsParallelizable(mode) {
		return Parallel, threads
	}

	return Sequential, 1
}

// probeMode reads only the header of path to learn its mode. Failures are not
// reported here; the pipeline reads the header again and surfaces them.
func probeMode(path string) (params.Mode, bool) {
	h, _, err := header.Probe(path)
	if err != nil {
		return 0, false
	}

	return h.Params.Mode, true
}
