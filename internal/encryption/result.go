package encryption

import (
	"time"

	"github.com/idelchi/fenc/internal/params"
)

// Result represents the outcome of processing a single file.
type Result struct {
	// Source file path
	Source string

	// Destination file path, set only on success
	Destination string

	// Parameter set the body was processed with
	Params params.Set

	// Pipeline that processed the body
	Pipeline Pipeline

	// Workers used by the pipeline
	Threads int

	// Body bytes consumed
	Processed int64

	// Output file size in bytes
	OutputSize int64

	// Wall time of the run
	Duration time.Duration

	// Any error that occurred during processing
	Error error
}
