package encryption

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	goerrors "github.com/agilira/go-errors"

	"github.com/idelchi/fenc/internal/fileutil"
	"github.com/idelchi/fenc/internal/params"
)

// Suffix is appended to encrypted outputs and stripped on decryption.
const Suffix = ".enc"

// decryptedSuffix is appended when a decrypted source lacks Suffix.
const decryptedSuffix = ".dec"

// Request describes one file to process.
type Request struct {
	// Source file path.
	Source string
	// Destination file path; derived from Source when empty.
	Destination string
	// Password the key is derived from.
	Password []byte
	// Params selects the parameter set. When encrypting, nil means
	// params.Default(); when decrypting, nil means the set stored in the
	// header and a non-nil value overrides it.
	Params *params.Set
	// ChunkSize is the streaming buffer and parallel chunk size in bytes.
	ChunkSize int
	// Threads is the requested number of parallel workers.
	Threads int
	// Overwrite allows replacing an existing destination.
	Overwrite bool
}

// Option configures a Processor.
type Option func(*Processor)

// WithListener routes progress, outcome and log events to l.
func WithListener(l Listener) Option {
	return func(p *Processor) {
		if l != nil {
			p.listener = l
		}
	}
}

// WithRandom replaces the source of salts and IVs.
func WithRandom(r io.Reader) Option {
	return func(p *Processor) {
		if r != nil {
			p.random = r
		}
	}
}

// WithPreserveTimestamps copies the source modification time to the output.
func WithPreserveTimestamps(preserve bool) Option {
	return func(p *Processor) {
		p.preserveTimestamps = preserve
	}
}

// Processor handles the encryption and decryption of files.
type Processor struct {
	listener           Listener
	random             io.Reader
	preserveTimestamps bool
}

// NewProcessor creates a Processor with the given options.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		listener: NopListener{},
		random:   rand.Reader,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// run is the state of one request shared by the pipelines.
type run struct {
	*Processor

	req      Request
	set      params.Set
	override bool
	progress *progress
}

// outcome is what a pipeline reports back.
type outcome struct {
	set        params.Set
	pipeline   Pipeline
	threads    int
	outputSize int64
}

type pipeline interface {
	encrypt(r *run) (outcome, error)
	decrypt(r *run) (outcome, error)
}

// Encrypt encrypts req.Source into req.Destination.
func (p *Processor) Encrypt(req Request) Result {
	set := params.Default()
	if req.Params != nil {
		set = req.Params.Normalize()
	}

	return p.process(req, set, false)
}

// Decrypt decrypts req.Source into req.Destination.
func (p *Processor) Decrypt(req Request) Result {
	var set params.Set
	if req.Params != nil {
		set = req.Params.Normalize()
	}

	return p.process(req, set, true)
}

//nolint:funlen
func (p *Processor) process(req Request, set params.Set, decrypt bool) (result Result) {
	start := time.Now()
	verb := "encrypting"

	if decrypt {
		verb = "decrypting"
	}

	result = Result{Source: req.Source}

	defer func() {
		result.Duration = time.Since(start)

		if result.Error != nil {
			p.listener.OnError(fmt.Sprintf("%s %q failed", verb, req.Source), result.Error)
		}
	}()

	override := decrypt && req.Params != nil

	if !decrypt || override {
		if err := set.Validate(); err != nil {
			result.Error = err

			return result
		}
	}

	req, err := normalizeRequest(req, decrypt)
	if err != nil {
		result.Error = err

		return result
	}

	mode, known := set.Mode, !decrypt || override
	if !known {
		mode, known = probeMode(req.Source)
	}

	kind, threads := ChoosePipeline(req.Threads, mode, known)

	if req.Threads > 1 && kind == Sequential && known && !decrypt {
		p.listener.OnLog(fmt.Sprintf("mode %s cannot be parallelized, falling back to the sequential pipeline", mode))
	}

	var pipe pipeline = sequential{}
	if kind == Parallel {
		pipe = parallel{threads: threads}
	}

	r := &run{Processor: p, req: req, set: set, override: override}

	var out outcome

	if decrypt {
		out, err = pipe.decrypt(r)
	} else {
		out, err = pipe.encrypt(r)
	}

	result.Params = out.set
	result.Pipeline = out.pipeline
	result.Threads = out.threads

	if r.progress != nil {
		result.Processed = r.progress.processed()
	}

	if err != nil {
		result.Error = err

		return result
	}

	result.Destination = req.Destination
	result.OutputSize = out.outputSize

	message := "encrypted"
	if decrypt {
		message = "decrypted"
	}

	p.listener.OnSuccess(fmt.Sprintf("%s %q", message, req.Source), req.Destination)

	return result
}

func normalizeRequest(req Request, decrypt bool) (Request, error) {
	switch {
	case req.Source == "":
		return req, invalid("no source file given")
	case len(req.Password) == 0:
		return req, invalid("empty password")
	case req.ChunkSize < 0:
		return req, invalid(fmt.Sprintf("negative chunk size %d", req.ChunkSize))
	}

	if req.Destination == "" {
		req.Destination = OutputPath(req.Source, decrypt)
	}

	if fileutil.SamePath(req.Source, req.Destination) {
		return req, invalid(fmt.Sprintf("source and destination are both %q", req.Source))
	}

	if !req.Overwrite && fileExists(req.Destination) {
		return req, invalid(fmt.Sprintf("destination %q exists", req.Destination))
	}

	if req.ChunkSize == 0 {
		req.ChunkSize = DefaultChunkSize
	}

	if req.Threads < 1 {
		req.Threads = 1
	}

	return req, nil
}

// OutputPath derives the destination of source: Suffix is appended when
// encrypting and stripped, or replaced by ".dec" when absent, when decrypting.
func OutputPath(source string, decrypt bool) string {
	dir, base := filepath.Dir(source), filepath.Base(source)

	switch {
	case !decrypt:
		base += Suffix
	case strings.HasSuffix(base, Suffix) && len(base) > len(Suffix):
		base = strings.TrimSuffix(base, Suffix)
	default:
		base += decryptedSuffix
	}

	return filepath.Join(dir, base)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %w", ErrInvalidRequest, goerrors.New(CodeRequest, msg))
}

// ioError wraps an I/O failure keeping the cause reachable with errors.Is.
func ioError(err error, msg string) error {
	if errors.Is(err, ErrIO) {
		return err
	}

	return fmt.Errorf("%w: %w: %w", ErrIO, goerrors.New(CodeIO, msg), err)
}
