// Package logic implements the core business logic for the encryption/decryption.
package logic

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/idelchi/fenc/internal/config"
	"github.com/idelchi/fenc/internal/encryption"
	"github.com/idelchi/fenc/internal/params"
)

// ErrFailed is returned when at least one file could not be processed.
var ErrFailed = errors.New("processing failed")

// Environment is where a run reads the password from and writes to.
type Environment struct {
	// Prompt asks for a password; nil disables interactive input.
	Prompt Prompter
	// Log receives the engine events.
	Log io.Writer
	// Stats receives the summary.
	Stats io.Writer
	// Options are appended to the processor options.
	Options []encryption.Option
}

// Terminal is the environment of an interactive invocation.
func Terminal() Environment {
	return Environment{
		Prompt: terminalPrompt(os.Stderr),
		Log:    os.Stderr,
		Stats:  os.Stderr,
	}
}

// Run is the main logic of the application.
func Run(cfg *config.Config) error {
	return RunWith(cfg, Terminal())
}

type stats struct {
	processed, errored int
	read, written      int64
}

// RunWith encrypts or decrypts every file in cfg.Files one after the other.
// A failure is logged and the remaining files are still processed.
//
//nolint:cyclop,funlen
func RunWith(cfg *config.Config, env Environment) error {
	start := time.Now()

	chunk, err := cfg.ChunkBytes()
	if err != nil {
		return err
	}

	var set *params.Set

	if !cfg.Decrypt || cfg.Override {
		resolved, err := cfg.Set()
		if err != nil {
			return err
		}

		set = &resolved
	}

	pw, err := password(cfg, !cfg.Decrypt, env.Prompt)
	if err != nil {
		return err
	}
	defer clear(pw)

	logger := newLogger(cfg.Quiet, cfg.Verbose)
	if env.Log != nil {
		logger.SetOutput(env.Log)
	}

	var (
		total stats
		last  encryption.Result
	)

	for _, file := range cfg.Files {
		opts := append([]encryption.Option{
			encryption.WithListener(newLogListener(logger, file)),
			encryption.WithPreserveTimestamps(cfg.PreserveTimestamps),
		}, env.Options...)

		req := encryption.Request{
			Source:      file,
			Destination: cfg.Output,
			Password:    pw,
			Params:      set,
			ChunkSize:   chunk,
			Threads:     cfg.Threads,
			Overwrite:   cfg.Overwrite,
		}

		proc := encryption.NewProcessor(opts...)

		var res encryption.Result
		if cfg.Decrypt {
			res = proc.Decrypt(req)
		} else {
			res = proc.Encrypt(req)
		}

		last = res
		total.read += res.Processed

		if res.Error != nil {
			total.errored++

			continue
		}

		total.processed++
		total.written += res.OutputSize

		logger.WithFields(logrus.Fields{
			"file":     file,
			"params":   res.Params.String(),
			"pipeline": res.Pipeline.String(),
			"threads":  res.Threads,
			"duration": res.Duration.Round(time.Millisecond),
		}).Debug("done")

		if cfg.Delete {
			if err := os.Remove(file); err != nil {
				logger.WithField("file", file).WithError(err).Error("deleting source")
			} else {
				logger.WithField("file", file).Info("deleted source")
			}
		}
	}

	if cfg.Stats && env.Stats != nil {
		printStats(env.Stats, total, last, time.Since(start))
	}

	if total.errored > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrFailed, total.errored, len(cfg.Files))
	}

	return nil
}

func printStats(w io.Writer, s stats, last encryption.Result, duration time.Duration) {
	fmt.Fprintf(w, "\nStats\n")
	fmt.Fprintf(w, "  Processed: %d\n", s.processed)
	fmt.Fprintf(w, "  Errors:    %d\n", s.errored)
	//nolint:gosec // sizes are never negative
	fmt.Fprintf(w, "  Read:      %s\n", humanize.IBytes(uint64(max(0, s.read))))
	//nolint:gosec // sizes are never negative
	fmt.Fprintf(w, "  Written:   %s\n", humanize.IBytes(uint64(max(0, s.written))))

	if last.Pipeline != 0 {
		fmt.Fprintf(w, "  Pipeline:  %s (%d threads)\n", last.Pipeline, last.Threads)
	}

	fmt.Fprintf(w, "  Duration:  %s\n", duration.Round(time.Millisecond))

	if seconds := duration.Seconds(); seconds > 0 && s.read > 0 {
		fmt.Fprintf(w, "  Rate:      %s/s\n", humanize.IBytes(uint64(float64(s.read)/seconds)))
	}
}
