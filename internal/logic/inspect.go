package logic

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-yaml"

	"github.com/idelchi/fenc/internal/header"
	"github.com/idelchi/fenc/internal/params"
)

// headerView is the printable form of a file header.
type headerView struct {
	File       string `yaml:"file"`
	Version    int    `yaml:"version"`
	HeaderSize int    `yaml:"header-size"`
	BodySize   string `yaml:"body-size"`
	Protocol   string `yaml:"protocol"`
	KeyLength  int    `yaml:"key-length"`
	BlockSize  int    `yaml:"block-size"`
	Mode       string `yaml:"mode"`
	Padding    string `yaml:"padding"`
	TagLength  int    `yaml:"tag-length,omitempty"`
	KDF        string `yaml:"kdf"`
	Salt       string `yaml:"salt"`
	IV         string `yaml:"iv,omitempty"`
	Executable bool   `yaml:"executable"`
	Parallel   bool   `yaml:"parallel"`
}

// Inspect prints the header of every file as YAML documents to w. Files that
// are not readable or not encrypted are reported to errw and skipped.
func Inspect(w, errw io.Writer, files []string) error {
	var failed, printed int

	for _, file := range files {
		view, err := inspect(file)
		if err != nil {
			fmt.Fprintf(errw, "Error inspecting %q: %v\n", file, err)

			failed++

			continue
		}

		out, err := yaml.Marshal(view)
		if err != nil {
			return fmt.Errorf("rendering header of %q: %w", file, err)
		}

		if printed > 0 {
			fmt.Fprintln(w, "---")
		}

		if _, err := w.Write(out); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}

		printed++
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrFailed, failed, len(files))
	}

	return nil
}

func inspect(file string) (headerView, error) {
	h, size, err := header.Probe(file)
	if err != nil {
		return headerView{}, err
	}

	info, err := os.Stat(file)
	if err != nil {
		return headerView{}, fmt.Errorf("stat %q: %w", file, err)
	}

	set := h.Params

	return headerView{
		File:       file,
		Version:    int(header.Version),
		HeaderSize: size,
		BodySize:   humanize.IBytes(uint64(max(0, info.Size()-int64(size)))), //nolint:gosec
		Protocol:   set.Protocol.String(),
		KeyLength:  set.KeyBits,
		BlockSize:  set.BlockBits,
		Mode:       set.Mode.String(),
		Padding:    set.Padding.String(),
		TagLength:  set.TagBits,
		KDF:        set.KDF.String(),
		Salt:       hex.EncodeToString(h.Salt),
		IV:         hex.EncodeToString(h.IV),
		Executable: h.Executable(),
		Parallel:   set.IsParallelizable(),
	}, nil
}

// protocolView lists what one protocol supports.
type protocolView struct {
	Protocol   string           `yaml:"protocol"`
	KeyLengths []int            `yaml:"key-lengths"`
	BlockSize  int              `yaml:"block-size"`
	Modes      []string         `yaml:"modes"`
	TagLengths map[string][]int `yaml:"tag-lengths"`
}

type supportView struct {
	Protocols []protocolView `yaml:"protocols"`
	Paddings  []string       `yaml:"paddings"`
	KDFs      []string       `yaml:"kdfs"`
	Parallel  []string       `yaml:"parallel-modes"`
}

// List prints the supported parameter space as YAML.
func List(w io.Writer) error {
	var view supportView

	for _, protocol := range params.SupportedProtocols() {
		pv := protocolView{
			Protocol:   protocol.String(),
			KeyLengths: params.ValidKeyLengths(protocol),
			BlockSize:  params.BlockBits(protocol),
			TagLengths: map[string][]int{},
		}

		for _, mode := range params.ModesFor(protocol) {
			pv.Modes = append(pv.Modes, mode.String())

			if tags := params.ValidTagLengths(protocol, mode); len(tags) > 0 {
				pv.TagLengths[mode.String()] = tags
			}
		}

		view.Protocols = append(view.Protocols, pv)
	}

	for _, padding := range params.SupportedPaddings() {
		view.Paddings = append(view.Paddings, padding.String())
	}

	for _, kdf := range params.SupportedKDFs() {
		view.KDFs = append(view.KDFs, kdf.String())
	}

	for _, mode := range params.SupportedModes() {
		if params.IsParallelizable(mode) {
			view.Parallel = append(view.Parallel, mode.String())
		}
	}

	out, err := yaml.Marshal(view)
	if err != nil {
		return fmt.Errorf("rendering parameter space: %w", err)
	}

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}
