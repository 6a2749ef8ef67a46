// Package config holds the command line configuration of fenc and turns it
// into engine requests.
package config

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/fenc/internal/params"
)

// ErrInvalidConfig is returned when flags, environment or profile values are rejected.
var ErrInvalidConfig = errors.New("invalid configuration")

// Params selects the parameter set by name. A zero key length selects the
// protocol default and a zero tag length the mode default.
type Params struct {
	Protocol  string `json:"protocol"   mapstructure:"protocol"   yaml:"protocol"`
	Mode      string `json:"mode"       mapstructure:"mode"       yaml:"mode"`
	KeyLength int    `json:"key-length" mapstructure:"key-length" yaml:"key-length"`
	Padding   string `json:"padding"    mapstructure:"padding"    yaml:"padding"`
	TagLength int    `json:"tag-length" mapstructure:"tag-length" yaml:"tag-length"`
	KDF       string `json:"kdf"        mapstructure:"kdf"        yaml:"kdf"`
}

// Set resolves the names into a validated parameter set.
func (p Params) Set() (params.Set, error) {
	protocol, err := params.ParseProtocol(p.Protocol)
	if err != nil {
		return params.Set{}, err
	}

	mode, err := params.ParseMode(p.Mode)
	if err != nil {
		return params.Set{}, err
	}

	padding, err := params.ParsePadding(p.Padding)
	if err != nil {
		return params.Set{}, err
	}

	kdf, err := params.ParseKDF(p.KDF)
	if err != nil {
		return params.Set{}, err
	}

	bits := p.KeyLength
	if bits == 0 {
		bits = defaultKeyLength(protocol)
	}

	return params.New(protocol, bits, mode, padding, p.TagLength, kdf)
}

// defaultKeyLength prefers 256 bits and otherwise the longest key the protocol takes.
func defaultKeyLength(protocol params.Protocol) int {
	valid := params.ValidKeyLengths(protocol)
	if slices.Contains(valid, 256) || len(valid) == 0 {
		return 256
	}

	return slices.Max(valid)
}

// Config is the merged view of flags, environment and profile values.
type Config struct {
	// Parameter selection
	Params   `mapstructure:",squash"`
	Profile  string `label:"--profile"  mapstructure:"profile"`
	Profiles string `label:"--profiles" mapstructure:"profiles" validate:"required_with=Profile"`
	// Override makes decryption ignore the parameters stored in the header.
	Override bool `mapstructure:"override"`

	// Password sources
	Password     string `label:"--password"      mapstructure:"password"      validate:"exclusive=PasswordFile"`
	PasswordFile string `label:"--password-file" mapstructure:"password-file"`

	// Processing
	Threads            int    `label:"--threads"    mapstructure:"threads"    validate:"min=1"`
	ChunkSize          string `label:"--chunk-size" mapstructure:"chunk-size" validate:"required"`
	Output             string `mapstructure:"output"`
	Overwrite          bool   `mapstructure:"force"`
	Delete             bool   `mapstructure:"delete"`
	PreserveTimestamps bool   `mapstructure:"preserve-timestamps"`

	// Output
	Quiet   bool `label:"--quiet"   mapstructure:"quiet"   validate:"exclusive=Verbose"`
	Verbose bool `label:"--verbose" mapstructure:"verbose"`
	Stats   bool `mapstructure:"stats"`

	// Command-specific
	Decrypt bool `mapstructure:"-"`

	// Positional arguments
	Files []string `label:"files" mapstructure:"-" validate:"min=1,dive,required"`
}

// ChunkBytes parses ChunkSize, accepting humanized sizes such as "1MiB".
func (c *Config) ChunkBytes() (int, error) {
	n, err := humanize.ParseBytes(c.ChunkSize)
	if err != nil {
		return 0, fmt.Errorf("%w: chunk size %q: %w", ErrInvalidConfig, c.ChunkSize, err)
	}

	if n == 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: chunk size %q out of range", ErrInvalidConfig, c.ChunkSize)
	}

	return int(n), nil
}

// Validate validates the configuration against the struct tags and checks
// that the chunk size and, unless decrypting with the header parameters, the
// parameter set resolve.
func (c *Config) Validate() error {
	validate, err := newValidator()
	if err != nil {
		return err
	}

	switch errs := validate.Validate(c); {
	case len(errs) == 1:
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs[0])
	case len(errs) > 1:
		return fmt.Errorf("%w:\n%w", ErrInvalidConfig, errors.Join(errs...))
	}

	if c.Output != "" && len(c.Files) > 1 {
		return fmt.Errorf("%w: --output requires a single file, got %d", ErrInvalidConfig, len(c.Files))
	}

	if _, err := c.ChunkBytes(); err != nil {
		return err
	}

	if !c.Decrypt || c.Override {
		if _, err := c.Set(); err != nil {
			return err
		}
	}

	return nil
}
