// Package config loads zstdx settings from a YAML file and ZSTDX_*
// environment variables.
//
// Library packages never read the environment. A program loads a Config once,
// validates it, and converts it into backend selector input and engine
// options:
//
//	cfg, err := config.Load(path, os.LookupEnv)
//	b, err := backend.Select(cfg.BackendConfig(logger))
//	d, err := cfg.LoadDictionary()
//	c, err := compress.NewCompressor(b, cfg.CompressorOptions(d)...)
//
// Values are applied in order: defaults, then the file, then the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/zstdx/backend"
	"github.com/arloliu/zstdx/compress"
	"github.com/arloliu/zstdx/dict"
	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
)

// Environment variables read by ApplyEnv.
const (
	EnvConfig        = "ZSTDX_CONFIG"
	EnvBackend       = "ZSTDX_BACKEND"
	EnvBridgeLibrary = "ZSTDX_BRIDGE_LIBRARY"
	EnvLevel         = "ZSTDX_LEVEL"
	EnvWindowLog     = "ZSTDX_WINDOW_LOG"
	EnvThreads       = "ZSTDX_THREADS"
	EnvJobSize       = "ZSTDX_JOB_SIZE"
	EnvChecksum      = "ZSTDX_CHECKSUM"
	EnvDictionary    = "ZSTDX_DICTIONARY"
	EnvMaxWindowLog  = "ZSTDX_MAX_WINDOW_LOG"
	EnvMaxOutputSize = "ZSTDX_MAX_OUTPUT_SIZE"
)

// LookupFunc returns the value of an environment variable. os.LookupEnv
// satisfies it; tests pass a map lookup.
type LookupFunc func(key string) (string, bool)

// Config is the complete zstdx configuration.
type Config struct {
	// Backend selects the backend kernel.
	Backend BackendConfig `yaml:"backend"`

	// Dictionary is the path of a dictionary file used by both directions.
	// Empty means no dictionary.
	Dictionary string `yaml:"dictionary"`

	// Compression holds the compression parameters.
	Compression CompressionConfig `yaml:"compression"`

	// Decompression holds the decoder limits.
	Decompression DecompressionConfig `yaml:"decompression"`
}

// BackendConfig configures the backend selector.
type BackendConfig struct {
	// Policy is one of auto, native, bridge, alternative.
	// Default: auto
	Policy backend.Policy `yaml:"policy"`

	// Library is the libzstd path loaded by the bridge backend.
	// Default: the platform's library names
	Library string `yaml:"library"`
}

// CompressionConfig mirrors compress.Params.
type CompressionConfig struct {
	// Default: 3
	Level int `yaml:"level"`
	// Default: 0 (backend default)
	WindowLog int `yaml:"window_log"`
	// Default: true
	Checksum bool `yaml:"checksum"`
	// Default: true
	ContentSize bool `yaml:"content_size"`
	// Default: true
	DictID       bool `yaml:"dict_id"`
	LongDistance bool `yaml:"long_distance"`
	// Default: 0 (inline)
	Threads int `yaml:"threads"`
	// JobSize is the content size of each frame in bytes.
	// Default: 0 (derived from the window log)
	JobSize int `yaml:"job_size"`
	// Format is standard or magicless.
	// Default: standard
	Format string `yaml:"format"`
}

// DecompressionConfig configures the decoder limits.
type DecompressionConfig struct {
	// MaxWindowLog rejects frames whose window exceeds 1<<MaxWindowLog.
	// Default: 27
	MaxWindowLog int `yaml:"max_window_log"`
	// MaxOutputSize caps the content returned by one Decompress call; 0
	// means unlimited.
	MaxOutputSize int `yaml:"max_output_size"`
}

// Default returns the default configuration. It matches
// compress.DefaultParams and the decoder defaults.
func Default() *Config {
	p := compress.DefaultParams()

	return &Config{
		Backend: BackendConfig{Policy: backend.PolicyAuto},
		Compression: CompressionConfig{
			Level:       p.Level,
			Checksum:    p.Checksum,
			ContentSize: p.ContentSize,
			DictID:      p.DictID,
			Format:      "standard",
		},
		Decompression: DecompressionConfig{
			MaxWindowLog: format.DefaultMaxWindowLog,
		},
	}
}

// Load builds a configuration from defaults, the file at path, and the
// environment, then validates it.
//
// Parameters:
//   - path: YAML file; empty falls back to ZSTDX_CONFIG, and when that is
//     unset no file is read
//   - lookup: environment lookup, usually os.LookupEnv; nil skips the environment
//
// Returns:
//   - *Config: the validated configuration
//   - error: read, parse or validation failure; validation errors wrap
//     errs.ErrInvalidParameters
func Load(path string, lookup LookupFunc) (*Config, error) {
	if path == "" && lookup != nil {
		path, _ = lookup(EnvConfig)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if lookup != nil {
		if err := cfg.ApplyEnv(lookup); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes a YAML document over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := c.decode(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: parse config: %w", errs.ErrInvalidParameters, err)
	}

	return nil
}

// ApplyEnv overrides fields from ZSTDX_* variables. Every malformed value is
// reported, not only the first.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	var err error

	if v, ok := lookup(EnvBackend); ok {
		p, perr := backend.ParsePolicy(v)
		err = multierr.Append(err, perr)
		if perr == nil {
			c.Backend.Policy = p
		}
	}
	if v, ok := lookup(EnvBridgeLibrary); ok {
		c.Backend.Library = v
	}
	if v, ok := lookup(EnvDictionary); ok {
		c.Dictionary = v
	}
	if v, ok := lookup(EnvChecksum); ok {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			err = multierr.Append(err, envError(EnvChecksum, v, perr))
		} else {
			c.Compression.Checksum = b
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{EnvLevel, &c.Compression.Level},
		{EnvWindowLog, &c.Compression.WindowLog},
		{EnvThreads, &c.Compression.Threads},
		{EnvJobSize, &c.Compression.JobSize},
		{EnvMaxWindowLog, &c.Decompression.MaxWindowLog},
		{EnvMaxOutputSize, &c.Decompression.MaxOutputSize},
	}
	for _, e := range ints {
		v, ok := lookup(e.key)
		if !ok {
			continue
		}
		n, perr := strconv.Atoi(strings.TrimSpace(v))
		if perr != nil {
			err = multierr.Append(err, envError(e.key, v, perr))
			continue
		}
		*e.dst = n
	}

	return err
}

func envError(key, value string, err error) error {
	return fmt.Errorf("%w: %s=%q: %w", errs.ErrInvalidParameters, key, value, err)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var err error

	if _, ferr := parseFormat(c.Compression.Format); ferr != nil {
		err = multierr.Append(err, ferr)
	}
	err = multierr.Append(err, c.Params().Validate())

	if c.Backend.Policy > backend.PolicyAlternative {
		err = multierr.Append(err, fmt.Errorf("%w: unknown backend policy %d", errs.ErrInvalidParameters, c.Backend.Policy))
	}

	maxWindowLog := c.Decompression.MaxWindowLog
	if maxWindowLog < format.MinWindowLog || maxWindowLog > format.MaxWindowLog {
		err = multierr.Append(err, fmt.Errorf("%w: decompression.max_window_log %d outside [%d, %d]",
			errs.ErrInvalidParameters, maxWindowLog, format.MinWindowLog, format.MaxWindowLog))
	}
	if c.Decompression.MaxOutputSize < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: decompression.max_output_size %d is negative",
			errs.ErrInvalidParameters, c.Decompression.MaxOutputSize))
	}

	return err
}

// Params converts the compression section. An unknown format string is
// reported by Validate and maps to the standard format here.
func (c *Config) Params() compress.Params {
	f, _ := parseFormat(c.Compression.Format)

	return compress.Params{
		Level:        c.Compression.Level,
		WindowLog:    c.Compression.WindowLog,
		Checksum:     c.Compression.Checksum,
		LongDistance: c.Compression.LongDistance,
		Threads:      c.Compression.Threads,
		JobSize:      c.Compression.JobSize,
		ContentSize:  c.Compression.ContentSize,
		DictID:       c.Compression.DictID,
		Format:       f,
	}
}

func parseFormat(s string) (format.FrameFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return format.FormatStandard, nil
	case "magicless":
		return format.FormatMagicless, nil
	default:
		return format.FormatStandard, fmt.Errorf("%w: unknown frame format %q", errs.ErrInvalidParameters, s)
	}
}

// BackendConfig returns the selector input. A nil logger disables selector logging.
func (c *Config) BackendConfig(logger *zap.Logger) backend.Config {
	return backend.Config{
		Policy:        c.Backend.Policy,
		Logger:        logger,
		BridgeLibrary: c.Backend.Library,
	}
}

// LoadDictionary reads the configured dictionary file. It returns nil, nil
// when no dictionary is configured.
func (c *Config) LoadDictionary() (*dict.Dictionary, error) {
	if c.Dictionary == "" {
		return nil, nil
	}

	b, err := os.ReadFile(c.Dictionary)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}

	return dict.Load(b), nil
}

// CompressorOptions returns the engine options for the compression section.
// d may be nil.
func (c *Config) CompressorOptions(d *dict.Dictionary) []compress.CompressorOption {
	opts := []compress.CompressorOption{compress.WithParams(c.Params())}
	if d != nil {
		opts = append(opts, compress.WithDictionary(d))
	}

	return opts
}

// DecompressorOptions returns the engine options for the decompression
// section. d may be nil.
func (c *Config) DecompressorOptions(d *dict.Dictionary) []compress.DecompressorOption {
	f, _ := parseFormat(c.Compression.Format)
	opts := []compress.DecompressorOption{
		compress.WithMaxWindowLog(c.Decompression.MaxWindowLog),
		compress.WithMaxOutputSize(c.Decompression.MaxOutputSize),
		compress.WithDecoderFormat(f),
	}
	if d != nil {
		opts = append(opts, compress.WithDecoderDictionary(d))
	}

	return opts
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
