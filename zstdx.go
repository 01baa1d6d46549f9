// Package zstdx is a Zstandard compression engine with interchangeable
// backends.
//
// Three backends implement the same kernel interface: native (cgo binding to
// libzstd), bridge (libzstd loaded at run time without cgo) and alternative
// (pure Go). Frame headers, checksums, job boundaries, dictionary checks and
// error kinds are handled once, above the backends, so any backend decodes
// what any other produced and reports the same error kinds.
//
// # Core Features
//
//   - Streaming, one-shot and multi-threaded compression with identical output
//   - Incremental decompression with any input chunking, down to one byte
//   - Raw and trained dictionaries, content-dictionary chains
//   - Skippable and magicless frames
//   - Explicit backend selection, no process-wide state
//
// # Basic Usage
//
//	h, err := zstdx.Open("auto")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	compressed, err := h.Compress(payload)
//	original, err := h.Decompress(compressed)
//
// Opening from a configuration file and the ZSTDX_* environment:
//
//	cfg, err := config.Load("", os.LookupEnv)
//	h, err := zstdx.OpenConfig(cfg, logger)
//
// # Package Structure
//
// This package wraps the compress and backend packages for the most common
// use cases. For streaming sessions, io adapters and full control over the
// parameters, use package compress directly.
package zstdx

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/arloliu/zstdx/backend"
	"github.com/arloliu/zstdx/compress"
	"github.com/arloliu/zstdx/config"
	"github.com/arloliu/zstdx/dict"
)

// Handle bundles a selected backend with the engine options every call uses.
//
// A Handle is immutable and safe for concurrent use; each call runs its own
// engine session.
type Handle struct {
	backend backend.Backend
	dict    *dict.Dictionary
	copts   []compress.CompressorOption
	dopts   []compress.DecompressorOption
}

// Open selects a backend by policy name with default parameters.
//
// Parameters:
//   - policy: "auto", "native", "bridge" or "alternative"; empty means auto
//   - opts: compression options applied to every Compress call
//
// Returns:
//   - *Handle: the handle
//   - error: ErrInvalidParameters for an unknown policy, ErrBackendUnavailable
//     when the backend is not part of this build or process
//
// Example:
//
//	h, err := zstdx.Open("alternative", compress.WithLevel(19))
func Open(policy string, opts ...compress.CompressorOption) (*Handle, error) {
	p, err := backend.ParsePolicy(policy)
	if err != nil {
		return nil, err
	}

	b, err := backend.Select(backend.Config{Policy: p})
	if err != nil {
		return nil, err
	}

	return New(b, opts...), nil
}

// OpenConfig selects the configured backend and loads the configured dictionary.
//
// Parameters:
//   - cfg: validated configuration; nil uses config.Default()
//   - logger: receives backend selection logs; nil disables logging
//
// Returns:
//   - *Handle: the handle
//   - error: validation, selection or dictionary read failure
func OpenConfig(cfg *config.Config, logger *zap.Logger) (*Handle, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b, err := backend.Select(cfg.BackendConfig(logger))
	if err != nil {
		return nil, err
	}

	d, err := cfg.LoadDictionary()
	if err != nil {
		return nil, err
	}

	return &Handle{
		backend: b,
		dict:    d,
		copts:   cfg.CompressorOptions(d),
		dopts:   cfg.DecompressorOptions(d),
	}, nil
}

// New wraps an already selected backend.
func New(b backend.Backend, opts ...compress.CompressorOption) *Handle {
	return &Handle{backend: b, copts: opts}
}

// WithDictionary returns a copy of h that compresses and decompresses with d.
//
// Example:
//
//	h = h.WithDictionary(zstdx.LoadDictionary(trained))
func (h *Handle) WithDictionary(d *dict.Dictionary) *Handle {
	clone := *h
	clone.dict = d
	clone.copts = append(append([]compress.CompressorOption{}, h.copts...), compress.WithDictionary(d))
	clone.dopts = append(append([]compress.DecompressorOption{}, h.dopts...), compress.WithDecoderDictionary(d))

	return &clone
}

// Backend returns the selected backend.
func (h *Handle) Backend() backend.Backend {
	return h.backend
}

// Dictionary returns the dictionary of h, or nil.
func (h *Handle) Dictionary() *dict.Dictionary {
	return h.dict
}

// String describes the backend, e.g. "zstdx(native libzstd 1.5.6)".
func (h *Handle) String() string {
	return fmt.Sprintf("zstdx(%s %s)", h.backend.Policy(), h.backend.Version())
}

// Compress compresses src into one or more frames.
func (h *Handle) Compress(src []byte) ([]byte, error) {
	return compress.Compress(h.backend, src, h.copts...)
}

// Decompress decodes every frame of src.
func (h *Handle) Decompress(src []byte) ([]byte, error) {
	return compress.Decompress(h.backend, src, h.dopts...)
}

// NewCompressor starts a streaming compression session. opts are applied
// after the handle's options.
func (h *Handle) NewCompressor(opts ...compress.CompressorOption) (*compress.Compressor, error) {
	return compress.NewCompressor(h.backend, append(append([]compress.CompressorOption{}, h.copts...), opts...)...)
}

// NewDecompressor starts a streaming decompression session. opts are applied
// after the handle's options.
func (h *Handle) NewDecompressor(opts ...compress.DecompressorOption) (*compress.Decompressor, error) {
	return compress.NewDecompressor(h.backend, append(append([]compress.DecompressorOption{}, h.dopts...), opts...)...)
}

// NewWriter returns an io.WriteCloser compressing into w.
func (h *Handle) NewWriter(w io.Writer) (*compress.Writer, error) {
	return compress.NewWriter(w, h.backend, h.copts...)
}

// NewReader returns an io.ReadCloser decoding the frames of r.
func (h *Handle) NewReader(r io.Reader) (*compress.Reader, error) {
	return compress.NewReader(r, h.backend, h.dopts...)
}

// NewDecompressWriter returns an io.WriteCloser decoding the frames written
// to it into w.
func (h *Handle) NewDecompressWriter(w io.Writer) (*compress.DecompressWriter, error) {
	return compress.NewDecompressWriter(w, h.backend, h.dopts...)
}

// LoadDictionary loads a trained or raw-content dictionary. It never fails;
// the bytes are copied.
func LoadDictionary(b []byte) *dict.Dictionary {
	return dict.Load(b)
}
