// Package parity checks that the zstdx backends are interchangeable.
//
// For every case it compresses with each backend one-shot, streamed and
// threaded, decodes every output with every backend, and feeds corrupted
// frames to each backend to compare the reported error kinds. Differences are
// collected into a Report; none of them stop the run.
package parity

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arloliu/zstdx/backend"
	"github.com/arloliu/zstdx/compress"
	"github.com/arloliu/zstdx/dict"
	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
	"github.com/arloliu/zstdx/frame"
	"github.com/arloliu/zstdx/internal/options"
)

// Check names.
const (
	CheckStreaming       = "streaming"
	CheckThreads         = "threads"
	CheckCompressedBytes = "compressed-bytes"
	CheckCrossDecode     = "cross-decode"
	CheckErrorKind       = "error-kind"
)

// Case is one input the backends are compared on.
type Case struct {
	Name string
	Data []byte
	// Dict is used for compression and decompression when set.
	Dict *dict.Dictionary
	// Opts are extra compression options.
	Opts []compress.CompressorOption
}

// Divergence is one observed difference.
type Divergence struct {
	Case     string `yaml:"case"`
	Check    string `yaml:"check"`
	Backends string `yaml:"backends"`
	Detail   string `yaml:"detail"`
}

// Report is the result of a parity run.
type Report struct {
	Backends []string `yaml:"backends"`
	Cases    int      `yaml:"cases"`
	// Divergences violate backend interchangeability.
	Divergences []Divergence `yaml:"divergences"`
	// KnownLimitations are expected differences: compressed bytes of the
	// alternative backend differ from libzstd's.
	KnownLimitations []Divergence `yaml:"known_limitations,omitempty"`
}

// OK reports whether the run found no divergence.
func (r *Report) OK() bool {
	return len(r.Divergences) == 0
}

// Config collects the settings of a parity run.
type Config struct {
	logger      *zap.Logger
	concurrency int
	strictBytes bool
	chunkSize   int
	threads     int
}

// Option configures a parity run.
type Option = options.Option[*Config]

// WithLogger logs every divergence as it is found.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(c *Config) {
		c.logger = logger
	})
}

// WithConcurrency sets how many cases run in parallel.
func WithConcurrency(n int) Option {
	return options.New(func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("%w: concurrency %d", errs.ErrInvalidParameters, n)
		}
		c.concurrency = n

		return nil
	})
}

// WithStrictBytes reports differing compressed bytes of the alternative
// backend as divergences instead of known limitations.
func WithStrictBytes(strict bool) Option {
	return options.NoError(func(c *Config) {
		c.strictBytes = strict
	})
}

// WithChunkSize sets the push size of the streaming check.
func WithChunkSize(n int) Option {
	return options.New(func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("%w: chunk size %d", errs.ErrInvalidParameters, n)
		}
		c.chunkSize = n

		return nil
	})
}

// Check compares backends on every case.
//
// Parameters:
//   - ctx: cancels the run between cases
//   - backends: at least one backend; with one backend only the
//     self-consistency checks run
//   - cases: inputs, see DefaultCases
//
// Returns:
//   - *Report: every divergence found
//   - error: invalid options, no backends, or ctx cancellation
func Check(ctx context.Context, backends []backend.Backend, cases []Case, opts ...Option) (*Report, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("%w: no backends to compare", errs.ErrBackendUnavailable)
	}

	cfg := &Config{logger: zap.NewNop(), concurrency: 4, chunkSize: 997, threads: 4}
	if err := options.ApplyAll(cfg, opts...); err != nil {
		return nil, err
	}

	report := &Report{Cases: len(cases)}
	for _, b := range backends {
		report.Backends = append(report.Backends, b.Policy().String())
	}

	var mu sync.Mutex
	record := func(d Divergence, known bool) {
		mu.Lock()
		defer mu.Unlock()

		if known {
			report.KnownLimitations = append(report.KnownLimitations, d)
			return
		}
		report.Divergences = append(report.Divergences, d)
		cfg.logger.Warn("backend divergence",
			zap.String("case", d.Case),
			zap.String("check", d.Check),
			zap.String("backends", d.Backends),
			zap.String("detail", d.Detail))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)
	for _, c := range cases {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			checkCase(cfg, backends, c, record)

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cfg.logger.Info("parity run finished",
		zap.Strings("backends", report.Backends),
		zap.Int("cases", report.Cases),
		zap.Int("divergences", len(report.Divergences)),
		zap.Int("known_limitations", len(report.KnownLimitations)))

	return report, nil
}

type recorder func(d Divergence, known bool)

func checkCase(cfg *Config, backends []backend.Backend, c Case, record recorder) {
	copts := append([]compress.CompressorOption{}, c.Opts...)
	var dopts []compress.DecompressorOption
	if c.Dict != nil {
		copts = append(copts, compress.WithDictionary(c.Dict))
		dopts = append(dopts, compress.WithDecoderDictionary(c.Dict))
	}

	outputs := make([][]byte, len(backends))
	for i, b := range backends {
		name := b.Policy().String()

		out, err := compress.Compress(b, c.Data, copts...)
		if err != nil {
			record(Divergence{Case: c.Name, Check: CheckStreaming, Backends: name, Detail: "compress: " + err.Error()}, false)
			continue
		}
		outputs[i] = out

		streamed, err := streamCompress(b, c.Data, cfg.chunkSize, copts)
		if err != nil || !bytes.Equal(out, streamed) {
			record(Divergence{Case: c.Name, Check: CheckStreaming, Backends: name,
				Detail: describe(err, "streamed output differs from one-shot output")}, false)
		}

		threaded, err := compress.Compress(b, c.Data, append(copts, compress.WithThreads(cfg.threads))...)
		if err != nil || !bytes.Equal(out, threaded) {
			record(Divergence{Case: c.Name, Check: CheckThreads, Backends: name,
				Detail: describe(err, "threaded output differs from inline output")}, false)
		}
	}

	for i := range backends {
		for j := i + 1; j < len(backends); j++ {
			if outputs[i] == nil || outputs[j] == nil || bytes.Equal(outputs[i], outputs[j]) {
				continue
			}
			pi, pj := backends[i].Policy(), backends[j].Policy()
			known := !cfg.strictBytes && (pi == backend.PolicyAlternative || pj == backend.PolicyAlternative)
			record(Divergence{
				Case:     c.Name,
				Check:    CheckCompressedBytes,
				Backends: pi.String() + "/" + pj.String(),
				Detail:   fmt.Sprintf("%d vs %d bytes", len(outputs[i]), len(outputs[j])),
			}, known)
		}
	}

	for i, enc := range backends {
		if outputs[i] == nil {
			continue
		}
		for _, dec := range backends {
			out, err := compress.Decompress(dec, outputs[i], dopts...)
			if err != nil || !bytes.Equal(out, c.Data) {
				record(Divergence{
					Case:     c.Name,
					Check:    CheckCrossDecode,
					Backends: enc.Policy().String() + "->" + dec.Policy().String(),
					Detail:   describe(err, "decoded content differs"),
				}, false)
			}
		}
	}

	if outputs[0] != nil {
		checkErrorKinds(backends, c, outputs[0], dopts, record)
	}
}

// checkErrorKinds decodes corrupted variants of frames with every backend
// and compares the error kinds.
func checkErrorKinds(backends []backend.Backend, c Case, frames []byte, dopts []compress.DecompressorOption, record recorder) {
	for _, m := range mutations(frames, c.Dict) {
		var firstKind errs.Kind
		for i, b := range backends {
			_, err := compress.Decompress(b, m.src, m.opts(dopts)...)
			kind := errs.KindOf(err)
			if i == 0 {
				firstKind = kind
				continue
			}
			if kind != firstKind {
				record(Divergence{
					Case:     c.Name,
					Check:    CheckErrorKind,
					Backends: backends[0].Policy().String() + "/" + b.Policy().String(),
					Detail:   fmt.Sprintf("%s: %s vs %s", m.name, firstKind, kind),
				}, false)
			}
		}
	}
}

type mutation struct {
	name string
	src  []byte
	opts func([]compress.DecompressorOption) []compress.DecompressorOption
}

func keepOpts(opts []compress.DecompressorOption) []compress.DecompressorOption { return opts }

// mutations returns corruptions the shared layer detects before or after the
// backend call, so every backend must report the same kind for them. Damage
// inside compressed blocks is left out: whether a kernel rejects it or
// decodes garbage that then fails the checksum is up to the kernel.
func mutations(frames []byte, d *dict.Dictionary) []mutation {
	flip := func(pos int, mask byte) []byte {
		out := append([]byte{}, frames...)
		out[pos] ^= mask

		return out
	}

	ms := []mutation{
		{name: "truncated", src: frames[:len(frames)-1], opts: keepOpts},
		{name: "magic", src: flip(0, 0x55), opts: keepOpts},
	}

	h, n, err := frame.DecodeHeader(frames, format.FormatStandard)
	if err != nil {
		return ms
	}
	ms = append(ms, mutation{name: "reserved-bit", src: flip(format.MagicSize, 0x08), opts: keepOpts})
	if h.Checksum {
		ms = append(ms, mutation{name: "checksum", src: flip(len(frames)-1, 0x55), opts: keepOpts})
	}
	if h.HasContentSize && n < len(frames) {
		ms = append(ms, mutation{name: "content-size", src: bumpContentSize(frames, h, n), opts: keepOpts})
	}

	if d != nil && h.DictionaryID != 0 {
		ms = append(ms,
			mutation{name: "no-dictionary", src: frames, opts: func([]compress.DecompressorOption) []compress.DecompressorOption {
				return nil
			}},
			mutation{name: "wrong-dictionary", src: frames, opts: func([]compress.DecompressorOption) []compress.DecompressorOption {
				return []compress.DecompressorOption{compress.WithDecoderDictionary(dict.Load([]byte("wrong dictionary")))}
			}},
		)
	}

	return ms
}

// bumpContentSize rewrites the first header to declare one byte more content.
func bumpContentSize(frames []byte, h frame.Header, headerSize int) []byte {
	h.ContentSize++
	out, err := frame.EncodeHeader(nil, h, format.FormatStandard)
	if err != nil {
		return frames
	}

	return append(out, frames[headerSize:]...)
}

func streamCompress(b backend.Backend, src []byte, chunkSize int, opts []compress.CompressorOption) ([]byte, error) {
	c, err := compress.NewCompressor(b, opts...)
	if err != nil {
		return nil, err
	}

	var out []byte
	for len(src) > 0 {
		n := min(chunkSize, len(src))
		frames, err := c.Compress(src[:n])
		if err != nil {
			return nil, err
		}
		out = append(out, frames...)
		src = src[n:]
	}

	tail, err := c.Finish()
	if err != nil {
		return nil, err
	}

	return append(out, tail...), nil
}

func describe(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}

	return fallback
}
