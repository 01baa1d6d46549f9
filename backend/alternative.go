package backend

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"

	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
	"github.com/arloliu/zstdx/frame"
)

const klauspostModule = "github.com/klauspost/compress"

type encoderKey struct {
	level        int
	windowLog    int
	longDistance bool
}

// alternative runs the pure Go kernels of klauspost/compress/zstd.
//
// Kernels without a dictionary are pooled per parameter set. The library is
// designed for reuse: encoders and decoders run without allocations after a
// warmup.
type alternative struct {
	encoders sync.Map // encoderKey -> *sync.Pool of *[]*zstd.Encoder
	decoders sync.Map // max window log -> *sync.Pool
}

// NewAlternative returns the pure Go backend. It is always available.
func NewAlternative() Backend {
	return &alternative{}
}

func (a *alternative) Policy() Policy { return PolicyAlternative }

func (a *alternative) Version() string {
	version := "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == klauspostModule {
				version = dep.Version
				break
			}
		}
	}

	return "klauspost/compress " + version
}

func (a *alternative) NewFrameEncoder(cfg EncoderConfig) (FrameEncoder, error) {
	if cfg.Dict != nil {
		encs, err := newKlauspostEncoders(cfg)
		if err != nil {
			return nil, err
		}

		return &alternativeEncoder{encs: encs}, nil
	}

	key := encoderKey{level: cfg.Level, windowLog: cfg.WindowLog, longDistance: cfg.LongDistance}
	p, _ := a.encoders.LoadOrStore(key, &sync.Pool{})
	pool, _ := p.(*sync.Pool)

	if encs, ok := pool.Get().(*[]*zstd.Encoder); ok {
		return &alternativeEncoder{encs: *encs, pool: pool}, nil
	}

	encs, err := newKlauspostEncoders(cfg)
	if err != nil {
		return nil, err
	}

	return &alternativeEncoder{encs: encs, pool: pool}, nil
}

func (a *alternative) NewFrameDecoder(cfg DecoderConfig) (FrameDecoder, error) {
	cfg.MaxWindowLog = maxWindowLogOrDefault(cfg.MaxWindowLog)
	if cfg.Dict != nil {
		dec, err := newKlauspostDecoder(cfg)
		if err != nil {
			return nil, err
		}

		return &alternativeDecoder{dec: dec}, nil
	}

	p, _ := a.decoders.LoadOrStore(cfg.MaxWindowLog, &sync.Pool{})
	pool, _ := p.(*sync.Pool)

	dec, _ := pool.Get().(*zstd.Decoder)
	if dec == nil {
		var err error
		if dec, err = newKlauspostDecoder(cfg); err != nil {
			return nil, err
		}
	}

	return &alternativeDecoder{dec: dec, pool: pool}, nil
}

// speedsUpTo returns the klauspost speeds from the fastest up to the one
// mapped from level.
func speedsUpTo(level int) []zstd.EncoderLevel {
	target := zstd.EncoderLevelFromZstd(level)
	speeds := make([]zstd.EncoderLevel, 0, int(target))
	for s := zstd.SpeedFastest; s <= target; s++ {
		speeds = append(speeds, s)
	}

	return speeds
}

// newKlauspostEncoders builds one encoder per speed up to the one the level
// maps to, all emitting frames without checksum. Higher klauspost speeds do
// not always give smaller output, so EncodeFrame keeps the smallest frame of
// the set; output size is then non-increasing in the level.
//
// Long distance matching has no equivalent in this library; the window log it
// implies is applied by the engine before the config reaches the kernel.
func newKlauspostEncoders(cfg EncoderConfig) ([]*zstd.Encoder, error) {
	speeds := speedsUpTo(cfg.Level)
	encs := make([]*zstd.Encoder, 0, len(speeds))
	for _, speed := range speeds {
		enc, err := newKlauspostEncoder(cfg, speed)
		if err != nil {
			for _, e := range encs {
				_ = e.Close()
			}

			return nil, err
		}
		encs = append(encs, enc)
	}

	return encs, nil
}

func newKlauspostEncoder(cfg EncoderConfig, speed zstd.EncoderLevel) (*zstd.Encoder, error) {
	opts := []zstd.EOption{
		zstd.WithEncoderLevel(speed),
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderCRC(false),
		zstd.WithZeroFrames(true),
	}
	if cfg.WindowLog > 0 {
		opts = append(opts, zstd.WithWindowSize(1<<cfg.WindowLog))
	}
	if d := cfg.Dict; d != nil {
		if d.IsTrained() {
			opts = append(opts, zstd.WithEncoderDict(d.Bytes()))
		} else {
			opts = append(opts, zstd.WithEncoderDictRaw(0, d.Bytes()))
		}
	}

	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: alternative encoder: %v", errs.ErrInvalidParameters, err)
	}

	return enc, nil
}

func newKlauspostDecoder(cfg DecoderConfig) (*zstd.Decoder, error) {
	opts := []zstd.DOption{
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(false),
		zstd.WithDecoderMaxWindow(frame.WindowSizeFromLog(cfg.MaxWindowLog)),
	}
	if d := cfg.Dict; d != nil {
		if d.IsTrained() {
			opts = append(opts, zstd.WithDecoderDicts(d.Bytes()))
		} else {
			// frames are rebuilt with dictionary ID 0 for raw content
			opts = append(opts, zstd.WithDecoderDictRaw(0, d.Bytes()))
		}
	}

	dec, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: alternative decoder: %v", errs.ErrInvalidParameters, err)
	}

	return dec, nil
}

type alternativeEncoder struct {
	encs    []*zstd.Encoder
	pool    *sync.Pool
	scratch []byte
}

// EncodeFrame appends the smallest frame produced by the encoder set. Frames
// are compared by their block bytes, the part kept when the engine re-frames
// them; ties keep the faster speed.
func (e *alternativeEncoder) EncodeFrame(dst, src []byte) ([]byte, error) {
	if e.encs == nil {
		return dst, fmt.Errorf("%w: encoder closed", errs.ErrInvalidState)
	}

	start := len(dst)
	dst = e.encs[0].EncodeAll(src, dst)
	best := blocksSize(dst[start:])
	for _, enc := range e.encs[1:] {
		e.scratch = enc.EncodeAll(src, e.scratch[:0])
		if size := blocksSize(e.scratch); size < best {
			dst = append(dst[:start], e.scratch...)
			best = size
		}
	}

	return dst, nil
}

func (e *alternativeEncoder) Close() error {
	if e.encs == nil {
		return nil
	}

	encs := e.encs
	e.encs, e.scratch = nil, nil
	if e.pool != nil {
		e.pool.Put(&encs)
		return nil
	}

	var err error
	for _, enc := range encs {
		err = multierr.Append(err, enc.Close())
	}

	return err
}

// blocksSize returns the size of encoded without its frame header.
func blocksSize(encoded []byte) int {
	hs, err := frame.HeaderSize(encoded, format.FormatStandard)
	if err != nil {
		return len(encoded)
	}

	return len(encoded) - hs
}

type alternativeDecoder struct {
	dec  *zstd.Decoder
	pool *sync.Pool
}

func (d *alternativeDecoder) DecodeFrame(dst, src []byte, capacity int) ([]byte, error) {
	if d.dec == nil {
		return dst, fmt.Errorf("%w: decoder closed", errs.ErrInvalidState)
	}
	if capacity > 0 {
		dst, _ = extend(dst, capacity)
	}

	return d.dec.DecodeAll(src, dst)
}

func (d *alternativeDecoder) Close() error {
	if d.dec == nil {
		return nil
	}

	dec := d.dec
	d.dec = nil
	if d.pool != nil {
		d.pool.Put(dec)
		return nil
	}
	dec.Close()

	return nil
}
