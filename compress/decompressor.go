package compress

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/arloliu/zstdx/backend"
	"github.com/arloliu/zstdx/dict"
	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/frame"
	"github.com/arloliu/zstdx/internal/options"
	"github.com/arloliu/zstdx/internal/pool"
)

// Decompressor decodes a stream of concatenated frames pushed in arbitrary
// chunks. Skippable frames are consumed and produce no output; a stream must
// still hold at least one data frame.
//
// Header, dictionary and checksum validation happen here, around the backend
// kernel, so every backend reports the same error kind for the same input.
//
// A Decompressor is not safe for concurrent use.
type Decompressor struct {
	backend backend.Backend
	dict    *dict.Dictionary
	cfg     *DecompressorConfig
	decoder backend.FrameDecoder
	scanner *frame.Scanner

	state   State
	err     error
	in      *pool.ByteBuffer
	rebuilt *pool.ByteBuffer
	// skip counts bytes of a skippable frame still to be discarded
	skip  int
	stats Stats
}

// NewDecompressor creates a decompressor decoding frames with a kernel of b.
//
// Returns:
//   - *Decompressor: a decompressor in StateIdle
//   - error: ErrInvalidParameters for out-of-range options or a dictionary the
//     backend rejects
func NewDecompressor(b backend.Backend, opts ...DecompressorOption) (*Decompressor, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil backend", errs.ErrInvalidParameters)
	}

	cfg := newDecompressorConfig()
	if err := options.ApplyAll(cfg, opts...); err != nil {
		return nil, err
	}

	dec, err := b.NewFrameDecoder(backend.DecoderConfig{
		MaxWindowLog: cfg.maxWindowLog,
		Dict:         cfg.dict,
	})
	if err != nil {
		return nil, err
	}

	return &Decompressor{
		backend: b,
		dict:    cfg.dict,
		cfg:     cfg,
		decoder: dec,
		scanner: frame.NewScanner(cfg.format, cfg.maxWindowLog),
	}, nil
}

// State returns the current lifecycle state.
func (d *Decompressor) State() State {
	return d.state
}

// Stats returns the bytes consumed and produced so far.
func (d *Decompressor) Stats() Stats {
	return d.stats
}

// Decompress pushes chunk into the session and returns the content of every
// frame completed so far.
//
// When a max output size is configured, decoding stops before a frame that
// would exceed it; the frame stays buffered and a later call, even with an
// empty chunk, continues with it.
//
// Returns:
//   - []byte: decoded content, newly allocated and owned by the caller
//   - bool: true when the input consumed so far ends exactly on a frame boundary
//   - error: ErrMalformedFrame, ErrChecksumMismatch, ErrDictionaryRequired or
//     ErrDictionaryMismatch, which end the session; ErrResourceLimit, which
//     does not; ErrInvalidState after Finish or Close
func (d *Decompressor) Decompress(chunk []byte) ([]byte, bool, error) {
	switch d.state {
	case StateIdle:
		d.in = d.cfg.bufs.Acquire(len(chunk))
		d.state = StateActive
	case StateActive:
	case StateErrored:
		return nil, false, d.err
	default:
		return nil, false, fmt.Errorf("%w: decompressor is %s", errs.ErrInvalidState, d.state)
	}

	if d.skip > 0 {
		n := min(d.skip, len(chunk))
		d.skip -= n
		d.stats.CompressedSize += int64(n)
		chunk = chunk[n:]
	}
	d.in.MustWrite(chunk)

	out, err := d.drain()
	if err != nil {
		if errs.KindOf(err).IsTerminal() {
			return nil, false, d.fail(err)
		}

		return out, false, err
	}

	return out, d.atBoundary(), nil
}

// Finish ends the session and releases its resources.
//
// Returns:
//   - error: ErrMalformedFrame when the input ends inside a frame or held no
//     data frame, skippable frames not counting; ErrInvalidState, without ending the session, when complete
//     frames are still buffered behind the output limit
func (d *Decompressor) Finish() error {
	switch d.state {
	case StateClosed:
		return nil
	case StateErrored:
		return d.err
	case StateIdle:
		return d.fail(fmt.Errorf("%w: no frame in input", errs.ErrMalformedFrame))
	}

	if d.in.Len() > 0 {
		if _, err := d.scanner.Scan(d.in.Bytes()); err == nil {
			return fmt.Errorf("%w: decoded frames are still buffered", errs.ErrInvalidState)
		}

		return d.fail(fmt.Errorf("%w: truncated frame", errs.ErrMalformedFrame))
	}
	if d.skip > 0 {
		return d.fail(fmt.Errorf("%w: truncated skippable frame", errs.ErrMalformedFrame))
	}
	if d.stats.Frames == 0 {
		return d.fail(fmt.Errorf("%w: no frame in input", errs.ErrMalformedFrame))
	}

	err := d.release()
	if err != nil {
		d.state = StateErrored
		d.err = err

		return err
	}
	d.state = StateClosed

	return nil
}

// Close abandons the session and releases every resource. Closing a closed
// decompressor is a no-op.
func (d *Decompressor) Close() error {
	if d.state == StateClosed {
		return nil
	}

	err := d.release()
	if d.state != StateErrored {
		d.state = StateClosed
	}

	return err
}

// buffered reports whether a complete frame is waiting behind the output limit.
func (d *Decompressor) buffered() bool {
	if d.state != StateActive || d.in.Len() == 0 {
		return false
	}
	_, err := d.scanner.Scan(d.in.Bytes())

	return err == nil
}

func (d *Decompressor) atBoundary() bool {
	return d.in.Len() == 0 && d.skip == 0 && d.stats.Frames > 0
}

func (d *Decompressor) fail(err error) error {
	d.err = multierr.Append(err, d.release())
	d.state = StateErrored

	return d.err
}

func (d *Decompressor) release() error {
	d.cfg.bufs.Release(d.in)
	d.cfg.bufs.Release(d.rebuilt)
	d.in, d.rebuilt = nil, nil

	if d.decoder == nil {
		return nil
	}
	err := d.decoder.Close()
	d.decoder = nil

	return err
}

// drain decodes every complete frame at the front of the input buffer. The
// consumed prefix is dropped once per call, so a chunk holding many frames is
// decoded in time linear in its size.
func (d *Decompressor) drain() ([]byte, error) {
	var out []byte
	limit := d.cfg.maxOutputSize

	src := d.in.Bytes()
	off := 0
	defer func() {
		if off > 0 {
			d.in.Consume(off)
			d.stats.CompressedSize += int64(off)
		}
	}()

	for off < len(src) {
		f, err := d.scanner.Scan(src[off:])
		if errors.Is(err, frame.ErrNeedMoreInput) {
			return out, nil
		}
		if err != nil {
			return out, err
		}

		if f.Skippable {
			n := min(f.Size, len(src)-off)
			d.skip = f.Size - n
			off += n
			d.scanner.Reset()
			d.stats.SkippableFrames++

			continue
		}

		if limit > 0 && f.Header.HasContentSize {
			size := f.Header.ContentSize
			if size > uint64(limit) && len(out) == 0 { //nolint: gosec
				return nil, fmt.Errorf("%w: frame content size %d exceeds output limit %d",
					errs.ErrResourceLimit, size, limit)
			}
			if uint64(len(out))+size > uint64(limit) { //nolint: gosec
				return out, nil
			}
		}

		start := len(out)
		out, err = d.decodeFrame(out, src[off:off+f.Size], f)
		if err != nil {
			return out[:start], err
		}

		if limit > 0 && len(out) > limit {
			if start == 0 {
				return nil, fmt.Errorf("%w: frame content of %d bytes exceeds output limit %d",
					errs.ErrResourceLimit, len(out), limit)
			}

			return out[:start], nil
		}

		d.stats.ContentSize += int64(len(out) - start)
		d.stats.Frames++
		off += f.Size
		d.scanner.Reset()
	}

	return out, nil
}

// decodeFrame appends the content of the scanned frame f to dst.
func (d *Decompressor) decodeFrame(dst, src []byte, f *frame.Frame) ([]byte, error) {
	if id := f.Header.DictionaryID; id != 0 {
		if d.dict == nil {
			return dst, fmt.Errorf("%w: frame uses dictionary %d", errs.ErrDictionaryRequired, id)
		}
		if id != d.dict.ID() {
			return dst, fmt.Errorf("%w: frame uses dictionary %d, have %d",
				errs.ErrDictionaryMismatch, id, d.dict.ID())
		}
	}

	start := len(dst)
	if f.IsSimple() {
		var err error
		if dst, err = frame.DecodeSimple(dst, src, f); err != nil {
			return dst, err
		}
	} else {
		var err error
		if dst, err = d.decodeCompressed(dst, src, f); err != nil {
			return dst[:start], err
		}
	}

	if err := frame.VerifyChecksum(f, dst[start:]); err != nil {
		return dst[:start], err
	}

	return dst, nil
}

func (d *Decompressor) decodeCompressed(dst, src []byte, f *frame.Frame) ([]byte, error) {
	if d.rebuilt == nil {
		d.rebuilt = d.cfg.bufs.Acquire(len(src))
	}

	rebuilt, err := frame.AppendRebuilt(d.rebuilt.B[:0], src, f, d.dict.BackendID())
	if err != nil {
		return dst, err
	}
	d.rebuilt.B = rebuilt

	capacity := f.MaxContentSize()
	if f.Header.HasContentSize {
		capacity = f.Header.ContentSize
	}

	start := len(dst)
	dst, err = d.decoder.DecodeFrame(dst, rebuilt, int(capacity)) //nolint: gosec
	if err != nil {
		if errs.KindOf(err) == errs.KindUnknown {
			err = fmt.Errorf("%w: %s backend: %v", errs.ErrMalformedFrame, d.backend.Policy(), err)
		}

		return dst[:start], err
	}

	if err := frame.CheckContentSize(f, uint64(len(dst)-start)); err != nil { //nolint: gosec
		return dst[:start], err
	}

	return dst, nil
}
