package compress

import (
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/arloliu/zstdx/backend"
	"github.com/arloliu/zstdx/dict"
	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/frame"
	"github.com/arloliu/zstdx/internal/options"
	"github.com/arloliu/zstdx/internal/pool"
)

// Compressor turns a stream of content into a sequence of Zstandard frames.
//
// Content is cut into jobs at fixed offsets, multiples of the job size, and
// every job becomes one self-contained frame. Job boundaries depend only on
// the stream offset, so feeding the same content in any chunking, or with any
// thread count, produces byte-identical output. Flush is the one exception:
// it ends the current job early on purpose.
//
// A Compressor is not safe for concurrent use.
type Compressor struct {
	backend   backend.Backend
	dict      *dict.Dictionary
	params    resolved
	bufs      *pool.Manager
	frameOpts frame.Options

	encoders []backend.FrameEncoder
	scratch  []*pool.ByteBuffer

	state   State
	err     error
	pending *pool.ByteBuffer
	stats   Stats
}

// NewCompressor creates a compressor producing frames with kernels of b.
//
// The first frame encoder is created eagerly, so parameter and dictionary
// problems surface here rather than on the first push.
//
// Parameters:
//   - b: backend providing the frame encoders
//   - opts: compression options
//
// Returns:
//   - *Compressor: a compressor in StateIdle
//   - error: ErrInvalidParameters for out-of-range options or a dictionary the
//     backend rejects
func NewCompressor(b backend.Backend, opts ...CompressorOption) (*Compressor, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil backend", errs.ErrInvalidParameters)
	}

	cfg := newCompressorConfig()
	if err := options.ApplyAll(cfg, opts...); err != nil {
		return nil, err
	}

	params, err := cfg.params.resolve()
	if err != nil {
		return nil, err
	}

	c := &Compressor{
		backend: b,
		dict:    cfg.dict,
		params:  params,
		bufs:    cfg.bufs,
		frameOpts: frame.Options{
			Format:      params.format,
			Checksum:    params.checksum,
			ContentSize: params.contentSize,
		},
		encoders: make([]backend.FrameEncoder, params.workers),
		scratch:  make([]*pool.ByteBuffer, params.workers),
	}
	if params.dictID {
		c.frameOpts.DictionaryID = dict.ID(cfg.dict)
	}

	if err := c.ensureEncoders(1); err != nil {
		return nil, err
	}

	return c, nil
}

// State returns the current lifecycle state.
func (c *Compressor) State() State {
	return c.state
}

// Stats returns the bytes consumed and produced so far.
func (c *Compressor) Stats() Stats {
	return c.stats
}

// Backend returns the backend whose kernels produce the frames.
func (c *Compressor) Backend() backend.Backend {
	return c.backend
}

// Compress pushes chunk into the session.
//
// The returned bytes hold every frame completed by this push, possibly none.
// They are newly allocated and owned by the caller; chunk is not retained.
//
// Returns:
//   - []byte: complete frames, or nil
//   - error: ErrInvalidState after Finish or Close, the stored error after a failure
func (c *Compressor) Compress(chunk []byte) ([]byte, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	c.stats.ContentSize += int64(len(chunk))

	jobSize := c.params.jobSize
	// wait for one job per worker so threaded sessions compress in parallel
	if c.pending.Len()+len(chunk) < jobSize*c.params.workers {
		c.pending.MustWrite(chunk)
		return nil, nil
	}

	if partial := c.pending.Len() % jobSize; partial > 0 {
		n := jobSize - partial
		c.pending.MustWrite(chunk[:n])
		chunk = chunk[n:]
	}

	full := len(chunk) - len(chunk)%jobSize
	jobs := splitJobs(nil, c.pending.Bytes(), jobSize)
	jobs = splitJobs(jobs, chunk[:full], jobSize)

	out, err := c.encodeJobs(nil, jobs)
	if err != nil {
		return nil, c.fail(err)
	}

	c.pending.Reset()
	c.pending.MustWrite(chunk[full:])

	return out, nil
}

// Flush ends the current frame early and returns every frame holding the
// buffered content. Later content starts a new job, so flushed streams are
// no longer byte-identical to unflushed ones.
func (c *Compressor) Flush() ([]byte, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	if c.pending.Len() == 0 {
		return nil, nil
	}

	out, err := c.encodeJobs(nil, splitJobs(nil, c.pending.Bytes(), c.params.jobSize))
	if err != nil {
		return nil, c.fail(err)
	}
	c.pending.Reset()

	return out, nil
}

// Finish compresses the buffered content, ends the session and releases its
// resources. A session that never produced a frame yields one empty frame.
//
// Finish is idempotent: on a finished or closed compressor it returns empty
// output and no error.
func (c *Compressor) Finish() ([]byte, error) {
	switch c.state {
	case StateClosed:
		return nil, nil
	case StateErrored:
		return nil, c.err
	case StateIdle:
		c.acquire()
	}
	c.state = StateFinishing

	jobs := splitJobs(nil, c.pending.Bytes(), c.params.jobSize)
	if len(jobs) == 0 && c.stats.Frames == 0 {
		jobs = append(jobs, nil)
	}

	out, err := c.encodeJobs(nil, jobs)
	if err != nil {
		return nil, c.fail(err)
	}

	if err := c.release(); err != nil {
		c.state = StateErrored
		c.err = err

		return nil, err
	}
	c.state = StateClosed

	return out, nil
}

// Close abandons the session, dropping buffered content, and releases every
// resource. Closing a closed compressor is a no-op.
func (c *Compressor) Close() error {
	if c.state == StateClosed {
		return nil
	}

	err := c.release()
	if c.state != StateErrored {
		c.state = StateClosed
	}

	return err
}

func (c *Compressor) begin() error {
	switch c.state {
	case StateIdle:
		c.acquire()
		c.state = StateActive
	case StateActive:
	case StateErrored:
		return c.err
	default:
		return fmt.Errorf("%w: compressor is %s", errs.ErrInvalidState, c.state)
	}

	return nil
}

func (c *Compressor) acquire() {
	if c.pending == nil {
		c.pending = c.bufs.Acquire(c.params.jobSize)
	}
}

func (c *Compressor) fail(err error) error {
	c.err = multierr.Append(err, c.release())
	c.state = StateErrored

	return c.err
}

// release returns the session buffers and closes the frame encoders.
func (c *Compressor) release() error {
	c.bufs.Release(c.pending)
	c.pending = nil

	var err error
	for i, enc := range c.encoders {
		if enc != nil {
			err = multierr.Append(err, enc.Close())
			c.encoders[i] = nil
		}
		c.bufs.Release(c.scratch[i])
		c.scratch[i] = nil
	}

	return err
}

func (c *Compressor) ensureEncoders(n int) error {
	for i := range n {
		if c.encoders[i] != nil {
			continue
		}

		enc, err := c.backend.NewFrameEncoder(backend.EncoderConfig{
			Level:        c.params.level,
			WindowLog:    c.params.windowLog,
			LongDistance: c.params.longDistance,
			Dict:         c.dict,
		})
		if err != nil {
			return err
		}
		c.encoders[i] = enc
	}

	return nil
}

// encodeJobs appends one frame per job to dst, in job order.
func (c *Compressor) encodeJobs(dst []byte, jobs [][]byte) ([]byte, error) {
	if len(jobs) == 0 {
		return dst, nil
	}

	workers := min(c.params.workers, len(jobs))
	if err := c.ensureEncoders(workers); err != nil {
		return dst, err
	}

	start := len(dst)
	if workers == 1 {
		for _, job := range jobs {
			var err error
			if dst, err = c.encodeJob(dst, 0, job); err != nil {
				return dst[:start], err
			}
		}
	} else {
		frames, cleanup := pool.GetByteSlices(len(jobs))
		defer cleanup()

		var g errgroup.Group
		for w := range workers {
			g.Go(func() error {
				for i := w; i < len(jobs); i += workers {
					out, err := c.encodeJob(nil, w, jobs[i])
					if err != nil {
						return err
					}
					frames[i] = out
				}

				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return dst, err
		}

		for _, f := range frames {
			dst = append(dst, f...)
		}
	}

	c.stats.CompressedSize += int64(len(dst) - start)
	c.stats.Frames += len(jobs)

	return dst, nil
}

// encodeJob appends the frame of one job using the kernel of worker w.
func (c *Compressor) encodeJob(dst []byte, w int, job []byte) ([]byte, error) {
	if c.scratch[w] == nil {
		c.scratch[w] = c.bufs.Acquire(frame.MaxFrameSize(len(job)))
	}
	scratch := c.scratch[w]

	encoded, err := c.encoders[w].EncodeFrame(scratch.B[:0], job)
	if err != nil {
		return dst, err
	}
	scratch.B = encoded

	return frame.AppendFrame(dst, job, encoded, c.frameOpts)
}

// splitJobs appends the jobSize pieces of b to jobs; the last piece may be shorter.
func splitJobs(jobs [][]byte, b []byte, jobSize int) [][]byte {
	for len(b) > 0 {
		n := min(len(b), jobSize)
		jobs = append(jobs, b[:n])
		b = b[n:]
	}

	return jobs
}
