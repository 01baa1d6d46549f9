package compress

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/arloliu/zstdx/backend"
	"github.com/arloliu/zstdx/errs"
)

// copyBufferSize is the read size used by Reader and the Copy helpers.
const copyBufferSize = 128 << 10

// Writer compresses everything written to it into an underlying io.Writer.
type Writer struct {
	w   io.Writer
	c   *Compressor
	err error
}

var _ io.WriteCloser = (*Writer)(nil)

// NewWriter returns a Writer compressing into w. Close must be called to
// write the final frame; it does not close w.
func NewWriter(w io.Writer, b backend.Backend, opts ...CompressorOption) (*Writer, error) {
	c, err := NewCompressor(b, opts...)
	if err != nil {
		return nil, err
	}

	return &Writer{w: w, c: c}, nil
}

// Write compresses p. Frames are written to the underlying writer as soon as
// they are complete.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	out, err := w.c.Compress(p)
	if err != nil {
		w.err = err
		return 0, err
	}
	if err := w.emit(out); err != nil {
		return 0, err
	}

	return len(p), nil
}

// Flush ends the current frame and writes it to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}

	out, err := w.c.Flush()
	if err != nil {
		w.err = err
		return err
	}

	return w.emit(out)
}

// Close writes the final frames. Calling Close twice is a no-op.
func (w *Writer) Close() error {
	if w.err != nil {
		return multierr.Append(w.err, w.c.Close())
	}

	out, err := w.c.Finish()
	if err != nil {
		w.err = err
		return err
	}

	return w.emit(out)
}

// Stats returns the progress of the underlying compressor.
func (w *Writer) Stats() Stats {
	return w.c.Stats()
}

func (w *Writer) emit(out []byte) error {
	if len(out) == 0 {
		return nil
	}
	if _, err := w.w.Write(out); err != nil {
		w.err = err
		return multierr.Append(err, w.c.Close())
	}

	return nil
}

// Reader decompresses frames read from an underlying io.Reader.
type Reader struct {
	r     io.Reader
	d     *Decompressor
	buf   []byte
	out   []byte
	err   error
	inEOF bool
}

var _ io.ReadCloser = (*Reader)(nil)

// NewReader returns a Reader decoding the frames of r.
//
// A stream that ends inside a frame, or holds no frame, fails with
// ErrMalformedFrame instead of io.EOF. With WithMaxOutputSize, frames held
// back by the limit are returned before more input is read, and a single
// frame exceeding the limit fails the Reader with ErrResourceLimit.
func NewReader(r io.Reader, b backend.Backend, opts ...DecompressorOption) (*Reader, error) {
	d, err := NewDecompressor(b, opts...)
	if err != nil {
		return nil, err
	}

	return &Reader{r: r, d: d, buf: make([]byte, copyBufferSize)}, nil
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	for len(r.out) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.fill()
	}

	n := copy(p, r.out)
	r.out = r.out[n:]

	return n, nil
}

// fill decodes the next piece of input into r.out or records the terminal error.
func (r *Reader) fill() {
	if r.d.buffered() {
		out, _, err := r.d.Decompress(nil)
		r.out = out
		if err != nil {
			r.err = err
		}

		return
	}

	if r.inEOF {
		err := r.d.Finish()
		if err == nil {
			err = io.EOF
		}
		r.err = err

		return
	}

	n, readErr := r.r.Read(r.buf)
	if n > 0 {
		out, _, err := r.d.Decompress(r.buf[:n])
		r.out = out
		if err != nil {
			r.err = err
			return
		}
	}

	switch {
	case readErr == nil:
	case errors.Is(readErr, io.EOF):
		r.inEOF = true
	default:
		r.err = readErr
	}
}

// Stats returns the progress of the underlying decompressor.
func (r *Reader) Stats() Stats {
	return r.d.Stats()
}

// Close releases the decompressor. It does not close the underlying reader.
func (r *Reader) Close() error {
	return r.d.Close()
}

// DecompressWriter decodes compressed bytes written to it and writes the
// content to an underlying io.Writer.
type DecompressWriter struct {
	w   io.Writer
	d   *Decompressor
	err error
}

var _ io.WriteCloser = (*DecompressWriter)(nil)

// NewDecompressWriter returns a DecompressWriter writing content to w. Close
// must be called to detect a truncated trailing frame; it does not close w.
func NewDecompressWriter(w io.Writer, b backend.Backend, opts ...DecompressorOption) (*DecompressWriter, error) {
	d, err := NewDecompressor(b, opts...)
	if err != nil {
		return nil, err
	}

	return &DecompressWriter{w: w, d: d}, nil
}

// Write decodes p. Content is written to the underlying writer as soon as
// each frame is complete; with WithMaxOutputSize at most that many bytes are
// decoded per underlying write. The first error is sticky.
func (w *DecompressWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	out, _, err := w.d.Decompress(p)
	for err == nil {
		if err = w.emit(out); err != nil || !w.d.buffered() {
			break
		}
		out, _, err = w.d.Decompress(nil)
	}
	if err != nil {
		w.err = err
		return 0, multierr.Append(err, w.d.Close())
	}

	return len(p), nil
}

// Close checks that the input ended on a frame boundary and releases the
// decompressor. Calling Close twice is a no-op.
func (w *DecompressWriter) Close() error {
	if w.err != nil {
		return w.err
	}
	if err := w.d.Finish(); err != nil {
		w.err = err
		return multierr.Append(err, w.d.Close())
	}

	return nil
}

// Stats returns the progress of the underlying decompressor.
func (w *DecompressWriter) Stats() Stats {
	return w.d.Stats()
}

func (w *DecompressWriter) emit(out []byte) error {
	if len(out) == 0 {
		return nil
	}
	_, err := w.w.Write(out)

	return err
}

// Copy compresses everything read from src into dst.
//
// Returns:
//   - int64: bytes read from src
//   - int64: bytes written to dst
//   - error: the first read, write or compression error
func Copy(dst io.Writer, src io.Reader, b backend.Backend, opts ...CompressorOption) (int64, int64, error) {
	w, err := NewWriter(dst, b, opts...)
	if err != nil {
		return 0, 0, err
	}

	if _, err := io.CopyBuffer(w, src, make([]byte, copyBufferSize)); err != nil {
		closeErr := w.c.Close()
		stats := w.Stats()

		return stats.ContentSize, stats.CompressedSize, multierr.Append(err, closeErr)
	}

	err = w.Close()
	stats := w.Stats()

	return stats.ContentSize, stats.CompressedSize, err
}

// CopyDecompressed decodes every frame read from src into dst.
//
// Returns:
//   - int64: bytes read from src
//   - int64: bytes written to dst
//   - error: the first read, write or decoding error
func CopyDecompressed(dst io.Writer, src io.Reader, b backend.Backend, opts ...DecompressorOption) (int64, int64, error) {
	r, err := NewReader(src, b, opts...)
	if err != nil {
		return 0, 0, err
	}

	written, err := io.CopyBuffer(dst, r, make([]byte, copyBufferSize))
	err = multierr.Append(err, r.Close())
	if err != nil {
		err = fmt.Errorf("copy decompressed: %w", err)
	}

	return r.Stats().CompressedSize, written, err
}
