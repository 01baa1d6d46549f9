package compress

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/zstdx/errs"
)

func TestWriterReader_RoundTrip(t *testing.T) {
	data := logLines(200 << 10)

	for _, b := range testBackends(t) {
		t.Run(b.Policy().String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, b, WithJobSize(32<<10), WithThreads(2))
			require.NoError(t, err)

			for chunk := range slices.Chunk(data, 1000) {
				n, err := w.Write(chunk)
				require.NoError(t, err)
				require.Equal(t, len(chunk), n)
			}
			require.NoError(t, w.Close())
			require.NoError(t, w.Close())

			oneShot, err := Compress(b, data, WithJobSize(32<<10))
			require.NoError(t, err)
			require.Equal(t, oneShot, buf.Bytes())

			r, err := NewReader(iotest.OneByteReader(bytes.NewReader(buf.Bytes())), b)
			require.NoError(t, err)
			out, err := io.ReadAll(r)
			require.NoError(t, err)
			require.Equal(t, data, out)
			require.NoError(t, r.Close())
			require.Equal(t, int64(len(data)), r.Stats().ContentSize)
		})
	}
}

func TestWriter_Flush(t *testing.T) {
	b := alternative(t)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, b)
	require.NoError(t, err)

	_, err = w.Write([]byte("flushed early"))
	require.NoError(t, err)
	require.Zero(t, buf.Len())

	require.NoError(t, w.Flush())
	out, err := Decompress(b, buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "flushed early", string(out))

	require.NoError(t, w.Close())
	require.Equal(t, 1, w.Stats().Frames, "no empty frame after content was emitted")
}

func TestWriter_PropagatesWriteError(t *testing.T) {
	b := alternative(t)
	writeErr := errors.New("disk full")

	w, err := NewWriter(failingWriter{err: writeErr}, b, WithJobSize(1024))
	require.NoError(t, err)

	_, err = w.Write(make([]byte, 4096))
	require.ErrorIs(t, err, writeErr)
	_, err = w.Write([]byte("more"))
	require.ErrorIs(t, err, writeErr)
	require.ErrorIs(t, w.Close(), writeErr)
}

func TestReader_Truncated(t *testing.T) {
	b := alternative(t)
	compressed, err := Compress(b, logLines(10<<10))
	require.NoError(t, err)

	r, err := NewReader(bytes.NewReader(compressed[:len(compressed)-3]), b)
	require.NoError(t, err)
	_, err = io.ReadAll(r)
	require.ErrorIs(t, err, errs.ErrMalformedFrame)

	r, err = NewReader(bytes.NewReader(nil), b)
	require.NoError(t, err)
	_, err = io.ReadAll(r)
	require.ErrorIs(t, err, errs.ErrMalformedFrame)
}

func TestReader_MaxOutputSize(t *testing.T) {
	b := alternative(t)
	data := logLines(10 << 10)
	compressed, err := Compress(b, data, WithJobSize(1024))
	require.NoError(t, err)

	r, err := NewReader(bytes.NewReader(compressed), b, WithMaxOutputSize(2048))
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestReader_FrameLargerThanLimit(t *testing.T) {
	b := alternative(t)
	first, err := Compress(b, logLines(5000))
	require.NoError(t, err)
	rest, err := Compress(b, logLines(1<<20), WithJobSize(1024))
	require.NoError(t, err)

	src := &countingReader{r: bytes.NewReader(append(first, rest...))}
	r, err := NewReader(iotest.HalfReader(src), b, WithMaxOutputSize(1000))
	require.NoError(t, err)

	_, err = io.ReadAll(r)
	require.ErrorIs(t, err, errs.ErrResourceLimit)
	require.LessOrEqual(t, src.n, int64(copyBufferSize), "reading stops at the oversized frame")

	_, err = r.Read(make([]byte, 16))
	require.ErrorIs(t, err, errs.ErrResourceLimit)
	require.NoError(t, r.Close())
}

// ==============================================================================
// DecompressWriter
// ==============================================================================

func TestDecompressWriter_RoundTrip(t *testing.T) {
	data := logLines(100 << 10)

	for _, b := range testBackends(t) {
		t.Run(b.Policy().String(), func(t *testing.T) {
			compressed, err := Compress(b, data, WithJobSize(8<<10))
			require.NoError(t, err)

			for _, chunk := range []int{1, 777, len(compressed)} {
				var out bytes.Buffer
				w, err := NewDecompressWriter(&out, b)
				require.NoError(t, err)

				for piece := range slices.Chunk(compressed, chunk) {
					n, err := w.Write(piece)
					require.NoError(t, err)
					require.Equal(t, len(piece), n)
				}
				require.NoError(t, w.Close())
				require.NoError(t, w.Close())
				require.Equal(t, data, out.Bytes(), "chunk size %d", chunk)
				require.Equal(t, int64(len(compressed)), w.Stats().CompressedSize)
			}
		})
	}
}

func TestDecompressWriter_MaxOutputSize(t *testing.T) {
	b := alternative(t)
	data := logLines(10 << 10)
	compressed, err := Compress(b, data, WithJobSize(1024))
	require.NoError(t, err)

	out := &recordingWriter{}
	w, err := NewDecompressWriter(out, b, WithMaxOutputSize(2048))
	require.NoError(t, err)
	_, err = w.Write(compressed)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Equal(t, data, bytes.Join(out.writes, nil))
	for _, p := range out.writes {
		require.LessOrEqual(t, len(p), 2048)
	}

	w, err = NewDecompressWriter(io.Discard, b, WithMaxOutputSize(100))
	require.NoError(t, err)
	_, err = w.Write(compressed)
	require.ErrorIs(t, err, errs.ErrResourceLimit)
	require.ErrorIs(t, w.Close(), errs.ErrResourceLimit)
}

func TestDecompressWriter_Errors(t *testing.T) {
	b := alternative(t)
	compressed, err := Compress(b, logLines(4096))
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		w, err := NewDecompressWriter(io.Discard, b)
		require.NoError(t, err)
		_, err = w.Write(compressed[:len(compressed)-1])
		require.NoError(t, err)
		require.ErrorIs(t, w.Close(), errs.ErrMalformedFrame)
	})

	t.Run("no_input", func(t *testing.T) {
		w, err := NewDecompressWriter(io.Discard, b)
		require.NoError(t, err)
		require.ErrorIs(t, w.Close(), errs.ErrMalformedFrame)
	})

	t.Run("corrupt", func(t *testing.T) {
		src := append([]byte{}, compressed...)
		src[len(src)-1] ^= 0xFF

		w, err := NewDecompressWriter(io.Discard, b)
		require.NoError(t, err)
		_, err = w.Write(src)
		require.ErrorIs(t, err, errs.ErrChecksumMismatch)
		_, err = w.Write(compressed)
		require.ErrorIs(t, err, errs.ErrChecksumMismatch)
		require.ErrorIs(t, w.Close(), errs.ErrChecksumMismatch)
	})

	t.Run("write_error", func(t *testing.T) {
		writeErr := errors.New("disk full")
		w, err := NewDecompressWriter(failingWriter{err: writeErr}, b)
		require.NoError(t, err)
		_, err = w.Write(compressed)
		require.ErrorIs(t, err, writeErr)
		require.ErrorIs(t, w.Close(), writeErr)
	})
}

func TestCopy(t *testing.T) {
	data := logLines(300 << 10)

	for _, b := range testBackends(t) {
		t.Run(b.Policy().String(), func(t *testing.T) {
			var compressed bytes.Buffer
			read, written, err := Copy(&compressed, bytes.NewReader(data), b, WithLevel(6))
			require.NoError(t, err)
			require.Equal(t, int64(len(data)), read)
			require.Equal(t, int64(compressed.Len()), written)

			var out bytes.Buffer
			read, written, err = CopyDecompressed(&out, bytes.NewReader(compressed.Bytes()), b)
			require.NoError(t, err)
			require.Equal(t, int64(compressed.Len()), read)
			require.Equal(t, int64(len(data)), written)
			require.Equal(t, data, out.Bytes())
		})
	}
}

func TestCopy_ReadError(t *testing.T) {
	b := alternative(t)
	readErr := errors.New("connection reset")

	_, _, err := Copy(io.Discard, iotest.ErrReader(readErr), b)
	require.ErrorIs(t, err, readErr)

	_, _, err = CopyDecompressed(io.Discard, iotest.ErrReader(readErr), b)
	require.ErrorIs(t, err, readErr)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	return n, err
}

type recordingWriter struct {
	writes [][]byte
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, append([]byte{}, p...))

	return len(p), nil
}

type failingWriter struct {
	err error
}

func (w failingWriter) Write([]byte) (int, error) {
	return 0, w.err
}
