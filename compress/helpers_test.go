package compress

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/zstdx/backend"
	"github.com/arloliu/zstdx/format"
	"github.com/arloliu/zstdx/frame"
)

// testBackends returns every backend available in this build. The pure Go
// alternative is always present.
func testBackends(t testing.TB) []backend.Backend {
	t.Helper()

	backends := backend.Available(backend.Config{})
	require.NotEmpty(t, backends)

	return backends
}

func alternative(t testing.TB) backend.Backend {
	t.Helper()

	b, err := backend.Select(backend.Config{Policy: backend.PolicyAlternative})
	require.NoError(t, err)

	return b
}

// logLines returns size bytes of repetitive, log-like text.
func logLines(size int) []byte {
	out := make([]byte, 0, size+128)
	for i := 0; len(out) < size; i++ {
		out = fmt.Appendf(out, "2024-06-01T12:%02d:%02d host-%03d GET /api/v1/items/%d status=200 bytes=%d\n",
			(i/60)%60, i%60, i%17, i%1000, (i*37)%4096)
	}

	return out[:size]
}

// randomBytes returns incompressible bytes from a fixed seed.
func randomBytes(size int, seed int64) []byte {
	out := make([]byte, size)
	rand.New(rand.NewSource(seed)).Read(out) //nolint: gosec

	return out
}

// scanFrames splits a stream into its frames.
func scanFrames(t *testing.T, stream []byte, f format.FrameFormat) []*frame.Frame {
	t.Helper()

	var frames []*frame.Frame
	for len(stream) > 0 {
		fr, err := frame.ScanFrame(stream, f, 0)
		require.NoError(t, err)
		frames = append(frames, fr)
		stream = stream[fr.Size:]
	}

	return frames
}

// streamCompress pushes src through a Compressor in chunks of chunkSize.
func streamCompress(t *testing.T, b backend.Backend, src []byte, chunkSize int, opts ...CompressorOption) []byte {
	t.Helper()

	c, err := NewCompressor(b, opts...)
	require.NoError(t, err)

	var out []byte
	for len(src) > 0 {
		n := min(chunkSize, len(src))
		frames, err := c.Compress(src[:n])
		require.NoError(t, err)
		out = append(out, frames...)
		src = src[n:]
	}

	tail, err := c.Finish()
	require.NoError(t, err)

	return append(out, tail...)
}

// streamDecompress pushes src through a Decompressor in chunks of chunkSize.
func streamDecompress(t *testing.T, b backend.Backend, src []byte, chunkSize int, opts ...DecompressorOption) []byte {
	t.Helper()

	d, err := NewDecompressor(b, opts...)
	require.NoError(t, err)

	var out []byte
	for len(src) > 0 {
		n := min(chunkSize, len(src))
		content, _, err := d.Decompress(src[:n])
		require.NoError(t, err)
		out = append(out, content...)
		src = src[n:]
	}
	require.NoError(t, d.Finish())

	return out
}
