package compress

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/zstdx/errs"
	"github.com/arloliu/zstdx/format"
	"github.com/arloliu/zstdx/frame"
	"github.com/arloliu/zstdx/internal/pool"
)

func TestDecompressor_ChunkingEquivalence(t *testing.T) {
	data := logLines(12 << 10)

	for _, b := range testBackends(t) {
		t.Run(b.Policy().String(), func(t *testing.T) {
			compressed, err := Compress(b, data, WithJobSize(4<<10))
			require.NoError(t, err)

			for _, chunk := range []int{1, 3, 100, 4096, len(compressed)} {
				out := streamDecompress(t, b, compressed, chunk)
				require.Equal(t, data, out, "chunk size %d", chunk)
			}
		})
	}
}

func TestDecompressor_FrameComplete(t *testing.T) {
	b := alternative(t)
	first, err := Compress(b, []byte("first frame"))
	require.NoError(t, err)
	second, err := Compress(b, logLines(2000))
	require.NoError(t, err)
	stream := append(append([]byte{}, first...), second...)

	d, err := NewDecompressor(b)
	require.NoError(t, err)

	var boundaries []int
	for i := range stream {
		_, complete, err := d.Decompress(stream[i : i+1])
		require.NoError(t, err)
		if complete {
			boundaries = append(boundaries, i+1)
		}
	}
	require.Equal(t, []int{len(first), len(stream)}, boundaries)
	require.NoError(t, d.Finish())

	stats := d.Stats()
	require.Equal(t, 2, stats.Frames)
	require.Equal(t, int64(len(stream)), stats.CompressedSize)
	require.Equal(t, int64(len("first frame")+2000), stats.ContentSize)
}

func TestDecompressor_SkippableFrames(t *testing.T) {
	b := alternative(t)
	content, err := Compress(b, []byte("payload"))
	require.NoError(t, err)

	stream, err := frame.AppendSkippable(nil, 3, []byte("metadata that is ignored"))
	require.NoError(t, err)
	stream = append(stream, content...)
	stream, err = frame.AppendSkippable(stream, 0, nil)
	require.NoError(t, err)

	for _, chunk := range []int{1, 5, len(stream)} {
		out := streamDecompress(t, b, stream, chunk)
		require.Equal(t, "payload", string(out), "chunk size %d", chunk)
	}

	d, err := NewDecompressor(b)
	require.NoError(t, err)
	out, complete, err := d.Decompress(stream)
	require.NoError(t, err)
	require.True(t, complete)
	require.Equal(t, "payload", string(out))
	require.NoError(t, d.Finish())
	require.Equal(t, 1, d.Stats().Frames)
	require.Equal(t, 2, d.Stats().SkippableFrames)
	require.Equal(t, int64(len(stream)), d.Stats().CompressedSize)
}

func TestDecompressor_OnlySkippableFrames(t *testing.T) {
	b := alternative(t)
	onlySkippable, err := frame.AppendSkippable(nil, 1, []byte("x"))
	require.NoError(t, err)

	d, err := NewDecompressor(b)
	require.NoError(t, err)
	out, complete, err := d.Decompress(onlySkippable)
	require.NoError(t, err)
	require.Empty(t, out)
	require.False(t, complete, "skippable frames alone are not a data frame boundary")
	require.Zero(t, d.Stats().Frames)
	require.Equal(t, 1, d.Stats().SkippableFrames)
	require.ErrorIs(t, d.Finish(), errs.ErrMalformedFrame)

	_, err = Decompress(b, onlySkippable)
	require.ErrorIs(t, err, errs.ErrMalformedFrame)
}

func TestDecompressor_ManyFramesInOneChunk(t *testing.T) {
	b := alternative(t)
	data := logLines(4 << 20)
	compressed, err := Compress(b, data, WithJobSize(format.MinJobSize), WithChecksum(false))
	require.NoError(t, err)
	frames := (len(data) + format.MinJobSize - 1) / format.MinJobSize

	bufs := pool.NewManager()
	d, err := NewDecompressor(b, withDecompressorBuffers(bufs))
	require.NoError(t, err)

	out, complete, err := d.Decompress(compressed)
	require.NoError(t, err)
	require.True(t, complete)
	require.Equal(t, data, out)
	require.Equal(t, frames, d.Stats().Frames)
	require.Equal(t, int64(len(compressed)), d.Stats().CompressedSize)
	require.NoError(t, d.Finish())
	require.Zero(t, bufs.Outstanding())
}

func TestDecompressor_Errors(t *testing.T) {
	data := randomBytes(4096, 3)

	for _, b := range testBackends(t) {
		t.Run(b.Policy().String(), func(t *testing.T) {
			compressed, err := Compress(b, data)
			require.NoError(t, err)
			hdr, err := frame.HeaderSize(compressed, format.FormatStandard)
			require.NoError(t, err)

			tests := []struct {
				name   string
				mutate func([]byte) []byte
				kind   error
			}{
				{name: "checksum_byte", mutate: func(b []byte) []byte { b[len(b)-1] ^= 0xFF; return b }, kind: errs.ErrChecksumMismatch},
				{name: "content_byte", mutate: func(b []byte) []byte { b[hdr+10] ^= 0x01; return b }, kind: errs.ErrChecksumMismatch},
				{name: "magic", mutate: func(b []byte) []byte { b[0] = 0; return b }, kind: errs.ErrMalformedFrame},
				{name: "reserved_bit", mutate: func(b []byte) []byte { b[4] |= 0x08; return b }, kind: errs.ErrMalformedFrame},
				{name: "truncated", mutate: func(b []byte) []byte { return b[:len(b)-5] }, kind: errs.ErrMalformedFrame},
				{name: "empty", mutate: func([]byte) []byte { return nil }, kind: errs.ErrMalformedFrame},
				{name: "garbage", mutate: func([]byte) []byte { return []byte("not a zstd frame at all") }, kind: errs.ErrMalformedFrame},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					src := tt.mutate(append([]byte{}, compressed...))
					_, err := Decompress(b, src)
					require.ErrorIs(t, err, tt.kind)
				})
			}
		})
	}
}

func TestDecompressor_CorruptCompressedBlock(t *testing.T) {
	data := logLines(64 << 10)

	for _, b := range testBackends(t) {
		t.Run(b.Policy().String(), func(t *testing.T) {
			compressed, err := Compress(b, data)
			require.NoError(t, err)
			f, err := frame.ScanFrame(compressed, format.FormatStandard, 0)
			require.NoError(t, err)
			require.False(t, f.IsSimple())

			for i := f.HeaderSize + 3; i < f.Size-4; i += 97 {
				src := append([]byte{}, compressed...)
				src[i] ^= 0x5A
				_, err := Decompress(b, src)
				if err != nil {
					kind := errs.KindOf(err)
					require.Contains(t, []errs.Kind{errs.KindMalformedFrame, errs.KindChecksumMismatch}, kind, "offset %d: %v", i, err)
				}
			}
		})
	}
}

func TestDecompressor_ErrorsAreTerminal(t *testing.T) {
	b := alternative(t)
	bufs := pool.NewManager()

	d, err := NewDecompressor(b, withDecompressorBuffers(bufs))
	require.NoError(t, err)

	_, _, err = d.Decompress([]byte{0x28, 0xB5, 0x2F, 0xFD, 0x08})
	require.ErrorIs(t, err, errs.ErrMalformedFrame)
	require.Equal(t, StateErrored, d.State())
	require.Zero(t, bufs.Outstanding())

	_, _, err = d.Decompress([]byte{0x00})
	require.ErrorIs(t, err, errs.ErrMalformedFrame)
	require.ErrorIs(t, d.Finish(), errs.ErrMalformedFrame)
	require.NoError(t, d.Close())
}

func TestDecompressor_Finish(t *testing.T) {
	b := alternative(t)
	compressed, err := Compress(b, []byte("finish me"))
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		d, err := NewDecompressor(b)
		require.NoError(t, err)
		_, complete, err := d.Decompress(compressed[:len(compressed)-1])
		require.NoError(t, err)
		require.False(t, complete)
		require.ErrorIs(t, d.Finish(), errs.ErrMalformedFrame)
	})

	t.Run("no_input", func(t *testing.T) {
		d, err := NewDecompressor(b)
		require.NoError(t, err)
		require.ErrorIs(t, d.Finish(), errs.ErrMalformedFrame)
	})

	t.Run("idempotent", func(t *testing.T) {
		bufs := pool.NewManager()
		d, err := NewDecompressor(b, withDecompressorBuffers(bufs))
		require.NoError(t, err)
		out, complete, err := d.Decompress(compressed)
		require.NoError(t, err)
		require.True(t, complete)
		require.Equal(t, "finish me", string(out))

		require.NoError(t, d.Finish())
		require.NoError(t, d.Finish())
		require.Equal(t, StateClosed, d.State())
		require.Zero(t, bufs.Outstanding())

		_, _, err = d.Decompress(compressed)
		require.ErrorIs(t, err, errs.ErrInvalidState)
	})

	t.Run("close_abandons", func(t *testing.T) {
		bufs := pool.NewManager()
		d, err := NewDecompressor(b, withDecompressorBuffers(bufs))
		require.NoError(t, err)
		_, _, err = d.Decompress(compressed[:5])
		require.NoError(t, err)
		require.Positive(t, bufs.Outstanding())

		require.NoError(t, d.Close())
		require.Zero(t, bufs.Outstanding())
	})
}

func TestDecompressor_MaxOutputSize(t *testing.T) {
	data := logLines(3000)

	for _, b := range testBackends(t) {
		t.Run(b.Policy().String(), func(t *testing.T) {
			for _, contentSize := range []bool{true, false} {
				compressed, err := Compress(b, data, WithJobSize(1024), WithContentSize(contentSize))
				require.NoError(t, err)

				d, err := NewDecompressor(b, WithMaxOutputSize(2048))
				require.NoError(t, err)

				out, complete, err := d.Decompress(compressed)
				require.NoError(t, err)
				require.False(t, complete)
				require.Equal(t, data[:2048], out)

				require.ErrorIs(t, d.Finish(), errs.ErrInvalidState, "frames are still buffered")
				require.Equal(t, StateActive, d.State())

				rest, complete, err := d.Decompress(nil)
				require.NoError(t, err)
				require.True(t, complete)
				require.Equal(t, data[2048:], rest)
				require.NoError(t, d.Finish())

				_, err = Decompress(b, compressed, WithMaxOutputSize(2048))
				require.ErrorIs(t, err, errs.ErrResourceLimit)

				whole, err := Decompress(b, compressed, WithMaxOutputSize(len(data)))
				require.NoError(t, err)
				require.Equal(t, data, whole)
			}
		})
	}
}

func TestDecompressor_FrameLargerThanLimit(t *testing.T) {
	b := alternative(t)
	compressed, err := Compress(b, logLines(5000))
	require.NoError(t, err)

	d, err := NewDecompressor(b, WithMaxOutputSize(1000))
	require.NoError(t, err)

	_, _, err = d.Decompress(compressed)
	require.ErrorIs(t, err, errs.ErrResourceLimit)
	require.Equal(t, StateActive, d.State(), "resource errors do not end the session")

	_, _, err = d.Decompress(nil)
	require.ErrorIs(t, err, errs.ErrResourceLimit)
	require.NoError(t, d.Close())
}

func TestDecompressor_MaxWindowLog(t *testing.T) {
	b := alternative(t)
	data := logLines(64 << 10)
	compressed, err := Compress(b, data, WithContentSize(false))
	require.NoError(t, err)

	_, err = Decompress(b, compressed, WithMaxWindowLog(format.MinWindowLog))
	require.ErrorIs(t, err, errs.ErrMalformedFrame)

	out, err := Decompress(b, compressed, WithMaxWindowLog(17))
	require.NoError(t, err)
	require.Equal(t, data, out)

	_, err = NewDecompressor(b, WithMaxWindowLog(40))
	require.ErrorIs(t, err, errs.ErrInvalidParameters)
	_, err = NewDecompressor(b, WithMaxOutputSize(-1))
	require.ErrorIs(t, err, errs.ErrInvalidParameters)
	_, err = NewDecompressor(nil)
	require.ErrorIs(t, err, errs.ErrInvalidParameters)
}

func FuzzDecompress(f *testing.F) {
	b := alternative(f)
	for _, seed := range [][]byte{nil, []byte("hello"), logLines(3000), randomBytes(500, 9)} {
		compressed, err := Compress(b, seed, WithJobSize(1024))
		require.NoError(f, err)
		f.Add(compressed)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		out, err := Decompress(b, data, WithMaxOutputSize(1<<20))
		if err != nil {
			require.NotEqual(t, errs.KindUnknown, errs.KindOf(err), "%v", err)
			return
		}

		again, err := Decompress(b, data)
		require.NoError(t, err)
		require.Equal(t, out, again)
	})
}
